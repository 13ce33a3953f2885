// Copyright (c) 2026, The coapdash Authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package collector implements the operations a poll cycle performs against
// a single node.
//
// # Operations
//
// Resolver discovers the endpoints a node exposes by reading its
// /.well-known/core listing. The listing is JSON by default and CBOR when
// the node declares application/cbor:
//
//	{"board": "samr21-xpro", "paths": [{"path": "/temperature", "method": "GET"}]}
//
// Reader reads one endpoint and returns its text value. The placeholder
// body "-" is reported as "0".
//
// Actuator writes the actuator command to a node's /led resource. Any
// response from the node is a success.
//
// # Errors
//
// Every failure is a *errors.StructuredError whose code names the operation
// and whether the node timed out or the exchange failed:
//
//	DISCOVERY_TIMEOUT, DISCOVERY_TRANSPORT, DISCOVERY_PARSE
//	READ_TIMEOUT, READ_TRANSPORT
//	WRITE_TIMEOUT, WRITE_TRANSPORT
//
// None of the operations retry.
//
// # Usage
//
//	f := collector.NewDefaultFactory(coap.NewClient(), slog.Default())
//	d, err := f.CreateResolver().Discover(ctx, "2001:db8::1")
//	if err != nil {
//	    return err
//	}
//	for _, e := range d.Readable() {
//	    v, err := f.CreateReader().ReadValue(ctx, "2001:db8::1", e.Path)
//	    ...
//	}
package collector
