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

// Package coap is the constrained-protocol transport used to talk to nodes.
//
// Client issues confirmable CoAP requests over UDP. Every request is bounded
// by the caller's context and by the client's own request timeout, so a node
// that never answers surfaces as a timeout error instead of a hang:
//
//	c := coap.NewClient(coap.WithRequestTimeout(5 * time.Second))
//	resp, err := c.Get(ctx, "2001:db8::1", "/.well-known/core")
//	if errors.IsTimeout(err) {
//	    // node did not answer in time
//	}
//
// Node IDs without a port are dialed on the default CoAP port 5683.
package coap
