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

// Package registry answers which nodes exist.
//
// The client side is the Lister interface. HTTPLister reads the node list
// from a registry service:
//
//	GET /nodes -> {"nodes": ["2001:db8::1", "2001:db8::2"]}
//
// ConsulLister reads the passing instances of a Consul service instead.
// Both report every failure with the REGISTRY_UNREACHABLE code and never
// retry.
//
// The service side keeps membership in a Store. Nodes announce themselves
// by sending any UDP datagram to the AliveListener; a node that stays silent
// for longer than the store's MaxAge is expired and reported as an "out"
// event. Handler exposes the store in the same wire format HTTPLister reads.
package registry
