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

// Package live pushes cycle results and registry membership changes to
// dashboard clients over websockets.
//
// A Hub is both an http.Handler (the websocket endpoint) and a snapshot
// sink: handing it a snapshot broadcasts
//
//	{"command": "update", "snapshot": {...}}
//
// to every connected client, and Publish forwards registry events as
//
//	{"command": "new", "node": "2001:db8::1"}
//	{"command": "out", "node": "2001:db8::1"}
//
// Each client has a bounded send queue. A client whose queue is full is
// disconnected instead of slowing down the broadcast.
package live
