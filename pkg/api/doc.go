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

// Package api wires the coapdash processes: the dashboard, which polls the
// fleet and serves the results, and the registry service, which tracks
// which nodes are alive.
//
// # Dashboard
//
// Serve builds the node lister (HTTP registry or Consul), a UDP CoAP
// client, the snapshotter fleet and the live hub, then serves:
//
// Application endpoints (with rate limiting):
//   - GET  /                      - Run one cycle and render it as HTML
//   - GET  /v1/snapshot           - Run one cycle and return it as JSON
//   - GET|POST /v1/nodes/{i}/led  - Send ?state=<value> to the i-th node
//   - GET  /v1/live               - Websocket of snapshots
//
// System endpoints (no rate limiting):
//   - GET /health  - Liveness probe
//   - GET /ready   - Readiness probe (fails while the registry is unreachable)
//   - GET /metrics - Prometheus metrics
//
// /v1/snapshot sets an ETag over the node records, so a poller that sends
// If-None-Match gets 304 while readings are unchanged. A registry failure
// is reported as 503 with error code REGISTRY_UNREACHABLE; node failures
// are reported per node and never fail the request.
//
// The {i} of the LED route indexes the node list of the last completed
// cycle, or a fresh registry listing when no cycle ran yet.
//
// When dashboard.pollInterval is set, cycles also run in the background and
// every snapshot is pushed to /v1/live clients.
//
// # Registry
//
// ServeRegistry listens for alive datagrams on UDP, forgets nodes that
// stay silent longer than registry.maxAge and serves:
//   - GET /nodes - {"nodes": [...]} of the live nodes
//   - GET /live  - Websocket of {"command":"new"|"out","node":...} events
//
// # Usage
//
//	cfg, err := config.Load("coapdash.yaml")
//	if err != nil {
//	    return err
//	}
//	return api.Serve(ctx, cfg, version)
package api
