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

// Package server provides the HTTP server shared by the coapdash dashboard
// and the registry service.
//
// Routes registered with WithHandler run behind a common middleware chain:
//
//   - Prometheus RED metrics (coapdash_http_*)
//   - API version negotiation via the Accept header
//   - request ID tracking (X-Request-Id, UUID)
//   - panic recovery
//   - token bucket rate limiting (golang.org/x/time/rate)
//   - debug request logging
//
// The mux also serves /health, /ready and /metrics, and responses are gzip
// compressed when Config.Compress is set and the client accepts it.
//
// # Usage
//
//	s := server.New(
//	    server.WithName("coapdash"),
//	    server.WithVersion(version),
//	    server.WithHandler(map[string]http.HandlerFunc{
//	        "/v1/snapshot": h.HandleSnapshot,
//	    }),
//	)
//	if err := s.Run(ctx, pollLoop); err != nil {
//	    return err
//	}
//
// Run blocks until ctx is canceled, the process receives SIGINT or
// SIGTERM, or a task fails, then shuts down within Config.ShutdownTimeout.
// Tasks share the server's context.
//
// # Environment
//
//	PORT                      listen port (default 8080)
//	SHUTDOWN_TIMEOUT_SECONDS  graceful shutdown budget (default 30)
//
// # Errors
//
// All errors use one JSON shape:
//
//	{
//	  "code": "REGISTRY_UNREACHABLE",
//	  "message": "failed to list nodes",
//	  "details": {"error": "connection refused"},
//	  "requestId": "550e8400-e29b-41d4-a716-446655440000",
//	  "timestamp": "2026-01-12T12:00:00Z",
//	  "retryable": true
//	}
//
// WriteErrorFromErr derives the status from the error code: timeouts map
// to 504, node transport failures to 502, registry failures to 503.
package server
