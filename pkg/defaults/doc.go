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

// Package defaults provides centralized configuration constants for coapdash.
//
// This package defines timeout values, ports, and other configuration
// defaults used across the codebase. Centralizing these values keeps the
// timeout chain consistent: a CoAP request must fit inside a node's
// deadline, a node inside the cycle watchdog, and the cycle inside the
// HTTP handler that triggered it.
//
// # Timeout Categories
//
//   - CoAP timeouts: single exchanges with constrained nodes
//   - Cycle timeouts: per-node deadline and cycle-wide watchdog
//   - Registry: node expiry and listener ports
//   - Handler timeouts: HTTP request processing
//   - Server timeouts: HTTP server configuration
//   - HTTP client timeouts: outbound registry requests
//
// # Usage
//
//	import "github.com/iot-lab/coapdash/pkg/defaults"
//
//	ctx, cancel := context.WithTimeout(ctx, defaults.CoAPRequestTimeout)
//	defer cancel()
package defaults
