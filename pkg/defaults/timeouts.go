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

package defaults

import "time"

// CoAP timeouts for requests sent to constrained nodes.
const (
	// CoAPRequestTimeout bounds a single discovery, read or write exchange.
	// Retransmissions of the confirmable message happen inside this window.
	CoAPRequestTimeout = 10 * time.Second

	// CoAPPort is the default UDP port nodes listen on.
	CoAPPort = 5683
)

// Cycle timeouts for the polling orchestrator.
const (
	// NodeTimeout bounds discovery plus every read for one node.
	// Should be greater than CoAPRequestTimeout.
	NodeTimeout = 30 * time.Second

	// CycleTimeout is the watchdog for one complete poll cycle.
	// Should be greater than NodeTimeout.
	CycleTimeout = 45 * time.Second
)

// Registry timeouts and ports.
const (
	// RegistryNodeMaxAge is how long a node stays registered without
	// sending an alive datagram.
	RegistryNodeMaxAge = 120 * time.Second

	// RegistryExpireInterval is how often stale nodes are swept.
	RegistryExpireInterval = 1 * time.Second

	// RegistryAlivePort is the UDP port alive datagrams are received on.
	RegistryAlivePort = 8888

	// RegistryHTTPPort is the port the node list is served on.
	RegistryHTTPPort = 8000

	// RegistryURI is where the dashboard fetches the node list from.
	RegistryURI = "http://localhost:8000/nodes"
)

// Handler timeouts for HTTP request processing.
const (
	// ViewHandlerTimeout is the timeout for requests that run a poll cycle.
	// Should be greater than CycleTimeout so the cycle can report.
	ViewHandlerTimeout = 60 * time.Second

	// CommandHandlerTimeout is the timeout for actuator command requests.
	CommandHandlerTimeout = 15 * time.Second

	// ReadinessCheckTimeout bounds the dependency checks behind /ready.
	ReadinessCheckTimeout = 3 * time.Second

	// HandlerTimeoutMargin is kept between a configured cycle timeout and
	// the handler running it, and between that handler and the server's
	// write timeout.
	HandlerTimeoutMargin = 15 * time.Second
)

// Server timeouts for HTTP server configuration.
const (
	// ServerReadTimeout is the maximum duration for reading request headers.
	ServerReadTimeout = 10 * time.Second

	// ServerReadHeaderTimeout prevents slow header attacks.
	ServerReadHeaderTimeout = 5 * time.Second

	// ServerWriteTimeout is the maximum duration for writing a response.
	// Must cover ViewHandlerTimeout.
	ServerWriteTimeout = 75 * time.Second

	// ServerIdleTimeout is the maximum duration to wait for the next request.
	ServerIdleTimeout = 120 * time.Second

	// ServerShutdownTimeout is the maximum duration for graceful shutdown.
	ServerShutdownTimeout = 30 * time.Second
)

// HTTP client timeouts for outbound requests.
const (
	// HTTPClientTimeout is the default total timeout for HTTP requests.
	HTTPClientTimeout = 30 * time.Second

	// HTTPConnectTimeout is the timeout for establishing connections.
	HTTPConnectTimeout = 5 * time.Second

	// HTTPTLSHandshakeTimeout is the timeout for TLS handshake.
	HTTPTLSHandshakeTimeout = 5 * time.Second

	// HTTPResponseHeaderTimeout is the timeout for reading response headers.
	HTTPResponseHeaderTimeout = 10 * time.Second

	// HTTPIdleConnTimeout is the timeout for idle connections in the pool.
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPKeepAlive is the keep-alive duration for connections.
	HTTPKeepAlive = 30 * time.Second

	// HTTPExpectContinueTimeout is the timeout for Expect: 100-continue.
	HTTPExpectContinueTimeout = 1 * time.Second
)

// Live push settings.
const (
	// LiveWriteTimeout bounds one websocket write to a dashboard client.
	LiveWriteTimeout = 5 * time.Second

	// LivePingInterval is how often idle websocket clients are pinged.
	LivePingInterval = 30 * time.Second
)
