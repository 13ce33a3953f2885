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

package node

import (
	"net"
	"strconv"
	"strings"
)

// DiscoveryPath is the well-known resource listing path on every node.
const DiscoveryPath = "/.well-known/core"

// ActuatorName is the endpoint name of the node's actuator state.
const ActuatorName = "led"

// ID identifies a node for the lifetime of one poll cycle, usually its
// network address.
type ID string

// String implements fmt.Stringer.
func (id ID) String() string {
	return string(id)
}

// Address returns the UDP address to reach the node on. IDs that already
// carry a port are returned as-is.
func (id ID) Address(defaultPort int) string {
	s := strings.TrimSpace(string(id))
	if _, _, err := net.SplitHostPort(s); err == nil {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	return net.JoinHostPort(s, strconv.Itoa(defaultPort))
}

// Method is the request method an endpoint supports.
type Method string

const (
	MethodGet   Method = "GET"
	MethodPut   Method = "PUT"
	MethodOther Method = "OTHER"
)

// ParseMethod maps a method string to a Method. Anything that is not GET or
// PUT becomes MethodOther.
func ParseMethod(s string) Method {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(MethodGet):
		return MethodGet
	case string(MethodPut):
		return MethodPut
	default:
		return MethodOther
	}
}

// Endpoint is a single resource exposed by a node.
type Endpoint struct {
	Path        string `json:"path" yaml:"path"`
	Method      Method `json:"method" yaml:"method"`
	DeviceClass string `json:"deviceClass,omitempty" yaml:"deviceClass,omitempty"`
}

// Name returns the path with its leading separator stripped.
func (e Endpoint) Name() string {
	return EndpointName(e.Path)
}

// IsDiscovery reports whether the endpoint is the discovery listing itself.
func (e Endpoint) IsDiscovery() bool {
	return e.Path == DiscoveryPath || e.Name() == strings.TrimPrefix(DiscoveryPath, "/")
}

// Readable reports whether the endpoint should be polled.
func (e Endpoint) Readable() bool {
	return e.Method == MethodGet && !e.IsDiscovery()
}

// EndpointName strips a single leading "/" from path.
func EndpointName(path string) string {
	return strings.TrimPrefix(path, "/")
}

// Discovery is the result of resource discovery on one node.
type Discovery struct {
	Board     string     `json:"board" yaml:"board"`
	Endpoints []Endpoint `json:"endpoints" yaml:"endpoints"`
}

// Readable returns the endpoints to poll, in discovery order.
func (d Discovery) Readable() []Endpoint {
	out := make([]Endpoint, 0, len(d.Endpoints))
	for _, e := range d.Endpoints {
		if e.Readable() {
			out = append(out, e)
		}
	}
	return out
}
