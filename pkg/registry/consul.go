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

package registry

import (
	"context"
	"fmt"
	"net"
	"strconv"

	consulapi "github.com/hashicorp/consul/api"

	cnserrors "github.com/iot-lab/coapdash/pkg/errors"
	"github.com/iot-lab/coapdash/pkg/node"
)

// ConsulLister lists the passing instances of a Consul service as nodes.
type ConsulLister struct {
	Service string
	Tag     string

	health *consulapi.Health
}

// NewConsulLister creates a lister against the Consul agent at addr. An
// empty addr uses the client defaults (CONSUL_HTTP_ADDR or 127.0.0.1:8500).
func NewConsulLister(addr, token, service, tag string) (*ConsulLister, error) {
	cfg := consulapi.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	if token != "" {
		cfg.Token = token
	}
	cli, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}
	return &ConsulLister{
		Service: service,
		Tag:     tag,
		health:  cli.Health(),
	}, nil
}

// ListNodes returns one ID per passing service instance, in catalog order.
// The ID is the service address, or the node address when the service has
// none, joined with the service port when one is registered.
func (l *ConsulLister) ListNodes(ctx context.Context) ([]node.ID, error) {
	q := (&consulapi.QueryOptions{}).WithContext(ctx)
	entries, _, err := l.health.Service(l.Service, l.Tag, true, q)
	if err != nil {
		return nil, cnserrors.WrapWithContext(cnserrors.ErrCodeRegistryUnreachable,
			"failed to query consul", err, map[string]any{"service": l.Service})
	}

	ids := make([]node.ID, 0, len(entries))
	for _, e := range entries {
		if id, ok := entryID(e); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func entryID(e *consulapi.ServiceEntry) (node.ID, bool) {
	if e == nil {
		return "", false
	}
	var addr string
	port := 0
	if e.Service != nil {
		addr = e.Service.Address
		port = e.Service.Port
	}
	if addr == "" && e.Node != nil {
		addr = e.Node.Address
	}
	if addr == "" {
		return "", false
	}
	if port > 0 {
		return node.ID(net.JoinHostPort(addr, strconv.Itoa(port))), true
	}
	return node.ID(addr), true
}
