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
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/iot-lab/coapdash/pkg/defaults"
	cnserrors "github.com/iot-lab/coapdash/pkg/errors"
	"github.com/iot-lab/coapdash/pkg/node"
	"github.com/iot-lab/coapdash/pkg/serializer"
)

// Lister returns the nodes currently known to a registry.
type Lister interface {
	ListNodes(ctx context.Context) ([]node.ID, error)
}

// ListerFunc adapts a function to a Lister.
type ListerFunc func(ctx context.Context) ([]node.ID, error)

// ListNodes calls f.
func (f ListerFunc) ListNodes(ctx context.Context) ([]node.ID, error) {
	return f(ctx)
}

// NodeList is the registry's wire format.
type NodeList struct {
	Nodes []string `json:"nodes" yaml:"nodes"`
}

// Table renders the list with each node's index.
func (l NodeList) Table() serializer.Table {
	t := serializer.Table{
		Headers: []string{"#", "NODE"},
		Empty:   "No nodes registered.",
	}
	for i, n := range l.Nodes {
		t.Rows = append(t.Rows, []string{strconv.Itoa(i), n})
	}
	return t
}

// HTTPLister fetches the node list from a registry over HTTP.
type HTTPLister struct {
	URI    string
	Reader *serializer.HttpReader
}

// NewHTTPLister returns a lister for the registry at uri.
func NewHTTPLister(uri string, opts ...serializer.HttpReaderOption) *HTTPLister {
	if uri == "" {
		uri = defaults.RegistryURI
	}
	return &HTTPLister{
		URI:    uri,
		Reader: serializer.NewHttpReader(opts...),
	}
}

// ListNodes issues one GET to the registry. Transport errors, non-200
// responses and malformed bodies carry ErrCodeRegistryUnreachable. It does
// not retry.
func (l *HTTPLister) ListNodes(ctx context.Context) ([]node.ID, error) {
	data, err := l.Reader.ReadWithContext(ctx, l.URI)
	if err != nil {
		return nil, cnserrors.WrapWithContext(cnserrors.ErrCodeRegistryUnreachable,
			"failed to fetch node list", err, map[string]any{"uri": l.URI})
	}

	var list NodeList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, cnserrors.WrapWithContext(cnserrors.ErrCodeRegistryUnreachable,
			"malformed node list", err, map[string]any{"uri": l.URI})
	}
	if list.Nodes == nil {
		return nil, cnserrors.NewWithContext(cnserrors.ErrCodeRegistryUnreachable,
			"node list is missing the nodes field", map[string]any{"uri": l.URI})
	}

	ids := make([]node.ID, 0, len(list.Nodes))
	for _, n := range list.Nodes {
		ids = append(ids, node.ID(n))
	}
	return ids, nil
}

// String implements fmt.Stringer.
func (l *HTTPLister) String() string {
	return fmt.Sprintf("http(%s)", l.URI)
}
