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

package collector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iot-lab/coapdash/pkg/coap"
	cnserrors "github.com/iot-lab/coapdash/pkg/errors"
	"github.com/iot-lab/coapdash/pkg/node"
)

// Resolver performs resource discovery on nodes.
type Resolver struct {
	Transport coap.Transport
	Logger    *slog.Logger
}

// Discover fetches and decodes the node's resource listing.
//
// Failures carry ErrCodeDiscoveryTimeout, ErrCodeDiscoveryTransport or
// ErrCodeDiscoveryParse. Non-2.xx responses are transport failures.
func (r *Resolver) Discover(ctx context.Context, id node.ID) (node.Discovery, error) {
	resp, err := r.Transport.Get(ctx, id, node.DiscoveryPath)
	if err != nil {
		return node.Discovery{}, classify(ctx, err,
			cnserrors.ErrCodeDiscoveryTimeout, cnserrors.ErrCodeDiscoveryTransport,
			"resource discovery failed", id)
	}

	if !resp.Success() {
		return node.Discovery{}, cnserrors.NewWithContext(cnserrors.ErrCodeDiscoveryTransport,
			fmt.Sprintf("resource discovery returned %s", resp.Code),
			map[string]any{"node": string(id)})
	}

	d, err := decodeDiscovery(resp.Body, resp.IsCBOR())
	if err != nil {
		return node.Discovery{}, cnserrors.WrapWithContext(cnserrors.ErrCodeDiscoveryParse,
			"invalid discovery payload", err, map[string]any{"node": string(id)})
	}

	logger(r.Logger).Debug("node discovered",
		"node", string(id),
		"board", d.Board,
		"endpoints", len(d.Endpoints))

	return d, nil
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
