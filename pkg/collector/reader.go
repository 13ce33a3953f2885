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

// Placeholder is the body nodes send for a value they cannot produce yet.
const Placeholder = "-"

// NormalizeValue maps the placeholder body to "0" and returns every other
// body verbatim. It is idempotent.
func NormalizeValue(v string) string {
	if v == Placeholder {
		return "0"
	}
	return v
}

// Reader reads single endpoint values from nodes.
type Reader struct {
	Transport coap.Transport
	Logger    *slog.Logger
}

// ReadValue reads the endpoint at path on the node and returns its
// normalized text value.
//
// Failures carry ErrCodeReadTimeout or ErrCodeReadTransport. Non-2.xx
// responses are transport failures.
func (r *Reader) ReadValue(ctx context.Context, id node.ID, path string) (string, error) {
	name := node.EndpointName(path)

	resp, err := r.Transport.Get(ctx, id, "/"+name)
	if err != nil {
		return "", classify(ctx, err,
			cnserrors.ErrCodeReadTimeout, cnserrors.ErrCodeReadTransport,
			fmt.Sprintf("read of %s failed", name), id)
	}

	if !resp.Success() {
		return "", cnserrors.NewWithContext(cnserrors.ErrCodeReadTransport,
			fmt.Sprintf("read of %s returned %s", name, resp.Code),
			map[string]any{"node": string(id)})
	}

	v := NormalizeValue(string(resp.Body))
	logger(r.Logger).Debug("endpoint read", "node", string(id), "endpoint", name, "value", v)
	return v, nil
}
