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
	"log/slog"

	"github.com/plgd-dev/go-coap/v3/message"

	"github.com/iot-lab/coapdash/pkg/coap"
	cnserrors "github.com/iot-lab/coapdash/pkg/errors"
	"github.com/iot-lab/coapdash/pkg/node"
)

// ActuatorPath is the resource the actuator command is written to.
const ActuatorPath = "/" + node.ActuatorName

// Actuator sends the actuator command to nodes.
type Actuator struct {
	Transport coap.Transport
	Logger    *slog.Logger
}

// Send writes value to the node's actuator resource. Any response counts as
// success; the response body is ignored.
//
// Failures carry ErrCodeWriteTimeout or ErrCodeWriteTransport.
func (a *Actuator) Send(ctx context.Context, id node.ID, value string) error {
	resp, err := a.Transport.Put(ctx, id, ActuatorPath, message.TextPlain, []byte(value))
	if err != nil {
		return classify(ctx, err,
			cnserrors.ErrCodeWriteTimeout, cnserrors.ErrCodeWriteTransport,
			"actuator write failed", id)
	}

	logger(a.Logger).Info("actuator command sent",
		"node", string(id),
		"value", value,
		"code", resp.Code.String())
	return nil
}
