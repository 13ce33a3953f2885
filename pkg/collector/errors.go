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
	stderrors "errors"

	cnserrors "github.com/iot-lab/coapdash/pkg/errors"
	"github.com/iot-lab/coapdash/pkg/node"
)

// classify maps a transport failure to the timeout or transport code of the
// calling operation. A request cut short by the caller's deadline counts as
// a timeout even if the transport reported something else.
func classify(ctx context.Context, err error, timeoutCode, transportCode cnserrors.ErrorCode, msg string, id node.ID) error {
	code := transportCode
	if cnserrors.IsTimeout(err) ||
		stderrors.Is(err, context.DeadlineExceeded) ||
		stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		code = timeoutCode
	}
	return cnserrors.WrapWithContext(code, msg, err, map[string]any{"node": string(id)})
}
