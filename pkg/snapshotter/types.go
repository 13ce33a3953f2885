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

package snapshotter

import (
	"context"

	"github.com/iot-lab/coapdash/pkg/node"
)

// Snapshotter runs poll cycles. Every call is independent; concurrent calls
// share no cycle state.
type Snapshotter interface {
	RunCycle(ctx context.Context) (*Snapshot, error)
}

// Discoverer performs resource discovery on one node.
type Discoverer interface {
	Discover(ctx context.Context, id node.ID) (node.Discovery, error)
}

// ValueReader reads one endpoint value from one node.
type ValueReader interface {
	ReadValue(ctx context.Context, id node.ID, path string) (string, error)
}
