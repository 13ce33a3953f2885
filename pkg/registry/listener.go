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
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/iot-lab/coapdash/pkg/node"
)

// AliveListener marks the sender of every UDP datagram as alive in a Store.
// The payload is ignored.
type AliveListener struct {
	Addr   string
	Store  *Store
	Logger *slog.Logger

	// Now is used for timestamps; defaults to time.Now.
	Now func() time.Time
}

// ListenAndServe opens the UDP socket and serves until ctx is done.
func (l *AliveListener) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	pc, err := lc.ListenPacket(ctx, "udp", l.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.Addr, err)
	}
	return l.Serve(ctx, pc)
}

// Serve reads datagrams from pc until ctx is done. It closes pc.
func (l *AliveListener) Serve(ctx context.Context, pc net.PacketConn) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := l.Now
	if now == nil {
		now = time.Now
	}

	stop := context.AfterFunc(ctx, func() {
		_ = pc.Close()
	})
	defer stop()

	logger.Info("alive listener started", "addr", pc.LocalAddr().String())

	buf := make([]byte, 1500)
	for {
		_, addr, err := pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || stderrors.Is(err, net.ErrClosed) {
				logger.Info("alive listener stopped")
				return nil
			}
			return fmt.Errorf("alive listener read failed: %w", err)
		}

		id, ok := senderID(addr)
		if !ok {
			continue
		}
		if l.Store.Touch(id, now()) {
			logger.Info("node joined", "node", string(id))
		}
	}
}

func senderID(addr net.Addr) (node.ID, bool) {
	switch a := addr.(type) {
	case *net.UDPAddr:
		if a.IP == nil {
			return "", false
		}
		return node.ID(a.IP.String()), true
	default:
		host, _, err := net.SplitHostPort(addr.String())
		if err != nil || host == "" {
			return "", false
		}
		return node.ID(host), true
	}
}
