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

package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/iot-lab/coapdash/pkg/defaults"
	cnserrors "github.com/iot-lab/coapdash/pkg/errors"
	"github.com/iot-lab/coapdash/pkg/node"
	"github.com/iot-lab/coapdash/pkg/registry"
	"github.com/iot-lab/coapdash/pkg/serializer"
	"github.com/iot-lab/coapdash/pkg/server"
	"github.com/iot-lab/coapdash/pkg/snapshotter"
)

// Commander fires the actuator command on a node.
type Commander interface {
	Send(ctx context.Context, id node.ID, value string) error
}

// Dashboard serves the dashboard routes. It is also a snapshot sink: the
// last successful snapshot resolves node indexes for actuator commands.
type Dashboard struct {
	Snapshotter snapshotter.Snapshotter
	Registry    registry.Lister
	Actuator    Commander

	// Live, if set, is served at /v1/live.
	Live http.Handler

	ViewTimeout    time.Duration
	CommandTimeout time.Duration

	Logger *slog.Logger

	mu   sync.RWMutex
	last *snapshotter.Snapshot
}

// Routes returns the dashboard routes for server.WithHandler.
func (d *Dashboard) Routes() map[string]http.HandlerFunc {
	routes := map[string]http.HandlerFunc{
		"/{$}":                  d.HandleView,
		"/v1/snapshot":          d.HandleSnapshot,
		"/v1/nodes/{index}/led": d.HandleLED,
	}
	if d.Live != nil {
		routes["/v1/live"] = d.Live.ServeHTTP
	}
	return routes
}

// Serialize keeps the latest snapshot that has a node list.
func (d *Dashboard) Serialize(_ context.Context, v any) error {
	snap, ok := v.(*snapshotter.Snapshot)
	if !ok {
		return fmt.Errorf("unexpected snapshot type %T", v)
	}
	if snap.Failed() {
		return nil
	}
	d.mu.Lock()
	d.last = snap
	d.mu.Unlock()
	return nil
}

// Last returns the latest snapshot with a node list, or nil.
func (d *Dashboard) Last() *snapshotter.Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.last
}

// HandleView runs one cycle and renders it as HTML.
func (d *Dashboard) HandleView(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), d.viewTimeout())
	defer cancel()

	snap, err := d.Snapshotter.RunCycle(ctx)
	status := http.StatusOK
	if err != nil {
		status = server.HTTPStatusFromCode(cnserrors.CodeOf(err))
	}

	if rerr := renderPage(w, status, newPage(snap, err)); rerr != nil {
		d.logger().Error("failed to render dashboard", "error", rerr)
	}
}

// HandleSnapshot runs one cycle and returns the snapshot as JSON. The ETag
// covers the records only, so unchanged readings yield 304 for a matching
// If-None-Match.
func (d *Dashboard) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), d.viewTimeout())
	defer cancel()

	snap, err := d.Snapshotter.RunCycle(ctx)
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "poll cycle failed", nil)
		return
	}

	etag, err := recordsTag(snap.Records)
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "failed to encode snapshot", nil)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if matchesETag(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	serializer.RespondJSON(w, http.StatusOK, snap)
}

// HandleLED sends ?state=<value> to the node at {index} of the current
// node list.
func (d *Dashboard) HandleLED(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		server.WriteError(w, r, http.StatusBadRequest, cnserrors.ErrCodeInvalidRequest,
			"node index must be a non-negative integer", false,
			map[string]any{"index": r.PathValue("index")})
		return
	}

	state := r.URL.Query().Get("state")
	if state == "" {
		server.WriteError(w, r, http.StatusBadRequest, cnserrors.ErrCodeInvalidRequest,
			"missing state parameter", false, nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), d.commandTimeout())
	defer cancel()

	nodes, err := d.nodeList(ctx)
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "failed to list nodes", nil)
		return
	}
	if index >= len(nodes) {
		server.WriteError(w, r, http.StatusNotFound, cnserrors.ErrCodeNotFound,
			"no node at index", false, map[string]any{"index": index, "nodes": len(nodes)})
		return
	}

	id := nodes[index]
	if err := d.Actuator.Send(ctx, id, state); err != nil {
		d.logger().Warn("actuator command failed", "node", string(id), "error", err)
		server.WriteErrorFromErr(w, r, err, "actuator command failed",
			map[string]any{"node": string(id)})
		return
	}

	d.logger().Debug("led command handled", "node", string(id), "state", state)
	serializer.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// nodeList returns the node list of the last snapshot, or a fresh listing
// when no cycle completed yet.
func (d *Dashboard) nodeList(ctx context.Context) ([]node.ID, error) {
	if last := d.Last(); last != nil {
		return last.NodeIDs(), nil
	}
	if d.Registry == nil {
		return nil, cnserrors.New(cnserrors.ErrCodeUnavailable, "no node list available")
	}
	ids, err := d.Registry.ListNodes(ctx)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (d *Dashboard) viewTimeout() time.Duration {
	if d.ViewTimeout > 0 {
		return d.ViewTimeout
	}
	return defaults.ViewHandlerTimeout
}

func (d *Dashboard) commandTimeout() time.Duration {
	if d.CommandTimeout > 0 {
		return d.CommandTimeout
	}
	return defaults.CommandHandlerTimeout
}

func (d *Dashboard) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

func allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	server.WriteError(w, r, http.StatusMethodNotAllowed, cnserrors.ErrCodeMethodNotAllowed,
		"Method not allowed", false, map[string]any{"method": r.Method})
	return false
}

// recordsTag returns a strong ETag over the JSON encoding of records.
func recordsTag(records []node.Record) (string, error) {
	b, err := json.Marshal(records)
	if err != nil {
		return "", cnserrors.Wrap(cnserrors.ErrCodeInternal, "failed to encode records", err)
	}
	sum := blake3.Sum256(b)
	return `"` + hex.EncodeToString(sum[:16]) + `"`, nil
}

func matchesETag(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}
