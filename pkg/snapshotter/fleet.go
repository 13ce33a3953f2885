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
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/iot-lab/coapdash/pkg/collector"
	"github.com/iot-lab/coapdash/pkg/defaults"
	cnserrors "github.com/iot-lab/coapdash/pkg/errors"
	"github.com/iot-lab/coapdash/pkg/node"
	"github.com/iot-lab/coapdash/pkg/registry"
	"github.com/iot-lab/coapdash/pkg/serializer"
)

const tracerName = "github.com/iot-lab/coapdash/pkg/snapshotter"

// Fleet polls every node of a registry concurrently and produces one
// snapshot per cycle.
type Fleet struct {
	// Registry provides the node list of each cycle.
	Registry registry.Lister

	// Factory creates the node operations. If nil, a default factory over a
	// UDP CoAP client is used.
	Factory collector.Factory

	// Sinks receive every snapshot exactly once, in order, after the cycle
	// completed. Sink errors are logged and do not fail the cycle.
	Sinks []serializer.Serializer

	// NodeTimeout bounds a single node's sequence.
	NodeTimeout time.Duration

	// CycleTimeout bounds the whole cycle. No node outlives it.
	CycleTimeout time.Duration

	// Version is recorded in snapshot metadata.
	Version string

	// OnState observes sequencer transitions of every node. It is called
	// concurrently from node goroutines.
	OnState func(Transition)

	Logger *slog.Logger
	Tracer trace.Tracer
}

var _ Snapshotter = (*Fleet)(nil)

// RunCycle lists the registry's nodes, polls all of them and returns the
// snapshot once every node reached a terminal state.
//
// When the registry fails, RunCycle returns a snapshot without records
// whose Err is set, together with the error. An empty registry yields an
// empty snapshot and no error. Node failures never fail the cycle; they are
// recorded on the node's record.
func (f *Fleet) RunCycle(ctx context.Context) (*Snapshot, error) {
	logger := f.logger()
	start := time.Now()
	defer func() {
		cycleDuration.Observe(time.Since(start).Seconds())
	}()

	ctx, span := f.tracer().Start(ctx, "cycle")
	defer span.End()

	ids, err := f.Registry.ListNodes(ctx)
	if err != nil {
		if cnserrors.CodeOf(err) != cnserrors.ErrCodeRegistryUnreachable {
			err = cnserrors.Wrap(cnserrors.ErrCodeRegistryUnreachable, "failed to list nodes", err)
		}
		logger.Error("registry unreachable", "error", err)
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "registry unreachable")
		cycleTotal.WithLabelValues(statusRegistryError).Inc()

		snap := failedSnapshot(f.Version, start, &node.Failure{
			Code:    cnserrors.ErrCodeRegistryUnreachable,
			Message: err.Error(),
		})
		f.emit(ctx, snap)
		return snap, err
	}

	st := NewCycleState(ids, start)
	span.SetAttributes(
		attribute.String("cycle.id", st.ID),
		attribute.Int("cycle.nodes", len(st.Nodes)),
	)
	logger.Debug("cycle started", "cycle", st.ID, "nodes", len(st.Nodes))

	if len(st.Nodes) > 0 {
		f.poll(ctx, st)
	}

	snap := st.Snapshot(f.Version)
	failed := snap.FailedNodes()
	status := statusSuccess
	if failed > 0 {
		status = statusPartial
	}
	cycleTotal.WithLabelValues(status).Inc()
	snapshotNodes.Set(float64(len(snap.Records)))

	logger.Info("cycle complete",
		"cycle", st.ID,
		"nodes", len(snap.Records),
		"failed", failed,
		"duration", time.Since(start))

	f.emit(ctx, snap)
	return snap, nil
}

// poll runs one sequencer per node and returns once every node reported
// completion.
func (f *Fleet) poll(ctx context.Context, st *CycleState) {
	cycleTimeout := f.CycleTimeout
	if cycleTimeout <= 0 {
		cycleTimeout = defaults.CycleTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, cycleTimeout)
	defer cancel()

	factory := f.Factory
	if factory == nil {
		factory = collector.NewDefaultFactory(nil, f.Logger)
	}

	// Node failures are recorded on their record; no task returns an error
	// so one node can never cancel another.
	var g errgroup.Group
	for _, id := range st.unique {
		rec := st.records[id]
		seq := &Sequencer{
			Resolver: factory.CreateResolver(),
			Reader:   factory.CreateReader(),
			OnState:  f.OnState,
		}
		g.Go(func() error {
			defer func() { st.done <- rec.ID }()
			f.runNode(cctx, seq, rec)
			return nil
		})
	}

	for range st.unique {
		<-st.done
	}
	_ = g.Wait()
}

func (f *Fleet) runNode(ctx context.Context, seq *Sequencer, rec *node.Record) {
	nodeTimeout := f.NodeTimeout
	if nodeTimeout <= 0 {
		nodeTimeout = defaults.NodeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, nodeTimeout)
	defer cancel()

	ctx, span := f.tracer().Start(ctx, "node", trace.WithAttributes(
		attribute.String("node.id", string(rec.ID)),
	))
	defer span.End()

	start := time.Now()
	err := seq.Run(ctx, rec)
	nodeDuration.Observe(time.Since(start).Seconds())

	span.SetAttributes(
		attribute.String("node.board", rec.Board),
		attribute.Int("node.values", len(rec.Values)),
	)

	if err != nil {
		nodeOutcomes.WithLabelValues(string(StateFailed)).Inc()
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, string(cnserrors.CodeOf(err)))
		f.logger().Warn("node poll failed",
			"node", string(rec.ID),
			"code", string(cnserrors.CodeOf(err)),
			"values", len(rec.Values),
			"error", err)
		return
	}

	nodeOutcomes.WithLabelValues(string(StateDone)).Inc()
	f.logger().Debug("node polled",
		"node", string(rec.ID),
		"board", rec.Board,
		"values", len(rec.Values),
		"duration", time.Since(start))
}

func (f *Fleet) emit(ctx context.Context, snap *Snapshot) {
	for _, s := range f.Sinks {
		if s == nil {
			continue
		}
		if err := s.Serialize(ctx, snap); err != nil {
			f.logger().Warn("snapshot sink failed", "snapshot", snap.ID, "error", err)
		}
	}
}

func (f *Fleet) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.Default()
	}
	return f.Logger
}

func (f *Fleet) tracer() trace.Tracer {
	if f.Tracer == nil {
		return otel.Tracer(tracerName)
	}
	return f.Tracer
}
