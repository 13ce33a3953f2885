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
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otelcodes "go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/iot-lab/coapdash/pkg/coap"
	"github.com/iot-lab/coapdash/pkg/coap/coaptest"
	"github.com/iot-lab/coapdash/pkg/collector"
	cnserrors "github.com/iot-lab/coapdash/pkg/errors"
	"github.com/iot-lab/coapdash/pkg/node"
	"github.com/iot-lab/coapdash/pkg/registry"
)

func get(path string) coaptest.DiscoveryPath {
	return coaptest.DiscoveryPath{Path: path, Method: "GET"}
}

func put(path string) coaptest.DiscoveryPath {
	return coaptest.DiscoveryPath{Path: path, Method: "PUT"}
}

func listing(board string, paths ...coaptest.DiscoveryPath) coaptest.Handler {
	return coaptest.JSON(coaptest.Discovery{Board: board, Paths: paths})
}

func staticLister(ids ...node.ID) registry.Lister {
	return registry.ListerFunc(func(context.Context) ([]node.ID, error) {
		return ids, nil
	})
}

type recordingSink struct {
	mu    sync.Mutex
	snaps []*Snapshot
	err   error
}

func (s *recordingSink) Serialize(_ context.Context, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, v.(*Snapshot))
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snaps)
}

func newFleet(fake *coaptest.Fake, lister registry.Lister, sinks ...*recordingSink) *Fleet {
	f := &Fleet{
		Registry:     lister,
		Factory:      collector.NewDefaultFactory(fake, nil),
		NodeTimeout:  2 * time.Second,
		CycleTimeout: 5 * time.Second,
		Version:      "test",
	}
	for _, s := range sinks {
		f.Sinks = append(f.Sinks, s)
	}
	return f
}

func TestRunCycleOneSnapshotOfLengthN(t *testing.T) {
	for _, n := range []int{0, 1, 3, 25} {
		t.Run(fmt.Sprintf("%d nodes", n), func(t *testing.T) {
			fake := coaptest.NewFake()
			ids := make([]node.ID, 0, n)
			for i := 0; i < n; i++ {
				id := node.ID(fmt.Sprintf("node-%02d", i))
				ids = append(ids, id)
				fake.Handle(id, "GET", node.DiscoveryPath, listing("native", get("/temperature")))
				fake.Handle(id, "GET", "/temperature", coaptest.Delay(time.Duration(n-i)*time.Millisecond, coaptest.Text("20")))
			}

			sink := &recordingSink{}
			snap, err := newFleet(fake, staticLister(ids...), sink).RunCycle(context.Background())
			require.NoError(t, err)

			require.Len(t, snap.Records, n)
			assert.Equal(t, ids, snap.NodeIDs())
			assert.Equal(t, 1, sink.count())
			assert.Same(t, snap, sink.snaps[0])
			for _, r := range snap.Records {
				assert.Equal(t, "20", r.Values["temperature"])
				assert.False(t, r.Failed())
			}
		})
	}
}

func TestRunCycleZeroNodesEmitsImmediately(t *testing.T) {
	sink := &recordingSink{}
	fleet := newFleet(coaptest.NewFake(), staticLister(), sink)

	start := time.Now()
	snap, err := fleet.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second)
	assert.NotNil(t, snap.Records)
	assert.Empty(t, snap.Records)
	assert.False(t, snap.Failed())
	assert.Equal(t, 1, sink.count())
	assert.Equal(t, "Snapshot", snap.Kind.String())
	assert.Equal(t, "test", snap.Metadata["version"])
}

func TestSequencerReadsStrictlyInOrder(t *testing.T) {
	paths := []string{"/a", "/b", "/c", "/d", "/e", "/f"}
	delays := []time.Duration{15, 1, 10, 0, 5, 2}

	fake := coaptest.NewFake()
	var listed []coaptest.DiscoveryPath
	for i, p := range paths {
		listed = append(listed, get(p))
		fake.Handle("A", "GET", p, coaptest.Delay(delays[i]*time.Millisecond, coaptest.Text(p)))
	}
	fake.Handle("A", "GET", node.DiscoveryPath, listing("native", listed...))

	var mu sync.Mutex
	var transitions []Transition
	fleet := newFleet(fake, staticLister("A"))
	fleet.OnState = func(tr Transition) {
		mu.Lock()
		transitions = append(transitions, tr)
		mu.Unlock()
	}

	_, err := fleet.RunCycle(context.Background())
	require.NoError(t, err)

	calls := fake.CallsFor("A")
	require.Len(t, calls, len(paths)+1)
	assert.Equal(t, node.DiscoveryPath, calls[0].Path)
	for i := 1; i < len(calls); i++ {
		assert.Equal(t, paths[i-1], calls[i].Path)
		assert.False(t, calls[i].Start.Before(calls[i-1].End),
			"request %s started before %s completed", calls[i].Path, calls[i-1].Path)
	}

	require.Len(t, transitions, len(paths)+2)
	assert.Equal(t, StateDiscovering, transitions[0].State)
	for i := range paths {
		tr := transitions[i+1]
		assert.Equal(t, StateIterating, tr.State)
		assert.Equal(t, i, tr.Index)
		assert.Equal(t, paths[i], tr.Path)
	}
	assert.Equal(t, StateDone, transitions[len(transitions)-1].State)
}

func TestPartialFailureIsContainedAtTheNode(t *testing.T) {
	fake := coaptest.NewFake().
		Handle("A", "GET", node.DiscoveryPath, listing("samr21", get("/temp"), get("/hum"), get("/press"))).
		Handle("A", "GET", "/temp", coaptest.Text("21")).
		Handle("A", "GET", "/hum", coaptest.Unreachable()).
		Handle("A", "GET", "/press", coaptest.Text("1013")).
		Handle("B", "GET", node.DiscoveryPath, listing("native", get("/temp"), get("/hum"), get("/press"))).
		Handle("B", "GET", "/temp", coaptest.Delay(20*time.Millisecond, coaptest.Text("19"))).
		Handle("B", "GET", "/hum", coaptest.Delay(20*time.Millisecond, coaptest.Text("40"))).
		Handle("B", "GET", "/press", coaptest.Delay(20*time.Millisecond, coaptest.Text("990")))

	start := time.Now()
	snap, err := newFleet(fake, staticLister("A", "B")).RunCycle(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	a, ok := snap.Record("A")
	require.True(t, ok)
	assert.Equal(t, "samr21", a.Board)
	assert.Equal(t, map[string]string{"temp": "21"}, a.Values)
	require.NotNil(t, a.Failure)
	assert.Equal(t, cnserrors.ErrCodeReadTransport, a.Failure.Code)

	for _, c := range fake.CallsFor("A") {
		assert.NotEqual(t, "/press", c.Path, "remaining endpoints must be abandoned")
	}

	b, ok := snap.Record("B")
	require.True(t, ok)
	assert.False(t, b.Failed())
	assert.Equal(t, map[string]string{"temp": "19", "hum": "40", "press": "990"}, b.Values)
	assert.Equal(t, 1, snap.FailedNodes())
}

func TestDiscoveryFiltering(t *testing.T) {
	fake := coaptest.NewFake().
		Handle("A", "GET", node.DiscoveryPath, listing("native",
			get(node.DiscoveryPath),
			get("/temperature"),
			put("/led"),
			coaptest.DiscoveryPath{Path: "/reset", Method: "POST"},
			get("/humidity"),
		)).
		Handle("A", "GET", "/temperature", coaptest.Text("21")).
		Handle("A", "GET", "/humidity", coaptest.Text("-"))

	snap, err := newFleet(fake, staticLister("A")).RunCycle(context.Background())
	require.NoError(t, err)

	var requested []string
	for _, c := range fake.CallsFor("A") {
		requested = append(requested, c.Path)
	}
	assert.Equal(t, []string{node.DiscoveryPath, "/temperature", "/humidity"}, requested)

	a, _ := snap.Record("A")
	assert.Equal(t, map[string]string{"temperature": "21", "humidity": "0"}, a.Values)
	assert.Nil(t, a.LEDValue)
}

func TestConcreteScenario(t *testing.T) {
	fake := coaptest.NewFake().
		Handle("A", "GET", node.DiscoveryPath, listing("samr21-xpro", get("/temp"), put("/led"))).
		Handle("A", "GET", "/temp", coaptest.Text("23")).
		Handle("B", "GET", node.DiscoveryPath, coaptest.Hang())

	fleet := newFleet(fake, staticLister("A", "B"))
	fleet.NodeTimeout = 100 * time.Millisecond

	snap, err := fleet.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Records, 2)

	a := snap.Records[0]
	assert.Equal(t, node.ID("A"), a.ID)
	assert.Equal(t, "23", a.Values["temp"])
	_, hasLED := a.Values["led"]
	assert.False(t, hasLED)
	assert.False(t, a.Failed())

	b := snap.Records[1]
	assert.Equal(t, node.ID("B"), b.ID)
	assert.Empty(t, b.Values)
	assert.Empty(t, b.Board)
	require.NotNil(t, b.Failure)
	assert.Equal(t, cnserrors.ErrCodeDiscoveryTimeout, b.Failure.Code)
}

func TestCycleWatchdogAbandonsHungTransport(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	// Ignores its context entirely.
	hung := func(context.Context, coaptest.Call) (*coap.Response, error) {
		<-release
		return nil, errors.New("too late")
	}

	fake := coaptest.NewFake().
		Handle("A", "GET", node.DiscoveryPath, listing("native", get("/temp"))).
		Handle("A", "GET", "/temp", coaptest.Text("21")).
		Handle("B", "GET", node.DiscoveryPath, listing("native", get("/temp"), get("/hum"))).
		Handle("B", "GET", "/temp", coaptest.Text("18")).
		Handle("B", "GET", "/hum", hung)

	fleet := newFleet(fake, staticLister("A", "B"))
	fleet.NodeTimeout = time.Hour
	fleet.CycleTimeout = 150 * time.Millisecond

	done := make(chan *Snapshot, 1)
	go func() {
		snap, _ := fleet.RunCycle(context.Background())
		done <- snap
	}()

	var snap *Snapshot
	select {
	case snap = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("cycle did not finish")
	}

	a, _ := snap.Record("A")
	assert.False(t, a.Failed())

	b, _ := snap.Record("B")
	assert.Equal(t, "18", b.Values["temp"])
	require.NotNil(t, b.Failure)
	assert.Equal(t, cnserrors.ErrCodeReadTimeout, b.Failure.Code)
}

func TestConcurrentCyclesDoNotShareState(t *testing.T) {
	fake := coaptest.NewFake()
	ids := []node.ID{"A", "B", "C"}
	for _, id := range ids {
		fake.Handle(id, "GET", node.DiscoveryPath, listing(string(id), get("/v")))
		fake.Handle(id, "GET", "/v", coaptest.Delay(5*time.Millisecond, coaptest.Text(string(id))))
	}
	sink := &recordingSink{}
	fleet := newFleet(fake, staticLister(ids...), sink)

	const cycles = 8
	snaps := make([]*Snapshot, cycles)
	var wg sync.WaitGroup
	for i := 0; i < cycles; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap, err := fleet.RunCycle(context.Background())
			assert.NoError(t, err)
			snaps[i] = snap
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, snap := range snaps {
		require.NotNil(t, snap)
		assert.False(t, seen[snap.ID], "snapshot IDs must be unique")
		seen[snap.ID] = true

		require.Len(t, snap.Records, len(ids))
		for i, r := range snap.Records {
			assert.Equal(t, ids[i], r.ID)
			assert.Equal(t, string(r.ID), r.Values["v"])
			assert.Equal(t, string(r.ID), r.Board)
		}
	}
	assert.Equal(t, cycles, sink.count())

	snaps[0].Records[0].Values["v"] = "mutated"
	assert.Equal(t, "A", snaps[1].Records[0].Values["v"])
}

func TestRegistryFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"plain error", errors.New("connection refused")},
		{"classified", cnserrors.New(cnserrors.ErrCodeRegistryUnreachable, "malformed node list")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			lister := registry.ListerFunc(func(context.Context) ([]node.ID, error) {
				return nil, tt.err
			})

			snap, err := newFleet(coaptest.NewFake(), lister, sink).RunCycle(context.Background())
			require.Error(t, err)
			assert.Equal(t, cnserrors.ErrCodeRegistryUnreachable, cnserrors.CodeOf(err))

			require.NotNil(t, snap)
			assert.True(t, snap.Failed())
			assert.Equal(t, cnserrors.ErrCodeRegistryUnreachable, snap.Err.Code)
			assert.Empty(t, snap.Records)
			assert.Equal(t, 1, sink.count())
		})
	}
}

func TestDuplicateNodeIDsShareRecord(t *testing.T) {
	fake := coaptest.NewFake().
		Handle("A", "GET", node.DiscoveryPath, listing("native", get("/temp"))).
		Handle("A", "GET", "/temp", coaptest.Text("21")).
		Handle("B", "GET", node.DiscoveryPath, listing("native"))

	ids := []node.ID{"A", "B", "A"}
	snap, err := newFleet(fake, staticLister(ids...)).RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Records, len(ids))
	assert.Equal(t, ids, snap.NodeIDs())
	assert.Equal(t, snap.Records[0], snap.Records[2])
	assert.Equal(t, "21", snap.Records[2].Values["temp"])

	discovery := 0
	for _, c := range fake.CallsFor("A") {
		if c.Path == node.DiscoveryPath {
			discovery++
		}
	}
	assert.Equal(t, 1, discovery)
}

func TestActuatorStateIsCached(t *testing.T) {
	fake := coaptest.NewFake().
		Handle("A", "GET", node.DiscoveryPath, listing("native", get("/led"), get("/temp"))).
		Handle("A", "GET", "/led", coaptest.Text("1")).
		Handle("A", "GET", "/temp", coaptest.Text("-"))

	snap, err := newFleet(fake, staticLister("A")).RunCycle(context.Background())
	require.NoError(t, err)

	a, _ := snap.Record("A")
	require.NotNil(t, a.LEDValue)
	assert.Equal(t, 1, *a.LEDValue)
	assert.Equal(t, "0", a.Values["temp"])
}

func TestSinkErrorDoesNotFailCycle(t *testing.T) {
	failing := &recordingSink{err: errors.New("client gone")}
	ok := &recordingSink{}

	snap, err := newFleet(coaptest.NewFake(), staticLister(), failing, ok).RunCycle(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snap)
	assert.Equal(t, 1, failing.count())
	assert.Equal(t, 1, ok.count())
}

func TestRunCycleSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	fake := coaptest.NewFake().
		Handle("A", "GET", node.DiscoveryPath, listing("native", get("/temp"))).
		Handle("A", "GET", "/temp", coaptest.Text("21")).
		Handle("B", "GET", node.DiscoveryPath, coaptest.Unreachable())

	fleet := newFleet(fake, staticLister("A", "B"))
	fleet.Tracer = provider.Tracer("test")

	_, err := fleet.RunCycle(context.Background())
	require.NoError(t, err)

	var cycle sdktrace.ReadOnlySpan
	var nodes []sdktrace.ReadOnlySpan
	for _, s := range recorder.Ended() {
		switch s.Name() {
		case "cycle":
			cycle = s
		case "node":
			nodes = append(nodes, s)
		}
	}
	require.NotNil(t, cycle)
	require.Len(t, nodes, 2)

	failed := 0
	for _, s := range nodes {
		assert.Equal(t, cycle.SpanContext().SpanID(), s.Parent().SpanID())
		if s.Status().Code == otelcodes.Error {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}
