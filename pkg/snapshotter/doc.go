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

// Package snapshotter runs poll cycles over a fleet of nodes.
//
// # Overview
//
// A cycle lists the registry's nodes, polls every node concurrently and
// produces one Snapshot once all of them finished:
//
//	registry -> node list -> one Sequencer per node -> records -> Snapshot -> sinks
//
// # Sequencer
//
// A Sequencer polls a single node. It discovers the node's endpoints, keeps
// the GET endpoints other than the discovery listing in discovery order,
// and reads them one at a time:
//
//	discovering -> iterating(0) -> ... -> iterating(n-1) -> done
//	      \               \                      \
//	       +---------------+----------------------+-> failed
//
// A failure ends the node's sequence. Values read before the failure stay
// on the record and the failure is recorded next to them.
//
// # Fleet
//
// Fleet.RunCycle allocates a fresh CycleState, starts one goroutine per
// node and waits for exactly one completion from each. Nodes never cancel
// each other. Every node runs under NodeTimeout and the whole cycle under
// CycleTimeout, so a node that never answers shows up as failed with a
// DISCOVERY_TIMEOUT or READ_TIMEOUT code instead of stalling the cycle.
//
// The snapshot lists records in registry order and is handed to every sink
// exactly once:
//
//	fleet := &snapshotter.Fleet{
//	    Registry: registry.NewHTTPLister("http://localhost:8000/nodes"),
//	    Sinks:    []serializer.Serializer{serializer.NewStdoutWriter(serializer.FormatYAML)},
//	}
//	snap, err := fleet.RunCycle(ctx)
//
// A registry failure yields a snapshot without records whose Err is set,
// and RunCycle returns the error as well. An empty registry is not an error.
//
// # Observability
//
// Prometheus metrics:
//   - coapdash_cycle_duration_seconds: cycle latency
//   - coapdash_cycle_total{status}: success, partial or registry_error
//   - coapdash_node_poll_duration_seconds: per-node sequence latency
//   - coapdash_node_polls_total{state}: done or failed
//   - coapdash_snapshot_nodes: nodes in the last snapshot
//
// Every cycle is an OpenTelemetry span named "cycle" with one child span
// named "node" per node.
package snapshotter
