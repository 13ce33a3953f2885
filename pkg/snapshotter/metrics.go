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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess       = "success"
	statusPartial       = "partial"
	statusRegistryError = "registry_error"
)

var (
	cycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "coapdash_cycle_duration_seconds",
			Help:    "Time taken to complete a poll cycle",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	cycleTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coapdash_cycle_total",
			Help: "Total number of poll cycles",
		},
		[]string{"status"}, // success, partial or registry_error
	)

	nodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "coapdash_node_poll_duration_seconds",
			Help:    "Time taken by a single node's sequence",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
	)

	nodeOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coapdash_node_polls_total",
			Help: "Total number of node sequences by terminal state",
		},
		[]string{"state"}, // done or failed
	)

	snapshotNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "coapdash_snapshot_nodes",
			Help: "Number of nodes in the last snapshot",
		},
	)
)
