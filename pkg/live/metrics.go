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

package live

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	liveClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "coapdash_live_clients",
			Help: "Number of connected live websocket clients",
		},
	)

	droppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coapdash_live_dropped_clients_total",
			Help: "Total number of live clients dropped for falling behind",
		},
	)
)
