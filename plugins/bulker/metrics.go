//  Copyright (c) 2021 Cisco and/or its affiliates.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at:
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package bulker

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"go.ligato.io/orchagent/pkg/metrics"
)

var (
	bulkCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orchagent",
		Subsystem: "bulker",
		Name:      "calls_total",
		Help:      "The total number of device calls issued by flush.",
	},
		[]string{"object_type", "op", "bulk"},
	)
	bulkItems = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orchagent",
		Subsystem: "bulker",
		Name:      "items_total",
		Help:      "The total number of flushed items by resulting status.",
	},
		[]string{"object_type", "op", "status"},
	)
	coalescedItems = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orchagent",
		Subsystem: "bulker",
		Name:      "coalesced_total",
		Help:      "The total number of operations resolved without a device call.",
	},
		[]string{"object_type"},
	)
	flushDurationSec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "orchagent",
		Subsystem: "bulker",
		Name:      "call_duration_seconds",
		Help:      "Bucketed histogram of device call duration by object type and operation.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 13),
	},
		[]string{"object_type", "op"},
	)
)

var callStats = metrics.NewRecorder()

func init() {
	prometheus.MustRegister(bulkCalls)
	prometheus.MustRegister(bulkItems)
	prometheus.MustRegister(coalescedItems)
	prometheus.MustRegister(flushDurationSec)

	metrics.Register("bulker", func() interface{} {
		return GetStats()
	})
}

// GetStats returns stats of device calls issued by all bulkers.
func GetStats() metrics.Calls {
	return callStats.Snapshot()
}

func reportCall(api string, typ, op string, bulk bool, items int, took time.Duration) {
	bulkCalls.WithLabelValues(typ, op, strconv.FormatBool(bulk)).Inc()
	flushDurationSec.WithLabelValues(typ, op).Observe(took.Seconds())
	callStats.Record(api, items, took)
}

func reportItems(typ, op string, results []*Result) {
	for _, r := range results {
		bulkItems.WithLabelValues(typ, op, r.Status().String()).Inc()
	}
}

func reportCoalesced(typ string, n int) {
	if n > 0 {
		coalescedItems.WithLabelValues(typ).Add(float64(n))
	}
}
