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

package orch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	taskOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orchagent",
		Subsystem: "orch",
		Name:      "records_total",
		Help:      "The total number of processed records by outcome.",
	},
		[]string{"table", "outcome"},
	)
	pendingTasks = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "orchagent",
		Subsystem: "orch",
		Name:      "pending_records",
		Help:      "The number of records waiting in the consumer queue.",
	},
		[]string{"table"},
	)
	applyDurationSec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "orchagent",
		Subsystem: "orch",
		Name:      "apply_duration_seconds",
		Help:      "Bucketed histogram of batch apply duration by table.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
	},
		[]string{"table"},
	)
)

func init() {
	prometheus.MustRegister(taskOutcomes, pendingTasks, applyDurationSec)
}

func reportPending(table string, n int) {
	pendingTasks.WithLabelValues(table).Set(float64(n))
}

func reportApply(table string, r *Report, took time.Duration) {
	applyDurationSec.WithLabelValues(table).Observe(took.Seconds())
	for outcome, n := range map[Outcome]int{
		Invalid:   r.Invalid,
		Committed: r.Committed,
		Retry:     r.Retried,
		Fatal:     r.Failed,
	} {
		if n > 0 {
			taskOutcomes.WithLabelValues(table, outcome.String()).Add(float64(n))
		}
	}
}
