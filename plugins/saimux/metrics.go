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

package saimux

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"go.ligato.io/orchagent/plugins/sai"
)

var (
	deviceCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orchagent",
		Subsystem: "device",
		Name:      "calls_total",
		Help:      "The total number of device API calls by result.",
	},
		[]string{"api", "result"},
	)
	deviceItems = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orchagent",
		Subsystem: "device",
		Name:      "items_total",
		Help:      "The total number of items processed by the device by status.",
	},
		[]string{"api", "status"},
	)
	deviceCallDurationSec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "orchagent",
		Subsystem: "device",
		Name:      "call_duration_seconds",
		Help:      "Bucketed histogram of device API call duration.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15),
	},
		[]string{"api"},
	)
)

func init() {
	prometheus.MustRegister(deviceCalls, deviceItems, deviceCallDurationSec)
}

func reportCall(api string, took time.Duration, err error, statuses []sai.Status) {
	deviceCallDurationSec.WithLabelValues(api).Observe(took.Seconds())
	if err != nil {
		deviceCalls.WithLabelValues(api, "error").Inc()
		return
	}
	deviceCalls.WithLabelValues(api, "ok").Inc()
	for _, st := range statuses {
		deviceItems.WithLabelValues(api, st.String()).Inc()
	}
}
