//  Copyright (c) 2019 Cisco and/or its affiliates.
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

package metrics

import (
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// RoundDuration is the default value used for rounding durations.
var RoundDuration = time.Microsecond * 10

// Calls maps call names to their stats.
type Calls map[string]*CallStats

// MarshalJSON implements json.Marshaler interface
func (m Calls) MarshalJSON() ([]byte, error) {
	calls := make([]*CallStats, 0, len(m))
	for _, s := range m {
		calls = append(calls, s)
	}
	sort.Slice(calls, func(i, j int) bool {
		if calls[i].Total == calls[j].Total {
			return calls[i].Name < calls[j].Name
		}
		return calls[i].Total > calls[j].Total
	})
	return json.Marshal(calls)
}

// CallStats represents generic stats for call metrics.
type CallStats struct {
	Name  string `json:",omitempty"`
	Count uint64
	Items uint64 `json:",omitempty"`
	Total Duration
	Avg   Duration
	Min   Duration
	Max   Duration
}

// Increment increments call count and recalculates durations
func (m *CallStats) Increment(d time.Duration) {
	took := Duration(d)
	m.Count++
	m.Total += took
	m.Avg = m.Total / Duration(m.Count)
	if took > m.Max {
		m.Max = took
	}
	if m.Min == 0 || took < m.Min {
		m.Min = took
	}
}

// Recorder collects call stats, it is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	calls Calls
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{calls: make(Calls)}
}

// Record adds a call of the given name that processed n items.
func (r *Recorder) Record(name string, n int, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.calls[name]
	if !ok {
		s = &CallStats{Name: name}
		r.calls[name] = s
	}
	s.Increment(d)
	s.Items += uint64(n)
}

// Snapshot returns a copy of the collected stats.
func (r *Recorder) Snapshot() Calls {
	r.mu.Lock()
	defer r.mu.Unlock()
	calls := make(Calls, len(r.calls))
	for name, s := range r.calls {
		c := *s
		calls[name] = &c
	}
	return calls
}

// Duration is a time.Duration marshalled as rounded string.
type Duration time.Duration

// MarshalJSON implements json.Marshaler interface
func (m *Duration) MarshalJSON() ([]byte, error) {
	s := time.Duration(*m).Round(RoundDuration).String()
	return json.Marshal(s)
}
