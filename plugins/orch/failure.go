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
	"sync"
	"time"

	"github.com/pkg/errors"

	"go.ligato.io/orchagent/pkg/swss"
)

// Failure describes a record dropped after a fatal device error.
type Failure struct {
	Time  time.Time      `json:"time"`
	Orch  string         `json:"orch"`
	Table string         `json:"table"`
	Key   string         `json:"key"`
	Op    swss.Operation `json:"op"`
	API   string         `json:"api,omitempty"`
	// Status is the device status, empty when the failure was not
	// returned by the device.
	Status string `json:"status,omitempty"`
	Error  string `json:"error"`
}

// FailureHandler is called for every fatal record.
type FailureHandler func(f *Failure)

// NewFailure describes failure of the task.
func NewFailure(orchName, table string, task *Task, err error) *Failure {
	f := &Failure{
		Time:  time.Now(),
		Orch:  orchName,
		Table: table,
		Key:   task.Key,
		Op:    task.Op,
	}
	if err != nil {
		f.Error = err.Error()
	}
	if serr, ok := errors.Cause(err).(*StatusError); ok {
		f.API = serr.API
		f.Status = serr.Status.String()
	}
	return f
}

// FailureLog keeps the most recent failures.
type FailureLog struct {
	mu    sync.Mutex
	items []*Failure
	next  int
	full  bool
	total uint64
}

// NewFailureLog returns log keeping up to size failures.
func NewFailureLog(size int) *FailureLog {
	if size < 1 {
		size = 1
	}
	return &FailureLog{items: make([]*Failure, size)}
}

// Add records the failure, the oldest one is dropped when the log is full.
func (l *FailureLog) Add(f *Failure) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items[l.next] = f
	l.next = (l.next + 1) % len(l.items)
	if l.next == 0 {
		l.full = true
	}
	l.total++
}

// List returns recorded failures from the oldest.
func (l *FailureLog) List() []*Failure {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.full {
		return append([]*Failure(nil), l.items[:l.next]...)
	}
	list := make([]*Failure, 0, len(l.items))
	list = append(list, l.items[l.next:]...)
	return append(list, l.items[:l.next]...)
}

// Total returns number of failures ever recorded.
func (l *FailureLog) Total() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}
