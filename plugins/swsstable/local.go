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

package swsstable

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"go.ligato.io/orchagent/pkg/swss"
)

// LocalTable is an in-process table, records written through the producer
// side are popped by the consumer side in the order they were written.
type LocalTable struct {
	name  string
	ready chan struct{}

	mu      sync.Mutex
	records []swss.KeyOpFieldsValues
	closed  bool
}

// NewLocalTable returns an empty table.
func NewLocalTable(name string) *LocalTable {
	return &LocalTable{
		name:  name,
		ready: make(chan struct{}, 1),
	}
}

// Name returns the table name.
func (t *LocalTable) Name() string {
	return t.name
}

// Ready returns channel signalled after records were written.
func (t *LocalTable) Ready() <-chan struct{} {
	return t.ready
}

// Set writes SET record.
func (t *LocalTable) Set(_ context.Context, key string, fields swss.Fields) error {
	return t.push(swss.KeyOpFieldsValues{Key: key, Op: swss.Set, Fields: fields})
}

// Del writes DEL record.
func (t *LocalTable) Del(_ context.Context, key string) error {
	return t.push(swss.KeyOpFieldsValues{Key: key, Op: swss.Del})
}

// Push writes records as they are.
func (t *LocalTable) Push(records ...swss.KeyOpFieldsValues) error {
	return t.push(records...)
}

func (t *LocalTable) push(records ...swss.KeyOpFieldsValues) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return errors.Errorf("table %s is closed", t.name)
	}
	t.records = append(t.records, records...)
	t.mu.Unlock()

	select {
	case t.ready <- struct{}{}:
	default:
		// already signalled
	}
	return nil
}

// Pops returns all written records.
func (t *LocalTable) Pops(_ context.Context) ([]swss.KeyOpFieldsValues, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	records := t.records
	t.records = nil
	return records, nil
}

// Close stops accepting records.
func (t *LocalTable) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
