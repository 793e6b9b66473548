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
	"container/list"
	"context"
	"time"

	"go.ligato.io/orchagent/pkg/swss"
)

// Task is a record waiting in the consumer queue.
type Task struct {
	swss.KeyOpFieldsValues
	// Attempts counts runs of the apply loop that left the record queued.
	Attempts int       `json:"attempts"`
	Queued   time.Time `json:"queued"`
	// LastError is the reason of the last retry.
	LastError string `json:"last_error,omitempty"`
}

// Consumer holds records of one table that were not applied yet.
// Records are kept in arrival order, a record with a key already
// queued replaces the queued one and keeps its position.
// It is not safe for concurrent use.
type Consumer struct {
	table  string
	source swss.ConsumerTable
	order  *list.List
	index  map[string]*list.Element
}

// NewConsumer returns consumer of the table, source may be nil
// when records are added only by AddToSync.
func NewConsumer(table string, source swss.ConsumerTable) *Consumer {
	return &Consumer{
		table:  table,
		source: source,
		order:  list.New(),
		index:  make(map[string]*list.Element),
	}
}

// Name returns the table name.
func (c *Consumer) Name() string {
	return c.table
}

// Source returns the table records are popped from.
func (c *Consumer) Source() swss.ConsumerTable {
	return c.source
}

// Drain pops available records from the source and queues them.
func (c *Consumer) Drain(ctx context.Context) (int, error) {
	if c.source == nil {
		return 0, nil
	}
	records, err := c.source.Pops(ctx)
	if err != nil {
		return 0, err
	}
	c.AddToSync(records...)
	return len(records), nil
}

// AddToSync queues records.
func (c *Consumer) AddToSync(records ...swss.KeyOpFieldsValues) {
	now := time.Now()
	for _, r := range records {
		if el, ok := c.index[r.Key]; ok {
			task := el.Value.(*Task)
			task.KeyOpFieldsValues = r
			task.Attempts = 0
			task.LastError = ""
			continue
		}
		c.index[r.Key] = c.order.PushBack(&Task{
			KeyOpFieldsValues: r,
			Queued:            now,
		})
	}
	reportPending(c.table, c.order.Len())
}

// Tasks returns queued records in order.
func (c *Consumer) Tasks() []*Task {
	tasks := make([]*Task, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		tasks = append(tasks, el.Value.(*Task))
	}
	return tasks
}

// Get returns the queued record with the key.
func (c *Consumer) Get(key string) (*Task, bool) {
	el, ok := c.index[key]
	if !ok {
		return nil, false
	}
	return el.Value.(*Task), true
}

// Erase removes the record with the key from the queue.
func (c *Consumer) Erase(key string) {
	if el, ok := c.index[key]; ok {
		c.order.Remove(el)
		delete(c.index, key)
		reportPending(c.table, c.order.Len())
	}
}

// Len returns number of queued records.
func (c *Consumer) Len() int {
	return c.order.Len()
}
