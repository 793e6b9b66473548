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
	"context"

	"github.com/pkg/errors"

	"go.ligato.io/orchagent/plugins/sai"
)

// Key is a structured key of entries handled by EntityBulker.
type Key interface {
	comparable
	sai.EntityKey
}

// EntityBulker batches operations on entries of one object type keyed
// by caller-supplied keys. It is not safe for concurrent use.
type EntityBulker[K Key] struct {
	client sai.EntryAPI
	desc   *sai.ObjectTypeDesc
	opts   options
	store  *store[K]
}

// NewEntityBulker returns bulker for entries of the given type.
func NewEntityBulker[K Key](client sai.EntryAPI, t sai.ObjectType, opts ...Option) (*EntityBulker[K], error) {
	desc, err := sai.GetObjectType(t)
	if err != nil {
		return nil, err
	}
	if !desc.Entity {
		return nil, errors.Errorf("object type %s is not an entry type", desc.Name)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &EntityBulker[K]{
		client: client,
		desc:   desc,
		opts:   o,
		store:  newStore[K](o.policy),
	}, nil
}

// ObjectType returns the type of entries handled by the bulker.
func (b *EntityBulker[K]) ObjectType() sai.ObjectType {
	return b.desc.Type
}

// Create queues creation of the entry.
func (b *EntityBulker[K]) Create(key K, attrs []sai.Attribute) (*Result, error) {
	var zero K
	if key == zero || len(attrs) == 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "create %s entry %v", b.desc.Name, key)
	}
	res := b.store.create(key, attrs)
	return &res.Result, nil
}

// Remove queues removal of the entry. Removal of an entry pending creation
// cancels the creation and is resolved immediately as coalesced success.
func (b *EntityBulker[K]) Remove(key K) *Result {
	var zero K
	if key == zero {
		res := newResult()
		res.resolve(sai.StatusInvalidParameter)
		return res
	}
	return b.store.remove(key)
}

// SetAttribute queues attribute assignment, assignments of one entry
// are flushed in the order they were queued.
func (b *EntityBulker[K]) SetAttribute(key K, attr sai.Attribute) *Result {
	var zero K
	if key == zero {
		res := newResult()
		res.resolve(sai.StatusInvalidParameter)
		return res
	}
	return b.store.set(key, attr)
}

// PendingRemoval returns true if the entry is going to be removed by the next flush.
func (b *EntityBulker[K]) PendingRemoval(key K) bool {
	return b.store.pendingRemoval(key)
}

// Len returns number of pending operations.
func (b *EntityBulker[K]) Len() int {
	return b.store.len()
}

// Clear drops pending operations without calling the device.
func (b *EntityBulker[K]) Clear() {
	if n := b.store.len(); n > 0 {
		b.opts.log.Debugf("dropping %d pending %s operations", n, b.desc.Name)
	}
	reportCoalesced(b.desc.Name, b.store.reset())
}

// Flush submits pending removals, creations and attribute assignments,
// in this order, each as a single call. Results of all queued operations
// are resolved when it returns, pending state is cleared even on error.
func (b *EntityBulker[K]) Flush(ctx context.Context) error {
	defer func() {
		reportCoalesced(b.desc.Name, b.store.reset())
	}()

	removals := b.store.removals()
	creations := b.store.creations()
	sets := b.store.sets()
	if len(removals)+len(creations)+len(sets) == 0 {
		return nil
	}
	b.opts.log.Debugf("flushing %s: %d removals, %d creations, %d sets",
		b.desc.Name, len(removals), len(creations), len(sets))

	t := b.desc.Type
	mode := b.opts.mode

	if len(removals) > 0 {
		keys := make([]sai.EntityKey, len(removals))
		results := make([]*Result, len(removals))
		for i, r := range removals {
			keys[i] = r.key
			results[i] = r.result
		}
		c := &call{
			desc: b.desc, op: "remove", mode: mode, bulk: b.desc.BulkRemove, results: results,
			bulkFn: func() ([]sai.Status, error) {
				return b.client.BulkRemoveEntries(ctx, t, keys, mode)
			},
			itemFn: func(i int) (sai.Status, error) {
				return b.client.RemoveEntry(ctx, t, keys[i])
			},
		}
		if err := c.run(); err != nil {
			return err
		}
	}

	if len(creations) > 0 {
		keys := make([]sai.EntityKey, len(creations))
		attrs := make([][]sai.Attribute, len(creations))
		results := make([]*Result, len(creations))
		for i, c := range creations {
			keys[i] = c.key
			attrs[i] = c.attrs
			results[i] = &c.result.Result
		}
		c := &call{
			desc: b.desc, op: "create", mode: mode, bulk: b.desc.BulkCreate, results: results,
			bulkFn: func() ([]sai.Status, error) {
				return b.client.BulkCreateEntries(ctx, t, keys, attrs, mode)
			},
			itemFn: func(i int) (sai.Status, error) {
				return b.client.CreateEntry(ctx, t, keys[i], attrs[i])
			},
		}
		if err := c.run(); err != nil {
			return err
		}
	}

	if len(sets) > 0 {
		keys := make([]sai.EntityKey, len(sets))
		attrs := make([]sai.Attribute, len(sets))
		results := make([]*Result, len(sets))
		for i, s := range sets {
			keys[i] = s.key
			attrs[i] = s.attr
			results[i] = s.result
		}
		c := &call{
			desc: b.desc, op: "set", mode: mode, bulk: b.desc.BulkSet, results: results,
			bulkFn: func() ([]sai.Status, error) {
				return b.client.BulkSetEntryAttribute(ctx, t, keys, attrs, mode)
			},
			itemFn: func(i int) (sai.Status, error) {
				return b.client.SetEntryAttribute(ctx, t, keys[i], attrs[i])
			},
		}
		if err := c.run(); err != nil {
			return err
		}
	}
	return nil
}
