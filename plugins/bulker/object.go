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

// objectKey identifies an object in the store. Objects pending creation
// have no handle yet and are identified by a sequence number.
type objectKey struct {
	handle  sai.Handle
	pending uint64
}

// ObjectBulker batches operations on objects of one type addressed
// by handles assigned by the device. It is not safe for concurrent use.
type ObjectBulker struct {
	client sai.ObjectAPI
	desc   *sai.ObjectTypeDesc
	opts   options
	store  *store[objectKey]

	lastPending uint64
}

// NewObjectBulker returns bulker for objects of the given type.
func NewObjectBulker(client sai.ObjectAPI, t sai.ObjectType, opts ...Option) (*ObjectBulker, error) {
	desc, err := sai.GetObjectType(t)
	if err != nil {
		return nil, err
	}
	if desc.Entity {
		return nil, errors.Errorf("object type %s is an entry type", desc.Name)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &ObjectBulker{
		client: client,
		desc:   desc,
		opts:   o,
		store:  newStore[objectKey](o.policy),
	}, nil
}

// ObjectType returns the type of objects handled by the bulker.
func (b *ObjectBulker) ObjectType() sai.ObjectType {
	return b.desc.Type
}

// Create queues creation of an object. The handle is available from
// the returned result once Flush returns.
func (b *ObjectBulker) Create(attrs []sai.Attribute) (*ObjectResult, error) {
	if len(attrs) == 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "create %s without attributes", b.desc.Name)
	}
	b.lastPending++
	res := b.store.create(objectKey{pending: b.lastPending}, attrs)
	res.pending = b.lastPending
	return res, nil
}

// RemoveCreated removes object created by Create. If the creation
// was not flushed yet, it is cancelled and nothing is sent to the device.
func (b *ObjectBulker) RemoveCreated(res *ObjectResult) *Result {
	if res.Done() {
		return b.Remove(res.Handle())
	}
	return b.store.remove(objectKey{pending: res.pending})
}

// Remove queues removal of the object.
func (b *ObjectBulker) Remove(h sai.Handle) *Result {
	if h == sai.NullHandle {
		res := newResult()
		res.resolve(sai.StatusInvalidParameter)
		return res
	}
	return b.store.remove(objectKey{handle: h})
}

// SetAttribute queues attribute assignment of the object.
func (b *ObjectBulker) SetAttribute(h sai.Handle, attr sai.Attribute) *Result {
	if h == sai.NullHandle {
		res := newResult()
		res.resolve(sai.StatusInvalidParameter)
		return res
	}
	return b.store.set(objectKey{handle: h}, attr)
}

// PendingRemoval returns true if the object is going to be removed by the next flush.
func (b *ObjectBulker) PendingRemoval(h sai.Handle) bool {
	return b.store.pendingRemoval(objectKey{handle: h})
}

// Len returns number of pending operations.
func (b *ObjectBulker) Len() int {
	return b.store.len()
}

// Clear drops pending operations without calling the device.
func (b *ObjectBulker) Clear() {
	if n := b.store.len(); n > 0 {
		b.opts.log.Debugf("dropping %d pending %s operations", n, b.desc.Name)
	}
	reportCoalesced(b.desc.Name, b.store.reset())
}

// Flush submits pending removals, creations and attribute assignments,
// in this order, each as a single call. Handles of created objects are
// stored into their results.
func (b *ObjectBulker) Flush(ctx context.Context) error {
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
		handles := make([]sai.Handle, len(removals))
		results := make([]*Result, len(removals))
		for i, r := range removals {
			handles[i] = r.key.handle
			results[i] = r.result
		}
		c := &call{
			desc: b.desc, op: "remove", mode: mode, bulk: b.desc.BulkRemove, results: results,
			bulkFn: func() ([]sai.Status, error) {
				return b.client.BulkRemoveObjects(ctx, t, handles, mode)
			},
			itemFn: func(i int) (sai.Status, error) {
				return b.client.RemoveObject(ctx, t, handles[i])
			},
		}
		if err := c.run(); err != nil {
			return err
		}
	}

	if len(creations) > 0 {
		attrs := make([][]sai.Attribute, len(creations))
		slots := make([]*ObjectResult, len(creations))
		results := make([]*Result, len(creations))
		for i, c := range creations {
			attrs[i] = c.attrs
			slots[i] = c.result
			results[i] = &c.result.Result
		}
		handles := make([]sai.Handle, len(creations))
		c := &call{
			desc: b.desc, op: "create", mode: mode, bulk: b.desc.BulkCreate, results: results,
			bulkFn: func() ([]sai.Status, error) {
				hs, statuses, err := b.client.BulkCreateObjects(ctx, t, attrs, mode)
				copy(handles, hs)
				return statuses, err
			},
			itemFn: func(i int) (sai.Status, error) {
				h, st, err := b.client.CreateObject(ctx, t, attrs[i])
				handles[i] = h
				return st, err
			},
			done: func(i int) {
				if slots[i].Status() == sai.StatusSuccess {
					slots[i].handle = handles[i]
				}
			},
		}
		if err := c.run(); err != nil {
			return err
		}
	}

	if len(sets) > 0 {
		handles := make([]sai.Handle, len(sets))
		attrs := make([]sai.Attribute, len(sets))
		results := make([]*Result, len(sets))
		for i, s := range sets {
			handles[i] = s.key.handle
			attrs[i] = s.attr
			results[i] = s.result
		}
		c := &call{
			desc: b.desc, op: "set", mode: mode, bulk: b.desc.BulkSet, results: results,
			bulkFn: func() ([]sai.Status, error) {
				return b.client.BulkSetObjectAttribute(ctx, t, handles, attrs, mode)
			},
			itemFn: func(i int) (sai.Status, error) {
				return b.client.SetObjectAttribute(ctx, t, handles[i], attrs[i])
			},
		}
		if err := c.run(); err != nil {
			return err
		}
	}
	return nil
}
