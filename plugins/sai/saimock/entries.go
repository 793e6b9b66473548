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

package saimock

import (
	"context"

	"go.ligato.io/orchagent/plugins/sai"
)

// CreateEntry creates entry in the mock device.
func (d *Device) CreateEntry(_ context.Context, t sai.ObjectType, key sai.EntityKey, attrs []sai.Attribute) (sai.Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.takeFailure(OpCreate, t); err != nil {
		return sai.StatusFailure, err
	}
	d.record(Call{Op: OpCreate, Type: t, Keys: []string{key.String()}, Attrs: [][]sai.Attribute{attrs}})
	return d.createEntry(t, key, attrs), nil
}

// RemoveEntry removes entry from the mock device.
func (d *Device) RemoveEntry(_ context.Context, t sai.ObjectType, key sai.EntityKey) (sai.Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.takeFailure(OpRemove, t); err != nil {
		return sai.StatusFailure, err
	}
	d.record(Call{Op: OpRemove, Type: t, Keys: []string{key.String()}})
	return d.removeEntry(t, key), nil
}

// SetEntryAttribute sets entry attribute in the mock device.
func (d *Device) SetEntryAttribute(_ context.Context, t sai.ObjectType, key sai.EntityKey, attr sai.Attribute) (sai.Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.takeFailure(OpSet, t); err != nil {
		return sai.StatusFailure, err
	}
	d.record(Call{Op: OpSet, Type: t, Keys: []string{key.String()}, Attrs: [][]sai.Attribute{{attr}}})
	return d.setEntryAttribute(t, key, attr), nil
}

// BulkCreateEntries creates entries in the mock device.
func (d *Device) BulkCreateEntries(_ context.Context, t sai.ObjectType, keys []sai.EntityKey, attrs [][]sai.Attribute, mode sai.BulkOpErrorMode) ([]sai.Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.takeFailure(OpCreate, t); err != nil {
		return nil, err
	}
	d.record(Call{Op: OpCreate, Type: t, Bulk: true, Mode: mode, Keys: keyStrings(keys), Attrs: attrs})

	statuses := make([]sai.Status, len(keys))
	stopped := false
	for i, key := range keys {
		if stopped {
			statuses[i] = sai.StatusNotExecuted
			continue
		}
		statuses[i] = d.createEntry(t, key, attrs[i])
		stopped = statuses[i] != sai.StatusSuccess && mode == sai.BulkStopOnError
	}
	return statuses, nil
}

// BulkRemoveEntries removes entries from the mock device.
func (d *Device) BulkRemoveEntries(_ context.Context, t sai.ObjectType, keys []sai.EntityKey, mode sai.BulkOpErrorMode) ([]sai.Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.takeFailure(OpRemove, t); err != nil {
		return nil, err
	}
	d.record(Call{Op: OpRemove, Type: t, Bulk: true, Mode: mode, Keys: keyStrings(keys)})

	statuses := make([]sai.Status, len(keys))
	stopped := false
	for i, key := range keys {
		if stopped {
			statuses[i] = sai.StatusNotExecuted
			continue
		}
		statuses[i] = d.removeEntry(t, key)
		stopped = statuses[i] != sai.StatusSuccess && mode == sai.BulkStopOnError
	}
	return statuses, nil
}

// BulkSetEntryAttribute sets attributes of entries in the mock device.
func (d *Device) BulkSetEntryAttribute(_ context.Context, t sai.ObjectType, keys []sai.EntityKey, attrs []sai.Attribute, mode sai.BulkOpErrorMode) ([]sai.Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.takeFailure(OpSet, t); err != nil {
		return nil, err
	}
	set := make([][]sai.Attribute, len(attrs))
	for i, a := range attrs {
		set[i] = []sai.Attribute{a}
	}
	d.record(Call{Op: OpSet, Type: t, Bulk: true, Mode: mode, Keys: keyStrings(keys), Attrs: set})

	statuses := make([]sai.Status, len(keys))
	stopped := false
	for i, key := range keys {
		if stopped {
			statuses[i] = sai.StatusNotExecuted
			continue
		}
		statuses[i] = d.setEntryAttribute(t, key, attrs[i])
		stopped = statuses[i] != sai.StatusSuccess && mode == sai.BulkStopOnError
	}
	return statuses, nil
}

func (d *Device) createEntry(t sai.ObjectType, key sai.EntityKey, attrs []sai.Attribute) sai.Status {
	if st, ok := d.takeInjected(OpCreate, t, key.String()); ok {
		return st
	}
	id := entryID{typ: t, key: key.String()}
	if _, ok := d.entries[id]; ok {
		return sai.StatusItemAlreadyExists
	}
	if !d.validRefs(attrs, keyRefs(key)...) {
		return sai.StatusInvalidParameter
	}
	e := &Entry{Type: t, Key: key, Attrs: attrMap(attrs)}
	d.entries[id] = e
	d.addRefs(e.Attrs, keyRefs(key)...)
	d.log.Debugf("created %v entry %v", t, key)
	return sai.StatusSuccess
}

func (d *Device) removeEntry(t sai.ObjectType, key sai.EntityKey) sai.Status {
	if st, ok := d.takeInjected(OpRemove, t, key.String()); ok {
		return st
	}
	id := entryID{typ: t, key: key.String()}
	e, ok := d.entries[id]
	if !ok {
		return sai.StatusItemNotFound
	}
	d.releaseRefs(e.Attrs, keyRefs(e.Key)...)
	delete(d.entries, id)
	d.log.Debugf("removed %v entry %v", t, key)
	return sai.StatusSuccess
}

func (d *Device) setEntryAttribute(t sai.ObjectType, key sai.EntityKey, attr sai.Attribute) sai.Status {
	if st, ok := d.takeInjected(OpSet, t, key.String()); ok {
		return st
	}
	e, ok := d.entries[entryID{typ: t, key: key.String()}]
	if !ok {
		return sai.StatusItemNotFound
	}
	if !d.validRefs([]sai.Attribute{attr}) {
		return sai.StatusInvalidParameter
	}
	if old, ok := e.Attrs[attr.ID]; ok {
		d.releaseRefs(map[sai.AttrID]sai.AttrValue{attr.ID: old})
	}
	e.Attrs[attr.ID] = attr.Value
	d.addRefs(map[sai.AttrID]sai.AttrValue{attr.ID: attr.Value})
	return sai.StatusSuccess
}

func keyStrings(keys []sai.EntityKey) []string {
	strs := make([]string, len(keys))
	for i, k := range keys {
		strs[i] = k.String()
	}
	return strs
}
