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

// CreateObject creates object in the mock device.
func (d *Device) CreateObject(_ context.Context, t sai.ObjectType, attrs []sai.Attribute) (sai.Handle, sai.Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.takeFailure(OpCreate, t); err != nil {
		return sai.NullHandle, sai.StatusFailure, err
	}
	d.record(Call{Op: OpCreate, Type: t, Attrs: [][]sai.Attribute{attrs}})
	h, st := d.createObject(t, attrs)
	return h, st, nil
}

// RemoveObject removes object from the mock device.
func (d *Device) RemoveObject(_ context.Context, t sai.ObjectType, h sai.Handle) (sai.Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.takeFailure(OpRemove, t); err != nil {
		return sai.StatusFailure, err
	}
	d.record(Call{Op: OpRemove, Type: t, Keys: []string{h.String()}})
	return d.removeObject(t, h), nil
}

// SetObjectAttribute sets object attribute in the mock device.
func (d *Device) SetObjectAttribute(_ context.Context, t sai.ObjectType, h sai.Handle, attr sai.Attribute) (sai.Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.takeFailure(OpSet, t); err != nil {
		return sai.StatusFailure, err
	}
	d.record(Call{Op: OpSet, Type: t, Keys: []string{h.String()}, Attrs: [][]sai.Attribute{{attr}}})
	return d.setObjectAttribute(t, h, attr), nil
}

// BulkCreateObjects creates objects in the mock device.
func (d *Device) BulkCreateObjects(_ context.Context, t sai.ObjectType, attrs [][]sai.Attribute, mode sai.BulkOpErrorMode) ([]sai.Handle, []sai.Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.takeFailure(OpCreate, t); err != nil {
		return nil, nil, err
	}
	d.record(Call{Op: OpCreate, Type: t, Bulk: true, Mode: mode, Attrs: attrs})

	handles := make([]sai.Handle, len(attrs))
	statuses := make([]sai.Status, len(attrs))
	stopped := false
	for i, a := range attrs {
		if stopped {
			statuses[i] = sai.StatusNotExecuted
			continue
		}
		handles[i], statuses[i] = d.createObject(t, a)
		stopped = statuses[i] != sai.StatusSuccess && mode == sai.BulkStopOnError
	}
	return handles, statuses, nil
}

// BulkRemoveObjects removes objects from the mock device.
func (d *Device) BulkRemoveObjects(_ context.Context, t sai.ObjectType, hs []sai.Handle, mode sai.BulkOpErrorMode) ([]sai.Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.takeFailure(OpRemove, t); err != nil {
		return nil, err
	}
	keys := make([]string, len(hs))
	for i, h := range hs {
		keys[i] = h.String()
	}
	d.record(Call{Op: OpRemove, Type: t, Bulk: true, Mode: mode, Keys: keys})

	statuses := make([]sai.Status, len(hs))
	stopped := false
	for i, h := range hs {
		if stopped {
			statuses[i] = sai.StatusNotExecuted
			continue
		}
		statuses[i] = d.removeObject(t, h)
		stopped = statuses[i] != sai.StatusSuccess && mode == sai.BulkStopOnError
	}
	return statuses, nil
}

// BulkSetObjectAttribute sets attributes of objects in the mock device.
func (d *Device) BulkSetObjectAttribute(_ context.Context, t sai.ObjectType, hs []sai.Handle, attrs []sai.Attribute, mode sai.BulkOpErrorMode) ([]sai.Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.takeFailure(OpSet, t); err != nil {
		return nil, err
	}
	keys := make([]string, len(hs))
	set := make([][]sai.Attribute, len(hs))
	for i, h := range hs {
		keys[i] = h.String()
		set[i] = []sai.Attribute{attrs[i]}
	}
	d.record(Call{Op: OpSet, Type: t, Bulk: true, Mode: mode, Keys: keys, Attrs: set})

	statuses := make([]sai.Status, len(hs))
	stopped := false
	for i, h := range hs {
		if stopped {
			statuses[i] = sai.StatusNotExecuted
			continue
		}
		statuses[i] = d.setObjectAttribute(t, h, attrs[i])
		stopped = statuses[i] != sai.StatusSuccess && mode == sai.BulkStopOnError
	}
	return statuses, nil
}

func (d *Device) createObject(t sai.ObjectType, attrs []sai.Attribute) (sai.Handle, sai.Status) {
	if st, ok := d.takeInjected(OpCreate, t, ""); ok {
		return sai.NullHandle, st
	}
	if !d.validRefs(attrs) {
		return sai.NullHandle, sai.StatusInvalidParameter
	}
	h := d.nextOID
	d.nextOID++
	obj := &Object{Type: t, Handle: h, Attrs: attrMap(attrs)}
	d.objects[h] = obj
	d.addRefs(obj.Attrs)
	d.log.Debugf("created %v object %v", t, h)
	return h, sai.StatusSuccess
}

func (d *Device) removeObject(t sai.ObjectType, h sai.Handle) sai.Status {
	if st, ok := d.takeInjected(OpRemove, t, h.String()); ok {
		return st
	}
	obj, ok := d.objects[h]
	if !ok || obj.Type != t {
		return sai.StatusItemNotFound
	}
	if d.refs[h] > 0 {
		return sai.StatusObjectInUse
	}
	d.releaseRefs(obj.Attrs)
	delete(d.objects, h)
	d.log.Debugf("removed %v object %v", t, h)
	return sai.StatusSuccess
}

func (d *Device) setObjectAttribute(t sai.ObjectType, h sai.Handle, attr sai.Attribute) sai.Status {
	if st, ok := d.takeInjected(OpSet, t, h.String()); ok {
		return st
	}
	obj, ok := d.objects[h]
	if !ok || obj.Type != t {
		return sai.StatusItemNotFound
	}
	if !d.validRefs([]sai.Attribute{attr}) {
		return sai.StatusInvalidParameter
	}
	if old, ok := obj.Attrs[attr.ID]; ok {
		d.releaseRefs(map[sai.AttrID]sai.AttrValue{attr.ID: old})
	}
	obj.Attrs[attr.ID] = attr.Value
	d.addRefs(map[sai.AttrID]sai.AttrValue{attr.ID: attr.Value})
	d.log.Debugf("set %v object %v attribute %d=%v", t, h, attr.ID, attr.Value)
	return sai.StatusSuccess
}
