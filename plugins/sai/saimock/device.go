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

// Package saimock implements an in-memory device behind the SAI client API.
// It keeps track of references between objects, so removing an object
// that is still referenced fails with object-in-use, and allows to inject
// item statuses and call errors to simulate hardware failures.
package saimock

import (
	"sync"

	"go.ligato.io/cn-infra/v2/logging"

	"go.ligato.io/orchagent/plugins/sai"
)

// Op is the kind of device operation.
type Op string

const (
	OpCreate Op = "create"
	OpRemove Op = "remove"
	OpSet    Op = "set"
)

// Object is an object "programmed" in the mock device.
type Object struct {
	Type   sai.ObjectType
	Handle sai.Handle
	Attrs  map[sai.AttrID]sai.AttrValue
}

// Entry is an entry "programmed" in the mock device.
type Entry struct {
	Type  sai.ObjectType
	Key   sai.EntityKey
	Attrs map[sai.AttrID]sai.AttrValue
}

// Call is a record of a single device API call.
type Call struct {
	Op   Op
	Type sai.ObjectType
	Bulk bool
	Mode sai.BulkOpErrorMode
	// Keys identify items (entry keys or handles), empty for object creates.
	Keys  []string
	Attrs [][]sai.Attribute
}

// Count returns number of items in the call.
func (c Call) Count() int {
	if len(c.Keys) > 0 {
		return len(c.Keys)
	}
	return len(c.Attrs)
}

type entryID struct {
	typ sai.ObjectType
	key string
}

type injection struct {
	op     Op
	typ    sai.ObjectType
	key    string
	status sai.Status
}

type callFailure struct {
	op  Op
	typ sai.ObjectType
	err error
}

// Device is an in-memory device, safe for concurrent use.
type Device struct {
	log logging.Logger

	mu       sync.Mutex
	nextOID  sai.Handle
	objects  map[sai.Handle]*Object
	entries  map[entryID]*Entry
	refs     map[sai.Handle]int
	inject   []*injection
	failures []*callFailure
	calls    []Call
}

// NewDevice returns an empty device.
func NewDevice(log logging.Logger) *Device {
	if log == nil {
		log = logging.DefaultLogger
	}
	return &Device{
		log:     log,
		nextOID: 0x1000,
		objects: make(map[sai.Handle]*Object),
		entries: make(map[entryID]*Entry),
		refs:    make(map[sai.Handle]int),
	}
}

// InjectStatus makes the next matching item operation return the status
// without touching the device state. Empty key matches any item.
func (d *Device) InjectStatus(op Op, t sai.ObjectType, key string, status sai.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inject = append(d.inject, &injection{op: op, typ: t, key: key, status: status})
}

// FailNextCall makes the next call of the operation on the type return err.
func (d *Device) FailNextCall(op Op, t sai.ObjectType, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures = append(d.failures, &callFailure{op: op, typ: t, err: err})
}

// Calls returns journal of calls made since the last reset.
func (d *Device) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// ResetCalls clears the call journal.
func (d *Device) ResetCalls() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = nil
}

// GetObject returns object with the handle.
func (d *Device) GetObject(h sai.Handle) (*Object, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.objects[h]
	return obj, ok
}

// GetEntry returns entry of the type with the key.
func (d *Device) GetEntry(t sai.ObjectType, key sai.EntityKey) (*Entry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[entryID{typ: t, key: key.String()}]
	return e, ok
}

// ListObjects returns objects of the given type.
func (d *Device) ListObjects(t sai.ObjectType) []*Object {
	d.mu.Lock()
	defer d.mu.Unlock()
	var objs []*Object
	for _, o := range d.objects {
		if o.Type == t {
			objs = append(objs, o)
		}
	}
	return objs
}

// CountEntries returns number of entries of the given type.
func (d *Device) CountEntries(t sai.ObjectType) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for id := range d.entries {
		if id.typ == t {
			n++
		}
	}
	return n
}

// RefCount returns number of objects and entries referencing the handle.
func (d *Device) RefCount(h sai.Handle) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.refs[h]
}

func (d *Device) takeInjected(op Op, t sai.ObjectType, key string) (sai.Status, bool) {
	for i, inj := range d.inject {
		if inj.op == op && inj.typ == t && (inj.key == "" || inj.key == key) {
			d.inject = append(d.inject[:i], d.inject[i+1:]...)
			return inj.status, true
		}
	}
	return sai.StatusSuccess, false
}

func (d *Device) takeFailure(op Op, t sai.ObjectType) error {
	for i, f := range d.failures {
		if f.op == op && f.typ == t {
			d.failures = append(d.failures[:i], d.failures[i+1:]...)
			return f.err
		}
	}
	return nil
}

func (d *Device) record(c Call) {
	d.calls = append(d.calls, c)
}

func (d *Device) validRefs(attrs []sai.Attribute, extra ...sai.Handle) bool {
	for _, h := range extra {
		if _, ok := d.objects[h]; !ok {
			return false
		}
	}
	for _, a := range attrs {
		for _, h := range a.Value.References() {
			if _, ok := d.objects[h]; !ok {
				return false
			}
		}
	}
	return true
}

func (d *Device) addRefs(vals map[sai.AttrID]sai.AttrValue, extra ...sai.Handle) {
	for _, h := range extra {
		d.refs[h]++
	}
	for _, v := range vals {
		for _, h := range v.References() {
			d.refs[h]++
		}
	}
}

func (d *Device) releaseRefs(vals map[sai.AttrID]sai.AttrValue, extra ...sai.Handle) {
	release := func(h sai.Handle) {
		if d.refs[h] <= 1 {
			delete(d.refs, h)
		} else {
			d.refs[h]--
		}
	}
	for _, h := range extra {
		release(h)
	}
	for _, v := range vals {
		for _, h := range v.References() {
			release(h)
		}
	}
}

func keyRefs(key sai.EntityKey) []sai.Handle {
	if kr, ok := key.(sai.KeyReferences); ok {
		return kr.References()
	}
	return nil
}

func attrMap(attrs []sai.Attribute) map[sai.AttrID]sai.AttrValue {
	m := make(map[sai.AttrID]sai.AttrValue, len(attrs))
	for _, a := range attrs {
		m[a.ID] = a.Value
	}
	return m
}
