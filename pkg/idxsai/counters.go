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

package idxsai

// Counters tracks usage of a shared object. MemberCount counts objects that
// belong to the object (e.g. routes of a route group), RefCount counts
// bindings pointing at it. The object may be removed only when both are zero.
type Counters struct {
	RefCount    uint32 `json:"ref_count"`
	MemberCount uint32 `json:"member_count"`
}

// GetCounters returns the counters, it allows metadata embedding Counters
// to implement WithCounters.
func (c *Counters) GetCounters() *Counters {
	return c
}

// InUse returns true while there are members or references.
func (c *Counters) InUse() bool {
	return c.RefCount > 0 || c.MemberCount > 0
}

// WithCounters is implemented by items of shared objects.
type WithCounters interface {
	GetCounters() *Counters
}

func (t *Table[M]) counters(name string) (*Counters, bool) {
	item, ok := t.LookupByName(name)
	if !ok {
		return nil, false
	}
	wc, ok := any(item).(WithCounters)
	if !ok {
		return nil, false
	}
	return wc.GetCounters(), true
}

// Ref increments reference count of the item. It returns false
// if the item does not exist.
func (t *Table[M]) Ref(name string) bool {
	c, ok := t.counters(name)
	if ok {
		c.RefCount++
	}
	return ok
}

// Unref decrements reference count of the item.
func (t *Table[M]) Unref(name string) bool {
	c, ok := t.counters(name)
	if !ok {
		return false
	}
	if c.RefCount == 0 {
		t.log.Warnf("reference count of %s would drop below zero", name)
		return false
	}
	c.RefCount--
	return true
}

// AddMember increments member count of the item. It returns false
// if the item does not exist.
func (t *Table[M]) AddMember(name string) bool {
	c, ok := t.counters(name)
	if ok {
		c.MemberCount++
	}
	return ok
}

// DelMember decrements member count of the item.
func (t *Table[M]) DelMember(name string) bool {
	c, ok := t.counters(name)
	if !ok {
		return false
	}
	if c.MemberCount == 0 {
		t.log.Warnf("member count of %s would drop below zero", name)
		return false
	}
	c.MemberCount--
	return true
}

// InUse returns true if the item exists and has members or references.
func (t *Table[M]) InUse(name string) bool {
	c, ok := t.counters(name)
	return ok && c.InUse()
}
