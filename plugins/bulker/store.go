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
	"sort"

	"go.ligato.io/orchagent/plugins/sai"
)

// CoalescePolicy decides what create of a key pending removal does.
type CoalescePolicy int

const (
	// CancelRemoval drops the pending removal and the create, the object
	// never left the device.
	CancelRemoval CoalescePolicy = iota
	// FlushRemoveFirst keeps the removal, the create is flushed after it.
	FlushRemoveFirst
)

func (p CoalescePolicy) String() string {
	if p == FlushRemoveFirst {
		return "flush-remove-first"
	}
	return "cancel-removal"
}

type createReq[K comparable] struct {
	seq    uint64
	key    K
	attrs  []sai.Attribute
	result *ObjectResult
}

type setReq[K comparable] struct {
	seq    uint64
	key    K
	attr   sai.Attribute
	result *Result
}

type removeReq[K comparable] struct {
	seq    uint64
	key    K
	result *Result
}

// store keeps pending requests of a bulker and applies the coalescing rules.
// The sequence number of each request preserves the submission order.
type store[K comparable] struct {
	policy    CoalescePolicy
	seq       uint64
	coalesced int
	creating map[K]*createReq[K]
	setting  map[K][]*setReq[K]
	removing map[K]*removeReq[K]
}

func newStore[K comparable](policy CoalescePolicy) *store[K] {
	return &store[K]{
		policy:   policy,
		creating: make(map[K]*createReq[K]),
		setting:  make(map[K][]*setReq[K]),
		removing: make(map[K]*removeReq[K]),
	}
}

func (s *store[K]) next() uint64 {
	s.seq++
	return s.seq
}

func (s *store[K]) create(key K, attrs []sai.Attribute) *ObjectResult {
	if rm, ok := s.removing[key]; ok && s.policy == CancelRemoval {
		delete(s.removing, key)
		res := &ObjectResult{Result: *newResult()}
		s.coalesce(rm.result, &res.Result)
		return res
	}
	if c, ok := s.creating[key]; ok {
		// repeated create of the same key replaces attributes, both callers share the slot
		c.attrs = attrs
		return c.result
	}
	c := &createReq[K]{
		seq:    s.next(),
		key:    key,
		attrs:  attrs,
		result: &ObjectResult{Result: *newResult()},
	}
	s.creating[key] = c
	return c.result
}

func (s *store[K]) remove(key K) *Result {
	if c, ok := s.creating[key]; ok {
		delete(s.creating, key)
		s.discardSets(key)
		res := newResult()
		s.coalesce(&c.result.Result, res)
		return res
	}
	s.discardSets(key)
	if rm, ok := s.removing[key]; ok {
		return rm.result
	}
	rm := &removeReq[K]{
		seq:    s.next(),
		key:    key,
		result: newResult(),
	}
	s.removing[key] = rm
	return rm.result
}

func (s *store[K]) discardSets(key K) {
	for _, set := range s.setting[key] {
		s.coalesce(set.result)
	}
	delete(s.setting, key)
}

func (s *store[K]) coalesce(results ...*Result) {
	for _, r := range results {
		r.coalesce()
	}
	s.coalesced += len(results)
}

func (s *store[K]) set(key K, attr sai.Attribute) *Result {
	req := &setReq[K]{
		seq:    s.next(),
		key:    key,
		attr:   attr,
		result: newResult(),
	}
	s.setting[key] = append(s.setting[key], req)
	return req.result
}

func (s *store[K]) pendingRemoval(key K) bool {
	_, ok := s.removing[key]
	return ok
}

func (s *store[K]) len() int {
	n := len(s.creating) + len(s.removing)
	for _, sets := range s.setting {
		n += len(sets)
	}
	return n
}

func (s *store[K]) removals() []*removeReq[K] {
	reqs := make([]*removeReq[K], 0, len(s.removing))
	for _, r := range s.removing {
		reqs = append(reqs, r)
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].seq < reqs[j].seq })
	return reqs
}

func (s *store[K]) creations() []*createReq[K] {
	reqs := make([]*createReq[K], 0, len(s.creating))
	for _, c := range s.creating {
		reqs = append(reqs, c)
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].seq < reqs[j].seq })
	return reqs
}

func (s *store[K]) sets() []*setReq[K] {
	var reqs []*setReq[K]
	for _, sets := range s.setting {
		reqs = append(reqs, sets...)
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].seq < reqs[j].seq })
	return reqs
}

// reset drops all pending requests, slots left unresolved become NotExecuted.
// It returns number of operations coalesced since the last reset.
func (s *store[K]) reset() (coalesced int) {
	for _, r := range s.removing {
		r.result.abort()
	}
	for _, c := range s.creating {
		c.result.abort()
	}
	for _, sets := range s.setting {
		for _, set := range sets {
			set.result.abort()
		}
	}
	s.creating = make(map[K]*createReq[K])
	s.setting = make(map[K][]*setReq[K])
	s.removing = make(map[K]*removeReq[K])
	coalesced, s.coalesced = s.coalesced, 0
	return coalesced
}
