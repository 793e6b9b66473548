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

// Package idxsai implements mirror tables of objects committed to the device.
// A table maps logical names to metadata carrying the hardware handle and,
// for shared objects, counters of members and references.
package idxsai

import (
	"sort"
	"strconv"
	"time"

	"go.ligato.io/cn-infra/v2/idxmap"
	"go.ligato.io/cn-infra/v2/idxmap/mem"
	"go.ligato.io/cn-infra/v2/logging"

	"go.ligato.io/orchagent/plugins/sai"
)

// WithHandle is interface that items must implement to get indexed by handle.
type WithHandle interface {
	// GetHandle should return handle assigned to the item by the device.
	GetHandle() sai.Handle
}

// Index is the read-only view of a mirror table intended for orchestrators
// that depend on objects owned by another orchestrator.
type Index[M WithHandle] interface {
	// LookupByName retrieves a previously stored item identified by <name>.
	// If there is no item associated with the name, <exists> is false.
	LookupByName(name string) (item M, exists bool)

	// LookupByHandle retrieves a previously stored item identified
	// in the device by the given <handle>.
	LookupByHandle(h sai.Handle) (name string, item M, exists bool)

	// ListAllNames returns names of all items in the table.
	ListAllNames() (names []string)
}

// Event represents an item sent through watch channel.
type Event[M WithHandle] struct {
	idxmap.NamedMappingEvent
	Item M
}

// Table is a mirror table with items of type M. Writes are done by
// the owning orchestrator only.
type Table[M WithHandle] struct {
	idxmap.NamedMappingRW
	log logging.Logger
}

const (
	// handleKey is a secondary index used to create association between
	// item name and handle of the object in the device.
	handleKey = "handle"
)

// NewTable creates a new mirror table. User can optionally extend
// the secondary indexes through <indexFunction>.
func NewTable[M WithHandle](logger logging.Logger, title string,
	indexFunction func(interface{}) map[string][]string) *Table[M] {
	return &Table[M]{
		NamedMappingRW: mem.NewNamedMapping(logger, title,
			func(item interface{}) map[string][]string {
				idxs := internalIndexFunction(item)

				if indexFunction != nil {
					userIdxs := indexFunction(item)
					for k, v := range userIdxs {
						idxs[k] = v
					}
				}
				return idxs
			}),
		log: logger,
	}
}

// LookupByName retrieves a previously stored item identified by <name>.
func (t *Table[M]) LookupByName(name string) (item M, exists bool) {
	value, found := t.GetValue(name)
	if found {
		if typed, ok := value.(M); ok {
			return typed, true
		}
	}
	return item, false
}

// LookupByHandle retrieves a previously stored item identified
// in the device by the given <handle>.
func (t *Table[M]) LookupByHandle(h sai.Handle) (name string, item M, exists bool) {
	res := t.ListNames(handleKey, strconv.FormatUint(uint64(h), 10))
	if len(res) != 1 {
		return
	}
	item, exists = t.LookupByName(res[0])
	if exists {
		name = res[0]
	}
	return
}

// ListAllNames returns sorted names of all items in the table.
func (t *Table[M]) ListAllNames() (names []string) {
	names = t.NamedMappingRW.ListAllNames()
	sort.Strings(names)
	return names
}

// ListAllItems returns all items sorted by name.
func (t *Table[M]) ListAllItems() map[string]M {
	items := make(map[string]M)
	for _, name := range t.ListAllNames() {
		if item, ok := t.LookupByName(name); ok {
			items[name] = item
		}
	}
	return items
}

// WatchItems subscribes to receive notifications about the changes in the table.
func (t *Table[M]) WatchItems(subscriber string, channel chan<- Event[M]) {
	watcher := func(dto idxmap.NamedMappingGenericEvent) {
		typed, ok := dto.Value.(M)
		if !ok {
			return
		}
		msg := Event[M]{
			NamedMappingEvent: dto.NamedMappingEvent,
			Item:              typed,
		}
		timeout := idxmap.DefaultNotifTimeout
		select {
		case channel <- msg:
			// OK
		case <-time.After(timeout):
			t.log.Warnf("Unable to deliver watch notification after %v, channel is full", timeout)
		}
	}
	if err := t.Watch(subscriber, watcher); err != nil {
		t.log.Error(err)
	}
}

// internalIndexFunction is an index function used internally for handles.
func internalIndexFunction(item interface{}) map[string][]string {
	indexes := map[string][]string{}
	withHandle, ok := item.(WithHandle)
	if !ok || withHandle == nil {
		return indexes
	}

	indexes[handleKey] = []string{strconv.FormatUint(uint64(withHandle.GetHandle()), 10)}
	return indexes
}
