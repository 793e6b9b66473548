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

import (
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"go.ligato.io/orchagent/plugins/sai"
)

// OnlyHandle can be used to add items into a table with handle
// and counters as the only information associated with each item.
type OnlyHandle struct {
	Counters
	Handle sai.Handle
}

// GetHandle returns handle of the item.
func (o *OnlyHandle) GetHandle() sai.Handle {
	return o.Handle
}

// Factory defines type of a function used to create new instances of a table.
type Factory func() (*Table[*OnlyHandle], error)

// GivenKW defines the initial state of a testing scenario.
type GivenKW struct {
	factory Factory
	table   *Table[*OnlyHandle]
	events  chan Event[*OnlyHandle]
}

// When defines the actions/changes done to the tested table.
type When struct {
	given *GivenKW
}

// Then defines the actions/changes expected from the tested table.
type Then struct {
	when *When
}

// WhenName defines the actions/changes done to a table for a given name.
type WhenName struct {
	when *When
	name string
}

// ThenName defines actions/changes expected from the table for a given name.
type ThenName struct {
	then *Then
	name string
}

// Given prepares the initial state of a testing scenario.
func Given(t *testing.T) *GivenKW {
	RegisterTestingT(t)

	return &GivenKW{}
}

// When starts when-clause.
func (given *GivenKW) When() *When {
	return &When{given: given}
}

// Table sets up a given table for the tested scenario.
func (given *GivenKW) Table(factory Factory, reg map[string]sai.Handle) *GivenKW {
	Expect(given.factory).Should(BeNil())
	Expect(given.table).Should(BeNil())
	var err error
	given.factory = factory
	given.table, err = factory()
	Expect(err).Should(BeNil())

	for name, h := range reg {
		given.table.Put(name, &OnlyHandle{Handle: h})
	}

	// items given before the watch is started produce no notifications
	given.events = make(chan Event[*OnlyHandle], 1000)
	given.table.WatchItems("watcher", given.events)
	return given
}

// Then starts a then-clause.
func (when *When) Then() *Then {
	return &Then{when: when}
}

// Name associates when-clause with a given name in the table.
func (when *When) Name(name string) *WhenName {
	return &WhenName{when: when, name: name}
}

// IsDeleted removes a given name from the table.
func (whenName *WhenName) IsDeleted() *WhenName {
	whenName.when.given.table.Delete(whenName.name)
	return whenName
}

// IsAdded adds a given name-handle pair into the table.
func (whenName *WhenName) IsAdded(h sai.Handle) *WhenName {
	whenName.when.given.table.Put(whenName.name, &OnlyHandle{Handle: h})
	return whenName
}

// IsReferenced increments reference count of the name.
func (whenName *WhenName) IsReferenced() *WhenName {
	Expect(whenName.when.given.table.Ref(whenName.name)).Should(BeTrue())
	return whenName
}

// IsUnreferenced decrements reference count of the name.
func (whenName *WhenName) IsUnreferenced() *WhenName {
	Expect(whenName.when.given.table.Unref(whenName.name)).Should(BeTrue())
	return whenName
}

// GetsMember increments member count of the name.
func (whenName *WhenName) GetsMember() *WhenName {
	Expect(whenName.when.given.table.AddMember(whenName.name)).Should(BeTrue())
	return whenName
}

// LosesMember decrements member count of the name.
func (whenName *WhenName) LosesMember() *WhenName {
	Expect(whenName.when.given.table.DelMember(whenName.name)).Should(BeTrue())
	return whenName
}

// Then starts a then-clause.
func (whenName *WhenName) Then() *Then {
	return &Then{when: whenName.when}
}

// And connects two when-clauses.
func (whenName *WhenName) And() *When {
	return whenName.when
}

// Name associates then-clause with a given name in the table.
func (then *Then) Name(name string) *ThenName {
	return &ThenName{then: then, name: name}
}

// MapsToNothing verifies that a given name really maps to nothing.
func (thenName *ThenName) MapsToNothing() *ThenName {
	_, exist := thenName.then.when.given.table.LookupByName(thenName.name)
	Expect(exist).Should(BeFalse())
	return thenName
}

// MapsTo asserts the response of LookupByName and LookupByHandle.
func (thenName *ThenName) MapsTo(expected sai.Handle) *ThenName {
	table := thenName.then.when.given.table
	item, exist := table.LookupByName(thenName.name)
	Expect(exist).Should(BeTrue())
	Expect(item.GetHandle()).Should(Equal(expected))

	retName, _, exist := table.LookupByHandle(item.GetHandle())
	Expect(exist).Should(BeTrue())
	Expect(retName).Should(Equal(thenName.name))
	return thenName
}

// IsInUse verifies that the name has members or references.
func (thenName *ThenName) IsInUse() *ThenName {
	Expect(thenName.then.when.given.table.InUse(thenName.name)).Should(BeTrue())
	return thenName
}

// IsNotInUse verifies that the name has neither members nor references.
func (thenName *ThenName) IsNotInUse() *ThenName {
	Expect(thenName.then.when.given.table.InUse(thenName.name)).Should(BeFalse())
	return thenName
}

// Name associates then-clause with a given name in the table.
func (thenName *ThenName) Name(name string) *ThenName {
	return &ThenName{then: thenName.then, name: name}
}

// And connects two then-clauses.
func (thenName *ThenName) And() *Then {
	return thenName.then
}

// When starts a when-clause.
func (thenName *ThenName) When() *When {
	return thenName.then.when
}

// ThenNotification defines notification parameters for a then-clause.
type ThenNotification struct {
	then *Then
	name string
	del  DelWriteEnum
}

// DelWriteEnum defines type for the flag used to tell if a mapping was removed or not.
type DelWriteEnum bool

// Del defines the value of a notification flag used when a mapping was removed.
const Del DelWriteEnum = true

// Write defines the value of a notification flag used when a mapping was created.
const Write DelWriteEnum = false

// Notification starts a section of then-clause referring to a given notification.
func (then *Then) Notification(name string, del DelWriteEnum) *ThenNotification {
	return &ThenNotification{then: then, name: name, del: del}
}

// IsNotExpected verifies that a given notification was indeed NOT received.
func (thenNotif *ThenNotification) IsNotExpected() *ThenNotification {
	_, exist := thenNotif.receiveChan()
	Expect(exist).Should(BeFalse())
	return thenNotif
}

// IsExpectedFor verifies that a given notification was really received.
func (thenNotif *ThenNotification) IsExpectedFor(h sai.Handle) *ThenNotification {
	notif, exist := thenNotif.receiveChan()
	Expect(exist).Should(BeTrue())
	Expect(notif.Name).Should(Equal(thenNotif.name))
	Expect(notif.Item.GetHandle()).Should(Equal(h))
	Expect(notif.Del).Should(BeEquivalentTo(bool(thenNotif.del)))
	return thenNotif
}

// And connects two then-clauses.
func (thenNotif *ThenNotification) And() *Then {
	return thenNotif.then
}

// When starts a when-clause.
func (thenNotif *ThenNotification) When() *When {
	return thenNotif.then.when
}

func (thenNotif *ThenNotification) receiveChan() (*Event[*OnlyHandle], bool) {
	ch := thenNotif.then.when.given.events
	select {
	case x := <-ch:
		return &x, true
	case <-time.After(100 * time.Millisecond):
		return nil, false
	}
}
