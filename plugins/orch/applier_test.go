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
	"context"
	"net"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"go.ligato.io/orchagent/pkg/idxsai"
	"go.ligato.io/orchagent/pkg/swss"
	"go.ligato.io/orchagent/plugins/bulker"
	"go.ligato.io/orchagent/plugins/sai"
	"go.ligato.io/orchagent/plugins/sai/saimock"
)

var ctx = context.Background()

// fixture applies groups of routes and routes within them, groups are
// referenced by the routes.
type fixture struct {
	base     Base
	dev      *saimock.Device
	groups   *idxsai.Table[*idxsai.OnlyHandle]
	routes   map[string]sai.OutboundRoutingEntry
	failures []*Failure

	groupBulker *bulker.ObjectBulker
	routeBulker *bulker.EntityBulker[sai.OutboundRoutingEntry]

	groupApplier *Applier[*groupCtx]
	routeApplier *Applier[*routeCtx]
	groupTasks   *Consumer
	routeTasks   *Consumer
}

type groupCtx struct {
	task   *Task
	name   string
	create *bulker.ObjectResult
	remove *bulker.Result
}

type routeCtx struct {
	task   *Task
	group  string
	prefix string
	attrs  []sai.Attribute
	entry  sai.OutboundRoutingEntry
	result *bulker.Result
}

var routeActions = map[string]uint32{
	"drop":   sai.RoutingActionDrop,
	"direct": sai.RoutingActionDirect,
}

func newFixture(t *testing.T, opts ...bulker.Option) *fixture {
	RegisterTestingT(t)
	f := &fixture{
		base:       NewBase("test", nil),
		dev:        saimock.NewDevice(nil),
		routes:     make(map[string]sai.OutboundRoutingEntry),
		groupTasks: NewConsumer("GROUP", nil),
		routeTasks: NewConsumer("ROUTE", nil),
	}
	f.base.Configure(RetryPolicy{}, func(fl *Failure) {
		f.failures = append(f.failures, fl)
	})
	f.groups = idxsai.NewTable[*idxsai.OnlyHandle](f.base.Log, "test-groups", nil)

	var err error
	f.groupBulker, err = bulker.NewObjectBulker(f.dev, sai.ObjectTypeOutboundRoutingGroup, opts...)
	Expect(err).ToNot(HaveOccurred())
	f.routeBulker, err = bulker.NewEntityBulker[sai.OutboundRoutingEntry](f.dev, sai.ObjectTypeOutboundRoutingEntry, opts...)
	Expect(err).ToNot(HaveOccurred())

	f.groupApplier = &Applier[*groupCtx]{
		Base:  &f.base,
		Table: "GROUP",
		Validate: func(task *Task) (*groupCtx, error) {
			if task.Key == "" {
				return nil, errors.New("empty key")
			}
			return &groupCtx{task: task, name: task.Key}, nil
		},
		Stages: []Stage[*groupCtx]{{
			Name:     "group",
			Flushers: []bulker.Flusher{f.groupBulker},
			Submit:   f.submitGroup,
			Resolve:  f.resolveGroup,
		}},
	}
	f.routeApplier = &Applier[*routeCtx]{
		Base:     &f.base,
		Table:    "ROUTE",
		Validate: f.validateRoute,
		Stages: []Stage[*routeCtx]{{
			Name:     "route",
			Flushers: []bulker.Flusher{f.routeBulker},
			Submit:   f.submitRoute,
			Resolve:  f.resolveRoute,
		}},
	}
	return f
}

func (f *fixture) submitGroup(c *groupCtx) (Outcome, error) {
	item, exists := f.groups.LookupByName(c.name)
	if c.task.Op == swss.Set {
		if exists {
			return Committed, nil
		}
		res, err := f.groupBulker.Create([]sai.Attribute{
			{ID: sai.OutboundRoutingGroupAttrDisabled, Value: sai.BoolValue(false)},
		})
		if err != nil {
			return Invalid, err
		}
		c.create = res
		return Queued, nil
	}
	if !exists {
		return Committed, nil
	}
	if f.groups.InUse(c.name) {
		return Retry, errors.Errorf("group %s is in use", c.name)
	}
	c.remove = f.groupBulker.Remove(item.Handle)
	return Queued, nil
}

func (f *fixture) resolveGroup(c *groupCtx) (Outcome, error) {
	if c.create != nil {
		outcome, err := ResolveResult(sai.ObjectTypeOutboundRoutingGroup, OpCreate, &c.create.Result)
		if outcome == Committed {
			f.groups.Put(c.name, &idxsai.OnlyHandle{Handle: c.create.Handle()})
		}
		return outcome, err
	}
	outcome, err := ResolveResult(sai.ObjectTypeOutboundRoutingGroup, OpRemove, c.remove)
	if outcome == Committed {
		f.groups.Delete(c.name)
	}
	return outcome, err
}

func (f *fixture) validateRoute(task *Task) (*routeCtx, error) {
	group, prefix, _ := swss.SplitKey(task.Key)
	if _, _, err := net.ParseCIDR(prefix); err != nil {
		return nil, err
	}
	c := &routeCtx{task: task, group: group, prefix: prefix}
	if task.Op == swss.Del {
		return c, nil
	}
	name, ok := task.Fields.Get("action")
	if !ok {
		return nil, errors.New("missing action")
	}
	action, ok := routeActions[name]
	if !ok {
		return nil, errors.Errorf("unknown action %q", name)
	}
	c.attrs = []sai.Attribute{{ID: sai.OutboundRoutingEntryAttrAction, Value: sai.U32Value(action)}}
	return c, nil
}

func (f *fixture) submitRoute(c *routeCtx) (Outcome, error) {
	entry, exists := f.routes[c.task.Key]
	if c.task.Op == swss.Del {
		if !exists {
			return Committed, nil
		}
		c.entry = entry
		c.result = f.routeBulker.Remove(entry)
		return Queued, nil
	}
	if exists {
		return Committed, nil
	}
	group, ok := f.groups.LookupByName(c.group)
	if !ok {
		return Retry, MissingDependency("group", c.group)
	}
	c.entry = sai.OutboundRoutingEntry{GroupID: group.Handle, Destination: c.prefix}
	res, err := f.routeBulker.Create(c.entry, c.attrs)
	if err != nil {
		return Invalid, err
	}
	c.result = res
	return Queued, nil
}

func (f *fixture) resolveRoute(c *routeCtx) (Outcome, error) {
	if c.task.Op == swss.Del {
		outcome, err := ResolveResult(sai.ObjectTypeOutboundRoutingEntry, OpRemove, c.result)
		if outcome == Committed {
			delete(f.routes, c.task.Key)
			f.groups.Unref(c.group)
		}
		return outcome, err
	}
	outcome, err := ResolveResult(sai.ObjectTypeOutboundRoutingEntry, OpCreate, c.result)
	if outcome == Committed {
		f.routes[c.task.Key] = c.entry
		f.groups.Ref(c.group)
	}
	return outcome, err
}

func (f *fixture) applyAll() (*Report, *Report) {
	return f.groupApplier.Apply(ctx, f.groupTasks), f.routeApplier.Apply(ctx, f.routeTasks)
}

func (f *fixture) refCount(group string) uint32 {
	item, ok := f.groups.LookupByName(group)
	Expect(ok).To(BeTrue())
	return item.RefCount
}

func (f *fixture) entryKey(group, prefix string) sai.OutboundRoutingEntry {
	item, ok := f.groups.LookupByName(group)
	Expect(ok).To(BeTrue())
	return sai.OutboundRoutingEntry{GroupID: item.Handle, Destination: prefix}
}

func TestApplyCommits(t *testing.T) {
	f := newFixture(t)
	f.groupTasks.AddToSync(set("g1"))
	f.routeTasks.AddToSync(set("g1:10.0.0.0/24", "action", "drop"), set("g1:10.1.0.0/24", "action", "direct"))

	groups, routes := f.applyAll()
	Expect(*groups).To(Equal(Report{Committed: 1}))
	Expect(*routes).To(Equal(Report{Committed: 2}))
	Expect(f.groupTasks.Len()).To(BeZero())
	Expect(f.routeTasks.Len()).To(BeZero())

	Expect(f.dev.CountEntries(sai.ObjectTypeOutboundRoutingEntry)).To(Equal(2))
	Expect(f.refCount("g1")).To(BeEquivalentTo(2))
	calls := f.dev.Calls()
	Expect(calls).To(HaveLen(2))
	Expect(calls[1].Count()).To(Equal(2))
}

func TestApplyIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.groupTasks.AddToSync(set("g1"))
	f.routeTasks.AddToSync(set("g1:10.0.0.0/24", "action", "drop"))
	f.applyAll()
	f.dev.ResetCalls()

	f.groupTasks.AddToSync(set("g1"))
	f.routeTasks.AddToSync(set("g1:10.0.0.0/24", "action", "drop"))
	groups, routes := f.applyAll()
	Expect(groups.Committed).To(Equal(1))
	Expect(routes.Committed).To(Equal(1))
	Expect(f.dev.Calls()).To(BeEmpty())
	Expect(f.refCount("g1")).To(BeEquivalentTo(1))
}

func TestApplyRetriesMissingDependency(t *testing.T) {
	f := newFixture(t)
	f.routeTasks.AddToSync(set("g1:10.0.0.0/24", "action", "drop"))

	routes := f.routeApplier.Apply(ctx, f.routeTasks)
	Expect(*routes).To(Equal(Report{Retried: 1}))
	task, ok := f.routeTasks.Get("g1:10.0.0.0/24")
	Expect(ok).To(BeTrue())
	Expect(task.Attempts).To(Equal(1))
	Expect(task.LastError).To(ContainSubstring("does not exist yet"))
	Expect(f.dev.Calls()).To(BeEmpty())

	f.groupTasks.AddToSync(set("g1"))
	_, routes = f.applyAll()
	Expect(*routes).To(Equal(Report{Committed: 1}))
	Expect(f.routeTasks.Len()).To(BeZero())
	Expect(f.failures).To(BeEmpty())
}

func TestRemoveInUseWaitsForReferences(t *testing.T) {
	f := newFixture(t)
	f.groupTasks.AddToSync(set("g1"))
	f.routeTasks.AddToSync(set("g1:10.0.0.0/24", "action", "drop"))
	f.applyAll()

	f.groupTasks.AddToSync(del("g1"))
	groups := f.groupApplier.Apply(ctx, f.groupTasks)
	Expect(*groups).To(Equal(Report{Retried: 1}))
	Expect(f.dev.ListObjects(sai.ObjectTypeOutboundRoutingGroup)).To(HaveLen(1))

	f.routeTasks.AddToSync(del("g1:10.0.0.0/24"))
	routes := f.routeApplier.Apply(ctx, f.routeTasks)
	Expect(*routes).To(Equal(Report{Committed: 1}))
	Expect(f.refCount("g1")).To(BeZero())

	groups = f.groupApplier.Apply(ctx, f.groupTasks)
	Expect(*groups).To(Equal(Report{Committed: 1}))
	Expect(f.dev.ListObjects(sai.ObjectTypeOutboundRoutingGroup)).To(BeEmpty())
	Expect(f.dev.CountEntries(sai.ObjectTypeOutboundRoutingEntry)).To(BeZero())
}

func TestAlreadyExistsIsCommitted(t *testing.T) {
	f := newFixture(t)
	f.groupTasks.AddToSync(set("g1"))
	f.groupApplier.Apply(ctx, f.groupTasks)

	f.dev.InjectStatus(saimock.OpCreate, sai.ObjectTypeOutboundRoutingEntry,
		f.entryKey("g1", "10.2.0.0/24").String(), sai.StatusItemAlreadyExists)
	f.routeTasks.AddToSync(set("g1:10.1.0.0/24", "action", "drop"), set("g1:10.2.0.0/24", "action", "drop"))

	routes := f.routeApplier.Apply(ctx, f.routeTasks)
	Expect(*routes).To(Equal(Report{Committed: 2}))
	Expect(f.routes).To(HaveKey("g1:10.1.0.0/24"))
	Expect(f.routes).To(HaveKey("g1:10.2.0.0/24"))
	Expect(f.refCount("g1")).To(BeEquivalentTo(2))
	Expect(f.failures).To(BeEmpty())
}

func TestInvalidRecordDropped(t *testing.T) {
	f := newFixture(t)
	f.routeTasks.AddToSync(set("g1:10.0.0.0/24"), set("g1:bad", "action", "drop"), set("g1:10.1.0.0/24", "action", "flood"))

	routes := f.routeApplier.Apply(ctx, f.routeTasks)
	Expect(*routes).To(Equal(Report{Invalid: 3}))
	Expect(f.routeTasks.Len()).To(BeZero())
	Expect(f.dev.Calls()).To(BeEmpty())
	Expect(f.failures).To(BeEmpty())
}

func TestFatalRecordReported(t *testing.T) {
	f := newFixture(t)
	f.groupTasks.AddToSync(set("g1"))
	f.groupApplier.Apply(ctx, f.groupTasks)

	f.dev.InjectStatus(saimock.OpCreate, sai.ObjectTypeOutboundRoutingEntry,
		f.entryKey("g1", "10.1.0.0/24").String(), sai.StatusInsufficientResources)
	f.routeTasks.AddToSync(set("g1:10.1.0.0/24", "action", "drop"), set("g1:10.2.0.0/24", "action", "drop"))

	routes := f.routeApplier.Apply(ctx, f.routeTasks)
	Expect(*routes).To(Equal(Report{Committed: 1, Failed: 1}))
	Expect(f.routeTasks.Len()).To(BeZero())
	Expect(f.routes).ToNot(HaveKey("g1:10.1.0.0/24"))
	Expect(f.refCount("g1")).To(BeEquivalentTo(1))

	Expect(f.failures).To(HaveLen(1))
	fl := f.failures[0]
	Expect(fl.Orch).To(Equal("test"))
	Expect(fl.Table).To(Equal("ROUTE"))
	Expect(fl.Key).To(Equal("g1:10.1.0.0/24"))
	Expect(fl.Op).To(Equal(swss.Set))
	Expect(fl.API).To(Equal("create_outbound_routing_entry"))
	Expect(fl.Status).To(Equal("SAI_STATUS_INSUFFICIENT_RESOURCES"))
}

func TestStopOnErrorRetriesNotExecuted(t *testing.T) {
	f := newFixture(t, bulker.WithErrorMode(sai.BulkStopOnError))
	f.groupTasks.AddToSync(set("g1"))
	f.groupApplier.Apply(ctx, f.groupTasks)

	f.dev.InjectStatus(saimock.OpCreate, sai.ObjectTypeOutboundRoutingEntry,
		f.entryKey("g1", "10.1.0.0/24").String(), sai.StatusInvalidParameter)
	f.routeTasks.AddToSync(
		set("g1:10.1.0.0/24", "action", "drop"),
		set("g1:10.2.0.0/24", "action", "drop"),
		set("g1:10.3.0.0/24", "action", "drop"),
	)

	routes := f.routeApplier.Apply(ctx, f.routeTasks)
	Expect(*routes).To(Equal(Report{Retried: 2, Failed: 1}))
	Expect(f.routeTasks.Len()).To(Equal(2))

	routes = f.routeApplier.Apply(ctx, f.routeTasks)
	Expect(*routes).To(Equal(Report{Committed: 2}))
	Expect(f.dev.CountEntries(sai.ObjectTypeOutboundRoutingEntry)).To(Equal(2))
}

func TestCallErrorRetriesAll(t *testing.T) {
	f := newFixture(t)
	f.groupTasks.AddToSync(set("g1"))
	f.groupApplier.Apply(ctx, f.groupTasks)

	f.dev.FailNextCall(saimock.OpCreate, sai.ObjectTypeOutboundRoutingEntry, errors.New("connection reset"))
	f.routeTasks.AddToSync(set("g1:10.1.0.0/24", "action", "drop"), set("g1:10.2.0.0/24", "action", "drop"))

	routes := f.routeApplier.Apply(ctx, f.routeTasks)
	Expect(*routes).To(Equal(Report{Retried: 2}))
	routes = f.routeApplier.Apply(ctx, f.routeTasks)
	Expect(*routes).To(Equal(Report{Committed: 2}))
}

func TestRetryLimit(t *testing.T) {
	f := newFixture(t)
	f.base.Policy = RetryPolicy{MaxAttempts: 2, WarnAttempts: 1}
	f.routeTasks.AddToSync(set("g1:10.0.0.0/24", "action", "drop"))

	Expect(*f.routeApplier.Apply(ctx, f.routeTasks)).To(Equal(Report{Retried: 1}))
	Expect(*f.routeApplier.Apply(ctx, f.routeTasks)).To(Equal(Report{Failed: 1}))
	Expect(f.routeTasks.Len()).To(BeZero())
	Expect(f.failures).To(HaveLen(1))
	Expect(f.failures[0].Error).To(ContainSubstring(ErrRetryLimit.Error()))
	Expect(f.failures[0].API).To(BeEmpty())
}

type countingFlusher struct {
	flushes int
}

func (c *countingFlusher) Flush(context.Context) error { c.flushes++; return nil }
func (c *countingFlusher) Clear()                      {}
func (c *countingFlusher) Len() int                    { return 0 }

type stagedCtx struct {
	key    string
	stages []string
}

func TestStagesRunInOrder(t *testing.T) {
	RegisterTestingT(t)
	base := NewBase("staged", nil)
	first, second := &countingFlusher{}, &countingFlusher{}

	var trace []string
	stage := func(name string, fl *countingFlusher) Stage[*stagedCtx] {
		return Stage[*stagedCtx]{
			Name:     name,
			Flushers: []bulker.Flusher{fl},
			Submit: func(c *stagedCtx) (Outcome, error) {
				trace = append(trace, "submit "+name+" "+c.key)
				if c.key == "skip" {
					return Committed, nil
				}
				return Queued, nil
			},
			Resolve: func(c *stagedCtx) (Outcome, error) {
				trace = append(trace, "resolve "+name+" "+c.key)
				if c.key == "retry" && name == "first" {
					return Retry, errors.New("not yet")
				}
				c.stages = append(c.stages, name)
				return Committed, nil
			},
		}
	}
	a := &Applier[*stagedCtx]{
		Base:  &base,
		Table: "STAGED",
		Validate: func(task *Task) (*stagedCtx, error) {
			return &stagedCtx{key: task.Key}, nil
		},
		Stages: []Stage[*stagedCtx]{stage("first", first), stage("second", second)},
	}

	c := NewConsumer("STAGED", nil)
	c.AddToSync(set("a"), set("retry"), set("skip"))
	report := a.Apply(ctx, c)

	Expect(*report).To(Equal(Report{Committed: 2, Retried: 1}))
	Expect(first.flushes).To(Equal(1))
	Expect(second.flushes).To(Equal(1))
	Expect(trace).To(Equal([]string{
		"submit first a", "submit first retry", "submit first skip",
		"resolve first a", "resolve first retry",
		"submit second a", "submit second skip",
		"resolve second a",
	}))
	Expect(keys(c)).To(Equal([]string{"retry"}))
}
