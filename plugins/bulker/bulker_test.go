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
	"errors"
	"testing"

	. "github.com/onsi/gomega"

	"go.ligato.io/orchagent/plugins/sai"
	"go.ligato.io/orchagent/plugins/sai/saimock"
)

var ctx = context.Background()

type routeKey = sai.OutboundRoutingEntry

func action(a uint32) sai.Attribute {
	return sai.Attribute{ID: sai.OutboundRoutingEntryAttrAction, Value: sai.U32Value(a)}
}

func vni(v uint32) sai.Attribute {
	return sai.Attribute{ID: sai.VnetAttrVni, Value: sai.U32Value(v)}
}

func setupRoutes(t *testing.T, opts ...Option) (*saimock.Device, *EntityBulker[routeKey], sai.Handle) {
	RegisterTestingT(t)
	dev := saimock.NewDevice(nil)
	group, st, err := dev.CreateObject(ctx, sai.ObjectTypeOutboundRoutingGroup,
		[]sai.Attribute{{ID: sai.OutboundRoutingGroupAttrDisabled, Value: sai.BoolValue(false)}})
	Expect(err).ToNot(HaveOccurred())
	Expect(st).To(Equal(sai.StatusSuccess))
	dev.ResetCalls()

	b, err := NewEntityBulker[routeKey](dev, sai.ObjectTypeOutboundRoutingEntry, opts...)
	Expect(err).ToNot(HaveOccurred())
	return dev, b, group
}

func TestCoalescedToNothing(t *testing.T) {
	dev, b, group := setupRoutes(t)
	k := routeKey{GroupID: group, Destination: "10.0.0.0/24"}

	create, err := b.Create(k, []sai.Attribute{action(sai.RoutingActionDrop)})
	Expect(err).ToNot(HaveOccurred())
	set1 := b.SetAttribute(k, action(sai.RoutingActionDirect))
	set2 := b.SetAttribute(k, action(sai.RoutingActionDrop))
	remove := b.Remove(k)

	Expect(b.Len()).To(BeZero())
	Expect(b.PendingRemoval(k)).To(BeFalse())
	Expect(b.Flush(ctx)).To(Succeed())

	Expect(dev.Calls()).To(BeEmpty())
	for _, r := range []*Result{create, set1, set2, remove} {
		Expect(r.Done()).To(BeTrue())
		Expect(r.Coalesced()).To(BeTrue())
		Expect(r.Status()).To(Equal(sai.StatusSuccess))
	}
}

func TestSetOrderPreserved(t *testing.T) {
	dev, b, group := setupRoutes(t)
	k := routeKey{GroupID: group, Destination: "10.0.0.0/24"}
	_, err := dev.CreateEntry(ctx, sai.ObjectTypeOutboundRoutingEntry, k, []sai.Attribute{action(sai.RoutingActionDrop)})
	Expect(err).ToNot(HaveOccurred())
	dev.ResetCalls()

	r1 := b.SetAttribute(k, action(sai.RoutingActionDirect))
	r2 := b.SetAttribute(k, action(sai.RoutingActionRouteVnet))
	Expect(b.Flush(ctx)).To(Succeed())

	calls := dev.Calls()
	Expect(calls).To(HaveLen(1))
	Expect(calls[0].Op).To(Equal(saimock.OpSet))
	Expect(calls[0].Attrs).To(Equal([][]sai.Attribute{
		{action(sai.RoutingActionDirect)},
		{action(sai.RoutingActionRouteVnet)},
	}))
	Expect(r1.Status()).To(Equal(sai.StatusSuccess))
	Expect(r2.Status()).To(Equal(sai.StatusSuccess))

	e, ok := dev.GetEntry(sai.ObjectTypeOutboundRoutingEntry, k)
	Expect(ok).To(BeTrue())
	Expect(e.Attrs[sai.OutboundRoutingEntryAttrAction]).To(Equal(sai.U32Value(sai.RoutingActionRouteVnet)))
}

func TestStatusCorrelation(t *testing.T) {
	dev, b, group := setupRoutes(t)

	prefixes := []string{"10.0.0.0/24", "10.0.1.0/24", "10.0.2.0/24", "10.0.3.0/24", "10.0.4.0/24"}
	dev.InjectStatus(saimock.OpCreate, sai.ObjectTypeOutboundRoutingEntry,
		routeKey{GroupID: group, Destination: prefixes[2]}.String(), sai.StatusInsufficientResources)

	var results []*Result
	for _, p := range prefixes {
		res, err := b.Create(routeKey{GroupID: group, Destination: p}, []sai.Attribute{action(sai.RoutingActionDrop)})
		Expect(err).ToNot(HaveOccurred())
		results = append(results, res)
	}
	Expect(b.Flush(ctx)).To(Succeed())

	calls := dev.Calls()
	Expect(calls).To(HaveLen(1))
	Expect(calls[0].Bulk).To(BeTrue())
	Expect(calls[0].Mode).To(Equal(sai.BulkIgnoreError))
	Expect(calls[0].Keys).To(HaveLen(len(prefixes)))
	for i, p := range prefixes {
		Expect(calls[0].Keys[i]).To(Equal(routeKey{GroupID: group, Destination: p}.String()))
	}
	for i, res := range results {
		if i == 2 {
			Expect(res.Status()).To(Equal(sai.StatusInsufficientResources))
		} else {
			Expect(res.Status()).To(Equal(sai.StatusSuccess))
		}
	}
}

func TestCreateExistingEntry(t *testing.T) {
	dev, b, group := setupRoutes(t)
	k1 := routeKey{GroupID: group, Destination: "10.1.0.0/16"}
	k2 := routeKey{GroupID: group, Destination: "10.2.0.0/16"}
	_, _ = dev.CreateEntry(ctx, sai.ObjectTypeOutboundRoutingEntry, k2, []sai.Attribute{action(sai.RoutingActionDrop)})

	r1, _ := b.Create(k1, []sai.Attribute{action(sai.RoutingActionDrop)})
	r2, _ := b.Create(k2, []sai.Attribute{action(sai.RoutingActionDrop)})
	Expect(b.Flush(ctx)).To(Succeed())

	Expect(r1.Status()).To(Equal(sai.StatusSuccess))
	Expect(r2.Status()).To(Equal(sai.StatusItemAlreadyExists))
}

func TestStopOnError(t *testing.T) {
	dev, b, group := setupRoutes(t, WithErrorMode(sai.BulkStopOnError))
	k1 := routeKey{GroupID: group, Destination: "10.1.0.0/16"}
	k2 := routeKey{GroupID: group, Destination: "10.2.0.0/16"}
	k3 := routeKey{GroupID: group, Destination: "10.3.0.0/16"}
	dev.InjectStatus(saimock.OpCreate, sai.ObjectTypeOutboundRoutingEntry, k2.String(), sai.StatusInvalidParameter)

	r1, _ := b.Create(k1, []sai.Attribute{action(sai.RoutingActionDrop)})
	r2, _ := b.Create(k2, []sai.Attribute{action(sai.RoutingActionDrop)})
	r3, _ := b.Create(k3, []sai.Attribute{action(sai.RoutingActionDrop)})
	Expect(b.Flush(ctx)).To(Succeed())

	Expect(r1.Status()).To(Equal(sai.StatusSuccess))
	Expect(r2.Status()).To(Equal(sai.StatusInvalidParameter))
	Expect(r3.Status()).To(Equal(sai.StatusNotExecuted))
	Expect(dev.CountEntries(sai.ObjectTypeOutboundRoutingEntry)).To(Equal(1))
}

func TestFlushOrder(t *testing.T) {
	dev, b, group := setupRoutes(t)
	old := routeKey{GroupID: group, Destination: "10.1.0.0/16"}
	_, _ = dev.CreateEntry(ctx, sai.ObjectTypeOutboundRoutingEntry, old, []sai.Attribute{action(sai.RoutingActionDrop)})
	dev.ResetCalls()

	b.SetAttribute(old, action(sai.RoutingActionDirect))
	_, _ = b.Create(routeKey{GroupID: group, Destination: "10.2.0.0/16"}, []sai.Attribute{action(sai.RoutingActionDrop)})
	b.Remove(routeKey{GroupID: group, Destination: "10.3.0.0/16"})
	Expect(b.Len()).To(Equal(3))
	Expect(b.Flush(ctx)).To(Succeed())

	calls := dev.Calls()
	Expect(calls).To(HaveLen(3))
	Expect(calls[0].Op).To(Equal(saimock.OpRemove))
	Expect(calls[1].Op).To(Equal(saimock.OpCreate))
	Expect(calls[2].Op).To(Equal(saimock.OpSet))
	Expect(b.Len()).To(BeZero())
}

func TestCreateCancelsRemoval(t *testing.T) {
	dev, b, group := setupRoutes(t)
	k := routeKey{GroupID: group, Destination: "10.1.0.0/16"}
	_, _ = dev.CreateEntry(ctx, sai.ObjectTypeOutboundRoutingEntry, k, []sai.Attribute{action(sai.RoutingActionDrop)})
	dev.ResetCalls()

	remove := b.Remove(k)
	Expect(b.PendingRemoval(k)).To(BeTrue())
	create, err := b.Create(k, []sai.Attribute{action(sai.RoutingActionDrop)})
	Expect(err).ToNot(HaveOccurred())
	Expect(b.PendingRemoval(k)).To(BeFalse())
	Expect(b.Flush(ctx)).To(Succeed())

	Expect(dev.Calls()).To(BeEmpty())
	Expect(remove.Coalesced()).To(BeTrue())
	Expect(create.Coalesced()).To(BeTrue())
	Expect(dev.CountEntries(sai.ObjectTypeOutboundRoutingEntry)).To(Equal(1))
}

func TestFlushRemoveFirstPolicy(t *testing.T) {
	dev, b, group := setupRoutes(t, WithCoalescePolicy(FlushRemoveFirst))
	k := routeKey{GroupID: group, Destination: "10.1.0.0/16"}
	_, _ = dev.CreateEntry(ctx, sai.ObjectTypeOutboundRoutingEntry, k, []sai.Attribute{action(sai.RoutingActionDrop)})
	dev.ResetCalls()

	remove := b.Remove(k)
	create, _ := b.Create(k, []sai.Attribute{action(sai.RoutingActionDirect)})
	Expect(b.PendingRemoval(k)).To(BeTrue())
	Expect(b.Flush(ctx)).To(Succeed())

	calls := dev.Calls()
	Expect(calls).To(HaveLen(2))
	Expect(calls[0].Op).To(Equal(saimock.OpRemove))
	Expect(calls[1].Op).To(Equal(saimock.OpCreate))
	Expect(remove.Status()).To(Equal(sai.StatusSuccess))
	Expect(create.Status()).To(Equal(sai.StatusSuccess))

	e, _ := dev.GetEntry(sai.ObjectTypeOutboundRoutingEntry, k)
	Expect(e.Attrs[sai.OutboundRoutingEntryAttrAction]).To(Equal(sai.U32Value(sai.RoutingActionDirect)))
}

func TestRemoveDiscardsSets(t *testing.T) {
	dev, b, group := setupRoutes(t)
	k := routeKey{GroupID: group, Destination: "10.1.0.0/16"}
	_, _ = dev.CreateEntry(ctx, sai.ObjectTypeOutboundRoutingEntry, k, []sai.Attribute{action(sai.RoutingActionDrop)})
	dev.ResetCalls()

	set := b.SetAttribute(k, action(sai.RoutingActionDirect))
	remove := b.Remove(k)
	Expect(b.Remove(k)).To(BeIdenticalTo(remove))
	Expect(set.Coalesced()).To(BeTrue())
	Expect(b.Flush(ctx)).To(Succeed())

	calls := dev.Calls()
	Expect(calls).To(HaveLen(1))
	Expect(calls[0].Op).To(Equal(saimock.OpRemove))
	Expect(remove.Status()).To(Equal(sai.StatusSuccess))
}

func TestCallErrorLeavesItemsNotExecuted(t *testing.T) {
	dev, b, group := setupRoutes(t)
	dev.FailNextCall(saimock.OpRemove, sai.ObjectTypeOutboundRoutingEntry, errors.New("driver restarted"))

	remove := b.Remove(routeKey{GroupID: group, Destination: "10.1.0.0/16"})
	create, _ := b.Create(routeKey{GroupID: group, Destination: "10.2.0.0/16"}, []sai.Attribute{action(sai.RoutingActionDrop)})

	err := b.Flush(ctx)
	Expect(err).To(MatchError(ContainSubstring("driver restarted")))
	Expect(remove.Status()).To(Equal(sai.StatusNotExecuted))
	Expect(create.Status()).To(Equal(sai.StatusNotExecuted))
	Expect(create.Done()).To(BeTrue())
	Expect(b.Len()).To(BeZero())
	Expect(dev.CountEntries(sai.ObjectTypeOutboundRoutingEntry)).To(BeZero())
}

func TestInvalidArguments(t *testing.T) {
	_, b, group := setupRoutes(t)

	_, err := b.Create(routeKey{}, []sai.Attribute{action(sai.RoutingActionDrop)})
	Expect(errors.Is(err, ErrInvalidArgument)).To(BeTrue())
	_, err = b.Create(routeKey{GroupID: group, Destination: "10.0.0.0/8"}, nil)
	Expect(errors.Is(err, ErrInvalidArgument)).To(BeTrue())
	Expect(b.Remove(routeKey{}).Status()).To(Equal(sai.StatusInvalidParameter))
	Expect(b.Len()).To(BeZero())

	_, err = NewEntityBulker[routeKey](saimock.NewDevice(nil), sai.ObjectTypeVnet)
	Expect(err).To(HaveOccurred())
}

func TestClear(t *testing.T) {
	dev, b, group := setupRoutes(t)
	create, _ := b.Create(routeKey{GroupID: group, Destination: "10.2.0.0/16"}, []sai.Attribute{action(sai.RoutingActionDrop)})
	b.Clear()
	Expect(b.Flush(ctx)).To(Succeed())

	Expect(dev.Calls()).To(BeEmpty())
	Expect(create.Done()).To(BeTrue())
	Expect(create.Status()).To(Equal(sai.StatusNotExecuted))
}

func TestObjectBulker(t *testing.T) {
	RegisterTestingT(t)
	dev := saimock.NewDevice(nil)
	b, err := NewObjectBulker(dev, sai.ObjectTypeVnet)
	Expect(err).ToNot(HaveOccurred())

	r1, err := b.Create([]sai.Attribute{vni(100)})
	Expect(err).ToNot(HaveOccurred())
	r2, _ := b.Create([]sai.Attribute{vni(200)})
	Expect(r1.Handle()).To(Equal(sai.NullHandle))
	Expect(b.Flush(ctx)).To(Succeed())

	Expect(r1.Status()).To(Equal(sai.StatusSuccess))
	Expect(r2.Status()).To(Equal(sai.StatusSuccess))
	Expect(r1.Handle()).ToNot(Equal(sai.NullHandle))
	Expect(r2.Handle()).ToNot(Equal(r1.Handle()))
	obj, ok := dev.GetObject(r2.Handle())
	Expect(ok).To(BeTrue())
	Expect(obj.Attrs[sai.VnetAttrVni]).To(Equal(sai.U32Value(200)))

	set := b.SetAttribute(r1.Handle(), vni(101))
	remove := b.Remove(r2.Handle())
	Expect(b.PendingRemoval(r2.Handle())).To(BeTrue())
	Expect(b.Flush(ctx)).To(Succeed())
	Expect(set.Status()).To(Equal(sai.StatusSuccess))
	Expect(remove.Status()).To(Equal(sai.StatusSuccess))
	Expect(dev.ListObjects(sai.ObjectTypeVnet)).To(HaveLen(1))

	_, err = b.Create(nil)
	Expect(errors.Is(err, ErrInvalidArgument)).To(BeTrue())
	Expect(b.Remove(sai.NullHandle).Status()).To(Equal(sai.StatusInvalidParameter))
}

func TestObjectBulkerCancelCreate(t *testing.T) {
	RegisterTestingT(t)
	dev := saimock.NewDevice(nil)
	b, _ := NewObjectBulker(dev, sai.ObjectTypeVnet)

	r, _ := b.Create([]sai.Attribute{vni(100)})
	cancel := b.RemoveCreated(r)
	Expect(cancel.Coalesced()).To(BeTrue())
	Expect(b.Flush(ctx)).To(Succeed())
	Expect(dev.Calls()).To(BeEmpty())
	Expect(r.Handle()).To(Equal(sai.NullHandle))

	r, _ = b.Create([]sai.Attribute{vni(100)})
	Expect(b.Flush(ctx)).To(Succeed())
	remove := b.RemoveCreated(r)
	Expect(b.Flush(ctx)).To(Succeed())
	Expect(remove.Status()).To(Equal(sai.StatusSuccess))
	Expect(dev.ListObjects(sai.ObjectTypeVnet)).To(BeEmpty())
}

func TestPerItemFallback(t *testing.T) {
	RegisterTestingT(t)
	dev := saimock.NewDevice(nil)
	tunnel, _, _ := dev.CreateObject(ctx, sai.ObjectTypeDashTunnel, []sai.Attribute{{ID: sai.DashTunnelAttrVni, Value: sai.U32Value(7)}})
	nh1, _, _ := dev.CreateObject(ctx, sai.ObjectTypeDashTunnelNextHop, []sai.Attribute{{ID: sai.DashTunnelNextHopAttrDip, Value: sai.StringValue("1.1.1.1")}})
	dev.ResetCalls()

	b, err := NewObjectBulker(dev, sai.ObjectTypeDashTunnelMember, WithErrorMode(sai.BulkStopOnError))
	Expect(err).ToNot(HaveOccurred())

	member := func(nh sai.Handle) []sai.Attribute {
		return []sai.Attribute{
			{ID: sai.DashTunnelMemberAttrDashTunnelID, Value: sai.HandleValue(tunnel)},
			{ID: sai.DashTunnelMemberAttrDashTunnelNextHopID, Value: sai.HandleValue(nh)},
		}
	}
	r1, _ := b.Create(member(nh1))
	r2, _ := b.Create(member(0x9999))
	r3, _ := b.Create(member(nh1))
	Expect(b.Flush(ctx)).To(Succeed())

	calls := dev.Calls()
	Expect(calls).To(HaveLen(2))
	for _, c := range calls {
		Expect(c.Bulk).To(BeFalse())
	}
	Expect(r1.Status()).To(Equal(sai.StatusSuccess))
	Expect(r2.Status()).To(Equal(sai.StatusInvalidParameter))
	Expect(r3.Status()).To(Equal(sai.StatusNotExecuted))
	Expect(r3.Handle()).To(Equal(sai.NullHandle))
}

func TestStats(t *testing.T) {
	_, b, group := setupRoutes(t)
	_, _ = b.Create(routeKey{GroupID: group, Destination: "10.2.0.0/16"}, []sai.Attribute{action(sai.RoutingActionDrop)})
	Expect(b.Flush(ctx)).To(Succeed())

	stats := GetStats()
	Expect(stats).To(HaveKey("bulk_create_outbound_routing_entry"))
	Expect(stats["bulk_create_outbound_routing_entry"].Items).To(BeNumerically(">=", 1))
}
