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

package sairedis

import (
	"context"
	"net"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis"
	. "github.com/onsi/gomega"

	"go.ligato.io/orchagent/plugins/sai"
)

var ctx = context.Background()

func setup(t *testing.T) (*miniredis.Miniredis, *Client) {
	RegisterTestingT(t)
	s, err := miniredis.Run()
	Expect(err).ToNot(HaveOccurred())
	t.Cleanup(s.Close)
	db := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { db.Close() })
	return s, NewClient(db, nil)
}

func vnet(t *testing.T, c *Client, vni uint32) sai.Handle {
	h, st, err := c.CreateObject(ctx, sai.ObjectTypeVnet,
		[]sai.Attribute{{ID: sai.VnetAttrVni, Value: sai.U32Value(vni)}})
	Expect(err).ToNot(HaveOccurred())
	Expect(st).To(Equal(sai.StatusSuccess))
	return h
}

func TestCreateRemoveObject(t *testing.T) {
	s, c := setup(t)
	h := vnet(t, c, 100)
	Expect(uint64(h) >> 48).To(BeEquivalentTo(sai.ObjectTypeVnet))

	key := StateKey(sai.ObjectTypeVnet, h.String())
	Expect(key).To(HavePrefix("ASIC_STATE:SAI_OBJECT_TYPE_VNET:oid:0x"))
	Expect(s.HGet(key, "SAI_VNET_ATTR_VNI")).To(Equal("100"))

	st, err := c.SetObjectAttribute(ctx, sai.ObjectTypeVnet, h,
		sai.Attribute{ID: sai.VnetAttrVni, Value: sai.U32Value(200)})
	Expect(err).ToNot(HaveOccurred())
	Expect(st).To(Equal(sai.StatusSuccess))
	Expect(s.HGet(key, "SAI_VNET_ATTR_VNI")).To(Equal("200"))

	st, err = c.RemoveObject(ctx, sai.ObjectTypeVnet, h)
	Expect(err).ToNot(HaveOccurred())
	Expect(st).To(Equal(sai.StatusSuccess))
	Expect(s.Exists(key)).To(BeFalse())

	st, err = c.RemoveObject(ctx, sai.ObjectTypeVnet, h)
	Expect(err).ToNot(HaveOccurred())
	Expect(st).To(Equal(sai.StatusItemNotFound))
}

func TestObjectWithoutAttributes(t *testing.T) {
	s, c := setup(t)
	h, st, err := c.CreateObject(ctx, sai.ObjectTypeOutboundRoutingGroup, nil)
	Expect(err).ToNot(HaveOccurred())
	Expect(st).To(Equal(sai.StatusSuccess))
	Expect(s.HGet(StateKey(sai.ObjectTypeOutboundRoutingGroup, h.String()), "NULL")).To(Equal("NULL"))
}

func TestReferencesBlockRemoval(t *testing.T) {
	_, c := setup(t)
	v := vnet(t, c, 100)

	_, st, err := c.CreateObject(ctx, sai.ObjectTypeEni, []sai.Attribute{
		{ID: sai.EniAttrVnetID, Value: sai.HandleValue(sai.Handle(0xdead))},
	})
	Expect(err).ToNot(HaveOccurred())
	Expect(st).To(Equal(sai.StatusInvalidParameter))

	eni, st, err := c.CreateObject(ctx, sai.ObjectTypeEni, []sai.Attribute{
		{ID: sai.EniAttrVnetID, Value: sai.HandleValue(v)},
		{ID: sai.EniAttrUnderlayIP, Value: sai.IPValue(net.ParseIP("10.0.0.1"))},
	})
	Expect(err).ToNot(HaveOccurred())
	Expect(st).To(Equal(sai.StatusSuccess))

	st, err = c.RemoveObject(ctx, sai.ObjectTypeVnet, v)
	Expect(err).ToNot(HaveOccurred())
	Expect(st).To(Equal(sai.StatusObjectInUse))

	st, err = c.RemoveObject(ctx, sai.ObjectTypeEni, eni)
	Expect(err).ToNot(HaveOccurred())
	Expect(st).To(Equal(sai.StatusSuccess))
	st, err = c.RemoveObject(ctx, sai.ObjectTypeVnet, v)
	Expect(err).ToNot(HaveOccurred())
	Expect(st).To(Equal(sai.StatusSuccess))
}

func TestSetMovesReference(t *testing.T) {
	_, c := setup(t)
	v1, v2 := vnet(t, c, 1), vnet(t, c, 2)
	eni, _, err := c.CreateObject(ctx, sai.ObjectTypeEni, []sai.Attribute{
		{ID: sai.EniAttrVnetID, Value: sai.HandleValue(v1)},
	})
	Expect(err).ToNot(HaveOccurred())

	st, err := c.SetObjectAttribute(ctx, sai.ObjectTypeEni, eni,
		sai.Attribute{ID: sai.EniAttrVnetID, Value: sai.HandleValue(v2)})
	Expect(err).ToNot(HaveOccurred())
	Expect(st).To(Equal(sai.StatusSuccess))

	st, _ = c.RemoveObject(ctx, sai.ObjectTypeVnet, v1)
	Expect(st).To(Equal(sai.StatusSuccess))
	st, _ = c.RemoveObject(ctx, sai.ObjectTypeVnet, v2)
	Expect(st).To(Equal(sai.StatusObjectInUse))
}

func TestEntries(t *testing.T) {
	s, c := setup(t)
	group, _, err := c.CreateObject(ctx, sai.ObjectTypeOutboundRoutingGroup, nil)
	Expect(err).ToNot(HaveOccurred())
	k1 := sai.OutboundRoutingEntry{GroupID: group, Destination: "10.1.0.0/24"}
	k2 := sai.OutboundRoutingEntry{GroupID: group, Destination: "10.2.0.0/24"}
	drop := []sai.Attribute{{ID: sai.OutboundRoutingEntryAttrAction, Value: sai.U32Value(sai.RoutingActionDrop)}}

	st, err := c.CreateEntry(ctx, sai.ObjectTypeOutboundRoutingEntry, k1, drop)
	Expect(err).ToNot(HaveOccurred())
	Expect(st).To(Equal(sai.StatusSuccess))
	Expect(s.Exists(StateKey(sai.ObjectTypeOutboundRoutingEntry, k1.String()))).To(BeTrue())

	statuses, err := c.BulkCreateEntries(ctx, sai.ObjectTypeOutboundRoutingEntry,
		[]sai.EntityKey{k1, k2}, [][]sai.Attribute{drop, drop}, sai.BulkIgnoreError)
	Expect(err).ToNot(HaveOccurred())
	Expect(statuses).To(Equal([]sai.Status{sai.StatusItemAlreadyExists, sai.StatusSuccess}))

	st, _ = c.RemoveObject(ctx, sai.ObjectTypeOutboundRoutingGroup, group)
	Expect(st).To(Equal(sai.StatusObjectInUse))

	statuses, err = c.BulkRemoveEntries(ctx, sai.ObjectTypeOutboundRoutingEntry,
		[]sai.EntityKey{k1, k1, k2}, sai.BulkStopOnError)
	Expect(err).ToNot(HaveOccurred())
	Expect(statuses).To(Equal([]sai.Status{sai.StatusSuccess, sai.StatusItemNotFound, sai.StatusNotExecuted}))

	st, err = c.SetEntryAttribute(ctx, sai.ObjectTypeOutboundRoutingEntry, k1, drop[0])
	Expect(err).ToNot(HaveOccurred())
	Expect(st).To(Equal(sai.StatusItemNotFound))

	st, _ = c.RemoveEntry(ctx, sai.ObjectTypeOutboundRoutingEntry, k2)
	Expect(st).To(Equal(sai.StatusSuccess))
	st, _ = c.RemoveObject(ctx, sai.ObjectTypeOutboundRoutingGroup, group)
	Expect(st).To(Equal(sai.StatusSuccess))
}

func TestBulkObjects(t *testing.T) {
	_, c := setup(t)
	attrs := [][]sai.Attribute{
		{{ID: sai.VnetAttrVni, Value: sai.U32Value(1)}},
		{{ID: sai.VnetAttrVni, Value: sai.U32Value(2)}},
	}
	hs, statuses, err := c.BulkCreateObjects(ctx, sai.ObjectTypeVnet, attrs, sai.BulkIgnoreError)
	Expect(err).ToNot(HaveOccurred())
	Expect(statuses).To(Equal([]sai.Status{sai.StatusSuccess, sai.StatusSuccess}))
	Expect(hs[0]).ToNot(Equal(hs[1]))

	statuses, err = c.BulkRemoveObjects(ctx, sai.ObjectTypeVnet, hs, sai.BulkIgnoreError)
	Expect(err).ToNot(HaveOccurred())
	Expect(statuses).To(Equal([]sai.Status{sai.StatusSuccess, sai.StatusSuccess}))
}

func TestCallErrorOnClosedConnection(t *testing.T) {
	s, c := setup(t)
	s.Close()
	_, _, err := c.CreateObject(ctx, sai.ObjectTypeVnet, nil)
	Expect(err).To(HaveOccurred())
}
