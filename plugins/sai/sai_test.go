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

package sai

import (
	"net"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
)

func TestAttrValueString(t *testing.T) {
	RegisterTestingT(t)

	_, prefix, _ := net.ParseCIDR("10.1.0.0/16")
	mac, _ := net.ParseMAC("00:11:22:33:44:55")

	Expect(BoolValue(true).String()).To(Equal("true"))
	Expect(U32Value(100).String()).To(Equal("100"))
	Expect(HandleValue(0x1a).String()).To(Equal("oid:0x1a"))
	Expect(IPValue(net.ParseIP("1.2.3.4")).String()).To(Equal("1.2.3.4"))
	Expect(PrefixValue(prefix).String()).To(Equal("10.1.0.0/16"))
	Expect(MACValue(mac).String()).To(Equal("00:11:22:33:44:55"))
	Expect(HandleListValue(1, 2).String()).To(Equal("2:oid:0x1,oid:0x2"))
	Expect(AttrValue{}.String()).To(Equal("NULL"))
}

func TestAttrValueReferences(t *testing.T) {
	RegisterTestingT(t)

	Expect(HandleValue(5).References()).To(Equal([]Handle{5}))
	Expect(HandleValue(NullHandle).References()).To(BeEmpty())
	Expect(HandleListValue(1, NullHandle, 3).References()).To(Equal([]Handle{1, 3}))
	Expect(U32Value(5).References()).To(BeEmpty())
}

func TestObjectTypeRegistry(t *testing.T) {
	RegisterTestingT(t)

	desc, err := GetObjectType(ObjectTypeVnet)
	Expect(err).ToNot(HaveOccurred())
	Expect(desc.Name).To(Equal("VNET"))
	Expect(desc.APIName("create")).To(Equal("create_vnet"))
	Expect(desc.AttrName(VnetAttrVni)).To(Equal("SAI_VNET_ATTR_VNI"))

	route, err := GetObjectType(ObjectTypeOutboundRoutingEntry)
	Expect(err).ToNot(HaveOccurred())
	Expect(route.Entity).To(BeTrue())
	Expect(route.APIName("remove")).To(Equal("remove_outbound_routing_entry"))

	member, _ := GetObjectType(ObjectTypeDashTunnelMember)
	Expect(member.BulkCreate).To(BeFalse())

	_, err = GetObjectType(ObjectType(9999))
	Expect(errors.Cause(err)).To(Equal(ErrUnknownObjectType))

	typ, ok := ObjectTypeByName("ENI")
	Expect(ok).To(BeTrue())
	Expect(typ).To(Equal(ObjectTypeEni))

	Expect(func() {
		RegisterObjectType(ObjectTypeDesc{Type: ObjectTypeVnet, Name: "DUP"})
	}).To(Panic())
}

func TestApplyErrorMode(t *testing.T) {
	RegisterTestingT(t)

	statuses := []Status{StatusSuccess, StatusInvalidParameter, StatusSuccess, StatusSuccess}
	ApplyErrorMode(statuses, BulkIgnoreError)
	Expect(statuses).To(Equal([]Status{StatusSuccess, StatusInvalidParameter, StatusSuccess, StatusSuccess}))

	ApplyErrorMode(statuses, BulkStopOnError)
	Expect(statuses).To(Equal([]Status{StatusSuccess, StatusInvalidParameter, StatusNotExecuted, StatusNotExecuted}))
}

func TestStatus(t *testing.T) {
	RegisterTestingT(t)

	Expect(StatusItemAlreadyExists.String()).To(Equal("SAI_STATUS_ITEM_ALREADY_EXISTS"))
	Expect(StatusSuccess.Err()).To(BeNil())
	Expect(StatusObjectInUse.Err()).To(MatchError("SAI_STATUS_OBJECT_IN_USE"))

	s, ok := ParseStatus("SAI_STATUS_ITEM_NOT_FOUND")
	Expect(ok).To(BeTrue())
	Expect(s).To(Equal(StatusItemNotFound))

	mode, ok := ParseBulkOpErrorMode("stop-on-error")
	Expect(ok).To(BeTrue())
	Expect(mode).To(Equal(BulkStopOnError))
	_, ok = ParseBulkOpErrorMode("bogus")
	Expect(ok).To(BeFalse())
}
