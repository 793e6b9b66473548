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

import "fmt"

// DASH object types.
const (
	ObjectTypeVnet ObjectType = 100 + iota
	ObjectTypeEni
	ObjectTypeOutboundRoutingGroup
	ObjectTypeOutboundRoutingEntry
	ObjectTypeDashTunnel
	ObjectTypeDashTunnelNextHop
	ObjectTypeDashTunnelMember
)

// VNET attributes.
const (
	VnetAttrVni AttrID = iota
)

// ENI attributes.
const (
	EniAttrMacAddress AttrID = iota
	EniAttrUnderlayIP
	EniAttrVnetID
	EniAttrAdminState
	EniAttrOutboundRoutingGroupID
)

// Outbound routing group attributes.
const (
	OutboundRoutingGroupAttrDisabled AttrID = iota
)

// Outbound routing entry attributes.
const (
	OutboundRoutingEntryAttrAction AttrID = iota
	OutboundRoutingEntryAttrDstVnetID
	OutboundRoutingEntryAttrOverlayIP
	OutboundRoutingEntryAttrUnderlayIP
	OutboundRoutingEntryAttrTunnelID
)

// Outbound routing actions.
const (
	RoutingActionDrop uint32 = iota
	RoutingActionDirect
	RoutingActionRouteVnet
	RoutingActionRouteVnetDirect
)

// DASH tunnel attributes.
const (
	DashTunnelAttrDip AttrID = iota
	DashTunnelAttrEncapType
	DashTunnelAttrVni
	DashTunnelAttrMaxMemberSize
)

// Tunnel encapsulation types.
const (
	EncapTypeVxlan uint32 = iota
	EncapTypeNvgre
)

// DASH tunnel next hop attributes.
const (
	DashTunnelNextHopAttrDip AttrID = iota
)

// DASH tunnel member attributes.
const (
	DashTunnelMemberAttrDashTunnelID AttrID = iota
	DashTunnelMemberAttrDashTunnelNextHopID
)

// OutboundRoutingEntry is the key of an outbound route.
type OutboundRoutingEntry struct {
	GroupID Handle
	// Destination is the prefix in canonical CIDR notation.
	Destination string
}

func (e OutboundRoutingEntry) String() string {
	return fmt.Sprintf(`{"destination":"%s","outbound_routing_group_id":"%s"}`, e.Destination, e.GroupID)
}

// References returns the routing group the entry belongs to.
func (e OutboundRoutingEntry) References() []Handle {
	return []Handle{e.GroupID}
}

func init() {
	RegisterObjectType(ObjectTypeDesc{
		Type:       ObjectTypeVnet,
		Name:       "VNET",
		BulkCreate: true,
		BulkRemove: true,
		BulkSet:    true,
		AttrNames: map[AttrID]string{
			VnetAttrVni: "SAI_VNET_ATTR_VNI",
		},
	})
	RegisterObjectType(ObjectTypeDesc{
		Type:       ObjectTypeEni,
		Name:       "ENI",
		BulkCreate: true,
		BulkRemove: true,
		AttrNames: map[AttrID]string{
			EniAttrMacAddress:             "SAI_ENI_ATTR_MAC_ADDRESS",
			EniAttrUnderlayIP:             "SAI_ENI_ATTR_UNDERLAY_IP",
			EniAttrVnetID:                 "SAI_ENI_ATTR_VNET_ID",
			EniAttrAdminState:             "SAI_ENI_ATTR_ADMIN_STATE",
			EniAttrOutboundRoutingGroupID: "SAI_ENI_ATTR_OUTBOUND_ROUTING_GROUP_ID",
		},
	})
	RegisterObjectType(ObjectTypeDesc{
		Type:       ObjectTypeOutboundRoutingGroup,
		Name:       "OUTBOUND_ROUTING_GROUP",
		BulkCreate: true,
		BulkRemove: true,
		BulkSet:    true,
		AttrNames: map[AttrID]string{
			OutboundRoutingGroupAttrDisabled: "SAI_OUTBOUND_ROUTING_GROUP_ATTR_DISABLED",
		},
	})
	RegisterObjectType(ObjectTypeDesc{
		Type:       ObjectTypeOutboundRoutingEntry,
		Name:       "OUTBOUND_ROUTING",
		Entity:     true,
		BulkCreate: true,
		BulkRemove: true,
		BulkSet:    true,
		AttrNames: map[AttrID]string{
			OutboundRoutingEntryAttrAction:     "SAI_OUTBOUND_ROUTING_ENTRY_ATTR_ACTION",
			OutboundRoutingEntryAttrDstVnetID:  "SAI_OUTBOUND_ROUTING_ENTRY_ATTR_DST_VNET_ID",
			OutboundRoutingEntryAttrOverlayIP:  "SAI_OUTBOUND_ROUTING_ENTRY_ATTR_OVERLAY_IP",
			OutboundRoutingEntryAttrUnderlayIP: "SAI_OUTBOUND_ROUTING_ENTRY_ATTR_UNDERLAY_IP",
			OutboundRoutingEntryAttrTunnelID:   "SAI_OUTBOUND_ROUTING_ENTRY_ATTR_DASH_TUNNEL_ID",
		},
	})
	RegisterObjectType(ObjectTypeDesc{
		Type:       ObjectTypeDashTunnel,
		Name:       "DASH_TUNNEL",
		BulkCreate: true,
		BulkRemove: true,
		AttrNames: map[AttrID]string{
			DashTunnelAttrDip:           "SAI_DASH_TUNNEL_ATTR_DIP",
			DashTunnelAttrEncapType:     "SAI_DASH_TUNNEL_ATTR_DASH_ENCAPSULATION",
			DashTunnelAttrVni:           "SAI_DASH_TUNNEL_ATTR_TUNNEL_KEY",
			DashTunnelAttrMaxMemberSize: "SAI_DASH_TUNNEL_ATTR_MAX_MEMBER_SIZE",
		},
	})
	RegisterObjectType(ObjectTypeDesc{
		Type:       ObjectTypeDashTunnelNextHop,
		Name:       "DASH_TUNNEL_NEXT_HOP",
		BulkCreate: true,
		BulkRemove: true,
		AttrNames: map[AttrID]string{
			DashTunnelNextHopAttrDip: "SAI_DASH_TUNNEL_NEXT_HOP_ATTR_DIP",
		},
	})
	RegisterObjectType(ObjectTypeDesc{
		Type: ObjectTypeDashTunnelMember,
		Name: "DASH_TUNNEL_MEMBER",
		// no bulk entry points for tunnel members
		AttrNames: map[AttrID]string{
			DashTunnelMemberAttrDashTunnelID:        "SAI_DASH_TUNNEL_MEMBER_ATTR_DASH_TUNNEL_ID",
			DashTunnelMemberAttrDashTunnelNextHopID: "SAI_DASH_TUNNEL_MEMBER_ATTR_DASH_TUNNEL_NEXT_HOP_ID",
		},
	})
}
