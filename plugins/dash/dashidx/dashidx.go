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

// Package dashidx defines mirror tables of the DASH objects committed
// to the device and the views other orchestrators get of them.
package dashidx

import (
	"net"

	"go.ligato.io/cn-infra/v2/logging"

	"go.ligato.io/orchagent/pkg/idxsai"
	"go.ligato.io/orchagent/plugins/sai"
)

// Querier is the view of a table owned by another orchestrator. Items
// must not be modified, references are counted through Ref and Unref.
type Querier[M idxsai.WithHandle] interface {
	idxsai.Index[M]
	// Ref increments reference count of the item, false if it does not exist.
	Ref(name string) bool
	// Unref decrements reference count of the item.
	Unref(name string) bool
}

// Vnet is a virtual network.
type Vnet struct {
	idxsai.Counters
	Handle sai.Handle `json:"handle"`
	Vni    uint32     `json:"vni"`
	GUID   string     `json:"guid,omitempty"`
}

// GetHandle returns handle of the VNET.
func (v *Vnet) GetHandle() sai.Handle { return v.Handle }

// VnetQuerier gives access to VNETs referenced by ENIs and routes.
type VnetQuerier = Querier[*Vnet]

// NewVnetTable returns mirror table of VNETs.
func NewVnetTable(log logging.Logger) *idxsai.Table[*Vnet] {
	return idxsai.NewTable[*Vnet](log, "dash-vnet", nil)
}

// Eni is an elastic network interface.
type Eni struct {
	idxsai.Counters
	Handle     sai.Handle       `json:"handle"`
	MacAddress net.HardwareAddr `json:"mac_address"`
	UnderlayIP net.IP           `json:"underlay_ip"`
	Vnet       string           `json:"vnet"`
	AdminState bool             `json:"admin_state"`
	// RouteGroup is the bound outbound route group.
	RouteGroup string `json:"route_group,omitempty"`
}

// GetHandle returns handle of the ENI.
func (e *Eni) GetHandle() sai.Handle { return e.Handle }

// EniQuerier gives read access to ENIs.
type EniQuerier = idxsai.Index[*Eni]

// NewEniTable returns mirror table of ENIs.
func NewEniTable(log logging.Logger) *idxsai.Table[*Eni] {
	return idxsai.NewTable[*Eni](log, "dash-eni", nil)
}

// RouteGroup is a group of outbound routes.
type RouteGroup struct {
	idxsai.Counters
	Handle  sai.Handle `json:"handle"`
	Version string     `json:"version,omitempty"`
	GUID    string     `json:"guid,omitempty"`
}

// GetHandle returns handle of the route group.
func (g *RouteGroup) GetHandle() sai.Handle { return g.Handle }

// RouteGroupQuerier gives access to route groups bound to ENIs.
type RouteGroupQuerier = Querier[*RouteGroup]

// NewRouteGroupTable returns mirror table of route groups.
func NewRouteGroupTable(log logging.Logger) *idxsai.Table[*RouteGroup] {
	return idxsai.NewTable[*RouteGroup](log, "dash-route-group", nil)
}

// Route is an outbound route within a route group.
type Route struct {
	Entry      sai.OutboundRoutingEntry `json:"-"`
	Group      string                   `json:"group"`
	Prefix     string                   `json:"prefix"`
	Action     string                   `json:"action_type"`
	Vnet       string                   `json:"vnet,omitempty"`
	OverlayIP  string                   `json:"overlay_ip,omitempty"`
	UnderlayIP string                   `json:"underlay_ip,omitempty"`
	Tunnel     string                   `json:"tunnel,omitempty"`
}

// GetHandle returns NullHandle, routes are entries addressed by key.
func (r *Route) GetHandle() sai.Handle { return sai.NullHandle }

// Equal returns true if both routes are programmed the same way.
func (r *Route) Equal(o *Route) bool {
	return r.Group == o.Group && r.Prefix == o.Prefix && r.Action == o.Action &&
		r.Vnet == o.Vnet && r.OverlayIP == o.OverlayIP &&
		r.UnderlayIP == o.UnderlayIP && r.Tunnel == o.Tunnel
}

const groupIndexKey = "group"

// NewRouteTable returns mirror table of routes, indexed also by group.
func NewRouteTable(log logging.Logger) *idxsai.Table[*Route] {
	return idxsai.NewTable[*Route](log, "dash-route", func(item interface{}) map[string][]string {
		if route, ok := item.(*Route); ok {
			return map[string][]string{groupIndexKey: {route.Group}}
		}
		return nil
	})
}

// RoutesInGroup returns keys of routes in the group.
func RoutesInGroup(routes *idxsai.Table[*Route], group string) []string {
	return routes.ListNames(groupIndexKey, group)
}

// Tunnel is a tunnel towards one or more endpoints.
type Tunnel struct {
	idxsai.Counters
	Handle    sai.Handle `json:"handle"`
	Endpoints []string   `json:"endpoints"`
	EncapType string     `json:"encap_type"`
	Vni       uint32     `json:"vni"`
	// NextHops and Members are set for tunnels with more endpoints,
	// in order of Endpoints.
	NextHops []sai.Handle `json:"next_hops,omitempty"`
	Members  []sai.Handle `json:"members,omitempty"`
}

// GetHandle returns handle of the tunnel.
func (t *Tunnel) GetHandle() sai.Handle { return t.Handle }

// TunnelQuerier gives access to tunnels referenced by routes.
type TunnelQuerier = Querier[*Tunnel]

// NewTunnelTable returns mirror table of tunnels.
func NewTunnelTable(log logging.Logger) *idxsai.Table[*Tunnel] {
	return idxsai.NewTable[*Tunnel](log, "dash-tunnel", nil)
}
