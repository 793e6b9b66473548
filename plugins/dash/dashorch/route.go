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

package dashorch

import (
	"context"
	"net"

	"github.com/pkg/errors"
	"go.ligato.io/cn-infra/v2/logging"

	"go.ligato.io/orchagent/pkg/idxsai"
	"go.ligato.io/orchagent/pkg/swss"
	"go.ligato.io/orchagent/plugins/bulker"
	"go.ligato.io/orchagent/plugins/dash/dashidx"
	"go.ligato.io/orchagent/plugins/orch"
	"go.ligato.io/orchagent/plugins/sai"
)

// Route actions.
const (
	ActionVnet       = "vnet"
	ActionVnetDirect = "vnet_direct"
	ActionDirect     = "direct"
	ActionDrop       = "drop"
)

var routeActions = map[string]uint32{
	ActionVnet:       sai.RoutingActionRouteVnet,
	ActionVnetDirect: sai.RoutingActionRouteVnetDirect,
	ActionDirect:     sai.RoutingActionDirect,
	ActionDrop:       sai.RoutingActionDrop,
}

// RouteOrch programs outbound route groups and their routes.
type RouteOrch struct {
	orch.Base
	groups  *idxsai.Table[*dashidx.RouteGroup]
	routes  *idxsai.Table[*dashidx.Route]
	vnets   dashidx.VnetQuerier
	tunnels dashidx.TunnelQuerier

	groupBulker *bulker.ObjectBulker
	routeBulker *bulker.EntityBulker[sai.OutboundRoutingEntry]

	groupApplier *orch.Applier[*groupCtx]
	routeApplier *orch.Applier[*routeCtx]

	// batch maps canonical route keys to the record changing them
	// in the current pass.
	batch map[string]*orch.Task
}

type groupCtx struct {
	task   *orch.Task
	group  dashidx.RouteGroup
	create *bulker.ObjectResult
	remove *bulker.Result
}

type routeCtx struct {
	task *orch.Task
	// key is the route key with the prefix in canonical form.
	key      string
	route    dashidx.Route
	existing *dashidx.Route
	// unchanged route is already programmed as requested.
	unchanged bool
	remove    *bulker.Result
	create    *bulker.Result
}

// NewRouteOrch returns orchestrator of the route group and route tables.
func NewRouteOrch(deps Deps, vnets dashidx.VnetQuerier, tunnels dashidx.TunnelQuerier) (*RouteOrch, error) {
	o := &RouteOrch{
		Base:    orch.NewBase("route", deps.logger()),
		groups:  dashidx.NewRouteGroupTable(deps.logger()),
		routes:  dashidx.NewRouteTable(deps.logger()),
		vnets:   vnets,
		tunnels: tunnels,
		batch:   make(map[string]*orch.Task),
	}
	var err error
	if o.groupBulker, err = bulker.NewObjectBulker(deps.Client, sai.ObjectTypeOutboundRoutingGroup, deps.bulkerOptions()...); err != nil {
		return nil, err
	}
	if o.routeBulker, err = bulker.NewEntityBulker[sai.OutboundRoutingEntry](deps.Client, sai.ObjectTypeOutboundRoutingEntry, deps.bulkerOptions()...); err != nil {
		return nil, err
	}
	o.groupApplier = &orch.Applier[*groupCtx]{
		Base:     &o.Base,
		Table:    RouteGroupTable,
		Validate: o.validateGroup,
		Stages: []orch.Stage[*groupCtx]{{
			Name:     "route-group",
			Flushers: []bulker.Flusher{o.groupBulker},
			Submit:   o.submitGroup,
			Resolve:  o.resolveGroup,
		}},
	}
	o.routeApplier = &orch.Applier[*routeCtx]{
		Base:     &o.Base,
		Table:    RouteTable,
		Validate: o.validateRoute,
		Stages: []orch.Stage[*routeCtx]{
			{
				Name:     "remove-route",
				Flushers: []bulker.Flusher{o.routeBulker},
				Submit:   o.submitRouteRemoval,
				Resolve:  o.resolveRouteRemoval,
			},
			{
				Name:     "create-route",
				Flushers: []bulker.Flusher{o.routeBulker},
				Submit:   o.submitRouteCreation,
				Resolve:  o.resolveRouteCreation,
			},
		},
	}
	return o, nil
}

// Tables returns the consumed tables.
func (o *RouteOrch) Tables() []string {
	return []string{RouteGroupTable, RouteTable}
}

// RouteGroups returns view of the route group table.
func (o *RouteOrch) RouteGroups() dashidx.RouteGroupQuerier {
	return o.groups
}

// DoTask applies queued records of the consumed table.
func (o *RouteOrch) DoTask(ctx context.Context, consumer *orch.Consumer) {
	switch consumer.Name() {
	case RouteGroupTable:
		o.groupApplier.Apply(ctx, consumer)
	case RouteTable:
		o.batch = make(map[string]*orch.Task)
		o.routeApplier.Apply(ctx, consumer)
	default:
		o.Log.Warnf("unexpected table %s", consumer.Name())
	}
}

// RouteGroupDump is a route group with its routes.
type RouteGroupDump struct {
	*dashidx.RouteGroup
	Routes []*dashidx.Route `json:"routes,omitempty"`
}

// Dump returns route groups with their routes.
func (o *RouteOrch) Dump() interface{} {
	dump := make(map[string]RouteGroupDump)
	for name, group := range o.groups.ListAllItems() {
		d := RouteGroupDump{RouteGroup: group}
		for _, key := range dashidx.RoutesInGroup(o.routes, name) {
			if route, ok := o.routes.LookupByName(key); ok {
				d.Routes = append(d.Routes, route)
			}
		}
		dump[name] = d
	}
	return dump
}

func (o *RouteOrch) validateGroup(task *orch.Task) (*groupCtx, error) {
	if err := validKey(task); err != nil {
		return nil, err
	}
	c := &groupCtx{task: task}
	c.group.Version, _ = task.Fields.Get("version")
	c.group.GUID, _ = task.Fields.Get("guid")
	return c, nil
}

func (o *RouteOrch) submitGroup(c *groupCtx) (orch.Outcome, error) {
	existing, exists := o.groups.LookupByName(c.task.Key)
	if c.task.Op == swss.Del {
		if !exists {
			return orch.Committed, nil
		}
		if existing.InUse() {
			return orch.Retry, errors.Errorf("route group %s has %d routes and %d bindings",
				c.task.Key, existing.MemberCount, existing.RefCount)
		}
		c.remove = o.groupBulker.Remove(existing.Handle)
		return orch.Queued, nil
	}
	if exists {
		existing.Version = c.group.Version
		existing.GUID = c.group.GUID
		return orch.Committed, nil
	}
	res, err := o.groupBulker.Create([]sai.Attribute{
		{ID: sai.OutboundRoutingGroupAttrDisabled, Value: sai.BoolValue(false)},
	})
	if err != nil {
		return orch.Invalid, err
	}
	c.create = res
	return orch.Queued, nil
}

func (o *RouteOrch) resolveGroup(c *groupCtx) (orch.Outcome, error) {
	if c.task.Op == swss.Del {
		outcome, err := orch.ResolveResult(sai.ObjectTypeOutboundRoutingGroup, orch.OpRemove, c.remove)
		if outcome == orch.Committed {
			o.groups.Delete(c.task.Key)
			o.Log.Infof("route group %s removed", c.task.Key)
		}
		return outcome, err
	}
	outcome, err := resolveCreate(sai.ObjectTypeOutboundRoutingGroup, c.create)
	if outcome == orch.Committed {
		group := c.group
		group.Handle = c.create.Handle()
		o.groups.Put(c.task.Key, &group)
		o.Log.Infof("route group %s created (%v)", c.task.Key, group.Handle)
	}
	return outcome, err
}

func (o *RouteOrch) validateRoute(task *orch.Task) (*routeCtx, error) {
	group, prefix, ok := swss.SplitKey(task.Key)
	if !ok || group == "" {
		return nil, errors.Errorf("invalid route key %q", task.Key)
	}
	_, ipnet, err := net.ParseCIDR(prefix)
	if err != nil {
		return nil, errors.Errorf("invalid prefix %q", prefix)
	}
	c := &routeCtx{task: task}
	c.route.Group = group
	c.route.Prefix = ipnet.String()
	c.key = group + swss.TableKeySeparator + c.route.Prefix
	if task.Op == swss.Del {
		return c, nil
	}

	r := &c.route
	if r.Action, err = requiredField(task, "action_type"); err != nil {
		return nil, err
	}
	if _, ok := routeActions[r.Action]; !ok {
		return nil, errors.Errorf("invalid action_type %q", r.Action)
	}
	r.Vnet, _ = task.Fields.Get("vnet")
	r.OverlayIP, _ = task.Fields.Get("overlay_ip")
	r.UnderlayIP, _ = task.Fields.Get("underlay_ip")
	r.Tunnel, _ = task.Fields.Get("tunnel")
	if (r.Action == ActionVnet || r.Action == ActionVnetDirect) && r.Vnet == "" {
		return nil, errors.Errorf("action %s requires vnet", r.Action)
	}
	if r.Action == ActionVnetDirect && r.OverlayIP == "" {
		return nil, errors.Errorf("action %s requires overlay_ip", r.Action)
	}
	for field, ip := range map[string]string{"overlay_ip": r.OverlayIP, "underlay_ip": r.UnderlayIP} {
		if ip != "" && net.ParseIP(ip) == nil {
			return nil, errors.Errorf("invalid %s %q", field, ip)
		}
	}
	return c, nil
}

// submitRouteRemoval removes routes being deleted or replaced.
// Records whose prefixes differ only in host bits address the same route,
// only the first of them is applied in a pass.
func (o *RouteOrch) submitRouteRemoval(c *routeCtx) (orch.Outcome, error) {
	if other, ok := o.batch[c.key]; ok && other != c.task {
		return orch.Retry, errors.Errorf("route %s is being changed by record %s", c.key, other.Key)
	}
	o.batch[c.key] = c.task

	existing, exists := o.routes.LookupByName(c.key)
	if !exists {
		return orch.Committed, nil
	}
	if c.task.Op == swss.Set && existing.Equal(&c.route) {
		c.unchanged = true
		return orch.Committed, nil
	}
	c.existing = existing
	c.remove = o.routeBulker.Remove(existing.Entry)
	return orch.Queued, nil
}

func (o *RouteOrch) resolveRouteRemoval(c *routeCtx) (orch.Outcome, error) {
	outcome, err := orch.ResolveResult(sai.ObjectTypeOutboundRoutingEntry, orch.OpRemove, c.remove)
	if outcome != orch.Committed {
		return outcome, err
	}
	r := c.existing
	o.routes.Delete(c.key)
	o.groups.DelMember(r.Group)
	if r.Vnet != "" {
		o.vnets.Unref(r.Vnet)
	}
	if r.Tunnel != "" {
		o.tunnels.Unref(r.Tunnel)
	}
	o.Log.Debugf("route %s removed", c.key)
	return orch.Committed, nil
}

// submitRouteCreation creates new and replaced routes.
func (o *RouteOrch) submitRouteCreation(c *routeCtx) (orch.Outcome, error) {
	if c.task.Op == swss.Del || c.unchanged {
		return orch.Committed, nil
	}
	r := &c.route
	group, ok := o.groups.LookupByName(r.Group)
	if !ok {
		return orch.Retry, orch.MissingDependency("route group", r.Group)
	}
	r.Entry = sai.OutboundRoutingEntry{GroupID: group.Handle, Destination: r.Prefix}
	if o.routeBulker.PendingRemoval(r.Entry) {
		return orch.Retry, errors.Errorf("route %s is being removed", c.key)
	}

	attrs := []sai.Attribute{
		{ID: sai.OutboundRoutingEntryAttrAction, Value: sai.U32Value(routeActions[r.Action])},
	}
	if r.Vnet != "" {
		vnet, ok := o.vnets.LookupByName(r.Vnet)
		if !ok {
			return orch.Retry, orch.MissingDependency("vnet", r.Vnet)
		}
		attrs = append(attrs, sai.Attribute{ID: sai.OutboundRoutingEntryAttrDstVnetID, Value: sai.HandleValue(vnet.Handle)})
	}
	if r.Tunnel != "" {
		tunnel, ok := o.tunnels.LookupByName(r.Tunnel)
		if !ok {
			return orch.Retry, orch.MissingDependency("tunnel", r.Tunnel)
		}
		attrs = append(attrs, sai.Attribute{ID: sai.OutboundRoutingEntryAttrTunnelID, Value: sai.HandleValue(tunnel.Handle)})
	}
	if r.OverlayIP != "" {
		attrs = append(attrs, sai.Attribute{ID: sai.OutboundRoutingEntryAttrOverlayIP, Value: sai.IPValue(net.ParseIP(r.OverlayIP))})
	}
	if r.UnderlayIP != "" {
		attrs = append(attrs, sai.Attribute{ID: sai.OutboundRoutingEntryAttrUnderlayIP, Value: sai.IPValue(net.ParseIP(r.UnderlayIP))})
	}

	res, err := o.routeBulker.Create(r.Entry, attrs)
	if err != nil {
		return orch.Invalid, err
	}
	c.create = res
	return orch.Queued, nil
}

func (o *RouteOrch) resolveRouteCreation(c *routeCtx) (orch.Outcome, error) {
	outcome, err := orch.ResolveResult(sai.ObjectTypeOutboundRoutingEntry, orch.OpCreate, c.create)
	if outcome != orch.Committed {
		return outcome, err
	}
	route := c.route
	o.routes.Put(c.key, &route)
	o.groups.AddMember(route.Group)
	if route.Vnet != "" {
		o.vnets.Ref(route.Vnet)
	}
	if route.Tunnel != "" {
		o.tunnels.Ref(route.Tunnel)
	}
	o.Log.WithFields(logging.Fields{"group": route.Group, "action": route.Action}).
		Debugf("route %s created", route.Prefix)
	return orch.Committed, nil
}
