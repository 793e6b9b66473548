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
	"bytes"
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

// EniOrch programs ENIs and binds them to outbound route groups.
type EniOrch struct {
	orch.Base
	enis   *idxsai.Table[*dashidx.Eni]
	vnets  dashidx.VnetQuerier
	groups dashidx.RouteGroupQuerier
	bulker *bulker.ObjectBulker

	eniApplier   *orch.Applier[*eniCtx]
	routeApplier *orch.Applier[*eniRouteCtx]
}

type eniCtx struct {
	task     *orch.Task
	eni      dashidx.Eni
	existing *dashidx.Eni
	create   *bulker.ObjectResult
	set      *bulker.Result
	remove   *bulker.Result
}

type eniRouteCtx struct {
	task  *orch.Task
	group string
	eni   *dashidx.Eni
	set   *bulker.Result
}

// NewEniOrch returns orchestrator of the ENI tables.
func NewEniOrch(deps Deps, vnets dashidx.VnetQuerier, groups dashidx.RouteGroupQuerier) (*EniOrch, error) {
	o := &EniOrch{
		Base:   orch.NewBase("eni", deps.logger()),
		enis:   dashidx.NewEniTable(deps.logger()),
		vnets:  vnets,
		groups: groups,
	}
	var err error
	if o.bulker, err = bulker.NewObjectBulker(deps.Client, sai.ObjectTypeEni, deps.bulkerOptions()...); err != nil {
		return nil, err
	}
	o.eniApplier = &orch.Applier[*eniCtx]{
		Base:     &o.Base,
		Table:    EniTable,
		Validate: o.validateEni,
		Stages: []orch.Stage[*eniCtx]{{
			Name:     "eni",
			Flushers: []bulker.Flusher{o.bulker},
			Submit:   o.submitEni,
			Resolve:  o.resolveEni,
		}},
	}
	o.routeApplier = &orch.Applier[*eniRouteCtx]{
		Base:     &o.Base,
		Table:    EniRouteTable,
		Validate: o.validateEniRoute,
		Stages: []orch.Stage[*eniRouteCtx]{{
			Name:     "eni-route",
			Flushers: []bulker.Flusher{o.bulker},
			Submit:   o.submitEniRoute,
			Resolve:  o.resolveEniRoute,
		}},
	}
	return o, nil
}

// Tables returns the consumed tables.
func (o *EniOrch) Tables() []string {
	return []string{EniTable, EniRouteTable}
}

// Enis returns view of the ENI table.
func (o *EniOrch) Enis() dashidx.EniQuerier {
	return o.enis
}

// DoTask applies queued records of the consumed table.
func (o *EniOrch) DoTask(ctx context.Context, consumer *orch.Consumer) {
	switch consumer.Name() {
	case EniTable:
		o.eniApplier.Apply(ctx, consumer)
	case EniRouteTable:
		o.routeApplier.Apply(ctx, consumer)
	default:
		o.Log.Warnf("unexpected table %s", consumer.Name())
	}
}

// Dump returns the ENI mirror.
func (o *EniOrch) Dump() interface{} {
	return o.enis.ListAllItems()
}

func parseAdminState(task *orch.Task) (bool, error) {
	state, ok := task.Fields.Get("admin_state")
	if !ok {
		return true, nil
	}
	switch state {
	case "enabled":
		return true, nil
	case "disabled":
		return false, nil
	}
	return false, errors.Errorf("invalid admin_state %q", state)
}

func (o *EniOrch) validateEni(task *orch.Task) (*eniCtx, error) {
	if err := validKey(task); err != nil {
		return nil, err
	}
	c := &eniCtx{task: task}
	if task.Op == swss.Del {
		return c, nil
	}
	mac, err := requiredField(task, "mac_address")
	if err != nil {
		return nil, err
	}
	if c.eni.MacAddress, err = net.ParseMAC(mac); err != nil {
		return nil, errors.Errorf("invalid mac_address %q", mac)
	}
	ip, err := requiredField(task, "underlay_ip")
	if err != nil {
		return nil, err
	}
	if c.eni.UnderlayIP = net.ParseIP(ip); c.eni.UnderlayIP == nil {
		return nil, errors.Errorf("invalid underlay_ip %q", ip)
	}
	if c.eni.Vnet, err = requiredField(task, "vnet"); err != nil {
		return nil, err
	}
	if c.eni.AdminState, err = parseAdminState(task); err != nil {
		return nil, err
	}
	return c, nil
}

func (o *EniOrch) submitEni(c *eniCtx) (orch.Outcome, error) {
	existing, exists := o.enis.LookupByName(c.task.Key)
	c.existing = existing
	if c.task.Op == swss.Del {
		if !exists {
			return orch.Committed, nil
		}
		if existing.InUse() {
			return orch.Retry, errors.Errorf("eni %s is bound to route group %s", c.task.Key, existing.RouteGroup)
		}
		c.remove = o.bulker.Remove(existing.Handle)
		return orch.Queued, nil
	}
	if exists {
		if existing.Vnet != c.eni.Vnet || !bytes.Equal(existing.MacAddress, c.eni.MacAddress) ||
			!existing.UnderlayIP.Equal(c.eni.UnderlayIP) {
			o.Log.WithFields(logging.Fields{"eni": c.task.Key}).
				Warn("only admin_state of existing eni can be changed, other changes are ignored")
		}
		if existing.AdminState == c.eni.AdminState {
			return orch.Committed, nil
		}
		c.set = o.bulker.SetAttribute(existing.Handle, sai.Attribute{
			ID: sai.EniAttrAdminState, Value: sai.BoolValue(c.eni.AdminState),
		})
		return orch.Queued, nil
	}
	vnet, ok := o.vnets.LookupByName(c.eni.Vnet)
	if !ok {
		return orch.Retry, orch.MissingDependency("vnet", c.eni.Vnet)
	}
	res, err := o.bulker.Create([]sai.Attribute{
		{ID: sai.EniAttrMacAddress, Value: sai.MACValue(c.eni.MacAddress)},
		{ID: sai.EniAttrUnderlayIP, Value: sai.IPValue(c.eni.UnderlayIP)},
		{ID: sai.EniAttrVnetID, Value: sai.HandleValue(vnet.Handle)},
		{ID: sai.EniAttrAdminState, Value: sai.BoolValue(c.eni.AdminState)},
	})
	if err != nil {
		return orch.Invalid, err
	}
	c.create = res
	return orch.Queued, nil
}

func (o *EniOrch) resolveEni(c *eniCtx) (orch.Outcome, error) {
	switch {
	case c.remove != nil:
		outcome, err := orch.ResolveResult(sai.ObjectTypeEni, orch.OpRemove, c.remove)
		if outcome == orch.Committed {
			o.enis.Delete(c.task.Key)
			o.vnets.Unref(c.existing.Vnet)
			o.Log.Infof("eni %s removed", c.task.Key)
		}
		return outcome, err
	case c.set != nil:
		outcome, err := orch.ResolveResult(sai.ObjectTypeEni, orch.OpSet, c.set)
		if outcome == orch.Committed {
			c.existing.AdminState = c.eni.AdminState
		}
		return outcome, err
	}
	outcome, err := resolveCreate(sai.ObjectTypeEni, c.create)
	if outcome == orch.Committed {
		eni := c.eni
		eni.Handle = c.create.Handle()
		o.enis.Put(c.task.Key, &eni)
		o.vnets.Ref(eni.Vnet)
		o.Log.Infof("eni %s created in vnet %s (%v)", c.task.Key, eni.Vnet, eni.Handle)
	}
	return outcome, err
}

func (o *EniOrch) validateEniRoute(task *orch.Task) (*eniRouteCtx, error) {
	if err := validKey(task); err != nil {
		return nil, err
	}
	c := &eniRouteCtx{task: task}
	if task.Op == swss.Del {
		return c, nil
	}
	var err error
	if c.group, err = requiredField(task, "group_id"); err != nil {
		return nil, err
	}
	return c, nil
}

func (o *EniOrch) submitEniRoute(c *eniRouteCtx) (orch.Outcome, error) {
	eni, exists := o.enis.LookupByName(c.task.Key)
	if c.task.Op == swss.Del {
		if !exists || eni.RouteGroup == "" {
			return orch.Committed, nil
		}
		c.eni = eni
		c.set = o.bulker.SetAttribute(eni.Handle, sai.Attribute{
			ID: sai.EniAttrOutboundRoutingGroupID, Value: sai.HandleValue(sai.NullHandle),
		})
		return orch.Queued, nil
	}
	if !exists {
		return orch.Retry, orch.MissingDependency("eni", c.task.Key)
	}
	if eni.RouteGroup == c.group {
		return orch.Committed, nil
	}
	group, ok := o.groups.LookupByName(c.group)
	if !ok {
		return orch.Retry, orch.MissingDependency("route group", c.group)
	}
	c.eni = eni
	c.set = o.bulker.SetAttribute(eni.Handle, sai.Attribute{
		ID: sai.EniAttrOutboundRoutingGroupID, Value: sai.HandleValue(group.Handle),
	})
	return orch.Queued, nil
}

func (o *EniOrch) resolveEniRoute(c *eniRouteCtx) (orch.Outcome, error) {
	outcome, err := orch.ResolveResult(sai.ObjectTypeEni, orch.OpSet, c.set)
	if outcome != orch.Committed {
		return outcome, err
	}
	if c.eni.RouteGroup != "" {
		o.groups.Unref(c.eni.RouteGroup)
	} else {
		o.enis.Ref(c.task.Key)
	}
	if c.task.Op == swss.Del {
		o.enis.Unref(c.task.Key)
		o.Log.Infof("eni %s unbound from route group %s", c.task.Key, c.eni.RouteGroup)
		c.eni.RouteGroup = ""
		return orch.Committed, nil
	}
	o.groups.Ref(c.group)
	c.eni.RouteGroup = c.group
	o.Log.Infof("eni %s bound to route group %s", c.task.Key, c.group)
	return orch.Committed, nil
}
