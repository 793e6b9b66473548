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
	"strings"

	"github.com/pkg/errors"
	"go.ligato.io/cn-infra/v2/logging"

	"go.ligato.io/orchagent/pkg/idxsai"
	"go.ligato.io/orchagent/pkg/swss"
	"go.ligato.io/orchagent/plugins/bulker"
	"go.ligato.io/orchagent/plugins/dash/dashidx"
	"go.ligato.io/orchagent/plugins/orch"
	"go.ligato.io/orchagent/plugins/sai"
)

var encapTypes = map[string]uint32{
	"vxlan": sai.EncapTypeVxlan,
	"nvgre": sai.EncapTypeNvgre,
}

// TunnelOrch programs tunnels. A tunnel with more endpoints is made of
// the tunnel, one next hop per endpoint and members binding the next
// hops to the tunnel. They are created in this order and removed in
// the reverse one.
type TunnelOrch struct {
	orch.Base
	tunnels *idxsai.Table[*dashidx.Tunnel]
	// partial holds tunnels that are not completely created or removed.
	partial map[string]*dashidx.Tunnel

	tunnelBulker  *bulker.ObjectBulker
	nextHopBulker *bulker.ObjectBulker
	memberBulker  *bulker.ObjectBulker
	applier       *orch.Applier[*tunnelCtx]
}

type tunnelCtx struct {
	task    *orch.Task
	desired dashidx.Tunnel
	// tunnel is the state being changed, nil when there is nothing to do.
	tunnel *dashidx.Tunnel

	create   *bulker.ObjectResult
	creates  map[int]*bulker.ObjectResult
	removals map[int]*bulker.Result
	remove   *bulker.Result
}

// NewTunnelOrch returns orchestrator of the tunnel table.
func NewTunnelOrch(deps Deps) (*TunnelOrch, error) {
	o := &TunnelOrch{
		Base:    orch.NewBase("tunnel", deps.logger()),
		tunnels: dashidx.NewTunnelTable(deps.logger()),
		partial: make(map[string]*dashidx.Tunnel),
	}
	var err error
	opts := deps.bulkerOptions()
	if o.tunnelBulker, err = bulker.NewObjectBulker(deps.Client, sai.ObjectTypeDashTunnel, opts...); err != nil {
		return nil, err
	}
	if o.nextHopBulker, err = bulker.NewObjectBulker(deps.Client, sai.ObjectTypeDashTunnelNextHop, opts...); err != nil {
		return nil, err
	}
	if o.memberBulker, err = bulker.NewObjectBulker(deps.Client, sai.ObjectTypeDashTunnelMember, opts...); err != nil {
		return nil, err
	}
	o.applier = &orch.Applier[*tunnelCtx]{
		Base:     &o.Base,
		Table:    TunnelTable,
		Validate: o.validate,
		Stages: []orch.Stage[*tunnelCtx]{
			{
				Name:     "tunnel-or-members",
				Flushers: []bulker.Flusher{o.tunnelBulker, o.memberBulker},
				Submit:   o.submitFirst,
				Resolve:  o.resolveFirst,
			},
			{
				Name:     "next-hops",
				Flushers: []bulker.Flusher{o.nextHopBulker},
				Submit:   o.submitNextHops,
				Resolve:  o.resolveNextHops,
			},
			{
				Name:     "members-or-tunnel",
				Flushers: []bulker.Flusher{o.memberBulker, o.tunnelBulker},
				Submit:   o.submitLast,
				Resolve:  o.resolveLast,
			},
		},
	}
	return o, nil
}

// Tables returns the consumed tables.
func (o *TunnelOrch) Tables() []string {
	return []string{TunnelTable}
}

// Tunnels returns view of the tunnel table.
func (o *TunnelOrch) Tunnels() dashidx.TunnelQuerier {
	return o.tunnels
}

// DoTask applies queued tunnel records.
func (o *TunnelOrch) DoTask(ctx context.Context, consumer *orch.Consumer) {
	o.applier.Apply(ctx, consumer)
}

// TunnelDump is the state of tunnels.
type TunnelDump struct {
	Tunnels map[string]*dashidx.Tunnel `json:"tunnels"`
	Partial map[string]*dashidx.Tunnel `json:"partial,omitempty"`
}

// Dump returns complete and partial tunnels.
func (o *TunnelOrch) Dump() interface{} {
	dump := TunnelDump{Tunnels: o.tunnels.ListAllItems()}
	if len(o.partial) > 0 {
		dump.Partial = make(map[string]*dashidx.Tunnel, len(o.partial))
		for name, t := range o.partial {
			dump.Partial[name] = t
		}
	}
	return dump
}

func (o *TunnelOrch) validate(task *orch.Task) (*tunnelCtx, error) {
	if err := validKey(task); err != nil {
		return nil, err
	}
	c := &tunnelCtx{task: task}
	if task.Op == swss.Del {
		return c, nil
	}
	endpoints, err := requiredField(task, "endpoints")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for _, ep := range strings.Split(endpoints, ",") {
		ip := net.ParseIP(strings.TrimSpace(ep))
		if ip == nil {
			return nil, errors.Errorf("invalid endpoint %q", ep)
		}
		if seen[ip.String()] {
			return nil, errors.Errorf("duplicate endpoint %s", ip)
		}
		seen[ip.String()] = true
		c.desired.Endpoints = append(c.desired.Endpoints, ip.String())
	}
	c.desired.EncapType = "vxlan"
	if encap, ok := task.Fields.Get("encap_type"); ok {
		if _, ok := encapTypes[encap]; !ok {
			return nil, errors.Errorf("invalid encap_type %q", encap)
		}
		c.desired.EncapType = encap
	}
	vni, err := requiredField(task, "vni")
	if err != nil {
		return nil, err
	}
	if c.desired.Vni, err = parseU32("vni", vni); err != nil {
		return nil, err
	}
	return c, nil
}

func sameTunnel(a, b *dashidx.Tunnel) bool {
	return a.EncapType == b.EncapType && a.Vni == b.Vni &&
		strings.Join(a.Endpoints, ",") == strings.Join(b.Endpoints, ",")
}

func multiEndpoint(t *dashidx.Tunnel) bool {
	return len(t.Endpoints) > 1
}

// submitFirst creates the tunnel or removes its members.
func (o *TunnelOrch) submitFirst(c *tunnelCtx) (orch.Outcome, error) {
	name := c.task.Key
	if c.task.Op == swss.Del {
		c.tunnel = o.partial[name]
		if t, ok := o.tunnels.LookupByName(name); ok {
			if t.InUse() {
				return orch.Retry, errors.Errorf("tunnel %s is used by %d routes", name, t.RefCount)
			}
			c.tunnel = t
		}
		if c.tunnel == nil {
			return orch.Committed, nil
		}
		c.removals = make(map[int]*bulker.Result)
		for i, h := range c.tunnel.Members {
			if h != sai.NullHandle {
				c.removals[i] = o.memberBulker.Remove(h)
			}
		}
		return queuedIf(len(c.removals) > 0), nil
	}

	current, complete := o.tunnels.LookupByName(name)
	if !complete {
		current = o.partial[name]
	}
	if current != nil && !sameTunnel(current, &c.desired) {
		o.Log.WithFields(logging.Fields{"tunnel": name}).
			Warn("existing tunnel cannot be changed, changes are ignored")
	}
	if complete {
		return orch.Committed, nil
	}
	if current == nil {
		t := c.desired
		if multiEndpoint(&t) {
			t.NextHops = make([]sai.Handle, len(t.Endpoints))
			t.Members = make([]sai.Handle, len(t.Endpoints))
		}
		current = &t
		o.partial[name] = current
	}
	c.tunnel = current
	if current.Handle != sai.NullHandle {
		return orch.Committed, nil
	}

	attrs := []sai.Attribute{
		{ID: sai.DashTunnelAttrEncapType, Value: sai.U32Value(encapTypes[current.EncapType])},
		{ID: sai.DashTunnelAttrVni, Value: sai.U32Value(current.Vni)},
	}
	if multiEndpoint(current) {
		attrs = append(attrs, sai.Attribute{ID: sai.DashTunnelAttrMaxMemberSize, Value: sai.U32Value(uint32(len(current.Endpoints)))})
	} else {
		attrs = append(attrs, sai.Attribute{ID: sai.DashTunnelAttrDip, Value: sai.IPValue(net.ParseIP(current.Endpoints[0]))})
	}
	res, err := o.tunnelBulker.Create(attrs)
	if err != nil {
		return orch.Invalid, err
	}
	c.create = res
	return orch.Queued, nil
}

func (o *TunnelOrch) resolveFirst(c *tunnelCtx) (orch.Outcome, error) {
	if c.task.Op == swss.Del {
		outcome, err := resolveRemovals(sai.ObjectTypeDashTunnelMember, c.removals, c.tunnel.Members)
		o.demoteIfRemoved(c.task.Key, c.removals, c.tunnel.Members)
		return outcome, err
	}
	outcome, err := resolveCreate(sai.ObjectTypeDashTunnel, c.create)
	if outcome == orch.Committed {
		c.tunnel.Handle = c.create.Handle()
	}
	return outcome, err
}

// submitNextHops creates or removes next hops of the endpoints.
func (o *TunnelOrch) submitNextHops(c *tunnelCtx) (orch.Outcome, error) {
	if c.tunnel == nil || !multiEndpoint(c.tunnel) {
		return orch.Committed, nil
	}
	if c.task.Op == swss.Del {
		c.removals = make(map[int]*bulker.Result)
		for i, h := range c.tunnel.NextHops {
			if h != sai.NullHandle {
				c.removals[i] = o.nextHopBulker.Remove(h)
			}
		}
		return queuedIf(len(c.removals) > 0), nil
	}
	c.creates = make(map[int]*bulker.ObjectResult)
	for i, h := range c.tunnel.NextHops {
		if h != sai.NullHandle {
			continue
		}
		res, err := o.nextHopBulker.Create([]sai.Attribute{
			{ID: sai.DashTunnelNextHopAttrDip, Value: sai.IPValue(net.ParseIP(c.tunnel.Endpoints[i]))},
		})
		if err != nil {
			return orch.Invalid, err
		}
		c.creates[i] = res
	}
	return queuedIf(len(c.creates) > 0), nil
}

func (o *TunnelOrch) resolveNextHops(c *tunnelCtx) (orch.Outcome, error) {
	if c.task.Op == swss.Del {
		outcome, err := resolveRemovals(sai.ObjectTypeDashTunnelNextHop, c.removals, c.tunnel.NextHops)
		o.demoteIfRemoved(c.task.Key, c.removals, c.tunnel.NextHops)
		return outcome, err
	}
	return resolveCreations(sai.ObjectTypeDashTunnelNextHop, c.creates, c.tunnel.NextHops)
}

// submitLast creates members or removes the tunnel.
func (o *TunnelOrch) submitLast(c *tunnelCtx) (orch.Outcome, error) {
	if c.tunnel == nil {
		return orch.Committed, nil
	}
	if c.task.Op == swss.Del {
		if c.tunnel.Handle == sai.NullHandle {
			return orch.Committed, nil
		}
		c.remove = o.tunnelBulker.Remove(c.tunnel.Handle)
		return orch.Queued, nil
	}
	c.creates = make(map[int]*bulker.ObjectResult)
	if multiEndpoint(c.tunnel) {
		for i, h := range c.tunnel.Members {
			if h != sai.NullHandle {
				continue
			}
			res, err := o.memberBulker.Create([]sai.Attribute{
				{ID: sai.DashTunnelMemberAttrDashTunnelID, Value: sai.HandleValue(c.tunnel.Handle)},
				{ID: sai.DashTunnelMemberAttrDashTunnelNextHopID, Value: sai.HandleValue(c.tunnel.NextHops[i])},
			})
			if err != nil {
				return orch.Invalid, err
			}
			c.creates[i] = res
		}
	}
	if len(c.creates) == 0 {
		o.complete(c)
		return orch.Committed, nil
	}
	return orch.Queued, nil
}

func (o *TunnelOrch) resolveLast(c *tunnelCtx) (orch.Outcome, error) {
	name := c.task.Key
	if c.task.Op == swss.Del {
		outcome, err := orch.ResolveResult(sai.ObjectTypeDashTunnel, orch.OpRemove, c.remove)
		if outcome == orch.Committed {
			o.tunnels.Delete(name)
			delete(o.partial, name)
			o.Log.Infof("tunnel %s removed", name)
		}
		return outcome, err
	}
	outcome, err := resolveCreations(sai.ObjectTypeDashTunnelMember, c.creates, c.tunnel.Members)
	if outcome == orch.Committed {
		o.complete(c)
	}
	return outcome, err
}

func (o *TunnelOrch) complete(c *tunnelCtx) {
	delete(o.partial, c.task.Key)
	o.tunnels.Put(c.task.Key, c.tunnel)
	o.Log.Infof("tunnel %s created with %d endpoints (%v)", c.task.Key, len(c.tunnel.Endpoints), c.tunnel.Handle)
}

// demoteIfRemoved moves the tunnel from the mirror table to partial
// tunnels once some of its objects were removed from the device.
func (o *TunnelOrch) demoteIfRemoved(name string, removals map[int]*bulker.Result, handles []sai.Handle) {
	removed := false
	for i := range removals {
		if handles[i] == sai.NullHandle {
			removed = true
			break
		}
	}
	if !removed {
		return
	}
	if t, ok := o.tunnels.LookupByName(name); ok {
		o.tunnels.Delete(name)
		o.partial[name] = t
	}
}

func queuedIf(queued bool) orch.Outcome {
	if queued {
		return orch.Queued
	}
	return orch.Committed
}

// resolveCreations stores handles of created objects, the outcome is
// the first one that is not committed.
func resolveCreations(t sai.ObjectType, creates map[int]*bulker.ObjectResult, handles []sai.Handle) (orch.Outcome, error) {
	outcome, err := orch.Committed, error(nil)
	for i := range handles {
		res, ok := creates[i]
		if !ok {
			continue
		}
		o, e := resolveCreate(t, res)
		if o == orch.Committed {
			handles[i] = res.Handle()
		} else if outcome == orch.Committed || o == orch.Fatal {
			outcome, err = o, e
		}
	}
	return outcome, err
}

// resolveRemovals clears handles of removed objects.
func resolveRemovals(t sai.ObjectType, removals map[int]*bulker.Result, handles []sai.Handle) (orch.Outcome, error) {
	outcome, err := orch.Committed, error(nil)
	for i := range handles {
		res, ok := removals[i]
		if !ok {
			continue
		}
		o, e := orch.ResolveResult(t, orch.OpRemove, res)
		if o == orch.Committed {
			handles[i] = sai.NullHandle
		} else if outcome == orch.Committed || o == orch.Fatal {
			outcome, err = o, e
		}
	}
	return outcome, err
}
