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

	"github.com/pkg/errors"
	"go.ligato.io/cn-infra/v2/logging"

	"go.ligato.io/orchagent/pkg/idxsai"
	"go.ligato.io/orchagent/pkg/swss"
	"go.ligato.io/orchagent/plugins/bulker"
	"go.ligato.io/orchagent/plugins/dash/dashidx"
	"go.ligato.io/orchagent/plugins/orch"
	"go.ligato.io/orchagent/plugins/sai"
)

// VnetOrch programs VNETs.
type VnetOrch struct {
	orch.Base
	vnets   *idxsai.Table[*dashidx.Vnet]
	bulker  *bulker.ObjectBulker
	applier *orch.Applier[*vnetCtx]
}

type vnetCtx struct {
	task   *orch.Task
	vnet   dashidx.Vnet
	create *bulker.ObjectResult
	remove *bulker.Result
}

// NewVnetOrch returns orchestrator of the VNET table.
func NewVnetOrch(deps Deps) (*VnetOrch, error) {
	o := &VnetOrch{
		Base:  orch.NewBase("vnet", deps.logger()),
		vnets: dashidx.NewVnetTable(deps.logger()),
	}
	var err error
	if o.bulker, err = bulker.NewObjectBulker(deps.Client, sai.ObjectTypeVnet, deps.bulkerOptions()...); err != nil {
		return nil, err
	}
	o.applier = &orch.Applier[*vnetCtx]{
		Base:     &o.Base,
		Table:    VnetTable,
		Validate: o.validate,
		Stages: []orch.Stage[*vnetCtx]{{
			Name:     "vnet",
			Flushers: []bulker.Flusher{o.bulker},
			Submit:   o.submit,
			Resolve:  o.resolve,
		}},
	}
	return o, nil
}

// Tables returns the consumed tables.
func (o *VnetOrch) Tables() []string {
	return []string{VnetTable}
}

// Vnets returns view of the VNET table.
func (o *VnetOrch) Vnets() dashidx.VnetQuerier {
	return o.vnets
}

// DoTask applies queued VNET records.
func (o *VnetOrch) DoTask(ctx context.Context, consumer *orch.Consumer) {
	o.applier.Apply(ctx, consumer)
}

// Dump returns the VNET mirror.
func (o *VnetOrch) Dump() interface{} {
	return o.vnets.ListAllItems()
}

func (o *VnetOrch) validate(task *orch.Task) (*vnetCtx, error) {
	if err := validKey(task); err != nil {
		return nil, err
	}
	c := &vnetCtx{task: task}
	if task.Op == swss.Del {
		return c, nil
	}
	value, err := requiredField(task, "vni")
	if err != nil {
		return nil, err
	}
	if c.vnet.Vni, err = parseU32("vni", value); err != nil {
		return nil, err
	}
	c.vnet.GUID, _ = task.Fields.Get("guid")
	return c, nil
}

func (o *VnetOrch) submit(c *vnetCtx) (orch.Outcome, error) {
	existing, exists := o.vnets.LookupByName(c.task.Key)
	if c.task.Op == swss.Del {
		if !exists {
			return orch.Committed, nil
		}
		if existing.InUse() {
			return orch.Retry, errors.Errorf("vnet %s is in use (%d references)", c.task.Key, existing.RefCount)
		}
		c.remove = o.bulker.Remove(existing.Handle)
		return orch.Queued, nil
	}
	if exists {
		if existing.Vni != c.vnet.Vni {
			o.Log.WithFields(logging.Fields{"vnet": c.task.Key, "vni": existing.Vni}).
				Warnf("vni of existing vnet cannot be changed to %d", c.vnet.Vni)
		}
		existing.GUID = c.vnet.GUID
		return orch.Committed, nil
	}
	res, err := o.bulker.Create([]sai.Attribute{
		{ID: sai.VnetAttrVni, Value: sai.U32Value(c.vnet.Vni)},
	})
	if err != nil {
		return orch.Invalid, err
	}
	c.create = res
	return orch.Queued, nil
}

func (o *VnetOrch) resolve(c *vnetCtx) (orch.Outcome, error) {
	if c.task.Op == swss.Del {
		outcome, err := orch.ResolveResult(sai.ObjectTypeVnet, orch.OpRemove, c.remove)
		if outcome == orch.Committed {
			o.vnets.Delete(c.task.Key)
			o.Log.Infof("vnet %s removed", c.task.Key)
		}
		return outcome, err
	}
	outcome, err := resolveCreate(sai.ObjectTypeVnet, c.create)
	if outcome == orch.Committed {
		vnet := c.vnet
		vnet.Handle = c.create.Handle()
		o.vnets.Put(c.task.Key, &vnet)
		o.Log.Infof("vnet %s created with vni %d (%v)", c.task.Key, vnet.Vni, vnet.Handle)
	}
	return outcome, err
}
