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

package dash

import (
	"testing"

	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"go.ligato.io/orchagent/plugins/dash/dashorch"
	"go.ligato.io/orchagent/plugins/orch"
	"go.ligato.io/orchagent/plugins/sai"
	"go.ligato.io/orchagent/plugins/sai/saimock"
)

type fakeDaemon struct {
	orchs []orch.Orch
	err   error
}

func (d *fakeDaemon) RegisterOrch(o orch.Orch) error {
	if d.err != nil {
		return d.err
	}
	d.orchs = append(d.orchs, o)
	return nil
}

type fakeSAI struct {
	dev *saimock.Device
}

func (s *fakeSAI) Client() sai.Client                  { return s.dev }
func (s *fakeSAI) BulkErrorMode() sai.BulkOpErrorMode { return sai.BulkIgnoreError }

func newTestPlugin(daemon *fakeDaemon) *Plugin {
	return NewPlugin(UseDeps(func(deps *Deps) {
		deps.Daemon = daemon
		deps.SAI = &fakeSAI{dev: saimock.NewDevice(nil)}
	}))
}

func TestRegistersOrchestrators(t *testing.T) {
	RegisterTestingT(t)
	daemon := &fakeDaemon{}
	p := newTestPlugin(daemon)
	Expect(p.Init()).To(Succeed())

	var tables []string
	for _, o := range daemon.orchs {
		tables = append(tables, o.Tables()...)
	}
	Expect(tables).To(Equal([]string{
		dashorch.VnetTable,
		dashorch.TunnelTable,
		dashorch.RouteGroupTable,
		dashorch.RouteTable,
		dashorch.EniTable,
		dashorch.EniRouteTable,
	}))
	Expect(p.Vnets().ListAllNames()).To(BeEmpty())
	Expect(p.Enis().ListAllNames()).To(BeEmpty())
	Expect(p.RouteGroups().ListAllNames()).To(BeEmpty())
	Expect(p.Tunnels().ListAllNames()).To(BeEmpty())
	Expect(p.Close()).To(Succeed())
}

func TestRegistrationError(t *testing.T) {
	RegisterTestingT(t)
	daemon := &fakeDaemon{err: errors.New("daemon already started")}
	p := newTestPlugin(daemon)
	Expect(p.Init()).To(MatchError("daemon already started"))
}
