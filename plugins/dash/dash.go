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

// Package dash registers orchestrators of the DASH tables with
// the daemon.
package dash

import (
	"go.ligato.io/cn-infra/v2/infra"

	"go.ligato.io/orchagent/plugins/dash/dashidx"
	"go.ligato.io/orchagent/plugins/dash/dashorch"
	"go.ligato.io/orchagent/plugins/orch"
	"go.ligato.io/orchagent/plugins/orchdaemon"
	"go.ligato.io/orchagent/plugins/saimux"
)

// Plugin composes the DASH orchestrators.
type Plugin struct {
	Deps

	vnets   *dashorch.VnetOrch
	tunnels *dashorch.TunnelOrch
	routes  *dashorch.RouteOrch
	enis    *dashorch.EniOrch
}

// Deps defines dependencies for the dash plugin.
type Deps struct {
	infra.PluginDeps
	Daemon orchdaemon.API
	SAI    saimux.API
}

// Init creates the orchestrators and registers them. Tables are
// processed in the order of registration, dependencies first.
func (p *Plugin) Init() (err error) {
	deps := dashorch.Deps{
		Client:    p.SAI.Client(),
		ErrorMode: p.SAI.BulkErrorMode(),
		Log:       p.Log,
	}
	if p.vnets, err = dashorch.NewVnetOrch(deps); err != nil {
		return err
	}
	if p.tunnels, err = dashorch.NewTunnelOrch(deps); err != nil {
		return err
	}
	if p.routes, err = dashorch.NewRouteOrch(deps, p.vnets.Vnets(), p.tunnels.Tunnels()); err != nil {
		return err
	}
	if p.enis, err = dashorch.NewEniOrch(deps, p.vnets.Vnets(), p.routes.RouteGroups()); err != nil {
		return err
	}
	for _, o := range []orch.Orch{p.vnets, p.tunnels, p.routes, p.enis} {
		if err := p.Daemon.RegisterOrch(o); err != nil {
			return err
		}
	}
	return nil
}

// Close does nothing, the daemon stops the orchestrators.
func (p *Plugin) Close() error {
	return nil
}

// Vnets returns view of committed VNETs.
func (p *Plugin) Vnets() dashidx.VnetQuerier {
	return p.vnets.Vnets()
}

// Enis returns view of committed ENIs.
func (p *Plugin) Enis() dashidx.EniQuerier {
	return p.enis.Enis()
}

// RouteGroups returns view of committed route groups.
func (p *Plugin) RouteGroups() dashidx.RouteGroupQuerier {
	return p.routes.RouteGroups()
}

// Tunnels returns view of committed tunnels.
func (p *Plugin) Tunnels() dashidx.TunnelQuerier {
	return p.tunnels.Tunnels()
}
