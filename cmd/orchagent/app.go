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

package main

import (
	"go.ligato.io/cn-infra/v2/health/probe"
	"go.ligato.io/cn-infra/v2/health/statuscheck"
	"go.ligato.io/cn-infra/v2/logging/logmanager"
	"go.ligato.io/cn-infra/v2/rpc/rest"

	"go.ligato.io/orchagent/plugins/dash"
	"go.ligato.io/orchagent/plugins/orchdaemon"
	"go.ligato.io/orchagent/plugins/saimux"
	"go.ligato.io/orchagent/plugins/swsstable"
)

// OrchAgent groups the plugins of the agent. Plugins are initialized
// in the order of the fields.
type OrchAgent struct {
	LogManager  *logmanager.Plugin
	REST        *rest.Plugin
	StatusCheck *statuscheck.Plugin
	Probe       *probe.Plugin

	Tables *swsstable.Plugin
	SAI    *saimux.Plugin
	Daemon *orchdaemon.Plugin
	Dash   *dash.Plugin
}

// New returns the agent with default plugins.
func New() *OrchAgent {
	return &OrchAgent{
		LogManager:  &logmanager.DefaultPlugin,
		REST:        &rest.DefaultPlugin,
		StatusCheck: &statuscheck.DefaultPlugin,
		Probe:       &probe.DefaultPlugin,
		Tables:      &swsstable.DefaultPlugin,
		SAI:         &saimux.DefaultPlugin,
		Daemon:      &orchdaemon.DefaultPlugin,
		Dash:        &dash.DefaultPlugin,
	}
}

func (OrchAgent) String() string {
	return "OrchAgent"
}

func (OrchAgent) Init() error {
	return nil
}

func (OrchAgent) AfterInit() error {
	return nil
}

func (OrchAgent) Close() error {
	return nil
}
