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

// Command orchagent runs the switch orchestration agent. It consumes the
// change tables, applies them through the device client and serves the
// REST API with pending tasks, failures and mirror tables.
package main

import (
	"go.ligato.io/cn-infra/v2/agent"
	"go.ligato.io/cn-infra/v2/logging"

	"go.ligato.io/orchagent/pkg/debug"
	"go.ligato.io/orchagent/pkg/version"
)

func main() {
	if debug.IsEnabled() {
		defer debug.Start(logging.DefaultLogger).Stop()
	}
	logging.DefaultLogger.Info(version.Info("orchagent"))

	a := agent.NewAgent(agent.AllPlugins(New()))
	if err := a.Run(); err != nil {
		logging.DefaultLogger.Fatalln(err)
	}
}
