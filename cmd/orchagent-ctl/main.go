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

// Command orchagent-ctl writes records into the change tables consumed by
// orchagent and queries the agent state over its REST API.
package main

import (
	"fmt"
	"os"

	"go.ligato.io/orchagent/cmd/orchagent-ctl/commands"
)

func main() {
	cli := commands.NewCli(os.Stdout, os.Stderr)
	if err := commands.NewRootCommand(cli).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\nERROR: %v\n", err)
		os.Exit(commands.ExitCode(err))
	}
}
