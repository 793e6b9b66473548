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

// Package commands implements the orchagent-ctl commands.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"go.ligato.io/orchagent/pkg/version"
)

// RootName defines default name used for root command.
var RootName = "orchagent-ctl"

// NewRootCommand returns new root command.
func NewRootCommand(cli *Cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:           fmt.Sprintf("%s [OPTIONS] COMMAND", RootName),
		Short:         "Manage change tables and inspect the orchestration agent",
		Version:       version.Info(RootName),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return cli.Close()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&cli.AgentAddr, "agent", "a", cli.AgentAddr, "Address of the agent REST API, default from ORCHAGENT_ADDR env var")
	flags.StringVarP(&cli.Redis.Endpoint, "redis", "r", cli.Redis.Endpoint, "Redis endpoint of the change tables, default from ORCHAGENT_REDIS env var")
	flags.IntVar(&cli.Redis.DB, "db", cli.Redis.DB, "Redis database of the change tables")
	flags.DurationVar(&cli.Timeout, "timeout", cli.Timeout, "Timeout of requests to the agent")

	cmd.AddCommand(
		NewSetCommand(cli),
		NewDelCommand(cli),
		NewApplyCommand(cli),
		NewDumpCommand(cli),
	)
	return cmd
}
