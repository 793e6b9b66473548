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

package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/logrusorgru/aurora"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"go.ligato.io/orchagent/plugins/orch"
	"go.ligato.io/orchagent/plugins/orchdaemon"
	"go.ligato.io/orchagent/plugins/saimux"
)

var dumpPaths = map[string]string{
	"tasks":    orchdaemon.TasksURL,
	"failures": orchdaemon.FailuresURL,
	"mirror":   orchdaemon.MirrorURL,
	"stats":    orchdaemon.StatsURL,
	"device":   saimux.StatsURL,
}

func dumpKinds() []string {
	kinds := make([]string, 0, len(dumpPaths))
	for k := range dumpPaths {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// NewDumpCommand returns command printing the agent state.
func NewDumpCommand(cli *Cli) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:       fmt.Sprintf("dump %s", strings.Join(dumpKinds(), "|")),
		Short:     "Print state of the agent",
		Args:      cobra.ExactValidArgs(1),
		ValidArgs: dumpKinds(),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]
			var data interface{}
			switch kind {
			case "tasks":
				data = &map[string][]orch.Task{}
			case "failures":
				data = &[]*orch.Failure{}
			default:
				data = &map[string]interface{}{}
			}
			if err := cli.GetJSON(cmd.Context(), dumpPaths[kind], data); err != nil {
				return err
			}
			if format == "text" {
				switch d := data.(type) {
				case *map[string][]orch.Task:
					printTasks(cli.Out(), *d)
					return nil
				case *[]*orch.Failure:
					printFailures(cli.Out(), *d)
					return nil
				}
			}
			return printJSON(cli.Out(), data)
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json or text (tasks and failures)")
	return cmd
}

func printJSON(w io.Writer, data interface{}) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding output failed")
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func printTasks(w io.Writer, tasks map[string][]orch.Task) {
	tables := make([]string, 0, len(tasks))
	for table := range tasks {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		fmt.Fprintf(w, "%s (%d pending)\n", aurora.Bold(table), len(tasks[table]))
		for _, t := range tasks[table] {
			fmt.Fprintf(w, "  %s attempts=%d", t.KeyOpFieldsValues, t.Attempts)
			if t.LastError != "" {
				fmt.Fprintf(w, " %s", aurora.Yellow(t.LastError))
			}
			fmt.Fprintln(w)
		}
	}
}

func printFailures(w io.Writer, failures []*orch.Failure) {
	if len(failures) == 0 {
		fmt.Fprintln(w, aurora.Green("no failures"))
		return
	}
	for _, f := range failures {
		fmt.Fprintf(w, "%s %s %s:%s", f.Time.Format(time.RFC3339), f.Op, f.Table, f.Key)
		if f.Status != "" {
			fmt.Fprintf(w, " %s %s", f.API, aurora.Red(f.Status))
		}
		fmt.Fprintf(w, "\n  %s\n", f.Error)
	}
}
