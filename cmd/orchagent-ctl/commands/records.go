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
	"fmt"
	"io/ioutil"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"go.ligato.io/orchagent/pkg/swss"
)

// TableRecord is a change record of the named table.
type TableRecord struct {
	Table string
	swss.KeyOpFieldsValues
}

// fileRecord is an item of the records file.
type fileRecord struct {
	Table  string            `json:"table"`
	Key    string            `json:"key"`
	Op     string            `json:"op,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// NewSetCommand returns command writing a SET record.
func NewSetCommand(cli *Cli) *cobra.Command {
	return &cobra.Command{
		Use:   "set TABLE KEY FIELD=VALUE...",
		Short: "Create or update an entry of a table",
		Example: `  $ orchagent-ctl set DASH_VNET_TABLE Vnet1 vni=45654 guid=559c6ce8
  $ orchagent-ctl set DASH_ROUTE_TABLE group1:10.1.0.0/16 action_type=vnet vnet=Vnet1`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFieldValues(args[2:])
			if err != nil {
				return err
			}
			record := TableRecord{Table: args[0], KeyOpFieldsValues: swss.KeyOpFieldsValues{
				Key: args[1], Op: swss.Set, Fields: fields,
			}}
			if err := cli.WriteRecords(cmd.Context(), []TableRecord{record}); err != nil {
				return err
			}
			fmt.Fprintf(cli.Out(), "%s: %s\n", record.Table, record)
			return nil
		},
	}
}

// NewDelCommand returns command writing a DEL record.
func NewDelCommand(cli *Cli) *cobra.Command {
	return &cobra.Command{
		Use:     "del TABLE KEY",
		Aliases: []string{"delete"},
		Short:   "Delete an entry of a table",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			record := TableRecord{Table: args[0], KeyOpFieldsValues: swss.KeyOpFieldsValues{
				Key: args[1], Op: swss.Del,
			}}
			if err := cli.WriteRecords(cmd.Context(), []TableRecord{record}); err != nil {
				return err
			}
			fmt.Fprintf(cli.Out(), "%s: %s\n", record.Table, record)
			return nil
		},
	}
}

// NewApplyCommand returns command writing records from a YAML file.
func NewApplyCommand(cli *Cli) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "apply -f FILE",
		Short: "Write records listed in a YAML file",
		Long: `Write records listed in a YAML file in the order of the file.

Each item has table, key, op (SET or DEL, default SET) and fields:

  - table: DASH_VNET_TABLE
    key: Vnet1
    fields:
      vni: "45654"
  - table: DASH_VNET_TABLE
    key: Vnet2
    op: DEL`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := ioutil.ReadFile(file)
			if err != nil {
				return err
			}
			records, err := parseRecords(data)
			if err != nil {
				return errors.Wrapf(err, "parsing %s failed", file)
			}
			if err := cli.WriteRecords(cmd.Context(), records); err != nil {
				return err
			}
			fmt.Fprintf(cli.Out(), "%d records written\n", len(records))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with the records")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func parseFieldValues(args []string) (swss.Fields, error) {
	fields := make(swss.Fields, 0, len(args))
	for _, arg := range args {
		i := strings.Index(arg, "=")
		if i <= 0 {
			return nil, errors.Errorf("invalid field %q, expected FIELD=VALUE", arg)
		}
		fields = append(fields, swss.FieldValue{Field: arg[:i], Value: arg[i+1:]})
	}
	return fields, nil
}

func parseRecords(data []byte) ([]TableRecord, error) {
	var items []fileRecord
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	records := make([]TableRecord, 0, len(items))
	for i, item := range items {
		if item.Table == "" || item.Key == "" {
			return nil, errors.Errorf("record %d: table and key are required", i)
		}
		op := swss.Set
		if item.Op != "" {
			var err error
			if op, err = swss.ParseOperation(item.Op); err != nil {
				return nil, errors.Wrapf(err, "record %d", i)
			}
		}
		if op == swss.Set && len(item.Fields) == 0 {
			return nil, errors.Errorf("record %d: SET of %s without fields", i, item.Key)
		}
		r := TableRecord{Table: item.Table, KeyOpFieldsValues: swss.KeyOpFieldsValues{Key: item.Key, Op: op}}
		if op == swss.Set {
			r.Fields = swss.FieldsFromMap(item.Fields)
		}
		records = append(records, r)
	}
	return records, nil
}
