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
	"bytes"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/gomega"

	"go.ligato.io/orchagent/pkg/swss"
	"go.ligato.io/orchagent/plugins/orch"
	"go.ligato.io/orchagent/plugins/orchdaemon"
)

func newTestCli(t *testing.T) (*Cli, *miniredis.Miniredis, *bytes.Buffer) {
	RegisterTestingT(t)
	s, err := miniredis.Run()
	Expect(err).ToNot(HaveOccurred())
	t.Cleanup(s.Close)

	var out bytes.Buffer
	cli := NewCli(&out, &out)
	cli.Redis.Endpoint = s.Addr()
	return cli, s, &out
}

func run(cli *Cli, args ...string) error {
	cmd := NewRootCommand(cli)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestParseFieldValues(t *testing.T) {
	RegisterTestingT(t)
	fields, err := parseFieldValues([]string{"vni=100", "guid=", "ip=a=b"})
	Expect(err).ToNot(HaveOccurred())
	Expect(fields).To(Equal(swss.Fields{
		{Field: "vni", Value: "100"},
		{Field: "guid", Value: ""},
		{Field: "ip", Value: "a=b"},
	}))

	_, err = parseFieldValues([]string{"vni"})
	Expect(err).To(HaveOccurred())
	_, err = parseFieldValues([]string{"=100"})
	Expect(err).To(HaveOccurred())
}

func TestParseRecords(t *testing.T) {
	RegisterTestingT(t)
	records, err := parseRecords([]byte(`
- table: DASH_VNET_TABLE
  key: Vnet1
  fields:
    vni: "100"
    guid: abc
- table: DASH_VNET_TABLE
  key: Vnet2
  op: del
`))
	Expect(err).ToNot(HaveOccurred())
	Expect(records).To(HaveLen(2))
	Expect(records[0].Table).To(Equal("DASH_VNET_TABLE"))
	Expect(records[0].Op).To(Equal(swss.Set))
	Expect(records[0].Fields).To(Equal(swss.Fields{{Field: "guid", Value: "abc"}, {Field: "vni", Value: "100"}}))
	Expect(records[1].Op).To(Equal(swss.Del))
	Expect(records[1].Fields).To(BeEmpty())

	_, err = parseRecords([]byte("- table: T\n  key: k\n"))
	Expect(err).To(MatchError(ContainSubstring("without fields")))
	_, err = parseRecords([]byte("- table: T\n  key: k\n  op: GET\n"))
	Expect(err).To(MatchError(ContainSubstring("unknown operation")))
	_, err = parseRecords([]byte("- key: k\n  op: DEL\n"))
	Expect(err).To(MatchError(ContainSubstring("table and key are required")))
}

func TestSetAndDel(t *testing.T) {
	cli, s, out := newTestCli(t)

	Expect(run(cli, "set", "DASH_VNET_TABLE", "Vnet1", "vni=100")).To(Succeed())
	Expect(s.HGet("_DASH_VNET_TABLE:Vnet1", "vni")).To(Equal("100"))
	members, err := s.SMembers("DASH_VNET_TABLE_KEY_SET")
	Expect(err).ToNot(HaveOccurred())
	Expect(members).To(ConsistOf("Vnet1"))
	Expect(out.String()).To(ContainSubstring("SET Vnet1 {vni=100}"))

	Expect(run(cli, "del", "DASH_VNET_TABLE", "Vnet1")).To(Succeed())
	Expect(s.Exists("_DASH_VNET_TABLE:Vnet1")).To(BeFalse())
	deleted, err := s.SMembers("DASH_VNET_TABLE_DEL_SET")
	Expect(err).ToNot(HaveOccurred())
	Expect(deleted).To(ConsistOf("Vnet1"))

	Expect(run(cli, "set", "DASH_VNET_TABLE", "Vnet1", "vni")).To(HaveOccurred())
}

func TestApply(t *testing.T) {
	cli, s, out := newTestCli(t)
	file := filepath.Join(t.TempDir(), "records.yaml")
	Expect(ioutil.WriteFile(file, []byte(`
- table: DASH_VNET_TABLE
  key: Vnet1
  fields:
    vni: "100"
- table: DASH_ROUTE_GROUP_TABLE
  key: group1
  fields:
    version: "1"
`), 0o644)).To(Succeed())

	Expect(run(cli, "apply", "-f", file)).To(Succeed())
	Expect(out.String()).To(ContainSubstring("2 records written"))
	Expect(s.HGet("_DASH_VNET_TABLE:Vnet1", "vni")).To(Equal("100"))
	Expect(s.HGet("_DASH_ROUTE_GROUP_TABLE:group1", "version")).To(Equal("1"))

	Expect(run(cli, "apply")).To(HaveOccurred())
}

func TestDump(t *testing.T) {
	RegisterTestingT(t)
	tasks := map[string][]orch.Task{
		"DASH_ENI_TABLE": {{
			KeyOpFieldsValues: swss.KeyOpFieldsValues{Key: "eni1", Op: swss.Set},
			Attempts:          3,
			LastError:         `vnet "Vnet1" does not exist yet`,
		}},
	}
	failures := []*orch.Failure{{
		Table: "DASH_VNET_TABLE", Key: "Vnet2", Op: swss.Set,
		API: "create_vnet", Status: "SAI_STATUS_INSUFFICIENT_RESOURCES", Error: "create_vnet returned SAI_STATUS_INSUFFICIENT_RESOURCES",
	}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case orchdaemon.TasksURL:
			_ = json.NewEncoder(w).Encode(tasks)
		case orchdaemon.FailuresURL:
			_ = json.NewEncoder(w).Encode(failures)
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	var out bytes.Buffer
	cli := NewCli(&out, &out)
	cli.AgentAddr = strings.TrimPrefix(srv.URL, "http://")

	Expect(run(cli, "dump", "tasks")).To(Succeed())
	var decoded map[string][]orch.Task
	Expect(json.Unmarshal(out.Bytes(), &decoded)).To(Succeed())
	Expect(decoded["DASH_ENI_TABLE"][0].Attempts).To(Equal(3))

	out.Reset()
	Expect(run(cli, "dump", "tasks", "--format", "text")).To(Succeed())
	Expect(out.String()).To(ContainSubstring("SET eni1 attempts=3"))

	out.Reset()
	Expect(run(cli, "dump", "failures", "--format", "text")).To(Succeed())
	Expect(out.String()).To(ContainSubstring("DASH_VNET_TABLE:Vnet2 create_vnet"))
	Expect(out.String()).To(ContainSubstring("SAI_STATUS_INSUFFICIENT_RESOURCES"))

	err := run(cli, "dump", "mirror")
	Expect(err).To(HaveOccurred())
	Expect(ExitCode(err)).To(Equal(2))

	Expect(run(cli, "dump", "everything")).To(HaveOccurred())
}
