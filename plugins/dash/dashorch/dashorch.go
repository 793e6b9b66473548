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

// Package dashorch implements orchestrators of the DASH tables.
package dashorch

import (
	"strconv"

	"github.com/pkg/errors"
	"go.ligato.io/cn-infra/v2/logging"

	"go.ligato.io/orchagent/plugins/bulker"
	"go.ligato.io/orchagent/plugins/orch"
	"go.ligato.io/orchagent/plugins/sai"
)

// Tables consumed by the orchestrators.
const (
	VnetTable       = "DASH_VNET_TABLE"
	EniTable        = "DASH_ENI_TABLE"
	EniRouteTable   = "DASH_ENI_ROUTE_TABLE"
	RouteGroupTable = "DASH_ROUTE_GROUP_TABLE"
	RouteTable      = "DASH_ROUTE_TABLE"
	TunnelTable     = "DASH_TUNNEL_TABLE"
)

// Deps are dependencies shared by the orchestrators.
type Deps struct {
	Client    sai.Client
	ErrorMode sai.BulkOpErrorMode
	Log       logging.Logger
}

func (d *Deps) bulkerOptions() []bulker.Option {
	return []bulker.Option{
		bulker.WithErrorMode(d.ErrorMode),
		bulker.WithLogger(d.Log),
	}
}

func (d *Deps) logger() logging.Logger {
	if d.Log == nil {
		return logging.DefaultLogger
	}
	return d.Log
}

func requiredField(task *orch.Task, field string) (string, error) {
	value, ok := task.Fields.Get(field)
	if !ok || value == "" {
		return "", errors.Errorf("missing field %q", field)
	}
	return value, nil
}

func parseU32(field, value string) (uint32, error) {
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, errors.Errorf("invalid %s %q", field, value)
	}
	return uint32(n), nil
}

func validKey(task *orch.Task) error {
	if task.Key == "" {
		return errors.New("empty key")
	}
	return nil
}

// resolveCreate classifies creation of an object, the object must have
// been given a handle to be committed.
func resolveCreate(t sai.ObjectType, res *bulker.ObjectResult) (orch.Outcome, error) {
	outcome, err := orch.ResolveResult(t, orch.OpCreate, &res.Result)
	if outcome == orch.Committed && res.Handle() == sai.NullHandle {
		// ItemAlreadyExists leaves the handle unknown, the object cannot
		// be mirrored nor removed later.
		return orch.Fatal, errors.WithMessage(orch.NewStatusError(t, orch.OpCreate, res.Status()),
			"object exists on device but not in mirror table")
	}
	return outcome, err
}
