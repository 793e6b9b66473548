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

package orch

import (
	"fmt"

	"github.com/pkg/errors"

	"go.ligato.io/orchagent/plugins/bulker"
	"go.ligato.io/orchagent/plugins/sai"
)

// Outcome is the state of a record in the apply loop.
type Outcome int

const (
	// Pending record was not processed yet.
	Pending Outcome = iota
	// Invalid record is malformed, it is dropped.
	Invalid
	// Queued record has its intent submitted to a bulker.
	Queued
	// Committed record reached the desired state, it is removed from the queue.
	Committed
	// Retry record stays queued and is evaluated again by the next run.
	Retry
	// Fatal record failed in the device, it is reported and dropped.
	Fatal
)

var outcomeNames = map[Outcome]string{
	Pending:   "pending",
	Invalid:   "invalid",
	Queued:    "queued",
	Committed: "committed",
	Retry:     "retry",
	Fatal:     "fatal",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("outcome-%d", int(o))
}

// Device API operations.
const (
	OpCreate = "create"
	OpRemove = "remove"
	OpSet    = "set"
)

// Classify maps the status of a device operation to the record outcome.
// Creating what already exists and removing what is already gone is
// the desired end state. Not executed items and removals of objects
// still in use are retried, any other failure is fatal.
func Classify(op string, st sai.Status) Outcome {
	switch {
	case st == sai.StatusSuccess:
		return Committed
	case st == sai.StatusItemAlreadyExists && op == OpCreate:
		return Committed
	case st == sai.StatusItemNotFound && op == OpRemove:
		return Committed
	case st == sai.StatusNotExecuted:
		return Retry
	case st == sai.StatusObjectInUse && op == OpRemove:
		return Retry
	}
	return Fatal
}

// StatusError describes a failed device operation.
type StatusError struct {
	ObjectType sai.ObjectType
	API        string
	Status     sai.Status
}

// NewStatusError returns error of the operation on the object type.
func NewStatusError(t sai.ObjectType, op string, st sai.Status) *StatusError {
	api := op + "_" + t.String()
	if desc, err := sai.GetObjectType(t); err == nil {
		api = desc.APIName(op)
	}
	return &StatusError{ObjectType: t, API: api, Status: st}
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %v", e.API, e.Status)
}

// ResolveResult classifies the result of an operation queued to a bulker.
// The returned error describes why the record is not committed.
func ResolveResult(t sai.ObjectType, op string, res *bulker.Result) (Outcome, error) {
	if res == nil {
		return Fatal, errors.Errorf("no result of %s", NewStatusError(t, op, sai.StatusFailure).API)
	}
	outcome := Classify(op, res.Status())
	if outcome == Committed {
		return Committed, nil
	}
	return outcome, NewStatusError(t, op, res.Status())
}

// DependencyError describes a missing dependency of a record.
type DependencyError struct {
	Kind string
	Name string
}

// MissingDependency returns error for the dependency that was not found.
func MissingDependency(kind, name string) error {
	return &DependencyError{Kind: kind, Name: name}
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s %q does not exist yet", e.Kind, e.Name)
}
