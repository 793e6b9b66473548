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
	"context"

	"go.ligato.io/cn-infra/v2/logging"
)

// Orch applies records of its tables to the device.
type Orch interface {
	// GetName returns name of the orchestrator.
	GetName() string
	// Tables returns names of consumed tables in order they
	// should be processed.
	Tables() []string
	// Configure sets the retry policy and the failure handler.
	Configure(policy RetryPolicy, onFailure FailureHandler)
	// DoTask applies queued records of the consumer.
	DoTask(ctx context.Context, consumer *Consumer)
	// Dump returns state of the orchestrator for debugging.
	Dump() interface{}
}

// RetryPolicy limits retries of queued records.
type RetryPolicy struct {
	// MaxAttempts drops records after number of retries,
	// zero retries forever.
	MaxAttempts int `json:"max-attempts"`
	// WarnAttempts logs warning when record reaches number of retries.
	WarnAttempts int `json:"warn-attempts"`
}

// DefaultRetryPolicy retries forever and warns after 10 attempts.
var DefaultRetryPolicy = RetryPolicy{WarnAttempts: 10}

// Base implements the shared part of Orch.
type Base struct {
	Name      string
	Log       logging.Logger
	Policy    RetryPolicy
	OnFailure FailureHandler
}

// NewBase returns base of the named orchestrator.
func NewBase(name string, log logging.Logger) Base {
	if log == nil {
		log = logging.DefaultLogger
	}
	return Base{Name: name, Log: log, Policy: DefaultRetryPolicy}
}

func (b *Base) GetName() string {
	return b.Name
}

func (b *Base) Configure(policy RetryPolicy, onFailure FailureHandler) {
	b.Policy = policy
	b.OnFailure = onFailure
}

func (b *Base) fail(f *Failure) {
	if b.OnFailure != nil {
		b.OnFailure(f)
	}
}
