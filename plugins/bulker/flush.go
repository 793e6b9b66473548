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

package bulker

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.ligato.io/cn-infra/v2/logging"

	"go.ligato.io/orchagent/plugins/sai"
)

// ErrInvalidArgument is returned when an operation is called with a zero key
// or without attributes.
var ErrInvalidArgument = errors.New("invalid argument")

// Flusher is implemented by both bulker variants.
type Flusher interface {
	// Flush submits all pending operations to the device.
	Flush(ctx context.Context) error
	// Clear drops all pending operations.
	Clear()
	// Len returns number of pending operations.
	Len() int
}

// Option configures a bulker.
type Option func(*options)

type options struct {
	mode   sai.BulkOpErrorMode
	policy CoalescePolicy
	log    logging.Logger
}

func defaultOptions() options {
	return options{
		mode:   sai.BulkIgnoreError,
		policy: CancelRemoval,
		log:    logging.DefaultLogger,
	}
}

// WithErrorMode sets error mode of bulk calls.
func WithErrorMode(mode sai.BulkOpErrorMode) Option {
	return func(o *options) {
		o.mode = mode
	}
}

// WithCoalescePolicy sets what create of a key pending removal does.
func WithCoalescePolicy(policy CoalescePolicy) Option {
	return func(o *options) {
		o.policy = policy
	}
}

// WithLogger sets the logger used by the bulker.
func WithLogger(log logging.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// call describes one flushed operation type of a bulker.
type call struct {
	desc    *sai.ObjectTypeDesc
	op      string
	mode    sai.BulkOpErrorMode
	bulk    bool
	results []*Result
	// bulkFn issues single bulk call for all items
	bulkFn func() ([]sai.Status, error)
	// itemFn issues call for i-th item
	itemFn func(i int) (sai.Status, error)
	// done is called for every resolved item
	done func(i int)
}

func (c *call) api() string {
	if c.bulk {
		return "bulk_" + c.desc.APIName(c.op)
	}
	return c.desc.APIName(c.op)
}

// run issues the call and resolves item results. Items not reached
// because of an error stay unresolved.
func (c *call) run() error {
	typ := c.desc.Name
	start := time.Now()
	defer func() {
		reportCall(c.api(), typ, c.op, c.bulk, len(c.results), time.Since(start))
	}()

	if c.bulk {
		statuses, err := c.bulkFn()
		if err != nil {
			return errors.Wrapf(err, "%s of %d items failed", c.api(), len(c.results))
		}
		if len(statuses) != len(c.results) {
			return errors.Errorf("%s returned %d statuses for %d items", c.api(), len(statuses), len(c.results))
		}
		for i, st := range statuses {
			c.results[i].resolve(st)
			if c.done != nil {
				c.done(i)
			}
		}
		reportItems(typ, c.op, c.results)
		return nil
	}

	// device has no bulk entry point, emulate the error mode
	defer reportItems(typ, c.op, c.results)
	for i := range c.results {
		st, err := c.itemFn(i)
		if err != nil {
			return errors.Wrapf(err, "%s failed for item %d of %d", c.api(), i, len(c.results))
		}
		c.results[i].resolve(st)
		if c.done != nil {
			c.done(i)
		}
		if st != sai.StatusSuccess && c.mode == sai.BulkStopOnError {
			break
		}
	}
	return nil
}
