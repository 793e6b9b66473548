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
	"fmt"

	"go.ligato.io/orchagent/plugins/sai"
)

// Result is a slot for the status of a single pending operation.
// It is filled in by Flush and must not be read before Flush returns.
type Result struct {
	status    sai.Status
	done      bool
	coalesced bool
}

func newResult() *Result {
	return &Result{status: sai.StatusNotExecuted}
}

// Status returns the item status. Before the item was flushed it is
// StatusNotExecuted.
func (r *Result) Status() sai.Status {
	return r.status
}

// Done returns true if the operation was resolved.
func (r *Result) Done() bool {
	return r.done
}

// Coalesced returns true if the operation was resolved without
// a device call because another operation on the same key cancelled it.
func (r *Result) Coalesced() bool {
	return r.coalesced
}

func (r *Result) String() string {
	if r.coalesced {
		return fmt.Sprintf("%v (coalesced)", r.status)
	}
	return r.status.String()
}

func (r *Result) resolve(st sai.Status) {
	r.status = st
	r.done = true
}

func (r *Result) coalesce() {
	r.status = sai.StatusSuccess
	r.done = true
	r.coalesced = true
}

func (r *Result) abort() {
	if !r.done {
		r.status = sai.StatusNotExecuted
		r.done = true
	}
}

// ObjectResult is a Result of object creation carrying the handle
// assigned by the device.
type ObjectResult struct {
	Result
	handle  sai.Handle
	pending uint64
}

// Handle returns handle of the created object, NullHandle until
// the object was created.
func (r *ObjectResult) Handle() sai.Handle {
	return r.handle
}
