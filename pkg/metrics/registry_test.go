//  Copyright (c) 2019 Cisco and/or its affiliates.
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

package metrics_test

import (
	"encoding/json"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"go.ligato.io/orchagent/pkg/metrics"
)

var n = 0

func TestRetrieve(t *testing.T) {
	g := NewWithT(t)

	metrics.Register("test-basic", func() interface{} {
		return n
	})
	defer metrics.Unregister("test-basic")

	n = 1

	data, err := metrics.Retrieve("test-basic")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(data).To(Equal(1))
	g.Expect(metrics.RetrieveAll()).To(HaveKeyWithValue("test-basic", 1))

	_, err = metrics.Retrieve("unknown")
	g.Expect(err).To(HaveOccurred())

	g.Expect(func() {
		metrics.Register("test-basic", func() interface{} { return nil })
	}).To(Panic())
}

func TestRecorder(t *testing.T) {
	g := NewWithT(t)

	r := metrics.NewRecorder()
	r.Record("bulk_create_vnet", 3, 2*time.Millisecond)
	r.Record("bulk_create_vnet", 1, 4*time.Millisecond)
	r.Record("remove_vnet", 1, time.Millisecond)

	calls := r.Snapshot()
	g.Expect(calls).To(HaveLen(2))
	g.Expect(calls["bulk_create_vnet"].Count).To(BeEquivalentTo(2))
	g.Expect(calls["bulk_create_vnet"].Items).To(BeEquivalentTo(4))
	g.Expect(calls["bulk_create_vnet"].Avg).To(Equal(metrics.Duration(3 * time.Millisecond)))
	g.Expect(calls["bulk_create_vnet"].Min).To(Equal(metrics.Duration(2 * time.Millisecond)))

	b, err := json.Marshal(calls)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(string(b)).To(HavePrefix(`[{"Name":"bulk_create_vnet"`))
}
