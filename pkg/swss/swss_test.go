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

package swss

import (
	"testing"

	. "github.com/onsi/gomega"
)

func TestFields(t *testing.T) {
	RegisterTestingT(t)

	fields := FieldsFromMap(map[string]string{"vni": "100", "guid": "a"})
	Expect(fields).To(Equal(Fields{{Field: "guid", Value: "a"}, {Field: "vni", Value: "100"}}))

	v, ok := fields.Get("vni")
	Expect(ok).To(BeTrue())
	Expect(v).To(Equal("100"))
	_, ok = fields.Get("missing")
	Expect(ok).To(BeFalse())

	rec := KeyOpFieldsValues{Key: "Vnet1", Op: Set, Fields: fields}
	Expect(rec.String()).To(Equal("SET Vnet1 {guid=a, vni=100}"))
	Expect(KeyOpFieldsValues{Key: "Vnet1", Op: Del}.String()).To(Equal("DEL Vnet1"))
}

func TestParseOperation(t *testing.T) {
	RegisterTestingT(t)

	op, err := ParseOperation("del")
	Expect(err).ToNot(HaveOccurred())
	Expect(op).To(Equal(Del))
	_, err = ParseOperation("GET")
	Expect(err).To(HaveOccurred())
}

func TestSplitKey(t *testing.T) {
	RegisterTestingT(t)

	group, prefix, ok := SplitKey("group1:2001:db8::/64")
	Expect(ok).To(BeTrue())
	Expect(group).To(Equal("group1"))
	Expect(prefix).To(Equal("2001:db8::/64"))

	_, _, ok = SplitKey("nokey")
	Expect(ok).To(BeFalse())
}
