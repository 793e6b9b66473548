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

// Package swss defines change records of configuration tables and
// the interfaces of tables they are read from and written to.
package swss

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Operation is the kind of change of a table entry.
type Operation string

const (
	// Set creates or updates the entry.
	Set Operation = "SET"
	// Del deletes the entry.
	Del Operation = "DEL"
)

// ParseOperation parses operation name.
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(strings.ToUpper(s)); op {
	case Set, Del:
		return op, nil
	}
	return "", errors.Errorf("unknown operation %q", s)
}

// FieldValue is a single field of an entry.
type FieldValue struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Fields is an ordered list of entry fields.
type Fields []FieldValue

// Get returns value of the field.
func (f Fields) Get(field string) (string, bool) {
	for _, fv := range f {
		if fv.Field == field {
			return fv.Value, true
		}
	}
	return "", false
}

// Map returns fields as a map, later duplicates win.
func (f Fields) Map() map[string]string {
	m := make(map[string]string, len(f))
	for _, fv := range f {
		m[fv.Field] = fv.Value
	}
	return m
}

// FieldsFromMap returns fields of the map ordered by field name.
func FieldsFromMap(m map[string]string) Fields {
	fields := make(Fields, 0, len(m))
	for k, v := range m {
		fields = append(fields, FieldValue{Field: k, Value: v})
	}
	sort.Slice(fields, func(i, j int) bool {
		return fields[i].Field < fields[j].Field
	})
	return fields
}

// KeyOpFieldsValues is a single change record of a table.
type KeyOpFieldsValues struct {
	Key    string    `json:"key"`
	Op     Operation `json:"op"`
	Fields Fields    `json:"fields,omitempty"`
}

func (r KeyOpFieldsValues) String() string {
	if len(r.Fields) == 0 {
		return fmt.Sprintf("%s %s", r.Op, r.Key)
	}
	fvs := make([]string, len(r.Fields))
	for i, fv := range r.Fields {
		fvs[i] = fv.Field + "=" + fv.Value
	}
	return fmt.Sprintf("%s %s {%s}", r.Op, r.Key, strings.Join(fvs, ", "))
}

// ConsumerTable is the source of change records of one table.
type ConsumerTable interface {
	// Name returns the table name.
	Name() string
	// Ready returns channel receiving a value when new records can be popped.
	Ready() <-chan struct{}
	// Pops returns all available records in arrival order.
	Pops(ctx context.Context) ([]KeyOpFieldsValues, error)
	// Close stops the table.
	Close() error
}

// ProducerTable writes change records to a table.
type ProducerTable interface {
	Name() string
	Set(ctx context.Context, key string, fields Fields) error
	Del(ctx context.Context, key string) error
}

// TableKeySeparator separates the table name and the key.
const TableKeySeparator = ":"

// SplitKey splits a key at the first separator.
func SplitKey(key string) (string, string, bool) {
	i := strings.Index(key, TableKeySeparator)
	if i < 0 {
		return key, "", false
	}
	return key[:i], key[i+1:], true
}
