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

package sai

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnknownObjectType is returned for object types without registered descriptor.
var ErrUnknownObjectType = errors.New("unknown object type")

// ObjectTypeDesc describes an object type and the capabilities
// of the device API for it.
type ObjectTypeDesc struct {
	Type ObjectType
	// Name is the type name used in logs and in the ASIC database (e.g. VNET).
	Name string
	// Entity is true for entries keyed by EntityKey instead of handles.
	Entity bool
	// Bulk capabilities, items are sent one by one when unset.
	BulkCreate bool
	BulkRemove bool
	BulkSet    bool
	// AttrNames maps attribute IDs to their names.
	AttrNames map[AttrID]string
}

// AttrName returns the name of the attribute.
func (d *ObjectTypeDesc) AttrName(id AttrID) string {
	if name, ok := d.AttrNames[id]; ok {
		return name
	}
	return fmt.Sprintf("SAI_%s_ATTR_%d", d.Name, id)
}

// AttrByName returns the attribute ID with the given name.
func (d *ObjectTypeDesc) AttrByName(name string) (AttrID, bool) {
	for id, n := range d.AttrNames {
		if n == name {
			return id, true
		}
	}
	return 0, false
}

// APIName returns the device API function name for op, e.g. create_vnet.
func (d *ObjectTypeDesc) APIName(op string) string {
	if d.Entity {
		return op + "_" + strings.ToLower(d.Name) + "_entry"
	}
	return op + "_" + strings.ToLower(d.Name)
}

var objectTypes = map[ObjectType]*ObjectTypeDesc{}

// RegisterObjectType registers descriptor of an object type.
func RegisterObjectType(desc ObjectTypeDesc) *ObjectTypeDesc {
	if _, ok := objectTypes[desc.Type]; ok {
		panic(fmt.Sprintf("object type %d (%s) is already registered", desc.Type, desc.Name))
	}
	d := &desc
	objectTypes[desc.Type] = d
	return d
}

// GetObjectType returns descriptor of the object type.
func GetObjectType(t ObjectType) (*ObjectTypeDesc, error) {
	desc, ok := objectTypes[t]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownObjectType, "type %d", t)
	}
	return desc, nil
}

// ObjectTypeByName returns the object type registered with the name.
func ObjectTypeByName(name string) (ObjectType, bool) {
	for t, d := range objectTypes {
		if d.Name == name {
			return t, true
		}
	}
	return 0, false
}

// GetObjectTypes returns all registered descriptors ordered by type.
func GetObjectTypes() []*ObjectTypeDesc {
	descs := make([]*ObjectTypeDesc, 0, len(objectTypes))
	for _, d := range objectTypes {
		descs = append(descs, d)
	}
	sort.Slice(descs, func(i, j int) bool {
		return descs[i].Type < descs[j].Type
	})
	return descs
}
