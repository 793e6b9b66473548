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
	"net"
	"strconv"
	"strings"
)

// ObjectType identifies a kind of hardware object.
type ObjectType uint32

// String returns the registered name of the object type.
func (t ObjectType) String() string {
	if desc, ok := objectTypes[t]; ok {
		return desc.Name
	}
	return "OBJECT_TYPE_" + strconv.Itoa(int(t))
}

// Handle is an opaque reference to an object created in hardware.
type Handle uint64

// NullHandle is never assigned to a created object.
const NullHandle Handle = 0

// String returns handle in the OID notation.
func (h Handle) String() string {
	return fmt.Sprintf("oid:0x%x", uint64(h))
}

// AttrID identifies an attribute within the scope of its object type.
type AttrID uint32

// Attribute is a single attribute assignment.
type Attribute struct {
	ID    AttrID
	Value AttrValue
}

// ValueKind tags the field of AttrValue that carries the value.
type ValueKind uint8

const (
	KindNone ValueKind = iota
	KindBool
	KindU32
	KindU64
	KindHandle
	KindString
	KindIP
	KindPrefix
	KindMAC
	KindHandleList
)

// AttrValue is a tagged union of the attribute value types used by the device API.
type AttrValue struct {
	Kind    ValueKind
	Bool    bool
	U32     uint32
	U64     uint64
	Handle  Handle
	Str     string
	IP      net.IP
	Prefix  *net.IPNet
	MAC     net.HardwareAddr
	Handles []Handle
}

func BoolValue(b bool) AttrValue              { return AttrValue{Kind: KindBool, Bool: b} }
func U32Value(v uint32) AttrValue             { return AttrValue{Kind: KindU32, U32: v} }
func U64Value(v uint64) AttrValue             { return AttrValue{Kind: KindU64, U64: v} }
func HandleValue(h Handle) AttrValue          { return AttrValue{Kind: KindHandle, Handle: h} }
func StringValue(s string) AttrValue          { return AttrValue{Kind: KindString, Str: s} }
func IPValue(ip net.IP) AttrValue             { return AttrValue{Kind: KindIP, IP: ip} }
func PrefixValue(p *net.IPNet) AttrValue      { return AttrValue{Kind: KindPrefix, Prefix: p} }
func MACValue(mac net.HardwareAddr) AttrValue { return AttrValue{Kind: KindMAC, MAC: mac} }
func HandleListValue(hs ...Handle) AttrValue  { return AttrValue{Kind: KindHandleList, Handles: hs} }

// String returns the value formatted the way it is stored in the ASIC database.
func (v AttrValue) String() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindU32:
		return strconv.FormatUint(uint64(v.U32), 10)
	case KindU64:
		return strconv.FormatUint(v.U64, 10)
	case KindHandle:
		return v.Handle.String()
	case KindString:
		return v.Str
	case KindIP:
		return v.IP.String()
	case KindPrefix:
		if v.Prefix == nil {
			return ""
		}
		return v.Prefix.String()
	case KindMAC:
		return v.MAC.String()
	case KindHandleList:
		oids := make([]string, len(v.Handles))
		for i, h := range v.Handles {
			oids[i] = h.String()
		}
		return fmt.Sprintf("%d:%s", len(oids), strings.Join(oids, ","))
	}
	return "NULL"
}

// References returns handles the value points to.
func (v AttrValue) References() []Handle {
	switch v.Kind {
	case KindHandle:
		if v.Handle != NullHandle {
			return []Handle{v.Handle}
		}
	case KindHandleList:
		var hs []Handle
		for _, h := range v.Handles {
			if h != NullHandle {
				hs = append(hs, h)
			}
		}
		return hs
	}
	return nil
}

// Equal compares two values of the same kind.
func (v AttrValue) Equal(o AttrValue) bool {
	return v.Kind == o.Kind && v.String() == o.String()
}

// String returns attribute in the form NAME=value.
func (a Attribute) String() string {
	return fmt.Sprintf("%d=%s", a.ID, a.Value)
}

// EntityKey is a structured key of an entry that is addressed by the caller
// and not by a handle assigned by hardware.
type EntityKey interface {
	String() string
}

// KeyReferences is implemented by entity keys that embed handles of other objects.
type KeyReferences interface {
	References() []Handle
}
