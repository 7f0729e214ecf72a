// Copyright 2026 The Stratum Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package docdb

import (
	"bytes"
	"fmt"
	"net"
	"strconv"

	"github.com/stratumdb/stratum/pkg/util/encoding"
)

// ValueType tags every key component and every stored value. The byte
// values double as the first byte of the corresponding encoding, so the
// numeric order of the tags is load-bearing:
//
//   - kHybridTime sorts below every component tag, keeping all versions of
//     a path contiguous and ahead of the path's descendants;
//   - kSystemColumnID sorts below kColumnID so liveness columns precede
//     user columns within a row.
type ValueType byte

const (
	// kGroupEnd terminates a document key component group.
	kGroupEnd ValueType = '!'
	// kHybridTime introduces the encoded write time suffix of a key.
	kHybridTime ValueType = '#'

	kNull           ValueType = '$'
	kArrayIndex     ValueType = 'A'
	kSystemColumnID ValueType = 'B'
	kColumnID       ValueType = 'C'
	kFalse          ValueType = 'F'
	kUInt16Hash     ValueType = 'G'
	kInt64          ValueType = 'I'
	kString         ValueType = 'S'
	kTrue           ValueType = 'T'
	kTombstone      ValueType = 'X'
	kArray          ValueType = '['
	kInetaddress    ValueType = 'a'
	kTimestamp      ValueType = 's'
	kTTL            ValueType = 't'
	kUserTimestamp  ValueType = 'u'
	kObject         ValueType = '{'

	kInvalidValueType ValueType = 255
)

// minComponentTag is the smallest tag a key component can start with.
// Seeking to path+minComponentTag skips every version of the path while
// stopping before its first descendant.
const minComponentTag = byte(kNull)

func (t ValueType) String() string {
	switch t {
	case kGroupEnd:
		return "GroupEnd"
	case kHybridTime:
		return "HybridTime"
	case kNull:
		return "Null"
	case kArrayIndex:
		return "ArrayIndex"
	case kSystemColumnID:
		return "SystemColumnId"
	case kColumnID:
		return "ColumnId"
	case kFalse:
		return "False"
	case kUInt16Hash:
		return "UInt16Hash"
	case kInt64:
		return "Int64"
	case kString:
		return "String"
	case kTrue:
		return "True"
	case kTombstone:
		return "Tombstone"
	case kArray:
		return "Array"
	case kInetaddress:
		return "Inetaddress"
	case kTimestamp:
		return "Timestamp"
	case kTTL:
		return "TTL"
	case kUserTimestamp:
		return "UserTimestamp"
	case kObject:
		return "Object"
	default:
		return fmt.Sprintf("ValueType(0x%02x)", byte(t))
	}
}

// IsContainer reports whether t marks the root of an object or array.
func (t ValueType) IsContainer() bool {
	return t == kObject || t == kArray
}

// PrimitiveValue is one member of the closed set of scalar values that can
// appear as a key component or as a stored leaf. The zero value is
// invalid.
type PrimitiveValue struct {
	typ ValueType
	i   int64  // kInt64, kArrayIndex, kTimestamp
	s   string // kString
	u   uint32 // kColumnID, kSystemColumnID
	ip  net.IP // kInetaddress
}

// NewStringValue returns a string primitive.
func NewStringValue(s string) PrimitiveValue {
	return PrimitiveValue{typ: kString, s: s}
}

// NewInt64Value returns a signed integer primitive.
func NewInt64Value(v int64) PrimitiveValue {
	return PrimitiveValue{typ: kInt64, i: v}
}

// NewBoolValue returns a boolean primitive.
func NewBoolValue(v bool) PrimitiveValue {
	if v {
		return PrimitiveValue{typ: kTrue}
	}
	return PrimitiveValue{typ: kFalse}
}

// NewNullValue returns the null primitive.
func NewNullValue() PrimitiveValue {
	return PrimitiveValue{typ: kNull}
}

// NewTombstoneValue returns the deletion marker.
func NewTombstoneValue() PrimitiveValue {
	return PrimitiveValue{typ: kTombstone}
}

// NewObjectValue returns the object container marker.
func NewObjectValue() PrimitiveValue {
	return PrimitiveValue{typ: kObject}
}

// NewArrayValue returns the array container marker.
func NewArrayValue() PrimitiveValue {
	return PrimitiveValue{typ: kArray}
}

// NewTimestampValue returns a timestamp primitive holding microseconds
// since the epoch.
func NewTimestampValue(micros int64) PrimitiveValue {
	return PrimitiveValue{typ: kTimestamp, i: micros}
}

// NewInetValue returns an inet-address primitive. IPv4 addresses are held
// in 4-byte form so that, encoded, they sort as prefixes of the 16-byte
// IPv6 space.
func NewInetValue(ip net.IP) PrimitiveValue {
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	return PrimitiveValue{typ: kInetaddress, ip: ip}
}

// NewColumnIDValue returns a column-id subkey component.
func NewColumnIDValue(id uint32) PrimitiveValue {
	return PrimitiveValue{typ: kColumnID, u: id}
}

// NewSystemColumnIDValue returns a system-column-id subkey component.
// System columns sort before all regular columns of the same row.
func NewSystemColumnIDValue(id uint32) PrimitiveValue {
	return PrimitiveValue{typ: kSystemColumnID, u: id}
}

// NewArrayIndexValue returns the synthetic list position component.
func NewArrayIndexValue(idx int64) PrimitiveValue {
	return PrimitiveValue{typ: kArrayIndex, i: idx}
}

// Type returns the variant tag.
func (v PrimitiveValue) Type() ValueType { return v.typ }

// IsTombstone reports whether v is the deletion marker.
func (v PrimitiveValue) IsTombstone() bool { return v.typ == kTombstone }

// StringValue returns the string payload. Valid only for string
// primitives.
func (v PrimitiveValue) StringValue() string { return v.s }

// Int64 returns the integer payload of an int64, array-index or timestamp
// primitive.
func (v PrimitiveValue) Int64() int64 { return v.i }

// ColumnID returns the id payload of a column-id or system-column-id
// primitive.
func (v PrimitiveValue) ColumnID() uint32 { return v.u }

// Inet returns the address payload of an inet primitive.
func (v PrimitiveValue) Inet() net.IP { return v.ip }

// AppendToKey appends the order-preserving key encoding of v to b.
func (v PrimitiveValue) AppendToKey(b []byte) []byte {
	b = append(b, byte(v.typ))
	switch v.typ {
	case kNull, kTrue, kFalse:
		return b
	case kString:
		return encoding.EncodeStringAscending(b, v.s)
	case kInt64, kArrayIndex, kTimestamp:
		return encoding.EncodeInt64Ascending(b, v.i)
	case kColumnID, kSystemColumnID:
		return encoding.EncodeUint32Ascending(b, v.u)
	case kInetaddress:
		return encoding.EncodeBytesAscending(b, v.ip)
	default:
		panic(fmt.Sprintf("not encodable as a key component: %s", v.typ))
	}
}

// decodePrimitiveFromKey consumes one key component from b.
func decodePrimitiveFromKey(b []byte) ([]byte, PrimitiveValue, error) {
	if len(b) == 0 {
		return nil, PrimitiveValue{}, NewCorruption(b, "empty buffer while decoding key component")
	}
	typ := ValueType(b[0])
	rest := b[1:]
	switch typ {
	case kNull, kTrue, kFalse:
		return rest, PrimitiveValue{typ: typ}, nil
	case kString:
		rest, s, err := encoding.DecodeStringAscending(rest)
		if err != nil {
			return nil, PrimitiveValue{}, WrapCorruption(err, b, "decoding string component")
		}
		return rest, PrimitiveValue{typ: typ, s: s}, nil
	case kInt64, kArrayIndex, kTimestamp:
		rest, i, err := encoding.DecodeInt64Ascending(rest)
		if err != nil {
			return nil, PrimitiveValue{}, WrapCorruption(err, b, "decoding integer component")
		}
		return rest, PrimitiveValue{typ: typ, i: i}, nil
	case kColumnID, kSystemColumnID:
		rest, u, err := encoding.DecodeUint32Ascending(rest)
		if err != nil {
			return nil, PrimitiveValue{}, WrapCorruption(err, b, "decoding column id component")
		}
		return rest, PrimitiveValue{typ: typ, u: u}, nil
	case kInetaddress:
		rest, raw, err := encoding.DecodeBytesAscending(rest)
		if err != nil {
			return nil, PrimitiveValue{}, WrapCorruption(err, b, "decoding inet component")
		}
		if len(raw) != net.IPv4len && len(raw) != net.IPv6len {
			return nil, PrimitiveValue{}, NewCorruption(b, "inet component has %d bytes", len(raw))
		}
		return rest, PrimitiveValue{typ: typ, ip: net.IP(raw)}, nil
	default:
		return nil, PrimitiveValue{}, NewCorruption(b, "unknown key component tag %s", typ)
	}
}

// CompareTo orders primitives the way their key encodings do.
func (v PrimitiveValue) CompareTo(o PrimitiveValue) int {
	return bytes.Compare(v.AppendToKey(nil), o.AppendToKey(nil))
}

// Equal reports deep equality.
func (v PrimitiveValue) Equal(o PrimitiveValue) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case kInetaddress:
		return v.ip.Equal(o.ip)
	default:
		return v.i == o.i && v.s == o.s && v.u == o.u
	}
}

// String renders the canonical debug form.
func (v PrimitiveValue) String() string {
	switch v.typ {
	case kNull:
		return "null"
	case kTrue:
		return "true"
	case kFalse:
		return "false"
	case kString:
		return strconv.Quote(v.s)
	case kInt64:
		return strconv.FormatInt(v.i, 10)
	case kArrayIndex:
		return fmt.Sprintf("ArrayIndex(%d)", v.i)
	case kColumnID:
		return fmt.Sprintf("ColumnId(%d)", v.u)
	case kSystemColumnID:
		return fmt.Sprintf("SystemColumnId(%d)", v.u)
	case kTimestamp:
		return fmt.Sprintf("Timestamp(%d)", v.i)
	case kInetaddress:
		return v.ip.String()
	case kTombstone:
		return "DEL"
	case kObject:
		return "{}"
	case kArray:
		return "[]"
	default:
		return v.typ.String()
	}
}
