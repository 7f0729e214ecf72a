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
	"math"
	"net"
	"time"

	"github.com/stratumdb/stratum/pkg/util/encoding"
	"github.com/stratumdb/stratum/pkg/util/hlc"
)

// TTLUnset means the record carries no expiry of its own; the table
// default, if any, applies.
const TTLUnset time.Duration = -1

// UserTimestampUnset means the record carries no user timestamp.
const UserTimestampUnset int64 = math.MinInt64

// Value is what gets stored against a versioned key: a primitive plus
// optional expiry and user-timestamp metadata. An explicit TTL of zero
// means the record never expires, overriding any table default.
type Value struct {
	Primitive     PrimitiveValue
	TTL           time.Duration
	UserTimestamp int64
}

// NewValue wraps a primitive with no metadata.
func NewValue(pv PrimitiveValue) Value {
	return Value{Primitive: pv, TTL: TTLUnset, UserTimestamp: UserTimestampUnset}
}

// NewValueWithTTL wraps a primitive with an explicit expiry.
func NewValueWithTTL(pv PrimitiveValue, ttl time.Duration) Value {
	return Value{Primitive: pv, TTL: ttl, UserTimestamp: UserTimestampUnset}
}

// WithUserTimestamp returns a copy of v carrying a user timestamp.
func (v Value) WithUserTimestamp(ts int64) Value {
	v.UserTimestamp = ts
	return v
}

// HasTTL reports whether an explicit TTL is set, including the special
// zero TTL.
func (v Value) HasTTL() bool { return v.TTL != TTLUnset }

// HasUserTimestamp reports whether a user timestamp is set.
func (v Value) HasUserTimestamp() bool { return v.UserTimestamp != UserTimestampUnset }

// Encode returns the wire form: optional TTL section, optional
// user-timestamp section, then the tagged primitive. Values are
// length-delimited by the record, so strings and addresses are stored
// raw after their tag.
func (v Value) Encode() []byte {
	var b []byte
	if v.HasTTL() {
		b = append(b, byte(kTTL))
		b = encoding.EncodeInt64Ascending(b, v.TTL.Microseconds())
	}
	if v.HasUserTimestamp() {
		b = append(b, byte(kUserTimestamp))
		b = encoding.EncodeInt64Ascending(b, v.UserTimestamp)
	}
	pv := v.Primitive
	b = append(b, byte(pv.typ))
	switch pv.typ {
	case kNull, kTrue, kFalse, kTombstone, kObject, kArray:
		return b
	case kString:
		return append(b, pv.s...)
	case kInetaddress:
		return append(b, pv.ip...)
	case kInt64, kTimestamp:
		return encoding.EncodeInt64Ascending(b, pv.i)
	default:
		panic("not encodable as a value: " + pv.typ.String())
	}
}

// DecodeValue parses a stored value.
func DecodeValue(b []byte) (Value, error) {
	v := Value{TTL: TTLUnset, UserTimestamp: UserTimestampUnset}
	rest := b
	if len(rest) > 0 && ValueType(rest[0]) == kTTL {
		var micros int64
		var err error
		rest, micros, err = encoding.DecodeInt64Ascending(rest[1:])
		if err != nil {
			return Value{}, WrapCorruption(err, b, "decoding value ttl")
		}
		v.TTL = time.Duration(micros) * time.Microsecond
	}
	if len(rest) > 0 && ValueType(rest[0]) == kUserTimestamp {
		var err error
		rest, v.UserTimestamp, err = encoding.DecodeInt64Ascending(rest[1:])
		if err != nil {
			return Value{}, WrapCorruption(err, b, "decoding user timestamp")
		}
	}
	if len(rest) == 0 {
		return Value{}, NewCorruption(b, "value missing primitive")
	}
	typ := ValueType(rest[0])
	rest = rest[1:]
	switch typ {
	case kNull, kTrue, kFalse, kTombstone, kObject, kArray:
		if len(rest) != 0 {
			return Value{}, NewCorruption(b, "%d trailing bytes after %s value", len(rest), typ)
		}
		v.Primitive = PrimitiveValue{typ: typ}
	case kString:
		v.Primitive = PrimitiveValue{typ: typ, s: string(rest)}
	case kInetaddress:
		if len(rest) != net.IPv4len && len(rest) != net.IPv6len {
			return Value{}, NewCorruption(b, "inet value has %d bytes", len(rest))
		}
		v.Primitive = PrimitiveValue{typ: typ, ip: net.IP(append([]byte(nil), rest...))}
	case kInt64, kTimestamp:
		var i int64
		var err error
		rest, i, err = encoding.DecodeInt64Ascending(rest)
		if err != nil {
			return Value{}, WrapCorruption(err, b, "decoding integer value")
		}
		if len(rest) != 0 {
			return Value{}, NewCorruption(b, "%d trailing bytes after integer value", len(rest))
		}
		v.Primitive = PrimitiveValue{typ: typ, i: i}
	default:
		return Value{}, NewCorruption(b, "unknown value tag %s", typ)
	}
	return v, nil
}

// effectiveTTL resolves the expiry that applies to v: its own TTL when
// set, otherwise the table default. A non-positive result means the
// record never expires.
func (v Value) effectiveTTL(tableTTL time.Duration) time.Duration {
	if v.TTL == TTLUnset {
		return tableTTL
	}
	return v.TTL
}

// expiredAt reports whether a record written at writeTime is expired as
// of now. A record with effective TTL d is visible in [T, T+d).
func (v Value) expiredAt(writeTime, now hlc.HybridTime, tableTTL time.Duration) bool {
	ttl := v.effectiveTTL(tableTTL)
	if ttl <= 0 {
		return false
	}
	return now.Micros() >= writeTime.Micros()+ttl.Microseconds()
}
