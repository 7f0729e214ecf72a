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
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stratumdb/stratum/pkg/util/hlc"
)

func TestValueEncodeOracles(t *testing.T) {
	require.Equal(t, []byte("Svalue_a"), NewValue(NewStringValue("value_a")).Encode())
	require.Equal(t, []byte("X"), NewValue(NewTombstoneValue()).Encode())
	require.Equal(t, []byte("{"), NewValue(NewObjectValue()).Encode())
	require.Equal(t, []byte("["), NewValue(NewArrayValue()).Encode())

	// TTL section: 't' plus sign-flipped big-endian microseconds.
	require.Equal(t,
		[]byte("t\x80\x00\x00\x00\x00\x98\x96\x80Svalue_a"),
		NewValueWithTTL(NewStringValue("value_a"), 10*time.Second).Encode())

	// User-timestamp section follows the TTL section when both are set.
	require.Equal(t,
		[]byte("u\x80\x00\x00\x00\x00\x00\x00\x01I\x80\x00\x00\x00\x00\x00\x00\x05"),
		NewValue(NewInt64Value(5)).WithUserTimestamp(1).Encode())
}

func TestValueRoundTrip(t *testing.T) {
	values := []Value{
		NewValue(NewStringValue("plain")),
		NewValue(NewStringValue("")),
		NewValue(NewInt64Value(-42)),
		NewValue(NewBoolValue(false)),
		NewValue(NewNullValue()),
		NewValue(NewTimestampValue(1234567890)),
		NewValue(NewInetValue(net.ParseIP("fe80::1"))),
		NewValueWithTTL(NewObjectValue(), time.Minute),
		NewValueWithTTL(NewStringValue("z"), 0),
		NewValueWithTTL(NewInt64Value(9), time.Second).WithUserTimestamp(77),
	}
	for _, v := range values {
		decoded, err := DecodeValue(v.Encode())
		require.NoError(t, err, v.Primitive.String())
		require.True(t, v.Primitive.Equal(decoded.Primitive), v.Primitive.String())
		require.Equal(t, v.TTL, decoded.TTL)
		require.Equal(t, v.UserTimestamp, decoded.UserTimestamp)
	}
}

func TestValueDecodeErrors(t *testing.T) {
	for _, data := range [][]byte{
		nil,
		[]byte("T9"),            // trailing byte after a sentinel
		[]byte("Z"),             // unknown tag
		[]byte("a\x01\x02"),     // inet payload of impossible length
		[]byte("I\x80\x00"),     // truncated integer
		[]byte("t\x80\x00\x00"), // truncated ttl section
	} {
		_, err := DecodeValue(data)
		require.ErrorIs(t, err, ErrCorruption, "%q", data)
	}
}

func TestValueExpiry(t *testing.T) {
	write := hlc.FromMicros(1_000_000)
	cases := []struct {
		name     string
		v        Value
		tableTTL time.Duration
		now      int64
		expired  bool
	}{
		{"own ttl, just inside", NewValueWithTTL(NewStringValue("v"), time.Second), 0, 1_999_999, false},
		{"own ttl, at boundary", NewValueWithTTL(NewStringValue("v"), time.Second), 0, 2_000_000, true},
		{"table default applies", NewValue(NewStringValue("v")), time.Second, 2_000_000, true},
		{"no ttl anywhere", NewValue(NewStringValue("v")), 0, 1 << 40, false},
		{"explicit zero overrides table", NewValueWithTTL(NewStringValue("v"), 0), time.Second, 1 << 40, false},
		{"own ttl beats shorter table", NewValueWithTTL(NewStringValue("v"), time.Hour), time.Second, 2_000_000, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expired, tc.v.expiredAt(write, hlc.FromMicros(tc.now), tc.tableTTL))
		})
	}
}
