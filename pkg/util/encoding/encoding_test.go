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

package encoding

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeBytesAscending(t *testing.T) {
	cases := []struct {
		in  []byte
		enc []byte
	}{
		{[]byte{}, []byte{0x00, 0x00}},
		{[]byte("abc"), []byte("abc\x00\x00")},
		{[]byte{0x00}, []byte{0x00, 0x01, 0x00, 0x00}},
		{[]byte{0x00, 0x00}, []byte{0x00, 0x01, 0x00, 0x01, 0x00, 0x00}},
		{[]byte("a\x00b"), []byte("a\x00\x01b\x00\x00")},
		{[]byte{0xff}, []byte{0xff, 0x00, 0x00}},
	}
	for _, c := range cases {
		enc := EncodeBytesAscending(nil, c.in)
		require.Equal(t, c.enc, enc, "encoding of %q", c.in)

		rest, dec, err := DecodeBytesAscending(enc)
		require.NoError(t, err)
		require.Empty(t, rest)
		require.Equal(t, len(c.in), len(dec))
		require.Equal(t, string(c.in), string(dec))
	}
}

func TestEncodeBytesAscendingOrder(t *testing.T) {
	// Inputs in ascending raw order; encodings must order the same way,
	// including the shorter-prefix-first rule around embedded zeros.
	inputs := [][]byte{
		{},
		{0x00},
		{0x00, 0x00},
		{0x00, 0x01},
		{0x01},
		[]byte("a"),
		[]byte("a\x00"),
		[]byte("a\x00\x01"),
		[]byte("aa"),
		[]byte("b"),
		{0xff},
	}
	var prev []byte
	for i, in := range inputs {
		enc := EncodeBytesAscending(nil, in)
		if i > 0 {
			require.Equal(t, -1, bytes.Compare(prev, enc), "%q should sort before %q", inputs[i-1], in)
		}
		prev = enc
	}
}

func TestEncodeBytesAscendingDecodeErrors(t *testing.T) {
	for _, b := range [][]byte{
		{},
		[]byte("abc"),
		{0x00},
		{0x00, 0x02},
		{'a', 0x00, 0x01},
	} {
		_, _, err := DecodeBytesAscending(b)
		require.Error(t, err, "input %q", b)
	}
}

func TestEncodeInt64Ascending(t *testing.T) {
	vals := []int64{math.MinInt64, -(1 << 40), -256, -1, 0, 1, 123456, 1 << 40, math.MaxInt64}
	var prev []byte
	for i, v := range vals {
		enc := EncodeInt64Ascending(nil, v)
		require.Len(t, enc, 8)
		if i > 0 {
			require.Equal(t, -1, bytes.Compare(prev, enc), "%d should sort before %d", vals[i-1], v)
		}
		rest, dec, err := DecodeInt64Ascending(enc)
		require.NoError(t, err)
		require.Empty(t, rest)
		require.Equal(t, v, dec)
		prev = enc
	}

	// The sign-flipped form of a known value, used as a wire-format anchor.
	require.Equal(t,
		[]byte{0x80, 0x00, 0x00, 0x00, 0x00, 0x01, 0xe2, 0x40},
		EncodeInt64Ascending(nil, 123456))
}

func TestEncodeUintDescending(t *testing.T) {
	var prev []byte
	for i, v := range []uint64{0, 1, 1000, math.MaxUint64} {
		enc := EncodeUint64Descending(nil, v)
		if i > 0 {
			require.Equal(t, 1, bytes.Compare(prev, enc), "larger value %d should sort first", v)
		}
		rest, dec, err := DecodeUint64Descending(enc)
		require.NoError(t, err)
		require.Empty(t, rest)
		require.Equal(t, v, dec)
		prev = enc
	}

	enc := EncodeUint32Descending(nil, 7)
	rest, dec32, err := DecodeUint32Descending(enc)
	require.NoError(t, err)
	require.Empty(t, rest)
	require.Equal(t, uint32(7), dec32)
}

func TestDecodeRemainder(t *testing.T) {
	b := EncodeStringAscending(nil, "key")
	b = EncodeInt64Ascending(b, 42)
	b = EncodeUint16Ascending(b, 0xbeef)

	rest, s, err := DecodeStringAscending(b)
	require.NoError(t, err)
	require.Equal(t, "key", s)

	rest, i, err := DecodeInt64Ascending(rest)
	require.NoError(t, err)
	require.Equal(t, int64(42), i)

	rest, u, err := DecodeUint16Ascending(rest)
	require.NoError(t, err)
	require.Equal(t, uint16(0xbeef), u)
	require.Empty(t, rest)
}

func TestPrefixEnd(t *testing.T) {
	require.Equal(t, []byte{0x01, 0x03}, PrefixEnd([]byte{0x01, 0x02}))
	require.Equal(t, []byte{0x02}, PrefixEnd([]byte{0x01, 0xff}))
	require.Nil(t, PrefixEnd([]byte{0xff, 0xff}))
	require.True(t, bytes.Compare([]byte{0x01, 0x02, 0xaa}, PrefixEnd([]byte{0x01, 0x02})) < 0)
}
