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
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stratumdb/stratum/pkg/util/hlc"
)

func TestDocKeyEncodeOracle(t *testing.T) {
	dk := MakeDocKey(NewStringValue("mydockey"), NewInt64Value(123456))
	require.Equal(t,
		[]byte("Smydockey\x00\x00I\x80\x00\x00\x00\x00\x01\xe2@!"),
		[]byte(dk.Encode()))

	hk := MakeHashedDocKey(0xcafe,
		[]PrimitiveValue{NewStringValue("h")},
		[]PrimitiveValue{NewInt64Value(7)})
	require.Equal(t,
		[]byte("G\xca\xfeSh\x00\x00!I\x80\x00\x00\x00\x00\x00\x00\x07!"),
		[]byte(hk.Encode()))
}

func TestDocKeyRoundTrip(t *testing.T) {
	keys := []DocKey{
		MakeDocKey(NewStringValue("mydockey"), NewInt64Value(123456)),
		MakeDocKey(NewStringValue("with\x00zero")),
		MakeDocKey(NewInt64Value(-1), NewBoolValue(true), NewNullValue()),
		MakeDocKey(NewTimestampValue(1234567890), NewInetValue(net.ParseIP("10.0.0.1"))),
		MakeHashedDocKey(0x1234,
			[]PrimitiveValue{NewStringValue("h1"), NewInt64Value(123)},
			[]PrimitiveValue{NewStringValue("r1")}),
		MakeHashedDocKey(0, nil, []PrimitiveValue{NewStringValue("r")}),
	}
	for _, dk := range keys {
		rest, decoded, err := DecodeDocKey(dk.Encode())
		require.NoError(t, err, dk.String())
		require.Empty(t, rest)
		require.Equal(t, dk.String(), decoded.String())
		require.Equal(t, dk.HasHash(), decoded.HasHash())
	}
}

func TestSubDocKeyStringForms(t *testing.T) {
	dk := MakeDocKey(NewStringValue("mydockey"), NewInt64Value(123456))

	sdk := MakeSubDocKey(dk, NewStringValue("subkey_a"))
	sdk.WriteTime = DocHybridTime{Time: hlc.FromMicros(1000), WriteID: 1}
	require.Equal(t,
		`SubDocKey(DocKey([], ["mydockey", 123456]), ["subkey_a"; HT{ physical: 1000 w: 1 }])`,
		sdk.String())

	root := MakeSubDocKey(dk)
	root.WriteTime = DocHybridTime{Time: hlc.FromMicros(1000)}
	require.Equal(t,
		`SubDocKey(DocKey([], ["mydockey", 123456]), [HT{ physical: 1000 }])`,
		root.String())

	multi := MakeSubDocKey(dk, NewStringValue("a"), NewArrayIndexValue(-3))
	multi.WriteTime = DocHybridTime{Time: hlc.New(1000, 42)}
	require.Equal(t,
		`SubDocKey(DocKey([], ["mydockey", 123456]), ["a", ArrayIndex(-3); HT{ physical: 1000 logical: 42 }])`,
		multi.String())

	cols := MakeSubDocKey(dk, NewSystemColumnIDValue(0), NewColumnIDValue(3))
	require.Equal(t,
		`SubDocKey(DocKey([], ["mydockey", 123456]), [SystemColumnId(0), ColumnId(3)])`,
		cols.String())

	hashed := MakeSubDocKey(MakeHashedDocKey(0x1234,
		[]PrimitiveValue{NewStringValue("h1"), NewInt64Value(123)},
		[]PrimitiveValue{NewStringValue("r1")}))
	require.Equal(t,
		`SubDocKey(DocKey(0x1234, ["h1", 123], ["r1"]), [])`,
		hashed.String())
}

func TestSubDocKeyRoundTrip(t *testing.T) {
	dk := MakeDocKey(NewStringValue("k"))
	sdk := MakeSubDocKey(dk, NewStringValue("a"), NewInt64Value(2))
	sdk.WriteTime = DocHybridTime{Time: hlc.New(2000, 1), WriteID: 3}

	encoded := sdk.Encode()
	decoded, err := DecodeSubDocKey(encoded)
	require.NoError(t, err)
	require.Equal(t, sdk.String(), decoded.String())
	require.Zero(t, sdk.WriteTime.Compare(decoded.WriteTime))

	prefix, dht, err := splitKeyVersion(encoded)
	require.NoError(t, err)
	require.Equal(t, []byte(sdk.EncodePrefix()), []byte(prefix))
	require.Zero(t, sdk.WriteTime.Compare(dht))
}

func TestKeyOrdering(t *testing.T) {
	dk := MakeDocKey(NewStringValue("k"))
	path := MakeSubDocKey(dk, NewStringValue("a"))

	// Every version of a path sorts before the path's first descendant.
	versioned := path
	versioned.WriteTime = DocHybridTime{Time: hlc.FromMicros(1)}
	child := MakeSubDocKey(dk, NewStringValue("a"), NewStringValue("b"))
	require.Negative(t, bytes.Compare(versioned.Encode(), child.EncodePrefix()))

	// Newer versions sort before older ones; ties break on write id.
	newer, older := path, path
	newer.WriteTime = DocHybridTime{Time: hlc.FromMicros(2000)}
	older.WriteTime = DocHybridTime{Time: hlc.FromMicros(1000)}
	require.Negative(t, bytes.Compare(newer.Encode(), older.Encode()))

	w1, w0 := path, path
	w1.WriteTime = DocHybridTime{Time: hlc.FromMicros(1000), WriteID: 1}
	w0.WriteTime = DocHybridTime{Time: hlc.FromMicros(1000), WriteID: 0}
	require.Negative(t, bytes.Compare(w1.Encode(), w0.Encode()))

	// System columns precede regular columns regardless of id.
	require.Negative(t, bytes.Compare(
		NewSystemColumnIDValue(10).AppendToKey(nil),
		NewColumnIDValue(0).AppendToKey(nil)))

	// Inet components sort by raw address bytes, IPv6 and IPv4 interleaved.
	addrs := []string{"::1", "10.0.0.1", "127.0.0.1", "fe80::1"}
	for i := 0; i+1 < len(addrs); i++ {
		a := NewInetValue(net.ParseIP(addrs[i])).AppendToKey(nil)
		b := NewInetValue(net.ParseIP(addrs[i+1])).AppendToKey(nil)
		require.Negativef(t, bytes.Compare(a, b), "%s should sort before %s", addrs[i], addrs[i+1])
	}
}

func TestKeyDecodeCorruption(t *testing.T) {
	_, _, err := DecodeDocKey([]byte("S\x00"))
	require.ErrorIs(t, err, ErrCorruption)

	_, _, err = DecodeDocKey([]byte("Sabc\x00\x00"))
	require.ErrorIs(t, err, ErrCorruption, "missing group end")

	_, _, err = splitKeyVersion([]byte("short"))
	require.ErrorIs(t, err, ErrCorruption)

	sdk := MakeSubDocKey(MakeDocKey(NewStringValue("k")), NewStringValue("a"))
	sdk.WriteTime = DocHybridTime{Time: hlc.FromMicros(1)}
	_, err = DecodeSubDocKey(append(sdk.Encode(), 'S'))
	require.ErrorIs(t, err, ErrCorruption, "trailing bytes after write time")
}
