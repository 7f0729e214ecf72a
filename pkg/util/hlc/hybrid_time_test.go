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

package hlc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHybridTimePacking(t *testing.T) {
	ht := New(1000, 42)
	require.Equal(t, int64(1000), ht.Micros())
	require.Equal(t, uint16(42), ht.Logical())

	require.Equal(t, FromMicros(1000), New(1000, 0))
	require.Equal(t, int64(5000), FromMicros(2000).AddMicros(3000).Micros())
	require.Equal(t, uint16(7), New(2000, 7).AddMicros(3000).Logical())
}

func TestHybridTimeOrdering(t *testing.T) {
	cases := []struct {
		a, b HybridTime
		cmp  int
	}{
		{FromMicros(1000), FromMicros(2000), -1},
		{New(1000, 1), New(1000, 2), -1},
		{New(1000, logicalMask), FromMicros(1001), -1},
		{FromMicros(2000), FromMicros(2000), 0},
		{New(3000, 5), New(3000, 5), 0},
		{Max, FromMicros(1 << 50), 1},
	}
	for _, c := range cases {
		require.Equal(t, c.cmp, c.a.Compare(c.b), "%s vs %s", c.a, c.b)
		require.Equal(t, -c.cmp, c.b.Compare(c.a), "%s vs %s", c.b, c.a)
	}
	require.True(t, Max.IsValid())
	require.False(t, Invalid.IsValid())
}

func TestHybridTimeString(t *testing.T) {
	require.Equal(t, "HT{ physical: 1000 }", FromMicros(1000).String())
	require.Equal(t, "HT{ physical: 1000 logical: 42 }", New(1000, 42).String())
	require.Equal(t, "HT{ <invalid> }", Invalid.String())
}
