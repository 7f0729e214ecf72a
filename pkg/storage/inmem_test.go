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

package storage

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func put(t *testing.T, eng Engine, pairs ...string) {
	t.Helper()
	require.Zero(t, len(pairs)%2)
	b := eng.NewBatch()
	defer func() { require.NoError(t, b.Close()) }()
	for i := 0; i < len(pairs); i += 2 {
		b.Put([]byte(pairs[i]), []byte(pairs[i+1]))
	}
	require.NoError(t, b.Commit())
}

func collect(t *testing.T, eng Engine, opts IterOptions) []string {
	t.Helper()
	iter, err := eng.NewIter(opts)
	require.NoError(t, err)
	defer func() { require.NoError(t, iter.Close()) }()
	var out []string
	for iter.First(); iter.Valid(); iter.Next() {
		out = append(out, fmt.Sprintf("%s=%s", iter.Key(), iter.Value()))
	}
	require.NoError(t, iter.Error())
	return out
}

func TestInMemBatchAndIter(t *testing.T) {
	eng := NewInMem(InMemConfig{})
	defer func() { require.NoError(t, eng.Close()) }()

	put(t, eng, "b", "2", "a", "1", "d", "4", "c", "3")

	require.Equal(t, []string{"a=1", "b=2", "c=3", "d=4"}, collect(t, eng, IterOptions{}))
	require.Equal(t, []string{"b=2", "c=3"},
		collect(t, eng, IterOptions{LowerBound: []byte("b"), UpperBound: []byte("d")}))

	// Overwrites take the newest value.
	put(t, eng, "b", "22")
	require.Equal(t, []string{"a=1", "b=22", "c=3", "d=4"}, collect(t, eng, IterOptions{}))
}

func TestInMemSeekGE(t *testing.T) {
	eng := NewInMem(InMemConfig{})
	put(t, eng, "a", "1", "c", "3", "e", "5")

	iter, err := eng.NewIter(IterOptions{})
	require.NoError(t, err)
	defer func() { require.NoError(t, iter.Close()) }()

	iter.SeekGE([]byte("b"))
	require.True(t, iter.Valid())
	require.Equal(t, "c", string(iter.Key()))
	iter.Next()
	require.Equal(t, "e", string(iter.Key()))
	iter.Next()
	require.False(t, iter.Valid())

	iter.SeekGE([]byte("f"))
	require.False(t, iter.Valid())
}

func TestInMemFlushAndFileMasking(t *testing.T) {
	eng := NewInMem(InMemConfig{})
	put(t, eng, "a", "old", "b", "old")
	require.NoError(t, eng.Flush())
	require.Equal(t, 1, eng.NumFiles())

	// Flushing an empty memtable is a no-op.
	require.NoError(t, eng.Flush())
	require.Equal(t, 1, eng.NumFiles())

	// Memtable shadows files; a deletion masks a file record.
	put(t, eng, "a", "new")
	b := eng.NewBatch()
	b.Delete([]byte("b"))
	require.NoError(t, b.Commit())
	require.NoError(t, b.Close())
	require.Equal(t, []string{"a=new"}, collect(t, eng, IterOptions{}))

	require.NoError(t, eng.Flush())
	require.Equal(t, 2, eng.NumFiles())
	require.Equal(t, []string{"a=new"}, collect(t, eng, IterOptions{}))
}

func TestInMemIteratorSnapshot(t *testing.T) {
	eng := NewInMem(InMemConfig{})
	put(t, eng, "a", "1")

	iter, err := eng.NewIter(IterOptions{})
	require.NoError(t, err)
	defer func() { require.NoError(t, iter.Close()) }()

	put(t, eng, "b", "2")

	var got []string
	for iter.First(); iter.Valid(); iter.Next() {
		got = append(got, string(iter.Key()))
	}
	require.Equal(t, []string{"a"}, got)
}

func TestInMemCompactFiles(t *testing.T) {
	eng := NewInMem(InMemConfig{})
	put(t, eng, "a", "1", "b", "1")
	require.NoError(t, eng.Flush())
	put(t, eng, "b", "2", "c", "2")
	require.NoError(t, eng.Flush())
	put(t, eng, "d", "3")
	require.NoError(t, eng.Flush())
	require.Equal(t, 3, eng.NumFiles())

	dropB := func(key, value []byte) (Decision, []byte, error) {
		if string(key) == "b" {
			return DecisionDrop, nil, nil
		}
		return DecisionKeep, nil, nil
	}

	// Compact the two newest files; the oldest keeps its records.
	require.NoError(t, eng.CompactFiles(dropB, -1, 2))
	require.Equal(t, 2, eng.NumFiles())
	require.Equal(t, []string{"a=1", "b=1", "c=2", "d=3"}, collect(t, eng, IterOptions{}))

	rewrite := func(key, value []byte) (Decision, []byte, error) {
		return DecisionRewrite, []byte("x"), nil
	}
	require.NoError(t, eng.Compact(rewrite))
	require.Equal(t, 1, eng.NumFiles())
	require.Equal(t, []string{"a=x", "b=x", "c=x", "d=x"}, collect(t, eng, IterOptions{}))
}

func TestInMemCompactAbortsOnFilterError(t *testing.T) {
	eng := NewInMem(InMemConfig{})
	put(t, eng, "a", "1", "b", "2")
	require.NoError(t, eng.Flush())

	boom := errors.New("boom")
	err := eng.CompactFiles(func(key, value []byte) (Decision, []byte, error) {
		if string(key) == "b" {
			return DecisionKeep, nil, boom
		}
		return DecisionDrop, nil, nil
	}, 0, 1)
	require.ErrorIs(t, err, boom)

	// No state change on abort.
	require.Equal(t, 1, eng.NumFiles())
	require.Equal(t, []string{"a=1", "b=2"}, collect(t, eng, IterOptions{}))
}

func TestInMemCompactRangeValidation(t *testing.T) {
	eng := NewInMem(InMemConfig{})
	put(t, eng, "a", "1")
	require.NoError(t, eng.Flush())

	keep := func(key, value []byte) (Decision, []byte, error) {
		return DecisionKeep, nil, nil
	}
	require.Error(t, eng.CompactFiles(keep, 0, 2))
	require.Error(t, eng.CompactFiles(keep, 1, 1))
	require.Error(t, eng.CompactFiles(keep, 0, 0))
}

type countingSummarizer struct {
	keys []string
}

func (s *countingSummarizer) Add(key []byte) {
	s.keys = append(s.keys, string(key))
}

func (s *countingSummarizer) Finish() interface{} {
	return len(s.keys)
}

func TestInMemFileSummaries(t *testing.T) {
	eng := NewInMem(InMemConfig{
		NewSummarizer: func() Summarizer { return &countingSummarizer{} },
	})
	put(t, eng, "b", "1", "a", "1", "c", "1")
	require.NoError(t, eng.Flush())
	put(t, eng, "x", "2", "y", "2")
	require.NoError(t, eng.Flush())

	sums := eng.FileSummaries()
	require.Len(t, sums, 2)
	require.Equal(t, "a", string(sums[0].SmallestKey))
	require.Equal(t, "c", string(sums[0].LargestKey))
	require.Equal(t, 3, sums[0].Records)
	require.Equal(t, 3, sums[0].Meta)
	require.Equal(t, "x", string(sums[1].SmallestKey))
	require.Equal(t, "y", string(sums[1].LargestKey))
	require.Equal(t, 2, sums[1].Meta)
}
