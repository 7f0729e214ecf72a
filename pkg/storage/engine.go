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

// Package storage defines the ordered byte-store capability the document
// layer is built on, together with two implementations: an in-memory
// engine with explicit file granularity and a pebble-backed engine.
package storage

// IterOptions bounds an iterator. LowerBound is inclusive, UpperBound
// exclusive; a nil bound leaves that side open.
type IterOptions struct {
	LowerBound []byte
	UpperBound []byte
}

// Iterator walks keys in ascending byte order within its bounds. The
// slices returned by Key and Value are only valid until the next
// positioning call.
type Iterator interface {
	// SeekGE positions the iterator at the first key >= key within bounds.
	SeekGE(key []byte)
	// First positions the iterator at the first key within bounds.
	First()
	// Valid reports whether the iterator is positioned at a record.
	Valid() bool
	// Next advances to the next key.
	Next()
	Key() []byte
	Value() []byte
	Error() error
	Close() error
}

// Batch is a set of writes applied atomically by Commit. A batch is
// single-use; Close releases it whether or not it was committed.
type Batch interface {
	Put(key, value []byte)
	Delete(key []byte)
	// Len returns the number of staged operations.
	Len() int
	Commit() error
	Close() error
}

// Engine is the ordered byte store. Iterators observe a consistent
// snapshot taken at NewIter time.
type Engine interface {
	NewBatch() Batch
	NewIter(opts IterOptions) (Iterator, error)
	// Flush persists buffered writes. For the in-memory engine this seals
	// the memtable into a new file.
	Flush() error
	Close() error
}

// Decision is a compaction filter's verdict on one record.
type Decision int

const (
	// DecisionKeep retains the record unchanged.
	DecisionKeep Decision = iota
	// DecisionDrop removes the record.
	DecisionDrop
	// DecisionRewrite retains the key with the replacement value returned
	// by the filter.
	DecisionRewrite
)

// FilterFunc inspects one record during a history compaction. Records are
// presented in ascending key order. Returning an error aborts the
// compaction with no state change.
type FilterFunc func(key, value []byte) (Decision, []byte, error)

// Summarizer folds the keys written to one file into an engine-opaque
// summary, exposed through FileSummary.Meta.
type Summarizer interface {
	Add(key []byte)
	Finish() interface{}
}

// FileSummary describes one sealed file of the in-memory engine.
type FileSummary struct {
	SmallestKey []byte
	LargestKey  []byte
	Records     int
	// Meta is the Summarizer product, nil when no summarizer is
	// configured.
	Meta interface{}
}
