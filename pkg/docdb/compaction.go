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
	"time"

	"github.com/stratumdb/stratum/pkg/storage"
	"github.com/stratumdb/stratum/pkg/util/hlc"
)

// HistoryRetention defines what a history compaction may discard:
// everything needed to serve reads at or after Cutoff must survive.
type HistoryRetention struct {
	Cutoff   hlc.HybridTime
	TableTTL time.Duration
}

// HistoryFilter trims document history during one compaction. It is
// stateful across the records of the compaction and must see them in
// ascending key order, which is how the engines feed it.
//
// A minor compaction covers only a subset of the store's files, so it may
// not remove tombstones or expired records outright: a record they shadow
// could live in a file outside the inputs. It still drops versions
// shadowed within the inputs, and converts expired non-container records
// to tombstones in place.
type HistoryFilter struct {
	ret   HistoryRetention
	major bool

	stack      []overwriteEvent
	prevPrefix []byte
	// dropOlder is set once a version of prevPrefix at or below the
	// cutoff has been seen; every older version of the same path is then
	// droppable, whatever became of that version itself.
	dropOlder bool
}

// NewHistoryFilter returns a filter for one compaction over the store's
// records. major must be true only when the compaction covers every file.
func (d *DB) NewHistoryFilter(ret HistoryRetention, major bool) *HistoryFilter {
	if ret.TableTTL == 0 {
		ret.TableTTL = d.opts.TableTTL
	}
	return &HistoryFilter{ret: ret, major: major}
}

// Filter implements storage.FilterFunc.
func (f *HistoryFilter) Filter(key, value []byte) (storage.Decision, []byte, error) {
	pathPrefix, dht, err := splitKeyVersion(key)
	if err != nil {
		return storage.DecisionKeep, nil, err
	}

	if !bytes.Equal(pathPrefix, f.prevPrefix) {
		f.prevPrefix = pathPrefix.Clone()
		f.dropOlder = false
	}

	for len(f.stack) > 0 && !hasPrefix(pathPrefix, f.stack[len(f.stack)-1].prefix) {
		f.stack = f.stack[:len(f.stack)-1]
	}
	if len(f.stack) > 0 && dht.Compare(f.stack[len(f.stack)-1].dht) <= 0 {
		// Shadowed by an ancestor overwrite within this compaction.
		if dht.Time <= f.ret.Cutoff {
			f.dropOlder = true
		}
		return storage.DecisionDrop, nil, nil
	}

	if f.dropOlder {
		return storage.DecisionDrop, nil, nil
	}
	if dht.Time > f.ret.Cutoff {
		// Still inside the retention window.
		return storage.DecisionKeep, nil, nil
	}

	// Newest version of this path at or below the cutoff: the one
	// survivor candidate. Everything older is droppable from here on.
	f.dropOlder = true

	v, err := DecodeValue(value)
	if err != nil {
		return storage.DecisionKeep, nil, err
	}

	if v.Primitive.IsTombstone() {
		f.push(pathPrefix, dht)
		if f.major {
			return storage.DecisionDrop, nil, nil
		}
		return storage.DecisionKeep, nil, nil
	}

	if v.expiredAt(dht.Time, f.ret.Cutoff, f.ret.TableTTL) {
		if f.major {
			f.push(pathPrefix, dht)
			return storage.DecisionDrop, nil, nil
		}
		if v.Primitive.typ.IsContainer() {
			// Replacing an expired container marker with a tombstone
			// could unmask descendants whose own expiry has not elapsed.
			return storage.DecisionKeep, nil, nil
		}
		f.push(pathPrefix, dht)
		return storage.DecisionRewrite, NewValue(NewTombstoneValue()).Encode(), nil
	}

	return storage.DecisionKeep, nil, nil
}

func (f *HistoryFilter) push(prefix KeyBytes, dht DocHybridTime) {
	f.stack = append(f.stack, overwriteEvent{prefix: prefix.Clone(), dht: dht})
}

// CompactHistory runs a major history compaction appropriate to the
// store's engine: file-granular engines flush and rewrite every file,
// the pebble engine rewrites through a snapshot scan.
func (d *DB) CompactHistory(ret HistoryRetention) error {
	filter := d.NewHistoryFilter(ret, true)
	switch eng := d.eng.(type) {
	case *storage.InMem:
		return eng.Compact(filter.Filter)
	case *storage.Pebble:
		return eng.HistoryCompact(filter.Filter)
	default:
		return NewInvalidArgument("engine %T does not support history compaction", eng)
	}
}

// CompactHistoryFiles runs a history compaction over a contiguous run of
// the in-memory engine's files; start == -1 selects the newest count
// files. A run that happens to cover every file is a major compaction.
func (d *DB) CompactHistoryFiles(ret HistoryRetention, start, count int) error {
	eng, ok := d.eng.(*storage.InMem)
	if !ok {
		return NewInvalidArgument("engine %T does not support file-subset compaction", d.eng)
	}
	n := eng.NumFiles()
	first := start
	if first == -1 {
		first = n - count
	}
	major := first == 0 && count >= n
	filter := d.NewHistoryFilter(ret, major)
	return eng.CompactFiles(filter.Filter, start, count)
}

// BoundaryValues summarizes the keys of one file: the extremes of each
// ranked key component and of the record write times. Iterators use the
// key ranges to prune files; the summaries also make compaction behavior
// observable in tests.
type BoundaryValues struct {
	MinComponents []PrimitiveValue
	MaxComponents []PrimitiveValue
	MinTime       DocHybridTime
	MaxTime       DocHybridTime
	Records       int
}

type boundarySummarizer struct {
	bv BoundaryValues
}

// NewBoundarySummarizer returns a Summarizer producing BoundaryValues,
// for use as the in-memory engine's file summarizer.
func NewBoundarySummarizer() storage.Summarizer {
	return &boundarySummarizer{}
}

func (s *boundarySummarizer) Add(key []byte) {
	sdk, err := DecodeSubDocKey(key)
	if err != nil || !sdk.WriteTime.IsValid() {
		return
	}
	var components []PrimitiveValue
	components = append(components, sdk.DocKey.HashedComponents...)
	components = append(components, sdk.DocKey.RangeComponents...)
	components = append(components, sdk.Subkeys...)

	if s.bv.Records == 0 {
		s.bv.MinTime, s.bv.MaxTime = sdk.WriteTime, sdk.WriteTime
	} else {
		if sdk.WriteTime.Compare(s.bv.MinTime) < 0 {
			s.bv.MinTime = sdk.WriteTime
		}
		if sdk.WriteTime.Compare(s.bv.MaxTime) > 0 {
			s.bv.MaxTime = sdk.WriteTime
		}
	}
	s.bv.Records++

	for i, c := range components {
		if i >= len(s.bv.MinComponents) {
			s.bv.MinComponents = append(s.bv.MinComponents, c)
			s.bv.MaxComponents = append(s.bv.MaxComponents, c)
			continue
		}
		if c.CompareTo(s.bv.MinComponents[i]) < 0 {
			s.bv.MinComponents[i] = c
		}
		if c.CompareTo(s.bv.MaxComponents[i]) > 0 {
			s.bv.MaxComponents[i] = c
		}
	}
}

func (s *boundarySummarizer) Finish() interface{} {
	return s.bv
}
