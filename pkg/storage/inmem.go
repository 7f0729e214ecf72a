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
	"bytes"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/btree"
	"github.com/sirupsen/logrus"
)

// InMem is an ordered store held entirely in memory, with explicit file
// granularity: writes land in a memtable, Flush seals the memtable into an
// immutable file, and compactions rewrite a contiguous run of files
// through a filter. Files are ordered oldest first; the memtable is newer
// than every file.
type InMem struct {
	cfg InMemConfig

	mu    sync.RWMutex
	mem   *btree.BTreeG[kv]
	files []*memFile
}

// InMemConfig configures an in-memory engine.
type InMemConfig struct {
	Logger *logrus.Logger
	// NewSummarizer, when set, supplies a fresh Summarizer for every file
	// produced by Flush or compaction.
	NewSummarizer func() Summarizer
}

type kv struct {
	key   []byte
	value []byte
	// del marks an engine-level deletion that masks same-key records in
	// older files.
	del bool
}

func kvLess(a, b kv) bool {
	return bytes.Compare(a.key, b.key) < 0
}

type memFile struct {
	data    *btree.BTreeG[kv]
	summary FileSummary
}

const btreeDegree = 16

// NewInMem returns an empty in-memory engine.
func NewInMem(cfg InMemConfig) *InMem {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &InMem{
		cfg: cfg,
		mem: btree.NewG(btreeDegree, kvLess),
	}
}

// NewBatch implements Engine.
func (m *InMem) NewBatch() Batch {
	return &inMemBatch{m: m}
}

type inMemBatch struct {
	m   *InMem
	ops []kv
}

func (b *inMemBatch) Put(key, value []byte) {
	b.ops = append(b.ops, kv{key: cloneBytes(key), value: cloneBytes(value)})
}

func (b *inMemBatch) Delete(key []byte) {
	b.ops = append(b.ops, kv{key: cloneBytes(key), del: true})
}

func (b *inMemBatch) Len() int { return len(b.ops) }

func (b *inMemBatch) Commit() error {
	b.m.mu.Lock()
	defer b.m.mu.Unlock()
	for _, op := range b.ops {
		b.m.mem.ReplaceOrInsert(op)
	}
	b.ops = nil
	return nil
}

func (b *inMemBatch) Close() error {
	b.ops = nil
	return nil
}

// Flush seals the memtable into a new file. Flushing an empty memtable is
// a no-op.
func (m *InMem) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mem.Len() == 0 {
		return nil
	}
	f := m.sealLocked(m.mem)
	m.files = append(m.files, f)
	m.mem = btree.NewG(btreeDegree, kvLess)
	m.cfg.Logger.WithFields(logrus.Fields{
		"records": f.summary.Records,
		"files":   len(m.files),
	}).Debug("memtable flushed")
	return nil
}

func (m *InMem) sealLocked(data *btree.BTreeG[kv]) *memFile {
	f := &memFile{data: data.Clone()}
	var sum Summarizer
	if m.cfg.NewSummarizer != nil {
		sum = m.cfg.NewSummarizer()
	}
	data.Ascend(func(item kv) bool {
		if f.summary.SmallestKey == nil {
			f.summary.SmallestKey = item.key
		}
		f.summary.LargestKey = item.key
		f.summary.Records++
		if sum != nil && !item.del {
			sum.Add(item.key)
		}
		return true
	})
	if sum != nil {
		f.summary.Meta = sum.Finish()
	}
	return f
}

// NumFiles returns the number of sealed files.
func (m *InMem) NumFiles() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

// FileSummaries returns the summaries of all sealed files, oldest first.
func (m *InMem) FileSummaries() []FileSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]FileSummary, len(m.files))
	for i, f := range m.files {
		out[i] = f.summary
	}
	return out
}

// CompactFiles rewrites a contiguous run of files through filter and
// replaces them with the single output file. start is the index of the
// first input file; start == -1 selects the newest count files. A filter
// error aborts the compaction with no state change.
func (m *InMem) CompactFiles(filter FilterFunc, start, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if start == -1 {
		start = len(m.files) - count
	}
	if count <= 0 || start < 0 || start+count > len(m.files) {
		return errors.Newf("invalid compaction range [%d, %d) of %d files", start, start+count, len(m.files))
	}

	// Newest input wins on key collisions.
	merged := btree.NewG(btreeDegree, kvLess)
	for _, f := range m.files[start : start+count] {
		f.data.Ascend(func(item kv) bool {
			merged.ReplaceOrInsert(item)
			return true
		})
	}

	includesOldest := start == 0
	out := btree.NewG(btreeDegree, kvLess)
	var ferr error
	merged.Ascend(func(item kv) bool {
		if item.del {
			// A deletion marker is only safe to discard once no older file
			// can hold a masked record.
			if !includesOldest {
				out.ReplaceOrInsert(item)
			}
			return true
		}
		decision, newValue, err := filter(item.key, item.value)
		if err != nil {
			ferr = err
			return false
		}
		switch decision {
		case DecisionKeep:
			out.ReplaceOrInsert(item)
		case DecisionRewrite:
			out.ReplaceOrInsert(kv{key: item.key, value: cloneBytes(newValue)})
		case DecisionDrop:
		}
		return true
	})
	if ferr != nil {
		return errors.Wrap(ferr, "history compaction aborted")
	}

	replacement := m.sealLocked(out)
	files := make([]*memFile, 0, len(m.files)-count+1)
	files = append(files, m.files[:start]...)
	files = append(files, replacement)
	files = append(files, m.files[start+count:]...)
	m.files = files
	m.cfg.Logger.WithFields(logrus.Fields{
		"inputs":  count,
		"records": replacement.summary.Records,
	}).Debug("files compacted")
	return nil
}

// Compact flushes the memtable and rewrites every file through filter.
func (m *InMem) Compact(filter FilterFunc) error {
	if err := m.Flush(); err != nil {
		return err
	}
	m.mu.RLock()
	n := len(m.files)
	m.mu.RUnlock()
	if n == 0 {
		return nil
	}
	return m.CompactFiles(filter, 0, n)
}

// NewIter implements Engine. The iterator observes a snapshot of the
// store; files whose key range falls outside the bounds are pruned.
func (m *InMem) NewIter(opts IterOptions) (Iterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Sources ordered newest first so that ties resolve to the freshest
	// record. The memtable clone is a cheap copy-on-write snapshot.
	sources := []*treeIter{{tree: m.mem.Clone()}}
	for i := len(m.files) - 1; i >= 0; i-- {
		f := m.files[i]
		if opts.LowerBound != nil && bytes.Compare(f.summary.LargestKey, opts.LowerBound) < 0 {
			continue
		}
		if opts.UpperBound != nil && bytes.Compare(f.summary.SmallestKey, opts.UpperBound) >= 0 {
			continue
		}
		sources = append(sources, &treeIter{tree: f.data})
	}
	return &inMemIterator{sources: sources, opts: opts}, nil
}

// Close implements Engine.
func (m *InMem) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mem = btree.NewG(btreeDegree, kvLess)
	m.files = nil
	return nil
}

// treeIter is a pull-style cursor over one btree.
type treeIter struct {
	tree  *btree.BTreeG[kv]
	cur   kv
	valid bool
}

func (s *treeIter) seekGE(key []byte) {
	s.valid = false
	s.tree.AscendGreaterOrEqual(kv{key: key}, func(item kv) bool {
		s.cur = item
		s.valid = true
		return false
	})
}

func (s *treeIter) next() {
	key := s.cur.key
	s.valid = false
	first := true
	s.tree.AscendGreaterOrEqual(kv{key: key}, func(item kv) bool {
		if first {
			first = false
			if bytes.Equal(item.key, key) {
				return true
			}
		}
		s.cur = item
		s.valid = true
		return false
	})
}

// inMemIterator merges the memtable and file sources, newest first on
// ties, and hides records masked by deletion markers.
type inMemIterator struct {
	sources []*treeIter
	opts    IterOptions
	cur     kv
	valid   bool
}

func (it *inMemIterator) SeekGE(key []byte) {
	if it.opts.LowerBound != nil && bytes.Compare(key, it.opts.LowerBound) < 0 {
		key = it.opts.LowerBound
	}
	for _, s := range it.sources {
		s.seekGE(key)
	}
	it.settle()
}

func (it *inMemIterator) First() {
	if it.opts.LowerBound != nil {
		it.SeekGE(it.opts.LowerBound)
		return
	}
	it.SeekGE(nil)
}

// settle advances to the next visible record: the smallest key among the
// sources, resolved newest first, skipping deletion markers. Sources
// holding the emitted key are advanced past it, so a subsequent settle
// call is Next.
func (it *inMemIterator) settle() {
	for {
		var best *treeIter
		for _, s := range it.sources {
			if !s.valid {
				continue
			}
			if it.opts.UpperBound != nil && bytes.Compare(s.cur.key, it.opts.UpperBound) >= 0 {
				s.valid = false
				continue
			}
			if best == nil || bytes.Compare(s.cur.key, best.cur.key) < 0 {
				best = s
			}
		}
		if best == nil {
			it.valid = false
			return
		}
		candidate := best.cur
		for _, s := range it.sources {
			if s.valid && bytes.Equal(s.cur.key, candidate.key) {
				s.next()
			}
		}
		if candidate.del {
			continue
		}
		it.cur = candidate
		it.valid = true
		return
	}
}

func (it *inMemIterator) Valid() bool { return it.valid }

func (it *inMemIterator) Next() {
	if !it.valid {
		return
	}
	it.settle()
}

func (it *inMemIterator) Key() []byte {
	return it.cur.key
}

func (it *inMemIterator) Value() []byte {
	return it.cur.value
}

func (it *inMemIterator) Error() error { return nil }

func (it *inMemIterator) Close() error {
	it.sources = nil
	it.valid = false
	return nil
}

func cloneBytes(b []byte) []byte {
	return append([]byte(nil), b...)
}
