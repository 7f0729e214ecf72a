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
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/sirupsen/logrus"
)

// Pebble is the persistent engine, backed by a pebble store.
type Pebble struct {
	db  *pebble.DB
	log *logrus.Logger
}

// PebbleConfig configures a pebble engine.
type PebbleConfig struct {
	// Dir is the store directory. Ignored when InMemory is set.
	Dir string
	// InMemory backs the store with an in-memory filesystem, for tests.
	InMemory bool
	ReadOnly bool
	Logger   *logrus.Logger
}

// OpenPebble opens or creates a pebble store.
func OpenPebble(cfg PebbleConfig) (*Pebble, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	opts := &pebble.Options{
		Logger:   cfg.Logger,
		ReadOnly: cfg.ReadOnly,
	}
	if cfg.InMemory {
		opts.FS = vfs.NewMem()
		if cfg.Dir == "" {
			cfg.Dir = "mem"
		}
	}
	db, err := pebble.Open(cfg.Dir, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening store at %q", cfg.Dir)
	}
	return &Pebble{db: db, log: cfg.Logger}, nil
}

// NewBatch implements Engine.
func (p *Pebble) NewBatch() Batch {
	return &pebbleBatch{p: p, b: p.db.NewBatch()}
}

type pebbleBatch struct {
	p   *Pebble
	b   *pebble.Batch
	err error
}

func (b *pebbleBatch) Put(key, value []byte) {
	if err := b.b.Set(key, value, nil); err != nil && b.err == nil {
		b.err = err
	}
}

func (b *pebbleBatch) Delete(key []byte) {
	if err := b.b.Delete(key, nil); err != nil && b.err == nil {
		b.err = err
	}
}

func (b *pebbleBatch) Len() int {
	return int(b.b.Count())
}

func (b *pebbleBatch) Commit() error {
	if b.err != nil {
		return errors.Wrap(b.err, "staging batch write")
	}
	if err := b.p.db.Apply(b.b, pebble.Sync); err != nil {
		return errors.Wrap(err, "applying batch")
	}
	return nil
}

func (b *pebbleBatch) Close() error {
	return b.b.Close()
}

// NewIter implements Engine.
func (p *Pebble) NewIter(opts IterOptions) (Iterator, error) {
	it, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: opts.LowerBound,
		UpperBound: opts.UpperBound,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating iterator")
	}
	return &pebbleIterator{it: it}, nil
}

type pebbleIterator struct {
	it *pebble.Iterator
}

func (i *pebbleIterator) SeekGE(key []byte) { i.it.SeekGE(key) }
func (i *pebbleIterator) First()            { i.it.First() }
func (i *pebbleIterator) Valid() bool       { return i.it.Valid() }
func (i *pebbleIterator) Next()             { i.it.Next() }
func (i *pebbleIterator) Key() []byte       { return i.it.Key() }
func (i *pebbleIterator) Value() []byte     { return i.it.Value() }
func (i *pebbleIterator) Error() error      { return i.it.Error() }
func (i *pebbleIterator) Close() error      { return i.it.Close() }

// Flush implements Engine.
func (p *Pebble) Flush() error {
	return errors.Wrap(p.db.Flush(), "flushing store")
}

// Close implements Engine.
func (p *Pebble) Close() error {
	return errors.Wrap(p.db.Close(), "closing store")
}

// HistoryCompact runs filter over a snapshot of every record, applies the
// resulting deletions and rewrites atomically, then manually compacts the
// touched key range to reclaim space. Pebble does not expose file-subset
// compaction, so every history compaction through this engine is a major
// one.
func (p *Pebble) HistoryCompact(filter FilterFunc) error {
	snap := p.db.NewSnapshot()
	defer func() { _ = snap.Close() }()

	iter, err := snap.NewIter(nil)
	if err != nil {
		return errors.Wrap(err, "creating compaction iterator")
	}

	batch := p.db.NewBatch()
	defer func() { _ = batch.Close() }()

	var first, last []byte
	var dropped, rewritten int
	for iter.First(); iter.Valid(); iter.Next() {
		key := cloneBytes(iter.Key())
		if first == nil {
			first = key
		}
		last = key
		decision, newValue, ferr := filter(key, iter.Value())
		if ferr != nil {
			_ = iter.Close()
			return errors.Wrap(ferr, "history compaction aborted")
		}
		switch decision {
		case DecisionDrop:
			if err := batch.Delete(key, nil); err != nil {
				_ = iter.Close()
				return errors.Wrap(err, "staging history deletion")
			}
			dropped++
		case DecisionRewrite:
			if err := batch.Set(key, cloneBytes(newValue), nil); err != nil {
				_ = iter.Close()
				return errors.Wrap(err, "staging history rewrite")
			}
			rewritten++
		}
	}
	if err := iter.Close(); err != nil {
		return errors.Wrap(err, "scanning history")
	}
	if err := p.db.Apply(batch, pebble.Sync); err != nil {
		return errors.Wrap(err, "applying history compaction")
	}
	p.log.WithFields(logrus.Fields{
		"dropped":   dropped,
		"rewritten": rewritten,
	}).Info("history compaction applied")

	if first == nil {
		return nil
	}
	end := append(cloneBytes(last), 0x00)
	return errors.Wrap(p.db.Compact(first, end, true), "compacting key range")
}
