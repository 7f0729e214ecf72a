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

// Package docdb maps hierarchical documents onto a flat ordered byte
// store. Every node of every document becomes one flat record whose key
// is the encoded path plus a write-time suffix; reads reconstruct
// subtrees from the flat records, and history compaction trims versions
// that fell out of the retention window.
package docdb

import (
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stratumdb/stratum/pkg/storage"
	"github.com/stratumdb/stratum/pkg/util/hlc"
)

// InitMarkerPolicy controls whether container init markers are
// maintained on the write path.
type InitMarkerPolicy int

const (
	// InitMarkersRequired auto-creates object markers for missing
	// ancestors on every write, and deletes of nonexistent documents
	// write nothing.
	InitMarkersRequired InitMarkerPolicy = iota
	// InitMarkersOptional writes no ancestor markers; reads synthesize
	// interior nodes from leaf paths. User timestamps require this
	// policy.
	InitMarkersOptional
)

// Options configures a document store.
type Options struct {
	// TableTTL is the default expiry for records without an explicit TTL.
	// Zero means records never expire by default.
	TableTTL time.Duration
	// InitMarkers selects the init-marker policy for write batches.
	InitMarkers InitMarkerPolicy
	Logger      *logrus.Logger
}

// DB is a document store over an ordered byte engine.
type DB struct {
	eng  storage.Engine
	opts Options
	log  *logrus.Logger
	// listIndex allocates the synthetic, monotonically increasing list
	// element positions. Shared by every batch against this store.
	listIndex atomic.Int64
}

// New wraps an engine as a document store.
func New(eng storage.Engine, opts Options) *DB {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &DB{eng: eng, opts: opts, log: opts.Logger}
}

// Engine exposes the underlying store.
func (d *DB) Engine() storage.Engine { return d.eng }

// Options returns the store configuration.
func (d *DB) Options() Options { return d.opts }

func (d *DB) nextListIndex() int64 {
	return d.listIndex.Add(1)
}

// ApplyWriteBatch assigns write time ht and ascending write ids to the
// staged records of wb and commits them atomically. The batch is reset
// afterwards.
func (d *DB) ApplyWriteBatch(wb *DocWriteBatch, ht hlc.HybridTime) error {
	if !ht.IsValid() {
		return NewInvalidArgument("cannot apply a write batch at an invalid hybrid time")
	}
	batch := d.eng.NewBatch()
	defer func() { _ = batch.Close() }()
	for i, op := range wb.ops {
		key := DocHybridTime{Time: ht, WriteID: uint32(i)}.AppendEncoded(op.key.Clone())
		batch.Put(key, op.value)
	}
	if err := batch.Commit(); err != nil {
		return WrapIO(err, "applying document write batch")
	}
	d.log.WithFields(logrus.Fields{
		"records": len(wb.ops),
		"time":    ht.String(),
	}).Debug("write batch applied")
	wb.Clear()
	return nil
}
