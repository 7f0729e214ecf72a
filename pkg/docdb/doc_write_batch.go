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
	"time"

	"github.com/stratumdb/stratum/pkg/storage"
	"github.com/stratumdb/stratum/pkg/util/hlc"
)

// DocWriteBatch stages document mutations as flat records. Staged keys
// carry no write-time suffix; DB.ApplyWriteBatch assigns the hybrid time
// and per-record write ids when the batch commits.
//
// Operations that consult existing state (init-marker checks, user
// timestamp conflicts, list position resolution) read through a
// per-prefix cache backed by the engine, so later operations in the same
// batch observe earlier ones.
type DocWriteBatch struct {
	db *DB
	// readTime bounds the versions the batch's own reads observe, and is
	// the point at which TTL expiry is evaluated. At hlc.Max all versions
	// are visible and nothing counts as expired.
	readTime hlc.HybridTime
	ops      []stagedWrite
	cache    map[string]cacheEntry
}

type stagedWrite struct {
	key   KeyBytes
	value []byte
}

// cacheEntry records the newest version of one encoded path prefix, as
// observed from the store or staged by this batch. Staged entries have an
// invalid write time.
type cacheEntry struct {
	found  bool
	dht    DocHybridTime
	typ    ValueType
	userTS int64
}

// implicitUserTS is the user timestamp the entry competes with: its own
// when set, otherwise the physical component of its write time.
func (e cacheEntry) implicitUserTS() int64 {
	if e.userTS != UserTimestampUnset {
		return e.userTS
	}
	if e.dht.IsValid() {
		return e.dht.Time.Micros()
	}
	return UserTimestampUnset
}

// WriteMeta carries the record metadata an operation applies to
// everything it stages.
type WriteMeta struct {
	TTL           time.Duration
	UserTimestamp int64
}

// NoWriteMeta stages records without expiry or user timestamp.
var NoWriteMeta = WriteMeta{TTL: TTLUnset, UserTimestamp: UserTimestampUnset}

// TTLMeta returns metadata with only an expiry set.
func TTLMeta(ttl time.Duration) WriteMeta {
	return WriteMeta{TTL: ttl, UserTimestamp: UserTimestampUnset}
}

// UserTimestampMeta returns metadata with only a user timestamp set.
func UserTimestampMeta(ts int64) WriteMeta {
	return WriteMeta{TTL: TTLUnset, UserTimestamp: ts}
}

func (m WriteMeta) apply(pv PrimitiveValue) Value {
	return Value{Primitive: pv, TTL: m.TTL, UserTimestamp: m.UserTimestamp}
}

// NewWriteBatch returns an empty batch reading at hlc.Max.
func (d *DB) NewWriteBatch() *DocWriteBatch {
	return &DocWriteBatch{
		db:       d,
		readTime: hlc.Max,
		cache:    make(map[string]cacheEntry),
	}
}

// SetReadTime pins the batch's own reads to ht and returns the batch.
func (b *DocWriteBatch) SetReadTime(ht hlc.HybridTime) *DocWriteBatch {
	b.readTime = ht
	return b
}

// Len returns the number of staged records.
func (b *DocWriteBatch) Len() int { return len(b.ops) }

// IsEmpty reports whether nothing is staged.
func (b *DocWriteBatch) IsEmpty() bool { return len(b.ops) == 0 }

// Clear drops all staged records and the read cache.
func (b *DocWriteBatch) Clear() {
	b.ops = nil
	b.cache = make(map[string]cacheEntry)
}

func (b *DocWriteBatch) policy() InitMarkerPolicy {
	return b.db.opts.InitMarkers
}

// stage appends one flat record and updates the cache so later operations
// in this batch observe it.
func (b *DocWriteBatch) stage(prefix KeyBytes, v Value) {
	b.ops = append(b.ops, stagedWrite{key: prefix.Clone(), value: v.Encode()})
	b.cache[string(prefix)] = cacheEntry{
		found:  true,
		dht:    InvalidDocHybridTime,
		typ:    v.Primitive.typ,
		userTS: v.UserTimestamp,
	}
}

// lookup returns the newest version of prefix visible at the batch's read
// time, consulting staged records first. An expired record counts as
// absent.
func (b *DocWriteBatch) lookup(prefix KeyBytes) (cacheEntry, error) {
	if e, ok := b.cache[string(prefix)]; ok {
		return e, nil
	}
	e, err := b.readNewest(prefix)
	if err != nil {
		return cacheEntry{}, err
	}
	b.cache[string(prefix)] = e
	return e, nil
}

func (b *DocWriteBatch) readNewest(prefix KeyBytes) (cacheEntry, error) {
	lower := append(prefix.Clone(), byte(kHybridTime))
	iter, err := b.db.eng.NewIter(storage.IterOptions{
		LowerBound: lower,
		UpperBound: lower.PrefixEnd(),
	})
	if err != nil {
		return cacheEntry{}, WrapIO(err, "reading current document state")
	}
	defer func() { _ = iter.Close() }()

	for iter.SeekGE(lower); iter.Valid(); iter.Next() {
		_, dht, err := splitKeyVersion(iter.Key())
		if err != nil {
			return cacheEntry{}, err
		}
		if dht.Time > b.readTime {
			continue
		}
		v, err := DecodeValue(iter.Value())
		if err != nil {
			return cacheEntry{}, err
		}
		if b.readTime != hlc.Max && v.expiredAt(dht.Time, b.readTime, b.db.opts.TableTTL) {
			return cacheEntry{}, nil
		}
		return cacheEntry{
			found:  true,
			dht:    dht,
			typ:    v.Primitive.typ,
			userTS: v.UserTimestamp,
		}, nil
	}
	return cacheEntry{}, WrapIO(iter.Error(), "reading current document state")
}

// ensureAncestors stages object markers for the path's missing ancestors,
// document root included.
func (b *DocWriteBatch) ensureAncestors(path DocPath) error {
	for _, prefix := range path.encodePrefixes() {
		e, err := b.lookup(prefix)
		if err != nil {
			return err
		}
		if e.found && e.typ.IsContainer() {
			continue
		}
		b.stage(prefix, NewValue(NewObjectValue()))
	}
	return nil
}

// checkUserTimestamp decides whether an operation carrying userTS may
// apply at path. The write must strictly exceed the user timestamp of the
// newest live version at the exact path and of every live ancestor
// container marker; versions without a user timestamp compete with the
// physical component of their write time. A false result with nil error
// means the operation is a silent no-op.
func (b *DocWriteBatch) checkUserTimestamp(path DocPath, prefix KeyBytes, userTS int64) (bool, error) {
	if userTS == UserTimestampUnset {
		return true, nil
	}
	if b.policy() == InitMarkersRequired {
		return false, NewInvalidArgument("user timestamps require the optional init-marker policy")
	}
	e, err := b.lookup(prefix)
	if err != nil {
		return false, err
	}
	if e.found {
		if existing := e.implicitUserTS(); existing != UserTimestampUnset && userTS <= existing {
			return false, nil
		}
	}
	for _, anc := range path.encodePrefixes() {
		a, err := b.lookup(anc)
		if err != nil {
			return false, err
		}
		if !a.found || !a.typ.IsContainer() {
			continue
		}
		if existing := a.implicitUserTS(); existing != UserTimestampUnset && userTS <= existing {
			return false, nil
		}
	}
	return true, nil
}

// SetPrimitive stages a single leaf write, creating missing ancestor
// markers under the required init-marker policy. A tombstone aimed at a
// document that does not exist stages nothing under that policy.
func (b *DocWriteBatch) SetPrimitive(path DocPath, v Value) error {
	prefix := path.EncodePrefix()
	apply, err := b.checkUserTimestamp(path, prefix, v.UserTimestamp)
	if err != nil || !apply {
		return err
	}
	if v.Primitive.IsTombstone() {
		if b.policy() == InitMarkersRequired {
			root, err := b.lookup(path.EncodedDocKey)
			if err != nil {
				return err
			}
			if !root.found || root.typ == kTombstone {
				return nil
			}
		}
		b.stage(prefix, v)
		return nil
	}
	if b.policy() == InitMarkersRequired {
		if err := b.ensureAncestors(path); err != nil {
			return err
		}
	}
	b.stage(prefix, v)
	return nil
}

// DeleteSubDocument stages a tombstone covering the subtree at path.
func (b *DocWriteBatch) DeleteSubDocument(path DocPath) error {
	return b.SetPrimitive(path, NewValue(NewTombstoneValue()))
}

// InsertSubDocument replaces the subtree at path with doc. A container
// payload is staged as one marker at path plus one leaf record per
// payload leaf; the marker is what makes the replacement O(1), by
// shadowing every older record under the path.
func (b *DocWriteBatch) InsertSubDocument(path DocPath, doc *SubDocument, meta WriteMeta) error {
	if !doc.IsContainer() {
		return b.SetPrimitive(path, meta.apply(doc.Primitive()))
	}
	prefix := path.EncodePrefix()
	apply, err := b.checkUserTimestamp(path, prefix, meta.UserTimestamp)
	if err != nil || !apply {
		return err
	}
	if b.policy() == InitMarkersRequired {
		if err := b.ensureAncestors(path); err != nil {
			return err
		}
	}
	marker := NewObjectValue()
	if doc.Type() == kArray {
		marker = NewArrayValue()
	}
	b.stage(prefix, meta.apply(marker))
	b.stageChildren(path, doc, meta)
	return nil
}

// ExtendSubDocument merges doc into the container at path: only the
// supplied keys are written, no marker is staged, and siblings survive.
// Under the required init-marker policy the target marker must already
// exist.
func (b *DocWriteBatch) ExtendSubDocument(path DocPath, doc *SubDocument, meta WriteMeta) error {
	if !doc.IsContainer() {
		return b.SetPrimitive(path, meta.apply(doc.Primitive()))
	}
	prefix := path.EncodePrefix()
	if b.policy() == InitMarkersRequired {
		e, err := b.lookup(prefix)
		if err != nil {
			return err
		}
		if !e.found || !e.typ.IsContainer() {
			return NewInvalidArgument("extending a subdocument with no container marker")
		}
	}
	apply, err := b.checkUserTimestamp(path, prefix, meta.UserTimestamp)
	if err != nil || !apply {
		return err
	}
	b.stageChildren(path, doc, meta)
	return nil
}

// stageChildren flattens a container payload into leaf records. Under the
// optional init-marker policy nested containers get no markers of their
// own; under the required policy they do, so that a later single-leaf
// write finds its ancestors instead of staging fresh markers that would
// shadow the siblings written here.
func (b *DocWriteBatch) stageChildren(path DocPath, doc *SubDocument, meta WriteMeta) {
	doc.each(func(key PrimitiveValue, child *SubDocument) {
		childPath := path.Extend(key)
		if child.IsContainer() {
			if b.policy() == InitMarkersRequired {
				marker := NewObjectValue()
				if child.Type() == kArray {
					marker = NewArrayValue()
				}
				b.stage(childPath.EncodePrefix(), meta.apply(marker))
			}
			b.stageChildren(childPath, child, meta)
			return
		}
		b.stage(childPath.EncodePrefix(), meta.apply(child.Primitive()))
	})
}

// ListDirection selects which end of a list ExtendList grows.
type ListDirection int

const (
	ListAppend ListDirection = iota
	ListPrepend
)

// ExtendList stages new list elements at synthetic, monotonically
// allocated positions. Appended elements take increasing positive
// positions; prepended elements take decreasing negative ones, staged in
// reverse so the first supplied element lands farthest out.
func (b *DocWriteBatch) ExtendList(path DocPath, values []Value, dir ListDirection) error {
	if b.policy() == InitMarkersRequired {
		e, err := b.lookup(path.EncodePrefix())
		if err != nil {
			return err
		}
		if !e.found || !e.typ.IsContainer() {
			return NewInvalidArgument("extending a list with no container marker")
		}
	}
	switch dir {
	case ListAppend:
		for _, v := range values {
			idx := b.db.nextListIndex()
			b.stage(path.Extend(NewArrayIndexValue(idx)).EncodePrefix(), v)
		}
	case ListPrepend:
		for i := len(values) - 1; i >= 0; i-- {
			idx := -b.db.nextListIndex()
			b.stage(path.Extend(NewArrayIndexValue(idx)).EncodePrefix(), values[i])
		}
	default:
		return NewInvalidArgument("unknown list direction %d", dir)
	}
	return nil
}

// ReplaceInList overwrites list elements addressed by 1-based positions
// among the elements visible at readTime. A tombstone value deletes the
// element. Positions beyond the visible length are rejected.
func (b *DocWriteBatch) ReplaceInList(path DocPath, positions []int, values []Value, readTime hlc.HybridTime) error {
	if len(positions) != len(values) {
		return NewInvalidArgument("%d positions against %d values", len(positions), len(values))
	}
	elems, err := b.visibleListElements(path, readTime)
	if err != nil {
		return err
	}
	for i, pos := range positions {
		if pos < 1 || pos > len(elems) {
			return NewInvalidArgument("list position %d out of bounds, list has %d visible elements", pos, len(elems))
		}
		b.stage(path.Extend(elems[pos-1]).EncodePrefix(), values[i])
	}
	return nil
}

// visibleListElements scans the immediate children of path and returns
// the array-index components of the elements visible at readTime, in
// position order.
func (b *DocWriteBatch) visibleListElements(path DocPath, readTime hlc.HybridTime) ([]PrimitiveValue, error) {
	prefix := path.EncodePrefix()
	iter, err := b.db.eng.NewIter(storage.IterOptions{
		LowerBound: prefix,
		UpperBound: prefix.PrefixEnd(),
	})
	if err != nil {
		return nil, WrapIO(err, "scanning list")
	}
	defer func() { _ = iter.Close() }()

	// The newest visible record at the list path itself shadows any older
	// elements: a replacement marker or tombstone starts a fresh
	// incarnation.
	rootEvent := InvalidDocHybridTime
	versionBound := append(prefix.Clone(), byte(kHybridTime))
	for iter.SeekGE(versionBound); iter.Valid(); iter.Next() {
		key := iter.Key()
		if !hasPrefix(key, versionBound) {
			break
		}
		_, dht, err := splitKeyVersion(key)
		if err != nil {
			return nil, err
		}
		if dht.Time > readTime {
			continue
		}
		rootEvent = dht
		break
	}

	var elems []PrimitiveValue
	iter.SeekGE(append(prefix.Clone(), minComponentTag))
	for iter.Valid() {
		key := iter.Key()
		if !hasPrefix(key, prefix) {
			break
		}
		rest, component, err := decodePrimitiveFromKey(key[len(prefix):])
		if err != nil {
			return nil, err
		}
		childPrefix := KeyBytes(key[:len(key)-len(rest)]).Clone()

		visible := false
		childVersions := append(childPrefix.Clone(), byte(kHybridTime))
		for iter.SeekGE(childVersions); iter.Valid(); iter.Next() {
			k := iter.Key()
			if !hasPrefix(k, childVersions) {
				break
			}
			_, dht, err := splitKeyVersion(k)
			if err != nil {
				return nil, err
			}
			if dht.Time > readTime {
				continue
			}
			if rootEvent.IsValid() && dht.Compare(rootEvent) <= 0 {
				break
			}
			v, err := DecodeValue(iter.Value())
			if err != nil {
				return nil, err
			}
			visible = !v.Primitive.IsTombstone() &&
				!(readTime != hlc.Max && v.expiredAt(dht.Time, readTime, b.db.opts.TableTTL))
			break
		}
		if visible && component.Type() == kArrayIndex {
			elems = append(elems, component)
		}
		iter.SeekGE(childPrefix.PrefixEnd())
	}
	if err := iter.Error(); err != nil {
		return nil, WrapIO(err, "scanning list")
	}
	return elems, nil
}
