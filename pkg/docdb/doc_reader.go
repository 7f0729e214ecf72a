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

	"github.com/stratumdb/stratum/pkg/storage"
	"github.com/stratumdb/stratum/pkg/util/hlc"
)

// ReadOptions controls one subdocument read.
type ReadOptions struct {
	// ReadTime bounds visible versions; the zero value reads the latest
	// state, at which nothing counts as expired.
	ReadTime hlc.HybridTime
	// Projection restricts the result to these immediate children of the
	// target. Nil means all children.
	Projection []PrimitiveValue
	// LowSubKey and HighSubKey bound the immediate children of the
	// target, both inclusive.
	LowSubKey  *PrimitiveValue
	HighSubKey *PrimitiveValue
	// MaxNextsToAvoidSeek advances the scan with up to this many Next
	// calls before falling back to a seek.
	MaxNextsToAvoidSeek int
	// Visible, when set, vetoes individual record versions; a vetoed
	// version is skipped exactly like one newer than ReadTime. This is
	// the seam an external transaction layer hooks into.
	Visible func(DocHybridTime) bool
}

// overwriteEvent marks a record that shadows everything under its path
// written at or before its time.
type overwriteEvent struct {
	prefix KeyBytes
	dht    DocHybridTime
}

// GetSubDocument reconstructs the subtree at path as of the read time.
// The boolean result distinguishes an absent path from a present one; a
// container whose children were all deleted still reads as present and
// empty.
func (d *DB) GetSubDocument(path DocPath, opts ReadOptions) (*SubDocument, bool, error) {
	readTime := opts.ReadTime
	if readTime == hlc.Zero || !readTime.IsValid() {
		readTime = hlc.Max
	}
	target := path.EncodePrefix()

	upper := target.PrefixEnd()
	if opts.HighSubKey != nil {
		upper = KeyBytes(opts.HighSubKey.AppendToKey(target.Clone())).PrefixEnd()
	}
	iter, err := d.eng.NewIter(storage.IterOptions{LowerBound: target, UpperBound: upper})
	if err != nil {
		return nil, false, WrapIO(err, "reading subdocument")
	}
	defer func() { _ = iter.Close() }()

	var projection map[string]bool
	if opts.Projection != nil {
		projection = make(map[string]bool, len(opts.Projection))
		for _, sk := range opts.Projection {
			projection[string(sk.AppendToKey(nil))] = true
		}
	}
	var lowKey KeyBytes
	if opts.LowSubKey != nil {
		lowKey = opts.LowSubKey.AppendToKey(target.Clone())
	}

	var root *SubDocument
	var stack []overwriteEvent

	// A tombstone, replacement marker or leaf at any ancestor of the
	// target shadows everything under it written at or before its time.
	// Those records live outside the scan bounds, so they are read up
	// front and seed the event stack.
	baseline, err := d.readAncestorWatermark(path, readTime, opts.Visible)
	if err != nil {
		return nil, false, err
	}
	if baseline.IsValid() {
		stack = append(stack, overwriteEvent{prefix: target.Clone(), dht: baseline})
	}

	iter.SeekGE(target)
	for iter.Valid() {
		key := iter.Key()
		if !hasPrefix(key, target) {
			break
		}
		pathPrefix, dht, err := splitKeyVersion(key)
		if err != nil {
			return nil, false, err
		}

		// Filter immediate children before touching the record.
		if len(pathPrefix) > len(target) {
			rest, _, err := decodePrimitiveFromKey(pathPrefix[len(target):])
			if err != nil {
				return nil, false, err
			}
			firstEnc := pathPrefix[len(target) : len(pathPrefix)-len(rest)]
			if projection != nil && !projection[string(firstEnc)] {
				childPrefix := KeyBytes(pathPrefix[:len(pathPrefix)-len(rest)]).Clone()
				seekForward(iter, childPrefix.PrefixEnd(), opts.MaxNextsToAvoidSeek)
				continue
			}
			if lowKey != nil && bytes.Compare(pathPrefix[:len(pathPrefix)-len(rest)], lowKey) < 0 {
				seekForward(iter, lowKey, opts.MaxNextsToAvoidSeek)
				continue
			}
		}

		// Version filters: newer than the read time, or vetoed by the
		// visibility hook, falls through to the next older version.
		if dht.Time > readTime || (opts.Visible != nil && !opts.Visible(dht)) {
			iter.Next()
			continue
		}

		// Pop events that do not cover this path.
		for len(stack) > 0 && !hasPrefix(pathPrefix, stack[len(stack)-1].prefix) {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 && dht.Compare(stack[len(stack)-1].dht) <= 0 {
			// Shadowed by an ancestor overwrite; every older version of
			// this path is too.
			seekPastVersions(iter, pathPrefix, opts.MaxNextsToAvoidSeek)
			continue
		}

		v, err := DecodeValue(iter.Value())
		if err != nil {
			return nil, false, err
		}
		relative := pathPrefix[len(target):]

		// Expiry is evaluated against the read time; a latest-state read
		// (hlc.Max) never treats a record as expired, matching the batch's
		// own reads.
		expired := readTime != hlc.Max && v.expiredAt(dht.Time, readTime, d.opts.TableTTL)
		switch {
		case v.Primitive.IsTombstone() || expired:
			// Acts as a deletion of the whole subtree at this path.
			stack = append(stack, overwriteEvent{prefix: KeyBytes(pathPrefix).Clone(), dht: dht})
		case v.Primitive.typ.IsContainer():
			stack = append(stack, overwriteEvent{prefix: KeyBytes(pathPrefix).Clone(), dht: dht})
			node := NewObjectDocument()
			if v.Primitive.typ == kArray {
				node = NewArrayDocument()
			}
			root = deepSetRelative(root, relative, node)
		default:
			stack = append(stack, overwriteEvent{prefix: KeyBytes(pathPrefix).Clone(), dht: dht})
			root = deepSetRelative(root, relative, NewPrimitiveDocument(v.Primitive))
		}
		seekPastVersions(iter, pathPrefix, opts.MaxNextsToAvoidSeek)
	}
	if err := iter.Error(); err != nil {
		return nil, false, WrapIO(err, "reading subdocument")
	}
	if root == nil {
		return nil, false, nil
	}
	return root, true, nil
}

// GetPrimitive reads the scalar at path under the same visibility rules
// as GetSubDocument. An absent or deleted path reports ErrNotFound; a
// path holding a container is an invalid argument.
func (d *DB) GetPrimitive(path DocPath, opts ReadOptions) (PrimitiveValue, error) {
	doc, found, err := d.GetSubDocument(path, opts)
	if err != nil {
		return PrimitiveValue{}, err
	}
	if !found {
		return PrimitiveValue{}, NewNotFound("no document at %s", path)
	}
	if doc.IsContainer() {
		return PrimitiveValue{}, NewInvalidArgument("%s holds a container, not a scalar", path)
	}
	return doc.Primitive(), nil
}

// readAncestorWatermark returns the newest write time among the visible
// versions of the path's ancestors, document root included. Whatever an
// ancestor version holds, it started a fresh incarnation of the subtree
// under it, so anything below the target older than it is dead.
func (d *DB) readAncestorWatermark(path DocPath, readTime hlc.HybridTime, visible func(DocHybridTime) bool) (DocHybridTime, error) {
	base := InvalidDocHybridTime
	for _, anc := range path.encodePrefixes() {
		dht, _, found, err := d.newestVisibleVersion(anc, readTime, visible)
		if err != nil {
			return InvalidDocHybridTime, err
		}
		if !found {
			continue
		}
		if !base.IsValid() || dht.Compare(base) > 0 {
			base = dht
		}
	}
	return base, nil
}

// newestVisibleVersion reads the newest version of an exact encoded path
// at or before readTime.
func (d *DB) newestVisibleVersion(prefix KeyBytes, readTime hlc.HybridTime, visible func(DocHybridTime) bool) (DocHybridTime, Value, bool, error) {
	lower := append(prefix.Clone(), byte(kHybridTime))
	iter, err := d.eng.NewIter(storage.IterOptions{
		LowerBound: lower,
		UpperBound: lower.PrefixEnd(),
	})
	if err != nil {
		return InvalidDocHybridTime, Value{}, false, WrapIO(err, "reading document version")
	}
	defer func() { _ = iter.Close() }()

	for iter.SeekGE(lower); iter.Valid(); iter.Next() {
		_, dht, err := splitKeyVersion(iter.Key())
		if err != nil {
			return InvalidDocHybridTime, Value{}, false, err
		}
		if dht.Time > readTime || (visible != nil && !visible(dht)) {
			continue
		}
		v, err := DecodeValue(iter.Value())
		if err != nil {
			return InvalidDocHybridTime, Value{}, false, err
		}
		return dht, v, true, nil
	}
	return InvalidDocHybridTime, Value{}, false, WrapIO(iter.Error(), "reading document version")
}

// deepSetRelative places node at the position named by the encoded
// relative subkey chain, synthesizing interior objects, and returns the
// possibly newly created root.
func deepSetRelative(root *SubDocument, relative []byte, node *SubDocument) *SubDocument {
	if len(relative) == 0 {
		return node
	}
	if root == nil {
		root = NewObjectDocument()
	}
	var subkeys []PrimitiveValue
	rest := relative
	for len(rest) > 0 {
		var pv PrimitiveValue
		var err error
		rest, pv, err = decodePrimitiveFromKey(rest)
		if err != nil {
			// The caller already decoded this chain while filtering; a
			// failure here would have surfaced there.
			return root
		}
		subkeys = append(subkeys, pv)
	}
	root.DeepSet(subkeys, node)
	return root
}

// seekPastVersions advances the iterator beyond every version of
// pathPrefix, stopping at its first descendant or the next path.
func seekPastVersions(iter storage.Iterator, pathPrefix []byte, maxNexts int) {
	target := append(append([]byte(nil), pathPrefix...), minComponentTag)
	seekForward(iter, target, maxNexts)
}

// seekForward positions the iterator at the first key >= target, trying
// up to maxNexts Next calls before issuing a seek.
func seekForward(iter storage.Iterator, target []byte, maxNexts int) {
	for i := 0; i < maxNexts; i++ {
		if !iter.Valid() || bytes.Compare(iter.Key(), target) >= 0 {
			return
		}
		iter.Next()
	}
	if iter.Valid() && bytes.Compare(iter.Key(), target) < 0 {
		iter.SeekGE(target)
	}
}
