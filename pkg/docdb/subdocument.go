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
	"sort"
	"strings"
)

// SubDocument is an in-memory document node: either a primitive leaf or a
// container with ordered children. It is what writes supply as payloads
// and what reads reconstruct.
type SubDocument struct {
	value   PrimitiveValue
	entries []subDocEntry
}

type subDocEntry struct {
	key PrimitiveValue
	// enc is the key's encoded form; children stay sorted by it so the
	// tree iterates in flat-store order.
	enc string
	doc *SubDocument
}

// NewObjectDocument returns an empty object node.
func NewObjectDocument() *SubDocument {
	return &SubDocument{value: NewObjectValue()}
}

// NewArrayDocument returns an empty array node.
func NewArrayDocument() *SubDocument {
	return &SubDocument{value: NewArrayValue()}
}

// NewPrimitiveDocument returns a leaf node.
func NewPrimitiveDocument(pv PrimitiveValue) *SubDocument {
	return &SubDocument{value: pv}
}

// Type returns the node's variant: a container marker type for objects
// and arrays, the primitive's type for leaves.
func (d *SubDocument) Type() ValueType { return d.value.typ }

// IsContainer reports whether d is an object or array node.
func (d *SubDocument) IsContainer() bool { return d.value.typ.IsContainer() }

// Primitive returns the leaf payload. Valid only for leaves.
func (d *SubDocument) Primitive() PrimitiveValue { return d.value }

// NumChildren returns the number of children of a container node.
func (d *SubDocument) NumChildren() int { return len(d.entries) }

// SetChild inserts or replaces the child at key and returns d for
// chaining. Setting a child on a leaf converts it to an object.
func (d *SubDocument) SetChild(key PrimitiveValue, child *SubDocument) *SubDocument {
	if !d.IsContainer() {
		d.value = NewObjectValue()
		d.entries = nil
	}
	enc := string(key.AppendToKey(nil))
	i := sort.Search(len(d.entries), func(i int) bool { return d.entries[i].enc >= enc })
	if i < len(d.entries) && d.entries[i].enc == enc {
		d.entries[i].doc = child
		return d
	}
	d.entries = append(d.entries, subDocEntry{})
	copy(d.entries[i+1:], d.entries[i:])
	d.entries[i] = subDocEntry{key: key, enc: enc, doc: child}
	return d
}

// SetField inserts a primitive leaf child and returns d for chaining.
func (d *SubDocument) SetField(key, value PrimitiveValue) *SubDocument {
	return d.SetChild(key, NewPrimitiveDocument(value))
}

// GetChild returns the child at key.
func (d *SubDocument) GetChild(key PrimitiveValue) (*SubDocument, bool) {
	enc := string(key.AppendToKey(nil))
	i := sort.Search(len(d.entries), func(i int) bool { return d.entries[i].enc >= enc })
	if i < len(d.entries) && d.entries[i].enc == enc {
		return d.entries[i].doc, true
	}
	return nil, false
}

// DeleteChild removes the child at key.
func (d *SubDocument) DeleteChild(key PrimitiveValue) {
	enc := string(key.AppendToKey(nil))
	i := sort.Search(len(d.entries), func(i int) bool { return d.entries[i].enc >= enc })
	if i < len(d.entries) && d.entries[i].enc == enc {
		d.entries = append(d.entries[:i], d.entries[i+1:]...)
	}
}

// DeepSet places child at the node addressed by subkeys, synthesizing
// object nodes for missing interior levels. An empty subkey chain
// replaces d's own content.
func (d *SubDocument) DeepSet(subkeys []PrimitiveValue, child *SubDocument) {
	if len(subkeys) == 0 {
		*d = *child
		return
	}
	node := d
	for _, sk := range subkeys[:len(subkeys)-1] {
		next, ok := node.GetChild(sk)
		if !ok || !next.IsContainer() {
			next = NewObjectDocument()
			node.SetChild(sk, next)
		}
		node = next
	}
	node.SetChild(subkeys[len(subkeys)-1], child)
}

// each visits children in flat-store order.
func (d *SubDocument) each(fn func(key PrimitiveValue, doc *SubDocument)) {
	for _, e := range d.entries {
		fn(e.key, e.doc)
	}
}

// String renders the node as an indented JSON-like tree. Children appear
// in flat-store order.
func (d *SubDocument) String() string {
	var sb strings.Builder
	d.writeTo(&sb, 0)
	return sb.String()
}

func (d *SubDocument) writeTo(sb *strings.Builder, indent int) {
	if !d.IsContainer() {
		sb.WriteString(d.value.String())
		return
	}
	open, closing := "{", "}"
	if d.value.typ == kArray {
		open, closing = "[", "]"
	}
	if len(d.entries) == 0 {
		sb.WriteString(open + closing)
		return
	}
	sb.WriteString(open + "\n")
	pad := strings.Repeat("  ", indent+1)
	for i, e := range d.entries {
		sb.WriteString(pad)
		sb.WriteString(e.key.String())
		sb.WriteString(": ")
		e.doc.writeTo(sb, indent+1)
		if i != len(d.entries)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(strings.Repeat("  ", indent) + closing)
}
