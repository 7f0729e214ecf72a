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
	"fmt"
	"strings"
)

// DocPath names the target of a write: an encoded document key plus a
// chain of subkeys. Holding the document key pre-encoded lets callers
// reuse one encoding across many writes to the same document.
type DocPath struct {
	EncodedDocKey KeyBytes
	Subkeys       []PrimitiveValue
}

// MakeDocPath builds a path from a document key and subkeys.
func MakeDocPath(dk DocKey, subkeys ...PrimitiveValue) DocPath {
	return DocPath{EncodedDocKey: dk.Encode(), Subkeys: subkeys}
}

// Extend returns a copy of p with additional subkeys appended.
func (p DocPath) Extend(subkeys ...PrimitiveValue) DocPath {
	out := DocPath{EncodedDocKey: p.EncodedDocKey}
	out.Subkeys = append(out.Subkeys, p.Subkeys...)
	out.Subkeys = append(out.Subkeys, subkeys...)
	return out
}

// EncodePrefix returns the encoded path without a write-time suffix.
func (p DocPath) EncodePrefix() KeyBytes {
	b := p.EncodedDocKey.Clone()
	for _, sk := range p.Subkeys {
		b = sk.AppendToKey(b)
	}
	return b
}

// encodePrefixes returns the encoded form of every ancestor of the path's
// deepest node, shallowest first: the document key alone, then each
// subkey added in turn, excluding the full path itself.
func (p DocPath) encodePrefixes() []KeyBytes {
	if len(p.Subkeys) == 0 {
		return nil
	}
	out := make([]KeyBytes, 0, len(p.Subkeys))
	b := p.EncodedDocKey.Clone()
	out = append(out, b.Clone())
	for i := 0; i < len(p.Subkeys)-1; i++ {
		b = p.Subkeys[i].AppendToKey(b)
		out = append(out, KeyBytes(b).Clone())
	}
	return out
}

func (p DocPath) String() string {
	parts := make([]string, len(p.Subkeys))
	for i, sk := range p.Subkeys {
		parts[i] = sk.String()
	}
	return fmt.Sprintf("DocPath(%q, [%s])", []byte(p.EncodedDocKey), strings.Join(parts, ", "))
}
