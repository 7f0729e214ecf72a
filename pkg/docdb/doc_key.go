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
	"fmt"
	"strings"

	"github.com/stratumdb/stratum/pkg/util/encoding"
)

func hasPrefix(b, prefix []byte) bool {
	return bytes.HasPrefix(b, prefix)
}

// KeyBytes is an encoded key or key prefix in the flat store.
type KeyBytes []byte

// Clone returns an independent copy.
func (k KeyBytes) Clone() KeyBytes {
	return append(KeyBytes(nil), k...)
}

// PrefixEnd returns the exclusive upper bound of all keys prefixed by k.
func (k KeyBytes) PrefixEnd() KeyBytes {
	return encoding.PrefixEnd(k)
}

// DocKey identifies one document: an optional hashed component group,
// fronted by a 16-bit hash for even distribution, followed by range
// components.
type DocKey struct {
	Hash             uint16
	HashedComponents []PrimitiveValue
	RangeComponents  []PrimitiveValue
	hasHash          bool
}

// MakeDocKey returns a document key with only range components.
func MakeDocKey(rangeComponents ...PrimitiveValue) DocKey {
	return DocKey{RangeComponents: rangeComponents}
}

// MakeHashedDocKey returns a document key with a hashed component group.
func MakeHashedDocKey(hash uint16, hashed, rangeComponents []PrimitiveValue) DocKey {
	return DocKey{
		Hash:             hash,
		HashedComponents: hashed,
		RangeComponents:  rangeComponents,
		hasHash:          true,
	}
}

// HasHash reports whether the key carries a hashed component group.
func (k DocKey) HasHash() bool { return k.hasHash }

// Encode returns the full encoded form. Each component group ends with a
// group-end tag, so a document key is always a self-delimiting prefix of
// the keys under it.
func (k DocKey) Encode() KeyBytes {
	return k.AppendEncoded(nil)
}

// AppendEncoded appends the encoded form to b.
func (k DocKey) AppendEncoded(b []byte) KeyBytes {
	if k.hasHash {
		b = append(b, byte(kUInt16Hash))
		b = encoding.EncodeUint16Ascending(b, k.Hash)
		for _, c := range k.HashedComponents {
			b = c.AppendToKey(b)
		}
		b = append(b, byte(kGroupEnd))
	}
	for _, c := range k.RangeComponents {
		b = c.AppendToKey(b)
	}
	return append(b, byte(kGroupEnd))
}

// DecodeDocKey consumes an encoded document key from b.
func DecodeDocKey(b []byte) ([]byte, DocKey, error) {
	rest := b
	var k DocKey
	if len(rest) > 0 && ValueType(rest[0]) == kUInt16Hash {
		k.hasHash = true
		var err error
		rest, k.Hash, err = encoding.DecodeUint16Ascending(rest[1:])
		if err != nil {
			return nil, DocKey{}, WrapCorruption(err, b, "decoding document key hash")
		}
		rest, k.HashedComponents, err = decodeComponentGroup(rest)
		if err != nil {
			return nil, DocKey{}, WrapCorruption(err, b, "decoding hashed components")
		}
	}
	var err error
	rest, k.RangeComponents, err = decodeComponentGroup(rest)
	if err != nil {
		return nil, DocKey{}, WrapCorruption(err, b, "decoding range components")
	}
	return rest, k, nil
}

// decodeComponentGroup consumes components up to and including a group-end
// tag.
func decodeComponentGroup(b []byte) ([]byte, []PrimitiveValue, error) {
	var out []PrimitiveValue
	for {
		if len(b) == 0 {
			return nil, nil, NewCorruption(b, "component group missing terminator")
		}
		if ValueType(b[0]) == kGroupEnd {
			return b[1:], out, nil
		}
		var pv PrimitiveValue
		var err error
		b, pv, err = decodePrimitiveFromKey(b)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, pv)
	}
}

// String renders the canonical debug form:
//
//	DocKey([], ["mydockey", 123456])
//	DocKey(0x1234, ["h1", 123], ["r1"])
func (k DocKey) String() string {
	if k.hasHash {
		return fmt.Sprintf("DocKey(0x%04x, %s, %s)",
			k.Hash, formatComponents(k.HashedComponents), formatComponents(k.RangeComponents))
	}
	return fmt.Sprintf("DocKey([], %s)", formatComponents(k.RangeComponents))
}

func formatComponents(components []PrimitiveValue) string {
	parts := make([]string, len(components))
	for i, c := range components {
		parts[i] = c.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// SubDocKey addresses one node inside a document: the document key plus a
// chain of subkeys, optionally pinned to the write time of a particular
// version.
type SubDocKey struct {
	DocKey  DocKey
	Subkeys []PrimitiveValue
	// WriteTime is the version coordinate; InvalidDocHybridTime when the
	// key addresses the path rather than one version.
	WriteTime DocHybridTime
}

// MakeSubDocKey returns a versionless subdocument key.
func MakeSubDocKey(dk DocKey, subkeys ...PrimitiveValue) SubDocKey {
	return SubDocKey{DocKey: dk, Subkeys: subkeys, WriteTime: InvalidDocHybridTime}
}

// Encode returns the encoded form, including the write-time suffix when
// set.
func (k SubDocKey) Encode() KeyBytes {
	b := k.EncodePrefix()
	if k.WriteTime.IsValid() {
		b = k.WriteTime.AppendEncoded(b)
	}
	return b
}

// EncodePrefix returns the encoded form without the write-time suffix.
func (k SubDocKey) EncodePrefix() KeyBytes {
	b := k.DocKey.AppendEncoded(nil)
	for _, sk := range k.Subkeys {
		b = sk.AppendToKey(b)
	}
	return b
}

// DecodeSubDocKey decodes a complete key. The write-time suffix is
// optional; staged batch keys do not carry one.
func DecodeSubDocKey(b []byte) (SubDocKey, error) {
	rest, dk, err := DecodeDocKey(b)
	if err != nil {
		return SubDocKey{}, err
	}
	k := SubDocKey{DocKey: dk, WriteTime: InvalidDocHybridTime}
	for len(rest) > 0 && ValueType(rest[0]) != kHybridTime {
		var pv PrimitiveValue
		rest, pv, err = decodePrimitiveFromKey(rest)
		if err != nil {
			return SubDocKey{}, err
		}
		k.Subkeys = append(k.Subkeys, pv)
	}
	if len(rest) > 0 {
		rest, k.WriteTime, err = decodeDocHybridTime(rest)
		if err != nil {
			return SubDocKey{}, err
		}
		if len(rest) != 0 {
			return SubDocKey{}, NewCorruption(b, "%d trailing bytes after write time", len(rest))
		}
	}
	return k, nil
}

// splitKeyVersion splits an encoded versioned key into its path prefix and
// decoded write time.
func splitKeyVersion(b []byte) (KeyBytes, DocHybridTime, error) {
	if len(b) < encodedDocHybridTimeLen {
		return nil, DocHybridTime{}, NewCorruption(b, "key too short for write-time suffix")
	}
	split := len(b) - encodedDocHybridTimeLen
	if ValueType(b[split]) != kHybridTime {
		return nil, DocHybridTime{}, NewCorruption(b, "key missing write-time suffix")
	}
	_, dht, err := decodeDocHybridTime(b[split:])
	if err != nil {
		return nil, DocHybridTime{}, err
	}
	return KeyBytes(b[:split]), dht, nil
}

// String renders the canonical debug form:
//
//	SubDocKey(DocKey([], ["k"]), ["subkey_a"; HT{ physical: 2000 w: 1 }])
func (k SubDocKey) String() string {
	var parts []string
	for _, sk := range k.Subkeys {
		parts = append(parts, sk.String())
	}
	inner := strings.Join(parts, ", ")
	if k.WriteTime.IsValid() {
		if inner != "" {
			inner += "; "
		}
		inner += k.WriteTime.String()
	}
	return fmt.Sprintf("SubDocKey(%s, [%s])", k.DocKey, inner)
}
