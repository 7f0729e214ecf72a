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

	"github.com/stratumdb/stratum/pkg/storage"
)

// FormatRecord renders one flat record as the canonical dump line:
//
//	SubDocKey(DocKey([], ["k"]), ["sk"; HT{ physical: 2000 w: 1 }]) -> "v"; ttl: 10.000s
func FormatRecord(key, value []byte) (string, error) {
	sdk, err := DecodeSubDocKey(key)
	if err != nil {
		return "", err
	}
	v, err := DecodeValue(value)
	if err != nil {
		return "", err
	}
	line := sdk.String() + " -> " + v.Primitive.String()
	if v.HasTTL() {
		line += fmt.Sprintf("; ttl: %.3fs", v.TTL.Seconds())
	}
	if v.HasUserTimestamp() {
		line += fmt.Sprintf("; user_timestamp: %d", v.UserTimestamp)
	}
	return line, nil
}

// DebugDump renders every record of the store in key order, one line per
// record. It is the observable form compaction and write tests assert
// against.
func (d *DB) DebugDump() (string, error) {
	iter, err := d.eng.NewIter(storage.IterOptions{})
	if err != nil {
		return "", WrapIO(err, "dumping store")
	}
	defer func() { _ = iter.Close() }()

	var lines []string
	for iter.First(); iter.Valid(); iter.Next() {
		line, err := FormatRecord(iter.Key(), iter.Value())
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}
	if err := iter.Error(); err != nil {
		return "", WrapIO(err, "dumping store")
	}
	return strings.Join(lines, "\n"), nil
}

// String renders the staged records of the batch, in staging order:
//
//	1. Put('Skey\x00\x00...', 'Svalue')
func (b *DocWriteBatch) String() string {
	var sb strings.Builder
	for i, op := range b.ops {
		fmt.Fprintf(&sb, "%d. Put('%s', '%s')\n", i+1, escapeBytes(op.key), escapeBytes(op.value))
	}
	return sb.String()
}

// escapeBytes renders arbitrary bytes with C-style hex escapes, keeping
// printable ASCII readable.
func escapeBytes(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		switch {
		case c == '\'' || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c >= 0x20 && c <= 0x7e:
			sb.WriteByte(c)
		default:
			fmt.Fprintf(&sb, "\\x%02x", c)
		}
	}
	return sb.String()
}
