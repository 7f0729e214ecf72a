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

	"github.com/stratumdb/stratum/pkg/util/encoding"
	"github.com/stratumdb/stratum/pkg/util/hlc"
)

// DocHybridTime is the full version coordinate of one flat record: the
// hybrid time the batch was written at plus the record's index within the
// batch. Between two writes to the same path at the same hybrid time, the
// higher write id wins.
type DocHybridTime struct {
	Time    hlc.HybridTime
	WriteID uint32
}

// InvalidDocHybridTime is the unset sentinel.
var InvalidDocHybridTime = DocHybridTime{Time: hlc.Invalid}

// encodedDocHybridTimeLen is the fixed width of the encoded form,
// including the leading tag byte.
const encodedDocHybridTimeLen = 13

// IsValid reports whether t holds a real write time.
func (t DocHybridTime) IsValid() bool {
	return t.Time.IsValid()
}

// Compare orders by time, then write id.
func (t DocHybridTime) Compare(o DocHybridTime) int {
	if c := t.Time.Compare(o.Time); c != 0 {
		return c
	}
	switch {
	case t.WriteID < o.WriteID:
		return -1
	case t.WriteID > o.WriteID:
		return 1
	default:
		return 0
	}
}

// AppendEncoded appends the key-suffix form: the hybrid-time tag followed
// by the complemented time and complemented write id, both fixed width.
// Complementing makes newer versions sort before older ones.
func (t DocHybridTime) AppendEncoded(b []byte) []byte {
	b = append(b, byte(kHybridTime))
	b = encoding.EncodeUint64Descending(b, uint64(t.Time))
	return encoding.EncodeUint32Descending(b, t.WriteID)
}

// decodeDocHybridTime consumes an encoded write time from b.
func decodeDocHybridTime(b []byte) ([]byte, DocHybridTime, error) {
	if len(b) < encodedDocHybridTimeLen || ValueType(b[0]) != kHybridTime {
		return nil, DocHybridTime{}, NewCorruption(b, "expected encoded hybrid time")
	}
	rest, raw, err := encoding.DecodeUint64Descending(b[1:])
	if err != nil {
		return nil, DocHybridTime{}, WrapCorruption(err, b, "decoding hybrid time")
	}
	rest, writeID, err := encoding.DecodeUint32Descending(rest)
	if err != nil {
		return nil, DocHybridTime{}, WrapCorruption(err, b, "decoding write id")
	}
	return rest, DocHybridTime{Time: hlc.HybridTime(raw), WriteID: writeID}, nil
}

// String renders the combined form used in key dumps, omitting zero
// logical and write-id components:
//
//	HT{ physical: 2000 }
//	HT{ physical: 2000 logical: 1 w: 3 }
func (t DocHybridTime) String() string {
	s := fmt.Sprintf("HT{ physical: %d", t.Time.Micros())
	if l := t.Time.Logical(); l != 0 {
		s += fmt.Sprintf(" logical: %d", l)
	}
	if t.WriteID != 0 {
		s += fmt.Sprintf(" w: %d", t.WriteID)
	}
	return s + " }"
}
