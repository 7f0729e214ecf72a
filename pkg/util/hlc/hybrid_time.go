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

// Package hlc provides the hybrid timestamp used to version every record
// in the store. A HybridTime packs a physical clock reading in microseconds
// together with a logical counter that disambiguates events sharing the
// same microsecond.
package hlc

import (
	"fmt"
	"math"
)

// HybridTime is a single uint64 holding the physical component in the high
// 52 bits and the logical counter in the low 12 bits. The packed form
// compares the same way the (physical, logical) pair does.
type HybridTime uint64

// LogicalBits is the width of the logical counter.
const LogicalBits = 12

const logicalMask = (1 << LogicalBits) - 1

const (
	// Zero is the lowest valid hybrid time.
	Zero HybridTime = 0
	// Max sorts after every other valid hybrid time. Reads at Max observe
	// all committed writes.
	Max HybridTime = math.MaxUint64 - 1
	// Invalid is the reserved sentinel for an unset hybrid time.
	Invalid HybridTime = math.MaxUint64
)

// FromMicros returns the hybrid time for a physical clock reading with a
// zero logical component.
func FromMicros(micros int64) HybridTime {
	return HybridTime(uint64(micros) << LogicalBits)
}

// New packs a physical microsecond reading and a logical counter value.
func New(micros int64, logical uint16) HybridTime {
	return HybridTime(uint64(micros)<<LogicalBits | uint64(logical)&logicalMask)
}

// Micros returns the physical component.
func (t HybridTime) Micros() int64 {
	return int64(t >> LogicalBits)
}

// Logical returns the logical counter component.
func (t HybridTime) Logical() uint16 {
	return uint16(t & logicalMask)
}

// AddMicros returns the hybrid time advanced by d microseconds of physical
// time. The logical component is preserved.
func (t HybridTime) AddMicros(d int64) HybridTime {
	return New(t.Micros()+d, t.Logical())
}

// IsValid reports whether t is a usable timestamp rather than the Invalid
// sentinel.
func (t HybridTime) IsValid() bool {
	return t != Invalid
}

// Compare returns -1, 0 or 1 according to the order of t and o.
func (t HybridTime) Compare(o HybridTime) int {
	switch {
	case t < o:
		return -1
	case t > o:
		return 1
	default:
		return 0
	}
}

// String renders the time in the canonical debug form. The logical
// component is omitted when zero:
//
//	HT{ physical: 1000 }
//	HT{ physical: 1000 logical: 42 }
func (t HybridTime) String() string {
	if t == Invalid {
		return "HT{ <invalid> }"
	}
	if l := t.Logical(); l != 0 {
		return fmt.Sprintf("HT{ physical: %d logical: %d }", t.Micros(), l)
	}
	return fmt.Sprintf("HT{ physical: %d }", t.Micros())
}
