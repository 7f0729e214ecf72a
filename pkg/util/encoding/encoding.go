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

// Package encoding implements the order-preserving byte encodings that the
// document layer composes into keys. Encoders append to a supplied buffer
// and return the extended buffer; decoders consume a prefix of the supplied
// buffer and return the remainder alongside the decoded value.
package encoding

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

const (
	escape         byte = 0x00
	escapedZero    byte = 0x01
	escapedTermEnd byte = 0x00
)

// terminator ends a variable-length byte encoding: an escape byte followed
// by escapedTermEnd. An embedded zero is written as escape, escapedZero, so
// no encoded body can contain the terminator sequence and shorter strings
// sort before their extensions.
var terminator = []byte{escape, escapedTermEnd}

// EncodeBytesAscending appends the zero-escaped, terminated form of data
// to b and returns the extended buffer. The encoded form orders the same
// way the raw bytes do.
func EncodeBytesAscending(b []byte, data []byte) []byte {
	for {
		i := bytes.IndexByte(data, escape)
		if i == -1 {
			break
		}
		b = append(b, data[:i]...)
		b = append(b, escape, escapedZero)
		data = data[i+1:]
	}
	b = append(b, data...)
	return append(b, terminator...)
}

// DecodeBytesAscending decodes a value encoded by EncodeBytesAscending,
// returning the remainder of the buffer and the decoded bytes.
func DecodeBytesAscending(b []byte) ([]byte, []byte, error) {
	var out []byte
	for {
		i := bytes.IndexByte(b, escape)
		if i == -1 {
			return nil, nil, errors.Errorf("did not find terminator in %q", b)
		}
		if i+1 >= len(b) {
			return nil, nil, errors.Errorf("malformed escape in %q", b)
		}
		switch b[i+1] {
		case escapedTermEnd:
			out = append(out, b[:i]...)
			return b[i+2:], out, nil
		case escapedZero:
			out = append(out, b[:i]...)
			out = append(out, escape)
			b = b[i+2:]
		default:
			return nil, nil, errors.Errorf("unknown escape sequence: %#x %#x", escape, b[i+1])
		}
	}
}

// EncodeStringAscending appends the terminated encoding of s to b. The
// encoding is identical to EncodeBytesAscending applied to the raw bytes
// of s.
func EncodeStringAscending(b []byte, s string) []byte {
	return EncodeBytesAscending(b, []byte(s))
}

// DecodeStringAscending decodes a value encoded by EncodeStringAscending.
func DecodeStringAscending(b []byte) ([]byte, string, error) {
	rest, data, err := DecodeBytesAscending(b)
	return rest, string(data), err
}

// EncodeUint16Ascending appends the big-endian form of v to b.
func EncodeUint16Ascending(b []byte, v uint16) []byte {
	return append(b, byte(v>>8), byte(v))
}

// DecodeUint16Ascending decodes a value encoded by EncodeUint16Ascending.
func DecodeUint16Ascending(b []byte) ([]byte, uint16, error) {
	if len(b) < 2 {
		return nil, 0, errors.Errorf("insufficient bytes to decode uint16: %q", b)
	}
	return b[2:], binary.BigEndian.Uint16(b), nil
}

// EncodeUint32Ascending appends the big-endian form of v to b.
func EncodeUint32Ascending(b []byte, v uint32) []byte {
	return append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// DecodeUint32Ascending decodes a value encoded by EncodeUint32Ascending.
func DecodeUint32Ascending(b []byte) ([]byte, uint32, error) {
	if len(b) < 4 {
		return nil, 0, errors.Errorf("insufficient bytes to decode uint32: %q", b)
	}
	return b[4:], binary.BigEndian.Uint32(b), nil
}

// EncodeUint32Descending appends the bitwise complement of the big-endian
// form of v to b, so larger values sort first.
func EncodeUint32Descending(b []byte, v uint32) []byte {
	return EncodeUint32Ascending(b, ^v)
}

// DecodeUint32Descending decodes a value encoded by EncodeUint32Descending.
func DecodeUint32Descending(b []byte) ([]byte, uint32, error) {
	rest, v, err := DecodeUint32Ascending(b)
	return rest, ^v, err
}

// EncodeUint64Ascending appends the big-endian form of v to b.
func EncodeUint64Ascending(b []byte, v uint64) []byte {
	return append(b,
		byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
		byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// DecodeUint64Ascending decodes a value encoded by EncodeUint64Ascending.
func DecodeUint64Ascending(b []byte) ([]byte, uint64, error) {
	if len(b) < 8 {
		return nil, 0, errors.Errorf("insufficient bytes to decode uint64: %q", b)
	}
	return b[8:], binary.BigEndian.Uint64(b), nil
}

// EncodeUint64Descending appends the bitwise complement of the big-endian
// form of v to b, so larger values sort first.
func EncodeUint64Descending(b []byte, v uint64) []byte {
	return EncodeUint64Ascending(b, ^v)
}

// DecodeUint64Descending decodes a value encoded by EncodeUint64Descending.
func DecodeUint64Descending(b []byte) ([]byte, uint64, error) {
	rest, v, err := DecodeUint64Ascending(b)
	return rest, ^v, err
}

// EncodeInt64Ascending appends the sign-flipped big-endian form of v to b.
// Flipping the sign bit places negative values before positive ones in
// unsigned byte order.
func EncodeInt64Ascending(b []byte, v int64) []byte {
	return EncodeUint64Ascending(b, uint64(v)^(1<<63))
}

// DecodeInt64Ascending decodes a value encoded by EncodeInt64Ascending.
func DecodeInt64Ascending(b []byte) ([]byte, int64, error) {
	rest, v, err := DecodeUint64Ascending(b)
	if err != nil {
		return nil, 0, err
	}
	return rest, int64(v ^ (1 << 63)), nil
}

// PrefixEnd returns the key immediately after all keys having b as a
// prefix: b with its last byte incremented, dropping trailing 0xff bytes.
// A nil return means no upper bound exists (every byte of b is 0xff).
func PrefixEnd(b []byte) []byte {
	end := append([]byte(nil), b...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] != 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
