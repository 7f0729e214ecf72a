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
	stderrors "errors"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

// The sentinels must be reachable through the standard library's unwrap
// chain, not only through cockroachdb/errors marks.
func TestErrorClassification(t *testing.T) {
	inval := NewInvalidArgument("bad position %d", 7)
	require.True(t, stderrors.Is(inval, ErrInvalidArgument))
	require.True(t, errors.Is(inval, ErrInvalidArgument))
	require.Contains(t, inval.Error(), "bad position 7")

	nf := NewNotFound("no document at %q", "k")
	require.ErrorIs(t, nf, ErrNotFound)
	require.NotErrorIs(t, nf, ErrInvalidArgument)

	corr := NewCorruption([]byte{0xde, 0xad}, "unknown value tag")
	require.True(t, stderrors.Is(corr, ErrCorruption))
	require.Contains(t, errors.FlattenDetails(corr), "dead")

	cause := errors.New("short read")
	wrapped := WrapCorruption(cause, []byte{0x01}, "decoding value")
	require.ErrorIs(t, wrapped, ErrCorruption)
	require.ErrorIs(t, wrapped, cause)
	require.Contains(t, wrapped.Error(), "decoding value")
	require.NoError(t, WrapCorruption(nil, nil, "decoding value"))

	ioErr := WrapIO(errors.New("disk gone"), "flushing")
	require.ErrorIs(t, ioErr, ErrIO)
	require.Contains(t, ioErr.Error(), "disk gone")
	require.NoError(t, WrapIO(nil, "flushing"))
}
