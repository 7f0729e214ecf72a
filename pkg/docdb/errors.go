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
	"encoding/hex"

	"github.com/cockroachdb/errors"
)

// Error kinds surfaced by the document layer. The sentinels sit in the
// unwrap chain of every error the package returns, so callers classify
// with errors.Is whether they use the standard library or
// cockroachdb/errors.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrCorruption      = errors.New("corruption")
	ErrIO              = errors.New("io error")
)

// NewInvalidArgument returns an InvalidArgument error with a formatted
// message.
func NewInvalidArgument(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

// NewNotFound returns a NotFound error with a formatted message.
func NewNotFound(format string, args ...interface{}) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}

// NewCorruption returns a Corruption error carrying the offending bytes.
func NewCorruption(data []byte, format string, args ...interface{}) error {
	err := errors.Wrapf(ErrCorruption, format, args...)
	return errors.WithDetailf(err, "offending bytes: %s", hex.EncodeToString(data))
}

// WrapCorruption classifies a decode error as Corruption, attaching the
// bytes that failed to decode. The original error stays in the chain.
func WrapCorruption(err error, data []byte, msg string) error {
	if err == nil {
		return nil
	}
	err = errors.Wrap(errors.Join(ErrCorruption, err), msg)
	return errors.WithDetailf(err, "offending bytes: %s", hex.EncodeToString(data))
}

// WrapIO classifies an engine error as IO. The original error stays in
// the chain.
func WrapIO(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(errors.Join(ErrIO, err), msg)
}
