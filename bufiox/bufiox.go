// Copyright 2025 CloudWeGo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bufiox exposes streams through the buffer-oriented Reader and
// Writer interfaces used by protocol codecs.
package bufiox

import "errors"

// Reader hands out input in slices that stay valid until Release.
type Reader interface {
	// Next consumes exactly n bytes and returns them, or fails without
	// consuming anything when fewer than n bytes are left.
	Next(n int) (p []byte, err error)

	// ReadBinary fills bs and returns the number of bytes copied. bs is
	// owned by the caller and stays valid after Release.
	ReadBinary(bs []byte) (n int, err error)

	// Peek is Next without consuming.
	Peek(n int) (buf []byte, err error)

	// Skip discards exactly n bytes.
	Skip(n int) (err error)

	// ReadLen returns the number of bytes consumed since the last
	// Release.
	ReadLen() (n int)

	// Release invalidates all slices returned by Next and Peek and
	// resets ReadLen. e is the error, if any, that ended decoding.
	Release(e error) (err error)
}

// Writer collects output in slices that are written out by Flush.
type Writer interface {
	// Malloc returns n bytes of space to be filled before the next
	// Flush.
	Malloc(n int) (buf []byte, err error)

	// WriteBinary appends bs. Large slices may be kept by reference, so
	// bs must not be modified before Flush.
	WriteBinary(bs []byte) (n int, err error)

	// WrittenLen returns the number of bytes appended since the last
	// Flush.
	WrittenLen() (length int)

	// Flush writes everything appended and flushes the destination.
	Flush() (err error)
}

var errNegativeCount = errors.New("bufiox: negative count")
