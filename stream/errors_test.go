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

package stream

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrErr(t *testing.T) {
	assert.Equal(t, "End of input successfully reached", StrErr(CodeEOF))
	assert.Equal(t, "Compressed data is corrupt", StrErr(ErrZCorrupt))
	assert.Equal(t, "No such info key", ErrNoKey.Error())
	assert.Equal(t, syscall.ENOENT.Error(), StrErr(Code(syscall.ENOENT)))
	assert.Equal(t, "Unknown error number -99", StrErr(-99))
}

func TestCodeOf(t *testing.T) {
	tcases := []struct {
		name string
		err  error
		code Code
		ok   bool
	}{
		{"nil", nil, 0, true},
		{"eof", io.EOF, CodeEOF, true},
		{"wrapped eof", fmt.Errorf("read: %w", io.EOF), CodeEOF, true},
		{"code", ErrZTrunc, ErrZTrunc, true},
		{"path error", &os.PathError{Op: "open", Path: "x", Err: syscall.ENOENT}, Code(syscall.ENOENT), true},
		{"plain", errors.New("boom"), ErrBug, false},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			c, ok := CodeOf(tc.err)
			assert.Equal(t, tc.code, c)
			assert.Equal(t, tc.ok, ok)
		})
	}
}

func TestCode_Is(t *testing.T) {
	assert.ErrorIs(t, CodeEOF, io.EOF)
	assert.ErrorIs(t, Code(syscall.EPIPE), syscall.EPIPE)
	assert.ErrorIs(t, fmt.Errorf("close: %w", ErrNotWritable), ErrNotWritable)
	assert.NotErrorIs(t, ErrNotReadable, ErrNotWritable)
	assert.NotErrorIs(t, ErrBug, io.EOF)
}
