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

package bufiox

import (
	"bytes"
	"io"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/xfile/stream"
)

type pipeBackend struct {
	bytes.Buffer
}

type brokenPipe struct{}

func (brokenPipe) Write(p []byte) (int, error) { return 0, syscall.EPIPE }

func newInput(t *testing.T, data string, size int) *stream.Stream {
	b := &pipeBackend{}
	b.WriteString(data)
	s, err := stream.New(b, stream.FlagRead, size, 0)
	require.NoError(t, err)
	return s
}

func TestStreamReader(t *testing.T) {
	data := strings.Repeat("0123456789", 4)
	r := NewStreamReader(newInput(t, data, 16))

	first, err := r.Next(4)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(first))

	p, err := r.Peek(3)
	require.NoError(t, err)
	assert.Equal(t, "456", string(p))
	assert.Equal(t, 4, r.ReadLen())

	b, err := r.Next(3)
	require.NoError(t, err)
	assert.Equal(t, "456", string(b))
	require.NoError(t, r.Skip(2))
	assert.Equal(t, 9, r.ReadLen())

	// larger than the stream buffer
	b, err = r.Next(20)
	require.NoError(t, err)
	assert.Equal(t, data[9:29], string(b))
	assert.Equal(t, "0123", string(first))

	bs := make([]byte, 5)
	n, err := r.ReadBinary(bs)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, data[29:34], string(bs))
	assert.Equal(t, 34, r.ReadLen())

	require.NoError(t, r.Release(nil))
	assert.Equal(t, 0, r.ReadLen())

	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data[34:], string(rest))
	assert.Equal(t, 6, r.ReadLen())
}

func TestStreamReader_Short(t *testing.T) {
	r := NewStreamReader(newInput(t, "abc", 16))

	_, err := r.Next(5)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.ErrorIs(t, r.Skip(4), io.ErrUnexpectedEOF)
	_, err = r.Peek(17)
	assert.ErrorIs(t, err, syscall.EINVAL)
	_, err = r.Next(-1)
	assert.Equal(t, errNegativeCount, err)
	assert.Equal(t, 0, r.ReadLen())

	b, err := r.Next(3)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(b))
	_, err = r.Next(1)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 3, r.ReadLen())
}

func TestStreamWriter(t *testing.T) {
	out := &pipeBackend{}
	s, err := stream.New(out, stream.FlagWrite, 0, 16)
	require.NoError(t, err)
	w := NewStreamWriter(s)

	buf, err := w.Malloc(4)
	require.NoError(t, err)
	copy(buf, "abcd")
	n, err := w.WriteBinary([]byte("ef"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	big, err := w.Malloc(20)
	require.NoError(t, err)
	tail, err := w.Malloc(2)
	require.NoError(t, err)
	copy(tail, "gh")
	copy(big, strings.Repeat("x", 20))
	assert.Equal(t, 28, w.WrittenLen())
	assert.Equal(t, 0, out.Len())

	require.NoError(t, w.Flush())
	assert.Equal(t, "abcdef"+strings.Repeat("x", 20)+"gh", out.String())
	assert.Equal(t, 0, w.WrittenLen())

	large := bytes.Repeat([]byte("y"), nocopyWriteThreshold)
	_, err = w.WriteBinary([]byte("z"))
	require.NoError(t, err)
	_, err = w.WriteBinary(large)
	require.NoError(t, err)
	require.NoError(t, w.Flush())
	assert.Equal(t, "z"+string(large), out.String()[28:])
}

func TestStreamWriter_HoldsLock(t *testing.T) {
	out := &pipeBackend{}
	s, err := stream.New(out, stream.FlagWrite|stream.FlagThreadSafe, 0, 16)
	require.NoError(t, err)
	w := NewStreamWriter(s)

	buf, err := w.Malloc(2)
	require.NoError(t, err)
	copy(buf, "ok")
	_, ok := s.TryLock()
	assert.False(t, ok)

	require.NoError(t, w.Flush())
	l, ok := s.TryLock()
	require.True(t, ok)
	l.Unlock()
	assert.Equal(t, "ok", out.String())
}

func TestStreamWriter_Errors(t *testing.T) {
	in := newInput(t, "abc", 16)
	_, err := NewStreamWriter(in).Malloc(1)
	assert.ErrorIs(t, err, stream.ErrNotWritable)

	s, err := stream.New(brokenPipe{}, stream.FlagWrite, 0, 16)
	require.NoError(t, err)
	w := NewStreamWriter(s)
	_, err = w.Malloc(4)
	require.NoError(t, err)
	assert.ErrorIs(t, w.Flush(), syscall.EPIPE)
	_, err = w.Malloc(1)
	assert.ErrorIs(t, err, syscall.EPIPE)
	_, err = w.WriteBinary([]byte("x"))
	assert.ErrorIs(t, err, syscall.EPIPE)
}
