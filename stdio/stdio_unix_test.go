//go:build unix

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

package stdio

import (
	"io"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/cloudwego/xfile/stream"
)

// dup returns a private copy of the descriptor of f, closed by the
// Context under test.
func dup(t *testing.T, f *os.File) int {
	n, err := unix.Dup(int(f.Fd()))
	require.NoError(t, err)
	return n
}

func pipe(t *testing.T) (*os.File, *os.File) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() {
		r.Close()
		w.Close()
	})
	return r, w
}

func TestContext_Streams(t *testing.T) {
	inR, inW := pipe(t)
	outR, outW := pipe(t)
	errR, errW := pipe(t)

	c := New(WithDescriptors(dup(t, inR), dup(t, outW), dup(t, errW)))

	_, err := inW.WriteString("hello\nrest")
	require.NoError(t, err)
	require.NoError(t, inW.Close())

	in := c.Stdin()
	assert.Same(t, in, c.Stdin())
	assert.Equal(t, stream.FlagRead, in.Flags())
	line := make([]byte, 16)
	n, err := in.GetLine(line)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(line[:n]))

	out := c.Stdout()
	assert.Equal(t, stream.FlagWrite, out.Flags())
	_, err = out.WriteString("to stdout")
	require.NoError(t, err)

	errs := c.Stderr()
	assert.Equal(t, stream.FlagWrite|stream.FlagUnbuf, errs.Flags())
	_, err = errs.WriteString("to stderr")
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.NoError(t, c.Close())
	_, err = out.WriteString("late")
	assert.ErrorIs(t, err, os.ErrClosed)

	require.NoError(t, outW.Close())
	got, err := io.ReadAll(outR)
	require.NoError(t, err)
	assert.Equal(t, "to stdout", string(got))

	require.NoError(t, errW.Close())
	got, err = io.ReadAll(errR)
	require.NoError(t, err)
	assert.Equal(t, "to stderr", string(got))
}

func TestContext_StdoutMode(t *testing.T) {
	_, w := pipe(t)

	c := New(WithDescriptors(0, dup(t, w), 2), WithLineBuf())
	assert.Equal(t, stream.FlagWrite|stream.FlagLineBuf, c.Stdout().Flags())
	require.NoError(t, c.Close())

	c = New(WithDescriptors(0, dup(t, w), 2), WithUnbuf())
	assert.Equal(t, stream.FlagWrite|stream.FlagUnbuf, c.Stdout().Flags())
	require.NoError(t, c.Close())
}

func TestContext_ClosedDescriptor(t *testing.T) {
	const n = 900
	if _, err := unix.FcntlInt(n, unix.F_GETFL, 0); err != syscall.EBADF {
		t.Skipf("descriptor %d is in use", n)
	}
	t.Cleanup(func() { unix.Close(n) })

	c := New(WithDescriptors(n, 1, 2))
	s := c.Stdin()
	assert.Equal(t, stream.Flag(0), s.Flags())
	_, err := s.ReadByte()
	assert.ErrorIs(t, err, stream.ErrNotReadable)

	// the descriptor now refers to the null device
	fl, err := unix.FcntlInt(n, unix.F_GETFL, 0)
	require.NoError(t, err)
	assert.Equal(t, unix.O_WRONLY, fl&unix.O_ACCMODE)
	require.NoError(t, c.Close())
}

func TestContext_IgnorePipe(t *testing.T) {
	for _, ignore := range []bool{false, true} {
		r, w := pipe(t)
		var opts []Option
		if ignore {
			opts = append(opts, WithIgnorePipe())
		}
		c := New(append(opts, WithDescriptors(0, dup(t, w), 2))...)
		_, err := c.Stdout().WriteString("nobody reads this")
		require.NoError(t, err)
		require.NoError(t, r.Close())

		err = c.Close()
		if ignore {
			assert.NoError(t, err)
		} else {
			assert.ErrorIs(t, err, syscall.EPIPE)
		}
	}
}
