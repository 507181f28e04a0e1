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

package gzin

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/xfile/stream"
)

func compress(t *testing.T, data []byte) []byte {
	var b bytes.Buffer
	w := gzip.NewWriter(&b)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return b.Bytes()
}

func openBytes(t *testing.T, gz []byte, zflags stream.ZType) (*stream.Stream, *stream.Stream) {
	sub, err := stream.New(bytes.NewReader(gz), stream.FlagRead, 64, 0)
	require.NoError(t, err)
	s, err := Open(sub, zflags)
	require.NoError(t, err)
	return s, sub
}

func TestRead(t *testing.T) {
	data := []byte(strings.Repeat("gzip member payload ", 2000))
	s, sub := openBytes(t, compress(t, data), 0)

	assert.Equal(t, stream.FlagRead, s.Flags())
	assert.Same(t, sub, s.SubStream())
	z, err := s.GetInfo(stream.KeyZType)
	require.NoError(t, err)
	assert.Equal(t, stream.ZGzip, z)
	_, err = s.GetInfo(stream.KeyName)
	assert.ErrorIs(t, err, stream.ErrNoKey)

	got, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.True(t, s.Eof())
	require.NoError(t, s.Close())

	_, err = sub.ReadByte()
	assert.Error(t, err)
}

func TestRead_Concatenated(t *testing.T) {
	a := []byte(strings.Repeat("first ", 100))
	b := []byte(strings.Repeat("second ", 100))
	ga, gb := compress(t, a), compress(t, b)
	gz := append(append([]byte(nil), ga...), gb...)

	t.Run("multistream", func(t *testing.T) {
		s, _ := openBytes(t, gz, 0)
		got, err := io.ReadAll(s)
		require.NoError(t, err)
		assert.Equal(t, append(append([]byte(nil), a...), b...), got)
		require.NoError(t, s.Close())
	})

	t.Run("single", func(t *testing.T) {
		s, sub := openBytes(t, gz, stream.ZSingle|stream.ZGzip)
		got, err := io.ReadAll(s)
		require.NoError(t, err)
		assert.Equal(t, a, got)
		require.NoError(t, s.CloseWith(stream.CloseDetach))

		// the sub-stream stops right after the first member
		rest, err := io.ReadAll(sub)
		require.NoError(t, err)
		assert.Equal(t, gb, rest)
		require.NoError(t, sub.Close())
	})
}

func TestRead_Errors(t *testing.T) {
	data := []byte(strings.Repeat("0123456789", 500))
	gz := compress(t, data)

	badMagic := append([]byte(nil), gz...)
	badMagic[0] ^= 0xff
	badCRC := append([]byte(nil), gz...)
	badCRC[len(badCRC)-8] ^= 0xff
	garbage := append(append([]byte(nil), gz...), "not gzip at all"...)

	tcases := []struct {
		name string
		in   []byte
		err  error
	}{
		{"empty", nil, stream.ErrZTrunc},
		{"short header", gz[:5], stream.ErrZTrunc},
		{"truncated body", gz[:len(gz)/2], stream.ErrZTrunc},
		{"truncated trailer", gz[:len(gz)-3], stream.ErrZTrunc},
		{"bad magic", badMagic, stream.ErrZCorrupt},
		{"bad checksum", badCRC, stream.ErrZCorrupt},
		{"trailing garbage", garbage, stream.ErrZCorrupt},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := openBytes(t, tc.in, 0)
			_, err := io.ReadAll(s)
			assert.ErrorIs(t, err, tc.err)
			assert.ErrorIs(t, s.Err(), tc.err)
			assert.ErrorIs(t, s.Close(), tc.err)
		})
	}
}

func TestOpen_Arguments(t *testing.T) {
	sub, err := stream.New(bytes.NewReader(nil), stream.FlagRead, 64, 0)
	require.NoError(t, err)
	_, err = Open(sub, stream.ZXz)
	assert.ErrorIs(t, err, syscall.EINVAL)

	w, err := stream.New(&bytes.Buffer{}, stream.FlagWrite, 0, 64)
	require.NoError(t, err)
	_, err = Open(w, 0)
	assert.ErrorIs(t, err, stream.ErrNotReadable)
}
