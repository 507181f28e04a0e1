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
	"io"
)

type seekCall struct {
	offset int64
	whence int
}

// mockFile is a seekable in-memory file recording every backend call.
type mockFile struct {
	data    []byte
	pos     int64
	maxRead int // limits bytes per Read when > 0

	calls  int   // every backend call
	failAt int   // call number failing with failOn when > 0
	failOn error // error returned by the failing call

	reads      int
	writes     [][]byte
	seeks      []seekCall
	flushes    int
	closes     int
	closeFlags CloseFlag
}

func newMockFile(data []byte) *mockFile {
	return &mockFile{data: append([]byte(nil), data...)}
}

func (f *mockFile) fail() error {
	f.calls++
	if f.failAt > 0 && f.calls == f.failAt {
		return f.failOn
	}
	return nil
}

func (f *mockFile) Read(p []byte) (int, error) {
	if len(p) == 0 {
		panic("empty read")
	}
	f.reads++
	if err := f.fail(); err != nil {
		return 0, err
	}
	if f.pos >= int64(len(f.data)) {
		return 0, io.EOF
	}
	if f.maxRead > 0 && len(p) > f.maxRead {
		p = p[:f.maxRead]
	}
	n := copy(p, f.data[f.pos:])
	f.pos += int64(n)
	return n, nil
}

func (f *mockFile) Write(p []byte) (int, error) {
	if len(p) == 0 {
		panic("empty write")
	}
	if err := f.fail(); err != nil {
		return 0, err
	}
	f.writes = append(f.writes, append([]byte(nil), p...))
	if end := f.pos + int64(len(p)); end > int64(len(f.data)) {
		f.data = append(f.data, make([]byte, end-int64(len(f.data)))...)
	}
	copy(f.data[f.pos:], p)
	f.pos += int64(len(p))
	return len(p), nil
}

func (f *mockFile) Seek(offset int64, whence int) (int64, error) {
	if err := f.fail(); err != nil {
		return 0, err
	}
	f.seeks = append(f.seeks, seekCall{offset, whence})
	pos, err := OffAbs(f.pos, int64(len(f.data)), offset, whence)
	if err != nil {
		return 0, err
	}
	f.pos = pos
	return pos, nil
}

func (f *mockFile) Flush(FlushFlag) error {
	f.flushes++
	return f.fail()
}

func (f *mockFile) Close(flags CloseFlag) error {
	f.closes++
	f.closeFlags = flags
	return f.fail()
}

func (f *mockFile) GetInfo(key InfoKey) (any, error) {
	switch key {
	case KeyName:
		return "mock", nil
	case KeyFD:
		return 42, nil
	}
	return nil, ErrNoKey
}

// mockPipe hides everything but Read and Write of a mockFile.
type mockPipe struct {
	f *mockFile
}

func (p *mockPipe) Read(b []byte) (int, error)  { return p.f.Read(b) }
func (p *mockPipe) Write(b []byte) (int, error) { return p.f.Write(b) }

// mockSource lends its own memory for reading, chunk bytes at a time.
type mockSource struct {
	data   []byte
	pos    int
	chunk  int
	active bool
	starts int
	ends   []int
}

func (m *mockSource) PeekInStart(min int) ([]byte, error) {
	if m.active {
		return nil, errors.New("borrow already active")
	}
	m.starts++
	n := m.chunk
	if n < min {
		n = min
	}
	if left := len(m.data) - m.pos; n >= left {
		if left == 0 {
			return nil, io.EOF
		}
		m.active = true
		var err error
		if left < min {
			err = io.EOF
		}
		return m.data[m.pos:], err
	}
	m.active = true
	return m.data[m.pos : m.pos+n], nil
}

func (m *mockSource) PeekInEnd(used int) error {
	if !m.active {
		return errors.New("no borrow active")
	}
	m.active = false
	m.ends = append(m.ends, used)
	m.pos += used
	return nil
}

// mockSink lends its own memory for writing.
type mockSink struct {
	out    []byte
	space  []byte
	active bool
	ends   []int
}

func (m *mockSink) PeekOutStart(min int) ([]byte, error) {
	if m.active {
		return nil, errors.New("borrow already active")
	}
	n := 16
	if n < min {
		n = min
	}
	m.space = make([]byte, n)
	m.active = true
	return m.space, nil
}

func (m *mockSink) PeekOutEnd(written int) error {
	if !m.active {
		return errors.New("no borrow active")
	}
	m.active = false
	m.ends = append(m.ends, written)
	m.out = append(m.out, m.space[:written]...)
	return nil
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7%251 + 1)
	}
	return b
}
