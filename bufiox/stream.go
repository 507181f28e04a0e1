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
	"io"
	"syscall"

	"github.com/bytedance/gopkg/lang/mcache"

	"github.com/cloudwego/xfile/stream"
)

const (
	defaultChunkSize     = 8 * 1024
	nocopyWriteThreshold = 4 * 1024
)

var (
	_ Reader    = &StreamReader{}
	_ io.Reader = &StreamReader{}
	_ Writer    = &StreamWriter{}
)

// StreamReader is a Reader over a stream.
//
// Slices returned by Next and Peek are copies, so the stream stays usable
// by others between calls. Requests that fit the input buffer of the
// stream are all-or-nothing: a short Next, Peek or Skip consumes nothing.
type StreamReader struct {
	s      *stream.Stream
	toFree [][]byte
	rn     int
}

// NewStreamReader returns a StreamReader reading from s.
func NewStreamReader(s *stream.Stream) *StreamReader {
	return &StreamReader{s: s}
}

// view borrows exactly n buffered bytes of s. ok is false when input
// ended first, in which case nothing is borrowed.
func (r *StreamReader) view(n int) (p stream.InPeek, ok bool, err error) {
	p, err = r.s.PeekInStart(n)
	if err != nil {
		return p, false, err
	}
	if p.Len() < n {
		if err = p.End(0); err != nil {
			return p, false, err
		}
		return p, false, r.shortErr()
	}
	return p, true, nil
}

func (r *StreamReader) shortErr() error {
	if err := r.s.Err(); err != nil {
		return err
	}
	return io.ErrUnexpectedEOF
}

func (r *StreamReader) take(n int, advance bool) ([]byte, error) {
	if n < 0 {
		return nil, errNegativeCount
	}
	if n == 0 {
		return []byte{}, nil
	}
	if n > r.s.InBufSize() {
		if !advance {
			return nil, syscall.EINVAL
		}
		buf := mcache.Malloc(n)
		if _, err := io.ReadFull(r.s, buf); err != nil {
			mcache.Free(buf)
			return nil, err
		}
		r.toFree = append(r.toFree, buf)
		return buf, nil
	}
	p, ok, err := r.view(n)
	if !ok {
		return nil, err
	}
	buf := mcache.Malloc(n)
	copy(buf, p.Bytes())
	used := 0
	if advance {
		used = n
	}
	if err := p.End(used); err != nil {
		mcache.Free(buf)
		return nil, err
	}
	r.toFree = append(r.toFree, buf)
	return buf, nil
}

func (r *StreamReader) Next(n int) ([]byte, error) {
	buf, err := r.take(n, true)
	if err == nil {
		r.rn += n
	}
	return buf, err
}

// Peek fails with EINVAL when n exceeds the input buffer size of the
// stream.
func (r *StreamReader) Peek(n int) ([]byte, error) {
	return r.take(n, false)
}

func (r *StreamReader) Skip(n int) error {
	if n < 0 {
		return errNegativeCount
	}
	if n == 0 {
		return nil
	}
	if n <= r.s.InBufSize() {
		p, ok, err := r.view(n)
		if !ok {
			return err
		}
		if err := p.End(n); err != nil {
			return err
		}
		r.rn += n
		return nil
	}
	m, err := r.s.Skip(int64(n))
	r.rn += int(m)
	if err == nil && int(m) < n {
		err = io.ErrUnexpectedEOF
	}
	return err
}

func (r *StreamReader) ReadLen() int {
	return r.rn
}

func (r *StreamReader) ReadBinary(bs []byte) (int, error) {
	n, err := io.ReadFull(r.s, bs)
	r.rn += n
	return n, err
}

// Read implements io.Reader.
func (r *StreamReader) Read(bs []byte) (int, error) {
	n, err := r.s.Read(bs)
	r.rn += n
	return n, err
}

func (r *StreamReader) Release(e error) error {
	for i, buf := range r.toFree {
		mcache.Free(buf)
		r.toFree[i] = nil
	}
	r.toFree = r.toFree[:0]
	r.rn = 0
	return nil
}

// StreamWriter is a Writer over a stream.
//
// Malloc hands out output space of the stream itself while it fits.
// Until Flush, that space stays borrowed, which holds the lock of a
// thread safe stream. Anything that does not fit goes to chunks written
// to the stream by Flush.
type StreamWriter struct {
	s *stream.Stream

	peek    stream.OutPeek
	peeking bool
	off     int // bytes handed out from peek
	spilled bool

	chunk  []byte
	chunks [][]byte
	toFree [][]byte

	wl  int
	err error
}

// NewStreamWriter returns a StreamWriter writing to s.
func NewStreamWriter(s *stream.Stream) *StreamWriter {
	return &StreamWriter{s: s}
}

// direct returns n bytes of stream output space, or nil when the stream
// cannot provide them.
func (w *StreamWriter) direct(n int) ([]byte, error) {
	if w.spilled {
		return nil, nil
	}
	// the stream is locked while peeking
	if !w.peeking {
		if w.s.Flags()&stream.FlagWrite == 0 {
			return nil, stream.ErrNotWritable
		}
		if n > w.s.OutBufSize() {
			return nil, nil
		}
		p, err := w.s.PeekOutStart(n)
		if err != nil {
			return nil, err
		}
		w.peek, w.peeking, w.off = p, true, 0
	}
	if w.off+n > w.peek.Len() {
		return nil, nil
	}
	buf := w.peek.Bytes()[w.off : w.off+n : w.off+n]
	w.off += n
	return buf, nil
}

func (w *StreamWriter) acquire(n int) []byte {
	w.spilled = true
	if len(w.chunk)+n > cap(w.chunk) {
		if len(w.chunk) > 0 {
			w.chunks = append(w.chunks, w.chunk)
		}
		ncap := defaultChunkSize
		for ncap < n {
			ncap *= 2
		}
		w.chunk = mcache.Malloc(0, ncap)
		w.toFree = append(w.toFree, w.chunk)
	}
	buf := w.chunk[len(w.chunk) : len(w.chunk)+n]
	w.chunk = w.chunk[:len(w.chunk)+n]
	return buf
}

func (w *StreamWriter) Malloc(n int) ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	if n < 0 {
		return nil, errNegativeCount
	}
	if n == 0 {
		return []byte{}, nil
	}
	buf, err := w.direct(n)
	if err != nil {
		return nil, err
	}
	if buf == nil {
		buf = w.acquire(n)
	}
	w.wl += n
	return buf, nil
}

func (w *StreamWriter) WriteBinary(bs []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	if len(bs) >= nocopyWriteThreshold {
		w.spilled = true
		if len(w.chunk) > 0 {
			w.chunks = append(w.chunks, w.chunk)
			w.chunk = nil
		}
		w.chunks = append(w.chunks, bs)
		w.wl += len(bs)
		return len(bs), nil
	}
	buf, err := w.Malloc(len(bs))
	if err != nil {
		return 0, err
	}
	return copy(buf, bs), nil
}

func (w *StreamWriter) WrittenLen() int {
	return w.wl
}

// Flush commits the borrowed space, writes the chunks and flushes the
// stream. A write error is kept and returned by every later call.
func (w *StreamWriter) Flush() error {
	if w.err != nil {
		return w.err
	}
	if w.peeking {
		w.peeking = false
		if err := w.peek.End(w.off); err != nil {
			w.err = err
			return err
		}
		w.peek, w.off = stream.OutPeek{}, 0
	}
	if len(w.chunk) > 0 {
		w.chunks = append(w.chunks, w.chunk)
		w.chunk = nil
	}
	for _, b := range w.chunks {
		if _, err := w.s.Write(b); err != nil {
			w.err = err
			return err
		}
	}
	for i := range w.chunks {
		w.chunks[i] = nil
	}
	w.chunks = w.chunks[:0]
	for i, buf := range w.toFree {
		mcache.Free(buf)
		w.toFree[i] = nil
	}
	w.toFree = w.toFree[:0]
	w.chunk = nil
	w.spilled = false
	w.wl = 0
	if err := w.s.Flush(); err != nil {
		w.err = err
		return err
	}
	return nil
}
