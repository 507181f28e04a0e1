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

// Package callback wraps a stream and calls a function on every chunk
// of data read from or written to it.
package callback

import (
	"hash/crc32"

	"github.com/cespare/xxhash/v2"

	"github.com/cloudwego/xfile/stream"
)

// Func is called with data passing through the stream. p is only valid
// during the call.
type Func func(p []byte)

// CRC32 returns a Func updating *sum with the IEEE CRC32 of the data.
func CRC32(sum *uint32) Func {
	return func(p []byte) {
		*sum = crc32.Update(*sum, crc32.IEEETable, p)
	}
}

// XXHash returns a Func feeding the data to d.
func XXHash(d *xxhash.Digest) Func {
	return func(p []byte) {
		_, _ = d.Write(p)
	}
}

type filter struct {
	sub *stream.Stream
	in  Func
	out Func

	peekIn  stream.InPeek
	peekOut stream.OutPeek
}

var (
	_ stream.InPeeker   = &filter{}
	_ stream.OutPeeker  = &filter{}
	_ stream.Flusher    = &filter{}
	_ stream.Closer     = &filter{}
	_ stream.InfoGetter = &filter{}
)

// Open returns a stream over sub calling in with every chunk consumed
// by the reader and out with every chunk produced by the writer. Either
// may be nil. The new stream has the directions and buffer sizes of sub
// but is not seekable. Closing it closes sub unless detached.
func Open(sub *stream.Stream, in, out Func) (*stream.Stream, error) {
	return open(sub, sub.Flags(), in, out)
}

// OpenIn is Open for the reading direction only.
func OpenIn(sub *stream.Stream, in Func) (*stream.Stream, error) {
	flags := sub.Flags()
	if flags&stream.FlagRead == 0 {
		return nil, stream.ErrNotReadable
	}
	return open(sub, flags&^stream.FlagWrite, in, nil)
}

// OpenOut is Open for the writing direction only.
func OpenOut(sub *stream.Stream, out Func) (*stream.Stream, error) {
	flags := sub.Flags()
	if flags&stream.FlagWrite == 0 {
		return nil, stream.ErrNotWritable
	}
	return open(sub, flags&^stream.FlagRead, nil, out)
}

func open(sub *stream.Stream, flags stream.Flag, in, out Func) (*stream.Stream, error) {
	f := &filter{sub: sub, in: in, out: out}
	flags &^= stream.FlagSeekable | stream.FlagFixReadPos
	return stream.New(f, flags, sub.InBufSize(), sub.OutBufSize())
}

func (f *filter) Read(p []byte) (int, error) {
	n, err := f.sub.Read(p)
	if n > 0 && f.in != nil {
		f.in(p[:n])
	}
	return n, err
}

func (f *filter) Write(p []byte) (int, error) {
	n, err := f.sub.Write(p)
	if n > 0 && f.out != nil {
		f.out(p[:n])
	}
	return n, err
}

func (f *filter) PeekInStart(min int) ([]byte, error) {
	p, err := f.sub.LendIn(min)
	if err != nil {
		return nil, err
	}
	// a short view means end of input, reported by the next call
	f.peekIn = p
	return p.Bytes(), nil
}

func (f *filter) PeekInEnd(used int) error {
	p := f.peekIn
	f.peekIn = stream.InPeek{}
	if used >= 0 && used <= p.Len() && f.in != nil {
		f.in(p.Bytes()[:used])
	}
	return p.End(used)
}

func (f *filter) PeekOutStart(min int) ([]byte, error) {
	p, err := f.sub.LendOut(min)
	if err != nil {
		return nil, err
	}
	f.peekOut = p
	return p.Bytes(), nil
}

func (f *filter) PeekOutEnd(written int) error {
	p := f.peekOut
	f.peekOut = stream.OutPeek{}
	if written >= 0 && written <= p.Len() && f.out != nil {
		f.out(p.Bytes()[:written])
	}
	return p.End(written)
}

func (f *filter) Flush(flags stream.FlushFlag) error {
	return f.sub.FlushWith(flags)
}

func (f *filter) Close(flags stream.CloseFlag) error {
	if flags&stream.CloseDetach != 0 {
		return nil
	}
	return f.sub.CloseWith(flags)
}

func (f *filter) GetInfo(key stream.InfoKey) (any, error) {
	if key == stream.KeySubStream {
		return f.sub, nil
	}
	return f.sub.GetInfo(key)
}
