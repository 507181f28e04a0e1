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

import "io"

// Backend is the data source or sink behind a Stream. A backend
// implements any subset of the capability interfaces below; New
// inspects it once and dispatches through what it finds.
//
// Rules every backend must follow:
//   - Read and Write are never called with an empty slice.
//   - Read may return fewer bytes than asked for. End of input is io.EOF.
//   - Write consumes everything or returns an error.
//   - Close is called exactly once, by the Stream close path.
//   - GetInfo returns ErrNoKey for keys it does not know.
type Backend interface{}

// Reader copies input into the caller's memory.
type Reader = io.Reader

// Writer copies output from the caller's memory.
type Writer = io.Writer

// Seeker moves the backend position and returns the new absolute offset.
type Seeker = io.Seeker

// Flusher pushes data buffered inside the backend.
type Flusher interface {
	Flush(flags FlushFlag) error
}

// Closer releases the backend. If the backend only implements io.Closer
// it is closed unless CloseDetach is given.
type Closer interface {
	Close(flags CloseFlag) error
}

// InPeeker lends its own memory for reading.
//
// PeekInStart returns at least min bytes, or fewer together with an error
// (io.EOF at end of input). PeekInEnd reports how many of them were
// consumed; the rest are returned by the next PeekInStart.
type InPeeker interface {
	PeekInStart(min int) ([]byte, error)
	PeekInEnd(used int) error
}

// OutPeeker lends its own memory for writing.
//
// PeekOutStart returns at least min bytes of space. PeekOutEnd reports
// how many bytes were produced at the start of that space.
type OutPeeker interface {
	PeekOutStart(min int) ([]byte, error)
	PeekOutEnd(written int) error
}

// InfoGetter answers small backend specific queries.
type InfoGetter interface {
	GetInfo(key InfoKey) (any, error)
}

// caps is the capability set of a backend, resolved once.
type caps struct {
	reader    Reader
	writer    Writer
	seeker    Seeker
	flusher   Flusher
	closer    Closer
	ioCloser  io.Closer
	inPeeker  InPeeker
	outPeeker OutPeeker
	info      InfoGetter
}

func capsOf(b Backend) (c caps) {
	c.reader, _ = b.(Reader)
	c.writer, _ = b.(Writer)
	c.seeker, _ = b.(Seeker)
	c.flusher, _ = b.(Flusher)
	c.closer, _ = b.(Closer)
	if c.closer == nil {
		c.ioCloser, _ = b.(io.Closer)
	}
	c.inPeeker, _ = b.(InPeeker)
	c.outPeeker, _ = b.(OutPeeker)
	c.info, _ = b.(InfoGetter)
	return
}

func (c *caps) canRead() bool  { return c.reader != nil || c.inPeeker != nil }
func (c *caps) canWrite() bool { return c.writer != nil || c.outPeeker != nil }

func (c *caps) close(flags CloseFlag) error {
	switch {
	case c.closer != nil:
		return c.closer.Close(flags)
	case c.ioCloser != nil && flags&CloseDetach == 0:
		return c.ioCloser.Close()
	}
	return nil
}

// write hands p to the backend in full.
func (c *caps) write(p []byte) error {
	n, err := c.writer.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return err
}
