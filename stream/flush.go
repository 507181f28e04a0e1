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
	"bytes"
	"io"
	"unsafe"
)

// flush hands pending output to the backend and makes room for at
// least minSize bytes. flush(0) only ends a backend borrow.
func (s *Stream) flush(minSize int) error {
	if err := s.check(); err != nil {
		return err
	}
	if !s.isWriting {
		if err := s.enterWrite(); err != nil {
			return err
		}
	}
	var err error
	if s.caps.outPeeker != nil {
		err = s.flushWithPeek(minSize)
	} else {
		err = s.flushWithWrite()
	}
	s.out.narrow(s.narrowOut())
	s.out.check()
	return err
}

// enterWrite switches a duplex seekable stream from reading to writing.
func (s *Stream) enterWrite() error {
	if s.flags&FlagWrite == 0 {
		return ErrNotWritable
	}
	if s.isReading && s.flags&FlagSeekable != 0 {
		if s.peekIn.Load() != 0 {
			return ErrPeekActive
		}
		if _, err := s.seek(0, io.SeekCurrent); err != nil {
			return err
		}
		s.isReading = false
	}
	s.isWriting = true
	return nil
}

func (s *Stream) flushWithWrite() error {
	if s.out.next > 0 {
		p := s.out.buf[:s.out.next]
		s.out.next = 0
		s.out.stop = 0
		if err := s.caps.write(p); err != nil {
			s.out.end = 0
			return s.latch(err)
		}
	}
	s.out.end = s.outSize
	return nil
}

func (s *Stream) flushWithPeek(minSize int) error {
	if s.backendPeekOut {
		err := s.caps.outPeeker.PeekOutEnd(s.out.next)
		s.backendPeekOut = false
		s.out.drop()
		if err != nil {
			return s.latch(err)
		}
	}
	if minSize == 0 {
		return nil
	}
	buf, err := s.caps.outPeeker.PeekOutStart(minSize)
	if err != nil {
		if len(buf) > 0 {
			_ = s.caps.outPeeker.PeekOutEnd(0)
		}
		return s.latch(err)
	}
	s.out.reset(buf, len(buf))
	s.backendPeekOut = true
	return nil
}

// Write writes p according to the buffering mode of the stream:
// fully buffered streams write large chunks directly, line buffered
// streams flush after each '\n', unbuffered streams write through.
func (s *Stream) Write(p []byte) (n int, err error) {
	locked := s.lock()
	defer s.unlock(locked)
	return s.write(p)
}

// WriteString is Write for a string.
func (s *Stream) WriteString(str string) (int, error) {
	return s.Write(unsafe.Slice(unsafe.StringData(str), len(str)))
}

func (s *Stream) write(p []byte) (int, error) {
	if err := s.writable(); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	switch {
	case s.flags&FlagUnbuf != 0:
		if s.caps.writer == nil {
			n, err := s.writeBuffered(p)
			if err != nil {
				return n, err
			}
			return n, s.flush(0)
		}
		return s.writeDirect(p)
	case s.flags&FlagLineBuf != 0:
		return s.writeLines(p)
	case len(p) >= s.outSize && s.caps.writer != nil:
		return s.writeDirect(p)
	}
	return s.writeBuffered(p)
}

// writable checks the state shared by all write operations.
func (s *Stream) writable() error {
	if s.peekOut.Load() != 0 {
		return ErrPeekActive
	}
	return s.check()
}

// writeDirect writes p to the backend after flushing pending output.
func (s *Stream) writeDirect(p []byte) (int, error) {
	if err := s.flush(0); err != nil {
		return 0, err
	}
	if err := s.caps.write(p); err != nil {
		return 0, s.latch(err)
	}
	return len(p), nil
}

func (s *Stream) writeBuffered(p []byte) (n int, err error) {
	for n < len(p) {
		if s.out.avail() == 0 {
			if err = s.flush(1); err != nil {
				return n, err
			}
		}
		m := copy(s.out.buf[s.out.next:s.out.end], p[n:])
		s.out.advance(m)
		n += m
	}
	return n, nil
}

func (s *Stream) writeLines(p []byte) (n int, err error) {
	for n < len(p) {
		line := p[n:]
		i := bytes.IndexByte(line, '\n')
		if i >= 0 {
			line = line[:i+1]
		}
		m, werr := s.writeBuffered(line)
		n += m
		if werr != nil {
			return n, werr
		}
		if i < 0 {
			break
		}
		minSize := 0
		if n < len(p) {
			minSize = 1
		}
		if err = s.flush(minSize); err != nil {
			return n, err
		}
	}
	return n, nil
}

// WriteByte writes one byte.
func (s *Stream) WriteByte(c byte) error {
	// fast path, for inline
	if !s.ts.Load() && s.out.next < s.out.stop {
		s.out.buf[s.out.next] = c
		s.out.next++
		return nil
	}
	locked := s.lock()
	defer s.unlock(locked)
	return s.writeByte(c)
}

func (s *Stream) writeByte(c byte) error {
	if err := s.writable(); err != nil {
		return err
	}
	if s.out.avail() == 0 {
		if err := s.flush(1); err != nil {
			return err
		}
	}
	s.out.buf[s.out.next] = c
	s.out.advance(1)
	if s.flags&FlagUnbuf != 0 || (s.flags&FlagLineBuf != 0 && c == '\n') {
		return s.flush(0)
	}
	return nil
}

// Pending returns the number of bytes waiting in the output buffer.
func (s *Stream) Pending() int {
	locked := s.lock()
	defer s.unlock(locked)
	return s.out.next
}

// Flush writes pending output, ends backend borrows, rewinds unread
// input on streams with FlagFixReadPos and flushes the backend.
func (s *Stream) Flush() error {
	return s.FlushWith(0)
}

// FlushWith is Flush with flags passed to the backend.
func (s *Stream) FlushWith(flags FlushFlag) error {
	locked := s.lock()
	defer s.unlock(locked)
	return s.flushAll(flags)
}

// flushAll leaves borrowed input alone: only output is flushed while
// input is borrowed.
func (s *Stream) flushAll(flags FlushFlag) error {
	if s.peekOut.Load() != 0 {
		return ErrPeekActive
	}
	if err := s.check(); err != nil {
		return err
	}
	if s.out.next > 0 || s.backendPeekOut {
		if err := s.flush(0); err != nil {
			return err
		}
	}
	if s.peekIn.Load() == 0 {
		if s.backendPeekIn {
			if err := s.fill(0); err != nil {
				return err
			}
		}
		if err := s.fixReadPos(); err != nil {
			return err
		}
	}
	if s.caps.flusher != nil {
		if err := s.caps.flusher.Flush(flags); err != nil {
			return s.latch(err)
		}
	}
	return nil
}
