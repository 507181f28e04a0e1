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
)

const maxConsecutiveEmptyReads = 100

// fill makes at least minFill bytes of input available. It returns nil
// as long as some input is available, even if a backend error or end
// of input cut the fill short; the error is then latched for the next
// call. fill(0) only ends a backend borrow.
func (s *Stream) fill(minFill int) error {
	if err := s.check(); err != nil {
		return err
	}
	if !s.isReading {
		if err := s.enterRead(); err != nil {
			return err
		}
	}
	var err error
	if s.caps.inPeeker != nil {
		err = s.fillWithPeek(minFill)
	} else {
		err = s.fillWithRead(minFill)
	}
	s.in.narrow(s.narrowIn())
	s.in.check()
	return err
}

// enterRead switches a duplex seekable stream from writing to reading.
func (s *Stream) enterRead() error {
	if s.flags&FlagRead == 0 {
		return ErrNotReadable
	}
	if s.isWriting && s.flags&FlagSeekable != 0 {
		if s.peekOut.Load() != 0 {
			return ErrPeekActive
		}
		if _, err := s.seek(0, io.SeekCurrent); err != nil {
			return err
		}
		s.isWriting = false
		// the inline write path must not buffer output while reading
		s.out.reset(s.out.buf, 0)
	}
	s.isReading = true
	return nil
}

func (s *Stream) fillWithRead(minFill int) (err error) {
	// move the unread bytes to the front
	pos := copy(s.in.buf, s.in.bytes())
	s.in.next = 0
	s.in.stop = 0
	for empty := 0; pos < minFill && !s.atEOF(); {
		n, rerr := s.caps.reader.Read(s.in.buf[pos:s.inSize])
		pos += n
		if rerr != nil {
			err = s.latch(rerr)
			break
		}
		if n > 0 {
			empty = 0
			continue
		}
		if empty++; empty >= maxConsecutiveEmptyReads {
			err = s.latch(io.ErrNoProgress)
			break
		}
	}
	s.in.end = pos
	if pos > 0 || minFill == 0 {
		return nil
	}
	if err == nil {
		err = io.EOF
	}
	return err
}

func (s *Stream) fillWithPeek(minFill int) error {
	if s.backendPeekIn {
		if s.atEOF() && minFill > 0 && s.in.avail() > 0 {
			// nothing more will come, keep what is left
			return nil
		}
		err := s.caps.inPeeker.PeekInEnd(s.in.next)
		s.backendPeekIn = false
		s.in.drop()
		if err != nil {
			return s.latch(err)
		}
	}
	if minFill == 0 {
		return nil
	}
	if s.atEOF() {
		return io.EOF
	}
	buf, err := s.caps.inPeeker.PeekInStart(minFill)
	if err != nil {
		err = s.latch(err)
		if len(buf) == 0 {
			return err
		}
	}
	s.in.reset(buf, len(buf))
	s.backendPeekIn = true
	return nil
}

// Read reads up to len(p) bytes into p. It returns fewer bytes only at
// end of input (io.EOF) or on error; in the latter case the error is
// also kept by the stream, see Err.
func (s *Stream) Read(p []byte) (n int, err error) {
	locked := s.lock()
	defer s.unlock(locked)
	return s.read(p)
}

func (s *Stream) read(p []byte) (int, error) {
	if err := s.readable(); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	n := copy(p, s.in.bytes())
	s.in.advance(n)
	if n == len(p) {
		return n, nil
	}
	if len(p) >= s.inSize && s.caps.reader != nil {
		return s.readDirect(p, n)
	}
	return s.readBuffered(p, n)
}

// readable checks the state shared by all read operations.
func (s *Stream) readable() error {
	if s.peekIn.Load() != 0 {
		return ErrPeekActive
	}
	return s.check()
}

// readDirect reads into p[n:] without going through the input buffer.
func (s *Stream) readDirect(p []byte, n int) (int, error) {
	if err := s.fill(0); err != nil {
		return n, err
	}
	if s.atEOF() {
		return n, io.EOF
	}
	for empty := 0; n < len(p); {
		m, err := s.caps.reader.Read(p[n:])
		n += m
		if err != nil {
			return n, s.latch(err)
		}
		if m > 0 {
			empty = 0
			continue
		}
		if empty++; empty >= maxConsecutiveEmptyReads {
			return n, s.latch(io.ErrNoProgress)
		}
	}
	return n, nil
}

func (s *Stream) readBuffered(p []byte, n int) (int, error) {
	for n < len(p) {
		if s.in.avail() == 0 {
			if err := s.fill(1); err != nil {
				return n, err
			}
		}
		m := copy(p[n:], s.in.bytes())
		s.in.advance(m)
		n += m
	}
	return n, nil
}

// ReadByte reads one byte.
func (s *Stream) ReadByte() (byte, error) {
	// fast path, for inline
	if !s.ts.Load() && s.in.next < s.in.stop {
		c := s.in.buf[s.in.next]
		s.in.next++
		return c, nil
	}
	locked := s.lock()
	defer s.unlock(locked)
	return s.readByte(true)
}

// PeekByte returns the next byte without consuming it.
func (s *Stream) PeekByte() (byte, error) {
	if !s.ts.Load() && s.in.next < s.in.stop {
		return s.in.buf[s.in.next], nil
	}
	locked := s.lock()
	defer s.unlock(locked)
	return s.readByte(false)
}

func (s *Stream) readByte(consume bool) (byte, error) {
	if err := s.readable(); err != nil {
		return 0, err
	}
	if s.in.avail() == 0 {
		if err := s.fill(1); err != nil {
			return 0, err
		}
	}
	c := s.in.buf[s.in.next]
	if consume {
		s.in.advance(1)
	}
	return c, nil
}

// GetLine reads one line into buf without its terminating '\n'. If buf
// fills up first, ErrLineTooLong is returned and the rest of the line
// stays in the stream. A last line without terminator is returned with
// io.EOF.
func (s *Stream) GetLine(buf []byte) (n int, err error) {
	locked := s.lock()
	defer s.unlock(locked)
	return s.getLine(buf)
}

func (s *Stream) getLine(buf []byte) (n int, err error) {
	if err = s.readable(); err != nil {
		return 0, err
	}
	for {
		if s.in.avail() == 0 {
			if err = s.fill(1); err != nil {
				return n, err
			}
		}
		data := s.in.bytes()
		if i := bytes.IndexByte(data, '\n'); i >= 0 && i <= len(buf)-n {
			n += copy(buf[n:], data[:i])
			s.in.advance(i + 1)
			return n, nil
		}
		if n == len(buf) {
			return n, ErrLineTooLong
		}
		m := copy(buf[n:], data)
		s.in.advance(m)
		n += m
	}
}

// Skip discards up to n bytes of input and returns how many were
// skipped. Seekable streams skip with a relative seek, which may move
// past the end of the data.
func (s *Stream) Skip(n int64) (int64, error) {
	locked := s.lock()
	defer s.unlock(locked)
	return s.skip(n)
}

func (s *Stream) skip(n int64) (int64, error) {
	if n < 0 {
		return 0, errNegativeCount
	}
	if err := s.readable(); err != nil {
		return 0, err
	}
	if s.flags&FlagRead == 0 {
		return 0, ErrNotReadable
	}
	if n == 0 {
		return 0, nil
	}
	if s.flags&FlagSeekable != 0 {
		if _, err := s.seek(n, io.SeekCurrent); err != nil {
			return 0, err
		}
		return n, nil
	}
	var skipped int64
	for skipped < n {
		if s.in.avail() == 0 {
			if err := s.fill(1); err != nil {
				return skipped, err
			}
		}
		m := s.in.avail()
		if left := n - skipped; int64(m) > left {
			m = int(left)
		}
		s.in.advance(m)
		skipped += int64(m)
	}
	return skipped, nil
}

// Buffered returns the number of unread bytes in the input buffer.
func (s *Stream) Buffered() int {
	locked := s.lock()
	defer s.unlock(locked)
	return s.in.avail()
}
