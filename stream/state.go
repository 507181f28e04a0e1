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
	"io"
	"os"
	"syscall"

	"github.com/bytedance/gopkg/lang/mcache"
)

// Err returns the sticky error of the stream, nil if there is none.
// Operations that return short counts may have set it.
func (s *Stream) Err() error {
	locked := s.lock()
	defer s.unlock(locked)
	return s.getErr()
}

func (s *Stream) getErr() error {
	if s.state == stateErr {
		return s.err
	}
	return nil
}

// SetErr replaces the error state and returns the previous one. nil
// clears both the sticky error and end of input, io.EOF sets end of
// input, anything else becomes the sticky error.
func (s *Stream) SetErr(err error) error {
	locked := s.lock()
	defer s.unlock(locked)
	return s.setErr(err)
}

func (s *Stream) setErr(err error) (prev error) {
	switch s.state {
	case stateClosed:
		return os.ErrClosed
	case stateErr:
		prev = s.err
	case stateEOF:
		prev = io.EOF
	}
	switch err {
	case nil:
		s.state, s.err = stateOpen, nil
	case io.EOF:
		s.state, s.err = stateEOF, nil
	default:
		s.state, s.err = stateErr, err
	}
	s.in.narrow(s.narrowIn())
	s.out.narrow(s.narrowOut())
	return prev
}

// Eof tells whether end of input was reached and all buffered input
// has been consumed.
func (s *Stream) Eof() bool {
	locked := s.lock()
	defer s.unlock(locked)
	return s.atEOF() && s.in.avail() == 0
}

// Flags returns the flags of the stream.
func (s *Stream) Flags() Flag {
	locked := s.lock()
	defer s.unlock(locked)
	return s.flags
}

// SetFlags changes the buffering mode. Only FlagLineBuf, FlagUnbuf and
// FlagThreadSafe may differ from Flags. It takes the stream lock even
// on streams without FlagThreadSafe.
func (s *Stream) SetFlags(flags Flag) error {
	if s.locking {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return s.setFlags(flags)
}

func (s *Stream) setFlags(flags Flag) error {
	if (flags^s.flags)&^modeFlags != 0 {
		return syscall.EINVAL
	}
	if flags&FlagThreadSafe != 0 && !s.locking {
		return syscall.EINVAL
	}
	s.flags = flags
	s.ts.Store(flags&FlagThreadSafe != 0)
	if s.peekIn.Load() == 0 {
		s.in.narrow(s.narrowIn())
	}
	if s.peekOut.Load() == 0 {
		s.out.narrow(s.narrowOut())
	}
	return nil
}

// Purge drops unread input if which has FlagRead and pending output if
// which has FlagWrite. A borrowed side is left alone.
func (s *Stream) Purge(which Flag) {
	locked := s.lock()
	defer s.unlock(locked)
	s.purge(which)
}

func (s *Stream) purge(which Flag) {
	if which&FlagRead != 0 && s.peekIn.Load() == 0 {
		s.in.advance(s.in.avail())
	}
	if which&FlagWrite != 0 && s.peekOut.Load() == 0 {
		s.out.next = 0
		s.out.narrow(s.narrowOut())
	}
}

// InBufSize returns the input buffer size.
func (s *Stream) InBufSize() int {
	locked := s.lock()
	defer s.unlock(locked)
	return s.inSize
}

// OutBufSize returns the output buffer size.
func (s *Stream) OutBufSize() int {
	locked := s.lock()
	defer s.unlock(locked)
	return s.outSize
}

// SetInBuf resizes the input buffer, keeping unread input. Streams whose
// backend lends input memory return ErrNotSupported.
func (s *Stream) SetInBuf(size int) error {
	locked := s.lock()
	defer s.unlock(locked)
	return s.setInBuf(size)
}

func (s *Stream) setInBuf(size int) error {
	if err := s.readable(); err != nil {
		return err
	}
	if s.flags&FlagRead == 0 {
		return ErrNotReadable
	}
	if s.caps.inPeeker != nil {
		return ErrNotSupported
	}
	if size <= 0 || size > maxBufSize || size < s.in.avail() {
		return syscall.EINVAL
	}
	if size == s.inSize {
		return nil
	}
	buf := mcache.Malloc(size)
	n := copy(buf, s.in.bytes())
	if s.inMem != nil {
		mcache.Free(s.inMem)
	}
	s.inMem = buf
	s.inSize = size
	s.in.reset(buf, n)
	s.in.narrow(s.narrowIn())
	return nil
}

// SetOutBuf writes pending output and resizes the output buffer.
// Streams whose backend lends output memory return ErrNotSupported.
func (s *Stream) SetOutBuf(size int) error {
	locked := s.lock()
	defer s.unlock(locked)
	return s.setOutBuf(size)
}

func (s *Stream) setOutBuf(size int) error {
	if err := s.writable(); err != nil {
		return err
	}
	if s.flags&FlagWrite == 0 {
		return ErrNotWritable
	}
	if s.caps.outPeeker != nil {
		return ErrNotSupported
	}
	if size <= 0 || size > maxBufSize {
		return syscall.EINVAL
	}
	if size == s.outSize {
		return nil
	}
	if s.out.next > 0 {
		if err := s.flush(0); err != nil {
			return err
		}
	}
	buf := mcache.Malloc(size)
	if s.outMem != nil {
		mcache.Free(s.outMem)
	}
	s.outMem = buf
	s.outSize = size
	// the next write goes through flush and picks up the new size
	s.out.reset(buf, 0)
	return nil
}

// GetInfo asks the backend for the value of key. Backends that do not
// answer queries return ErrNoKey.
func (s *Stream) GetInfo(key InfoKey) (any, error) {
	locked := s.lock()
	defer s.unlock(locked)
	return s.getInfo(key)
}

func (s *Stream) getInfo(key InfoKey) (any, error) {
	if s.state == stateClosed {
		return nil, os.ErrClosed
	}
	if s.caps.info == nil {
		return nil, ErrNoKey
	}
	return s.caps.info.GetInfo(key)
}

// Fileno returns the descriptor under the stream, or ErrNotSupported.
func (s *Stream) Fileno() (int, error) {
	v, err := s.GetInfo(KeyFD)
	if err != nil {
		return -1, ErrNotSupported
	}
	fd, ok := v.(int)
	if !ok {
		return -1, ErrNotSupported
	}
	return fd, nil
}

// IsTerminal tells whether the stream is connected to a terminal.
func (s *Stream) IsTerminal() bool {
	v, err := s.GetInfo(KeyIsATTY)
	if err != nil {
		return false
	}
	tty, _ := v.(bool)
	return tty
}

// SubStream returns the stream wrapped by a filter backend, or nil.
func (s *Stream) SubStream() *Stream {
	v, err := s.GetInfo(KeySubStream)
	if err != nil {
		return nil
	}
	sub, _ := v.(*Stream)
	return sub
}

// Name returns the name the backend reports for KeyName, or "".
func (s *Stream) Name() string {
	v, err := s.GetInfo(KeyName)
	if err != nil {
		return ""
	}
	name, _ := v.(string)
	return name
}
