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
	"syscall"
)

const (
	tokenHoldsLock uint64 = 1 << iota // the stream lock is held until End
	tokenLent                         // End takes the stream lock itself
	tokenShift     = iota
)

func newToken(bits uint64) uint64 {
	return peekSeq.Add(1)<<tokenShift | bits
}

// InPeek is a view of unread input borrowed with PeekInStart or LendIn.
// The view stays valid until End, or until the stream is closed.
type InPeek struct {
	s     *Stream
	buf   []byte
	token uint64
}

// Bytes returns the borrowed bytes. Do not modify them.
func (p InPeek) Bytes() []byte { return p.buf }

// Len returns len(p.Bytes()).
func (p InPeek) Len() int { return len(p.buf) }

// End consumes the first used bytes of the view and ends the borrow.
// Ending a borrow twice returns ErrPeekNotActive and does nothing.
func (p InPeek) End(used int) error {
	s := p.s
	if s == nil || p.token == 0 {
		return ErrPeekNotActive
	}
	locked := s.endLock(p.token)
	if !s.peekIn.CompareAndSwap(p.token, 0) {
		s.endUnlock(p.token, locked, false)
		return ErrPeekNotActive
	}
	err := s.peekInEnd(len(p.buf), used)
	s.endUnlock(p.token, locked, true)
	return err
}

// OutPeek is writable space borrowed with PeekOutStart or LendOut. The
// space stays valid until End, or until the stream is closed.
type OutPeek struct {
	s     *Stream
	buf   []byte
	token uint64
}

// Bytes returns the borrowed space.
func (p OutPeek) Bytes() []byte { return p.buf }

// Len returns len(p.Bytes()).
func (p OutPeek) Len() int { return len(p.buf) }

// End commits the first written bytes of the space and ends the borrow.
// Unbuffered streams flush right away, line buffered streams flush if
// the committed bytes contain '\n'.
func (p OutPeek) End(written int) error {
	s := p.s
	if s == nil || p.token == 0 {
		return ErrPeekNotActive
	}
	locked := s.endLock(p.token)
	if !s.peekOut.CompareAndSwap(p.token, 0) {
		s.endUnlock(p.token, locked, false)
		return ErrPeekNotActive
	}
	err := s.peekOutEnd(len(p.buf), written)
	s.endUnlock(p.token, locked, true)
	return err
}

// endLock takes the lock for ending a lent borrow. A borrow holding the
// lock already has it.
func (s *Stream) endLock(token uint64) bool {
	if token&tokenLent != 0 {
		return s.lock()
	}
	return token&tokenHoldsLock != 0
}

// endUnlock releases what endLock returned. A holding borrow that lost
// its token to Close no longer owns the lock.
func (s *Stream) endUnlock(token uint64, locked, ended bool) {
	if ended || token&tokenLent != 0 {
		s.unlock(locked)
	}
}

// PeekInStart borrows at least min bytes of unread input. Fewer bytes
// are returned only at end of input or after an error (see Err); when
// nothing is left the error is returned instead. min must not exceed
// the input buffer size.
//
// On streams with FlagThreadSafe the stream lock is held until End, so
// the borrowing goroutine must not call other methods of the stream
// before End, except Close, which abandons the borrow.
func (s *Stream) PeekInStart(min int) (InPeek, error) {
	locked := s.lock()
	buf, err := s.peekInStart(min)
	if err != nil {
		s.unlock(locked)
		return InPeek{}, err
	}
	var bits uint64
	if locked {
		bits = tokenHoldsLock
	}
	return s.beginPeekIn(buf, bits), nil
}

// LendIn is PeekInStart for the backend of another stream, which keeps
// the view between its own calls. The stream lock is only taken inside
// LendIn and End, so the stream stays usable meanwhile: input
// operations fail with ErrPeekActive, everything else works.
func (s *Stream) LendIn(min int) (InPeek, error) {
	locked := s.lock()
	defer s.unlock(locked)
	buf, err := s.peekInStart(min)
	if err != nil {
		return InPeek{}, err
	}
	return s.beginPeekIn(buf, tokenLent), nil
}

func (s *Stream) peekInStart(min int) ([]byte, error) {
	if err := s.readable(); err != nil {
		return nil, err
	}
	if s.flags&FlagRead == 0 {
		return nil, ErrNotReadable
	}
	if min <= 0 || min > s.inSize {
		return nil, syscall.EINVAL
	}
	if s.in.avail() < min {
		if err := s.fill(min); err != nil {
			return nil, err
		}
	}
	return s.in.bytes(), nil
}

func (s *Stream) beginPeekIn(buf []byte, bits uint64) InPeek {
	token := newToken(bits)
	// Close may take the stream over as soon as the token is visible
	s.in.narrow(true)
	s.peekIn.Store(token)
	return InPeek{s: s, buf: buf, token: token}
}

func (s *Stream) peekInEnd(size, used int) (err error) {
	if used < 0 || used > size || used > s.in.avail() {
		err = syscall.EINVAL
		used = 0
	}
	s.in.advance(used)
	s.in.narrow(s.narrowIn())
	return err
}

// PeekOutStart borrows at least min bytes of output space. min must not
// exceed the output buffer size. Locking is as for PeekInStart.
func (s *Stream) PeekOutStart(min int) (OutPeek, error) {
	locked := s.lock()
	buf, err := s.peekOutStart(min)
	if err != nil {
		s.unlock(locked)
		return OutPeek{}, err
	}
	var bits uint64
	if locked {
		bits = tokenHoldsLock
	}
	return s.beginPeekOut(buf, bits), nil
}

// LendOut is PeekOutStart with the locking of LendIn. Output operations
// fail with ErrPeekActive until End.
func (s *Stream) LendOut(min int) (OutPeek, error) {
	locked := s.lock()
	defer s.unlock(locked)
	buf, err := s.peekOutStart(min)
	if err != nil {
		return OutPeek{}, err
	}
	return s.beginPeekOut(buf, tokenLent), nil
}

func (s *Stream) peekOutStart(min int) ([]byte, error) {
	if err := s.writable(); err != nil {
		return nil, err
	}
	if s.flags&FlagWrite == 0 {
		return nil, ErrNotWritable
	}
	if min <= 0 || min > s.outSize {
		return nil, syscall.EINVAL
	}
	if s.out.avail() < min {
		if err := s.flush(min); err != nil {
			return nil, err
		}
	}
	return s.out.buf[s.out.next:s.out.end], nil
}

func (s *Stream) beginPeekOut(buf []byte, bits uint64) OutPeek {
	token := newToken(bits)
	// Close may take the stream over as soon as the token is visible
	s.out.narrow(true)
	s.peekOut.Store(token)
	return OutPeek{s: s, buf: buf, token: token}
}

func (s *Stream) peekOutEnd(size, written int) error {
	if written < 0 || written > size || written > s.out.avail() {
		s.out.narrow(s.narrowOut())
		return syscall.EINVAL
	}
	s.out.advance(written)
	s.out.narrow(s.narrowOut())
	switch {
	case written == 0:
	case s.flags&FlagUnbuf != 0:
		return s.flush(0)
	case s.flags&FlagLineBuf != 0:
		if bytes.IndexByte(s.out.buf[s.out.next-written:s.out.next], '\n') >= 0 {
			return s.flush(0)
		}
	}
	return nil
}
