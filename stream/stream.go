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

// Package stream implements buffered streams over pluggable backends.
//
// A Stream owns an input and an output buffer and moves data between
// them and a Backend. Backends that can lend their own memory (see
// InPeeker and OutPeeker) are used without copying, and callers can
// borrow the stream buffers directly with PeekInStart and PeekOutStart.
//
// A Stream is not safe for concurrent use unless it is created with
// FlagThreadSafe.
package stream

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/bytedance/gopkg/lang/mcache"
)

var (
	_ io.ReadWriteSeeker = &Stream{}
	_ io.ByteReader      = &Stream{}
	_ io.ByteWriter      = &Stream{}
	_ io.StringWriter    = &Stream{}
)

type state uint8

const (
	stateOpen state = iota
	stateEOF
	stateErr
	stateClosed
)

// core is everything Swap exchanges between two streams.
type core struct {
	in  window
	out window

	inSize  int
	outSize int
	inMem   []byte // engine owned input storage, returned to mcache on close
	outMem  []byte

	backend Backend
	caps    caps
	flags   Flag

	state state
	err   error // set when state is stateErr

	isReading bool
	isWriting bool

	backendPeekIn  bool // in.buf is lent by the backend
	backendPeekOut bool
}

// Stream is a buffered stream over a Backend.
type Stream struct {
	core

	mu      sync.Mutex
	locking bool // false for streams built on caller storage
	ts      atomic.Bool

	// token of the caller borrow in progress, 0 if none
	peekIn  atomic.Uint64
	peekOut atomic.Uint64

	id uint64
}

var (
	streamSeq atomic.Uint64
	peekSeq   atomic.Uint64
)

// New returns a Stream over b. Buffers of inSize and outSize bytes are
// allocated for the directions in flags that copy through the backend;
// for directions served by backend borrowing the size only bounds peek
// requests. Open-time flags are accepted and ignored.
func New(b Backend, flags Flag, inSize, outSize int) (*Stream, error) {
	s := &Stream{locking: true}
	if err := s.init(b, flags, inSize, outSize); err != nil {
		return nil, err
	}
	if s.flags&FlagRead != 0 && s.caps.inPeeker == nil {
		s.inMem = mcache.Malloc(s.inSize)
		s.in.reset(s.inMem, 0)
	}
	if s.flags&FlagWrite != 0 && s.caps.outPeeker == nil {
		s.outMem = mcache.Malloc(s.outSize)
		s.out.reset(s.outMem, 0)
	}
	return s, nil
}

// NewStatic returns a Stream using inBuf and outBuf as its buffers.
// The stream never frees them and has no lock, so FlagThreadSafe is
// rejected.
func NewStatic(b Backend, flags Flag, inBuf, outBuf []byte) (*Stream, error) {
	if flags&FlagThreadSafe != 0 {
		return nil, syscall.EINVAL
	}
	s := &Stream{}
	if err := s.init(b, flags, len(inBuf), len(outBuf)); err != nil {
		return nil, err
	}
	if s.flags&FlagRead != 0 && s.caps.inPeeker == nil {
		s.in.reset(inBuf, 0)
	}
	if s.flags&FlagWrite != 0 && s.caps.outPeeker == nil {
		s.out.reset(outBuf, 0)
	}
	return s, nil
}

func (s *Stream) init(b Backend, flags Flag, inSize, outSize int) error {
	if b == nil || flags&^(streamFlags|openFlags) != 0 {
		return syscall.EINVAL
	}
	flags &= streamFlags
	c := capsOf(b)
	if flags&FlagRead != 0 {
		if !c.canRead() || inSize <= 0 || inSize > maxBufSize {
			return syscall.EINVAL
		}
	} else {
		inSize = 0
	}
	if flags&FlagWrite != 0 {
		if !c.canWrite() || outSize <= 0 || outSize > maxBufSize {
			return syscall.EINVAL
		}
	} else {
		outSize = 0
	}
	if flags&FlagSeekable != 0 && c.seeker == nil {
		return syscall.EINVAL
	}
	if flags&(FlagRead|FlagSeekable) != FlagRead|FlagSeekable {
		flags &^= FlagFixReadPos
	}
	s.backend = b
	s.caps = c
	s.flags = flags
	s.inSize = inSize
	s.outSize = outSize
	s.id = streamSeq.Add(1)
	s.ts.Store(flags&FlagThreadSafe != 0)
	return nil
}

// Backend returns the backend the stream was created with.
func (s *Stream) Backend() Backend {
	return s.backend
}

func (s *Stream) lock() bool {
	if s.ts.Load() {
		s.mu.Lock()
		return true
	}
	return false
}

func (s *Stream) unlock(locked bool) {
	if locked {
		s.mu.Unlock()
	}
}

// check returns the error every operation fails with, if any.
func (s *Stream) check() error {
	switch s.state {
	case stateErr:
		return s.err
	case stateClosed:
		return os.ErrClosed
	}
	return nil
}

// latch records a backend failure. io.EOF sets the EOF state, anything
// else becomes the sticky error. The first sticky error wins.
func (s *Stream) latch(err error) error {
	switch s.state {
	case stateErr:
		return s.err
	case stateClosed:
		return os.ErrClosed
	}
	if err == io.EOF {
		s.state = stateEOF
		return err
	}
	s.state = stateErr
	s.err = err
	// keep the inline byte functions on the slow path
	s.in.narrow(true)
	s.out.narrow(true)
	return err
}

func (s *Stream) atEOF() bool {
	return s.state == stateEOF
}

// narrowIn tells whether in.stop must follow in.next.
func (s *Stream) narrowIn() bool {
	return s.flags&FlagThreadSafe != 0 || s.state == stateErr
}

// narrowOut tells whether out.stop must follow out.next.
func (s *Stream) narrowOut() bool {
	return s.flags&(FlagLineBuf|FlagUnbuf|FlagThreadSafe) != 0 || s.state == stateErr
}

// Close flushes pending output, rewinds unread input if the stream has
// FlagFixReadPos, and closes the backend.
func (s *Stream) Close() error {
	return s.CloseWith(0)
}

// CloseWith is Close with flags. Every step runs even if an earlier
// one fails; the first error is returned. A borrow in progress is
// abandoned: its End returns ErrPeekNotActive and its view stays
// readable, though no longer backed by the stream. This holds for a
// borrow of the calling goroutine too, which may close a thread safe
// stream between PeekInStart and End.
func (s *Stream) CloseWith(flags CloseFlag) error {
	if s.claimBorrow() {
		err := s.close(flags, true)
		s.mu.Unlock()
		return err
	}
	locked := s.lock()
	defer s.unlock(locked)
	return s.close(flags, false)
}

// claimBorrow takes over the lock held by an active borrow, if any.
func (s *Stream) claimBorrow() bool {
	for _, tok := range []*atomic.Uint64{&s.peekIn, &s.peekOut} {
		t := tok.Load()
		if t&tokenHoldsLock != 0 && tok.CompareAndSwap(t, 0) {
			return true
		}
	}
	return false
}

// close runs with the lock held. claimed tells that the lock was taken
// over from a borrow.
func (s *Stream) close(flags CloseFlag, claimed bool) error {
	if s.state == stateClosed {
		return os.ErrClosed
	}
	var first error
	keep := func(err error) {
		if first == nil && err != nil && err != io.EOF {
			first = err
		}
	}
	if flags&CloseForget != 0 {
		flags &^= CloseSync
		s.in.advance(s.in.avail())
		s.out.next = 0
		s.out.stop = 0
	}
	// buffers still viewed by a borrower are left to the collector
	borrowed := claimed
	if s.peekIn.Swap(0) != 0 {
		borrowed = true
	}
	if s.peekOut.Swap(0) != 0 {
		borrowed = true
	}
	if s.isWriting {
		if s.out.next > 0 || s.backendPeekOut {
			keep(s.flush(0))
		}
	}
	if s.isReading {
		if s.backendPeekIn {
			keep(s.fill(0))
		}
		keep(s.fixReadPos())
	}
	keep(s.caps.close(flags))
	if first == nil && s.state == stateErr {
		first = s.err
	}

	s.release(!borrowed)
	s.state = stateClosed
	s.err = nil
	return first
}

func (s *Stream) release(free bool) {
	if free && s.inMem != nil {
		mcache.Free(s.inMem)
	}
	if free && s.outMem != nil {
		mcache.Free(s.outMem)
	}
	s.inMem = nil
	s.outMem = nil
	s.in.drop()
	s.out.drop()
	s.backendPeekIn = false
	s.backendPeekOut = false
}
