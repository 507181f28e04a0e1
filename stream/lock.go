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
	"syscall"
	"unsafe"
)

// Locked gives access to a stream whose lock is held by the caller.
// Its methods behave like the Stream methods of the same name but never
// take the lock, so a sequence of calls runs as one critical section.
// Stream methods must not be called on the same stream while the lock
// is held by the same goroutine.
type Locked struct {
	s *Stream
}

// Lock takes the stream lock, whether or not the stream has
// FlagThreadSafe. Streams built with NewStatic have no lock and Lock
// only returns the handle.
func (s *Stream) Lock() Locked {
	if s.locking {
		s.mu.Lock()
	}
	return Locked{s: s}
}

// TryLock is Lock without waiting.
func (s *Stream) TryLock() (Locked, bool) {
	if s.locking && !s.mu.TryLock() {
		return Locked{}, false
	}
	return Locked{s: s}, true
}

// Unlock releases the lock taken by Lock.
func (l Locked) Unlock() {
	if l.s.locking {
		l.s.mu.Unlock()
	}
}

// Stream returns the locked stream.
func (l Locked) Stream() *Stream { return l.s }

func (l Locked) Read(p []byte) (int, error) { return l.s.read(p) }
func (l Locked) Write(p []byte) (int, error) { return l.s.write(p) }
func (l Locked) ReadByte() (byte, error) { return l.s.readByte(true) }
func (l Locked) PeekByte() (byte, error) { return l.s.readByte(false) }
func (l Locked) WriteByte(c byte) error { return l.s.writeByte(c) }
func (l Locked) GetLine(buf []byte) (int, error) { return l.s.getLine(buf) }
func (l Locked) Skip(n int64) (int64, error) { return l.s.skip(n) }
func (l Locked) Flush() error { return l.s.flushAll(0) }
func (l Locked) FlushWith(flags FlushFlag) error { return l.s.flushAll(flags) }
func (l Locked) Err() error { return l.s.getErr() }
func (l Locked) SetErr(err error) error { return l.s.setErr(err) }
func (l Locked) Purge(which Flag) { l.s.purge(which) }
func (l Locked) Pending() int { return l.s.out.next }
func (l Locked) Buffered() int { return l.s.in.avail() }
func (l Locked) SetFlags(flags Flag) error { return l.s.setFlags(flags) }
func (l Locked) GetInfo(key InfoKey) (any, error) { return l.s.getInfo(key) }
func (l Locked) Eof() bool { return l.s.atEOF() && l.s.in.avail() == 0 }
func (l Locked) WriteString(str string) (int, error) {
	return l.s.write(unsafe.Slice(unsafe.StringData(str), len(str)))
}

// Seek is Stream.Seek.
func (l Locked) Seek(offset int64, whence int) (int64, error) {
	if l.s.peekIn.Load() != 0 || l.s.peekOut.Load() != 0 {
		return 0, ErrPeekActive
	}
	return l.s.seek(offset, whence)
}

// PeekInStart is Stream.PeekInStart. Ending the borrow keeps the lock.
func (l Locked) PeekInStart(min int) (InPeek, error) {
	buf, err := l.s.peekInStart(min)
	if err != nil {
		return InPeek{}, err
	}
	return l.s.beginPeekIn(buf, 0), nil
}

// PeekOutStart is Stream.PeekOutStart. Ending the borrow keeps the lock.
func (l Locked) PeekOutStart(min int) (OutPeek, error) {
	buf, err := l.s.peekOutStart(min)
	if err != nil {
		return OutPeek{}, err
	}
	return l.s.beginPeekOut(buf, 0), nil
}

// Close closes the stream and releases the lock.
func (l Locked) Close() error {
	return l.CloseWith(0)
}

// CloseWith is Close with flags.
func (l Locked) CloseWith(flags CloseFlag) error {
	err := l.s.close(flags, false)
	l.Unlock()
	return err
}

// Swap exchanges the contents of a and b: buffers, backends, flags and
// state. Locks stay with their streams. It fails while either stream
// has a borrow in progress, and with EINVAL when FlagThreadSafe would
// move to a stream made by NewStatic.
func Swap(a, b *Stream) error {
	if a == b {
		return nil
	}
	first, second := a, b
	if second.id < first.id {
		first, second = second, first
	}
	l1 := first.Lock()
	defer l1.Unlock()
	l2 := second.Lock()
	defer l2.Unlock()

	if a.peekIn.Load() != 0 || a.peekOut.Load() != 0 ||
		b.peekIn.Load() != 0 || b.peekOut.Load() != 0 {
		return ErrPeekActive
	}
	// a static stream cannot take FlagThreadSafe
	if a.locking != b.locking && (a.flags|b.flags)&FlagThreadSafe != 0 {
		return syscall.EINVAL
	}
	a.core, b.core = b.core, a.core
	a.ts.Store(a.flags&FlagThreadSafe != 0)
	b.ts.Store(b.flags&FlagThreadSafe != 0)
	return nil
}
