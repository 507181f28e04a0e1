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
	"math"
	"syscall"
)

// Seek sets the logical position of the stream. Pending output is
// written first and buffered input is discarded. Relative seeks count
// from the position of the caller, not the backend. A successful seek
// clears the end of input state.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	locked := s.lock()
	defer s.unlock(locked)
	if s.peekIn.Load() != 0 || s.peekOut.Load() != 0 {
		return 0, ErrPeekActive
	}
	return s.seek(offset, whence)
}

func (s *Stream) seek(offset int64, whence int) (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	if whence < io.SeekStart || whence > io.SeekEnd || offset == math.MinInt64 {
		return 0, syscall.EINVAL
	}
	if s.flags&FlagSeekable == 0 {
		return 0, syscall.ESPIPE
	}
	if s.out.next > 0 || s.backendPeekOut {
		if err := s.flush(0); err != nil {
			return 0, err
		}
	}
	if s.backendPeekIn {
		if err := s.fill(0); err != nil {
			return 0, err
		}
	}
	switch whence {
	case io.SeekStart:
		if offset < 0 {
			return 0, syscall.EINVAL
		}
	case io.SeekCurrent:
		// the backend is ahead of the caller by the unread bytes
		unread := int64(s.in.avail())
		if offset < math.MinInt64+unread {
			return 0, syscall.EINVAL
		}
		offset -= unread
	}
	pos, err := s.caps.seeker.Seek(offset, whence)
	if err != nil {
		return 0, s.latch(err)
	}
	s.in.advance(s.in.avail())
	if s.state == stateEOF {
		s.state = stateOpen
	}
	return pos, nil
}

// fixReadPos rewinds the backend past buffered but unread input.
func (s *Stream) fixReadPos() error {
	if s.in.avail() > 0 && s.flags&FlagFixReadPos != 0 {
		_, err := s.seek(0, io.SeekCurrent)
		return err
	}
	return nil
}

// OffAbs resolves offset relative to whence into an absolute offset,
// given the current position pos and the size end. It is meant for
// backends implementing Seek.
func OffAbs(pos, end, offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = pos
	case io.SeekEnd:
		base = end
	default:
		return -1, syscall.EINVAL
	}
	if offset > 0 && base > math.MaxInt64-offset {
		return -1, syscall.EINVAL
	}
	abs := base + offset
	if abs < 0 {
		return -1, syscall.EINVAL
	}
	return abs, nil
}
