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

import "math"

// Flag describes how a stream is opened and buffered.
type Flag uint32

const (
	// FlagRead means the stream is open for reading.
	FlagRead Flag = 0x0001
	// FlagWrite means the stream is open for writing.
	FlagWrite Flag = 0x0002
	// FlagRW is FlagRead|FlagWrite.
	FlagRW = FlagRead | FlagWrite
	// FlagSeekable means the backend position can be moved with Seek.
	FlagSeekable Flag = 0x0004
	// FlagFixReadPos rewinds the backend past buffered but unread input
	// on Flush and Close. Only kept for readable seekable streams.
	FlagFixReadPos Flag = 0x0008
	// FlagLineBuf flushes output after every line terminator.
	FlagLineBuf Flag = 0x0020
	// FlagUnbuf flushes output after every write.
	FlagUnbuf Flag = 0x0040
	// FlagThreadSafe makes every public method take the stream lock.
	FlagThreadSafe Flag = 0x0080

	// Open-time flags. They are interpreted by the code opening the
	// backend and never retained by a Stream.

	FlagAppend   Flag = 0x0100 | FlagWrite
	FlagCreate   Flag = 0x0200
	FlagTrunc    Flag = 0x0400
	FlagExcl     Flag = 0x0800
	FlagNoFollow Flag = 0x1000
	FlagRegFile  Flag = 0x2000
	FlagSparse   Flag = 0x4000
	FlagComp     Flag = 0x8000
)

const (
	// flags a Stream keeps after construction
	streamFlags = FlagRW | FlagSeekable | FlagFixReadPos | FlagLineBuf | FlagUnbuf | FlagThreadSafe
	// flags SetFlags is allowed to change
	modeFlags = FlagLineBuf | FlagUnbuf | FlagThreadSafe
	openFlags = FlagAppend | FlagCreate | FlagTrunc | FlagExcl | FlagNoFollow | FlagRegFile | FlagSparse | FlagComp
)

// CloseFlag modifies the behaviour of CloseWith.
type CloseFlag uint32

const (
	// CloseDetach leaves the resource under the backend open.
	CloseDetach CloseFlag = 0x0001
	// CloseForget drops buffered data instead of flushing it.
	CloseForget CloseFlag = 0x0002
	// CloseSync syncs written data to stable storage before closing.
	CloseSync CloseFlag = 0x0010
)

// FlushFlag modifies the behaviour of FlushWith.
type FlushFlag uint32

// FlushSync syncs written data to stable storage.
const FlushSync FlushFlag = 0x0010

// InfoKey selects a backend specific value returned by GetInfo.
type InfoKey int

const (
	// KeyFD returns the descriptor number as an int.
	KeyFD InfoKey = -1
	// KeyIsATTY returns a bool telling whether the descriptor is a terminal.
	KeyIsATTY InfoKey = -2
	// KeySubStream returns the *Stream wrapped by a filter backend.
	KeySubStream InfoKey = -3
	// KeyZType returns the ZType a filter backend decodes.
	KeyZType InfoKey = -4
	// KeyName returns the name the stream was opened with.
	KeyName InfoKey = 1
)

// ZType identifies a compression format.
type ZType uint32

const (
	ZNone  ZType = 0x0001
	ZGzip  ZType = 0x0002
	ZBzip2 ZType = 0x0004
	ZXz    ZType = 0x0008
	ZLzo   ZType = 0x0010
	ZAny   ZType = 0x0fff

	// ZSingle stops decoding after the first member of a concatenated input.
	ZSingle ZType = 0x2000
)

// DefaultBufSize is the buffer size used by the file backends.
const DefaultBufSize = 8 * 1024

const maxBufSize = math.MaxInt
