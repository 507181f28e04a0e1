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
	"errors"
	"io"
	"strconv"
	"syscall"
)

// Code is an error number. Non-negative values are operating system
// errno values, negative values are defined by this package.
type Code int

const (
	// CodeEOF is end of input. It matches io.EOF with errors.Is.
	CodeEOF Code = -1

	ErrNotFile     Code = -2
	ErrNotReadable Code = -3
	ErrNotWritable Code = -4
	ErrZOptNotSup  Code = -5
	ErrZTrunc      Code = -6
	ErrZCorrupt    Code = -7
	ErrBug         Code = -8
	ErrCallback    Code = -9
	ErrNoKey       Code = -10
)

var (
	// ErrPeekActive is returned when an operation conflicts with a borrow
	// that has not been ended yet.
	ErrPeekActive = errors.New("stream: peek in progress")
	// ErrPeekNotActive is returned by End on a borrow that already ended.
	ErrPeekNotActive = errors.New("stream: peek not active")
	// ErrLineTooLong is returned by GetLine when the buffer fills up
	// before a line terminator is found.
	ErrLineTooLong = errors.New("stream: line too long")
	// ErrNotSupported is returned when the backend lacks a capability.
	ErrNotSupported = errors.ErrUnsupported

	errNegativeCount = errors.New("stream: negative count")
)

var codeText = map[Code]string{
	CodeEOF:        "End of input successfully reached",
	ErrNotFile:     "Not a regular file",
	ErrNotReadable: "Not open for reading",
	ErrNotWritable: "Not open for writing",
	ErrZOptNotSup:  "Compression option not supported",
	ErrZTrunc:      "Compressed data is truncated or otherwise corrupt",
	ErrZCorrupt:    "Compressed data is corrupt",
	ErrBug:         "Internal error (bug)",
	ErrCallback:    "Callback failed",
	ErrNoKey:       "No such info key",
}

func (c Code) Error() string {
	return StrErr(c)
}

// Is makes CodeEOF match io.EOF and errno codes match syscall.Errno.
func (c Code) Is(target error) bool {
	switch t := target.(type) {
	case Code:
		return c == t
	case syscall.Errno:
		return c >= 0 && syscall.Errno(c) == t
	}
	return c == CodeEOF && target == io.EOF
}

// StrErr returns the message for c.
func StrErr(c Code) string {
	if c >= 0 {
		return syscall.Errno(c).Error()
	}
	if s, ok := codeText[c]; ok {
		return s
	}
	return "Unknown error number " + strconv.Itoa(int(c))
}

// CodeOf maps err into the Code space. ok is false when err carries
// neither a Code nor an errno.
func CodeOf(err error) (c Code, ok bool) {
	if err == nil {
		return 0, true
	}
	if errors.Is(err, io.EOF) {
		return CodeEOF, true
	}
	if errors.As(err, &c) {
		return c, true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return Code(errno), true
	}
	return ErrBug, false
}
