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

// Package xfile opens buffered streams over files, with transparent
// gzip decompression.
//
//	s, err := xfile.Open("access.log.gz", stream.FlagRead|stream.FlagComp)
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
// The returned streams are *stream.Stream values; see package stream
// for the operations they support.
package xfile

import (
	"os"
	"syscall"

	"github.com/spf13/afero"

	"github.com/cloudwego/xfile/backend/fd"
	"github.com/cloudwego/xfile/backend/gzin"
	"github.com/cloudwego/xfile/stream"
)

const modeFlags = stream.FlagLineBuf | stream.FlagUnbuf | stream.FlagThreadSafe

type options struct {
	fs     afero.Fs
	perm   os.FileMode
	zflags stream.ZType
}

// Option configures Open, FdOpen and Reopen.
type Option func(*options)

// WithFs opens files on fs instead of the operating system.
func WithFs(fs afero.Fs) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithPerm sets the permissions of files created by Open. The default
// is 0666 before umask.
func WithPerm(perm os.FileMode) Option {
	return func(o *options) {
		o.perm = perm
	}
}

// WithZFlags selects the compression format and decoder flags used with
// stream.FlagComp. Only stream.ZGzip can be decoded; stream.ZAny and
// zero mean the same.
func WithZFlags(zflags stream.ZType) Option {
	return func(o *options) {
		o.zflags = zflags
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		fs:   afero.NewOsFs(),
		perm: 0o666,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open opens the named file. With stream.FlagComp the file is read
// through a gzip decoder; compressed writing is not supported.
func Open(name string, flags stream.Flag, opts ...Option) (*stream.Stream, error) {
	o := newOptions(opts)
	if flags&stream.FlagComp == 0 {
		return fd.Open(name, flags, o.perm, fd.WithFs(o.fs))
	}
	if err := checkComp(flags, o.zflags); err != nil {
		return nil, err
	}
	sub, err := fd.Open(name, flags&^stream.FlagThreadSafe, o.perm, fd.WithFs(o.fs))
	if err != nil {
		return nil, err
	}
	return reopen(sub, flags, o)
}

// FdOpen returns a stream over the open descriptor fileno, decompressing
// it with stream.FlagComp.
func FdOpen(fileno int, flags stream.Flag, opts ...Option) (*stream.Stream, error) {
	if flags&stream.FlagComp == 0 {
		return fd.FdOpen(fileno, flags)
	}
	o := newOptions(opts)
	if err := checkComp(flags, o.zflags); err != nil {
		return nil, err
	}
	sub, err := fd.FdOpen(fileno, flags&^stream.FlagThreadSafe)
	if err != nil {
		return nil, err
	}
	return reopen(sub, flags, o)
}

// Reopen stacks a filter over sub. flags must have stream.FlagComp and
// stream.FlagRead; the buffering flags apply to the new stream. Closing
// the returned stream closes sub. sub is left open if Reopen fails.
func Reopen(sub *stream.Stream, flags stream.Flag, opts ...Option) (*stream.Stream, error) {
	if flags&stream.FlagComp == 0 {
		return nil, syscall.EINVAL
	}
	o := newOptions(opts)
	if err := checkComp(flags, o.zflags); err != nil {
		return nil, err
	}
	s, err := gzin.Open(sub, o.zflags&stream.ZSingle)
	if err != nil {
		return nil, err
	}
	if err := s.SetFlags(stream.FlagRead | flags&modeFlags); err != nil {
		_ = s.CloseWith(stream.CloseDetach)
		return nil, err
	}
	return s, nil
}

// reopen is Reopen for a sub-stream opened on behalf of the caller.
func reopen(sub *stream.Stream, flags stream.Flag, o *options) (*stream.Stream, error) {
	s, err := Reopen(sub, flags, WithZFlags(o.zflags))
	if err != nil {
		_ = sub.Close()
		return nil, err
	}
	return s, nil
}

func checkComp(flags stream.Flag, zflags stream.ZType) error {
	if flags&stream.FlagWrite != 0 {
		return stream.ErrZOptNotSup
	}
	if flags&stream.FlagRead == 0 {
		return syscall.EINVAL
	}
	if zflags&^(stream.ZAny|stream.ZSingle) != 0 {
		return syscall.EINVAL
	}
	if t := zflags & stream.ZAny; t != 0 && t&stream.ZGzip == 0 {
		return stream.ErrZOptNotSup
	}
	return nil
}
