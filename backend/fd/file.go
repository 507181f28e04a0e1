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

// Package fd implements streams over files and file descriptors.
package fd

import (
	"errors"
	"io"
	"os"
	"strconv"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"

	"github.com/cloudwego/xfile/stream"
)

type options struct {
	fs      afero.Fs
	inSize  int
	outSize int
}

// Option configures Open, FdOpen and Wrap.
type Option func(*options)

// WithFs opens files on fs instead of the operating system.
func WithFs(fs afero.Fs) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithBufSize sets the input and output buffer sizes.
func WithBufSize(in, out int) Option {
	return func(o *options) {
		o.inSize = in
		o.outSize = out
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		fs:      afero.NewOsFs(),
		inSize:  stream.DefaultBufSize,
		outSize: stream.DefaultBufSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type file struct {
	f        afero.File
	name     string
	fd       int // -1 without a descriptor
	orig     int // descriptor passed to FdOpen when f holds a copy of it, else -1
	writable bool
}

var (
	_ stream.Reader     = &file{}
	_ stream.Writer     = &file{}
	_ stream.Seeker     = &file{}
	_ stream.Flusher    = &file{}
	_ stream.Closer     = &file{}
	_ stream.InfoGetter = &file{}
)

// Open opens the named file. flags must contain FlagRead, FlagWrite or
// both; FlagAppend, FlagCreate, FlagTrunc, FlagExcl, FlagNoFollow and
// FlagRegFile select how the file is opened, the buffering flags are
// passed to the stream. perm is used when the file is created.
//
// FlagRegFile fails with stream.ErrNotFile unless name is a regular
// file. Opening never blocks on a FIFO in that case.
//
// With stream.CloseDetach the stream does not close the file; it is
// closed when garbage collected.
func Open(name string, flags stream.Flag, perm os.FileMode, opts ...Option) (*stream.Stream, error) {
	o := newOptions(opts)
	oflag, err := openMode(flags)
	if err != nil {
		return nil, err
	}
	_, native := o.fs.(*afero.OsFs)
	if flags&stream.FlagNoFollow != 0 {
		if native {
			oflag |= noFollowFlag
		}
		if !native || noFollowFlag == 0 {
			if err := checkNoFollow(o.fs, name); err != nil {
				return nil, err
			}
		}
	}
	if flags&stream.FlagRegFile != 0 && native {
		oflag |= nonBlockFlag
	}
	f, err := o.fs.OpenFile(name, oflag, perm)
	if err != nil {
		return nil, err
	}
	if flags&stream.FlagRegFile != 0 {
		if err := checkRegular(f, native); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	s, err := newStream(f, name, -1, flags, o)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

// FdOpen returns a stream over the open descriptor fd. Descriptors 0, 1
// and 2 share os.Stdin, os.Stdout and os.Stderr. Only the direction and
// buffering flags are used.
//
// Closing the stream closes fd. With stream.CloseDetach fd stays open
// and belongs to the caller again. Where descriptors cannot be
// duplicated, a detached fd is closed once the stream is garbage.
func FdOpen(fd int, flags stream.Flag, opts ...Option) (*stream.Stream, error) {
	var f *os.File
	orig := -1
	switch fd {
	case 0:
		f = os.Stdin
	case 1:
		f = os.Stdout
	case 2:
		f = os.Stderr
	default:
		if fd < 0 {
			return nil, syscall.EBADF
		}
		name := "/dev/fd/" + strconv.Itoa(fd)
		own := fd
		if dup, err := dupFd(fd); err == nil {
			own, orig = dup, fd
		} else if !errors.Is(err, errors.ErrUnsupported) {
			return nil, err
		}
		f = os.NewFile(uintptr(own), name)
		if f == nil {
			return nil, syscall.EBADF
		}
	}
	s, err := newStream(f, f.Name(), orig, flags, newOptions(opts))
	if err != nil && orig >= 0 {
		_ = f.Close()
	}
	return s, err
}

// Wrap returns a stream over an already opened file. With
// stream.CloseDetach the file is left open and stays with the caller.
func Wrap(f afero.File, flags stream.Flag, opts ...Option) (*stream.Stream, error) {
	return newStream(f, f.Name(), -1, flags, newOptions(opts))
}

func newStream(f afero.File, name string, orig int, flags stream.Flag, o *options) (*stream.Stream, error) {
	b := &file{f: f, name: name, fd: -1, orig: orig, writable: flags&stream.FlagWrite != 0}
	if orig >= 0 {
		b.fd = orig
	} else if x, ok := f.(interface{ Fd() uintptr }); ok {
		b.fd = int(x.Fd())
	}
	flags &^= stream.FlagSeekable | stream.FlagFixReadPos
	if _, err := f.Seek(0, io.SeekCurrent); err == nil {
		flags |= stream.FlagSeekable | stream.FlagFixReadPos
	}
	return stream.New(b, flags, o.inSize, o.outSize)
}

func openMode(flags stream.Flag) (int, error) {
	var oflag int
	switch flags & stream.FlagRW {
	case stream.FlagRead:
		oflag = os.O_RDONLY
	case stream.FlagWrite:
		oflag = os.O_WRONLY
	case stream.FlagRW:
		oflag = os.O_RDWR
	default:
		return 0, syscall.EINVAL
	}
	if flags&(stream.FlagAppend&^stream.FlagWrite) != 0 {
		oflag |= os.O_APPEND
	}
	if flags&stream.FlagCreate != 0 {
		oflag |= os.O_CREATE
	}
	if flags&stream.FlagTrunc != 0 {
		oflag |= os.O_TRUNC
	}
	if flags&stream.FlagExcl != 0 {
		oflag |= os.O_EXCL
	}
	return oflag, nil
}

// checkNoFollow refuses symbolic links on filesystems without a native
// no-follow open.
func checkNoFollow(fs afero.Fs, name string) error {
	ls, ok := fs.(afero.Lstater)
	if !ok {
		return nil
	}
	fi, lstat, err := ls.LstatIfPossible(name)
	if err != nil || !lstat {
		// OpenFile reports missing files
		return nil
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		return &os.PathError{Op: "open", Path: name, Err: syscall.ELOOP}
	}
	return nil
}

func checkRegular(f afero.File, native bool) error {
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	if !fi.Mode().IsRegular() {
		return stream.ErrNotFile
	}
	if native {
		return setBlocking(f)
	}
	return nil
}

func (b *file) Read(p []byte) (int, error) {
	return b.f.Read(p)
}

func (b *file) Write(p []byte) (int, error) {
	return b.f.Write(p)
}

func (b *file) Seek(offset int64, whence int) (int64, error) {
	return b.f.Seek(offset, whence)
}

func (b *file) Flush(flags stream.FlushFlag) error {
	if flags&stream.FlushSync == 0 || !b.writable {
		return nil
	}
	return b.sync()
}

func (b *file) sync() error {
	err := b.f.Sync()
	if errors.Is(err, syscall.EINVAL) {
		// pipes, sockets and terminals
		return nil
	}
	return err
}

func (b *file) Close(flags stream.CloseFlag) error {
	var err error
	if flags&stream.CloseSync != 0 && b.writable {
		err = b.sync()
	}
	if flags&stream.CloseDetach != 0 {
		if b.orig >= 0 {
			// only the copy, the caller keeps orig
			if cerr := b.f.Close(); err == nil {
				err = cerr
			}
		}
		return err
	}
	if cerr := b.f.Close(); err == nil {
		err = cerr
	}
	if b.orig >= 0 {
		if cerr := closeFd(b.orig); err == nil {
			err = cerr
		}
	}
	return err
}

func (b *file) GetInfo(key stream.InfoKey) (any, error) {
	switch key {
	case stream.KeyFD:
		if b.fd >= 0 {
			return b.fd, nil
		}
	case stream.KeyIsATTY:
		if b.fd < 0 {
			return false, nil
		}
		fd := uintptr(b.fd)
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd), nil
	case stream.KeyName:
		return b.name, nil
	}
	return nil, stream.ErrNoKey
}
