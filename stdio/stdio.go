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

// Package stdio provides streams for the standard input, output and
// error descriptors.
package stdio

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/cloudwego/xfile/backend/dummy"
	"github.com/cloudwego/xfile/backend/fd"
	"github.com/cloudwego/xfile/stream"
)

var names = [3]string{"stdin", "stdout", "stderr"}

type options struct {
	ignorePipe bool
	stdoutMode stream.Flag
	fds        [3]int
}

// Option configures a Context.
type Option func(*options)

// WithIgnorePipe makes Close treat EPIPE on stdout and stderr as success.
func WithIgnorePipe() Option {
	return func(o *options) {
		o.ignorePipe = true
	}
}

// WithLineBuf makes stdout line buffered even if it is not a terminal.
func WithLineBuf() Option {
	return func(o *options) {
		o.stdoutMode = stream.FlagLineBuf
	}
}

// WithUnbuf makes stdout unbuffered.
func WithUnbuf() Option {
	return func(o *options) {
		o.stdoutMode = stream.FlagUnbuf
	}
}

// WithDescriptors replaces descriptors 0, 1 and 2.
func WithDescriptors(stdin, stdout, stderr int) Option {
	return func(o *options) {
		o.fds = [3]int{stdin, stdout, stderr}
	}
}

// Context owns the three standard streams. They are opened on first
// use with the access mode of their descriptor. A descriptor that is
// not open is reopened on the null device and gets a stream that
// supports nothing, as does a descriptor open in neither direction.
//
// By default stdout is line buffered on a terminal and fully buffered
// otherwise, stderr is unbuffered.
type Context struct {
	o       options
	mu      sync.Mutex
	streams [3]*stream.Stream
	closed  bool
}

// New returns a Context. No descriptor is touched until a stream is
// requested.
func New(opts ...Option) *Context {
	c := &Context{o: options{fds: [3]int{0, 1, 2}}}
	for _, opt := range opts {
		opt(&c.o)
	}
	return c
}

// Stdin returns the standard input stream.
func (c *Context) Stdin() *stream.Stream { return c.get(0) }

// Stdout returns the standard output stream.
func (c *Context) Stdout() *stream.Stream { return c.get(1) }

// Stderr returns the standard error stream.
func (c *Context) Stderr() *stream.Stream { return c.get(2) }

func (c *Context) get(i int) *stream.Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.streams[i] == nil {
		c.streams[i] = c.open(i)
	}
	return c.streams[i]
}

func (c *Context) open(i int) *stream.Stream {
	n := c.o.fds[i]
	mode, err := accessMode(n, i)
	if errors.Is(err, syscall.EBADF) {
		if err := occupy(n, i); err != nil {
			log.Printf("STDIO: reopening %s on the null device failed: %v", names[i], err)
		}
		return dummy.Open()
	}
	if err != nil || mode == 0 {
		return dummy.Open()
	}
	switch i {
	case 1:
		if c.o.stdoutMode != 0 {
			mode |= c.o.stdoutMode
		} else if isatty.IsTerminal(uintptr(n)) || isatty.IsCygwinTerminal(uintptr(n)) {
			mode |= stream.FlagLineBuf
		}
	case 2:
		mode |= stream.FlagUnbuf
	}
	s, err := fd.FdOpen(n, mode)
	if err != nil {
		log.Printf("STDIO: opening %s failed: %v", names[i], err)
		return dummy.Open()
	}
	return s
}

// Close closes the streams opened so far in the order stdin, stdout,
// stderr, each while holding its lock. Pending output is written and
// the descriptors are closed. Failures are joined into the returned
// error. Later calls return nil.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	var errs []error
	for i, s := range c.streams {
		if s == nil {
			continue
		}
		err := s.Lock().Close()
		if i > 0 && c.o.ignorePipe && errors.Is(err, syscall.EPIPE) {
			err = nil
		}
		if err != nil {
			if i < 2 {
				log.Printf("STDIO: closing %s failed: %v", names[i], err)
			}
			errs = append(errs, fmt.Errorf("%s: %w", names[i], err))
		}
	}
	return errors.Join(errs...)
}

var (
	defaultOnce sync.Once
	defaultCtx  *Context
)

// Default returns the process wide Context, created without options.
func Default() *Context {
	defaultOnce.Do(func() {
		defaultCtx = New()
	})
	return defaultCtx
}
