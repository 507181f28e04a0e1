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

// Package gzin decompresses gzip data read from another stream.
package gzin

import (
	"compress/flate"
	"compress/gzip"
	"errors"
	"io"
	"syscall"

	"github.com/cloudwego/xfile/stream"
)

type reader struct {
	sub    *stream.Stream
	zr     *gzip.Reader
	single bool
}

var (
	_ stream.Reader     = &reader{}
	_ stream.Closer     = &reader{}
	_ stream.InfoGetter = &reader{}
)

// Open returns a read only stream producing the decompressed contents of
// sub. Concatenated gzip members are decoded as one stream unless zflags
// has stream.ZSingle. zflags may also name stream.ZGzip; any other bit
// is rejected with EINVAL.
//
// Decoding errors are reported as stream.ErrZCorrupt, input ending in
// the middle of a member as stream.ErrZTrunc. Closing the stream closes
// sub unless detached.
func Open(sub *stream.Stream, zflags stream.ZType) (*stream.Stream, error) {
	if zflags&^(stream.ZGzip|stream.ZSingle) != 0 {
		return nil, syscall.EINVAL
	}
	if sub.Flags()&stream.FlagRead == 0 {
		return nil, stream.ErrNotReadable
	}
	r := &reader{sub: sub, single: zflags&stream.ZSingle != 0}
	return stream.New(r, stream.FlagRead, stream.DefaultBufSize, 0)
}

func (r *reader) Read(p []byte) (int, error) {
	if r.zr == nil {
		// sub is an io.ByteReader, so the decoder never reads past the
		// end of the last member
		zr, err := gzip.NewReader(r.sub)
		if err != nil {
			return 0, zerr(err, true)
		}
		zr.Multistream(!r.single)
		r.zr = zr
	}
	n, err := r.zr.Read(p)
	if err != nil && err != io.EOF {
		err = zerr(err, false)
	}
	return n, err
}

// zerr maps decoder errors into the stream error space. Errors of the
// sub-stream pass through.
func zerr(err error, header bool) error {
	var corrupt flate.CorruptInputError
	switch {
	case errors.Is(err, gzip.ErrHeader), errors.Is(err, gzip.ErrChecksum), errors.As(err, &corrupt):
		return stream.ErrZCorrupt
	case err == io.ErrUnexpectedEOF, header && err == io.EOF:
		return stream.ErrZTrunc
	}
	return err
}

func (r *reader) Close(flags stream.CloseFlag) error {
	if r.zr != nil {
		_ = r.zr.Close()
	}
	if flags&stream.CloseDetach != 0 {
		return nil
	}
	return r.sub.CloseWith(flags)
}

func (r *reader) GetInfo(key stream.InfoKey) (any, error) {
	switch key {
	case stream.KeySubStream:
		return r.sub, nil
	case stream.KeyZType:
		return stream.ZGzip, nil
	}
	return r.sub.GetInfo(key)
}
