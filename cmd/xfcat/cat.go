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

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/bytedance/gopkg/lang/dirtmake"
	"github.com/spf13/cobra"

	"github.com/cloudwego/xfile"
	"github.com/cloudwego/xfile/backend/callback"
	"github.com/cloudwego/xfile/backend/gzin"
	"github.com/cloudwego/xfile/stdio"
	"github.com/cloudwego/xfile/stream"
)

// errReported is returned after the failure was written to stderr.
var errReported = errors.New("errors reported")

const lineBufSize = 64 << 10

type config struct {
	raw          bool
	crc          bool
	number       bool
	unbuffered   bool
	lineBuffered bool
}

func newRootCmd(stdioOpts ...stdio.Option) *cobra.Command {
	var cfg config
	cmd := &cobra.Command{
		Use:   "xfcat [file...]",
		Short: "Concatenate files to standard output, decompressing gzip input",
		Long: "xfcat copies each file, or standard input if none is given, to standard output.\n" +
			"Gzip input, including concatenated members, is decompressed unless --raw is set.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := append([]stdio.Option{stdio.WithIgnorePipe()}, stdioOpts...)
			switch {
			case cfg.unbuffered:
				opts = append(opts, stdio.WithUnbuf())
			case cfg.lineBuffered:
				opts = append(opts, stdio.WithLineBuf())
			}
			return run(stdio.New(opts...), cfg, args)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&cfg.raw, "raw", false, "copy input without decompressing it")
	f.BoolVar(&cfg.crc, "crc32", false, "print the CRC32 of the output to stderr")
	f.BoolVarP(&cfg.number, "number", "n", false, "number output lines")
	f.BoolVarP(&cfg.unbuffered, "unbuffered", "u", false, "write output without buffering")
	f.BoolVar(&cfg.lineBuffered, "line-buffered", false, "flush output after every line")
	cmd.MarkFlagsMutuallyExclusive("unbuffered", "line-buffered")
	return cmd
}

func run(std *stdio.Context, cfg config, args []string) (err error) {
	defer func() {
		if cerr := std.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	report := func(name string, err error) {
		_, _ = fmt.Fprintf(std.Stderr(), "xfcat: %s: %v\n", name, err)
	}

	out := std.Stdout()
	var sum uint32
	if cfg.crc {
		if out, err = callback.OpenOut(out, callback.CRC32(&sum)); err != nil {
			return err
		}
	}

	var c catter
	if cfg.number {
		c.line = dirtmake.Bytes(lineBufSize, lineBufSize)
	}
	failed := false
	if len(args) == 0 {
		if err := c.catStdin(out, std.Stdin(), cfg.raw); err != nil {
			report("stdin", err)
			failed = true
		}
	}
	for _, name := range args {
		if err := c.catFile(out, name, cfg.raw); err != nil {
			report(name, err)
			failed = true
			if c.outErr != nil {
				break
			}
		}
	}

	if cfg.crc {
		// flushes the filter, stdout stays open
		if err := out.CloseWith(stream.CloseDetach); err != nil && c.outErr == nil {
			report("stdout", err)
			failed = true
		}
		_, _ = fmt.Fprintf(std.Stderr(), "%08x\n", sum)
	}
	if failed {
		return errReported
	}
	return nil
}

type catter struct {
	line   []byte // scratch for --number
	lineNo int
	midLn  bool  // the last line written was cut by a full line buffer
	outErr error // sticky output failure
}

func (c *catter) catStdin(out, in *stream.Stream, raw bool) error {
	if raw {
		return c.cat(out, in)
	}
	z, err := gzin.Open(in, 0)
	if err != nil {
		return err
	}
	err = c.cat(out, z)
	// stdin itself is closed with the stdio context
	if cerr := z.CloseWith(stream.CloseDetach); err == nil {
		err = cerr
	}
	return err
}

func (c *catter) catFile(out *stream.Stream, name string, raw bool) error {
	flags := stream.FlagRead | stream.FlagRegFile
	if !raw {
		flags |= stream.FlagComp
	}
	in, err := xfile.Open(name, flags)
	if err != nil {
		return err
	}
	err = c.cat(out, in)
	if cerr := in.Close(); err == nil {
		err = cerr
	}
	return err
}

func (c *catter) cat(out, in *stream.Stream) error {
	if c.line != nil {
		return c.numberLines(out, in)
	}
	return c.copyStream(out, in)
}

// copyStream writes the input buffer of in straight to out.
func (c *catter) copyStream(out, in *stream.Stream) error {
	for {
		p, err := in.PeekInStart(1)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		n, werr := out.Write(p.Bytes())
		if err := p.End(n); err != nil && werr == nil {
			werr = err
		}
		if werr != nil {
			c.outErr = werr
			return werr
		}
	}
}

func (c *catter) numberLines(out, in *stream.Stream) error {
	for {
		n, err := in.GetLine(c.line)
		if n == 0 && err == io.EOF {
			return nil
		}
		if !c.midLn {
			c.lineNo++
			if _, werr := fmt.Fprintf(out, "%6d\t", c.lineNo); werr != nil {
				c.outErr = werr
				return werr
			}
		}
		if _, werr := out.Write(c.line[:n]); werr != nil {
			c.outErr = werr
			return werr
		}
		c.midLn = false
		switch {
		case err == nil:
			if werr := out.WriteByte('\n'); werr != nil {
				c.outErr = werr
				return werr
			}
		case errors.Is(err, stream.ErrLineTooLong):
			c.midLn = true
		case err == io.EOF:
			// last line without terminator
			c.midLn = true
			return nil
		default:
			return err
		}
	}
}
