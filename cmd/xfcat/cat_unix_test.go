//go:build unix

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
	"bytes"
	"compress/gzip"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/cloudwego/xfile/stdio"
)

func writeGzip(t *testing.T, path, text string) {
	var b bytes.Buffer
	w := gzip.NewWriter(&b)
	_, err := w.Write([]byte(text))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o644))
}

// execute runs the command with stdout and stderr connected to pipes
// and returns what was written to them.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	outR, outW, perr := os.Pipe()
	require.NoError(t, perr)
	errR, errW, perr := os.Pipe()
	require.NoError(t, perr)
	defer outR.Close()
	defer errR.Close()

	outFd, derr := unix.Dup(int(outW.Fd()))
	require.NoError(t, derr)
	errFd, derr := unix.Dup(int(errW.Fd()))
	require.NoError(t, derr)

	cmd := newRootCmd(stdio.WithDescriptors(0, outFd, errFd))
	cmd.SetArgs(args)
	err = cmd.Execute()

	require.NoError(t, outW.Close())
	require.NoError(t, errW.Close())
	o, rerr := io.ReadAll(outR)
	require.NoError(t, rerr)
	e, rerr := io.ReadAll(errR)
	require.NoError(t, rerr)
	return string(o), string(e), err
}

func TestXfcat_Files(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.gz")
	c := filepath.Join(dir, "c.gz")
	writeGzip(t, a, "alpha\n")
	writeGzip(t, c, "gamma\n")
	missing := filepath.Join(dir, "missing.gz")

	stdout, stderr, err := execute(t, "--crc32", a, missing, c)
	assert.ErrorIs(t, err, errReported)
	assert.Equal(t, "alpha\ngamma\n", stdout)
	assert.Contains(t, stderr, "xfcat: "+missing+": ")
	assert.Contains(t, stderr, fmt.Sprintf("%08x\n", crc32.ChecksumIEEE([]byte(stdout))))
}

func TestXfcat_RawNumbered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(path, []byte("x\ny\n"), 0o644))

	stdout, stderr, err := execute(t, "--raw", "-n", path)
	require.NoError(t, err)
	assert.Equal(t, "     1\tx\n     2\ty\n", stdout)
	assert.Empty(t, stderr)

	// without --raw the plain file is not valid gzip
	stdout, stderr, err = execute(t, path)
	assert.ErrorIs(t, err, errReported)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Compressed data")
}

func TestXfcat_Directory(t *testing.T) {
	dir := t.TempDir()
	_, stderr, err := execute(t, "--raw", dir)
	assert.ErrorIs(t, err, errReported)
	assert.Contains(t, stderr, "Not a regular file")
}
