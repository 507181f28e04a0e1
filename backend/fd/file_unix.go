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

package fd

import (
	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

const (
	noFollowFlag = unix.O_NOFOLLOW
	nonBlockFlag = unix.O_NONBLOCK
)

// setBlocking clears the O_NONBLOCK used to open a file without
// blocking on FIFOs.
func setBlocking(f afero.File) error {
	x, ok := f.(interface{ Fd() uintptr })
	if !ok {
		return nil
	}
	return unix.SetNonblock(int(x.Fd()), false)
}

// dupFd returns a close-on-exec copy of fd.
func dupFd(fd int) (int, error) {
	dup, err := unix.Dup(fd)
	if err != nil {
		return -1, err
	}
	unix.CloseOnExec(dup)
	return dup, nil
}

func closeFd(fd int) error {
	return unix.Close(fd)
}
