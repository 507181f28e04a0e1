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

package stdio

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/cloudwego/xfile/stream"
)

// accessMode returns the directions descriptor n is open for.
func accessMode(n, _ int) (stream.Flag, error) {
	fl, err := unix.FcntlInt(uintptr(n), unix.F_GETFL, 0)
	if err != nil {
		return 0, err
	}
	switch fl & unix.O_ACCMODE {
	case unix.O_RDONLY:
		return stream.FlagRead, nil
	case unix.O_WRONLY:
		return stream.FlagWrite, nil
	case unix.O_RDWR:
		return stream.FlagRW, nil
	}
	return 0, nil
}

// occupy opens the null device on the closed descriptor n so that later
// opens cannot get its number. The direction is the opposite of the
// usual one of the slot i.
func occupy(n, i int) error {
	flag := unix.O_RDONLY
	if i == 0 {
		flag = unix.O_WRONLY
	}
	nfd, err := unix.Open(os.DevNull, flag|unix.O_NOCTTY, 0)
	if err != nil {
		return err
	}
	if nfd == n {
		return nil
	}
	defer unix.Close(nfd)
	return unix.Dup2(nfd, n)
}
