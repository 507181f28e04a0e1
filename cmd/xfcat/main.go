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

// Command xfcat concatenates files to standard output, decompressing
// gzip input.
//
//	xfcat access.log.gz error.log.gz
//	xfcat --raw --crc32 < image.bin > /dev/null
package main

import (
	"errors"
	"log"
	"os"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("xfcat: ")
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			log.Print(err)
		}
		os.Exit(1)
	}
}
