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

// Package dummy provides a stream that supports nothing. It stands in
// for standard streams that are open in neither direction.
package dummy

import "github.com/cloudwego/xfile/stream"

type backend struct{}

// Open returns a stream with no flags. Reads fail with
// stream.ErrNotReadable and writes with stream.ErrNotWritable.
func Open() *stream.Stream {
	s, err := stream.New(backend{}, 0, 0, 0)
	if err != nil {
		// New only fails on invalid arguments
		panic(err)
	}
	return s
}
