//go:build !unix

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

import "github.com/cloudwego/xfile/stream"

// accessMode assumes the usual direction of slot i.
func accessMode(_, i int) (stream.Flag, error) {
	if i == 0 {
		return stream.FlagRead, nil
	}
	return stream.FlagWrite, nil
}

func occupy(_, _ int) error { return nil }
