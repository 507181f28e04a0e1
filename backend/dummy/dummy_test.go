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

package dummy

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/xfile/stream"
)

func TestOpen(t *testing.T) {
	s := Open()
	assert.Equal(t, stream.Flag(0), s.Flags())

	_, err := s.Read(make([]byte, 1))
	assert.ErrorIs(t, err, stream.ErrNotReadable)
	_, err = s.Write([]byte("x"))
	assert.ErrorIs(t, err, stream.ErrNotWritable)
	_, err = s.Seek(0, 0)
	assert.Error(t, err)
	_, err = s.Fileno()
	assert.ErrorIs(t, err, stream.ErrNotSupported)
	assert.False(t, s.IsTerminal())
	assert.NoError(t, s.Err())

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Close(), os.ErrClosed)
}
