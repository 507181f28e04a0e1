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

package stream

import "fmt"

// window is a byte region with three cursors, next <= stop <= end.
//
// For input, buf[next:end] is unread data. For output, buf[:next] is
// pending data and buf[next:end] is free space. buf[next:stop] is the
// part the inline byte functions may touch without locking.
type window struct {
	buf  []byte
	next int
	stop int
	end  int
}

// reset points w at buf with n valid bytes (input) or n bytes of
// space (output).
func (w *window) reset(buf []byte, n int) {
	w.buf = buf
	w.next = 0
	w.stop = 0
	w.end = n
}

// drop forgets the region.
func (w *window) drop() {
	w.buf = nil
	w.next, w.stop, w.end = 0, 0, 0
}

func (w *window) avail() int { return w.end - w.next }

// bytes returns buf[next:end].
func (w *window) bytes() []byte { return w.buf[w.next:w.end] }

// advance moves next by n bytes, keeping stop in range.
func (w *window) advance(n int) {
	w.next += n
	if w.stop < w.next {
		w.stop = w.next
	}
}

// narrow sets stop to next or end.
func (w *window) narrow(yes bool) {
	if yes {
		w.stop = w.next
	} else {
		w.stop = w.end
	}
}

func (w *window) check() {
	if w.next < 0 || w.next > w.stop || w.stop > w.end || w.end > len(w.buf) {
		panic(fmt.Sprintf("stream: cursor invariant broken: next=%d stop=%d end=%d len=%d",
			w.next, w.stop, w.end, len(w.buf)))
	}
}
