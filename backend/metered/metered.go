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

// Package metered counts the traffic of a stream with Prometheus
// counters.
package metered

import (
	"errors"
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cloudwego/xfile/stream"
)

// Metrics holds the counters shared by metered streams. Streams are told
// apart by the stream label.
type Metrics struct {
	bytes  *prometheus.CounterVec
	calls  *prometheus.CounterVec
	errors *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_total",
			Help:      "Bytes moved through the backend.",
		}, []string{"stream", "dir"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Backend calls.",
		}, []string{"stream", "op"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Backend calls that failed, end of input excluded.",
		}, []string{"stream", "op"}),
	}
	for _, c := range []prometheus.Collector{m.bytes, m.calls, m.errors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

type counters struct {
	in, out prometheus.Counter
	calls   map[string]prometheus.Counter
	errors  map[string]prometheus.Counter
}

var ops = []string{"read", "write", "seek", "flush", "close"}

func (m *Metrics) counters(name string) *counters {
	c := &counters{
		in:     m.bytes.WithLabelValues(name, "in"),
		out:    m.bytes.WithLabelValues(name, "out"),
		calls:  make(map[string]prometheus.Counter, len(ops)),
		errors: make(map[string]prometheus.Counter, len(ops)),
	}
	for _, op := range ops {
		c.calls[op] = m.calls.WithLabelValues(name, op)
		c.errors[op] = m.errors.WithLabelValues(name, op)
	}
	return c
}

func (c *counters) done(op string, err error) {
	c.calls[op].Inc()
	if err != nil && err != io.EOF {
		c.errors[op].Inc()
	}
}

type meter struct {
	sub *stream.Stream
	c   *counters
}

type seekMeter struct {
	meter
}

var (
	_ stream.Reader     = &meter{}
	_ stream.Writer     = &meter{}
	_ stream.Flusher    = &meter{}
	_ stream.Closer     = &meter{}
	_ stream.InfoGetter = &meter{}
	_ stream.Seeker     = &seekMeter{}
)

// Open returns a stream passing everything through to sub and counting
// bytes and calls under the given name. The stream has the flags and
// buffer sizes of sub. Closing it closes sub unless detached.
func Open(sub *stream.Stream, m *Metrics, name string) (*stream.Stream, error) {
	if m == nil {
		return nil, errors.New("metered: nil metrics")
	}
	mt := meter{sub: sub, c: m.counters(name)}
	flags := sub.Flags()
	var b stream.Backend = &mt
	if flags&stream.FlagSeekable != 0 {
		b = &seekMeter{mt}
	}
	return stream.New(b, flags, sub.InBufSize(), sub.OutBufSize())
}

func (m *meter) Read(p []byte) (int, error) {
	n, err := m.sub.Read(p)
	m.c.in.Add(float64(n))
	m.c.done("read", err)
	return n, err
}

func (m *meter) Write(p []byte) (int, error) {
	n, err := m.sub.Write(p)
	m.c.out.Add(float64(n))
	m.c.done("write", err)
	return n, err
}

func (m *seekMeter) Seek(offset int64, whence int) (int64, error) {
	pos, err := m.sub.Seek(offset, whence)
	m.c.done("seek", err)
	return pos, err
}

func (m *meter) Flush(flags stream.FlushFlag) error {
	err := m.sub.FlushWith(flags)
	m.c.done("flush", err)
	return err
}

func (m *meter) Close(flags stream.CloseFlag) error {
	if flags&stream.CloseDetach != 0 {
		return nil
	}
	err := m.sub.CloseWith(flags)
	m.c.done("close", err)
	return err
}

func (m *meter) GetInfo(key stream.InfoKey) (any, error) {
	if key == stream.KeySubStream {
		return m.sub, nil
	}
	return m.sub.GetInfo(key)
}
