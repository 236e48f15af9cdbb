// Package metrics records request latency in an HDR histogram.
package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Latency is safe for concurrent use. Values are kept in microseconds, from
// 1µs up to one minute, with three significant figures.
type Latency struct {
	mu sync.Mutex
	h  *hdrhistogram.Histogram
}

type Summary struct {
	Count int64         `json:"count"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
	Max   time.Duration `json:"max"`
}

func NewLatency() *Latency {
	return &Latency{h: hdrhistogram.New(1, int64(time.Minute/time.Microsecond), 3)}
}

func (l *Latency) Record(d time.Duration) {
	us := d.Microseconds()
	if us < 1 {
		us = 1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	// values above the range are dropped by the histogram
	_ = l.h.RecordValue(us)
}

func (l *Latency) Snapshot() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()
	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	return Summary{
		Count: l.h.TotalCount(),
		Mean:  time.Duration(l.h.Mean() * float64(time.Microsecond)),
		P50:   us(l.h.ValueAtQuantile(50)),
		P95:   us(l.h.ValueAtQuantile(95)),
		P99:   us(l.h.ValueAtQuantile(99)),
		Max:   us(l.h.Max()),
	}
}
