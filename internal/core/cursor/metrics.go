package cursor

import (
	"sync"
	"time"
)

const historySize = 10

// Metrics is a snapshot of a MetricsCollector.
type Metrics struct {
	BlocksPerSecond  float64
	AverageBlockTime time.Duration
	Aborts           int
	LastAbortAt      *time.Time
	StateHistory     []Transition // oldest first
}

type blockSample struct {
	height uint64
	at     time.Time
}

// MetricsCollector keeps the last windowSize cursor advances and the last
// few state transitions.
type MetricsCollector struct {
	mu sync.Mutex

	samples []blockSample // ring, len == windowSize once full
	head    int           // next write position once full
	window  int

	transitions []Transition
	aborts      int
	lastAbortAt *time.Time
}

// NewMetricsCollector creates a collector over windowSize samples (default 100).
func NewMetricsCollector(windowSize int) *MetricsCollector {
	if windowSize <= 0 {
		windowSize = 100
	}
	return &MetricsCollector{
		samples:     make([]blockSample, 0, windowSize),
		window:      windowSize,
		transitions: make([]Transition, 0, historySize),
	}
}

// RecordBlock records that the cursor reached height at t.
func (mc *MetricsCollector) RecordBlock(height uint64, t time.Time) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	s := blockSample{height: height, at: t}
	if len(mc.samples) < mc.window {
		mc.samples = append(mc.samples, s)
		return
	}
	mc.samples[mc.head] = s
	mc.head = (mc.head + 1) % mc.window
}

// RecordTransition appends t to the bounded history and counts aborts.
func (mc *MetricsCollector) RecordTransition(t Transition) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if len(mc.transitions) == historySize {
		mc.transitions = append(mc.transitions[:0], mc.transitions[1:]...)
	}
	mc.transitions = append(mc.transitions, t)

	if t.Abort {
		at := t.Timestamp
		mc.aborts++
		mc.lastAbortAt = &at
	}
}

// oldestNewest returns the first and last samples in time order.
func (mc *MetricsCollector) oldestNewest() (blockSample, blockSample, bool) {
	n := len(mc.samples)
	if n < 2 {
		return blockSample{}, blockSample{}, false
	}
	if n < mc.window {
		return mc.samples[0], mc.samples[n-1], true
	}
	return mc.samples[mc.head], mc.samples[(mc.head+n-1)%n], true
}

// GetMetrics returns a snapshot.
func (mc *MetricsCollector) GetMetrics() Metrics {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	m := Metrics{
		Aborts:       mc.aborts,
		LastAbortAt:  mc.lastAbortAt,
		StateHistory: append([]Transition(nil), mc.transitions...),
	}

	first, last, ok := mc.oldestNewest()
	if !ok {
		return m
	}
	elapsed := last.at.Sub(first.at)
	if elapsed <= 0 || last.height <= first.height {
		return m
	}
	blocks := float64(last.height - first.height)
	m.BlocksPerSecond = blocks / elapsed.Seconds()
	m.AverageBlockTime = time.Duration(float64(elapsed) / blocks)
	return m
}

// Reset clears all collected data.
func (mc *MetricsCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.samples = mc.samples[:0]
	mc.head = 0
	mc.transitions = mc.transitions[:0]
	mc.aborts = 0
	mc.lastAbortAt = nil
}
