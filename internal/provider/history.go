// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"sync"
	"time"
)

const defaultHistorySamples = 50

// History records recent successful call latencies per provider. The
// wrapper feeds it; the fastest selection strategy reads it.
type History struct {
	mu      sync.RWMutex
	max     int
	samples map[string][]time.Duration
}

// NewHistory keeps at most maxSamples latencies per provider (50 when
// maxSamples is not positive).
func NewHistory(maxSamples int) *History {
	if maxSamples <= 0 {
		maxSamples = defaultHistorySamples
	}
	return &History{max: maxSamples, samples: make(map[string][]time.Duration)}
}

// Record appends a latency sample for provider name.
func (h *History) Record(name string, d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := append(h.samples[name], d)
	if len(s) > h.max {
		s = s[len(s)-h.max:]
	}
	h.samples[name] = s
}

// MeanLatency returns the mean recorded latency for name and whether any
// samples exist.
func (h *History) MeanLatency(name string) (time.Duration, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := h.samples[name]
	if len(s) == 0 {
		return 0, false
	}
	var total time.Duration
	for _, d := range s {
		total += d
	}
	return total / time.Duration(len(s)), true
}
