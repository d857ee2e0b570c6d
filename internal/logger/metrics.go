package logger

import (
	"sync"
	"time"
)

// Metrics tracks per-run counters and timing measurements. Counters cover
// run outcomes (events inserted, updated, skipped, errored); timings cover
// fetch latency. All operations are safe for concurrent use even though the
// crawl itself is sequential.
type Metrics struct {
	mu       sync.Mutex
	counters map[string]int64
	timings  map[string][]time.Duration
}

var defaultMetrics = NewMetrics()

// NewMetrics creates an empty metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{
		counters: make(map[string]int64),
		timings:  make(map[string][]time.Duration),
	}
}

// IncrCounter increments a counter by one.
func (m *Metrics) IncrCounter(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
}

// RecordTiming records one duration measurement under name.
func (m *Metrics) RecordTiming(name string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timings[name] = append(m.timings[name], d)
}

// TimingStats summarizes the recorded durations for one name.
type TimingStats struct {
	Count   int           `json:"count"`
	Total   time.Duration `json:"total"`
	Average time.Duration `json:"average"`
	Min     time.Duration `json:"min"`
	Max     time.Duration `json:"max"`
}

// Snapshot returns a copy of all counters and computed timing statistics.
func (m *Metrics) Snapshot() (map[string]int64, map[string]TimingStats) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counters := make(map[string]int64, len(m.counters))
	for k, v := range m.counters {
		counters[k] = v
	}

	timings := make(map[string]TimingStats, len(m.timings))
	for name, durations := range m.timings {
		if len(durations) == 0 {
			continue
		}
		stats := TimingStats{Count: len(durations), Min: durations[0], Max: durations[0]}
		for _, d := range durations {
			stats.Total += d
			if d < stats.Min {
				stats.Min = d
			}
			if d > stats.Max {
				stats.Max = d
			}
		}
		stats.Average = stats.Total / time.Duration(stats.Count)
		timings[name] = stats
	}

	return counters, timings
}

// Package-level metrics functions using the default tracker.

func IncrCounter(name string)                     { defaultMetrics.IncrCounter(name) }
func RecordTiming(name string, d time.Duration)   { defaultMetrics.RecordTiming(name, d) }
func MetricsSnapshot() (map[string]int64, map[string]TimingStats) {
	return defaultMetrics.Snapshot()
}
