// Package clock provides the monotonic time base used to stamp telemetry and
// latch maneuver start times.
package clock

import (
	"sync"
	"time"
)

// Monotonic reads the system monotonic clock as an offset from an arbitrary
// origin (boot on Linux).
type Monotonic struct{}

func (Monotonic) Now() time.Duration { return monotonicNow() }

// Manual is a clock advanced explicitly. Safe for concurrent use.
type Manual struct {
	mu  sync.Mutex
	now time.Duration
}

func NewManual(start time.Duration) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Advance(d time.Duration) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now += d
	return m.now
}
