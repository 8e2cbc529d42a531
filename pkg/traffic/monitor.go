package traffic

import (
	"sync"
	"time"
)

type clock interface {
	Time() time.Time
}

type staticClock struct {
	t time.Time
}

func newStaticClock(t time.Time) *staticClock {
	return &staticClock{t: t}
}

func (c *staticClock) Time() time.Time {
	return c.t
}

type nowClock struct{}

func (c *nowClock) Time() time.Time {
	return time.Now()
}

type bucket struct {
	start time.Time
	n     int
}

// Monitor aggregates request counts into fixed width time buckets kept in
// a ring covering span. Counts older than span are overwritten as the
// ring wraps.
type Monitor struct {
	clock      clock
	resolution time.Duration

	mux     sync.RWMutex // guards buckets
	buckets []bucket
}

// NewMonitor keeps span worth of counts at the given resolution.
func NewMonitor(span, resolution time.Duration) *Monitor {
	return newMonitorWithClock(span, resolution, &nowClock{})
}

func newTestMonitor(now time.Time, span, resolution time.Duration) *Monitor {
	return newMonitorWithClock(span, resolution, newStaticClock(now))
}

func newMonitorWithClock(span, resolution time.Duration, c clock) *Monitor {
	n := int(span/resolution) + 1
	return &Monitor{
		clock:      c,
		resolution: resolution,
		buckets:    make([]bucket, n),
	}
}

func (tm *Monitor) slot(t time.Time) int {
	return int((t.UnixNano() / int64(tm.resolution)) % int64(len(tm.buckets)))
}

// Increment the count by i for given clock time.
func (tm *Monitor) Increment(i int, at time.Time) {
	start := at.Truncate(tm.resolution)
	tm.mux.Lock()
	b := &tm.buckets[tm.slot(at)]
	if !b.start.Equal(start) {
		if b.start.After(start) {
			// Slot already reused by a newer bucket.
			tm.mux.Unlock()
			return
		}
		b.start = start
		b.n = 0
	}
	b.n += i
	tm.mux.Unlock()
}

// RangeSum aggregates the occurrences in buckets starting within
// [start, finish].
func (tm *Monitor) RangeSum(start, finish time.Time) int {
	start = start.Truncate(tm.resolution)
	sum := 0
	tm.mux.RLock()
	for _, b := range tm.buckets {
		if b.start.IsZero() || b.start.Before(start) || b.start.After(finish) {
			continue
		}
		sum += b.n
	}
	tm.mux.RUnlock()
	return sum
}

// RecentSum aggregates the occurrences within the delta duration parameter.
func (tm *Monitor) RecentSum(delta time.Duration) int {
	now := tm.clock.Time()
	return tm.RangeSum(now.Add(-delta), now)
}
