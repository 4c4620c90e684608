package workflow

import (
	"sync"
	"time"
)

// Clock issues strictly increasing timestamps for event records. Timestamps
// are writer-assigned so a buggy or malicious caller cannot reorder history
// with skewed client clocks; the strict increase keeps last-writer-wins
// derivation well defined when two writes land within clock resolution.
type Clock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewClock creates a clock backed by time.Now.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// NewClockAt creates a clock with a custom time source for tests.
func NewClockAt(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Next returns a timestamp strictly after every timestamp previously issued
// by this clock.
func (c *Clock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now()
	if !t.After(c.last) {
		t = c.last.Add(time.Nanosecond)
	}
	c.last = t
	return t
}
