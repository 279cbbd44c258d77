package dictionary

import (
	"sync"
	"time"
)

// Clock is the time source of the cache.
// Stamps are strictly increasing at millisecond resolution, so two accesses never share a recency.
type Clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewClock returns a Clock reading now. A nil now uses time.Now.
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Now returns the wall time, used to compute expiry cutoffs.
func (c *Clock) Now() time.Time {
	return c.now()
}

// Stamp returns an access time later than every stamp handed out or observed before.
// When the wall clock has not moved on, the previous stamp is advanced by a millisecond.
func (c *Clock) Stamp() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	millis := toMillis(c.now())
	if millis <= c.last {
		millis = c.last + 1
	}
	c.last = millis
	return fromMillis(millis)
}

// Observe makes later stamps follow value.
func (c *Clock) Observe(value time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if millis := toMillis(value); millis > c.last {
		c.last = millis
	}
}
