package services

import (
	"sync"
	"time"
)

// Clock abstracts time so tests can pin it.
type Clock interface {
	Now() time.Time
}

// MonotonicClock never goes backwards, even if the wall clock does. Audit
// events within a case must carry non-decreasing created_at values, and a
// stepped system clock must not be able to break that.
type MonotonicClock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{now: time.Now}
}

func (c *MonotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now()
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return t
}
