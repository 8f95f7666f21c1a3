package repository

import (
	"sync"
	"time"
)

// Clock hands out strictly increasing UTC timestamps at millisecond
// resolution, the precision a BSON datetime keeps.
type Clock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewClock create a Clock over time.Now
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// Next next timestamp, always after the previous one
func (c *Clock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Millisecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Millisecond)
	}
	c.last = t
	return t
}
