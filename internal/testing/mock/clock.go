package mock

import (
	"context"
	"sync"
	"time"
)

// Clock is a manually driven time source.
type Clock struct {
	mu      sync.RWMutex
	current time.Time
	sleeps  []time.Duration
}

// NewClock returns a clock stopped at t, or at the current second if t is zero.
func NewClock(t time.Time) *Clock {
	if t.IsZero() {
		t = time.Now().Truncate(time.Second)
	}
	return &Clock{current: t}
}

// Now returns the clock's current time.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

// Sleep records d and advances the clock by it without blocking.
// It fails like a real sleep would when ctx is already done.
func (c *Clock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.current = c.current.Add(d)
	return nil
}

// Sleeps returns the durations passed to Sleep so far.
func (c *Clock) Sleeps() []time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]time.Duration(nil), c.sleeps...)
}
