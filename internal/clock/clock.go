package clock

import (
	"sync"
	"time"
)

// Clock abstracts time so that backtests and tests can inject a synthetic
// source. Wall time is always UTC; daily boundaries derive from it.
type Clock interface {
	// Now returns the current wall time in UTC.
	Now() time.Time
	// Since returns the elapsed duration from t, using the monotonic reading
	// when available.
	Since(t time.Time) time.Duration
}

// Real is the system clock.
type Real struct{}

func NewReal() *Real { return &Real{} }

func (*Real) Now() time.Time                  { return time.Now().UTC() }
func (*Real) Since(t time.Time) time.Duration { return time.Since(t) }

// Simulated is a manually advanced clock for backtests and tests.
type Simulated struct {
	mu  sync.Mutex
	now time.Time
}

// NewSimulated creates a simulated clock starting at t.
func NewSimulated(t time.Time) *Simulated {
	return &Simulated{now: t.UTC()}
}

func (c *Simulated) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Simulated) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Advance moves the clock forward by d and returns the new time.
func (c *Simulated) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Set jumps the clock to t.
func (c *Simulated) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}
