// Package rtclock provides a drift-free periodic clock for real-time
// control loops.
package rtclock

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Clock emits a stream of absolute target wake instants spaced by the
// current period, without drift. Targets form an arithmetic sequence in
// the underlying clock's time domain until SetPeriod is called; if a
// wake is late by k periods, the next WaitUntilNextTick returns
// immediately and the target advances by exactly one period, so
// catch-up is single-step and bounded.
type Clock struct {
	mu     sync.Mutex
	clk    clock.Clock
	period time.Duration
	next   time.Time
}

// New constructs a Clock ticking at period against the real OS clock.
func New(period time.Duration) *Clock {
	return NewWithClock(clock.New(), period)
}

// NewWithClock constructs a Clock against an injected clock.Clock,
// allowing deterministic tests to drive it with a clock.Mock instead of
// sleeping on the wall clock.
func NewWithClock(clk clock.Clock, period time.Duration) *Clock {
	return &Clock{
		clk:    clk,
		period: period,
		next:   clk.Now().Add(period),
	}
}

// WaitUntilNextTick suspends until the next target instant, then
// advances the target by exactly one period. Only callable from the
// loop goroutine.
func (c *Clock) WaitUntilNextTick() {
	c.mu.Lock()
	next := c.next
	period := c.period
	c.mu.Unlock()

	if d := next.Sub(c.clk.Now()); d > 0 {
		c.clk.Sleep(d)
	}

	c.mu.Lock()
	c.next = next.Add(period)
	c.mu.Unlock()
}

// SetPeriod replaces the period; the next target is re-based to
// now + p so a slow-down does not trigger a catch-up burst. Callable
// only from the loop goroutine.
func (c *Clock) SetPeriod(p time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.period = p
	c.next = c.clk.Now().Add(p)
}

// Period returns the period currently in effect.
func (c *Clock) Period() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.period
}

// TimeToNext returns the non-negative duration remaining until the next
// target instant, zero if already late.
func (c *Clock) TimeToNext() time.Duration {
	c.mu.Lock()
	next := c.next
	c.mu.Unlock()

	if d := next.Sub(c.clk.Now()); d > 0 {
		return d
	}
	return 0
}

// Now returns the underlying clock's current time, exposed so callers
// can timestamp iterations against the same time source the clock uses.
func (c *Clock) Now() time.Time {
	return c.clk.Now()
}
