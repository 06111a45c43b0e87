package auth

import (
	"sync"
	"time"

	"github.com/example/zinco/internal/clock"
)

// Countdown decrements once per tick until it reaches zero. It owns at
// most one pending timer; Stop cancels it and Start replaces it.
type Countdown struct {
	clock clock.Clock
	tick  time.Duration

	mu        sync.Mutex
	remaining int
	timer     *clock.Timer
	gen       int
}

// NewCountdown creates a stopped countdown at zero.
func NewCountdown(c clock.Clock, tick time.Duration) *Countdown {
	if tick <= 0 {
		tick = time.Second
	}
	return &Countdown{clock: c, tick: tick}
}

// Start (re)starts the countdown from units.
func (c *Countdown) Start(units int) {
	c.mu.Lock()
	c.stopLocked()
	c.remaining = max(units, 0)
	gen := c.gen
	c.mu.Unlock()

	if units > 0 {
		c.schedule(gen)
	}
}

// Stop cancels any pending tick and leaves the remaining value as is.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Remaining returns the units left.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Done reports whether the countdown has reached zero.
func (c *Countdown) Done() bool {
	return c.Remaining() == 0
}

func (c *Countdown) stopLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Countdown) schedule(gen int) {
	timer := c.clock.AfterFunc(c.tick, func() { c.fire(gen) })

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		timer.Stop()
		return
	}
	c.timer = timer
}

func (c *Countdown) fire(gen int) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.remaining--
	more := c.remaining > 0
	c.mu.Unlock()

	if more {
		c.schedule(gen)
	}
}
