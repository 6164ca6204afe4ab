package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Cooldown enforces a minimum interval between the starts of successive
// operations. It behaves like a token bucket of capacity one that refills
// once per interval, except that callers wait for the token instead of being
// rejected.
//
// Concurrent callers are not queued behind each other's completion; each
// one reserves the next free start slot and sleeps until it arrives.
//
// # Thread Safety
//
// Cooldown is safe for concurrent use. The last start time is guarded by a
// mutex so the interval holds across goroutines.
type Cooldown struct {
	interval time.Duration
	last     time.Time // start of the most recently reserved slot
	mu       sync.Mutex
}

// NewCooldown creates a limiter that spaces starts at least interval apart.
// A non-positive interval disables waiting.
func NewCooldown(interval time.Duration) *Cooldown {
	return &Cooldown{interval: interval}
}

// Interval returns the configured minimum spacing.
func (c *Cooldown) Interval() time.Duration {
	return c.interval
}

// WaitTurn blocks until the caller may start. It returns ctx.Err() if the
// context ends first, in which case the reserved slot is released when no
// later caller has reserved one behind it.
func (c *Cooldown) WaitTurn(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	now := time.Now()
	prev := c.last
	start := now
	if !prev.IsZero() {
		if next := prev.Add(c.interval); next.After(now) {
			start = next
		}
	}
	c.last = start
	c.mu.Unlock()

	wait := start.Sub(now)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		c.mu.Lock()
		if c.last.Equal(start) {
			c.last = prev
		}
		c.mu.Unlock()
		return ctx.Err()
	}
}

// TimeUntilAvailable returns how long a caller arriving now would wait.
// Returns 0 if a call could start immediately.
func (c *Cooldown) TimeUntilAvailable() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.last.IsZero() {
		return 0
	}
	if d := time.Until(c.last.Add(c.interval)); d > 0 {
		return d
	}
	return 0
}

// Reset forgets the last start so the next caller proceeds immediately.
func (c *Cooldown) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = time.Time{}
}
