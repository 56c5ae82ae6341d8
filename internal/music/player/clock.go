package player

import (
	"sync"
	"time"
)

// positionSampleTTL is how long an external position sample stays
// authoritative before the wall-clock estimate takes over again.
const positionSampleTTL = 5 * time.Second

// Clock tracks elapsed playback time for one track, excluding time spent
// paused. Streaming sources stall and report position in bursts, so the
// wall-clock estimate is blended with the most recent position sample
// reported by the encoder: a fresh sample wins, but never moves elapsed
// time backward.
type Clock struct {
	mu          sync.Mutex
	now         func() time.Time
	startedAt   time.Time
	pausedAt    time.Time // zero while not paused
	pausedTotal time.Duration
	extPos      time.Duration
	extAt       time.Time
}

// NewClock creates a stopped clock. now may be nil to use time.Now.
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Start resets all accounting and marks the start of playback.
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startedAt = c.now()
	c.pausedAt = time.Time{}
	c.pausedTotal = 0
	c.extPos = 0
	c.extAt = time.Time{}
}

// Pause records the pause point. No-op when already paused.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pausedAt.IsZero() {
		return
	}
	c.pausedAt = c.now()
}

// Resume accumulates the paused span. No-op when not paused.
func (c *Clock) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pausedAt.IsZero() {
		return
	}
	c.pausedTotal += c.now().Sub(c.pausedAt)
	c.pausedAt = time.Time{}
}

// Paused reports whether the clock is currently paused.
func (c *Clock) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.pausedAt.IsZero()
}

// RecordPosition stores the latest position sample reported by the
// external stream, with its capture time.
func (c *Clock) RecordPosition(pos time.Duration, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.extPos = pos
	c.extAt = at
}

// Elapsed returns the playback position at the given instant. A position
// sample younger than positionSampleTTL is authoritative when it is ahead
// of the wall-clock estimate; it never forces elapsed time backward.
func (c *Clock) Elapsed(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.startedAt.IsZero() {
		return 0
	}

	ref := now
	if !c.pausedAt.IsZero() && c.pausedAt.Before(ref) {
		ref = c.pausedAt
	}

	base := ref.Sub(c.startedAt) - c.pausedTotal
	if base < 0 {
		base = 0
	}

	if !c.extAt.IsZero() && now.Sub(c.extAt) < positionSampleTTL && c.extPos > base {
		return c.extPos
	}
	return base
}
