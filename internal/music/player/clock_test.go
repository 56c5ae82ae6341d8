package player

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockElapsedBeforeStart(t *testing.T) {
	clk := NewClock(nil)
	assert.Equal(t, time.Duration(0), clk.Elapsed(time.Now()))
}

func TestClockWallClock(t *testing.T) {
	cur := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	clk := NewClock(func() time.Time { return cur })
	clk.Start()

	cur = cur.Add(10 * time.Second)
	assert.Equal(t, 10*time.Second, clk.Elapsed(cur))
}

func TestClockPauseExcluded(t *testing.T) {
	cur := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	clk := NewClock(func() time.Time { return cur })
	clk.Start()

	cur = cur.Add(30 * time.Second)
	clk.Pause()
	assert.True(t, clk.Paused())

	// Ten paused seconds must not count.
	cur = cur.Add(10 * time.Second)
	assert.Equal(t, 30*time.Second, clk.Elapsed(cur))

	clk.Resume()
	cur = cur.Add(5 * time.Second)
	assert.Equal(t, 35*time.Second, clk.Elapsed(cur))
}

func TestClockPauseResumeIdempotent(t *testing.T) {
	cur := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	clk := NewClock(func() time.Time { return cur })
	clk.Start()

	clk.Resume() // not paused, no-op
	clk.Pause()
	clk.Pause() // already paused, pause point unchanged
	cur = cur.Add(7 * time.Second)
	clk.Resume()

	cur = cur.Add(3 * time.Second)
	assert.Equal(t, 3*time.Second, clk.Elapsed(cur))
}

func TestClockFreshSampleWins(t *testing.T) {
	cur := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	clk := NewClock(func() time.Time { return cur })
	clk.Start()

	cur = cur.Add(10 * time.Second)
	clk.RecordPosition(14*time.Second, cur)
	assert.Equal(t, 14*time.Second, clk.Elapsed(cur))
}

func TestClockSampleNeverMovesBackward(t *testing.T) {
	cur := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	clk := NewClock(func() time.Time { return cur })
	clk.Start()

	cur = cur.Add(10 * time.Second)
	clk.RecordPosition(2*time.Second, cur)
	assert.Equal(t, 10*time.Second, clk.Elapsed(cur))
}

func TestClockStaleSampleIgnored(t *testing.T) {
	cur := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	clk := NewClock(func() time.Time { return cur })
	clk.Start()

	cur = cur.Add(10 * time.Second)
	clk.RecordPosition(30*time.Second, cur)

	// Within the TTL the sample is authoritative.
	cur = cur.Add(4 * time.Second)
	assert.Equal(t, 30*time.Second, clk.Elapsed(cur))

	// Past the TTL the wall clock takes over again.
	cur = cur.Add(2 * time.Second)
	assert.Equal(t, 16*time.Second, clk.Elapsed(cur))
}

func TestClockStartResets(t *testing.T) {
	cur := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	clk := NewClock(func() time.Time { return cur })
	clk.Start()

	cur = cur.Add(time.Minute)
	clk.RecordPosition(2*time.Minute, cur)
	clk.Start()

	cur = cur.Add(time.Second)
	assert.Equal(t, time.Second, clk.Elapsed(cur))
}
