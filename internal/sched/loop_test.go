package sched

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAligned(t *testing.T) {
	interval := 5 * time.Minute
	assert.True(t, Aligned(time.Date(2026, 2, 2, 9, 30, 0, 0, time.UTC), interval))
	assert.True(t, Aligned(time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC), interval))
	assert.False(t, Aligned(time.Date(2026, 2, 2, 9, 30, 1, 0, time.UTC), interval))
	assert.False(t, Aligned(time.Date(2026, 2, 2, 9, 31, 0, 0, time.UTC), interval))
}

func TestNextBoundary(t *testing.T) {
	interval := 5 * time.Minute
	assert.Equal(t,
		time.Date(2026, 2, 2, 9, 30, 0, 0, time.UTC),
		NextBoundary(time.Date(2026, 2, 2, 9, 27, 13, 500_000_000, time.UTC), interval))
	// Exactly on a boundary: the next one, not the same instant.
	assert.Equal(t,
		time.Date(2026, 2, 2, 9, 35, 0, 0, time.UTC),
		NextBoundary(time.Date(2026, 2, 2, 9, 30, 0, 0, time.UTC), interval))
	assert.Equal(t,
		time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC),
		NextBoundary(time.Date(2026, 2, 2, 9, 59, 59, 0, time.UTC), interval))
}

func TestNextSleepCompensatesForWork(t *testing.T) {
	l := NewLoop(Config{Interval: 5 * time.Minute, Margin: time.Minute}, nil)
	assert.Equal(t, 3*time.Minute, l.NextSleep(time.Minute))
}

func TestNextSleepFloorsOnOverrun(t *testing.T) {
	l := NewLoop(Config{Interval: 5 * time.Minute, Margin: time.Minute}, nil)
	// A tick that overran the whole interval must not busy-loop.
	assert.Equal(t, time.Second, l.NextSleep(10*time.Minute))
	assert.Equal(t, time.Second, l.NextSleep(4*time.Minute+30*time.Second))
}

// fakeClock advances only when the loop sleeps.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) pause(_ context.Context, d time.Duration) error {
	c.now = c.now.Add(d)
	return nil
}

func TestRunTicksOnBoundaries(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 2, 2, 9, 29, 57, 0, time.UTC)}
	l := NewLoop(Config{Interval: 5 * time.Minute, Margin: time.Minute}, nil)
	l.now = func() time.Time { return clock.now }
	l.pause = clock.pause

	var ticks []time.Time
	until := time.Date(2026, 2, 2, 9, 40, 0, 0, time.UTC)
	err := l.Run(t.Context(), until, func(_ context.Context, now time.Time) error {
		ticks = append(ticks, now)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, ticks, 2)
	assert.Equal(t, time.Date(2026, 2, 2, 9, 30, 0, 0, time.UTC), ticks[0])
	assert.Equal(t, time.Date(2026, 2, 2, 9, 35, 0, 0, time.UTC), ticks[1])
}

// A misaligned wake sleeps exactly to the boundary in one step.
// Fixed-step polling could straddle second zero and push the tick out
// a whole interval.
func TestRunSleepsExactlyToBoundary(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 2, 2, 9, 27, 13, 500_000_000, time.UTC)}
	l := NewLoop(Config{Interval: 5 * time.Minute, Margin: time.Minute}, nil)
	l.now = func() time.Time { return clock.now }

	var pauses []time.Duration
	l.pause = func(ctx context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return clock.pause(ctx, d)
	}

	var ticks []time.Time
	until := time.Date(2026, 2, 2, 9, 31, 0, 0, time.UTC)
	err := l.Run(t.Context(), until, func(_ context.Context, now time.Time) error {
		ticks = append(ticks, now)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, ticks, 1)
	assert.Equal(t, time.Date(2026, 2, 2, 9, 30, 0, 0, time.UTC), ticks[0])
	require.NotEmpty(t, pauses)
	assert.Equal(t, 2*time.Minute+46*time.Second+500*time.Millisecond, pauses[0])
}

func TestRunStopsOnTickError(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 2, 2, 9, 30, 0, 0, time.UTC)}
	l := NewLoop(Config{Interval: 5 * time.Minute}, nil)
	l.now = func() time.Time { return clock.now }
	l.pause = clock.pause

	wantErr := assert.AnError
	until := time.Date(2026, 2, 2, 15, 30, 0, 0, time.UTC)
	err := l.Run(t.Context(), until, func(context.Context, time.Time) error { return wantErr })
	require.ErrorIs(t, err, wantErr)
}

func TestRunRespectsDeadline(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 2, 2, 15, 30, 0, 0, time.UTC)}
	l := NewLoop(Config{Interval: 5 * time.Minute}, nil)
	l.now = func() time.Time { return clock.now }
	l.pause = clock.pause

	called := false
	err := l.Run(t.Context(), clock.now, func(context.Context, time.Time) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestSleepUntil(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)}
	l := NewLoop(Config{}, nil)
	l.now = func() time.Time { return clock.now }
	l.pause = clock.pause

	target := time.Date(2026, 2, 2, 9, 22, 0, 0, time.UTC)
	require.NoError(t, l.SleepUntil(t.Context(), target))
	assert.Equal(t, target, clock.now)

	// Already past: returns immediately.
	require.NoError(t, l.SleepUntil(t.Context(), target.Add(-time.Hour)))
	assert.Equal(t, target, clock.now)
}
