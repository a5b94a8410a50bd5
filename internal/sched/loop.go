// Package sched drives trading ticks on wall-clock-aligned boundaries.
// Alignment is re-derived from the clock every iteration rather than
// from a fixed-period timer, so decision points stay on candle
// boundaries even when a tick overruns.
package sched

import (
	"context"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/obs"
)

// Config sets the cadence parameters.
type Config struct {
	Interval time.Duration
	Margin   time.Duration
	MinSleep time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
	// The margin wakes the loop early so the exact boundary sleep is
	// computed from a fresh clock reading instead of overslept.
	if c.Margin <= 0 {
		c.Margin = time.Minute
	}
	if c.MinSleep <= 0 {
		c.MinSleep = time.Second
	}
	return c
}

// Loop runs a tick function at every aligned boundary until a deadline.
type Loop struct {
	cfg     Config
	metrics *obs.Metrics

	now   func() time.Time
	pause func(context.Context, time.Duration) error
}

// NewLoop builds a loop on the system clock.
func NewLoop(cfg Config, metrics *obs.Metrics) *Loop {
	return &Loop{
		cfg:     cfg.withDefaults(),
		metrics: metrics,
		now:     time.Now,
		pause:   sleepCtx,
	}
}

// Aligned reports whether t sits exactly on an interval boundary.
func Aligned(t time.Time, interval time.Duration) bool {
	m := int(interval / time.Minute)
	if m <= 0 {
		m = 1
	}
	return t.Minute()%m == 0 && t.Second() == 0
}

// NextBoundary returns the first aligned instant strictly after the
// minute containing t.
func NextBoundary(t time.Time, interval time.Duration) time.Time {
	m := int(interval / time.Minute)
	if m <= 0 {
		m = 1
	}
	n := t.Truncate(time.Minute)
	for {
		n = n.Add(time.Minute)
		if n.Minute()%m == 0 {
			return n
		}
	}
}

// NextSleep computes the compensated pause after a tick that took
// work: interval minus work minus margin, floored at MinSleep.
func (l *Loop) NextSleep(work time.Duration) time.Duration {
	d := l.cfg.Interval - work - l.cfg.Margin
	if d < l.cfg.MinSleep {
		d = l.cfg.MinSleep
	}
	return d
}

// Run executes tick at each aligned boundary until the deadline passes,
// the context is cancelled, or tick returns an error.
func (l *Loop) Run(ctx context.Context, until time.Time, tick func(ctx context.Context, now time.Time) error) error {
	for {
		now := l.now()
		if !now.Before(until) {
			logs.Infof("cadence deadline %s reached", until.Format("15:04:05"))
			return nil
		}
		if !Aligned(now, l.cfg.Interval) {
			// Sleep to the exact boundary. A fixed-step poll here can
			// straddle second zero and defer the tick a whole interval.
			if err := l.pause(ctx, NextBoundary(now, l.cfg.Interval).Sub(now)); err != nil {
				return err
			}
			continue
		}

		start := now
		if err := tick(ctx, now); err != nil {
			return err
		}
		work := l.now().Sub(start)
		l.metrics.ObserveTick(work.Seconds())

		if err := l.pause(ctx, l.NextSleep(work)); err != nil {
			return err
		}
	}
}

// SleepUntil blocks until t, returning early only on cancellation.
func (l *Loop) SleepUntil(ctx context.Context, t time.Time) error {
	d := t.Sub(l.now())
	if d <= 0 {
		return nil
	}
	logs.Infof("waiting %s until %s", d.Truncate(time.Second), t.Format("15:04:05"))
	return l.pause(ctx, d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
