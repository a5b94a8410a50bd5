package strategy

import (
	"time"

	"main/internal/schema"
)

// TimeOfDay is a wall-clock boundary within the trading session.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// Reached reports whether now is at or past the boundary.
func (t TimeOfDay) Reached(now time.Time) bool {
	return now.Hour()*60+now.Minute() >= t.Hour*60+t.Minute
}

// On anchors the boundary to now's calendar day and location.
func (t TimeOfDay) On(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), t.Hour, t.Minute, 0, 0, now.Location())
}

// SessionCandles keeps only today's bars and drops the final bar when
// it is still forming (its start minute matches the current minute).
func SessionCandles(bars []schema.Candle, now time.Time) []schema.Candle {
	y, m, d := now.Date()
	out := make([]schema.Candle, 0, len(bars))
	for _, b := range bars {
		ts := b.Time.In(now.Location())
		by, bm, bd := ts.Date()
		if by != y || bm != m || bd != d {
			continue
		}
		out = append(out, b)
	}
	if n := len(out); n > 0 {
		last := out[n-1].Time.In(now.Location())
		if last.Hour() == now.Hour() && last.Minute() == now.Minute() {
			out = out[:n-1]
		}
	}
	return out
}

// SessionRange returns the running high/low across the session's bars.
func SessionRange(bars []schema.Candle) (low, high float64, ok bool) {
	if len(bars) == 0 {
		return 0, 0, false
	}
	low, high = bars[0].Low, bars[0].High
	for _, b := range bars[1:] {
		if b.Low < low {
			low = b.Low
		}
		if b.High > high {
			high = b.High
		}
	}
	return low, high, true
}
