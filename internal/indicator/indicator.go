// Package indicator implements the volatility helpers the strategy
// consumes. Outputs are aligned to input length; unavailable lookbacks
// emit NaN.
package indicator

import (
	"math"

	"main/internal/schema"
)

// TrueRange returns the per-bar true range aligned to c.
// Index 0 has no prior close and falls back to high-low.
func TrueRange(c []schema.Candle) []float64 {
	out := make([]float64, len(c))
	for i := range c {
		hl := c[i].High - c[i].Low
		if i == 0 {
			out[i] = hl
			continue
		}
		hc := math.Abs(c[i].High - c[i-1].Close)
		lc := math.Abs(c[i].Low - c[i-1].Close)
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

// ATR returns the n-period Average True Range using Wilder's smoothing,
// aligned to c. Indices before the first full window are NaN.
func ATR(c []schema.Candle, n int) []float64 {
	out := make([]float64, len(c))
	if n <= 0 || len(c) == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	tr := TrueRange(c)
	var sum float64
	for i := range c {
		if i < n {
			sum += tr[i]
			if i == n-1 {
				out[i] = sum / float64(n)
			} else {
				out[i] = math.NaN()
			}
			continue
		}
		// Wilder smoothing
		out[i] = (out[i-1]*float64(n-1) + tr[i]) / float64(n)
	}
	return out
}

// DayTrueRange returns the true range of a single session given the
// prior day's close. Without a prior close it degrades to high-low.
func DayTrueRange(high, low, prevClose float64) float64 {
	if prevClose == 0 {
		return high - low
	}
	return math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
}

// PriorClose returns the last fully closed bar's close, skipping the
// in-progress final bar. Zero when the series is too short.
func PriorClose(c []schema.Candle) float64 {
	if len(c) < 2 {
		return 0
	}
	return c[len(c)-2].Close
}

// PriorATR returns the last fully closed bar's ATR value, skipping the
// in-progress final bar. Zero when the series is too short.
func PriorATR(c []schema.Candle, n int) float64 {
	if len(c) < 2 {
		return 0
	}
	series := ATR(c, n)
	v := series[len(series)-2]
	if math.IsNaN(v) {
		return 0
	}
	return v
}
