package strategy

import "math"

// RoundNearest rounds x to the nearest multiple of tick, half away
// from zero, then snaps the result to the tick's decimal precision so
// float drift never leaks into order prices.
func RoundNearest(x, tick float64) float64 {
	if tick <= 0 {
		return x
	}
	v := math.Round(x/tick) * tick
	digits := -math.Floor(math.Log10(tick))
	if digits > 0 {
		p := math.Pow(10, digits)
		v = math.Round(v*p) / p
	}
	return v
}
