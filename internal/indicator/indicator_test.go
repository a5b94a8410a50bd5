package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

func TestTrueRange(t *testing.T) {
	c := []schema.Candle{
		{High: 102, Low: 98, Close: 100},
		{High: 103, Low: 101, Close: 102}, // plain high-low
		{High: 104, Low: 103, Close: 104}, // gap up: high-prevClose dominates
		{High: 101, Low: 99, Close: 100},  // gap down: prevClose-low dominates
	}
	tr := TrueRange(c)
	require.Len(t, tr, 4)
	assert.InDelta(t, 4, tr[0], 1e-9)
	assert.InDelta(t, 3, tr[1], 1e-9)
	assert.InDelta(t, 2, tr[2], 1e-9)
	assert.InDelta(t, 5, tr[3], 1e-9)
}

func TestATRAlignedWithNaNWarmup(t *testing.T) {
	c := []schema.Candle{
		{High: 102, Low: 98, Close: 100},
		{High: 103, Low: 99, Close: 101},
		{High: 104, Low: 100, Close: 102},
		{High: 105, Low: 101, Close: 103},
	}
	out := ATR(c, 3)
	require.Len(t, out, 4)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	// All true ranges are 4, so the average and its smoothing stay 4.
	assert.InDelta(t, 4, out[2], 1e-9)
	assert.InDelta(t, 4, out[3], 1e-9)
}

func TestATRWilderSmoothing(t *testing.T) {
	c := []schema.Candle{
		{High: 104, Low: 100, Close: 102},
		{High: 104, Low: 100, Close: 102},
		{High: 112, Low: 102, Close: 110},
	}
	out := ATR(c, 2)
	// Warmup average = (4+4)/2 = 4; next = (4*1 + 10)/2 = 7.
	assert.InDelta(t, 4, out[1], 1e-9)
	assert.InDelta(t, 7, out[2], 1e-9)
}

func TestATRBadWindow(t *testing.T) {
	out := ATR([]schema.Candle{{High: 1, Low: 1}}, 0)
	require.Len(t, out, 1)
	assert.True(t, math.IsNaN(out[0]))
}

func TestPriorATRSkipsFormingBar(t *testing.T) {
	c := []schema.Candle{
		{High: 102, Low: 98, Close: 100},
		{High: 103, Low: 99, Close: 101},
		{High: 104, Low: 100, Close: 102},
		{High: 200, Low: 100, Close: 150}, // in-progress bar must not count
	}
	got := PriorATR(c, 3)
	assert.InDelta(t, 4, got, 1e-9)
}

func TestDayTrueRange(t *testing.T) {
	// Intraday range dominates.
	assert.InDelta(t, 6, DayTrueRange(104, 98, 100), 1e-9)
	// Gap up: high minus prior close dominates.
	assert.InDelta(t, 10, DayTrueRange(110, 106, 100), 1e-9)
	// Gap down: prior close minus low dominates.
	assert.InDelta(t, 8, DayTrueRange(95, 92, 100), 1e-9)
	// No prior close yet: degrade to high-low.
	assert.InDelta(t, 6, DayTrueRange(104, 98, 0), 1e-9)
}

func TestPriorCloseSkipsFormingBar(t *testing.T) {
	c := []schema.Candle{
		{High: 102, Low: 98, Close: 100},
		{High: 103, Low: 99, Close: 101},
		{High: 200, Low: 100, Close: 150}, // in-progress bar must not count
	}
	assert.InDelta(t, 101, PriorClose(c), 1e-9)
}

func TestPriorCloseShortSeries(t *testing.T) {
	assert.Zero(t, PriorClose(nil))
	assert.Zero(t, PriorClose([]schema.Candle{{Close: 100}}))
}

func TestPriorATRShortSeries(t *testing.T) {
	assert.Zero(t, PriorATR(nil, 14))
	assert.Zero(t, PriorATR([]schema.Candle{{High: 1, Low: 1}}, 14))
	// Two bars but a 14-bar window: still warming up.
	assert.Zero(t, PriorATR([]schema.Candle{{High: 2, Low: 1}, {High: 2, Low: 1}}, 14))
}
