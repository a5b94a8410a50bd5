package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundNearest(t *testing.T) {
	testCases := []struct {
		desc     string
		x        float64
		tick     float64
		expected float64
	}{
		{"already on tick", 22310.05, 0.05, 22310.05},
		{"rounds down", 22310.06, 0.05, 22310.05},
		{"rounds up", 22310.08, 0.05, 22310.10},
		{"half away from zero", 2.5, 1, 3},
		{"negative half away from zero", -2.5, 1, -3},
		{"stop below range", 89.9, 0.05, 89.90},
		{"stop above range", 110.1, 0.05, 110.10},
		{"coarse tick", 103, 5, 105},
		{"tick of one", 99.4, 1, 99},
		{"zero tick passthrough", 99.42, 0, 99.42},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.InDelta(t, tc.expected, RoundNearest(tc.x, tc.tick), 1e-9)
		})
	}
}

func TestRoundNearestSnapsPrecision(t *testing.T) {
	// The result must be exactly representable at the tick's precision,
	// not carry float drift like 89.90000000000001.
	got := RoundNearest(99.9-10, 0.05)
	assert.Equal(t, 89.9, got)
}
