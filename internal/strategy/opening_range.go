package strategy

import (
	"github.com/yanun0323/errors"

	"main/internal/schema"
)

// openRangeBuffer widens the first candle's band by 0.1% on each side
// to suppress noise-driven false breakouts.
const openRangeBuffer = 0.001

// OpeningRange is the buffered price band of the session's first
// candle. Immutable once computed.
type OpeningRange struct {
	Low  float64
	High float64
}

// ErrBadRange reports a first candle the range cannot be derived from.
var ErrBadRange = errors.New("opening range candle is malformed")

// NewOpeningRange derives the buffered range from the session's first
// completed candle.
func NewOpeningRange(c schema.Candle) (OpeningRange, error) {
	if c.Low <= 0 || c.High < c.Low {
		return OpeningRange{}, errors.Wrapf(ErrBadRange, "low=%v high=%v", c.Low, c.High)
	}
	return OpeningRange{
		Low:  c.Low * (1 - openRangeBuffer),
		High: c.High * (1 + openRangeBuffer),
	}, nil
}

// BreakoutAbove reports a close strictly above the buffered high.
func (r OpeningRange) BreakoutAbove(close float64) bool { return close > r.High }

// BreakoutBelow reports a close strictly below the buffered low.
func (r OpeningRange) BreakoutBelow(close float64) bool { return close < r.Low }
