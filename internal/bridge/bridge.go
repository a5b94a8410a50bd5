package bridge

import (
	"context"
	"time"

	"github.com/yanun0323/errors"
)

// ErrTimedOut reports that a wait elapsed before the terminal
// notification arrived. It is not fatal by itself; callers decide.
var ErrTimedOut = errors.New("bridge wait timed out")

// Gates holds one gate per terminal notification kind the session
// waits on. Correlation is by event kind: the transport is assumed to
// deliver exactly one terminal notification per outstanding request.
type Gates struct {
	NextOrderID        *Gate
	AccountSummaryEnd  *Gate
	ContractDetailsEnd *Gate
	HistoricalDataEnd  *Gate
	ExecDetails        *Gate
	ExecDetailsEnd     *Gate
	PositionEnd        *Gate
	OpenOrderEnd       *Gate
	CompletedOrdersEnd *Gate
	CurrentTime        *Gate
}

// NewGates creates the full cleared gate set.
func NewGates() *Gates {
	return &Gates{
		NextOrderID:        NewGate("nextOrderId"),
		AccountSummaryEnd:  NewGate("accountSummaryEnd"),
		ContractDetailsEnd: NewGate("contractDetailsEnd"),
		HistoricalDataEnd:  NewGate("historicalDataEnd"),
		ExecDetails:        NewGate("execDetails"),
		ExecDetailsEnd:     NewGate("execDetailsEnd"),
		PositionEnd:        NewGate("positionEnd"),
		OpenOrderEnd:       NewGate("openOrderEnd"),
		CompletedOrdersEnd: NewGate("completedOrdersEnd"),
		CurrentTime:        NewGate("currentTime"),
	}
}

// Call clears the gate, issues the request, and blocks up to timeout for
// the correlated terminal notification. It returns the gate payload on
// success and ErrTimedOut when the deadline elapses. It never retries.
func Call(ctx context.Context, gate *Gate, timeout time.Duration, issue func() error) (any, error) {
	gate.Clear()
	if err := issue(); err != nil {
		return nil, errors.Wrap(err, "issue request")
	}
	return gate.WaitTimeout(ctx, timeout)
}

// CallWait is Call without a deadline. Reserved for the two calls that
// gate the whole session's liveness (initial order id, connectivity).
func CallWait(ctx context.Context, gate *Gate, issue func() error) (any, error) {
	gate.Clear()
	if err := issue(); err != nil {
		return nil, errors.Wrap(err, "issue request")
	}
	return gate.Wait(ctx)
}
