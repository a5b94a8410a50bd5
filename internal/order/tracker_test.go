package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/bridge"
	"main/internal/bus"
	"main/internal/gateway"
	"main/internal/schema"
)

func newTrackerHarness(t *testing.T) (*gateway.Sim, *Tracker) {
	t.Helper()
	b := bus.NewBus()
	session := bridge.NewSession(bridge.SessionConfig{
		Queue: bus.NewStatusQueue(16),
		Exit:  func(code int) { t.Fatalf("unexpected exit %d", code) },
	})
	b.Subscribe(session.Handle)
	sim := gateway.NewSim(b)
	tracker := NewTracker(sim, session, Config{
		Contract:    schema.Contract{LocalSymbol: "NIFTY26FEB", Symbol: "NIFTY"},
		IDTimeout:   50 * time.Millisecond,
		ExecTimeout: 50 * time.Millisecond,
	}, nil)
	return sim, tracker
}

func TestPlaceBracketConfirmedByExecution(t *testing.T) {
	sim, tracker := newTrackerHarness(t)
	sim.Script(func(r gateway.SimRequest) {
		switch r.Op {
		case "reqIds":
			sim.Emit(schema.Notification{Kind: schema.NotificationNextOrderID, OrderID: 500})
		case "placeOrder":
			if r.Order.Transmit {
				sim.Emit(schema.Notification{
					Kind: schema.NotificationExecDetails,
					Exec: schema.ExecutionDetail{OrderID: 500, LocalSymbol: "NIFTY26FEB", Shares: 75},
				})
			}
		}
	})

	outcome, err := tracker.PlaceBracket(t.Context(), schema.ActionBuy, 75, 22310.05)
	require.NoError(t, err)
	assert.Equal(t, OutcomePlaced, outcome)

	var placed []gateway.SimRequest
	for _, r := range sim.Requests() {
		if r.Op == "placeOrder" {
			placed = append(placed, r)
		}
	}
	require.Len(t, placed, 2)
	assert.Equal(t, int64(500), placed[0].OrderID)
	assert.Equal(t, int64(501), placed[1].OrderID)
	assert.Equal(t, 22310.05, placed[1].Order.StopPrice)
}

func TestPlaceBracketConfirmedByStatusOnly(t *testing.T) {
	sim, tracker := newTrackerHarness(t)
	sim.Script(func(r gateway.SimRequest) {
		switch r.Op {
		case "reqIds":
			sim.Emit(schema.Notification{Kind: schema.NotificationNextOrderID, OrderID: 600})
		case "placeOrder":
			// Gateway acknowledges but the fill has not come back yet.
			sim.Emit(schema.Notification{
				Kind:   schema.NotificationOrderStatus,
				Status: schema.OrderStatusRecord{OrderID: r.OrderID, Status: schema.OrderStatusSubmitted},
			})
		}
	})

	outcome, err := tracker.PlaceBracket(t.Context(), schema.ActionBuy, 75, 22310.05)
	require.NoError(t, err)
	assert.Equal(t, OutcomePlaced, outcome)
}

func TestPlaceBracketNoOrderIDSubmitsNothing(t *testing.T) {
	sim, tracker := newTrackerHarness(t)
	// No script: the id request never resolves.

	outcome, err := tracker.PlaceBracket(t.Context(), schema.ActionBuy, 75, 22310.05)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotExecuted, outcome)
	assert.NotContains(t, sim.Ops(), "placeOrder")
}

func TestPlaceBracketUnconfirmed(t *testing.T) {
	sim, tracker := newTrackerHarness(t)
	sim.Script(func(r gateway.SimRequest) {
		if r.Op == "reqIds" {
			sim.Emit(schema.Notification{Kind: schema.NotificationNextOrderID, OrderID: 700})
		}
	})

	outcome, err := tracker.PlaceBracket(t.Context(), schema.ActionSell, 75, 22500)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotExecuted, outcome)
	assert.Contains(t, sim.Ops(), "placeOrder")
}

func TestPlaceBracketIgnoresForeignStatus(t *testing.T) {
	sim, tracker := newTrackerHarness(t)
	sim.Script(func(r gateway.SimRequest) {
		switch r.Op {
		case "reqIds":
			sim.Emit(schema.Notification{Kind: schema.NotificationNextOrderID, OrderID: 800})
		case "placeOrder":
			// Stale status for a previous session's order id.
			sim.Emit(schema.Notification{
				Kind:   schema.NotificationOrderStatus,
				Status: schema.OrderStatusRecord{OrderID: 42, Status: schema.OrderStatusSubmitted},
			})
		}
	})

	outcome, err := tracker.PlaceBracket(t.Context(), schema.ActionBuy, 75, 22310.05)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotExecuted, outcome)
}

func TestClosePosition(t *testing.T) {
	sim, tracker := newTrackerHarness(t)
	sim.Script(func(r gateway.SimRequest) {
		switch r.Op {
		case "reqIds":
			sim.Emit(schema.Notification{Kind: schema.NotificationNextOrderID, OrderID: 900})
		case "placeOrder":
			sim.Emit(schema.Notification{
				Kind:   schema.NotificationOrderStatus,
				Status: schema.OrderStatusRecord{OrderID: r.OrderID, Status: schema.OrderStatusFilled, FilledQty: 75},
			})
		}
	})

	outcome, err := tracker.ClosePosition(t.Context(), schema.ActionSell, 75)
	require.NoError(t, err)
	assert.Equal(t, OutcomeClosed, outcome)

	last := sim.Requests()[len(sim.Requests())-1]
	require.Equal(t, "placeOrder", last.Op)
	assert.Equal(t, schema.ActionSell, last.Order.Action)
	assert.Equal(t, schema.OrderKindMarket, last.Order.Kind)
	assert.Equal(t, int64(75), last.Order.Quantity)
	assert.True(t, last.Order.Transmit)
}
