package bridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/bus"
	"main/internal/schema"
)

func newTestSession(exit func(int)) *Session {
	return NewSession(SessionConfig{
		Queue: bus.NewStatusQueue(8),
		Exit:  exit,
	})
}

func TestSessionNextOrderID(t *testing.T) {
	s := newTestSession(nil)
	s.Handle(schema.Notification{Kind: schema.NotificationNextOrderID, OrderID: 101})

	v, err := s.Gates().NextOrderID.WaitTimeout(t.Context(), time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(101), v)
	assert.Equal(t, int64(101), s.NextOrderID())
}

func TestSessionContractDetailsGateCarriesResolution(t *testing.T) {
	s := newTestSession(nil)
	details := schema.ContractDetails{LocalSymbol: "NIFTY26FEB", Multiplier: "50", ConID: 12345}
	s.Handle(schema.Notification{Kind: schema.NotificationContractDetails, Contract: details})
	s.Handle(schema.Notification{Kind: schema.NotificationContractDetailsEnd})

	v, err := s.Gates().ContractDetailsEnd.WaitTimeout(t.Context(), time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, details, v)
	assert.Equal(t, details, s.Contract())
}

func TestSessionHistoricalBars(t *testing.T) {
	s := newTestSession(nil)
	base := time.Date(2026, 2, 2, 9, 15, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		s.Handle(schema.Notification{
			Kind: schema.NotificationHistoricalBar,
			Bar:  schema.Candle{Time: base.Add(time.Duration(i) * 5 * time.Minute), Close: float64(100 + i)},
		})
	}
	s.Handle(schema.Notification{Kind: schema.NotificationHistoricalBarEnd})

	v, err := s.Gates().HistoricalDataEnd.WaitTimeout(t.Context(), time.Millisecond)
	require.NoError(t, err)
	bars := v.([]schema.Candle)
	require.Len(t, bars, 3)
	assert.Equal(t, 102.0, bars[2].Close)

	// The buffer resets so the next request starts clean.
	s.Handle(schema.Notification{Kind: schema.NotificationHistoricalBarEnd})
	v, err = s.Gates().HistoricalDataEnd.WaitTimeout(t.Context(), time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestSessionPositionsReplacedWholesale(t *testing.T) {
	s := newTestSession(nil)
	s.Handle(schema.Notification{
		Kind:     schema.NotificationPosition,
		Position: schema.PositionEntry{LocalSymbol: "NIFTY26FEB", Quantity: 75},
	})
	s.Handle(schema.Notification{Kind: schema.NotificationPositionEnd})

	v, err := s.Gates().PositionEnd.WaitTimeout(t.Context(), time.Millisecond)
	require.NoError(t, err)
	first := v.(map[string]schema.PositionEntry)
	assert.Equal(t, 75.0, first["NIFTY26FEB"].Quantity)

	// A second snapshot with no position rows must not inherit the old map.
	s.Gates().PositionEnd.Clear()
	s.Handle(schema.Notification{Kind: schema.NotificationPositionEnd})
	v, err = s.Gates().PositionEnd.WaitTimeout(t.Context(), time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, v.(map[string]schema.PositionEntry))
}

func TestSessionOrderStatusQueued(t *testing.T) {
	s := newTestSession(nil)
	s.Handle(schema.Notification{
		Kind:   schema.NotificationOrderStatus,
		Status: schema.OrderStatusRecord{OrderID: 7, Status: schema.OrderStatusSubmitted},
	})

	recs := s.Queue().Drain()
	require.Len(t, recs, 1)
	assert.Equal(t, int64(7), recs[0].OrderID)
}

func TestSessionFatalErrorExits(t *testing.T) {
	codes := []int{schema.CodeOrderRejected, schema.CodeConnectivityLost}
	for _, code := range codes {
		exited := make(chan int, 1)
		s := newTestSession(func(code int) { exited <- code })

		s.Handle(schema.Notification{
			Kind: schema.NotificationError,
			Err:  schema.GatewayError{ReqID: 12, Code: code, Message: "rejected"},
		})

		select {
		case got := <-exited:
			assert.Equal(t, FatalExitCode, got)
		default:
			t.Fatalf("code %d should terminate the process", code)
		}
	}
}

func TestSessionBenignErrorIgnored(t *testing.T) {
	s := newTestSession(func(code int) {
		t.Fatalf("benign code must not exit, got %d", code)
	})

	for _, code := range []int{2104, 2106, 2158, 202, 399} {
		s.Handle(schema.Notification{
			Kind: schema.NotificationError,
			Err:  schema.GatewayError{Code: code, Message: "informational"},
		})
	}
}
