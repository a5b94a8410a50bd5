package order

import (
	"context"
	"errors"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/bridge"
	"main/internal/bus"
	"main/internal/gateway"
	"main/internal/obs"
	"main/internal/schema"
)

// Outcome is the tracker's interpretation of one order attempt.
type Outcome uint8

const (
	OutcomeNotExecuted Outcome = iota
	OutcomePlaced
	OutcomeNotClosed
	OutcomeClosed
)

// Placed reports whether a bracket attempt was acknowledged or filled.
func (o Outcome) Placed() bool { return o == OutcomePlaced }

// Closed reports whether a flatten attempt was acknowledged or filled.
func (o Outcome) Closed() bool { return o == OutcomeClosed }

func (o Outcome) String() string {
	switch o {
	case OutcomePlaced:
		return "placed"
	case OutcomeClosed:
		return "closed"
	case OutcomeNotClosed:
		return "not_closed"
	default:
		return "not_executed"
	}
}

// Recorder receives confirmed order attempts for post-trade review.
type Recorder interface {
	Order(at time.Time, orderID int64, action string, quantity int64, stopPrice float64, outcome string) error
}

// Config sets the tracker's instrument and wait bounds.
type Config struct {
	Contract    schema.Contract
	IDTimeout   time.Duration
	ExecTimeout time.Duration
	Recorder    Recorder
}

func (c Config) withDefaults() Config {
	if c.IDTimeout <= 0 {
		c.IDTimeout = 5 * time.Second
	}
	if c.ExecTimeout <= 0 {
		c.ExecTimeout = 5 * time.Second
	}
	return c
}

// Tracker submits orders through the bridge and aggregates the status
// stream into Placed/NotExecuted and Closed/NotClosed outcomes. It
// never retries an order id; retry is the strategy's call and needs a
// fresh id.
type Tracker struct {
	transport gateway.Transport
	session   *bridge.Session
	cfg       Config
	metrics   *obs.Metrics
}

// NewTracker wires a tracker over the transport and session.
func NewTracker(transport gateway.Transport, session *bridge.Session, cfg Config, metrics *obs.Metrics) *Tracker {
	return &Tracker{
		transport: transport,
		session:   session,
		cfg:       cfg.withDefaults(),
		metrics:   metrics,
	}
}

// PlaceBracket obtains a fresh order id, submits the entry and its
// stop-loss leg, and waits up to the exec bound for confirmation.
// A timed-out confirmation is not an error: the drained status queue
// decides. Without a usable id nothing is submitted at all.
func (t *Tracker) PlaceBracket(ctx context.Context, action schema.Action, quantity int64, stopPrice float64) (Outcome, error) {
	id, ok := t.freshOrderID(ctx)
	if !ok {
		t.metrics.IncOrder(string(action), "no_id")
		return OutcomeNotExecuted, nil
	}

	bracket := NewBracket(id, action, quantity, stopPrice)
	t.session.Queue().Clear()

	executed, err := t.submitAndConfirm(ctx, func() error {
		for _, leg := range bracket.Legs {
			if err := t.transport.PlaceOrder(leg.OrderID, t.cfg.Contract, leg); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return OutcomeNotExecuted, err
	}

	submitted := drainWorking(t.session.Queue(), id)
	if executed || submitted {
		logs.Infof("bracket placed: parent=%d action=%s qty=%d stop=%.2f", id, action, quantity, stopPrice)
		t.metrics.IncOrder(string(action), "placed")
		t.record(id, action, quantity, stopPrice, OutcomePlaced)
		return OutcomePlaced, nil
	}
	logs.Warnf("bracket not confirmed: parent=%d action=%s", id, action)
	t.metrics.IncOrder(string(action), "not_executed")
	t.record(id, action, quantity, stopPrice, OutcomeNotExecuted)
	return OutcomeNotExecuted, nil
}

// ClosePosition flattens an existing position with a single market
// order, using the same wait/drain protocol as PlaceBracket.
func (t *Tracker) ClosePosition(ctx context.Context, action schema.Action, quantity int64) (Outcome, error) {
	id, ok := t.freshOrderID(ctx)
	if !ok {
		t.metrics.IncOrder(string(action), "no_id")
		return OutcomeNotClosed, nil
	}

	leg := schema.OrderLeg{
		OrderID:  id,
		Action:   action,
		Kind:     schema.OrderKindMarket,
		Quantity: quantity,
		Transmit: true,
	}
	t.session.Queue().Clear()

	executed, err := t.submitAndConfirm(ctx, func() error {
		return t.transport.PlaceOrder(leg.OrderID, t.cfg.Contract, leg)
	})
	if err != nil {
		return OutcomeNotClosed, err
	}

	submitted := drainWorking(t.session.Queue(), id)
	if executed || submitted {
		logs.Infof("position closed: order=%d action=%s qty=%d", id, action, quantity)
		t.metrics.IncOrder(string(action), "closed")
		t.record(id, action, quantity, 0, OutcomeClosed)
		return OutcomeClosed, nil
	}
	logs.Warnf("close not confirmed: order=%d action=%s", id, action)
	t.metrics.IncOrder(string(action), "not_closed")
	t.record(id, action, quantity, 0, OutcomeNotClosed)
	return OutcomeNotClosed, nil
}

func (t *Tracker) record(id int64, action schema.Action, quantity int64, stopPrice float64, outcome Outcome) {
	if t.cfg.Recorder == nil {
		return
	}
	if err := t.cfg.Recorder.Order(time.Now(), id, string(action), quantity, stopPrice, outcome.String()); err != nil {
		logs.Warnf("record order %d: %v", id, err)
	}
}

// CancelOrder cancels a working order by id.
func (t *Tracker) CancelOrder(orderID int64) error {
	return t.transport.CancelOrder(orderID)
}

// submitAndConfirm issues the submission and waits on the execution
// gate. Market orders for liquid instruments usually fill inside the
// bound; a timeout just means "not confirmed yet".
func (t *Tracker) submitAndConfirm(ctx context.Context, submit func() error) (bool, error) {
	_, err := bridge.Call(ctx, t.session.Gates().ExecDetails, t.cfg.ExecTimeout, submit)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bridge.ErrTimedOut):
		t.metrics.IncWaitTimeout(t.session.Gates().ExecDetails.Name())
		return false, nil
	default:
		return false, err
	}
}

func (t *Tracker) freshOrderID(ctx context.Context) (int64, bool) {
	v, err := bridge.Call(ctx, t.session.Gates().NextOrderID, t.cfg.IDTimeout, t.transport.RequestIDs)
	if err != nil {
		if errors.Is(err, bridge.ErrTimedOut) {
			t.metrics.IncWaitTimeout(t.session.Gates().NextOrderID.Name())
		}
		logs.Errorf("order id not received: %v", err)
		return 0, false
	}
	id, ok := v.(int64)
	if !ok || id == 0 {
		logs.Errorf("order id not usable: %v", v)
		return 0, false
	}
	return id, true
}

// drainWorking empties the status queue and reports whether any record
// for orderID shows the gateway accepted it.
func drainWorking(q *bus.StatusQueue, orderID int64) bool {
	working := false
	for _, rec := range q.Drain() {
		logs.Infof("order status: id=%d status=%s filled=%.0f remaining=%.0f perm=%d",
			rec.OrderID, rec.Status, rec.FilledQty, rec.RemainingQty, rec.PermID)
		if rec.OrderID == orderID && rec.Status.Working() {
			working = true
		}
	}
	return working
}
