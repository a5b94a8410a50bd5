// Package strategy drives the open-range-breakout decision loop. The
// machine owns its state exclusively and is stepped once per cadence
// tick by the scheduler; all broker interaction goes through the
// narrow placer/snapshot interfaces.
package strategy

import (
	"context"
	"math"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/obs"
	"main/internal/order"
	"main/internal/schema"
)

// State is the machine's position in the session lifecycle.
type State uint8

const (
	StateAwaitingOpenRange State = iota
	StateArmed
	StateLongEntered
	StateShortEntered
	StateExiting
	StateFlat
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateAwaitingOpenRange:
		return "awaiting_open_range"
	case StateArmed:
		return "armed"
	case StateLongEntered:
		return "long_entered"
	case StateShortEntered:
		return "short_entered"
	case StateExiting:
		return "exiting"
	case StateFlat:
		return "flat"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the session is over for this machine.
func (s State) Terminal() bool { return s == StateFlat || s == StateAborted }

// OrderPlacer is the slice of the lifecycle tracker the machine needs.
type OrderPlacer interface {
	PlaceBracket(ctx context.Context, action schema.Action, quantity int64, stopPrice float64) (order.Outcome, error)
	ClosePosition(ctx context.Context, action schema.Action, quantity int64) (order.Outcome, error)
	CancelOrder(orderID int64) error
}

// Snapshotter is the slice of the reconciler the machine needs.
type Snapshotter interface {
	SnapshotPositions(ctx context.Context) (map[string]schema.PositionEntry, error)
	SnapshotOpenOrders(ctx context.Context) (map[string]int64, error)
}

// Config carries the per-session trading parameters.
type Config struct {
	LocalSymbol string
	Quantity    int64
	Tick        float64
	PriorDayATR float64
	EntryCutoff TimeOfDay
	CloseOut    TimeOfDay
}

// ErrNoCandles means the session has produced no completed bars yet.
// Trading on an empty series is unsafe, so callers abort the run.
var ErrNoCandles = errors.New("no completed candles for current session")

// Machine is the per-instrument state machine. Not safe for concurrent
// use; the scheduler steps it from a single goroutine.
type Machine struct {
	placer  OrderPlacer
	snaps   Snapshotter
	cfg     Config
	metrics *obs.Metrics

	state State
	rng   OpeningRange
	side  schema.Action
}

// NewMachine starts a machine in AwaitingOpenRange.
func NewMachine(placer OrderPlacer, snaps Snapshotter, cfg Config, metrics *obs.Metrics) *Machine {
	return &Machine{
		placer:  placer,
		snaps:   snaps,
		cfg:     cfg,
		metrics: metrics,
		state:   StateAwaitingOpenRange,
	}
}

// State returns the current lifecycle state.
func (m *Machine) State() State { return m.state }

// Range returns the opening range once it has been computed.
func (m *Machine) Range() (OpeningRange, bool) {
	return m.rng, m.state != StateAwaitingOpenRange && m.state != StateAborted
}

// Step advances the machine by one cadence tick over today's completed
// candles. Recoverable conditions are absorbed here; only malformed
// data and missing candles escape to the caller.
func (m *Machine) Step(ctx context.Context, now time.Time, candles []schema.Candle) error {
	if m.state.Terminal() {
		return nil
	}
	if len(candles) == 0 {
		return ErrNoCandles
	}
	close := candles[len(candles)-1].Close

	if m.state == StateAwaitingOpenRange {
		rng, err := NewOpeningRange(candles[0])
		if err != nil {
			m.state = StateAborted
			return err
		}
		m.rng = rng
		m.state = StateArmed
		m.metrics.SetOpenRange(rng.Low, rng.High)
		logs.Infof("opening range locked: low=%.2f high=%.2f", rng.Low, rng.High)
	}

	switch m.state {
	case StateArmed:
		m.stepArmed(ctx, now, close)
	case StateLongEntered, StateShortEntered:
		m.stepEntered(ctx, now, close)
	case StateExiting:
		m.stepExit(ctx)
	}
	return nil
}

func (m *Machine) stepArmed(ctx context.Context, now time.Time, close float64) {
	if m.cfg.CloseOut.Reached(now) {
		logs.Info("close-out reached with no position, session flat")
		m.state = StateFlat
		return
	}
	if m.cfg.EntryCutoff.Reached(now) {
		logs.Info("entry cutoff passed, holding armed without new entries")
		return
	}

	switch {
	case m.rng.BreakoutAbove(close):
		stop := RoundNearest(m.rng.Low-m.cfg.PriorDayATR, m.cfg.Tick)
		m.enter(ctx, schema.ActionBuy, StateLongEntered, "long", close, stop)
	case m.rng.BreakoutBelow(close):
		stop := RoundNearest(m.rng.High+m.cfg.PriorDayATR, m.cfg.Tick)
		m.enter(ctx, schema.ActionSell, StateShortEntered, "short", close, stop)
	}
}

func (m *Machine) enter(ctx context.Context, action schema.Action, next State, side string, close, stop float64) {
	logs.Infof("%s breakout: close=%.2f stop=%.2f", side, close, stop)
	outcome, err := m.placer.PlaceBracket(ctx, action, m.cfg.Quantity, stop)
	if err != nil {
		logs.Warnf("%s bracket not confirmed: %v", side, err)
	}
	if !outcome.Placed() {
		logs.Warnf("%s bracket not placed, staying armed", side)
		return
	}
	m.side = action
	m.state = next
	m.metrics.IncBreakout(side)
	logs.Infof("%s bracket placed, qty=%d", side, m.cfg.Quantity)
}

func (m *Machine) stepEntered(ctx context.Context, now time.Time, close float64) {
	positions, err := m.snaps.SnapshotPositions(ctx)
	if err != nil {
		logs.Warnf("position snapshot failed, retrying next tick: %v", err)
		return
	}
	qty := positions[m.cfg.LocalSymbol].Quantity

	if qty == 0 || !m.sideMatches(qty) {
		// Already closed (or reversed) outside this session: skip the
		// close-order step and go straight to cancelling the stop leg.
		if qty != 0 {
			logs.Warnf("position sign mismatch for %s: qty=%.0f state=%s", m.cfg.LocalSymbol, qty, m.state)
		} else {
			logs.Infof("position already flat for %s, cancelling working orders", m.cfg.LocalSymbol)
		}
		m.state = StateExiting
		m.stepExit(ctx)
		return
	}

	if !m.crossedBack(close) && !m.cfg.CloseOut.Reached(now) {
		return
	}

	closing := m.side.Opposite()
	outcome, err := m.placer.ClosePosition(ctx, closing, int64(math.Abs(qty)))
	if err != nil {
		logs.Warnf("close order not confirmed: %v", err)
	}
	if !outcome.Closed() {
		logs.Warnf("close order not placed, retrying next tick")
		return
	}
	logs.Infof("position close submitted: %s %.0f %s", closing, math.Abs(qty), m.cfg.LocalSymbol)
	m.state = StateExiting
	m.stepExit(ctx)
}

func (m *Machine) stepExit(ctx context.Context) {
	open, err := m.snaps.SnapshotOpenOrders(ctx)
	if err != nil {
		logs.Warnf("open-order snapshot failed, retrying next tick: %v", err)
		return
	}
	if id, ok := open[m.cfg.LocalSymbol]; ok {
		if err := m.placer.CancelOrder(id); err != nil {
			logs.Warnf("cancel order %d: %v", id, err)
		} else {
			logs.Infof("cancelled working order %d for %s", id, m.cfg.LocalSymbol)
		}
	}
	m.state = StateFlat
	logs.Info("session flat")
}

func (m *Machine) sideMatches(qty float64) bool {
	if m.state == StateLongEntered {
		return qty > 0
	}
	return qty < 0
}

func (m *Machine) crossedBack(close float64) bool {
	if m.state == StateLongEntered {
		return m.rng.BreakoutBelow(close)
	}
	return m.rng.BreakoutAbove(close)
}
