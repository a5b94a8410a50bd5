// Package reconcile refreshes local position and working-order state
// from one-shot gateway snapshots. Maps are replaced wholesale on every
// read, never patched incrementally.
package reconcile

import (
	"context"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/bridge"
	"main/internal/gateway"
	"main/internal/obs"
	"main/internal/schema"
)

// Config sets the reconciler's instrument and wait bounds.
type Config struct {
	LocalSymbol       string
	PositionsTimeout  time.Duration
	OpenOrdersTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.PositionsTimeout <= 0 {
		c.PositionsTimeout = 10 * time.Second
	}
	// Bounded because this call runs just before session end and must
	// not stall shutdown.
	if c.OpenOrdersTimeout <= 0 {
		c.OpenOrdersTimeout = 5 * time.Second
	}
	return c
}

// Reconciler owns the locally cached snapshots.
type Reconciler struct {
	transport gateway.Transport
	session   *bridge.Session
	cfg       Config
	metrics   *obs.Metrics

	positions  map[string]schema.PositionEntry
	openOrders map[string]int64
}

// NewReconciler wires a reconciler over the transport and session.
func NewReconciler(transport gateway.Transport, session *bridge.Session, cfg Config, metrics *obs.Metrics) *Reconciler {
	return &Reconciler{
		transport:  transport,
		session:    session,
		cfg:        cfg.withDefaults(),
		metrics:    metrics,
		positions:  make(map[string]schema.PositionEntry),
		openOrders: make(map[string]int64),
	}
}

// SnapshotPositions requests the full position snapshot and replaces
// the local map. The gateway's position feed is push-based, so the
// subscription is cancelled after every read regardless of outcome.
func (r *Reconciler) SnapshotPositions(ctx context.Context) (map[string]schema.PositionEntry, error) {
	v, err := bridge.Call(ctx, r.session.Gates().PositionEnd, r.cfg.PositionsTimeout, r.transport.RequestPositions)
	if cerr := r.transport.CancelPositions(); cerr != nil {
		logs.Warnf("cancel positions: %v", cerr)
	}
	if err != nil {
		r.metrics.IncWaitTimeout(r.session.Gates().PositionEnd.Name())
		return nil, err
	}
	snapshot, _ := v.(map[string]schema.PositionEntry)
	if snapshot == nil {
		snapshot = make(map[string]schema.PositionEntry)
	}
	r.positions = snapshot
	if entry, ok := snapshot[r.cfg.LocalSymbol]; ok {
		r.metrics.SetPositionQty(entry.Quantity)
	} else {
		r.metrics.SetPositionQty(0)
	}
	return r.copyPositions(), nil
}

// SnapshotOpenOrders requests all working orders and replaces the local
// symbol-to-order-id map.
func (r *Reconciler) SnapshotOpenOrders(ctx context.Context) (map[string]int64, error) {
	v, err := bridge.Call(ctx, r.session.Gates().OpenOrderEnd, r.cfg.OpenOrdersTimeout, r.transport.RequestOpenOrders)
	if err != nil {
		r.metrics.IncWaitTimeout(r.session.Gates().OpenOrderEnd.Name())
		return nil, err
	}
	snapshot, _ := v.(map[string]int64)
	if snapshot == nil {
		snapshot = make(map[string]int64)
	}
	r.openOrders = snapshot
	return r.copyOpenOrders(), nil
}

// Position returns the cached entry for the configured instrument.
func (r *Reconciler) Position() (schema.PositionEntry, bool) {
	entry, ok := r.positions[r.cfg.LocalSymbol]
	return entry, ok
}

// OpenOrderID returns the cached working order for the configured
// instrument.
func (r *Reconciler) OpenOrderID() (int64, bool) {
	id, ok := r.openOrders[r.cfg.LocalSymbol]
	return id, ok
}

func (r *Reconciler) copyPositions() map[string]schema.PositionEntry {
	out := make(map[string]schema.PositionEntry, len(r.positions))
	for k, v := range r.positions {
		out[k] = v
	}
	return out
}

func (r *Reconciler) copyOpenOrders() map[string]int64 {
	out := make(map[string]int64, len(r.openOrders))
	for k, v := range r.openOrders {
		out[k] = v
	}
	return out
}
