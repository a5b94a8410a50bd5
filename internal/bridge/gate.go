package bridge

import (
	"context"
	"sync"
	"time"
)

// Gate is a single-use resettable signal bridging one asynchronous
// notification into a blocking wait. The dispatcher raises it when the
// terminal notification arrives; the issuer clears it before each use.
// Only one outstanding wait per gate at a time.
type Gate struct {
	name string

	mu    sync.Mutex
	ch    chan struct{}
	set   bool
	value any
}

// NewGate creates a cleared gate. The name is used for logs and metrics.
func NewGate(name string) *Gate {
	return &Gate{name: name, ch: make(chan struct{})}
}

// Name returns the gate's label.
func (g *Gate) Name() string {
	return g.name
}

// Clear resets the gate and discards any previous payload.
func (g *Gate) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.set {
		g.ch = make(chan struct{})
		g.set = false
	}
	g.value = nil
}

// Set raises the gate with an optional payload, waking any waiter.
// Raising an already-set gate only replaces the payload.
func (g *Gate) Set(value any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = value
	if !g.set {
		g.set = true
		close(g.ch)
	}
}

// Value returns the payload stored by the last Set.
func (g *Gate) Value() any {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

// Wait blocks until the gate is raised or the context is done.
func (g *Gate) Wait(ctx context.Context) (any, error) {
	g.mu.Lock()
	ch := g.ch
	g.mu.Unlock()

	select {
	case <-ch:
		return g.Value(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WaitTimeout blocks up to timeout. A zero or negative timeout never
// blocks: it returns the payload if the gate is already raised and
// ErrTimedOut otherwise.
func (g *Gate) WaitTimeout(ctx context.Context, timeout time.Duration) (any, error) {
	g.mu.Lock()
	ch := g.ch
	set := g.set
	g.mu.Unlock()

	if set {
		return g.Value(), nil
	}
	if timeout <= 0 {
		return nil, ErrTimedOut
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ch:
		return g.Value(), nil
	case <-timer.C:
		return nil, ErrTimedOut
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
