package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateSetBeforeWait(t *testing.T) {
	g := NewGate("test")
	g.Set(int64(42))

	v, err := g.WaitTimeout(t.Context(), time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestGateZeroTimeoutNeverBlocks(t *testing.T) {
	g := NewGate("test")

	start := time.Now()
	_, err := g.WaitTimeout(t.Context(), 0)
	require.ErrorIs(t, err, ErrTimedOut)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestGateTimeout(t *testing.T) {
	g := NewGate("test")

	_, err := g.WaitTimeout(t.Context(), 10*time.Millisecond)
	require.ErrorIs(t, err, ErrTimedOut)
}

func TestGateClearResets(t *testing.T) {
	g := NewGate("test")
	g.Set("first")
	g.Clear()

	_, err := g.WaitTimeout(t.Context(), 0)
	require.ErrorIs(t, err, ErrTimedOut)

	g.Set("second")
	v, err := g.WaitTimeout(t.Context(), time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "second", v)
}

func TestGateConcurrentSet(t *testing.T) {
	g := NewGate("test")

	go func() {
		time.Sleep(5 * time.Millisecond)
		g.Set(int64(7))
	}()

	v, err := g.WaitTimeout(t.Context(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
}

func TestGateWaitHonorsContext(t *testing.T) {
	g := NewGate("test")
	ctx, cancel := context.WithCancel(t.Context())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err := g.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCallIssuesBeforeWaiting(t *testing.T) {
	g := NewGate("test")
	issued := false

	_, err := Call(t.Context(), g, 0, func() error {
		issued = true
		// Simulate the terminal notification racing in before the wait.
		g.Set("payload")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, issued)
}

func TestCallClearsStalePayload(t *testing.T) {
	g := NewGate("test")
	g.Set("stale")

	_, err := Call(t.Context(), g, 0, func() error { return nil })
	require.ErrorIs(t, err, ErrTimedOut)
}
