package bus

import (
	"sync/atomic"

	"github.com/yanun0323/errors"

	"main/internal/schema"
)

var (
	ErrQueueFull   = errors.New("status queue full")
	ErrQueueClosed = errors.New("status queue closed")
)

// StatusQueue is a bounded, non-blocking queue for order-status records.
// The transport goroutine publishes, the strategy side drains between
// ticks; the two never block each other.
type StatusQueue struct {
	ch     chan schema.OrderStatusRecord
	closed uint32
}

// NewStatusQueue allocates a queue with the given capacity.
func NewStatusQueue(capacity int) *StatusQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &StatusQueue{ch: make(chan schema.OrderStatusRecord, capacity)}
}

// TryPublish enqueues a record without blocking.
func (q *StatusQueue) TryPublish(rec schema.OrderStatusRecord) error {
	if atomic.LoadUint32(&q.closed) != 0 {
		return ErrQueueClosed
	}
	select {
	case q.ch <- rec:
		return nil
	default:
		return ErrQueueFull
	}
}

// Drain removes and returns all pending records in FIFO order without
// blocking.
func (q *StatusQueue) Drain() []schema.OrderStatusRecord {
	var out []schema.OrderStatusRecord
	for {
		select {
		case rec, ok := <-q.ch:
			if !ok {
				return out
			}
			out = append(out, rec)
		default:
			return out
		}
	}
}

// Clear discards all pending records. Callers clear before issuing an
// order so the next drain only sees records for that order.
func (q *StatusQueue) Clear() {
	for {
		select {
		case _, ok := <-q.ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// Len returns the number of pending records.
func (q *StatusQueue) Len() int {
	return len(q.ch)
}

// Close stops the queue from accepting new records.
func (q *StatusQueue) Close() {
	if atomic.CompareAndSwapUint32(&q.closed, 0, 1) {
		close(q.ch)
	}
}
