package bus

import (
	"sync"

	"main/internal/schema"
)

// Handler consumes a notification. Handlers must not block: they run on
// the transport's receive goroutine.
type Handler func(schema.Notification)

// Bus is the process-wide delivery point for typed gateway notifications.
// The transport publishes, subscribed handlers (the bridge dispatcher,
// metrics) consume.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for every published notification.
func (b *Bus) Subscribe(h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers a notification to all handlers in subscription order.
func (b *Bus) Publish(n schema.Notification) {
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()
	for _, h := range handlers {
		h(n)
	}
}
