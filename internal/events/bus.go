// Package events provides the in-process domain event bus.
//
// Delivery is at-least-once and asynchronous: Publish returns once the event
// is handed off to subscriber goroutines, not once they finish. There is no
// persistent replay queue; an event published but not yet handled when the
// process dies is lost. Handlers must therefore be idempotent, which the
// registration saga's compensation path is.
package events

import (
	"context"
	"log/slog"
	"sync"

	"sigil/pkg/requestcontext"
)

// Message is anything routed through the bus. Commands and events share the
// contract; the name keys handler registration.
type Message interface {
	MessageName() string
}

// Handler processes one delivered message. Returned errors are logged, never
// propagated to the publisher.
type Handler func(ctx context.Context, msg Message) error

// Bus dispatches messages to handlers registered per message name.
// Registration happens once at startup; no reflection-based discovery.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	wg       sync.WaitGroup
	logger   *slog.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for a message name. Not safe to call
// concurrently with Publish by design; wiring happens before serving.
func (b *Bus) Subscribe(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], handler)
}

// Publish hands the message off to every subscriber and returns. Each
// subscriber runs in its own goroutine so one failing or panicking handler
// cannot prevent delivery to the others.
//
// The handler context is detached from the publisher's cancellation: a saga
// step must not be abandoned because the request that triggered it ended.
func (b *Bus) Publish(ctx context.Context, msg Message) {
	b.mu.RLock()
	handlers := b.handlers[msg.MessageName()]
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Warn("no handlers registered for message", "message", msg.MessageName())
		return
	}

	detached := context.WithoutCancel(ctx)
	for _, handler := range handlers {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("message handler panicked",
						"message", msg.MessageName(), "panic", r)
				}
			}()
			if err := h(detached, msg); err != nil {
				b.logger.Error("message handler failed",
					"message", msg.MessageName(),
					"request_id", requestcontext.RequestID(detached),
					"error", err)
			}
		}(handler)
	}
}

// Drain blocks until all in-flight handlers finish or the context expires.
// Used during shutdown and by tests to observe settled state.
func (b *Bus) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
