// Package event is the in-process domain event bus. Order services publish
// events after a successful commit; subscribers such as the dispatch status
// reporter react to them.
package event

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
	"go.uber.org/zap"
)

const defaultHandlerTimeout = 30 * time.Second

// ErrBusStopped is returned by Publish after Stop.
var ErrBusStopped = errors.New("event bus stopped")

// InMemoryEventBus implements shared.EventBus with in-memory pub/sub
type InMemoryEventBus struct {
	mu       sync.RWMutex
	handlers map[string][]shared.EventHandler // eventType -> handlers
	wildcard []shared.EventHandler            // handlers for all events

	async          bool
	handlerTimeout time.Duration
	logger         *zap.Logger
	stopped        atomic.Bool
	wg             sync.WaitGroup
}

// Option configures the bus
type Option func(*InMemoryEventBus)

// WithAsync runs each handler on its own goroutine so that Publish returns
// immediately. Handlers get a context detached from the publisher's
// cancellation and bounded by timeout. Stop waits for them.
func WithAsync(timeout time.Duration) Option {
	return func(b *InMemoryEventBus) {
		b.async = true
		if timeout > 0 {
			b.handlerTimeout = timeout
		}
	}
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...Option) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &InMemoryEventBus{
		handlers:       make(map[string][]shared.EventHandler),
		handlerTimeout: defaultHandlerTimeout,
		logger:         logger.Named("event_bus"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers events to every matching handler. Handler failures are
// logged and never returned; the publisher has already committed.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if b.stopped.Load() {
		return ErrBusStopped
	}
	for _, event := range events {
		for _, handler := range b.handlersFor(event.EventType()) {
			if !b.async {
				b.dispatchToHandler(ctx, handler, event)
				continue
			}
			b.wg.Add(1)
			go func(h shared.EventHandler, ev shared.DomainEvent) {
				defer b.wg.Done()
				hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.handlerTimeout)
				defer cancel()
				b.dispatchToHandler(hctx, h, ev)
			}(handler, event)
		}
	}
	return nil
}

// Subscribe registers a handler. Without explicit event types the handler's
// own EventTypes are used; an empty list subscribes to everything.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}

	b.mu.Lock()
	if len(eventTypes) == 0 {
		b.wildcard = append(b.wildcard, handler)
	}
	for _, eventType := range eventTypes {
		b.handlers[eventType] = append(b.handlers[eventType], handler)
	}
	b.mu.Unlock()

	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler from every event type
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	isTarget := func(h shared.EventHandler) bool { return h == handler }
	b.wildcard = slices.DeleteFunc(b.wildcard, isTarget)
	for eventType, handlers := range b.handlers {
		b.handlers[eventType] = slices.DeleteFunc(handlers, isTarget)
		if len(b.handlers[eventType]) == 0 {
			delete(b.handlers, eventType)
		}
	}
}

// Start marks the bus as accepting events
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.stopped.Store(false)
	b.logger.Info("event bus started", zap.Bool("async", b.async))
	return nil
}

// Stop rejects new events and waits for in-flight async handlers until ctx
// expires.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.stopped.Store(true)

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		b.logger.Warn("event bus stop timed out with handlers in flight")
		return ctx.Err()
	}
}

func (b *InMemoryEventBus) handlersFor(eventType string) []shared.EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	typed := b.handlers[eventType]
	result := make([]shared.EventHandler, 0, len(typed)+len(b.wildcard))
	result = append(result, typed...)
	return append(result, b.wildcard...)
}

// dispatchToHandler runs one handler, logging errors and recovering panics
func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.String("aggregate_id", event.AggregateID().String()),
				zap.Any("panic", r),
			)
		}
	}()

	if err := handler.Handle(ctx, event); err != nil {
		b.logger.Error("handler failed to process event",
			zap.String("event_type", event.EventType()),
			zap.String("event_id", event.EventID().String()),
			zap.Error(err),
		)
	}
}

// Ensure InMemoryEventBus implements EventBus
var _ shared.EventBus = (*InMemoryEventBus)(nil)
