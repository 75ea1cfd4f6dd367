package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/order"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func orderEvent(eventType string) shared.DomainEvent {
	e := shared.NewBaseDomainEvent(eventType, "Order", uuid.New())
	return &e
}

// recorder is a handler that remembers what it saw
type recorder struct {
	types  []string
	err    error
	panics bool
	gate   chan struct{}

	mu   sync.Mutex
	seen []shared.DomainEvent
}

func (r *recorder) Handle(_ context.Context, event shared.DomainEvent) error {
	if r.gate != nil {
		<-r.gate
	}
	if r.panics {
		panic("dispatch exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, event)
	return r.err
}

func (r *recorder) EventTypes() []string { return r.types }

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func TestInMemoryEventBus_Routing(t *testing.T) {
	tests := []struct {
		name      string
		subscribe []string
		publish   []string
		want      int
	}{
		{"matching type", []string{order.EventTypeStatusChanged}, []string{order.EventTypeStatusChanged}, 1},
		{"batch of events", []string{order.EventTypeStatusChanged}, []string{order.EventTypeStatusChanged, order.EventTypeStatusChanged}, 2},
		{"other type ignored", []string{order.EventTypePaymentVerified}, []string{order.EventTypeStatusChanged}, 0},
		{"several types", []string{order.EventTypeStatusChanged, order.EventTypePaymentVerified}, []string{order.EventTypePaymentVerified, order.EventTypeStatusChanged}, 2},
		{"wildcard", nil, []string{order.EventTypeStatusChanged, order.EventTypePaymentVerified}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := NewInMemoryEventBus(nil)
			h := &recorder{types: tt.subscribe}
			bus.Subscribe(h, tt.subscribe...)

			events := make([]shared.DomainEvent, 0, len(tt.publish))
			for _, et := range tt.publish {
				events = append(events, orderEvent(et))
			}

			require.NoError(t, bus.Publish(context.Background(), events...))
			assert.Equal(t, tt.want, h.count())
		})
	}
}

func TestInMemoryEventBus_FailingHandlersAreIsolated(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	bus := NewInMemoryEventBus(zap.New(core))

	failing := &recorder{err: errors.New("dispatcher unavailable")}
	panicking := &recorder{panics: true}
	healthy := &recorder{}
	for _, h := range []*recorder{failing, panicking, healthy} {
		bus.Subscribe(h, order.EventTypeStatusChanged)
	}

	err := bus.Publish(context.Background(), orderEvent(order.EventTypeStatusChanged))

	require.NoError(t, err, "handler failures never reach the publisher")
	assert.Equal(t, 1, failing.count())
	assert.Equal(t, 1, healthy.count())
	assert.GreaterOrEqual(t, logs.Len(), 2)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := &recorder{}
	bus.Subscribe(h, order.EventTypeStatusChanged)

	require.NoError(t, bus.Publish(context.Background(), orderEvent(order.EventTypeStatusChanged)))
	bus.Unsubscribe(h)
	require.NoError(t, bus.Publish(context.Background(), orderEvent(order.EventTypeStatusChanged)))

	assert.Equal(t, 1, h.count())
}

func TestInMemoryEventBus_SyncStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(ctx))

	assert.ErrorIs(t, bus.Publish(context.Background(), orderEvent(order.EventTypeStatusChanged)), ErrBusStopped)
}

func TestInMemoryEventBus_Async(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), WithAsync(time.Second))
	h := &recorder{gate: make(chan struct{})}
	bus.Subscribe(h)

	ctx, cancelRequest := context.WithCancel(context.Background())
	require.NoError(t, bus.Publish(ctx, orderEvent(order.EventTypeStatusChanged)))
	// the HTTP request that committed the transition is already gone
	cancelRequest()
	assert.Zero(t, h.count(), "publish must not wait for handlers")

	close(h.gate)
	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(stopCtx))
	assert.Equal(t, 1, h.count())
}

func TestInMemoryEventBus_StopTimesOut(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), WithAsync(time.Second))
	h := &recorder{gate: make(chan struct{})}
	defer close(h.gate)
	bus.Subscribe(h)

	require.NoError(t, bus.Publish(context.Background(), orderEvent(order.EventTypeStatusChanged)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Stop(ctx), context.DeadlineExceeded)
}
