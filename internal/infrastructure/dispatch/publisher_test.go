package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/integration"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/order"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
	deadline bool
}

type fakeChannel struct {
	mu         sync.Mutex
	declared   []string
	kind       string
	messages   []published
	publishErr error
	declareErr error
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.declareErr != nil {
		return f.declareErr
	}
	f.declared = append(f.declared, name)
	f.kind = kind
	return nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	_, hasDeadline := ctx.Deadline()
	f.messages = append(f.messages, published{exchange: exchange, key: key, msg: msg, deadline: hasDeadline})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestNewPublisher_DeclaresTopicExchange(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewPublisher(ch, "dispatch", 0, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"dispatch"}, ch.declared)
	assert.Equal(t, amqp.ExchangeTopic, ch.kind)
	assert.Equal(t, defaultPublishTimeout, p.timeout)

	_, err = NewPublisher(&fakeChannel{declareErr: errors.New("access refused")}, "dispatch", time.Second, nil)
	assert.Error(t, err)
	_, err = NewPublisher(&fakeChannel{}, "", time.Second, nil)
	assert.Error(t, err)
}

func TestPublisher_RoutingKeys(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewPublisher(ch, "dispatch", time.Second, nil)
	require.NoError(t, err)
	ctx := context.Background()
	orderID := uuid.New()

	require.NoError(t, p.RequestDriverSearch(ctx, integration.DriverSearchRequest{
		OrderID: orderID,
		Number:  "ORD-1",
		Dropoff: integration.Location{Address: "Abay 1", City: "Almaty"},
	}))
	require.NoError(t, p.ReportStatus(ctx, integration.StatusReport{
		OrderID: orderID,
		Status:  order.StatusDriverAssigned,
		Driver:  &order.DriverInfo{Name: "Aidar", Phone: "+7700", Plate: "123ABC02"},
	}))
	require.NoError(t, p.UpdateLiveLocation(ctx, orderID, 43.25, 76.95))

	require.Len(t, ch.messages, 3)
	assert.Equal(t, "driver.search", ch.messages[0].key)
	assert.Equal(t, "driver.status.driver_assigned", ch.messages[1].key)
	assert.Equal(t, "driver.location", ch.messages[2].key)

	for _, m := range ch.messages {
		assert.Equal(t, "dispatch", m.exchange)
		assert.Equal(t, amqp.Persistent, m.msg.DeliveryMode)
		assert.Equal(t, "application/json", m.msg.ContentType)
		assert.Equal(t, orderID.String(), m.msg.CorrelationId)
		assert.NotEmpty(t, m.msg.MessageId)
		assert.True(t, m.deadline, "publish must carry a timeout")
	}

	var loc LocationUpdate
	require.NoError(t, json.Unmarshal(ch.messages[2].msg.Body, &loc))
	assert.Equal(t, orderID, loc.OrderID)
	assert.Equal(t, 43.25, loc.Latitude)
}

func TestPublisher_FailureIsUnavailable(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	ch := &fakeChannel{publishErr: amqp.ErrClosed}
	p, err := NewPublisher(ch, "dispatch", time.Second, zap.New(core))
	require.NoError(t, err)

	err = p.RequestDriverSearch(context.Background(), integration.DriverSearchRequest{OrderID: uuid.New()})

	assert.ErrorIs(t, err, shared.ErrIntegrationUnavailable)
	assert.True(t, integration.IsRetryable(err))
	assert.Equal(t, 1, logs.FilterMessage("Dispatch publish failed").Len())
}

func TestPublisher_Close(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewPublisher(ch, "dispatch", time.Second, nil)
	require.NoError(t, err)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestLogDispatcher(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	d := NewLogDispatcher(zap.New(core))
	ctx := context.Background()

	assert.NoError(t, d.RequestDriverSearch(ctx, integration.DriverSearchRequest{OrderID: uuid.New()}))
	assert.NoError(t, d.ReportStatus(ctx, integration.StatusReport{Status: order.StatusInTransit}))
	assert.NoError(t, d.UpdateLiveLocation(ctx, uuid.New(), 1, 2))
	assert.Equal(t, 3, logs.Len())
}

func TestDial_RequiresURL(t *testing.T) {
	_, err := Dial(config.DispatchConfig{Exchange: "dispatch"}, nil)
	assert.Error(t, err)
}
