// Package dispatch publishes driver search requests, status reports and
// live locations to the logistics broker over AMQP.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/integration"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Routing keys on the dispatch topic exchange.
const (
	RoutingKeyDriverSearch   = "driver.search"
	RoutingKeyStatusPrefix   = "driver.status."
	RoutingKeyDriverLocation = "driver.location"
)

// Step names reported on integration errors.
const (
	StepDriverSearch = "driver_search"
	StepReportStatus = "report_status"
	StepLiveLocation = "live_location"
)

const defaultPublishTimeout = 5 * time.Second

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// LocationUpdate is the body published on RoutingKeyDriverLocation.
type LocationUpdate struct {
	OrderID    uuid.UUID `json:"order_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Publisher implements integration.Dispatcher on a topic exchange
type Publisher struct {
	mu       sync.Mutex
	channel  Channel
	conn     *amqp.Connection
	exchange string
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// Dial connects to the broker, opens a channel and declares the exchange
func Dial(cfg config.DispatchConfig, logger *zap.Logger) (*Publisher, error) {
	if cfg.AMQPURL == "" {
		return nil, errors.New("dispatch: amqp_url is required")
	}
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, fmt.Errorf("dispatch: failed to connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("dispatch: failed to open channel: %w", err)
	}
	p, err := NewPublisher(ch, cfg.Exchange, cfg.PublishTimeout, logger)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewPublisher declares a durable topic exchange on ch and returns a
// publisher bound to it.
func NewPublisher(ch Channel, exchange string, timeout time.Duration, logger *zap.Logger) (*Publisher, error) {
	if exchange == "" {
		return nil, errors.New("dispatch: exchange is required")
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("dispatch: failed to declare exchange %q: %w", exchange, err)
	}
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		channel:  ch,
		exchange: exchange,
		timeout:  timeout,
		logger:   logger.Named("dispatch"),
		now:      time.Now,
	}, nil
}

// RequestDriverSearch publishes a search request for a paid order
func (p *Publisher) RequestDriverSearch(ctx context.Context, req integration.DriverSearchRequest) error {
	return p.publish(ctx, StepDriverSearch, RoutingKeyDriverSearch, req.OrderID, req)
}

// ReportStatus publishes a committed driver-phase status change
func (p *Publisher) ReportStatus(ctx context.Context, report integration.StatusReport) error {
	return p.publish(ctx, StepReportStatus, RoutingKeyStatusPrefix+report.Status.String(), report.OrderID, report)
}

// UpdateLiveLocation publishes the latest vehicle coordinates
func (p *Publisher) UpdateLiveLocation(ctx context.Context, orderID uuid.UUID, lat, lng float64) error {
	update := LocationUpdate{OrderID: orderID, Latitude: lat, Longitude: lng, RecordedAt: p.now().UTC()}
	return p.publish(ctx, StepLiveLocation, RoutingKeyDriverLocation, orderID, update)
}

func (p *Publisher) publish(ctx context.Context, step, key string, orderID uuid.UUID, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("dispatch: failed to marshal %s message: %w", step, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		MessageId:     uuid.NewString(),
		CorrelationId: orderID.String(),
		Timestamp:     p.now().UTC(),
		Body:          payload,
	}

	p.mu.Lock()
	err = p.channel.PublishWithContext(ctx, p.exchange, key, false, false, msg)
	p.mu.Unlock()
	if err != nil {
		p.logger.Warn("Dispatch publish failed",
			zap.String("routing_key", key),
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
		return integration.FromTransport(integration.SystemDispatch, step, err)
	}

	p.logger.Debug("Dispatch message published",
		zap.String("routing_key", key),
		zap.String("order_id", orderID.String()),
	)
	return nil
}

// Close closes the channel and, when dialled, the connection
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.channel.Close()
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}
	return err
}

var _ integration.Dispatcher = (*Publisher)(nil)
