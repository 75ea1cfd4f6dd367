// Package order holds the workflow orchestrator: every use case that moves
// an order through its lifecycle, together with the external call each
// transition depends on.
//
// The orchestrator is the only writer of order state. Each operation loads
// the order, validates the transition before any network call, performs the
// call (with retry for transient failures only) and commits the transition
// with a version check, so two racing requests can never both win.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/catalog"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/integration"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/order"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/partner"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/config"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Default settings
const (
	DefaultCallTimeout   = 30 * time.Second
	DefaultDeliveryTTL   = 72 * time.Hour
	DefaultRetryAttempts = 3
	defaultRetryInitial  = 500 * time.Millisecond
	defaultRetryMaxWait  = 5 * time.Second
	deliveryKeyPrefix    = "webhook:"
	contractTitle        = "Supply contract"
)

// Collaborators are the repositories and adapters the orchestrator drives.
// Deliveries may be nil, in which case webhook dedup relies on order state
// alone.
type Collaborators struct {
	Orders     order.Repository
	Products   catalog.ProductRepository
	Requisites partner.RequisiteRepository
	Signature  integration.SignatureProvider
	ERP        integration.ERPGateway
	Dispatch   integration.Dispatcher
	Renderer   integration.DocumentRenderer
	Artifacts  integration.ArtifactStorage
	Deliveries shared.IdempotencyStore
}

// Settings are the tunables of the orchestrator
type Settings struct {
	// SignerID is the company signer registered with the signature provider
	SignerID string
	// Pickup is sent to dispatch as the pickup point of every driver search
	Pickup integration.Location
	Retry  RetryPolicy
	// CallTimeout bounds every single external call attempt
	CallTimeout time.Duration
	// DeliveryTTL is how long a webhook delivery id is remembered
	DeliveryTTL time.Duration
}

// SettingsFromConfig derives orchestrator settings from application config
func SettingsFromConfig(cfg *config.Config) Settings {
	s := Settings{
		SignerID: cfg.Signature.SignerID,
		Pickup: integration.Location{
			Address:   cfg.Dispatch.PickupAddress,
			Latitude:  cfg.Dispatch.PickupLatitude,
			Longitude: cfg.Dispatch.PickupLongitude,
		},
		Retry: RetryPolicy{
			Attempts:        cfg.Orchestrator.RetryAttempts,
			InitialInterval: cfg.Orchestrator.RetryInitialInterval,
			MaxInterval:     cfg.Orchestrator.RetryMaxInterval,
		},
		CallTimeout: cfg.Orchestrator.ExternalCallTimeout,
	}
	return s
}

func (s Settings) withDefaults() Settings {
	if s.CallTimeout <= 0 {
		s.CallTimeout = DefaultCallTimeout
	}
	if s.DeliveryTTL <= 0 {
		s.DeliveryTTL = DefaultDeliveryTTL
	}
	s.Retry = s.Retry.withDefaults()
	return s
}

// Service is the workflow orchestrator
type Service struct {
	orders     order.Repository
	products   catalog.ProductRepository
	requisites partner.RequisiteRepository
	signature  integration.SignatureProvider
	erp        integration.ERPGateway
	dispatch   integration.Dispatcher
	renderer   integration.DocumentRenderer
	artifacts  integration.ArtifactStorage
	deliveries shared.IdempotencyStore

	settings       Settings
	eventPublisher shared.EventPublisher
	metrics        *telemetry.Metrics
	logger         *zap.Logger
	now            func() time.Time
}

// NewService creates the orchestrator
func NewService(c Collaborators, settings Settings, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		orders:     c.Orders,
		products:   c.Products,
		requisites: c.Requisites,
		signature:  c.Signature,
		erp:        c.ERP,
		dispatch:   c.Dispatch,
		renderer:   c.Renderer,
		artifacts:  c.Artifacts,
		deliveries: c.Deliveries,
		settings:   settings.withDefaults(),
		logger:     logger.Named("orchestrator"),
		now:        time.Now,
	}
}

// SetEventPublisher sets the publisher for committed order events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics enables transition and integration call metrics
func (s *Service) SetMetrics(m *telemetry.Metrics) {
	s.metrics = m
}

// Actor is the caller of a read operation. Staff see every order; clients
// only their own.
type Actor struct {
	UserID uuid.UUID
	Staff  bool
}

func (a Actor) canSee(o *order.Order) bool {
	return a.Staff || o.IsOwnedBy(a.UserID)
}

// loadOwned returns the order if userID placed it. Foreign orders are
// reported as missing so their existence does not leak.
func (s *Service) loadOwned(ctx context.Context, userID, orderID uuid.UUID) (*order.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.IsOwnedBy(userID) {
		return nil, order.ErrOrderNotFound
	}
	return o, nil
}

// commit writes o under its version check and then publishes the events it
// raised. Events are only published after the write succeeded.
func (s *Service) commit(ctx context.Context, o *order.Order) error {
	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		o.ClearDomainEvents()
		return err
	}
	s.publish(ctx, o)
	return nil
}

func (s *Service) publish(ctx context.Context, o *order.Order) {
	events := o.GetDomainEvents()
	o.ClearDomainEvents()
	if len(events) == 0 {
		return
	}
	for _, ev := range events {
		if changed, ok := ev.(*order.StatusChangedEvent); ok {
			s.metrics.RecordTransition(ctx, string(changed.Trigger), changed.From.String(), changed.To.String())
			s.logger.Info("Order transitioned",
				zap.String("order_id", changed.OrderID.String()),
				zap.String("number", changed.Number),
				zap.String("event", string(changed.Trigger)),
				zap.String("from", changed.From.String()),
				zap.String("to", changed.To.String()),
			)
		}
	}
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		// The transition is committed; subscribers are notifications only.
		s.logger.Error("Failed to publish order events",
			zap.String("order_id", o.ID.String()),
			zap.Error(err),
		)
	}
}

// detached keeps request values (trace, logger) but drops cancellation, so a
// result received from an external system is still recorded after the
// client went away.
func detached(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// clientError converts an integration failure into its client-facing
// domain error and logs the upstream detail for operators.
func (s *Service) clientError(o *order.Order, err error) error {
	var ie *integration.Error
	if !errors.As(err, &ie) {
		return err
	}
	fields := []zap.Field{
		zap.String("system", string(ie.System)),
		zap.String("step", ie.Step),
		zap.String("kind", string(ie.Kind)),
		zap.Int("status_code", ie.StatusCode),
		zap.Error(ie),
	}
	if o != nil {
		fields = append(fields, zap.String("order_id", o.ID.String()), zap.String("status", o.Status().String()))
	}
	if ie.Body != "" {
		fields = append(fields, zap.String("upstream_body", ie.Body))
	}
	s.logger.Error("Integration call failed", fields...)
	return ie.DomainError()
}
