package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Coordination bundles the idempotency store and the locker built from one
// backend, plus the client they share.
type Coordination struct {
	Idempotency shared.IdempotencyStore
	Locker      shared.Locker
	// Distributed is false when the in-memory fallback is in use.
	Distributed bool
	client      *redis.Client
}

// Close releases the stores and the Redis client
func (c *Coordination) Close() error {
	errs := []error{c.Idempotency.Close(), c.Locker.Close()}
	if c.client != nil {
		errs = append(errs, c.client.Close())
	}
	return errors.Join(errs...)
}

// Ping checks the shared Redis client. The in-memory fallback is always up.
func (c *Coordination) Ping(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// FactoryOption configures NewCoordination
type FactoryOption func(*factory)

type factory struct {
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// WithLogger sets the logger used to report the chosen backend
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *factory) { f.logger = logger }
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// in-memory stores. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *factory) { f.allowInMemoryFallback = allow }
}

// NewCoordination builds Redis-backed stores when Redis is enabled and
// reachable, otherwise in-memory stores.
func NewCoordination(ctx context.Context, cfg config.RedisConfig, opts ...FactoryOption) (*Coordination, error) {
	f := &factory{logger: zap.NewNop(), allowInMemoryFallback: true}
	for _, opt := range opts {
		opt(f)
	}

	if cfg.Enabled {
		client, err := NewRedisClient(ctx, cfg)
		if err == nil {
			f.logger.Info("Using Redis for idempotency and locks", zap.String("addr", cfg.Addr()))
			return &Coordination{
				Idempotency: NewRedisIdempotencyStore(client, DefaultDeliveryPrefix),
				Locker:      NewRedisLocker(client, DefaultLockPrefix),
				Distributed: true,
				client:      client,
			}, nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis required but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory idempotency and locks. "+
			"Replicas will not share webhook deduplication or sync locks.",
			zap.Error(err),
		)
	}

	return &Coordination{
		Idempotency: NewInMemoryIdempotencyStore(),
		Locker:      NewInMemoryLocker(),
	}, nil
}
