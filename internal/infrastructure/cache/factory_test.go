package cache

import (
	"context"
	"testing"

	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewCoordination_RedisDisabled(t *testing.T) {
	c, err := NewCoordination(context.Background(), config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	defer c.Close()

	assert.False(t, c.Distributed)
	assert.IsType(t, &InMemoryIdempotencyStore{}, c.Idempotency)
	assert.IsType(t, &InMemoryLocker{}, c.Locker)
}

func TestNewCoordination_FallbackWhenUnreachable(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	cfg := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

	c, err := NewCoordination(context.Background(), cfg, WithLogger(zap.New(core)))
	require.NoError(t, err)
	defer c.Close()

	assert.False(t, c.Distributed)
	assert.Equal(t, 1, logs.FilterMessageSnippet("falling back").Len())
}

func TestNewCoordination_NoFallback(t *testing.T) {
	cfg := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

	_, err := NewCoordination(context.Background(), cfg, WithInMemoryFallback(false))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis required")
}
