package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerProvider owns the OTLP log pipeline.
type LoggerProvider struct {
	provider *sdklog.LoggerProvider
	name     string
}

// NewLoggerProvider installs a global OTLP/gRPC logger provider.
func NewLoggerProvider(ctx context.Context, cfg Config, logger *zap.Logger) (*LoggerProvider, error) {
	lp := &LoggerProvider{name: cfg.ServiceName}
	if !cfg.Enabled {
		logger.Info("Log export disabled")
		return lp, nil
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP logs exporter: %w", err)
	}

	res, err := newResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	lp.provider = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	global.SetLoggerProvider(lp.provider)
	return lp, nil
}

// Bridge returns a logger that writes to base and also exports every entry
// at or above base's level through OTLP. With export disabled it returns
// base unchanged.
func (lp *LoggerProvider) Bridge(base *zap.Logger) *zap.Logger {
	if lp == nil || lp.provider == nil {
		return base
	}
	otelCore := otelzap.NewCore(lp.name, otelzap.WithLoggerProvider(lp.provider))
	return base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, &levelGate{Core: otelCore, enabler: c})
	}))
}

// levelGate applies the base core's level to the bridge core.
type levelGate struct {
	zapcore.Core
	enabler zapcore.LevelEnabler
}

func (g *levelGate) Enabled(lvl zapcore.Level) bool {
	return g.enabler.Enabled(lvl) && g.Core.Enabled(lvl)
}

func (g *levelGate) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !g.enabler.Enabled(e.Level) {
		return ce
	}
	return g.Core.Check(e, ce)
}

func (g *levelGate) With(fields []zapcore.Field) zapcore.Core {
	return &levelGate{Core: g.Core.With(fields), enabler: g.enabler}
}

// Shutdown flushes pending records.
func (lp *LoggerProvider) Shutdown(ctx context.Context) error {
	if lp.provider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return lp.provider.Shutdown(ctx)
}
