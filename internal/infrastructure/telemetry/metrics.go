package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// MeterProvider owns the SDK meter provider and its shutdown.
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
}

// NewMeterProvider installs a global OTLP/gRPC meter provider with a
// periodic reader.
func NewMeterProvider(ctx context.Context, cfg Config, interval time.Duration, logger *zap.Logger) (*MeterProvider, error) {
	mp := &MeterProvider{}
	if !cfg.Enabled {
		logger.Info("Metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}

	res, err := newResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	mp.provider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp.provider)

	logger.Info("Metrics enabled", zap.Duration("export_interval", interval))
	return mp, nil
}

// Meter returns a meter from the installed provider, or the global one.
func (mp *MeterProvider) Meter(name string) metric.Meter {
	if mp == nil || mp.provider == nil {
		return otel.Meter(name)
	}
	return mp.provider.Meter(name)
}

// Shutdown flushes pending measurements.
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return mp.provider.Shutdown(ctx)
}

// Metric attribute keys.
const (
	MetricAttrEvent   = attribute.Key("event")
	MetricAttrFrom    = attribute.Key("from")
	MetricAttrTo      = attribute.Key("to")
	MetricAttrSystem  = attribute.Key("system")
	MetricAttrStep    = attribute.Key("step")
	MetricAttrOutcome = attribute.Key("outcome")
)

// Metrics holds the business instruments. A nil *Metrics records nothing,
// so services can take it as an optional dependency.
type Metrics struct {
	transitions      metric.Int64Counter
	integrationCalls metric.Int64Counter
	syncDuration     metric.Float64Histogram
	syncDropped      metric.Int64Counter
}

// NewMetrics registers the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	transitions, err := meter.Int64Counter("orders.transitions",
		metric.WithDescription("Committed order state transitions"),
		metric.WithUnit("{transition}"))
	if err != nil {
		return nil, fmt.Errorf("orders.transitions: %w", err)
	}
	calls, err := meter.Int64Counter("integration.calls",
		metric.WithDescription("Outbound integration calls by outcome"),
		metric.WithUnit("{call}"))
	if err != nil {
		return nil, fmt.Errorf("integration.calls: %w", err)
	}
	duration, err := meter.Float64Histogram("stock.sync.duration",
		metric.WithDescription("Warehouse stock sync duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60))
	if err != nil {
		return nil, fmt.Errorf("stock.sync.duration: %w", err)
	}
	dropped, err := meter.Int64Counter("stock.sync.dropped",
		metric.WithDescription("Sync requests dropped because one was already in flight"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, fmt.Errorf("stock.sync.dropped: %w", err)
	}
	return &Metrics{
		transitions:      transitions,
		integrationCalls: calls,
		syncDuration:     duration,
		syncDropped:      dropped,
	}, nil
}

// RecordTransition counts a committed transition.
func (m *Metrics) RecordTransition(ctx context.Context, event, from, to string) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		MetricAttrEvent.String(event),
		MetricAttrFrom.String(from),
		MetricAttrTo.String(to),
	))
}

// RecordIntegrationCall counts an outbound call; outcome is "ok",
// "unavailable" or "rejected".
func (m *Metrics) RecordIntegrationCall(ctx context.Context, system, step, outcome string) {
	if m == nil {
		return
	}
	m.integrationCalls.Add(ctx, 1, metric.WithAttributes(
		MetricAttrSystem.String(system),
		MetricAttrStep.String(step),
		MetricAttrOutcome.String(outcome),
	))
}

// RecordSync records one completed or failed warehouse sync.
func (m *Metrics) RecordSync(ctx context.Context, elapsed time.Duration, outcome string) {
	if m == nil {
		return
	}
	m.syncDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(MetricAttrOutcome.String(outcome)))
}

// RecordSyncDropped counts a sync request dropped on lock contention.
func (m *Metrics) RecordSyncDropped(ctx context.Context) {
	if m == nil {
		return
	}
	m.syncDropped.Add(ctx, 1)
}
