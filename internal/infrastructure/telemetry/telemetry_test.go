package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func TestProviders_DisabledAreNoop(t *testing.T) {
	ctx := context.Background()
	log := zap.NewNop()

	tp, err := NewTracerProvider(ctx, Config{}, log)
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	tp.EnableSpanProfiles()
	assert.NoError(t, tp.Shutdown(ctx))

	mp, err := NewMeterProvider(ctx, Config{}, time.Minute, log)
	require.NoError(t, err)
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(ctx))

	lp, err := NewLoggerProvider(ctx, Config{}, log)
	require.NoError(t, err)
	assert.Same(t, log, lp.Bridge(log))
	assert.NoError(t, lp.Shutdown(ctx))

	p, err := NewProfiler(ProfilerConfig{}, log)
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_RequiresServer(t *testing.T) {
	_, err := NewProfiler(ProfilerConfig{Enabled: true}, zap.NewNop())
	require.Error(t, err)
}

func TestSamplerFor(t *testing.T) {
	assert.Contains(t, samplerFor(1).Description(), "AlwaysOnSampler")
	assert.Equal(t, "AlwaysOffSampler", samplerFor(0).Description())
	assert.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased")
}

func TestStartSpanAndEnd(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	call := func() (err error) {
		_, span := StartClientSpan(context.Background(), "erp", "push_payment")
		defer End(span, &err)
		return errors.New("upstream down")
	}
	require.Error(t, call())

	_, span := StartSpan(context.Background(), "order.assign_driver", AttrOrderID.String("o-1"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "erp.push_payment", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "order.assign_driver", spans[1].Name())
	assert.Equal(t, codes.Unset, spans[1].Status().Code)
}

func TestMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordTransition(ctx, "assign_driver", "searching_driver", "driver_assigned")
	m.RecordTransition(ctx, "assign_driver", "searching_driver", "driver_assigned")
	m.RecordIntegrationCall(ctx, "erp", "pull_stock", "unavailable")
	m.RecordSync(ctx, 1500*time.Millisecond, "ok")
	m.RecordSyncDropped(ctx)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := map[string]metricdata.Metrics{}
	for _, metric := range rm.ScopeMetrics[0].Metrics {
		byName[metric.Name] = metric
	}
	require.Contains(t, byName, "orders.transitions")
	sum := byName["orders.transitions"].Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)
	assert.Contains(t, byName, "integration.calls")
	assert.Contains(t, byName, "stock.sync.duration")
	assert.Contains(t, byName, "stock.sync.dropped")
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordTransition(context.Background(), "pay", "payment_review", "searching_driver")
		m.RecordSyncDropped(context.Background())
	})
}
