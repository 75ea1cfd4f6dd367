package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names spans started by application services.
const TracerName = "procurement"

// Span attribute keys.
const (
	AttrOrderID     = attribute.Key("order.id")
	AttrOrderStatus = attribute.Key("order.status")
	AttrOrderEvent  = attribute.Key("order.event")
	AttrSystem      = attribute.Key("integration.system")
	AttrStep        = attribute.Key("integration.step")
	AttrWarehouseID = attribute.Key("warehouse.id")
)

// StartSpan starts an internal span on the global tracer provider. The
// caller ends it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// StartClientSpan starts a span for an outbound call to an external system.
func StartClientSpan(ctx context.Context, system, step string) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, system+"."+step,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(AttrSystem.String(system), AttrStep.String(step)),
	)
}

// End records err (if any) on span and ends it. Intended for defer with a
// named error result.
func End(span trace.Span, err *error) {
	if err != nil && *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}
