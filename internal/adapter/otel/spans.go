package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "reside"

// StartResolveSpan starts a span for a tenant resolution.
func StartResolveSpan(ctx context.Context, key, value string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "tenant.resolve",
		trace.WithAttributes(
			attribute.String("tenant.lookup_key", key),
			attribute.String("tenant.lookup_value", value),
		),
	)
}

// StartDispatchSpan starts a span for response dispatch.
func StartDispatchSpan(ctx context.Context, resultType string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "dispatch",
		trace.WithAttributes(
			attribute.String("dispatch.type", resultType),
		),
	)
}
