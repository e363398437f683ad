package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name for the cleany package.
const TracerName = "github.com/cleanymail/cleany"

// Span attribute keys for operations.
const (
	// SpanAttrOperation is the operation type attribute.
	SpanAttrOperation = "cleany.operation"

	// SpanAttrSenderDomain is the (low-cardinality) sender domain attribute.
	SpanAttrSenderDomain = "cleany.sender_domain"

	// SpanAttrOutcome is the resolution outcome attribute.
	SpanAttrOutcome = "cleany.outcome"

	// SpanAttrMessageCount is the number of messages touched by a bulk operation.
	SpanAttrMessageCount = "cleany.message_count"
)

// StartOperationSpan starts a span for a triage operation (resolve, delete_all,
// keep_latest, learn). The returned context carries the span; callers must call
// End on the returned span.
func StartOperationSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	return tracer.Start(ctx, operation,
		trace.WithAttributes(
			attribute.String(SpanAttrOperation, operation),
		),
	)
}

// SetSpanOutcome records the resolution outcome on the span.
func SetSpanOutcome(span trace.Span, outcome string) {
	span.SetAttributes(attribute.String(SpanAttrOutcome, outcome))
}

// SetSpanMessageCount records how many messages a bulk operation touched.
func SetSpanMessageCount(span trace.Span, count int) {
	span.SetAttributes(attribute.Int(SpanAttrMessageCount, count))
}

// RecordSpanError marks the span as failed and records the error.
// Safe to call with a nil error, in which case the span is marked OK.
func RecordSpanError(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
