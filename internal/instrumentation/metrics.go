package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	attrStatus    = "status"
	attrOperation = "operation"
	attrOutcome   = "outcome"
	attrResult    = "result"
	attrSender    = "sender_domain"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// Gmail API metrics
	gmailOperationsTotal   metric.Int64Counter
	gmailOperationDuration metric.Float64Histogram

	// Triage metrics
	messagesTrashedTotal     metric.Int64Counter
	resolutionsTotal         metric.Int64Counter
	unsubscribeRequestsTotal metric.Int64Counter

	// Preference metrics
	preferenceUpdatesTotal metric.Int64Counter

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.gmailOperationsTotal, err = meter.Int64Counter(
		"gmail_api_operations_total",
		metric.WithDescription("Total number of Gmail API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail_api_operations_total counter: %w", err)
	}

	m.gmailOperationDuration, err = meter.Float64Histogram(
		"gmail_api_operation_duration_seconds",
		metric.WithDescription("Gmail API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail_api_operation_duration_seconds histogram: %w", err)
	}

	m.messagesTrashedTotal, err = meter.Int64Counter(
		"messages_trashed_total",
		metric.WithDescription("Total number of messages moved to trash"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create messages_trashed_total counter: %w", err)
	}

	m.resolutionsTotal, err = meter.Int64Counter(
		"unsubscribe_resolutions_total",
		metric.WithDescription("Total number of unsubscribe link resolutions by outcome"),
		metric.WithUnit("{resolution}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create unsubscribe_resolutions_total counter: %w", err)
	}

	m.unsubscribeRequestsTotal, err = meter.Int64Counter(
		"unsubscribe_requests_total",
		metric.WithDescription("Total number of executed unsubscribe HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create unsubscribe_requests_total counter: %w", err)
	}

	m.preferenceUpdatesTotal, err = meter.Int64Counter(
		"preference_updates_total",
		metric.WithDescription("Total number of learned preference writes"),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create preference_updates_total counter: %w", err)
	}

	return m, nil
}

// RecordGmailOperation records a Gmail API operation with operation type, status,
// and duration.
//
// Parameters:
//   - operation: Operation type (search, get, trash)
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the operation
func (m *Metrics) RecordGmailOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if m.gmailOperationsTotal == nil || m.gmailOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.gmailOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.gmailOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordMessagesTrashed records confirmed and failed trash calls for a sender.
// The sender domain label is only attached when detailedLabels is enabled.
func (m *Metrics) RecordMessagesTrashed(ctx context.Context, senderDomain string, succeeded, failed int64) {
	if m.messagesTrashedTotal == nil {
		return // Instrumentation not initialized
	}

	base := []attribute.KeyValue{}
	if m.detailedLabels && senderDomain != "" {
		base = append(base, attribute.String(attrSender, senderDomain))
	}

	if succeeded > 0 {
		attrs := append([]attribute.KeyValue{attribute.String(attrStatus, StatusSuccess)}, base...)
		m.messagesTrashedTotal.Add(ctx, succeeded, metric.WithAttributes(attrs...))
	}
	if failed > 0 {
		attrs := append([]attribute.KeyValue{attribute.String(attrStatus, StatusError)}, base...)
		m.messagesTrashedTotal.Add(ctx, failed, metric.WithAttributes(attrs...))
	}
}

// RecordResolution records an unsubscribe link resolution outcome.
// Outcome should be one of: "resolved", "skipped_system", "not_found".
func (m *Metrics) RecordResolution(ctx context.Context, outcome string) {
	if m.resolutionsTotal == nil {
		return // Instrumentation not initialized
	}

	m.resolutionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOutcome, outcome),
	))
}

// RecordUnsubscribeRequest records an executed unsubscribe HTTP request with result.
// Result should be one of: "success", "error".
func (m *Metrics) RecordUnsubscribeRequest(ctx context.Context, result string) {
	if m.unsubscribeRequestsTotal == nil {
		return // Instrumentation not initialized
	}

	m.unsubscribeRequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}

// RecordPreferenceUpdate records a learned preference write.
// Result should be one of: "created", "reinforced", "weakened".
func (m *Metrics) RecordPreferenceUpdate(ctx context.Context, result string) {
	if m.preferenceUpdatesTotal == nil {
		return // Instrumentation not initialized
	}

	m.preferenceUpdatesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}
