// Package instrumentation provides OpenTelemetry-based observability for cleany.
//
// It wires metrics and tracing behind a single Provider that is configured from
// environment variables (see Config). Metrics can be exported via Prometheus
// (default), OTLP, or stdout; traces via OTLP or stdout, or disabled entirely.
//
// The Metrics recorder exposes domain counters for Gmail API operations, bulk
// trash results, unsubscribe resolutions by outcome, executed unsubscribe
// requests, and learned preference writes. All recording methods are safe to
// call on a zero-value Metrics (they no-op when instrumentation is disabled).
//
// High-cardinality labels (sender domains) are only attached when
// METRICS_DETAILED_LABELS=true; keep this off in production.
package instrumentation
