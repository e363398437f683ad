// Package server provides the optional Prometheus metrics endpoint for cleany.
//
// The metrics server binds a dedicated port (default :9090) and exposes
// /metrics for Prometheus scraping plus a /healthz liveness probe. It is only
// started when the user asks for it (for example via `cleany stats
// --serve-metrics`) and requires an enabled instrumentation provider.
package server
