// Package telemetry groups the observability packages for Concierge.
//
//   - logging: slog setup with context identifiers and PII redaction
//   - metrics: Prometheus collector attached to the synthesis engine
//   - tracing: OpenTelemetry tracer provider and HTTP propagation
//   - health: liveness and readiness probes
package telemetry
