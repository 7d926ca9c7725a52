// Package server exposes the synthesis engine over HTTP.
//
// # Routes
//
//   - POST /v1/generate - render a template for a persona and conversation
//   - POST /v1/guardrails/evaluate - check arbitrary text against a risk level
//   - GET /v1/performance - per-template generation counters
//   - GET /v1/catalog - the loaded templates and personas
//   - GET /v1/sessions/{id} - session state, including sticky escalation
//   - POST /v1/sessions/{id}/clear - reviewer clears a session's escalation
//   - GET /health, GET /ready, GET /version
//   - GET /metrics (when a metrics handler is configured)
//
// /v1/generate answers 200 even when generation fails: the body carries the
// fallback prompt and the failure kind in metadata.
//
// # Engine Reload
//
// The serving engine is held in an atomic pointer. SetEngine swaps it after a
// catalog reload without blocking requests; requests in flight complete on the
// engine they loaded.
//
// # Middleware Chain
//
// From outermost: recovery, request ID, access logging, tracing.
//
// # Graceful Shutdown
//
// Start blocks until the context is cancelled or SIGINT/SIGTERM arrives, then
// drains connections for up to server.shutdown_timeout.
package server
