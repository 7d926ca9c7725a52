// Package tracing configures OpenTelemetry tracing.
//
// When enabled, spans are exported over OTLP/gRPC with a parent-based
// sampler ("always", "never", or "ratio"). When disabled, New returns a
// noop tracer so instrumented code pays almost nothing.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//		return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	engine, _ := synthesis.New(synthesis.Options{Catalog: cat, Tracer: tracer.Tracer()})
//	handler := tracing.HTTPMiddleware(tracer.Tracer(), mux)
//
// HTTPMiddleware extracts W3C Trace Context from incoming requests, so
// generation spans join the caller's trace.
package tracing
