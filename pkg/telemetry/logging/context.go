package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const (
	requestIDKey    contextKey = "request_id"
	sessionIDKey    contextKey = "session_id"
	generationIDKey contextKey = "generation_id"
)

// WithRequestID adds an HTTP request ID to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request ID stored in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithSessionID adds a conversation session ID to the context.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionID returns the session ID stored in ctx, or "".
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}

// WithGenerationID adds a generation ID to the context.
func WithGenerationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, generationIDKey, id)
}

// GenerationID returns the generation ID stored in ctx, or "".
func GenerationID(ctx context.Context) string {
	id, _ := ctx.Value(generationIDKey).(string)
	return id
}

// contextAttrs returns the identifiers present in ctx, including the
// trace ID of an active span.
func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var attrs []slog.Attr
	if id := RequestID(ctx); id != "" {
		attrs = append(attrs, slog.String(string(requestIDKey), id))
	}
	if id := SessionID(ctx); id != "" {
		attrs = append(attrs, slog.String(string(sessionIDKey), id))
	}
	if id := GenerationID(ctx); id != "" {
		attrs = append(attrs, slog.String(string(generationIDKey), id))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs, slog.String("trace_id", sc.TraceID().String()))
	}
	return attrs
}
