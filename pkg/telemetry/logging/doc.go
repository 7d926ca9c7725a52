// Package logging configures structured logging with PII redaction.
//
// New returns a standard *slog.Logger whose handler adds the request,
// session, and generation IDs carried by the context and masks customer
// PII (emails, card numbers, SSNs, phone numbers, API keys) in string
// attributes:
//
//	logger, err := logging.New(cfg.Telemetry.Logging, os.Stderr)
//	ctx = logging.WithSessionID(ctx, "sess-42")
//	logger.InfoContext(ctx, "prompt generated", "email", "jane@example.com")
//	// {"msg":"prompt generated","session_id":"sess-42","email":"[EMAIL]",...}
//
// The same Redactor is used by the audit recorder for prompt excerpts.
package logging
