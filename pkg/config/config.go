package config

import "time"

// Config is the root configuration structure for Concierge.
// It contains all configuration sections for the synthesis engine, guardrail
// rules, the template/persona catalog, session and audit storage, the HTTP
// API, and telemetry.
type Config struct {
	// Engine contains escalation thresholds and orchestrator behavior.
	Engine EngineConfig `yaml:"engine"`

	// Guardrails contains the content-safety patterns and the tier matrices
	// used by the guardrail evaluator.
	Guardrails GuardrailsConfig `yaml:"guardrails"`

	// Catalog controls where templates and personas are loaded from.
	Catalog CatalogConfig `yaml:"catalog"`

	// Sessions controls per-session state storage (sticky escalation,
	// step and message counters).
	Sessions SessionsConfig `yaml:"sessions"`

	// Audit controls the generation audit trail.
	Audit AuditConfig `yaml:"audit"`

	// Server contains HTTP API server configuration.
	Server ServerConfig `yaml:"server"`

	// Telemetry contains configuration for logging, metrics, and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// EngineConfig contains configuration for the prompt orchestrator and the
// escalation decision engine.
type EngineConfig struct {
	// CompletionThreshold is the completion ratio (filled required flow
	// fields / total required flow fields) at or above which a conversation
	// is escalated.
	// Default: 0.8
	CompletionThreshold float64 `yaml:"completion_threshold"`

	// MaxMessages is the message count at or above which a conversation is
	// escalated.
	// Default: 8
	MaxMessages int `yaml:"max_messages"`

	// HumanRequestPatterns are case-insensitive regular expressions matched
	// against the latest customer message. A match forces escalation.
	HumanRequestPatterns []string `yaml:"human_request_patterns"`

	// Flows maps a conversation topic to the fields that must be collected
	// for that flow. Topics without a flow never trigger the completion rule.
	Flows map[string][]string `yaml:"flows"`

	// TopicTiers maps a topic to the minimum persona knowledge tier allowed
	// to handle it.
	TopicTiers map[string]int `yaml:"topic_tiers"`

	// FallbackPrompt is the fixed prompt returned whenever generation cannot
	// proceed normally.
	FallbackPrompt string `yaml:"fallback_prompt"`

	// SuppressFlaggedPrompts replaces prompts that fail guardrails at high
	// severity or above with the fallback prompt.
	// Default: false
	SuppressFlaggedPrompts bool `yaml:"suppress_flagged_prompts"`
}

// GuardrailsConfig contains the rules evaluated by the guardrail evaluator.
type GuardrailsConfig struct {
	// ContentSafety lists the content-safety patterns grouped by category.
	ContentSafety []PatternRule `yaml:"content_safety"`

	// Compliance lists tier-gated compliance rules (financial, legal advice).
	Compliance []TierRule `yaml:"compliance"`

	// Capability lists tier-gated capability rules (technical, expert language).
	Capability []TierRule `yaml:"capability"`

	// EscalationLevelThreshold is the context escalation level at or above
	// which the escalation-level check fires.
	// Default: 3
	EscalationLevelThreshold int `yaml:"escalation_level_threshold"`
}

// PatternRule is a single content-safety pattern.
type PatternRule struct {
	// Category is the content category (hate_speech, violence, inappropriate_language).
	Category string `yaml:"category"`

	// Pattern is a case-insensitive regular expression.
	Pattern string `yaml:"pattern"`
}

// TierRule blocks matching language for agents below MinTier.
type TierRule struct {
	// Kind is the violation kind reported on a match
	// (e.g., "financial_advice", "legal_advice", "technical_capability").
	Kind string `yaml:"kind"`

	// MinTier is the lowest agent tier allowed to use this language.
	MinTier int `yaml:"min_tier"`

	// Patterns are case-insensitive regular expressions.
	Patterns []string `yaml:"patterns"`
}

// CatalogConfig controls template and persona loading.
type CatalogConfig struct {
	// Path is the YAML catalog file. When empty, the built-in catalog is used.
	Path string `yaml:"path"`

	// Watch enables automatic engine rebuilds when the catalog file changes.
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceInterval is the quiet period before a reload is triggered.
	// Default: 200ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// SessionsConfig controls per-session state storage.
type SessionsConfig struct {
	// Backend is the storage backend: "memory" or "sqlite".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// IdleTTL is how long a non-escalated session may stay idle before it is
	// pruned. Escalated sessions are never pruned.
	// Default: 72h
	IdleTTL time.Duration `yaml:"idle_ttl"`

	// PruneSchedule is the cron expression for idle session pruning.
	// Default: "0 * * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// AuditConfig controls the generation audit trail.
type AuditConfig struct {
	// Enabled controls whether generation audit records are written.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend is the storage backend: "memory" or "sqlite".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// AsyncBuffer is the size of the recorder's write channel.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds a single storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxPromptExcerpt is the number of prompt characters stored verbatim.
	// Default: 500
	MaxPromptExcerpt int `yaml:"max_prompt_excerpt"`

	// RetentionDays is how many days audit records are kept. 0 keeps forever.
	// Default: 90
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is the cron expression for audit pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// SQLiteConfig contains configuration for SQLite-backed stores.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait for locks.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// ServerConfig contains configuration for the HTTP API server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8090"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 60s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes limits request body size.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains OpenTelemetry tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains configuration for structured logging.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json", "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII masks customer PII in log attributes.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// RedactPatterns adds custom redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom PII redaction pattern.
type RedactPattern struct {
	// Name identifies the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the replacement text.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric namespace.
	// Default: "concierge"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem.
	// Default: "synthesis"
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets are histogram buckets for generation latency in seconds.
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler is the sampling strategy: "always", "never", "ratio".
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces sampled when Sampler is "ratio".
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is reported as the service.name resource attribute.
	// Default: "concierge"
	ServiceName string `yaml:"service_name"`

	// OTLP contains exporter-specific options.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter options.
type OTLPConfig struct {
	// Insecure disables TLS for the collector connection.
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}
