package config

import "time"

// Default values for configuration fields.
const (
	// Engine defaults
	DefaultCompletionThreshold = 0.8
	DefaultMaxMessages         = 8
	DefaultFallbackPrompt      = "Thank you for contacting support. I want to make sure you get the right answer, so let me gather a few more details before we continue."

	// Guardrail defaults
	DefaultEscalationLevelThreshold = 3

	// Catalog defaults
	DefaultCatalogDebounce = 200 * time.Millisecond

	// Session defaults
	DefaultSessionsBackend       = "memory"
	DefaultSessionsSQLitePath    = "data/sessions.db"
	DefaultSessionsIdleTTL       = 72 * time.Hour
	DefaultSessionsPruneSchedule = "0 * * * *"

	// Audit defaults
	DefaultAuditEnabled          = true
	DefaultAuditBackend          = "sqlite"
	DefaultAuditSQLitePath       = "data/audit.db"
	DefaultAuditAsyncBuffer      = 1000
	DefaultAuditWriteTimeout     = 5 * time.Second
	DefaultAuditMaxPromptExcerpt = 500
	DefaultAuditRetentionDays    = 90
	DefaultAuditPruneSchedule    = "0 3 * * *"

	// SQLite defaults
	DefaultSQLiteMaxOpenConns = 10
	DefaultSQLiteWALMode      = true
	DefaultSQLiteBusyTimeout  = 5 * time.Second

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8090"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMaxBodyBytes    = int64(1048576) // 1MB

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultLoggingRedactPII   = true
	DefaultMetricsEnabled     = true
	DefaultPrometheusPath     = "/metrics"
	DefaultMetricsNamespace   = "concierge"
	DefaultMetricsSubsystem   = "synthesis"
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingServiceName = "concierge"
	DefaultOTLPTimeout        = 10 * time.Second
)

// DefaultHumanRequestPatterns match customers asking for a person.
var DefaultHumanRequestPatterns = []string{
	`\b(speak|talk|chat)\s+(to|with)\s+(a\s+)?(human|person|real person|someone|agent|representative|manager|supervisor)\b`,
	`\b(human|live)\s+(agent|support|representative)\b`,
	`\btransfer\s+me\b`,
	`\b(escalate|escalation)\b`,
}

// DefaultDurationBuckets are generation latency buckets in seconds.
// Generation is CPU-only so the buckets sit in the microsecond to
// millisecond range.
var DefaultDurationBuckets = []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05}

// DefaultConfig returns a configuration with every field set to its default.
// LoadConfig decodes YAML on top of this value so that boolean defaults of
// true survive when a section is omitted.
func DefaultConfig() *Config {
	cfg := &Config{
		Engine: EngineConfig{
			CompletionThreshold:  DefaultCompletionThreshold,
			MaxMessages:          DefaultMaxMessages,
			HumanRequestPatterns: append([]string(nil), DefaultHumanRequestPatterns...),
			FallbackPrompt:       DefaultFallbackPrompt,
			Flows:                DefaultFlows(),
			TopicTiers:           DefaultTopicTiers(),
		},
		Guardrails: DefaultGuardrails(),
		Catalog: CatalogConfig{
			DebounceInterval: DefaultCatalogDebounce,
		},
		Sessions: SessionsConfig{
			Backend: DefaultSessionsBackend,
			SQLite: SQLiteConfig{
				Path:         DefaultSessionsSQLitePath,
				MaxOpenConns: 1,
				WALMode:      DefaultSQLiteWALMode,
				BusyTimeout:  DefaultSQLiteBusyTimeout,
			},
			IdleTTL:       DefaultSessionsIdleTTL,
			PruneSchedule: DefaultSessionsPruneSchedule,
		},
		Audit: AuditConfig{
			Enabled: DefaultAuditEnabled,
			Backend: DefaultAuditBackend,
			SQLite: SQLiteConfig{
				Path:         DefaultAuditSQLitePath,
				MaxOpenConns: DefaultSQLiteMaxOpenConns,
				WALMode:      DefaultSQLiteWALMode,
				BusyTimeout:  DefaultSQLiteBusyTimeout,
			},
			AsyncBuffer:      DefaultAuditAsyncBuffer,
			WriteTimeout:     DefaultAuditWriteTimeout,
			MaxPromptExcerpt: DefaultAuditMaxPromptExcerpt,
			RetentionDays:    DefaultAuditRetentionDays,
			PruneSchedule:    DefaultAuditPruneSchedule,
		},
		Server: ServerConfig{
			ListenAddress:   DefaultListenAddress,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			IdleTimeout:     DefaultIdleTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
			MaxBodyBytes:    DefaultMaxBodyBytes,
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{
				Level:     DefaultLoggingLevel,
				Format:    DefaultLoggingFormat,
				RedactPII: DefaultLoggingRedactPII,
			},
			Metrics: MetricsConfig{
				Enabled:         DefaultMetricsEnabled,
				Path:            DefaultPrometheusPath,
				Namespace:       DefaultMetricsNamespace,
				Subsystem:       DefaultMetricsSubsystem,
				DurationBuckets: append([]float64(nil), DefaultDurationBuckets...),
			},
			Tracing: TracingConfig{
				Sampler:     DefaultTracingSampler,
				SampleRatio: DefaultTracingSampleRatio,
				Endpoint:    DefaultTracingEndpoint,
				ServiceName: DefaultTracingServiceName,
				OTLP: OTLPConfig{
					Timeout: DefaultOTLPTimeout,
				},
			},
		},
	}
	return cfg
}

// DefaultFlows returns the built-in required-field lists per topic.
func DefaultFlows() map[string][]string {
	return map[string][]string{
		"billing":         {"account_number", "billing_period", "invoice_number", "amount", "payment_method"},
		"technical":       {"product", "version", "operating_system", "error_message", "steps_to_reproduce"},
		"account_access":  {"account_number", "email", "last_login", "verification_code"},
		"order_status":    {"order_number", "email", "shipping_address"},
		"refund_request":  {"order_number", "reason", "amount", "payment_method"},
		"general_inquiry": {"question"},
	}
}

// DefaultTopicTiers returns the minimum persona knowledge tier per topic.
func DefaultTopicTiers() map[string]int {
	return map[string]int{
		"technical":      2,
		"refund_request": 2,
		"legal":          3,
		"security":       3,
	}
}

// DefaultGuardrails returns the built-in guardrail rules.
func DefaultGuardrails() GuardrailsConfig {
	return GuardrailsConfig{
		ContentSafety: []PatternRule{
			{Category: "hate_speech", Pattern: `\b(racist|bigot(ed|s)?|subhuman|inferior race)\b`},
			{Category: "hate_speech", Pattern: `\bi hate (you|them|people like)\b`},
			{Category: "violence", Pattern: `\b(kill|murder|shoot|stab|assault)\s+(you|him|her|them|someone|everyone)\b`},
			{Category: "violence", Pattern: `\b(bomb threat|hurt you|beat you up)\b`},
			{Category: "inappropriate_language", Pattern: `\b(fuck\w*|shit\w*|bitch\w*|asshole\w*|bastard\w*)\b`},
			{Category: "inappropriate_language", Pattern: `\b(stupid|idiot|moron)\s+(customer|user|person)\b`},
		},
		Compliance: []TierRule{
			{
				Kind:    "financial_advice",
				MinTier: 2,
				Patterns: []string{
					`\b(investment|financial|tax)\s+advice\b`,
					`\byou should (buy|sell|invest in)\b`,
					`\bguaranteed (returns?|profits?)\b`,
					`\b(stock|crypto) tips?\b`,
				},
			},
			{
				Kind:    "legal_advice",
				MinTier: 3,
				Patterns: []string{
					`\blegal advice\b`,
					`\byou (should|could|can) sue\b`,
					`\bfile a (lawsuit|claim against)\b`,
					`\blegally (binding|entitled|obligated)\b`,
					`\byour legal rights\b`,
				},
			},
		},
		Capability: []TierRule{
			{
				Kind:    "technical_capability",
				MinTier: 2,
				Patterns: []string{
					`\b(admin|administrator|root)\s+(access|privileges|rights)\b`,
					`\b(reset|restart|reconfigure)\s+the\s+(server|database|firewall|router)\b`,
					`\bdatabase (query|migration|access)\b`,
					`\bssh\b`,
				},
			},
			{
				Kind:    "expert_capability",
				MinTier: 3,
				Patterns: []string{
					`\barchitecture review\b`,
					`\bsource code\b`,
					`\bcustom integration\b`,
					`\b(root cause|forensic) analysis\b`,
					`\bexpert (analysis|review|diagnosis)\b`,
				},
			},
		},
		EscalationLevelThreshold: DefaultEscalationLevelThreshold,
	}
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Engine defaults
	if cfg.Engine.CompletionThreshold == 0 {
		cfg.Engine.CompletionThreshold = DefaultCompletionThreshold
	}
	if cfg.Engine.MaxMessages == 0 {
		cfg.Engine.MaxMessages = DefaultMaxMessages
	}
	if cfg.Engine.HumanRequestPatterns == nil {
		cfg.Engine.HumanRequestPatterns = append([]string(nil), DefaultHumanRequestPatterns...)
	}
	if cfg.Engine.FallbackPrompt == "" {
		cfg.Engine.FallbackPrompt = DefaultFallbackPrompt
	}
	if cfg.Engine.Flows == nil {
		cfg.Engine.Flows = DefaultFlows()
	}
	if cfg.Engine.TopicTiers == nil {
		cfg.Engine.TopicTiers = DefaultTopicTiers()
	}

	// Guardrail defaults
	applyGuardrailDefaults(&cfg.Guardrails)

	// Catalog defaults
	if cfg.Catalog.DebounceInterval == 0 {
		cfg.Catalog.DebounceInterval = DefaultCatalogDebounce
	}

	// Session defaults
	if cfg.Sessions.Backend == "" {
		cfg.Sessions.Backend = DefaultSessionsBackend
	}
	if cfg.Sessions.SQLite.Path == "" {
		cfg.Sessions.SQLite.Path = DefaultSessionsSQLitePath
	}
	applySQLiteDefaults(&cfg.Sessions.SQLite)
	if cfg.Sessions.IdleTTL == 0 {
		cfg.Sessions.IdleTTL = DefaultSessionsIdleTTL
	}
	if cfg.Sessions.PruneSchedule == "" {
		cfg.Sessions.PruneSchedule = DefaultSessionsPruneSchedule
	}

	// Audit defaults
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.SQLite.Path == "" {
		cfg.Audit.SQLite.Path = DefaultAuditSQLitePath
	}
	applySQLiteDefaults(&cfg.Audit.SQLite)
	if cfg.Audit.AsyncBuffer == 0 {
		cfg.Audit.AsyncBuffer = DefaultAuditAsyncBuffer
	}
	if cfg.Audit.WriteTimeout == 0 {
		cfg.Audit.WriteTimeout = DefaultAuditWriteTimeout
	}
	if cfg.Audit.MaxPromptExcerpt == 0 {
		cfg.Audit.MaxPromptExcerpt = DefaultAuditMaxPromptExcerpt
	}
	if cfg.Audit.PruneSchedule == "" {
		cfg.Audit.PruneSchedule = DefaultAuditPruneSchedule
	}

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.OTLP.Timeout == 0 {
		cfg.Telemetry.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}
}

// applyGuardrailDefaults fills empty guardrail sections with the built-in rules.
// Sections are replaced wholesale: a configured section is never merged with
// the defaults.
func applyGuardrailDefaults(cfg *GuardrailsConfig) {
	defaults := DefaultGuardrails()
	if cfg.ContentSafety == nil {
		cfg.ContentSafety = defaults.ContentSafety
	}
	if cfg.Compliance == nil {
		cfg.Compliance = defaults.Compliance
	}
	if cfg.Capability == nil {
		cfg.Capability = defaults.Capability
	}
	if cfg.EscalationLevelThreshold == 0 {
		cfg.EscalationLevelThreshold = DefaultEscalationLevelThreshold
	}
}

// applySQLiteDefaults applies connection defaults to a SQLite section.
func applySQLiteDefaults(cfg *SQLiteConfig) {
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = DefaultSQLiteBusyTimeout
	}
}
