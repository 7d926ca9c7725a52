package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "engine.max_messages").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateEngine(&cfg.Engine)...)
	errs = append(errs, validateGuardrails(&cfg.Guardrails)...)
	errs = append(errs, validateSessions(&cfg.Sessions)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateEngine validates engine thresholds and patterns.
func validateEngine(cfg *EngineConfig) []FieldError {
	var errs []FieldError

	if cfg.CompletionThreshold <= 0 || cfg.CompletionThreshold > 1 {
		errs = append(errs, FieldError{
			Field:   "engine.completion_threshold",
			Message: "completion threshold must be in (0, 1]",
		})
	}
	if cfg.MaxMessages <= 0 {
		errs = append(errs, FieldError{
			Field:   "engine.max_messages",
			Message: "max messages must be positive",
		})
	}
	for i, pattern := range cfg.HumanRequestPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("engine.human_request_patterns[%d]", i),
				Message: fmt.Sprintf("invalid pattern: %v", err),
			})
		}
	}
	for topic, fields := range cfg.Flows {
		if len(fields) == 0 {
			errs = append(errs, FieldError{
				Field:   "engine.flows." + topic,
				Message: "flow must list at least one required field",
			})
		}
	}
	for topic, tier := range cfg.TopicTiers {
		if tier < 0 {
			errs = append(errs, FieldError{
				Field:   "engine.topic_tiers." + topic,
				Message: "tier must be non-negative",
			})
		}
	}
	if strings.TrimSpace(cfg.FallbackPrompt) == "" {
		errs = append(errs, FieldError{
			Field:   "engine.fallback_prompt",
			Message: "fallback prompt is required",
		})
	}

	return errs
}

// validateGuardrails validates that every pattern compiles and tiers are sane.
func validateGuardrails(cfg *GuardrailsConfig) []FieldError {
	var errs []FieldError

	for i, rule := range cfg.ContentSafety {
		field := fmt.Sprintf("guardrails.content_safety[%d]", i)
		if rule.Category == "" {
			errs = append(errs, FieldError{Field: field + ".category", Message: "category is required"})
		}
		if _, err := regexp.Compile(rule.Pattern); err != nil || rule.Pattern == "" {
			errs = append(errs, FieldError{Field: field + ".pattern", Message: "pattern is missing or invalid"})
		}
	}

	errs = append(errs, validateTierRules("guardrails.compliance", cfg.Compliance)...)
	errs = append(errs, validateTierRules("guardrails.capability", cfg.Capability)...)

	if cfg.EscalationLevelThreshold <= 0 {
		errs = append(errs, FieldError{
			Field:   "guardrails.escalation_level_threshold",
			Message: "escalation level threshold must be positive",
		})
	}

	return errs
}

func validateTierRules(prefix string, rules []TierRule) []FieldError {
	var errs []FieldError

	for i, rule := range rules {
		field := fmt.Sprintf("%s[%d]", prefix, i)
		if rule.Kind == "" {
			errs = append(errs, FieldError{Field: field + ".kind", Message: "kind is required"})
		}
		if rule.MinTier <= 0 {
			errs = append(errs, FieldError{Field: field + ".min_tier", Message: "min tier must be positive"})
		}
		if len(rule.Patterns) == 0 {
			errs = append(errs, FieldError{Field: field + ".patterns", Message: "at least one pattern is required"})
		}
		for j, pattern := range rule.Patterns {
			if _, err := regexp.Compile(pattern); err != nil {
				errs = append(errs, FieldError{
					Field:   fmt.Sprintf("%s.patterns[%d]", field, j),
					Message: fmt.Sprintf("invalid pattern: %v", err),
				})
			}
		}
	}

	return errs
}

// validateSessions validates session storage configuration.
func validateSessions(cfg *SessionsConfig) []FieldError {
	var errs []FieldError

	validBackends := map[string]bool{"memory": true, "sqlite": true}
	if !validBackends[cfg.Backend] {
		errs = append(errs, FieldError{
			Field:   "sessions.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'sqlite'", cfg.Backend),
		})
	}
	if cfg.Backend == "sqlite" && cfg.SQLite.Path == "" {
		errs = append(errs, FieldError{
			Field:   "sessions.sqlite.path",
			Message: "path is required when backend is 'sqlite'",
		})
	}
	if cfg.IdleTTL < 0 {
		errs = append(errs, FieldError{
			Field:   "sessions.idle_ttl",
			Message: "idle ttl must be non-negative",
		})
	}
	errs = append(errs, validateSchedule("sessions.prune_schedule", cfg.PruneSchedule)...)

	return errs
}

// validateAudit validates audit configuration.
func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	// If audit is disabled, skip validation
	if !cfg.Enabled {
		return errs
	}

	validBackends := map[string]bool{"memory": true, "sqlite": true}
	if !validBackends[cfg.Backend] {
		errs = append(errs, FieldError{
			Field:   "audit.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'sqlite'", cfg.Backend),
		})
	}
	if cfg.Backend == "sqlite" && cfg.SQLite.Path == "" {
		errs = append(errs, FieldError{
			Field:   "audit.sqlite.path",
			Message: "path is required when backend is 'sqlite'",
		})
	}
	if cfg.AsyncBuffer <= 0 {
		errs = append(errs, FieldError{
			Field:   "audit.async_buffer",
			Message: "async buffer must be positive",
		})
	}
	if cfg.WriteTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "audit.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{
			Field:   "audit.retention_days",
			Message: "retention days must be non-negative",
		})
	}
	errs = append(errs, validateSchedule("audit.prune_schedule", cfg.PruneSchedule)...)

	return errs
}

// validateServer validates HTTP server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "read timeout must be positive"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "write timeout must be positive"})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.idle_timeout", Message: "idle timeout must be positive"})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_body_bytes", Message: "max body bytes must be non-negative"})
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid level %q: must be one of debug, info, warn, error", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid format %q: must be 'json', 'text' or 'console'", cfg.Logging.Format),
		})
	}

	for i, p := range cfg.Logging.RedactPatterns {
		if _, err := regexp.Compile(p.Pattern); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i),
				Message: fmt.Sprintf("invalid pattern: %v", err),
			})
		}
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with '/'",
		})
	}

	if cfg.Tracing.Enabled {
		validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
		if !validSamplers[cfg.Tracing.Sampler] {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never' or 'ratio'", cfg.Tracing.Sampler),
			})
		}
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sample_ratio",
				Message: "sample ratio must be between 0.0 and 1.0",
			})
		}
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.endpoint",
				Message: "endpoint is required when tracing is enabled",
			})
		}
	}

	return errs
}

// validateSchedule validates an optional cron expression.
func validateSchedule(field, schedule string) []FieldError {
	if schedule == "" {
		return nil
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return []FieldError{{
			Field:   field,
			Message: fmt.Sprintf("invalid cron schedule %q: %v", schedule, err),
		}}
	}
	return nil
}
