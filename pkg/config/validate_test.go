package config

import (
	"strings"
	"testing"
)

func TestValidate_DefaultConfig(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Errorf("expected default config to pass validation, got error: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.MaxMessages = 0
	cfg.Server.ListenAddress = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation to fail")
	}

	validationErr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(validationErr.Errors) != 2 {
		t.Errorf("expected 2 errors, got %d", len(validationErr.Errors))
	}
	if !strings.Contains(validationErr.Error(), "validation failed with 2 errors") {
		t.Errorf("error message should mention multiple errors: %s", validationErr.Error())
	}
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*Config)
		errorField string
	}{
		{
			name:       "completion threshold above one",
			mutate:     func(c *Config) { c.Engine.CompletionThreshold = 1.2 },
			errorField: "engine.completion_threshold",
		},
		{
			name:       "negative max messages",
			mutate:     func(c *Config) { c.Engine.MaxMessages = -1 },
			errorField: "engine.max_messages",
		},
		{
			name:       "bad human request pattern",
			mutate:     func(c *Config) { c.Engine.HumanRequestPatterns = []string{"(unclosed"} },
			errorField: "engine.human_request_patterns[0]",
		},
		{
			name:       "empty flow",
			mutate:     func(c *Config) { c.Engine.Flows["empty"] = nil },
			errorField: "engine.flows.empty",
		},
		{
			name:       "blank fallback prompt",
			mutate:     func(c *Config) { c.Engine.FallbackPrompt = "   " },
			errorField: "engine.fallback_prompt",
		},
		{
			name: "content safety without category",
			mutate: func(c *Config) {
				c.Guardrails.ContentSafety = []PatternRule{{Pattern: "x"}}
			},
			errorField: "guardrails.content_safety[0].category",
		},
		{
			name: "compliance bad pattern",
			mutate: func(c *Config) {
				c.Guardrails.Compliance = []TierRule{{Kind: "legal_advice", MinTier: 3, Patterns: []string{"[a-"}}}
			},
			errorField: "guardrails.compliance[0].patterns[0]",
		},
		{
			name: "capability zero tier",
			mutate: func(c *Config) {
				c.Guardrails.Capability = []TierRule{{Kind: "x", Patterns: []string{"y"}}}
			},
			errorField: "guardrails.capability[0].min_tier",
		},
		{
			name:       "unknown session backend",
			mutate:     func(c *Config) { c.Sessions.Backend = "redis" },
			errorField: "sessions.backend",
		},
		{
			name:       "bad prune schedule",
			mutate:     func(c *Config) { c.Sessions.PruneSchedule = "every hour" },
			errorField: "sessions.prune_schedule",
		},
		{
			name: "sqlite audit without path",
			mutate: func(c *Config) {
				c.Audit.Backend = "sqlite"
				c.Audit.SQLite.Path = ""
			},
			errorField: "audit.sqlite.path",
		},
		{
			name:       "negative max body",
			mutate:     func(c *Config) { c.Server.MaxBodyBytes = -1 },
			errorField: "server.max_body_bytes",
		},
		{
			name:       "invalid log level",
			mutate:     func(c *Config) { c.Telemetry.Logging.Level = "trace" },
			errorField: "telemetry.logging.level",
		},
		{
			name: "invalid sampler",
			mutate: func(c *Config) {
				c.Telemetry.Tracing.Enabled = true
				c.Telemetry.Tracing.Sampler = "sometimes"
			},
			errorField: "telemetry.tracing.sampler",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			validationErr := err.(ValidationError)

			found := false
			for _, fe := range validationErr.Errors {
				if fe.Field == tt.errorField {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected error for field %q, got %v", tt.errorField, validationErr.Errors)
			}
		})
	}
}

func TestValidate_DisabledAuditSkipsChecks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Audit.Enabled = false
	cfg.Audit.Backend = "nowhere"

	if err := Validate(cfg); err != nil {
		t.Errorf("expected disabled audit to skip validation, got %v", err)
	}
}
