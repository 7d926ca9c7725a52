// Package config provides configuration management for Concierge.
//
// This package handles loading, validating, and defaulting configuration from
// YAML files with environment variable overrides. Configuration is passed
// explicitly to the components that need it; there is no package-level
// configuration singleton.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("concierge.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("concierge.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CONCIERGE_SECTION_FIELD.
// For example:
//
//   - CONCIERGE_ENGINE_MAX_MESSAGES overrides engine.max_messages
//   - CONCIERGE_SESSIONS_BACKEND overrides sessions.backend
//   - CONCIERGE_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (DefaultConfig, defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Guardrail Rules
//
// The guardrails section carries the content-safety pattern list and the
// tier-gated compliance and capability matrices. An omitted section falls
// back to the built-in rules from DefaultGuardrails; a configured section
// replaces the built-in rules entirely.
package config
