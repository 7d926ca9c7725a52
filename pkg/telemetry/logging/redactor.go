package logging

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"mercator-hq/concierge/pkg/config"
)

// Built-in PII pattern names.
const (
	PatternEmail      = "email"
	PatternCreditCard = "credit_card"
	PatternSSN        = "ssn"
	PatternPhone      = "phone"
	PatternAPIKey     = "api_key"
)

type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Redactor masks customer PII in log attributes and audit excerpts.
// Patterns are applied in order: built-ins first, then custom patterns.
type Redactor struct {
	patterns []redactPattern
}

// builtinPatterns are ordered so that card numbers are masked before the
// shorter phone and SSN patterns can match inside them.
var builtinPatterns = []struct {
	name        string
	regex       string
	replacement string
}{
	{PatternEmail, `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`, "[EMAIL]"},
	{PatternCreditCard, `\b(?:\d[ -]?){12,15}\d\b`, "[CARD]"},
	{PatternSSN, `\b\d{3}-\d{2}-\d{4}\b`, "[SSN]"},
	{PatternPhone, `(?:\+?1[-.\s]?)?\(?\b\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`, "[PHONE]"},
	{PatternAPIKey, `\bsk-[a-zA-Z0-9]{8,}\b`, "[API_KEY]"},
}

// sensitiveKeys are attribute keys whose values are always fully masked.
var sensitiveKeys = []string{
	"password", "secret", "token", "api_key", "apikey", "authorization",
}

// NewRedactor creates a Redactor with the built-in patterns plus custom
// patterns. An invalid custom pattern is an error.
func NewRedactor(custom []config.RedactPattern) (*Redactor, error) {
	r := &Redactor{}
	for _, p := range builtinPatterns {
		r.patterns = append(r.patterns, redactPattern{
			name:        p.name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		})
	}
	for _, p := range custom {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid redact pattern %q: %w", p.Name, err)
		}
		replacement := p.Replacement
		if replacement == "" {
			replacement = "[REDACTED]"
		}
		r.patterns = append(r.patterns, redactPattern{name: p.Name, regex: re, replacement: replacement})
	}
	return r, nil
}

// RedactString masks every pattern match in value.
func (r *Redactor) RedactString(value string) string {
	if r == nil || value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// RedactAttr masks an attribute. Values under sensitive keys are replaced
// entirely; other string values are pattern-redacted. Groups are walked
// recursively.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	if r == nil {
		return a
	}
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		attrs := v.Group()
		out := make([]any, len(attrs))
		for i, ga := range attrs {
			out[i] = r.RedactAttr(ga)
		}
		return slog.Group(a.Key, out...)
	case slog.KindString:
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, "***")
		}
		return slog.String(a.Key, r.RedactString(v.String()))
	default:
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, "***")
		}
		return slog.Attr{Key: a.Key, Value: v}
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
