package synthesis

import (
	"time"

	"mercator-hq/concierge/pkg/catalog"
	"mercator-hq/concierge/pkg/synthesis/escalation"
	"mercator-hq/concierge/pkg/synthesis/guardrails"
)

// Result is the output of one generation. Prompt is always non-empty.
type Result struct {
	Prompt   string   `json:"prompt"`
	Metadata Metadata `json:"metadata"`

	// Err is the cause when FallbackUsed is set.
	Err error `json:"-"`
}

// Metadata describes how a prompt was produced.
type Metadata struct {
	GenerationID   string              `json:"generation_id"`
	TemplateID     string              `json:"template_id"`
	TemplateKind   catalog.MessageKind `json:"template_kind,omitempty"`
	PersonaID      string              `json:"persona_id"`
	SessionID      string              `json:"session_id,omitempty"`
	CatalogVersion string              `json:"catalog_version,omitempty"`

	// Variables are the resolved placeholder values.
	Variables map[string]string `json:"variables,omitempty"`

	Guardrails *guardrails.Result  `json:"guardrails,omitempty"`
	Escalation escalation.Decision `json:"escalation"`

	// Limitations are the persona's declared limitations, for the caller to
	// surface alongside the prompt.
	Limitations []string `json:"limitations,omitempty"`

	FallbackUsed bool      `json:"fallback_used"`
	Suppressed   bool      `json:"suppressed,omitempty"`
	Error        ErrorKind `json:"error,omitempty"`
	ErrorDetail  string    `json:"error_detail,omitempty"`

	Elapsed   time.Duration `json:"elapsed"`
	Timestamp time.Time     `json:"timestamp"`

	// NextStep is the conversation step the caller should advance to.
	NextStep int `json:"next_step"`

	// MessageCount echoes the conversation's message count.
	MessageCount int `json:"message_count"`
}

// Succeeded reports whether the generation produced a templated prompt.
// Suppressed prompts count as successful generations.
func (r *Result) Succeeded() bool {
	return !r.Metadata.FallbackUsed
}

// Escalated reports whether the generation requires a human handoff.
func (r *Result) Escalated() bool {
	return r.Metadata.Escalation.RequiresEscalation
}
