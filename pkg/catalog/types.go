package catalog

import (
	"fmt"
	"strings"
	"time"

	"mercator-hq/concierge/pkg/synthesis/guardrails"
)

// MessageKind is the chat role a template renders for.
type MessageKind string

const (
	KindSystem    MessageKind = "system"
	KindAssistant MessageKind = "assistant"
)

// VariableType is the semantic type of a template variable.
type VariableType string

const (
	TypeString  VariableType = "string"
	TypeNumber  VariableType = "number"
	TypeBoolean VariableType = "boolean"
	TypeList    VariableType = "list"
)

// Formality is the persona's register.
type Formality string

const (
	FormalityFormal Formality = "formal"
	FormalityWarm   Formality = "warm"
	FormalityCasual Formality = "casual"
)

// Length is the persona's response-length preference.
type Length string

const (
	LengthConcise       Length = "concise"
	LengthBalanced      Length = "balanced"
	LengthComprehensive Length = "comprehensive"
)

// Tone is the persona's tone.
type Tone string

const (
	ToneFriendly     Tone = "friendly"
	ToneProfessional Tone = "professional"
	ToneTechnical    Tone = "technical"
	ToneEmpathetic   Tone = "empathetic"
)

// Template is a reusable message skeleton with named placeholders and
// persona and guardrail constraints. Templates are immutable once registered;
// registries hand out copies.
type Template struct {
	// ID uniquely identifies the template.
	ID string `yaml:"id" json:"id"`

	// Kind is the chat role the template renders for.
	Kind MessageKind `yaml:"kind" json:"kind"`

	// Description is a human-readable summary.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Body contains {{name}} placeholders.
	Body string `yaml:"body" json:"body"`

	// Variables declares the template's variables.
	Variables []Variable `yaml:"variables,omitempty" json:"variables,omitempty"`

	// AllowedPersonas restricts which personas may use the template.
	// Empty means unrestricted.
	AllowedPersonas []string `yaml:"allowed_personas,omitempty" json:"allowed_personas,omitempty"`

	// GuardrailLevel is the sensitivity the rendered prompt is checked at.
	GuardrailLevel guardrails.RiskLevel `yaml:"guardrail_level" json:"guardrail_level"`

	// Targets are the template's performance targets.
	Targets Targets `yaml:"targets,omitempty" json:"targets,omitempty"`
}

// Variable describes a template variable.
type Variable struct {
	Name        string       `yaml:"name" json:"name"`
	Type        VariableType `yaml:"type" json:"type"`
	Required    bool         `yaml:"required" json:"required"`
	Default     any          `yaml:"default,omitempty" json:"default,omitempty"`
	Description string       `yaml:"description,omitempty" json:"description,omitempty"`
}

// Targets are informational performance targets for a template.
type Targets struct {
	// ExpectedLatency is the expected generation latency.
	ExpectedLatency time.Duration `yaml:"expected_latency,omitempty" json:"expected_latency,omitempty"`

	// QualityThreshold is the minimum acceptable quality score (0.0-1.0).
	QualityThreshold float64 `yaml:"quality_threshold,omitempty" json:"quality_threshold,omitempty"`
}

// AllowsPersona reports whether the persona may use this template.
func (t Template) AllowsPersona(personaID string) bool {
	if len(t.AllowedPersonas) == 0 {
		return true
	}
	for _, id := range t.AllowedPersonas {
		if id == personaID {
			return true
		}
	}
	return false
}

// Variable returns the declared variable with the given name.
func (t Template) Variable(name string) (Variable, bool) {
	for _, v := range t.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}

// Validate checks the template definition.
func (t Template) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return &DefinitionError{Kind: "template", Field: "id", Message: "id is required"}
	}
	switch t.Kind {
	case KindSystem, KindAssistant:
	default:
		return &DefinitionError{Kind: "template", ID: t.ID, Field: "kind",
			Message: fmt.Sprintf("invalid kind %q: must be 'system' or 'assistant'", t.Kind)}
	}
	if strings.TrimSpace(t.Body) == "" {
		return &DefinitionError{Kind: "template", ID: t.ID, Field: "body", Message: "body is required"}
	}
	if t.GuardrailLevel < guardrails.RiskLow || t.GuardrailLevel > guardrails.RiskCritical {
		return &DefinitionError{Kind: "template", ID: t.ID, Field: "guardrail_level", Message: "invalid guardrail level"}
	}

	seen := make(map[string]bool, len(t.Variables))
	for i, v := range t.Variables {
		field := fmt.Sprintf("variables[%d]", i)
		if v.Name == "" {
			return &DefinitionError{Kind: "template", ID: t.ID, Field: field, Message: "variable name is required"}
		}
		if seen[v.Name] {
			return &DefinitionError{Kind: "template", ID: t.ID, Field: field,
				Message: fmt.Sprintf("duplicate variable %q", v.Name)}
		}
		seen[v.Name] = true
		switch v.Type {
		case "", TypeString, TypeNumber, TypeBoolean, TypeList:
		default:
			return &DefinitionError{Kind: "template", ID: t.ID, Field: field + ".type",
				Message: fmt.Sprintf("invalid type %q", v.Type)}
		}
	}

	if t.Targets.QualityThreshold < 0 || t.Targets.QualityThreshold > 1 {
		return &DefinitionError{Kind: "template", ID: t.ID, Field: "targets.quality_threshold",
			Message: "quality threshold must be between 0.0 and 1.0"}
	}

	return nil
}

func (t Template) clone() Template {
	out := t
	out.Variables = append([]Variable(nil), t.Variables...)
	out.AllowedPersonas = append([]string(nil), t.AllowedPersonas...)
	return out
}

// Persona is a named bundle of style and capability constraints.
// Personas are immutable once registered; registries hand out copies.
type Persona struct {
	// ID uniquely identifies the persona.
	ID string `yaml:"id" json:"id"`

	// Name is a display name.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Personality tags (informational).
	Personality []string `yaml:"personality,omitempty" json:"personality,omitempty"`

	// Expertise tags (informational).
	Expertise []string `yaml:"expertise,omitempty" json:"expertise,omitempty"`

	// Style drives the style transform pipeline.
	Style Style `yaml:"style" json:"style"`

	// Limitations lists what the persona must not do.
	Limitations []string `yaml:"limitations,omitempty" json:"limitations,omitempty"`

	// EscalationTriggers are topic keywords that force escalation.
	EscalationTriggers []string `yaml:"escalation_triggers,omitempty" json:"escalation_triggers,omitempty"`

	// KnowledgeTier gates the topics the persona may handle.
	KnowledgeTier int `yaml:"knowledge_tier" json:"knowledge_tier"`
}

// Style holds the persona's style knobs.
type Style struct {
	Formality Formality `yaml:"formality" json:"formality"`
	Length    Length    `yaml:"length" json:"length"`
	Tone      Tone      `yaml:"tone" json:"tone"`
}

// Validate checks the persona definition.
func (p Persona) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return &DefinitionError{Kind: "persona", Field: "id", Message: "id is required"}
	}
	switch p.Style.Formality {
	case FormalityFormal, FormalityWarm, FormalityCasual:
	default:
		return &DefinitionError{Kind: "persona", ID: p.ID, Field: "style.formality",
			Message: fmt.Sprintf("invalid formality %q", p.Style.Formality)}
	}
	switch p.Style.Length {
	case LengthConcise, LengthBalanced, LengthComprehensive:
	default:
		return &DefinitionError{Kind: "persona", ID: p.ID, Field: "style.length",
			Message: fmt.Sprintf("invalid length %q", p.Style.Length)}
	}
	switch p.Style.Tone {
	case ToneFriendly, ToneProfessional, ToneTechnical, ToneEmpathetic:
	default:
		return &DefinitionError{Kind: "persona", ID: p.ID, Field: "style.tone",
			Message: fmt.Sprintf("invalid tone %q", p.Style.Tone)}
	}
	if p.KnowledgeTier < 1 {
		return &DefinitionError{Kind: "persona", ID: p.ID, Field: "knowledge_tier",
			Message: "knowledge tier must be at least 1"}
	}
	return nil
}

func (p Persona) clone() Persona {
	out := p
	out.Personality = append([]string(nil), p.Personality...)
	out.Expertise = append([]string(nil), p.Expertise...)
	out.Limitations = append([]string(nil), p.Limitations...)
	out.EscalationTriggers = append([]string(nil), p.EscalationTriggers...)
	return out
}
