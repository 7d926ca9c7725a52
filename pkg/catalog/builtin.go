package catalog

import (
	"time"

	"mercator-hq/concierge/pkg/synthesis/guardrails"
)

// Built-in template IDs.
const (
	TemplateCustomerGreeting    = "customer_greeting"
	TemplateIssueTriage         = "issue_triage"
	TemplateBillingInquiry      = "billing_inquiry"
	TemplateTechnicalEscalation = "technical_escalation"
	TemplateEscalationHandoff   = "escalation_handoff"
	TemplateClosingSummary      = "closing_summary"
)

// Built-in persona IDs.
const (
	PersonaTier1CustomerService  = "tier1_customer_service"
	PersonaTier2TechnicalSupport = "tier2_technical_support"
	PersonaTier3Specialist       = "tier3_specialist"
)

// BuiltinTemplates returns the default template set.
func BuiltinTemplates() []Template {
	return []Template{
		{
			ID:          TemplateCustomerGreeting,
			Kind:        KindSystem,
			Description: "Opening turn for a new conversation",
			Body:        "You are a friendly customer support agent. Greet {{customer_name}} warmly and ask how you can help today.",
			Variables: []Variable{
				{Name: "customer_name", Type: TypeString, Required: true, Description: "Customer's display name"},
			},
			AllowedPersonas: []string{PersonaTier1CustomerService},
			GuardrailLevel:  guardrails.RiskMedium,
			Targets:         Targets{ExpectedLatency: 5 * time.Millisecond, QualityThreshold: 0.8},
		},
		{
			ID:          TemplateIssueTriage,
			Kind:        KindSystem,
			Description: "Collect the details required by the current flow",
			Body: "You are assisting {{customer_name}} with a {{topic}} request. " +
				"Ask clarifying questions to collect the following details: {{missing_fields}}. " +
				"This is step {{step}} of the conversation.",
			Variables: []Variable{
				{Name: "customer_name", Type: TypeString, Required: true},
				{Name: "topic", Type: TypeString, Required: true},
				{Name: "missing_fields", Type: TypeList, Default: []any{"any remaining details"}},
				{Name: "step", Type: TypeNumber, Default: 1},
			},
			AllowedPersonas: []string{PersonaTier1CustomerService, PersonaTier2TechnicalSupport},
			GuardrailLevel:  guardrails.RiskMedium,
			Targets:         Targets{ExpectedLatency: 5 * time.Millisecond, QualityThreshold: 0.75},
		},
		{
			ID:          TemplateBillingInquiry,
			Kind:        KindSystem,
			Description: "Explain charges on a customer's invoice",
			Body: "Help {{customer_name}} with a billing question about account {{account_number}}. " +
				"Review the invoice for {{billing_period}} and explain any charges clearly.",
			Variables: []Variable{
				{Name: "customer_name", Type: TypeString, Required: true},
				{Name: "account_number", Type: TypeString, Required: true},
				{Name: "billing_period", Type: TypeString, Default: "the current billing period"},
			},
			AllowedPersonas: []string{PersonaTier1CustomerService, PersonaTier2TechnicalSupport},
			GuardrailLevel:  guardrails.RiskHigh,
			Targets:         Targets{ExpectedLatency: 5 * time.Millisecond, QualityThreshold: 0.85},
		},
		{
			ID:          TemplateTechnicalEscalation,
			Kind:        KindSystem,
			Description: "Guide troubleshooting for a reported technical problem",
			Body: "The customer {{customer_name}} reports a technical issue with {{product}}: {{error_message}}. " +
				"Walk through troubleshooting steps for version {{version}} and document the results.",
			Variables: []Variable{
				{Name: "customer_name", Type: TypeString, Required: true},
				{Name: "product", Type: TypeString, Required: true},
				{Name: "error_message", Type: TypeString, Required: true},
				{Name: "version", Type: TypeString, Default: "latest"},
			},
			AllowedPersonas: []string{PersonaTier2TechnicalSupport, PersonaTier3Specialist},
			GuardrailLevel:  guardrails.RiskHigh,
			Targets:         Targets{ExpectedLatency: 10 * time.Millisecond, QualityThreshold: 0.9},
		},
		{
			ID:          TemplateEscalationHandoff,
			Kind:        KindSystem,
			Description: "Hand the conversation to a human specialist",
			Body: "Prepare a handoff summary for a human specialist. Customer: {{customer_name}}. " +
				"Topic: {{topic}}. Reason for escalation: {{escalation_reason}}. " +
				"Thank the customer for their patience and let them know a specialist will follow up.",
			Variables: []Variable{
				{Name: "customer_name", Type: TypeString, Required: true},
				{Name: "topic", Type: TypeString, Default: "general inquiry"},
				{Name: "escalation_reason", Type: TypeString, Default: "customer request"},
			},
			GuardrailLevel: guardrails.RiskHigh,
			Targets:        Targets{ExpectedLatency: 5 * time.Millisecond, QualityThreshold: 0.9},
		},
		{
			ID:          TemplateClosingSummary,
			Kind:        KindAssistant,
			Description: "Wrap up a resolved conversation",
			Body: "Thank {{customer_name}} for contacting us, summarize the resolution: {{resolution}}, " +
				"and ask if there is anything else we can help with.",
			Variables: []Variable{
				{Name: "customer_name", Type: TypeString, Required: true},
				{Name: "resolution", Type: TypeString, Default: "your request has been handled"},
			},
			GuardrailLevel: guardrails.RiskLow,
			Targets:        Targets{ExpectedLatency: 5 * time.Millisecond, QualityThreshold: 0.8},
		},
	}
}

// BuiltinPersonas returns the default persona set.
func BuiltinPersonas() []Persona {
	return []Persona{
		{
			ID:          PersonaTier1CustomerService,
			Name:        "Customer Service",
			Personality: []string{"patient", "warm", "positive"},
			Expertise:   []string{"account basics", "order status", "billing questions"},
			Style: Style{
				Formality: FormalityWarm,
				Length:    LengthBalanced,
				Tone:      ToneFriendly,
			},
			Limitations: []string{
				"cannot issue refunds above policy limits",
				"cannot perform technical diagnostics",
				"cannot give legal or financial advice",
			},
			EscalationTriggers: []string{"legal", "lawsuit", "fraud", "security breach"},
			KnowledgeTier:      1,
		},
		{
			ID:          PersonaTier2TechnicalSupport,
			Name:        "Technical Support",
			Personality: []string{"methodical", "precise"},
			Expertise:   []string{"troubleshooting", "configuration", "integrations"},
			Style: Style{
				Formality: FormalityFormal,
				Length:    LengthComprehensive,
				Tone:      ToneTechnical,
			},
			Limitations: []string{
				"cannot give legal advice",
				"cannot modify production infrastructure",
			},
			EscalationTriggers: []string{"lawsuit", "data loss", "security breach"},
			KnowledgeTier:      2,
		},
		{
			ID:          PersonaTier3Specialist,
			Name:        "Specialist",
			Personality: []string{"authoritative", "thorough"},
			Expertise:   []string{"root cause analysis", "compliance", "escalated accounts"},
			Style: Style{
				Formality: FormalityFormal,
				Length:    LengthComprehensive,
				Tone:      ToneProfessional,
			},
			Limitations:   []string{"cannot override contractual terms"},
			KnowledgeTier: 3,
		},
	}
}

// Builtin returns the built-in catalog. It panics if the built-in
// definitions are invalid, which is a programming error.
func Builtin() *Catalog {
	c, err := New(BuiltinTemplates(), BuiltinPersonas())
	if err != nil {
		panic("catalog: invalid built-in catalog: " + err.Error())
	}
	c.Source = "builtin"
	return c
}
