package guardrails

import (
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/concierge/pkg/config"
	"mercator-hq/concierge/pkg/conversation"
)

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(nil)
	if err != nil {
		t.Fatalf("failed to create evaluator: %v", err)
	}
	return e
}

func TestEvaluate_Checks(t *testing.T) {
	e := newTestEvaluator(t)

	tests := []struct {
		name           string
		text           string
		level          RiskLevel
		conv           *conversation.Context
		wantPassed     bool
		wantRisk       RiskLevel
		wantViolations []ViolationKind
	}{
		{
			name:           "clean greeting",
			text:           "Hello Jane, how can I help you today?",
			level:          RiskMedium,
			conv:           &conversation.Context{AgentTier: 1},
			wantPassed:     true,
			wantRisk:       RiskLow,
			wantViolations: []ViolationKind{},
		},
		{
			name:           "hate speech",
			text:           "Honestly, I hate you and your questions.",
			level:          RiskLow,
			conv:           &conversation.Context{AgentTier: 3},
			wantRisk:       RiskHigh,
			wantViolations: []ViolationKind{ViolationHateSpeech},
		},
		{
			name:           "hate speech on critical template",
			text:           "I hate you",
			level:          RiskCritical,
			conv:           &conversation.Context{AgentTier: 3},
			wantRisk:       RiskCritical,
			wantViolations: []ViolationKind{ViolationHateSpeech},
		},
		{
			name:           "inappropriate language",
			text:           "What a stupid customer request.",
			level:          RiskMedium,
			conv:           &conversation.Context{AgentTier: 2},
			wantRisk:       RiskHigh,
			wantViolations: []ViolationKind{ViolationInappropriateLanguage},
		},
		{
			name:           "financial advice below tier 2",
			text:           "You should invest in index funds.",
			level:          RiskMedium,
			conv:           &conversation.Context{AgentTier: 1},
			wantRisk:       RiskCritical,
			wantViolations: []ViolationKind{ViolationFinancialAdvice},
		},
		{
			name:           "financial advice at tier 2",
			text:           "You should invest in index funds.",
			level:          RiskMedium,
			conv:           &conversation.Context{AgentTier: 2},
			wantPassed:     true,
			wantRisk:       RiskLow,
			wantViolations: []ViolationKind{},
		},
		{
			name:           "legal advice below tier 3",
			text:           "My legal advice is to wait.",
			level:          RiskMedium,
			conv:           &conversation.Context{AgentTier: 2},
			wantRisk:       RiskCritical,
			wantViolations: []ViolationKind{ViolationLegalAdvice},
		},
		{
			name:           "escalation level reached on clean text",
			text:           "Thanks for waiting.",
			level:          RiskLow,
			conv:           &conversation.Context{AgentTier: 1, EscalationLevel: 3},
			wantRisk:       RiskHigh,
			wantViolations: []ViolationKind{ViolationEscalationLevel},
		},
		{
			name:           "escalation level below threshold",
			text:           "Thanks for waiting.",
			level:          RiskLow,
			conv:           &conversation.Context{AgentTier: 1, EscalationLevel: 2},
			wantPassed:     true,
			wantRisk:       RiskLow,
			wantViolations: []ViolationKind{},
		},
		{
			name:           "technical capability below tier 2",
			text:           "I can grant you admin access.",
			level:          RiskLow,
			conv:           &conversation.Context{AgentTier: 1},
			wantRisk:       RiskMedium,
			wantViolations: []ViolationKind{ViolationTechnicalCapability},
		},
		{
			name:           "expert capability below tier 3",
			text:           "I will run a root cause analysis.",
			level:          RiskLow,
			conv:           &conversation.Context{AgentTier: 2},
			wantRisk:       RiskMedium,
			wantViolations: []ViolationKind{ViolationExpertCapability},
		},
		{
			name:           "nil context is tier one",
			text:           "I can grant you admin access.",
			level:          RiskLow,
			conv:           nil,
			wantRisk:       RiskMedium,
			wantViolations: []ViolationKind{ViolationTechnicalCapability},
		},
		{
			name:           "empty text passes regardless of context",
			text:           "   ",
			level:          RiskCritical,
			conv:           &conversation.Context{EscalationLevel: 5},
			wantPassed:     true,
			wantRisk:       RiskLow,
			wantViolations: []ViolationKind{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.Evaluate(tt.text, tt.level, tt.conv)

			if result.Passed != tt.wantPassed {
				t.Errorf("expected passed=%v, got %v", tt.wantPassed, result.Passed)
			}
			if result.RiskLevel != tt.wantRisk {
				t.Errorf("expected risk %s, got %s", tt.wantRisk, result.RiskLevel)
			}
			if diff := cmp.Diff(tt.wantViolations, result.Violations); diff != "" {
				t.Errorf("violations mismatch (-want +got):\n%s", diff)
			}
			if result.RequiresEscalation == tt.wantPassed {
				t.Errorf("expected requires_escalation=%v, got %v", !tt.wantPassed, result.RequiresEscalation)
			}
			if !tt.wantPassed && len(result.Recommendations) == 0 {
				t.Error("expected at least one recommendation")
			}
		})
	}
}

func TestEvaluate_ContentSafetyReason(t *testing.T) {
	e := newTestEvaluator(t)

	result := e.Evaluate("I hate you", RiskLow, &conversation.Context{AgentTier: 3})
	if result.EscalationReason != ReasonInappropriateContent {
		t.Errorf("expected reason %q, got %q", ReasonInappropriateContent, result.EscalationReason)
	}
}

func TestEvaluate_MaxSeverityWins(t *testing.T) {
	e := newTestEvaluator(t)

	conv := &conversation.Context{AgentTier: 1, EscalationLevel: 3}
	result := e.Evaluate("I hate you. You should invest in crypto. I can grant admin access.", RiskLow, conv)

	if result.RiskLevel != RiskCritical {
		t.Errorf("expected critical, got %s", result.RiskLevel)
	}

	want := []ViolationKind{
		ViolationHateSpeech,
		ViolationFinancialAdvice,
		ViolationEscalationLevel,
		ViolationTechnicalCapability,
	}
	if diff := cmp.Diff(want, result.Violations); diff != "" {
		t.Errorf("violations mismatch (-want +got):\n%s", diff)
	}

	reasons := strings.Split(result.EscalationReason, "; ")
	if len(reasons) != 4 {
		t.Errorf("expected 4 joined reasons, got %q", result.EscalationReason)
	}
	if reasons[0] != ReasonInappropriateContent {
		t.Errorf("expected first reason %q, got %q", ReasonInappropriateContent, reasons[0])
	}
}

func TestEvaluate_CustomRules(t *testing.T) {
	cfg := &config.GuardrailsConfig{
		ContentSafety: []config.PatternRule{{Category: "competitor", Pattern: `\bacme corp\b`}},
		Compliance:    []config.TierRule{},
		Capability:    []config.TierRule{},
	}
	e, err := NewEvaluator(cfg)
	if err != nil {
		t.Fatalf("failed to create evaluator: %v", err)
	}

	result := e.Evaluate("Have you tried ACME Corp instead?", RiskLow, nil)
	if !result.Has("competitor") {
		t.Errorf("expected competitor violation, got %v", result.Violations)
	}
	if result.Findings[0].Match != "ACME Corp" {
		t.Errorf("expected match %q, got %q", "ACME Corp", result.Findings[0].Match)
	}
}

func TestNewEvaluator_InvalidPattern(t *testing.T) {
	cfg := config.DefaultGuardrails()
	cfg.Capability = []config.TierRule{{Kind: "broken", MinTier: 2, Patterns: []string{"(unclosed"}}}

	if _, err := NewEvaluator(&cfg); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestEvaluate_Concurrent(t *testing.T) {
	e := newTestEvaluator(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conv := &conversation.Context{AgentTier: 1 + i%3}
			result := e.Evaluate("I hate you", RiskLow, conv)
			if result.RiskLevel < RiskHigh {
				t.Errorf("expected at least high, got %s", result.RiskLevel)
			}
		}(i)
	}
	wg.Wait()
}
