package escalation

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/concierge/pkg/catalog"
	"mercator-hq/concierge/pkg/config"
	"mercator-hq/concierge/pkg/conversation"
	"mercator-hq/concierge/pkg/synthesis/guardrails"
)

func newTestEngine(t *testing.T, mutate func(*config.EngineConfig)) *Engine {
	t.Helper()
	cfg := config.DefaultConfig().Engine
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := NewEngine(&cfg)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return e
}

func tenFieldFlow(cfg *config.EngineConfig) {
	fields := make([]string, 10)
	for i := range fields {
		fields[i] = fmt.Sprintf("field_%d", i)
	}
	cfg.Flows = map[string][]string{"intake": fields}
}

func contextWithFilled(n int) *conversation.Context {
	conv := &conversation.Context{Topic: "intake", Fields: map[string]string{}}
	for i := 0; i < n; i++ {
		conv.Fields[fmt.Sprintf("field_%d", i)] = "value"
	}
	return conv
}

func TestDecide_CompletionThresholdBoundary(t *testing.T) {
	e := newTestEngine(t, tenFieldFlow)

	tests := []struct {
		filled int
		want   bool
	}{
		{7, false},
		{8, true},
		{10, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_of_10", tt.filled), func(t *testing.T) {
			d := e.Decide(Input{Context: contextWithFilled(tt.filled)})
			if d.RequiresEscalation != tt.want {
				t.Errorf("expected requires_escalation=%v at %d/10, got %v", tt.want, tt.filled, d.RequiresEscalation)
			}
			if d.Has(ReasonCompletion) != tt.want {
				t.Errorf("expected completion trigger=%v, got %v", tt.want, d.Triggers)
			}
			want := float64(tt.filled) / 10
			if d.CompletionRatio != want {
				t.Errorf("expected ratio %v, got %v", want, d.CompletionRatio)
			}
		})
	}
}

func TestDecide_MessageLimitBoundary(t *testing.T) {
	e := newTestEngine(t, nil)

	tests := []struct {
		count int
		want  bool
	}{
		{7, false},
		{8, true},
		{9, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("count_%d", tt.count), func(t *testing.T) {
			d := e.Decide(Input{Context: &conversation.Context{MessageCount: tt.count}})
			if d.RequiresEscalation != tt.want {
				t.Errorf("expected requires_escalation=%v at count %d, got %v", tt.want, tt.count, d.RequiresEscalation)
			}
			if d.Has(ReasonMessageLimit) != tt.want {
				t.Errorf("expected message limit trigger=%v, got %v", tt.want, d.Triggers)
			}
		})
	}
}

func TestDecide_GuardrailTrigger(t *testing.T) {
	e := newTestEngine(t, nil)

	tests := []struct {
		name   string
		result *guardrails.Result
		want   bool
	}{
		{"nil result", nil, false},
		{"passed", &guardrails.Result{Passed: true, RiskLevel: guardrails.RiskLow}, false},
		{"requires escalation", &guardrails.Result{RiskLevel: guardrails.RiskMedium, RequiresEscalation: true}, true},
		{"high without flag", &guardrails.Result{RiskLevel: guardrails.RiskHigh}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := e.Decide(Input{Context: &conversation.Context{}, Guardrails: tt.result})
			if d.Has(ReasonGuardrail) != tt.want {
				t.Errorf("expected guardrail trigger=%v, got %v", tt.want, d.Triggers)
			}
		})
	}
}

func TestDecide_ReportsAllTriggers(t *testing.T) {
	e := newTestEngine(t, tenFieldFlow)

	conv := contextWithFilled(9)
	conv.MessageCount = 8
	conv.LastMessage = "Can I speak to a human please?"

	d := e.Decide(Input{
		Context:          conv,
		Guardrails:       &guardrails.Result{RiskLevel: guardrails.RiskCritical, RequiresEscalation: true, EscalationReason: "inappropriate content"},
		AlreadyEscalated: true,
	})

	want := []Reason{ReasonSticky, ReasonGuardrail, ReasonCompletion, ReasonMessageLimit, ReasonHumanRequest}
	if diff := cmp.Diff(want, d.Reasons()); diff != "" {
		t.Errorf("reasons mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(d.Reason, "inappropriate content") {
		t.Errorf("expected joined reason to include guardrail reason, got %q", d.Reason)
	}
	if strings.Count(d.Reason, "; ") != len(want)-1 {
		t.Errorf("expected %d joined details, got %q", len(want), d.Reason)
	}
}

func TestDecide_HumanRequest(t *testing.T) {
	e := newTestEngine(t, nil)

	tests := []struct {
		message string
		want    bool
	}{
		{"I want to talk to a real person", true},
		{"Please transfer me", true},
		{"Get me a live agent now", true},
		{"My order number is 123", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			d := e.Decide(Input{Context: &conversation.Context{LastMessage: tt.message}})
			if d.Has(ReasonHumanRequest) != tt.want {
				t.Errorf("expected human request=%v for %q, got %v", tt.want, tt.message, d.Triggers)
			}
		})
	}
}

func TestDecide_PersonaTriggerAndTopicTier(t *testing.T) {
	e := newTestEngine(t, nil)
	tier1 := catalog.Persona{ID: "tier1", KnowledgeTier: 1, EscalationTriggers: []string{"lawsuit", "security breach"}}
	tier3 := catalog.Persona{ID: "tier3", KnowledgeTier: 3}

	d := e.Decide(Input{
		Context: &conversation.Context{Topic: "general_inquiry", LastMessage: "I am preparing a lawsuit"},
		Persona: tier1,
	})
	if !d.Has(ReasonPersonaTrigger) {
		t.Errorf("expected persona trigger, got %v", d.Triggers)
	}

	d = e.Decide(Input{
		Context: &conversation.Context{Topic: "general_inquiry", LastMessage: "lawsuits are in the news"},
		Persona: tier1,
	})
	if d.Has(ReasonPersonaTrigger) {
		t.Errorf("expected whole-word keyword match only, got %v", d.Triggers)
	}

	d = e.Decide(Input{Context: &conversation.Context{Topic: "security"}, Persona: tier1})
	if !d.Has(ReasonTopicTier) {
		t.Errorf("expected topic tier trigger for tier 1 on security, got %v", d.Triggers)
	}

	d = e.Decide(Input{Context: &conversation.Context{Topic: "security"}, Persona: tier3})
	if d.RequiresEscalation {
		t.Errorf("expected tier 3 persona to handle security, got %v", d.Triggers)
	}
}

func TestTriggerPattern_CompiledOnce(t *testing.T) {
	e := newTestEngine(t, nil)
	persona := catalog.Persona{ID: "tier1", KnowledgeTier: 1, EscalationTriggers: []string{" ", "Security Breach"}}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d := e.Decide(Input{Context: &conversation.Context{LastMessage: "there was a security breach"}, Persona: persona})
			if !d.Has(ReasonPersonaTrigger) {
				t.Errorf("expected persona trigger, got %v", d.Triggers)
			}
		}()
	}
	wg.Wait()

	first := e.triggerPattern("Security Breach")
	if first == nil || first != e.triggerPattern("security breach ") {
		t.Error("expected one cached pattern per keyword")
	}
	if e.triggerPattern("  ") != nil {
		t.Error("expected no pattern for a blank keyword")
	}

	n := 0
	e.triggers.Range(func(_, _ any) bool { n++; return true })
	if n != 1 {
		t.Errorf("expected 1 cached pattern, got %d", n)
	}
}

func TestDecide_NoFlowNoCompletion(t *testing.T) {
	e := newTestEngine(t, nil)

	d := e.Decide(Input{Context: &conversation.Context{Topic: "unknown", Fields: map[string]string{"x": "y"}}})
	if d.RequiresEscalation {
		t.Errorf("expected no escalation for topic without flow, got %v", d.Triggers)
	}
	if d.CompletionRatio != 0 {
		t.Errorf("expected ratio 0, got %v", d.CompletionRatio)
	}
}

func TestNewEngine_InvalidPattern(t *testing.T) {
	cfg := config.DefaultConfig().Engine
	cfg.HumanRequestPatterns = []string{"(broken"}
	if _, err := NewEngine(&cfg); err == nil {
		t.Fatal("expected error for invalid human request pattern")
	}
}
