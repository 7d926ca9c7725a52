package escalation

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"mercator-hq/concierge/pkg/catalog"
	"mercator-hq/concierge/pkg/config"
	"mercator-hq/concierge/pkg/conversation"
	"mercator-hq/concierge/pkg/synthesis/guardrails"
)

// Reason identifies an escalation trigger.
type Reason string

const (
	ReasonGuardrail      Reason = "guardrail"
	ReasonCompletion     Reason = "completion_threshold"
	ReasonMessageLimit   Reason = "message_limit"
	ReasonHumanRequest   Reason = "human_request"
	ReasonPersonaTrigger Reason = "persona_trigger"
	ReasonTopicTier      Reason = "topic_tier"
	ReasonSticky         Reason = "already_escalated"
)

// completionEpsilon absorbs float rounding in ratio comparisons.
const completionEpsilon = 1e-9

// Trigger is one fired escalation rule.
type Trigger struct {
	Reason Reason `json:"reason"`
	Detail string `json:"detail"`
}

// Decision is the combined escalation verdict. Every fired trigger is
// reported, not only the first.
type Decision struct {
	RequiresEscalation bool      `json:"requires_escalation"`
	Triggers           []Trigger `json:"triggers,omitempty"`
	CompletionRatio    float64   `json:"completion_ratio"`
	Reason             string    `json:"reason,omitempty"`
}

// Has reports whether the decision includes the given trigger reason.
func (d Decision) Has(r Reason) bool {
	for _, t := range d.Triggers {
		if t.Reason == r {
			return true
		}
	}
	return false
}

// Reasons returns the fired trigger reasons in evaluation order.
func (d Decision) Reasons() []Reason {
	out := make([]Reason, 0, len(d.Triggers))
	for _, t := range d.Triggers {
		out = append(out, t.Reason)
	}
	return out
}

// Ledger records sticky per-session escalation. Once a session is marked
// escalated it stays escalated until cleared by a human action outside the
// engine.
type Ledger interface {
	IsEscalated(ctx context.Context, sessionID string) (bool, error)
	MarkEscalated(ctx context.Context, sessionID, reason string) error
}

// Input is everything a decision depends on.
type Input struct {
	Context          *conversation.Context
	Persona          catalog.Persona
	Guardrails       *guardrails.Result
	AlreadyEscalated bool
}

// Engine combines guardrail severity, flow completion, message limits,
// human-request language, persona triggers, topic tiers, and session
// stickiness into one decision. It is safe for concurrent use.
type Engine struct {
	threshold   float64
	maxMessages int
	flows       map[string][]string
	topicTiers  map[string]int
	human       []*regexp.Regexp

	// triggers caches compiled persona keywords. Keywords come from the
	// catalog, which is fixed for the engine's lifetime.
	triggers sync.Map // lowercase keyword -> *regexp.Regexp
}

// NewEngine compiles the escalation rules from engine configuration.
func NewEngine(cfg *config.EngineConfig) (*Engine, error) {
	e := &Engine{
		threshold:   cfg.CompletionThreshold,
		maxMessages: cfg.MaxMessages,
		flows:       make(map[string][]string, len(cfg.Flows)),
		topicTiers:  make(map[string]int, len(cfg.TopicTiers)),
	}
	if e.threshold <= 0 {
		e.threshold = config.DefaultCompletionThreshold
	}
	if e.maxMessages <= 0 {
		e.maxMessages = config.DefaultMaxMessages
	}
	for topic, fields := range cfg.Flows {
		e.flows[strings.ToLower(topic)] = append([]string(nil), fields...)
	}
	for topic, tier := range cfg.TopicTiers {
		e.topicTiers[strings.ToLower(topic)] = tier
	}
	for i, p := range cfg.HumanRequestPatterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("human_request_patterns[%d]: invalid pattern %q: %w", i, p, err)
		}
		e.human = append(e.human, re)
	}
	return e, nil
}

// Flow returns the required fields for a topic.
func (e *Engine) Flow(topic string) []string {
	return e.flows[strings.ToLower(topic)]
}

// Decide evaluates every trigger. It performs no I/O.
func (e *Engine) Decide(in Input) Decision {
	conv := in.Context
	if conv == nil {
		conv = &conversation.Context{}
	}

	var d Decision
	add := func(r Reason, detail string) {
		d.Triggers = append(d.Triggers, Trigger{Reason: r, Detail: detail})
	}

	if in.AlreadyEscalated {
		add(ReasonSticky, "session already escalated")
	}

	if g := in.Guardrails; g != nil && (g.RequiresEscalation || g.RiskLevel >= guardrails.RiskHigh) {
		detail := fmt.Sprintf("guardrail risk %s", g.RiskLevel)
		if g.EscalationReason != "" {
			detail += ": " + g.EscalationReason
		}
		add(ReasonGuardrail, detail)
	}

	if flow := e.Flow(conv.Topic); len(flow) > 0 {
		d.CompletionRatio = conv.CompletionRatio(flow)
		if d.CompletionRatio+completionEpsilon >= e.threshold {
			add(ReasonCompletion, fmt.Sprintf("flow %q is %.0f%% complete", conv.Topic, d.CompletionRatio*100))
		}
	}

	if conv.MessageCount >= e.maxMessages {
		add(ReasonMessageLimit, fmt.Sprintf("message count %d reached limit %d", conv.MessageCount, e.maxMessages))
	}

	if text := conv.CustomerText(); text != "" {
		for _, re := range e.human {
			if re.MatchString(text) {
				add(ReasonHumanRequest, "customer asked for a human")
				break
			}
		}
	}

	if kw, ok := e.matchTrigger(in.Persona.EscalationTriggers, conv); ok {
		add(ReasonPersonaTrigger, fmt.Sprintf("persona %q escalates on %q", in.Persona.ID, kw))
	}

	if required, ok := e.topicTiers[strings.ToLower(conv.Topic)]; ok && in.Persona.ID != "" && required > in.Persona.KnowledgeTier {
		add(ReasonTopicTier, fmt.Sprintf("topic %q requires tier %d, persona is tier %d", conv.Topic, required, in.Persona.KnowledgeTier))
	}

	if len(d.Triggers) > 0 {
		d.RequiresEscalation = true
		details := make([]string, 0, len(d.Triggers))
		for _, t := range d.Triggers {
			details = append(details, t.Detail)
		}
		d.Reason = strings.Join(details, "; ")
	}

	return d
}

// matchTrigger finds the first persona trigger keyword in the topic, intent,
// or latest customer message.
func (e *Engine) matchTrigger(keywords []string, conv *conversation.Context) (string, bool) {
	if len(keywords) == 0 {
		return "", false
	}
	haystack := strings.ToLower(strings.Join([]string{conv.Topic, conv.Intent, conv.CustomerText()}, " "))
	for _, kw := range keywords {
		re := e.triggerPattern(kw)
		if re != nil && re.MatchString(haystack) {
			return strings.TrimSpace(kw), true
		}
	}
	return "", false
}

// triggerPattern returns the whole-word pattern for a keyword, compiling it
// on first use. Blank keywords have no pattern.
func (e *Engine) triggerPattern(keyword string) *regexp.Regexp {
	key := strings.ToLower(strings.TrimSpace(keyword))
	if key == "" {
		return nil
	}
	if re, ok := e.triggers.Load(key); ok {
		return re.(*regexp.Regexp)
	}
	re, _ := e.triggers.LoadOrStore(key, regexp.MustCompile(`\b`+regexp.QuoteMeta(key)+`\b`))
	return re.(*regexp.Regexp)
}
