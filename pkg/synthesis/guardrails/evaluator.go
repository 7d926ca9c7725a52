package guardrails

import (
	"fmt"
	"regexp"
	"strings"

	"mercator-hq/concierge/pkg/config"
	"mercator-hq/concierge/pkg/conversation"
)

// ReasonInappropriateContent is the escalation reason for content-safety findings.
const ReasonInappropriateContent = "inappropriate content"

// Evaluator is a stateless guardrail rule engine. It is safe for concurrent
// use; all patterns are compiled at construction.
type Evaluator struct {
	contentSafety            []categoryPattern
	compliance               []tierRule
	capability               []tierRule
	escalationLevelThreshold int
}

type categoryPattern struct {
	kind ViolationKind
	re   *regexp.Regexp
}

type tierRule struct {
	kind     ViolationKind
	minTier  int
	patterns []*regexp.Regexp
}

// NewEvaluator compiles the configured rules. A nil config uses the
// built-in rules.
func NewEvaluator(cfg *config.GuardrailsConfig) (*Evaluator, error) {
	if cfg == nil {
		defaults := config.DefaultGuardrails()
		cfg = &defaults
	}

	e := &Evaluator{
		escalationLevelThreshold: cfg.EscalationLevelThreshold,
	}
	if e.escalationLevelThreshold <= 0 {
		e.escalationLevelThreshold = config.DefaultEscalationLevelThreshold
	}

	for i, rule := range cfg.ContentSafety {
		re, err := compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("content_safety[%d]: %w", i, err)
		}
		e.contentSafety = append(e.contentSafety, categoryPattern{kind: ViolationKind(rule.Category), re: re})
	}

	var err error
	if e.compliance, err = compileTierRules("compliance", cfg.Compliance); err != nil {
		return nil, err
	}
	if e.capability, err = compileTierRules("capability", cfg.Capability); err != nil {
		return nil, err
	}

	return e, nil
}

func compileTierRules(section string, rules []config.TierRule) ([]tierRule, error) {
	out := make([]tierRule, 0, len(rules))
	for i, rule := range rules {
		tr := tierRule{kind: ViolationKind(rule.Kind), minTier: rule.MinTier}
		for j, pattern := range rule.Patterns {
			re, err := compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("%s[%d].patterns[%d]: %w", section, i, j, err)
			}
			tr.patterns = append(tr.patterns, re)
		}
		out = append(out, tr)
	}
	return out, nil
}

// compile compiles a case-insensitive pattern.
func compile(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`(?i)` + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}

// Evaluate runs the four checks over text and folds every finding into a
// single result. level is the guardrail level of the template being
// evaluated; it raises the content-safety severity to critical for
// critical-level templates. A zero or negative agent tier is treated as tier 1.
//
// Empty or whitespace-only text passes with low risk.
func (e *Evaluator) Evaluate(text string, level RiskLevel, conv *conversation.Context) *Result {
	if strings.TrimSpace(text) == "" {
		return reduce(nil)
	}

	tier := 1
	escalationLevel := 0
	if conv != nil {
		if conv.AgentTier > 0 {
			tier = conv.AgentTier
		}
		escalationLevel = conv.EscalationLevel
	}

	var findings []Finding
	findings = append(findings, e.checkContentSafety(text, level)...)
	findings = append(findings, e.checkTierRules(CheckCompliance, e.compliance, RiskCritical, text, tier)...)
	findings = append(findings, e.checkEscalationLevel(escalationLevel)...)
	findings = append(findings, e.checkTierRules(CheckCapability, e.capability, RiskMedium, text, tier)...)

	return reduce(findings)
}

// checkContentSafety reports one finding per matched category.
func (e *Evaluator) checkContentSafety(text string, level RiskLevel) []Finding {
	severity := MaxRisk(RiskHigh, level)

	var findings []Finding
	matched := make(map[ViolationKind]bool)
	for _, p := range e.contentSafety {
		if matched[p.kind] {
			continue
		}
		if m := p.re.FindString(text); m != "" {
			matched[p.kind] = true
			findings = append(findings, Finding{
				Check:          CheckContentSafety,
				Kind:           p.kind,
				Severity:       severity,
				Reason:         ReasonInappropriateContent,
				Recommendation: "Revise the response to remove flagged language.",
				Match:          m,
			})
		}
	}
	return findings
}

// checkTierRules reports rules whose language is used below their minimum tier.
func (e *Evaluator) checkTierRules(check Check, rules []tierRule, severity RiskLevel, text string, tier int) []Finding {
	var findings []Finding
	for _, rule := range rules {
		if tier >= rule.minTier {
			continue
		}
		for _, re := range rule.patterns {
			m := re.FindString(text)
			if m == "" {
				continue
			}
			label := strings.ReplaceAll(string(rule.kind), "_", " ")
			f := Finding{
				Check:    check,
				Kind:     rule.kind,
				Severity: severity,
				Reason:   fmt.Sprintf("%s requires tier %d", label, rule.minTier),
				Match:    m,
			}
			if check == CheckCompliance {
				f.Recommendation = fmt.Sprintf("Transfer to a tier %d agent with compliance clearance for %s.", rule.minTier, label)
			} else {
				f.Recommendation = fmt.Sprintf("Route to a tier %d agent qualified for %s.", rule.minTier, label)
			}
			findings = append(findings, f)
			break
		}
	}
	return findings
}

// checkEscalationLevel fires on the context alone.
func (e *Evaluator) checkEscalationLevel(level int) []Finding {
	if level < e.escalationLevelThreshold {
		return nil
	}
	return []Finding{{
		Check:          CheckEscalationLevel,
		Kind:           ViolationEscalationLevel,
		Severity:       RiskHigh,
		Reason:         fmt.Sprintf("escalation level %d reached", level),
		Recommendation: "Hand the conversation to a human agent.",
	}}
}
