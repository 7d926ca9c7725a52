package guardrails

import (
	"fmt"
	"strings"
)

// RiskLevel is a totally ordered severity: low < medium < high < critical.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskCritical
)

var riskNames = [...]string{"low", "medium", "high", "critical"}

// String returns the lowercase name of the level.
func (r RiskLevel) String() string {
	if r < RiskLow || r > RiskCritical {
		return fmt.Sprintf("RiskLevel(%d)", int(r))
	}
	return riskNames[r]
}

// ParseRiskLevel parses a level name. The empty string parses as low.
func ParseRiskLevel(s string) (RiskLevel, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return RiskLow, nil
	}
	for i, n := range riskNames {
		if n == name {
			return RiskLevel(i), nil
		}
	}
	return RiskLow, fmt.Errorf("unknown risk level %q: must be one of low, medium, high, critical", s)
}

// MarshalText implements encoding.TextMarshaler.
func (r RiskLevel) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *RiskLevel) UnmarshalText(text []byte) error {
	level, err := ParseRiskLevel(string(text))
	if err != nil {
		return err
	}
	*r = level
	return nil
}

// MaxRisk returns the more severe of two levels.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if b > a {
		return b
	}
	return a
}

// Check identifies which of the four guardrail checks produced a finding.
type Check string

const (
	CheckContentSafety   Check = "content_safety"
	CheckCompliance      Check = "compliance"
	CheckEscalationLevel Check = "escalation_level"
	CheckCapability      Check = "capability"
)

// ViolationKind is the tagged kind of a guardrail violation.
// Content-safety kinds are the configured categories; compliance and
// capability kinds are the configured rule kinds.
type ViolationKind string

// Built-in violation kinds.
const (
	ViolationHateSpeech            ViolationKind = "hate_speech"
	ViolationViolence              ViolationKind = "violence"
	ViolationInappropriateLanguage ViolationKind = "inappropriate_language"
	ViolationFinancialAdvice       ViolationKind = "financial_advice"
	ViolationLegalAdvice           ViolationKind = "legal_advice"
	ViolationEscalationLevel       ViolationKind = "escalation_level"
	ViolationTechnicalCapability   ViolationKind = "technical_capability"
	ViolationExpertCapability      ViolationKind = "expert_capability"
)

// Finding is a single triggered check.
type Finding struct {
	// Check is the check that fired.
	Check Check `json:"check"`

	// Kind is the violation kind.
	Kind ViolationKind `json:"kind"`

	// Severity is the severity this finding contributes.
	Severity RiskLevel `json:"severity"`

	// Reason is a short escalation reason.
	Reason string `json:"reason"`

	// Recommendation is a remediation hint.
	Recommendation string `json:"recommendation"`

	// Match is the text that triggered the finding, if any.
	Match string `json:"match,omitempty"`
}

// Result is the verdict of a guardrail evaluation.
type Result struct {
	// Passed is true when no violation was found.
	Passed bool `json:"passed"`

	// Violations is the set of violation kinds, in detection order.
	Violations []ViolationKind `json:"violations"`

	// RiskLevel is the maximum severity over all findings.
	RiskLevel RiskLevel `json:"risk_level"`

	// Recommendations are remediation hints, one per distinct finding.
	Recommendations []string `json:"recommendations"`

	// RequiresEscalation is true when any finding requires a human.
	RequiresEscalation bool `json:"requires_escalation"`

	// EscalationReason joins the reasons of all findings with "; ".
	EscalationReason string `json:"escalation_reason,omitempty"`

	// Findings holds the individual triggered checks.
	Findings []Finding `json:"findings,omitempty"`
}

// Has reports whether the result contains the given violation kind.
func (r *Result) Has(kind ViolationKind) bool {
	if r == nil {
		return false
	}
	for _, v := range r.Violations {
		if v == kind {
			return true
		}
	}
	return false
}

// reduce folds findings into a single result. Severity is the running
// maximum over all findings; violations and recommendations are deduplicated
// preserving order.
func reduce(findings []Finding) *Result {
	result := &Result{
		Passed:          true,
		Violations:      []ViolationKind{},
		RiskLevel:       RiskLow,
		Recommendations: []string{},
	}

	seenKind := make(map[ViolationKind]bool)
	seenRec := make(map[string]bool)
	seenReason := make(map[string]bool)
	var reasons []string

	for _, f := range findings {
		result.Passed = false
		result.RequiresEscalation = true
		result.RiskLevel = MaxRisk(result.RiskLevel, f.Severity)

		if !seenKind[f.Kind] {
			seenKind[f.Kind] = true
			result.Violations = append(result.Violations, f.Kind)
		}
		if f.Recommendation != "" && !seenRec[f.Recommendation] {
			seenRec[f.Recommendation] = true
			result.Recommendations = append(result.Recommendations, f.Recommendation)
		}
		if f.Reason != "" && !seenReason[f.Reason] {
			seenReason[f.Reason] = true
			reasons = append(reasons, f.Reason)
		}
	}

	result.EscalationReason = strings.Join(reasons, "; ")
	result.Findings = findings
	return result
}
