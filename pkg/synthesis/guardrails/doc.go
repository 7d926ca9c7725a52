// Package guardrails evaluates candidate text for safety, compliance, and
// capability violations.
//
// The Evaluator runs four independent checks on every call:
//
//   - Content safety: hate speech, violence, and inappropriate language
//     patterns. Severity is at least high (critical for critical-level
//     templates).
//   - Compliance: financial and legal advice language used below the tier
//     cleared for it. Severity is critical.
//   - Escalation level: the conversation's escalation level reached the
//     configured threshold, regardless of text. Severity is high.
//   - Capability: technical or expert language used below the tier qualified
//     for it. Severity is medium.
//
// Every finding requires escalation. Findings are folded by a single reducer
// into one Result whose RiskLevel is the maximum severity observed.
//
// The evaluator is pure and can vet any draft reply, not only prompts built
// by the synthesis engine:
//
//	eval, err := guardrails.NewEvaluator(&cfg.Guardrails)
//	if err != nil {
//		return err
//	}
//	result := eval.Evaluate(draft, guardrails.RiskMedium, conv)
//	if !result.Passed {
//		// hold the draft for review
//	}
package guardrails
