// Package escalation decides whether a conversation must be handed to a
// human.
//
// Triggers:
//
//   - guardrail result requires escalation or has risk high or above
//   - completion ratio of the topic's flow reaches the threshold (default 0.8)
//   - message count reaches the maximum (default 8)
//   - the latest customer message matches a human-request pattern
//   - a persona escalation keyword appears in the topic, intent, or message
//   - the topic requires a higher knowledge tier than the persona has
//   - the session was already escalated
//
// Decide is pure. Stickiness is recorded by a Ledger implementation owned by
// the caller; the engine never clears escalation.
package escalation
