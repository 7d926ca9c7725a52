// Package variables resolves and substitutes template variables.
//
// Resolution precedence, lowest to highest: the template's declared default,
// the value derived from the conversation context, the explicitly supplied
// value. Context lookup checks the customer profile, then extracted flow
// fields, then the built-in attributes (session_id, topic, intent,
// agent_tier, escalation_level, step, message_count).
package variables
