// Package audit keeps a trail of prompt generations.
//
// Each generation produces one Record: identifiers, the SHA-256 of the
// prompt, a bounded and redacted excerpt, the guardrail verdict, escalation
// reasons, and fallback state. The Recorder builds records as a
// synthesis.Observer and writes them asynchronously through a buffered
// channel; Close drains the channel before returning.
//
// Storage backends live in the storage subpackage. Records can be exported
// as JSON, JSON lines, or CSV, and pruned by age with Prune.
package audit
