// Package catalog provides the template and persona registries used by the
// synthesis engine.
//
// Registries are built once from a list of definitions and are read-only
// afterwards: Get returns copies, so callers can never mutate a registered
// template or persona. Construction rejects duplicate IDs and invalid
// definitions.
//
// # Catalog Files
//
// A catalog file is YAML with two top-level lists:
//
//	templates:
//	  - id: customer_greeting
//	    kind: system
//	    body: "Greet {{customer_name}} warmly and ask how you can help today."
//	    variables:
//	      - name: customer_name
//	        type: string
//	        required: true
//	    allowed_personas: [tier1_customer_service]
//	    guardrail_level: medium
//	personas:
//	  - id: tier1_customer_service
//	    style: {formality: warm, length: balanced, tone: friendly}
//	    escalation_triggers: [legal, fraud]
//	    knowledge_tier: 1
//
// When no file is configured, Builtin provides a default catalog.
//
// # Hot Reload
//
// Watcher observes the catalog file with fsnotify and invokes a callback
// after changes settle. The callback is expected to load a new Catalog and
// swap in a new engine; existing registries are never modified.
package catalog
