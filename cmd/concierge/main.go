// Concierge is a templated prompt-synthesis engine for tiered support agents.
//
// It renders persona-styled prompts from a template catalog, checks them
// against content-safety, compliance, and capability guardrails, and decides
// when a conversation must be handed to a human or a higher tier.
//
// Usage:
//
//	# Start the HTTP API with the built-in catalog
//	concierge run
//
//	# Start with a configuration file and catalog hot reload
//	concierge run --config /etc/concierge/config.yaml
//
//	# Render one prompt
//	concierge generate -t customer_greeting -p tier1_customer_service --var customer_name=Jane
//
//	# Check text against the guardrails
//	concierge guard --level high "you should buy this stock"
//
//	# Inspect the audit trail
//	concierge audit query --session s-123 --format json
package main

func main() {
	Execute()
}
