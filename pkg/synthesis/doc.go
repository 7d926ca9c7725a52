// Package synthesis orchestrates prompt generation for tiered support
// personas.
//
// A call to Engine.Generate runs the pipeline:
//
//	template + persona lookup
//	  -> compatibility check
//	  -> variable resolution (explicit > conversation > default)
//	  -> placeholder substitution
//	  -> persona style transforms
//	  -> guardrail evaluation
//	  -> escalation decision
//	  -> performance sample, observers
//
// Generate never returns an error. Any failure, including a recovered panic,
// yields the configured fallback prompt with Metadata.FallbackUsed set and a
// typed *GenerationError in Result.Err.
//
// # Usage
//
//	eng, err := synthesis.New(synthesis.Options{
//	    Catalog: catalog.Builtin(),
//	    Ledger:  sessions.NewLedger(store),
//	})
//	if err != nil {
//	    return err
//	}
//	res := eng.Generate(ctx, "customer_greeting", "tier1_customer_service", conv, nil)
//
// The engine is immutable after construction. Reloading the catalog means
// building a new Engine; share one performance.Aggregator across engines to
// keep counters.
package synthesis
