// Package performance aggregates per-template generation counters:
// attempts, successes, failures, and cumulative time. Counters are atomic and
// held in a sync.Map, so concurrent generations never lose updates.
package performance
