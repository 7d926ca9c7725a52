// Package style applies a persona's style knobs to rendered text.
//
// Transforms run in a fixed order (formality, length, tone), are
// deterministic, and are idempotent: every insertion is gated on the absence
// of the inserted phrase, so applying the pipeline twice yields the same
// text as applying it once.
package style
