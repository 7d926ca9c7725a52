// Package conversation defines the conversation context consumed by the
// synthesis engine: customer profile, topic, escalation level, agent tier,
// step and message counters, and the flow fields filled by an external
// entity extractor.
//
// A Context is read-only for the engine. Derived values such as the next
// step are reported through generation metadata rather than written back.
package conversation
