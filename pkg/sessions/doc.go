// Package sessions stores per-conversation state: the sticky escalation
// flag, who cleared it, and counters updated after each generation.
//
// Two backends implement Store:
//
//   - MemoryStore: in-process, lost on restart
//   - SQLiteStore: durable, backed by modernc.org/sqlite
//
// Ledger adapts a Store to escalation.Ledger so the synthesis engine can
// read and record sticky escalation. Tracker is a synthesis.Observer that
// records step, message count, and generation count per session.
//
// Escalation is only undone by Clear, which names the reviewer. Cleanup
// never removes escalated sessions.
package sessions
