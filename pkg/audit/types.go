package audit

import (
	"context"
	"time"

	"mercator-hq/concierge/pkg/synthesis/guardrails"
)

// Record is the audit trail entry for one generation. Prompts are stored as
// a SHA-256 hash plus a bounded, redacted excerpt.
type Record struct {
	ID           string `json:"id"`            // UUID v4
	GenerationID string `json:"generation_id"` // From synthesis metadata
	SessionID    string `json:"session_id,omitempty"`

	TemplateID     string `json:"template_id"`
	PersonaID      string `json:"persona_id"`
	CatalogVersion string `json:"catalog_version,omitempty"`

	Timestamp  time.Time     `json:"timestamp"`   // When the generation started
	RecordedAt time.Time     `json:"recorded_at"` // When the record was built
	Elapsed    time.Duration `json:"elapsed"`

	PromptHash    string `json:"prompt_hash"`
	PromptExcerpt string `json:"prompt_excerpt"`

	Passed     bool                 `json:"passed"`
	RiskLevel  guardrails.RiskLevel `json:"risk_level"`
	Violations []string             `json:"violations,omitempty"`

	Escalated         bool     `json:"escalated"`
	EscalationReasons []string `json:"escalation_reasons,omitempty"`

	FallbackUsed bool   `json:"fallback_used"`
	Suppressed   bool   `json:"suppressed"`
	Error        string `json:"error,omitempty"`
	ErrorDetail  string `json:"error_detail,omitempty"`
}

// Query filters audit records. Zero-valued fields do not filter.
type Query struct {
	StartTime *time.Time `json:"start_time,omitempty"` // Inclusive
	EndTime   *time.Time `json:"end_time,omitempty"`   // Exclusive

	SessionID  string `json:"session_id,omitempty"`
	TemplateID string `json:"template_id,omitempty"`
	PersonaID  string `json:"persona_id,omitempty"`

	Escalated    *bool                 `json:"escalated,omitempty"`
	FallbackUsed *bool                 `json:"fallback_used,omitempty"`
	MinRiskLevel *guardrails.RiskLevel `json:"min_risk_level,omitempty"`

	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
	SortOrder string `json:"sort_order,omitempty"` // "asc" or "desc" by timestamp
}

// Matches reports whether r satisfies every filter in q. Pagination and
// ordering are ignored.
func (q *Query) Matches(r *Record) bool {
	if q.StartTime != nil && r.Timestamp.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && !r.Timestamp.Before(*q.EndTime) {
		return false
	}
	if q.SessionID != "" && r.SessionID != q.SessionID {
		return false
	}
	if q.TemplateID != "" && r.TemplateID != q.TemplateID {
		return false
	}
	if q.PersonaID != "" && r.PersonaID != q.PersonaID {
		return false
	}
	if q.Escalated != nil && r.Escalated != *q.Escalated {
		return false
	}
	if q.FallbackUsed != nil && r.FallbackUsed != *q.FallbackUsed {
		return false
	}
	if q.MinRiskLevel != nil && r.RiskLevel < *q.MinRiskLevel {
		return false
	}
	return true
}

// Storage persists audit records. Implementations must be safe for
// concurrent use.
type Storage interface {
	// Store persists a record.
	Store(ctx context.Context, record *Record) error

	// Query returns records matching the query, ordered by timestamp.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// Count returns the number of matching records, ignoring pagination.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes matching records and returns how many were removed.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases resources held by the storage backend.
	Close() error
}
