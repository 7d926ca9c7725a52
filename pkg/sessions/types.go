package sessions

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a session ID is not stored.
	ErrNotFound = errors.New("session not found")

	// ErrReviewerRequired is returned when Clear is called without a
	// reviewer.
	ErrReviewerRequired = errors.New("reviewer is required to clear escalation")
)

// Session is the persisted state of one conversation.
type Session struct {
	ID string `json:"id"`

	// Escalated is sticky: once set it stays set until a reviewer clears it.
	Escalated        bool      `json:"escalated"`
	EscalationReason string    `json:"escalation_reason,omitempty"`
	EscalatedAt      time.Time `json:"escalated_at,omitempty"`

	// ClearedBy is the reviewer who last cleared escalation.
	ClearedBy string    `json:"cleared_by,omitempty"`
	ClearedAt time.Time `json:"cleared_at,omitempty"`

	NextStep     int    `json:"next_step"`
	MessageCount int    `json:"message_count"`
	Generations  int64  `json:"generations"`
	LastTemplate string `json:"last_template,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Activity is one generation's effect on a session.
type Activity struct {
	TemplateID   string
	NextStep     int
	MessageCount int
}

// Store persists sessions. Implementations must be safe for concurrent use.
type Store interface {
	// Get returns a copy of the session or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// MarkEscalated sets the escalated flag, creating the session if needed.
	// The first reason and time are kept while the session stays escalated.
	MarkEscalated(ctx context.Context, id, reason string, at time.Time) error

	// Clear resets the escalated flag. It is the only way escalation is
	// undone and requires a reviewer.
	Clear(ctx context.Context, id, reviewer string) error

	// Touch records a generation, creating the session if needed.
	Touch(ctx context.Context, id string, a Activity, at time.Time) error

	// List returns every session ordered by ID.
	List(ctx context.Context) ([]*Session, error)

	// Cleanup deletes non-escalated sessions not updated since olderThan and
	// returns the number removed.
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases resources. The store must not be used afterwards.
	Close() error
}
