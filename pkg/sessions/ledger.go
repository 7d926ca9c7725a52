package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/concierge/pkg/config"
	"mercator-hq/concierge/pkg/synthesis"
	"mercator-hq/concierge/pkg/synthesis/escalation"
)

var (
	_ escalation.Ledger  = (*Ledger)(nil)
	_ synthesis.Observer = (*Tracker)(nil)
	_ Store              = (*MemoryStore)(nil)
	_ Store              = (*SQLiteStore)(nil)
)

// Open creates the store selected by configuration.
func Open(cfg config.SessionsConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		s, err := NewSQLiteStore(cfg.SQLite)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported sessions backend: %s", cfg.Backend)
	}
}

// Ledger adapts a Store to the escalation ledger used by the synthesis
// engine.
type Ledger struct {
	store Store
	now   func() time.Time
}

// NewLedger creates a ledger over store.
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// IsEscalated reports whether the session is currently escalated. Unknown
// sessions are not escalated.
func (l *Ledger) IsEscalated(ctx context.Context, sessionID string) (bool, error) {
	s, err := l.store.Get(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.Escalated, nil
}

// MarkEscalated records escalation for the session.
func (l *Ledger) MarkEscalated(ctx context.Context, sessionID, reason string) error {
	return l.store.MarkEscalated(ctx, sessionID, reason, l.now())
}

// Tracker is a synthesis observer that records per-session activity.
type Tracker struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewTracker creates a tracker writing to store.
func NewTracker(store Store, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		store:  store,
		logger: logger.With("component", "sessions"),
		now:    time.Now,
	}
}

// ObserveGeneration implements synthesis.Observer. Results without a
// session ID are ignored.
func (t *Tracker) ObserveGeneration(ctx context.Context, res *synthesis.Result) {
	md := res.Metadata
	if md.SessionID == "" {
		return
	}
	err := t.store.Touch(ctx, md.SessionID, Activity{
		TemplateID:   md.TemplateID,
		NextStep:     md.NextStep,
		MessageCount: md.MessageCount,
	}, t.now())
	if err != nil {
		t.logger.Error("failed to record session activity",
			"session_id", md.SessionID,
			"generation_id", md.GenerationID,
			"error", err,
		)
	}
}
