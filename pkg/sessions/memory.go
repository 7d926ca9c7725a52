package sessions

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. All data is lost when the
// process exits.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

// Get returns a copy of the session.
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cp := *s
	return &cp, nil
}

// MarkEscalated sets the sticky escalated flag.
func (m *MemoryStore) MarkEscalated(_ context.Context, id, reason string, at time.Time) error {
	if id == "" {
		return fmt.Errorf("session id cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.getOrCreate(id, at)
	if !s.Escalated {
		s.Escalated = true
		s.EscalationReason = reason
		s.EscalatedAt = at
	}
	s.UpdatedAt = at
	return nil
}

// Clear resets the escalated flag on behalf of a reviewer.
func (m *MemoryStore) Clear(_ context.Context, id, reviewer string) error {
	if reviewer == "" {
		return ErrReviewerRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	now := time.Now()
	s.Escalated = false
	s.EscalationReason = ""
	s.EscalatedAt = time.Time{}
	s.ClearedBy = reviewer
	s.ClearedAt = now
	s.UpdatedAt = now
	return nil
}

// Touch records one generation for the session.
func (m *MemoryStore) Touch(_ context.Context, id string, a Activity, at time.Time) error {
	if id == "" {
		return fmt.Errorf("session id cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.getOrCreate(id, at)
	s.NextStep = a.NextStep
	s.MessageCount = a.MessageCount
	s.LastTemplate = a.TemplateID
	s.Generations++
	s.UpdatedAt = at
	return nil
}

// List returns copies of every session ordered by ID.
func (m *MemoryStore) List(_ context.Context) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Cleanup removes idle, non-escalated sessions.
func (m *MemoryStore) Cleanup(_ context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if !s.Escalated && s.UpdatedAt.Before(olderThan) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

// getOrCreate must be called with m.mu held.
func (m *MemoryStore) getOrCreate(id string, at time.Time) *Session {
	s, ok := m.sessions[id]
	if !ok {
		s = &Session{ID: id, CreatedAt: at, UpdatedAt: at}
		m.sessions[id] = s
	}
	return s
}
