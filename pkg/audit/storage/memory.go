package storage

import (
	"context"
	"sort"
	"sync"

	"mercator-hq/concierge/pkg/audit"
)

// MemoryStorage keeps audit records in memory. Intended for tests and
// short-lived processes.
type MemoryStorage struct {
	records map[string]*audit.Record
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{records: make(map[string]*audit.Record)}
}

// Store persists a copy of the record.
func (s *MemoryStorage) Store(ctx context.Context, record *audit.Record) error {
	if err := ctx.Err(); err != nil {
		return audit.NewStorageError("memory", "store", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.ID] = copyRecord(record)
	return nil
}

// Query returns copies of matching records ordered by timestamp.
func (s *MemoryStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	q := *query
	if err := q.Validate(); err != nil {
		return nil, err
	}
	q.ApplyDefaults()

	matches := s.matching(&q)
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Timestamp.Equal(b.Timestamp) {
			if q.SortOrder == "asc" {
				return a.ID < b.ID
			}
			return a.ID > b.ID
		}
		if q.SortOrder == "asc" {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.Timestamp.After(b.Timestamp)
	})

	if q.Offset >= len(matches) {
		return []*audit.Record{}, nil
	}
	end := q.Offset + q.Limit
	if end > len(matches) {
		end = len(matches)
	}
	return matches[q.Offset:end], nil
}

// Count returns the number of matching records.
func (s *MemoryStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	return int64(len(s.matching(query))), nil
}

// Delete removes matching records.
func (s *MemoryStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, r := range s.records {
		if query.Matches(r) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close is a no-op.
func (s *MemoryStorage) Close() error {
	return nil
}

// Size returns the number of stored records.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryStorage) matching(query *audit.Query) []*audit.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*audit.Record
	for _, r := range s.records {
		if query.Matches(r) {
			out = append(out, copyRecord(r))
		}
	}
	return out
}

func copyRecord(r *audit.Record) *audit.Record {
	cp := *r
	cp.Violations = append([]string(nil), r.Violations...)
	cp.EscalationReasons = append([]string(nil), r.EscalationReasons...)
	return &cp
}
