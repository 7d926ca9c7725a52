package sessions

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mercator-hq/concierge/pkg/config"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	cfg := config.SQLiteConfig{
		Path:        filepath.Join(t.TempDir(), "sessions.db"),
		WALMode:     true,
		BusyTimeout: 5 * time.Second,
	}
	s, err := NewSQLiteStore(cfg)
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// forEachStore runs fn against every Store implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newTestSQLiteStore(t)) })
}

func TestStore_GetMissing(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		_, err := s.Get(context.Background(), "nope")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestStore_EscalationIsSticky(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		first := time.Now().Add(-time.Minute).Truncate(time.Millisecond)

		if err := s.MarkEscalated(ctx, "s-1", "message_limit", first); err != nil {
			t.Fatalf("MarkEscalated failed: %v", err)
		}
		if err := s.MarkEscalated(ctx, "s-1", "guardrail", time.Now()); err != nil {
			t.Fatalf("second MarkEscalated failed: %v", err)
		}

		got, err := s.Get(ctx, "s-1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !got.Escalated {
			t.Fatal("expected session to be escalated")
		}
		if got.EscalationReason != "message_limit" {
			t.Errorf("expected first reason to be kept, got %q", got.EscalationReason)
		}
		if !got.EscalatedAt.Equal(first) {
			t.Errorf("expected escalated_at %v, got %v", first, got.EscalatedAt)
		}

		// Activity never clears escalation.
		if err := s.Touch(ctx, "s-1", Activity{TemplateID: "t", NextStep: 3}, time.Now()); err != nil {
			t.Fatalf("Touch failed: %v", err)
		}
		got, _ = s.Get(ctx, "s-1")
		if !got.Escalated {
			t.Error("expected escalation to survive activity")
		}
	})
}

func TestStore_Clear(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		if err := s.Clear(ctx, "missing", "alice"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound for missing session, got %v", err)
		}

		if err := s.MarkEscalated(ctx, "s-1", "human_request", time.Now()); err != nil {
			t.Fatalf("MarkEscalated failed: %v", err)
		}
		if err := s.Clear(ctx, "s-1", ""); !errors.Is(err, ErrReviewerRequired) {
			t.Errorf("expected ErrReviewerRequired, got %v", err)
		}
		if err := s.Clear(ctx, "s-1", "alice"); err != nil {
			t.Fatalf("Clear failed: %v", err)
		}

		got, _ := s.Get(ctx, "s-1")
		if got.Escalated {
			t.Error("expected escalation cleared")
		}
		if got.ClearedBy != "alice" {
			t.Errorf("expected cleared_by alice, got %q", got.ClearedBy)
		}
		if got.ClearedAt.IsZero() {
			t.Error("expected cleared_at to be set")
		}
		if got.EscalationReason != "" {
			t.Errorf("expected reason reset, got %q", got.EscalationReason)
		}

		if err := s.MarkEscalated(ctx, "s-1", "guardrail", time.Now()); err != nil {
			t.Fatalf("MarkEscalated after clear failed: %v", err)
		}
		got, _ = s.Get(ctx, "s-1")
		if !got.Escalated || got.EscalationReason != "guardrail" {
			t.Errorf("expected re-escalation with new reason, got %+v", got)
		}
	})
}

func TestStore_Touch(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for i := 1; i <= 3; i++ {
			a := Activity{TemplateID: fmt.Sprintf("t%d", i), NextStep: i + 1, MessageCount: i * 2}
			if err := s.Touch(ctx, "s-1", a, time.Now()); err != nil {
				t.Fatalf("Touch failed: %v", err)
			}
		}

		got, err := s.Get(ctx, "s-1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Generations != 3 {
			t.Errorf("expected 3 generations, got %d", got.Generations)
		}
		if got.NextStep != 4 || got.MessageCount != 6 || got.LastTemplate != "t3" {
			t.Errorf("expected latest activity, got %+v", got)
		}
		if got.Escalated {
			t.Error("expected touched session not escalated")
		}
	})
}

func TestStore_CleanupSkipsEscalated(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		old := time.Now().Add(-48 * time.Hour)

		s.Touch(ctx, "idle", Activity{}, old)
		s.MarkEscalated(ctx, "escalated", "guardrail", old)
		s.Touch(ctx, "fresh", Activity{}, time.Now())

		n, err := s.Cleanup(ctx, time.Now().Add(-24*time.Hour))
		if err != nil {
			t.Fatalf("Cleanup failed: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 session removed, got %d", n)
		}

		list, _ := s.List(ctx)
		var ids []string
		for _, sess := range list {
			ids = append(ids, sess.ID)
		}
		if len(ids) != 2 || ids[0] != "escalated" || ids[1] != "fresh" {
			t.Errorf("expected [escalated fresh], got %v", ids)
		}
	})
}

func TestStore_ConcurrentTouch(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		const workers = 8
		const perWorker = 25

		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perWorker; i++ {
					if err := s.Touch(ctx, "shared", Activity{}, time.Now()); err != nil {
						t.Errorf("Touch failed: %v", err)
						return
					}
				}
			}()
		}
		wg.Wait()

		got, err := s.Get(ctx, "shared")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Generations != workers*perWorker {
			t.Errorf("expected %d generations, got %d", workers*perWorker, got.Generations)
		}
	})
}

func TestSQLiteStore_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	cfg := config.SQLiteConfig{Path: path, WALMode: true}

	s, err := NewSQLiteStore(cfg)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := s.MarkEscalated(context.Background(), "s-1", "guardrail", time.Now()); err != nil {
		t.Fatalf("MarkEscalated failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("expected idempotent close, got %v", err)
	}

	reopened, err := NewSQLiteStore(cfg)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if !got.Escalated {
		t.Error("expected escalation to survive restart")
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.SessionsConfig
		wantErr bool
	}{
		{"default", config.SessionsConfig{}, false},
		{"memory", config.SessionsConfig{Backend: "memory"}, false},
		{"sqlite", config.SessionsConfig{Backend: "sqlite", SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "s.db")}}, false},
		{"sqlite without path", config.SessionsConfig{Backend: "sqlite"}, true},
		{"unknown", config.SessionsConfig{Backend: "redis"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if s != nil {
				s.Close()
			}
		})
	}
}
