package retention

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"mercator-hq/concierge/pkg/audit"
	"mercator-hq/concierge/pkg/audit/storage"
	"mercator-hq/concierge/pkg/sessions"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestAuditPruner(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	for i, age := range []int{100, 91, 89, 1} {
		if err := store.Store(ctx, &audit.Record{
			ID:        string(rune('a' + i)),
			Timestamp: now.AddDate(0, 0, -age),
		}); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
	}

	p := NewAuditPruner(store, 90)
	p.now = func() time.Time { return now }

	deleted, err := p.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted records, got %d", deleted)
	}
	if store.Size() != 2 {
		t.Errorf("expected 2 remaining records, got %d", store.Size())
	}
}

func TestAuditPruner_KeepForever(t *testing.T) {
	store := storage.NewMemoryStorage()
	store.Store(context.Background(), &audit.Record{ID: "old", Timestamp: time.Unix(0, 0)})

	deleted, err := NewAuditPruner(store, 0).Prune(context.Background())
	if err != nil || deleted != 0 {
		t.Errorf("expected no deletion with unlimited retention, got %d, %v", deleted, err)
	}
}

func TestSessionPruner(t *testing.T) {
	ctx := context.Background()
	store := sessions.NewMemoryStore()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	store.Touch(ctx, "idle", sessions.Activity{TemplateID: "customer_greeting"}, now.Add(-100*time.Hour))
	store.Touch(ctx, "fresh", sessions.Activity{TemplateID: "customer_greeting"}, now.Add(-time.Hour))
	store.MarkEscalated(ctx, "stuck", "human_request", now.Add(-100*time.Hour))

	p := NewSessionPruner(store, 72*time.Hour)
	p.now = func() time.Time { return now }

	deleted, err := p.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 pruned session, got %d", deleted)
	}
	if _, err := store.Get(ctx, "idle"); !errors.Is(err, sessions.ErrNotFound) {
		t.Errorf("expected idle session to be pruned, got %v", err)
	}
	if _, err := store.Get(ctx, "stuck"); err != nil {
		t.Errorf("expected escalated session to survive, got %v", err)
	}
}

func TestScheduler_Add(t *testing.T) {
	noop := PrunerFunc(func(context.Context) (int64, error) { return 0, nil })

	tests := []struct {
		name    string
		job     Job
		wantErr bool
	}{
		{"valid daily", Job{Name: "audit", Schedule: "0 3 * * *", Pruner: noop}, false},
		{"empty schedule skipped", Job{Name: "audit", Pruner: noop}, false},
		{"invalid schedule", Job{Name: "audit", Schedule: "invalid cron", Pruner: noop}, true},
		{"missing name", Job{Schedule: "0 * * * *", Pruner: noop}, true},
		{"missing pruner", Job{Name: "audit", Schedule: "0 * * * *"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewScheduler(nil).Add(tt.job)
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestScheduler_DuplicateJob(t *testing.T) {
	noop := PrunerFunc(func(context.Context) (int64, error) { return 0, nil })
	s := NewScheduler(nil)
	if err := s.Add(Job{Name: "audit", Schedule: "0 3 * * *", Pruner: noop}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := s.Add(Job{Name: "audit", Schedule: "0 4 * * *", Pruner: noop}); err == nil {
		t.Error("expected error for duplicate job name")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(nil)
	s.Add(Job{Name: "sessions", Schedule: "0 * * * *", Pruner: PrunerFunc(func(context.Context) (int64, error) {
		return 0, nil
	})})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !s.IsRunning() {
		t.Fatal("expected scheduler to be running")
	}
	if err := s.Start(ctx); err == nil {
		t.Error("expected error starting twice")
	}

	next := s.NextRun("sessions")
	if next == nil {
		t.Fatal("expected next run time")
	}
	if next.Minute() != 0 || !next.After(time.Now()) {
		t.Errorf("expected next run on the hour in the future, got %v", next)
	}
	if s.NextRun("unknown") != nil {
		t.Error("expected nil next run for unknown job")
	}

	s.Stop()
	if s.IsRunning() {
		t.Error("expected scheduler to be stopped")
	}
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	s := NewScheduler(nil)
	s.Add(Job{Name: "audit", Schedule: "0 3 * * *", Pruner: PrunerFunc(func(context.Context) (int64, error) {
		return 0, nil
	})})

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for s.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("expected scheduler to stop after context cancellation")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestScheduler_NoJobs(t *testing.T) {
	s := NewScheduler(nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if s.IsRunning() {
		t.Error("expected scheduler with no jobs to stay idle")
	}
}

func TestScheduler_RunNow(t *testing.T) {
	var calls atomic.Int32
	s := NewScheduler(nil)
	s.Add(Job{Name: "audit", Schedule: "0 3 * * *", Pruner: PrunerFunc(func(context.Context) (int64, error) {
		calls.Add(1)
		return 7, nil
	})})

	deleted, err := s.RunNow(context.Background(), "audit")
	if err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}
	if deleted != 7 || calls.Load() != 1 {
		t.Errorf("expected 7 deleted in 1 call, got %d in %d", deleted, calls.Load())
	}

	if _, err := s.RunNow(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown job")
	}
}

func TestScheduler_UnscheduledJobRunsOnDemand(t *testing.T) {
	s := NewScheduler(nil)
	if err := s.Add(Job{Name: "sessions", Pruner: PrunerFunc(func(context.Context) (int64, error) {
		return 3, nil
	})}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if s.IsRunning() {
		t.Error("expected scheduler with only unscheduled jobs to stay idle")
	}
	if next := s.NextRun("sessions"); next != nil {
		t.Errorf("expected no next run, got %v", next)
	}

	deleted, err := s.RunNow(context.Background(), "sessions")
	if err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("expected 3 deleted, got %d", deleted)
	}
}
