package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a named pruner run on a cron schedule.
type Job struct {
	Name     string
	Schedule string
	Pruner   Pruner
}

// Scheduler runs retention jobs on their schedules.
type Scheduler struct {
	cron    *cron.Cron
	jobs    []Job
	entries map[string]cron.EntryID
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// NewScheduler creates a scheduler with no jobs.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(),
		entries: make(map[string]cron.EntryID),
		logger:  logger.With("component", "retention.scheduler"),
	}
}

// Add registers a job. Jobs with an empty schedule are never scheduled but
// can still be run with RunNow; invalid cron expressions are rejected.
func (s *Scheduler) Add(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.Name == "" {
		return fmt.Errorf("retention job name cannot be empty")
	}
	if job.Pruner == nil {
		return fmt.Errorf("retention job %q has no pruner", job.Name)
	}
	for _, j := range s.jobs {
		if j.Name == job.Name {
			return fmt.Errorf("duplicate retention job %q", job.Name)
		}
	}
	if job.Schedule != "" {
		if _, err := cron.ParseStandard(job.Schedule); err != nil {
			return fmt.Errorf("invalid cron schedule %q for job %q: %w", job.Schedule, job.Name, err)
		}
	}

	s.jobs = append(s.jobs, job)
	return nil
}

// Start schedules every job with a schedule and stops the scheduler when ctx
// is cancelled. Starting a scheduler with nothing to schedule is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("retention scheduler already running")
	}
	for _, job := range s.jobs {
		if job.Schedule == "" {
			s.logger.Info("prune schedule not configured, skipping job", "job", job.Name)
			continue
		}
		id, err := s.cron.AddFunc(job.Schedule, func() {
			s.run(ctx, job)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule job %q: %w", job.Name, err)
		}
		s.entries[job.Name] = id
		s.logger.Info("retention job scheduled", "job", job.Name, "schedule", job.Schedule)
	}

	if len(s.entries) == 0 {
		s.logger.Info("no retention jobs scheduled")
		return nil
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("retention scheduler started", "jobs", len(s.entries))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// RunNow runs the named job immediately and returns the number of items
// deleted.
func (s *Scheduler) RunNow(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	var job *Job
	for i := range s.jobs {
		if s.jobs[i].Name == name {
			job = &s.jobs[i]
			break
		}
	}
	s.mu.Unlock()

	if job == nil {
		return 0, fmt.Errorf("unknown retention job %q", name)
	}
	return job.Pruner.Prune(ctx)
}

func (s *Scheduler) run(ctx context.Context, job Job) {
	s.logger.Info("starting scheduled pruning", "job", job.Name)

	deleted, err := job.Pruner.Prune(ctx)
	if err != nil {
		s.logger.Error("scheduled pruning failed", "job", job.Name, "error", err)
		return
	}

	if deleted > 0 {
		s.logger.Info("scheduled pruning completed", "job", job.Name, "deleted_count", deleted)
	} else {
		s.logger.Debug("scheduled pruning completed, nothing deleted", "job", job.Name)
	}
}

// Stop stops the scheduler and waits for any running jobs to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("retention scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled run of the named job, or nil if the
// job is not scheduled.
func (s *Scheduler) NextRun(name string) *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.entries[name]
	if !ok {
		return nil
	}
	entry := s.cron.Entry(id)
	if !entry.Valid() {
		return nil
	}
	next := entry.Next
	return &next
}
