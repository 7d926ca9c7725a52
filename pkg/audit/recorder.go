package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"mercator-hq/concierge/pkg/config"
	"mercator-hq/concierge/pkg/synthesis"
)

// Recorder writes an audit record for every generation. It is a
// synthesis.Observer: records are built on the generating goroutine and
// written by a background worker, so storage latency never reaches callers.
type Recorder struct {
	storage Storage
	config  config.AuditConfig
	redact  func(string) string
	logger  *slog.Logger

	recordChan chan *Record
	done       chan struct{}
	wg         sync.WaitGroup
	closeOnce  sync.Once

	written atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

var _ synthesis.Observer = (*Recorder)(nil)

// NewRecorder starts a recorder writing to storage. redact, if non-nil, is
// applied to prompt excerpts before they are stored.
func NewRecorder(storage Storage, cfg config.AuditConfig, redact func(string) string, logger *slog.Logger) *Recorder {
	if cfg.AsyncBuffer <= 0 {
		cfg.AsyncBuffer = config.DefaultAuditAsyncBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = config.DefaultAuditWriteTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		storage:    storage,
		config:     cfg,
		redact:     redact,
		logger:     logger.With("component", "audit.recorder"),
		recordChan: make(chan *Record, cfg.AsyncBuffer),
		done:       make(chan struct{}),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("audit recorder initialized",
		"async_buffer", cfg.AsyncBuffer,
		"write_timeout", cfg.WriteTimeout,
	)
	return r
}

// ObserveGeneration builds a record from the result and enqueues it. When the
// buffer is full the record is dropped rather than blocking generation.
func (r *Recorder) ObserveGeneration(_ context.Context, res *synthesis.Result) {
	record := r.NewRecord(res)

	select {
	case <-r.done:
		r.dropped.Add(1)
		r.logger.Warn("recorder shut down, dropping record",
			"record_id", record.ID,
			"generation_id", record.GenerationID,
		)
		return
	default:
	}

	select {
	case r.recordChan <- record:
	default:
		r.dropped.Add(1)
		r.logger.Error("audit channel full, dropping record",
			"record_id", record.ID,
			"generation_id", record.GenerationID,
			"channel_capacity", r.config.AsyncBuffer,
		)
	}
}

// NewRecord converts a generation result into an audit record.
func (r *Recorder) NewRecord(res *synthesis.Result) *Record {
	md := res.Metadata
	record := &Record{
		ID:             uuid.NewString(),
		GenerationID:   md.GenerationID,
		SessionID:      md.SessionID,
		TemplateID:     md.TemplateID,
		PersonaID:      md.PersonaID,
		CatalogVersion: md.CatalogVersion,
		Timestamp:      md.Timestamp,
		RecordedAt:     time.Now().UTC(),
		Elapsed:        md.Elapsed,
		PromptHash:     HashString(res.Prompt),
		Passed:         true,
		Escalated:      md.Escalation.RequiresEscalation,
		FallbackUsed:   md.FallbackUsed,
		Suppressed:     md.Suppressed,
		Error:          string(md.Error),
		ErrorDetail:    md.ErrorDetail,
	}

	excerpt := Excerpt(res.Prompt, r.config.MaxPromptExcerpt)
	if r.redact != nil {
		excerpt = r.redact(excerpt)
	}
	record.PromptExcerpt = excerpt

	if g := md.Guardrails; g != nil {
		record.Passed = g.Passed
		record.RiskLevel = g.RiskLevel
		for _, v := range g.Violations {
			record.Violations = append(record.Violations, string(v))
		}
	}
	for _, reason := range md.Escalation.Reasons() {
		record.EscalationReasons = append(record.EscalationReasons, string(reason))
	}
	return record
}

// Stats returns the number of records written, dropped, and failed.
func (r *Recorder) Stats() (written, dropped, failed int64) {
	return r.written.Load(), r.dropped.Load(), r.failed.Load()
}

// Close drains pending records and stops the worker. It is idempotent.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.logger.Info("shutting down audit recorder")
		close(r.done)
		r.wg.Wait()
		r.logger.Info("audit recorder shut down complete")
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(record)

		case <-r.done:
			r.logger.Info("draining audit channel before shutdown",
				"pending_count", len(r.recordChan),
			)
			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) writeRecord(record *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.storage.Store(ctx, record); err != nil {
		r.failed.Add(1)
		r.logger.Error("failed to store audit record",
			"record_id", record.ID,
			"generation_id", record.GenerationID,
			"error", err,
		)
		return
	}
	r.written.Add(1)

	duration := time.Since(start)
	r.logger.Debug("audit record written",
		"record_id", record.ID,
		"generation_id", record.GenerationID,
		"duration_ms", duration.Milliseconds(),
	)
	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow audit write",
			"record_id", record.ID,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
}
