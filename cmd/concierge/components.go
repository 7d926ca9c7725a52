package main

import (
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"mercator-hq/concierge/pkg/audit"
	auditstorage "mercator-hq/concierge/pkg/audit/storage"
	"mercator-hq/concierge/pkg/catalog"
	"mercator-hq/concierge/pkg/config"
	"mercator-hq/concierge/pkg/retention"
	"mercator-hq/concierge/pkg/sessions"
	"mercator-hq/concierge/pkg/synthesis"
	"mercator-hq/concierge/pkg/synthesis/performance"
	"mercator-hq/concierge/pkg/telemetry/logging"
)

// components are the long-lived dependencies of the synthesis engine. They
// outlive any one engine so a catalog reload keeps sessions, audit, and
// performance counters.
type components struct {
	cfg    *config.Config
	logger *slog.Logger
	tracer trace.Tracer

	catalog  *catalog.Catalog
	sessions sessions.Store
	audit    audit.Storage // nil when audit is disabled
	recorder *audit.Recorder
	perf     *performance.Aggregator

	observers []synthesis.Observer
}

// openComponents loads the catalog and opens the session and audit stores.
func openComponents(cfg *config.Config, logger *slog.Logger, tracer trace.Tracer) (*components, error) {
	c := &components{
		cfg:    cfg,
		logger: logger,
		tracer: tracer,
		perf:   performance.NewAggregator(),
	}

	cat, err := catalog.LoadOrBuiltin(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	c.catalog = cat

	store, err := sessions.Open(cfg.Sessions)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	c.sessions = store
	c.observers = append(c.observers, sessions.NewTracker(store, logger))

	if cfg.Audit.Enabled {
		storage, err := auditstorage.Open(cfg.Audit, logger)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to open audit storage: %w", err)
		}

		var redact func(string) string
		if cfg.Telemetry.Logging.RedactPII {
			redactor, err := logging.NewRedactor(cfg.Telemetry.Logging.RedactPatterns)
			if err != nil {
				storage.Close()
				store.Close()
				return nil, fmt.Errorf("failed to build redactor: %w", err)
			}
			redact = redactor.RedactString
		}

		c.audit = storage
		c.recorder = audit.NewRecorder(storage, cfg.Audit, redact, logger)
		c.observers = append(c.observers, c.recorder)
	}

	return c, nil
}

// newEngine builds an engine over cat sharing the components' stores.
func (c *components) newEngine(cat *catalog.Catalog) (*synthesis.Engine, error) {
	return synthesis.New(synthesis.Options{
		Catalog:     cat,
		Engine:      &c.cfg.Engine,
		Guardrails:  &c.cfg.Guardrails,
		Ledger:      sessions.NewLedger(c.sessions),
		Performance: c.perf,
		Observers:   c.observers,
		Tracer:      c.tracer,
		Logger:      c.logger,
	})
}

// retentionScheduler registers the audit and session pruning jobs.
func (c *components) retentionScheduler() (*retention.Scheduler, error) {
	s := retention.NewScheduler(c.logger)
	if c.audit != nil {
		if err := s.Add(retention.Job{
			Name:     "audit",
			Schedule: c.cfg.Audit.PruneSchedule,
			Pruner:   retention.NewAuditPruner(c.audit, c.cfg.Audit.RetentionDays),
		}); err != nil {
			return nil, err
		}
	}
	if err := s.Add(retention.Job{
		Name:     "sessions",
		Schedule: c.cfg.Sessions.PruneSchedule,
		Pruner:   retention.NewSessionPruner(c.sessions, c.cfg.Sessions.IdleTTL),
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// Close drains the audit recorder and closes the stores.
func (c *components) Close() error {
	var errs []error
	if c.recorder != nil {
		errs = append(errs, c.recorder.Close())
	}
	if c.audit != nil {
		errs = append(errs, c.audit.Close())
	}
	if c.sessions != nil {
		errs = append(errs, c.sessions.Close())
	}
	return errors.Join(errs...)
}
