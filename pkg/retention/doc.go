// Package retention prunes old audit records and idle sessions on cron
// schedules.
//
// Each Job pairs a Pruner with a standard five-field cron expression
// (github.com/robfig/cron/v3). A job with an empty schedule is skipped.
//
//	s := retention.NewScheduler(logger)
//	s.Add(retention.Job{
//		Name:     "audit",
//		Schedule: cfg.Audit.PruneSchedule,
//		Pruner:   retention.NewAuditPruner(store, cfg.Audit.RetentionDays),
//	})
//	if err := s.Start(ctx); err != nil {
//		return err
//	}
//	defer s.Stop()
package retention
