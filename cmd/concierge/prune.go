package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/concierge/pkg/cli"
)

// runPruneJob runs one retention job immediately with the configured
// retention settings.
func runPruneJob(cmd *cobra.Command, job string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if job == "audit" && !cfg.Audit.Enabled {
		return cli.NewConfigError("audit.enabled", "audit is disabled")
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	comp, err := openComponents(cfg, logger, nil)
	if err != nil {
		return cli.NewCommandError(job+" prune", err)
	}
	defer comp.Close()

	scheduler, err := comp.retentionScheduler()
	if err != nil {
		return cli.NewConfigError("retention", "%v", err)
	}
	deleted, err := scheduler.RunNow(cmd.Context(), job)
	if err != nil {
		return cli.NewCommandError(job+" prune", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Pruned %d %s records\n", deleted, job)
	return nil
}
