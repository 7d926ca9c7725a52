package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"mercator-hq/concierge/pkg/catalog"
	"mercator-hq/concierge/pkg/cli"
	"mercator-hq/concierge/pkg/server"
	"mercator-hq/concierge/pkg/synthesis"
	"mercator-hq/concierge/pkg/telemetry/health"
	"mercator-hq/concierge/pkg/telemetry/metrics"
	"mercator-hq/concierge/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Concierge HTTP API",
	Long: `Start the Concierge HTTP API with the specified configuration.

The server exposes prompt generation, guardrail evaluation, session review,
and catalog inspection, plus health and Prometheus metrics endpoints. When
catalog.watch is enabled the catalog file is reloaded on change without
restarting.

Examples:
  # Start with the built-in catalog and defaults
  concierge run

  # Start with custom config
  concierge run --config /etc/concierge/config.yaml

  # Override listen address
  concierge run --listen 0.0.0.0:8090

  # Validate config and catalog without starting the server
  concierge run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config and catalog without starting the server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	if runFlags.dryRun {
		cat, err := catalog.LoadOrBuiltin(cfg.Catalog.Path)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Configuration valid\n✓ Catalog valid (%d templates, %d personas)\n",
			cat.Templates.Len(), cat.Personas.Len())
		return nil
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to initialize tracing: %w", err))
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	comp, err := openComponents(cfg, logger, tracer.Tracer())
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		if err := comp.Close(); err != nil {
			logger.Error("failed to close components", "error", err)
		}
	}()

	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
		comp.observers = append(comp.observers, collector)
		if comp.recorder != nil {
			collector.RegisterAuditStats(comp.recorder.Stats)
		}
		collector.RecordCatalogReload(true, comp.catalog.Templates.Len(), comp.catalog.Personas.Len())
	}

	engine, err := comp.newEngine(comp.catalog)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	checker := health.New(0)
	opts := server.Options{
		Config:   &cfg.Server,
		Engine:   engine,
		Sessions: comp.sessions,
		Health:   checker,
		Build:    server.BuildInfo{Version: Version, Commit: GitCommit, BuildTime: BuildDate},
		Tracer:   tracer.Tracer(),
		Logger:   logger,
	}
	if collector != nil {
		opts.Metrics = collector.Handler()
		opts.MetricsPath = cfg.Telemetry.Metrics.Path
	}
	srv, err := server.New(opts)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	checker.Register("catalog", health.CatalogCheck(srv.Catalog))
	checker.Register("sessions", health.SessionStoreCheck(comp.sessions))
	if comp.audit != nil {
		checker.Register("audit", health.AuditStorageCheck(comp.audit))
	}

	scheduler, err := comp.retentionScheduler()
	if err != nil {
		return cli.NewConfigError("retention", "%v", err)
	}
	if err := scheduler.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	defer scheduler.Stop()

	if cfg.Catalog.Watch && cfg.Catalog.Path != "" {
		watcher, err := catalog.NewWatcher(cfg.Catalog.Path, cfg.Catalog.DebounceInterval, logger)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		defer watcher.Stop()

		go func() {
			if err := watcher.Watch(ctx, catalogReloader(comp, srv, collector, logger)); err != nil {
				logger.Error("catalog watcher exited", "error", err)
			}
		}()
	}

	logger.Info("concierge starting",
		"version", Version,
		"catalog_source", comp.catalog.Source,
		"catalog_version", comp.catalog.Version,
		"sessions_backend", cfg.Sessions.Backend,
		"audit_enabled", cfg.Audit.Enabled,
	)

	return cli.NewCommandError("run", srv.Start(ctx))
}

// catalogReloader rebuilds the engine from the catalog file and swaps it
// into the server. A failed reload keeps the current engine.
func catalogReloader(comp *components, srv *server.Server, collector *metrics.Collector, logger *slog.Logger) func() error {
	return func() error {
		cat, err := catalog.Load(comp.cfg.Catalog.Path)
		if err == nil {
			var engine *synthesis.Engine
			engine, err = comp.newEngine(cat)
			if err == nil {
				srv.SetEngine(engine)
			}
		}

		if collector != nil {
			if err != nil {
				collector.RecordCatalogReload(false, 0, 0)
			} else {
				collector.RecordCatalogReload(true, cat.Templates.Len(), cat.Personas.Len())
			}
		}
		if err != nil {
			return fmt.Errorf("catalog reload rejected, keeping version %s: %w", srv.Catalog().Version, err)
		}

		logger.Info("catalog reloaded",
			"version", cat.Version,
			"templates", cat.Templates.Len(),
			"personas", cat.Personas.Len(),
		)
		return nil
	}
}
