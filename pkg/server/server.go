package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/concierge/pkg/catalog"
	"mercator-hq/concierge/pkg/config"
	"mercator-hq/concierge/pkg/sessions"
	"mercator-hq/concierge/pkg/synthesis"
	"mercator-hq/concierge/pkg/telemetry/health"
	"mercator-hq/concierge/pkg/telemetry/tracing"
)

// BuildInfo is served on /version.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Options configures a Server. Config and Engine are required.
type Options struct {
	Config *config.ServerConfig
	Engine *synthesis.Engine

	// Sessions backs the /v1/sessions routes. Nil disables them.
	Sessions sessions.Store

	// Health serves /health and /ready. Nil means a checker with no checks.
	Health *health.Checker

	// Metrics is mounted at MetricsPath when non-nil.
	Metrics     http.Handler
	MetricsPath string

	Build  BuildInfo
	Tracer trace.Tracer
	Logger *slog.Logger
}

// Server is the HTTP front end for the synthesis engine.
type Server struct {
	cfg      config.ServerConfig
	engine   atomic.Pointer[synthesis.Engine]
	sessions sessions.Store
	health   *health.Checker
	metrics  http.Handler
	metricsP string
	build    BuildInfo
	tracer   trace.Tracer
	logger   *slog.Logger

	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New creates a server.
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, errors.New("server: config is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("server: engine is required")
	}

	s := &Server{
		cfg:      *opts.Config,
		sessions: opts.Sessions,
		health:   opts.Health,
		metrics:  opts.Metrics,
		metricsP: opts.MetricsPath,
		build:    opts.Build,
		tracer:   opts.Tracer,
		logger:   opts.Logger,
	}
	s.engine.Store(opts.Engine)

	if s.health == nil {
		s.health = health.New(0)
	}
	if s.metricsP == "" {
		s.metricsP = "/metrics"
	}
	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer("concierge/server")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "server")

	return s, nil
}

// Engine returns the engine currently serving requests.
func (s *Server) Engine() *synthesis.Engine {
	return s.engine.Load()
}

// SetEngine swaps the serving engine. In-flight requests finish on the engine
// they started with. A nil engine is ignored.
func (s *Server) SetEngine(e *synthesis.Engine) {
	if e == nil {
		return
	}
	s.engine.Store(e)
}

// Catalog returns the catalog of the serving engine.
func (s *Server) Catalog() *catalog.Catalog {
	return s.Engine().Catalog()
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.httpServer = &http.Server{
		Addr:         s.cfg.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}
	srv := s.httpServer
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", s.cfg.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	}
}

// Shutdown gracefully shuts down the server within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		srv := s.httpServer
		running := s.isRunning
		s.mu.RUnlock()
		if !running || srv == nil {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.cfg.ShutdownTimeout.String())

		shutdownCtx := ctx
		if s.cfg.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
			defer cancel()
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/generate", s.handleGenerate)
	mux.HandleFunc("POST /v1/guardrails/evaluate", s.handleEvaluate)
	mux.HandleFunc("GET /v1/performance", s.handlePerformance)
	mux.HandleFunc("GET /v1/catalog", s.handleCatalog)
	if s.sessions != nil {
		mux.HandleFunc("GET /v1/sessions/{id}", s.handleGetSession)
		mux.HandleFunc("POST /v1/sessions/{id}/clear", s.handleClearSession)
	}

	mux.Handle("/health", s.health.LivenessHandler())
	mux.Handle("/ready", s.health.ReadinessHandler())
	mux.Handle("/version", health.VersionHandler(s.build.Version, s.build.Commit, s.build.BuildTime))
	if s.metrics != nil {
		mux.Handle(s.metricsP, s.metrics)
	}

	// Innermost first; recovery is outermost.
	var handler http.Handler = mux
	handler = tracing.HTTPMiddleware(s.tracer, handler)
	handler = loggingMiddleware(s.logger, handler)
	handler = requestIDMiddleware(handler)
	handler = recoveryMiddleware(s.logger, handler)

	return handler
}
