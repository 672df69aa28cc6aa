// Package server provides the HTTP front end of the git hosting service:
// the repository management API, the git smart HTTP transport and the
// operational endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/mikecalendo/gh-serv/pkg/audit"
	"github.com/mikecalendo/gh-serv/pkg/config"
	"github.com/mikecalendo/gh-serv/pkg/githttp"
	"github.com/mikecalendo/gh-serv/pkg/telemetry/health"
	"github.com/mikecalendo/gh-serv/pkg/telemetry/metrics"
)

// Server is the HTTP server for the git hosting service.
type Server struct {
	cfg     atomic.Pointer[config.Config]
	origins atomic.Pointer[[]*regexp.Regexp]

	collector *metrics.Collector
	store     *audit.Store
	checker   atomic.Pointer[health.Checker]

	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	logger       *slog.Logger
}

// NewServer creates a server. store may be nil to disable auditing.
func NewServer(cfg *config.Config, collector *metrics.Collector, store *audit.Store) *Server {
	s := &Server{
		collector:    collector,
		store:        store,
		shutdownChan: make(chan struct{}),
		logger:       slog.Default().With("component", "server"),
	}
	s.SetConfig(cfg)
	return s
}

// SetConfig swaps in a new configuration. Listen address and timeouts are
// fixed at Start; everything resolved per request (secrets, size caps,
// origins, repository root) picks up the new values immediately.
func (s *Server) SetConfig(cfg *config.Config) {
	var origins []*regexp.Regexp
	for _, pattern := range cfg.Server.AllowedOrigins {
		re, err := regexp.Compile(pattern)
		if err != nil {
			s.logger.Warn("ignoring invalid origin pattern", "pattern", pattern, "error", err)
			continue
		}
		origins = append(origins, re)
	}

	s.cfg.Store(cfg)
	s.origins.Store(&origins)
	s.checker.Store(health.New(cfg.Health, cfg.Git.Root))
}

func (s *Server) config() *config.Config {
	return s.cfg.Load()
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config()

	s.httpServer = &http.Server{
		Addr:           cfg.Server.ListenAddress,
		Handler:        s.Handler(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", cfg.Server.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		return nil
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(ctx, s.config().Server.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			err = s.httpServer.Shutdown(shutdownCtx)
		}
		close(s.shutdownChan)
	})
	return err
}

// Handler builds the full route table wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /repositories", s.handleCreate)
	mux.HandleFunc("GET /repositories/{id}", s.handleGet)
	mux.HandleFunc("PUT /repositories/{id}", s.handleUpdate)

	mux.Handle("/git/", githttp.NewHandler(s.config, s.collector, s.pushRecorder()))

	mux.Handle("GET /{$}", s.checkerHandler())
	mux.Handle("GET /health-check/", s.checkerHandler())

	if s.config().Metrics.Enabled {
		mux.Handle("GET /metrics", s.collector.Handler())
	}

	var handler http.Handler = mux
	handler = s.corsMiddleware(handler)
	handler = s.metricsMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)
	handler = recoveryMiddleware(handler)
	return handler
}

// checkerHandler defers to the current checker so a config reload takes
// effect on the health endpoints.
func (s *Server) checkerHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.checker.Load().Handler().ServeHTTP(w, r)
	})
}

func (s *Server) pushRecorder() githttp.Recorder {
	if s.store == nil {
		return nil
	}
	return &pushRecorder{store: s.store, logger: s.logger}
}

type pushRecorder struct {
	store  *audit.Store
	logger *slog.Logger
}

func (p *pushRecorder) RecordPush(repoID string) {
	if err := p.store.Record(context.Background(), repoID, audit.KindPushReceived, ""); err != nil {
		p.logger.Warn("failed to audit push", "repo_id", repoID, "error", err)
	}
}
