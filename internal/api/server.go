// Package api exposes the local HTTP surface the desktop shell talks to.
// It is a thin adapter over the engine: request decoding, outcome
// encoding, and nothing else. It binds to loopback only.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/doughub/engine/internal/config"
	"github.com/doughub/engine/internal/engine"
	"github.com/doughub/engine/internal/provider"
	"github.com/doughub/engine/internal/supervisor"
	"github.com/doughub/engine/internal/version"
)

// StatusFunc reports the active provider's reachability.
type StatusFunc func(ctx context.Context) provider.Status

// StateFunc reports the local backend supervisor's state.
type StateFunc func() supervisor.State

// Server serves the engine's HTTP API.
type Server struct {
	router  chi.Router
	eng     *engine.Engine
	status  StatusFunc
	state   StateFunc
	log     zerolog.Logger
	httpSrv *http.Server
}

// NewServer creates a Server bound to loopback on the configured port.
// status and state may be nil; the corresponding fields in /api/status
// are then omitted.
func NewServer(eng *engine.Engine, cfg config.APIConfig, status StatusFunc, state StateFunc, logger zerolog.Logger) *Server {
	s := &Server{
		eng:    eng,
		status: status,
		state:  state,
		log:    logger.With().Str("component", "api").Logger(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/version", s.handleVersion)
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/tasks", s.handleListTasks)
	r.Post("/api/tasks/{id}", s.handleRunTask)
	r.Post("/api/tasks", s.handleRunBatch)
	r.Post("/api/cache/clear", s.handleClearCache)

	s.router = r

	readTimeout := time.Duration(cfg.ReadTimeout) * time.Second
	writeTimeout := time.Duration(cfg.WriteTimeout) * time.Second
	idleTimeout := time.Duration(cfg.IdleTimeout) * time.Second

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	return s
}

// Router returns the underlying chi.Router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Start begins listening. It blocks until the server is shut down or
// encounters a fatal error.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpSrv.Addr).Msg("api server starting")
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": version.Version,
		"commit":  version.GitCommit,
	})
}
