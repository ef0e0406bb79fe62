package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"applyd/internal/config"
	"applyd/internal/connectors"
	"applyd/internal/engine"
	"applyd/internal/logging"
	"applyd/internal/queue"
)

// Server exposes the queue over HTTP: batch enqueue, listing, search, and
// health probes. It binds to the configured loopback address and is not
// meant to face the open internet.
type Server struct {
	bind     string
	logger   *slog.Logger
	engine   *engine.Engine
	store    *queue.Store
	searcher *connectors.Searcher
	workers  int

	listener net.Listener
	server   *http.Server
}

// New builds the API server. An empty bind address disables it and returns
// nil, which Start and Stop tolerate.
func New(cfg *config.Config, eng *engine.Engine, store *queue.Store, searcher *connectors.Searcher, logger *slog.Logger) *Server {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	srv := &Server{
		bind:     bind,
		logger:   logging.WithComponent(logger, "api"),
		engine:   eng,
		store:    store,
		searcher: searcher,
		workers:  cfg.Workflow.Workers,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/apply", srv.handleApply)
	mux.HandleFunc("GET /api/applications", srv.handleApplications)
	mux.HandleFunc("GET /api/applications/{id}", srv.handleApplication)
	mux.HandleFunc("POST /api/search", srv.handleSearch)
	mux.HandleFunc("GET /api/status", srv.handleStatus)
	mux.HandleFunc("GET /api/health", srv.handleHealth)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Start binds the listener and serves until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down, letting in-flight requests finish briefly.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound listener address, empty before Start.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func currentPID() int {
	return os.Getpid()
}
