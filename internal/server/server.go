// Package server exposes the agent's operational surface over HTTP:
// status, manual trigger, and a liveness probe. The surface stays up
// through any pipeline failure; it only reads coordinator snapshots and
// requests admissions, never blocking on a run.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/BerriAI/fireworks-ai-cost-agent/internal/coordinator"
)

// Server is the HTTP front end over a Coordinator.
type Server struct {
	http  *http.Server
	coord *coordinator.Coordinator
}

// New creates the server listening on addr.
func New(addr string, coord *coordinator.Coordinator) *Server {
	s := &Server{coord: coord}
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.logRequest(s.handleRoot))
	mux.HandleFunc("GET /status", s.logRequest(s.handleStatus))
	mux.HandleFunc("POST /trigger", s.logRequest(s.handleTrigger))
	mux.HandleFunc("GET /healthz", s.logRequest(s.handleHealthz))
	return mux
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		slog.Info("http server starting", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		return err
	}
	slog.Info("http server stopped")
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "fireworks-ai-cost-agent",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"/status":  "agent status and schedule",
			"/trigger": "POST to trigger a sync run",
			"/healthz": "liveness probe",
		},
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.Status())
}

func (s *Server) handleTrigger(w http.ResponseWriter, _ *http.Request) {
	runID, ok := s.coord.TryRun(coordinator.ReasonManual)
	if !ok {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": "a run is already in progress; check /status",
		})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": runID,
		"status": "accepted",
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writing response", "error", err)
	}
}

// logRequest wraps a handler with structured request logging.
func (s *Server) logRequest(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		handler(lw, r)

		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", lw.statusCode,
			"duration", time.Since(start))
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lw *loggingResponseWriter) WriteHeader(code int) {
	lw.statusCode = code
	lw.ResponseWriter.WriteHeader(code)
}
