package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/suspension-forecast/internal/domain"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// BatchSource serves stored prediction batches. Implemented by the history
// store; a nil source disables the prediction endpoints.
type BatchSource interface {
	LatestBatch(ctx context.Context) (domain.PredictionBatch, error)
	BatchByDate(ctx context.Context, date time.Time) (domain.PredictionBatch, error)
}

// ErrNoBatches is returned by a BatchSource when nothing has been stored yet.
var ErrNoBatches = domain.ErrNoBatches

// Server exposes health, readiness, metrics, and prediction HTTP endpoints.
type Server struct {
	httpServer *http.Server
	batches    BatchSource
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /predictions routes.
func NewServer(addr string, ready ReadinessChecker, batches BatchSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		batches: batches,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /predictions/latest", s.handleLatest)
	mux.HandleFunc("GET /predictions/{date}", s.handleByDate)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if s.batches == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "prediction history disabled"})
		return
	}

	batch, err := s.batches.LatestBatch(r.Context())
	if err != nil {
		s.writeBatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (s *Server) handleByDate(w http.ResponseWriter, r *http.Request) {
	if s.batches == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "prediction history disabled"})
		return
	}

	date, err := domain.ParseDate(r.PathValue("date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
		return
	}

	batch, err := s.batches.BatchByDate(r.Context(), date)
	if err != nil {
		s.writeBatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (s *Server) writeBatchError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNoBatches) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	s.logger.Error("batch lookup failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
