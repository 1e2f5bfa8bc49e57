// Package server exposes the tombstone registry and the banking demo
// dataset over HTTP: event ingestion for instrumented applications, a
// Sentry-style webhook, and the dashboard read API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/joao-cognition/devin-workshop/internal/dataset"
	"github.com/joao-cognition/devin-workshop/pkg/types"
)

const shutdownTimeout = 10 * time.Second

// Server routes HTTP traffic to the registry and the dataset store.
type Server struct {
	router   chi.Router
	registry types.Registry
	dataset  *dataset.Store
	config   types.Config
	logger   *zap.Logger

	// dispatch posts cleanup prompts for webhook hits. Swappable in tests.
	dispatchClient *http.Client
}

// NewServer wires the routes. The dataset store may be nil; the complaints
// endpoints then answer 503.
func NewServer(reg types.Registry, ds *dataset.Store, cfg types.Config, logger *zap.Logger) (*Server, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		router:         chi.NewRouter(),
		registry:       reg,
		dataset:        ds,
		config:         cfg,
		logger:         logger,
		dispatchClient: &http.Client{Timeout: 10 * time.Second},
	}
	s.routes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			s.logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("dur", time.Since(start)),
				zap.String("remote", r.RemoteAddr),
			)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Post("/v1/events", s.handleRecordEvent)
	s.router.Post("/v1/webhooks/sentry", s.handleSentryWebhook)

	s.router.Get("/v1/tombstones", s.handleListTombstones)
	s.router.Get("/v1/tombstones/{id}", s.handleGetTombstone)
	s.router.Get("/v1/tombstones/{id}/events", s.handleTombstoneEvents)
	s.router.Get("/v1/dead", s.handleDead)
	s.router.Get("/v1/summary", s.handleSummary)

	s.router.Get("/v1/complaints/stats", s.handleComplaintStats)
	s.router.Get("/v1/complaints/timeseries", s.handleComplaintTimeseries)
	s.router.Get("/v1/complaints/categories", s.handleComplaintCategories)
	s.router.Get("/v1/complaints/outliers", s.handleComplaintOutliers)
	s.router.Get("/v1/complaints/repeat", s.handleRepeatComplainers)
}

// ListenAndServe runs the server until the context is canceled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.GetListenAddr(),
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		s.logger.Warn("request failed", zap.Int("status", status), zap.Error(err))
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// storeError maps registry sentinel errors to HTTP statuses.
func (s *Server) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, types.ErrInvalidID), errors.Is(err, types.ErrInvalidData),
		errors.Is(err, types.ErrInvalidFilter):
		s.writeError(w, http.StatusBadRequest, err)
	default:
		s.writeError(w, http.StatusInternalServerError, err)
	}
}
