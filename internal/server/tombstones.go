package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	chi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/joao-cognition/devin-workshop/pkg/types"
)

// handleRecordEvent ingests one tombstone hit pushed by an instrumented
// application. Unknown tombstone IDs are accepted; the registration may
// arrive later.
func (s *Server) handleRecordEvent(w http.ResponseWriter, r *http.Request) {
	var event types.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode event: %w", err))
		return
	}
	if event.ProjectName == "" {
		event.ProjectName = s.config.Project
	}

	store, err := s.registry.Events()
	if err != nil {
		s.storeError(w, err)
		return
	}
	id, err := store.Put(&event)
	if err != nil {
		s.storeError(w, err)
		return
	}

	s.logger.Info("event recorded",
		zap.String("event_id", id),
		zap.String("tombstone_id", event.TombstoneID),
		zap.String("function", event.FunctionName),
	)
	s.writeJSON(w, http.StatusCreated, map[string]string{"event_id": id})
}

func (s *Server) handleListTombstones(w http.ResponseWriter, r *http.Request) {
	store, err := s.registry.Tombstones()
	if err != nil {
		s.storeError(w, err)
		return
	}

	filter := map[string]any{}
	if project := r.URL.Query().Get("project"); project != "" {
		filter["project_name"] = project
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filter["status"] = status
	}

	tombstones, err := store.List(filter)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"tombstones": tombstones,
		"count":      len(tombstones),
	})
}

func (s *Server) handleGetTombstone(w http.ResponseWriter, r *http.Request) {
	store, err := s.registry.Tombstones()
	if err != nil {
		s.storeError(w, err)
		return
	}
	t, err := store.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleTombstoneEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	tombstones, err := s.registry.Tombstones()
	if err != nil {
		s.storeError(w, err)
		return
	}
	if _, err := tombstones.Get(id); err != nil {
		s.storeError(w, err)
		return
	}

	events, err := s.registry.Events()
	if err != nil {
		s.storeError(w, err)
		return
	}
	filter := map[string]any{"tombstone_id": id}
	if limit, ok := intParam(r, "limit"); ok {
		filter["limit"] = limit
	}
	list, err := events.List(filter)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"tombstone_id": id,
		"events":       list,
		"count":        len(list),
	})
}

// handleDead lists confirmed-dead tombstones: active, older than the
// window, never triggered.
func (s *Server) handleDead(w http.ResponseWriter, r *http.Request) {
	days := s.config.GetWindowDays()
	if v, ok := intParam(r, "days"); ok {
		if v <= 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("days must be positive"))
			return
		}
		days = v
	}
	project := r.URL.Query().Get("project")
	if project == "" {
		project = s.config.Project
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	dead, err := s.registry.ConfirmedDead(project, cutoff)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"project":     project,
		"window_days": days,
		"tombstones":  dead,
		"count":       len(dead),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.registry.Summary()
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"projects": summary})
}

// intParam parses an integer query parameter. Missing or malformed
// values report false.
func intParam(r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
