package server

import (
	"fmt"
	"net/http"

	"github.com/joao-cognition/devin-workshop/internal/dataset"
)

// complaintFilter builds the dataset filter from the shared dashboard
// query parameters.
func complaintFilter(r *http.Request) dataset.ComplaintFilter {
	q := r.URL.Query()
	return dataset.ComplaintFilter{
		Category: q.Get("category"),
		Severity: q.Get("severity"),
		Status:   q.Get("status"),
		Segment:  q.Get("segment"),
		From:     q.Get("from"),
		To:       q.Get("to"),
	}
}

// requireDataset answers 503 when no dataset store is attached.
func (s *Server) requireDataset(w http.ResponseWriter) bool {
	if s.dataset == nil {
		s.writeError(w, http.StatusServiceUnavailable, fmt.Errorf("dataset not loaded"))
		return false
	}
	return true
}

func (s *Server) handleComplaintStats(w http.ResponseWriter, r *http.Request) {
	if !s.requireDataset(w) {
		return
	}
	stats, err := s.dataset.ComplaintDashboardStats(r.Context(), complaintFilter(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleComplaintTimeseries(w http.ResponseWriter, r *http.Request) {
	if !s.requireDataset(w) {
		return
	}
	granularity := r.URL.Query().Get("granularity")
	if granularity == "" {
		granularity = "daily"
	}
	points, err := s.dataset.ComplaintTimeseries(r.Context(), granularity, complaintFilter(r))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"granularity": granularity,
		"points":      points,
	})
}

func (s *Server) handleComplaintCategories(w http.ResponseWriter, r *http.Request) {
	if !s.requireDataset(w) {
		return
	}
	rows, err := s.dataset.ComplaintCategories(r.Context(), complaintFilter(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"categories": rows})
}

func (s *Server) handleComplaintOutliers(w http.ResponseWriter, r *http.Request) {
	if !s.requireDataset(w) {
		return
	}
	out, err := s.dataset.ComplaintOutlierReport(r.Context(), complaintFilter(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRepeatComplainers(w http.ResponseWriter, r *http.Request) {
	if !s.requireDataset(w) {
		return
	}
	rows, err := s.dataset.RepeatComplainers(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if len(rows) > 10 {
		rows = rows[:10]
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"repeat_complainers": rows})
}
