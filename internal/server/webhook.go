package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/joao-cognition/devin-workshop/pkg/types"
)

// tombstoneTitlePrefix marks issues raised by instrumented dead-code
// markers. Any other alert is acknowledged and ignored.
const tombstoneTitlePrefix = "TOMBSTONE_HIT:"

// sentryWebhook is the subset of the Sentry issue-alert payload the
// handler reads. Tags arrive as [key, value] pairs; extra is free-form.
type sentryWebhook struct {
	Action string `json:"action"`
	Data   struct {
		Issue struct {
			Title  string `json:"title"`
			WebURL string `json:"web_url"`
		} `json:"issue"`
		Event struct {
			Tags  [][]string     `json:"tags"`
			Extra map[string]any `json:"extra"`
		} `json:"event"`
	} `json:"data"`
}

// metadata flattens tags and extra into one lookup.
func (p *sentryWebhook) metadata() map[string]string {
	out := map[string]string{}
	for key, value := range p.Data.Event.Extra {
		switch v := value.(type) {
		case string:
			out[key] = v
		case float64:
			out[key] = strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	for _, pair := range p.Data.Event.Tags {
		if len(pair) == 2 {
			out[pair[0]] = pair[1]
		}
	}
	return out
}

// handleSentryWebhook records an event for each tombstone alert and
// optionally dispatches a cleanup prompt to the configured automation URL.
func (s *Server) handleSentryWebhook(w http.ResponseWriter, r *http.Request) {
	var payload sentryWebhook
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode webhook: %w", err))
		return
	}

	title := payload.Data.Issue.Title
	if !strings.Contains(title, tombstoneTitlePrefix) {
		s.writeJSON(w, http.StatusOK, map[string]string{
			"status": "ignored",
			"reason": "not a tombstone issue",
		})
		return
	}

	meta := payload.metadata()
	event := &types.Event{
		TombstoneID:  meta["tombstone_id"],
		ProjectName:  firstNonEmpty(meta["project_name"], meta["project"], s.config.Project),
		FunctionName: firstNonEmpty(meta["function_name"], functionFromTitle(title)),
		FilePath:     meta["file_path"],
		LineNumber:   atoiOrZero(meta["line_number"]),
		Context:      map[string]string{"source": "sentry", "issue_url": payload.Data.Issue.WebURL},
	}
	if event.FilePath == "" {
		event.FilePath = "unknown"
	}
	if event.LineNumber <= 0 {
		event.LineNumber = 1
	}

	store, err := s.registry.Events()
	if err != nil {
		s.storeError(w, err)
		return
	}
	id, err := store.Put(event)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.logger.Info("webhook event recorded",
		zap.String("event_id", id),
		zap.String("function", event.FunctionName),
		zap.String("issue_url", payload.Data.Issue.WebURL),
	)

	response := map[string]any{"status": "recorded", "event_id": id}
	if s.config.DispatchURL != "" {
		if err := s.dispatchCleanup(r, title, payload.Data.Issue.WebURL); err != nil {
			s.logger.Error("cleanup dispatch failed", zap.Error(err))
			response["dispatch"] = "failed"
		} else {
			response["dispatch"] = "sent"
		}
	}
	s.writeJSON(w, http.StatusCreated, response)
}

// dispatchCleanup posts a cleanup prompt for the triggered tombstone to
// the configured automation endpoint.
func (s *Server) dispatchCleanup(r *http.Request, title, issueURL string) error {
	prompt := fmt.Sprintf(
		"A tombstone was triggered and raised an alert.\n\n"+
			"Issue URL: %s\nIssue Title: %s\n\n"+
			"Find the marked function, analyze why the supposedly dead code ran, "+
			"and either remove it or dismiss the tombstone.",
		issueURL, title,
	)
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return fmt.Errorf("marshal prompt: %w", err)
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, s.config.DispatchURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.DispatchToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.DispatchToken)
	}

	resp, err := s.dispatchClient.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("dispatch endpoint answered %d", resp.StatusCode)
	}
	return nil
}

// functionFromTitle extracts the function name from a tombstone issue
// title like "TOMBSTONE_HIT: legacyExport".
func functionFromTitle(title string) string {
	idx := strings.Index(title, tombstoneTitlePrefix)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(title[idx+len(tombstoneTitlePrefix):])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func atoiOrZero(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
