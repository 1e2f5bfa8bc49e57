// This file implements the event store for the registry backend.
package registry

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joao-cognition/devin-workshop/pkg/types"
)

// Compile-time interface check: eventStore must implement EventStore.
var _ types.EventStore = (*eventStore)(nil)

// eventStore persists execution events. Events are append-only; an event
// referencing a tombstone the registry has not seen yet is accepted, since
// instrumented code may report hits before its registration syncs.
type eventStore struct {
	backend *Backend
}

const eventColumns = "event_id, tombstone_id, project_name, function_name, file_path, line_number, triggered_at, context"

// Get retrieves an event by ID.
// Returns ErrInvalidID if id is empty, ErrNotFound if no event exists.
func (s *eventStore) Get(id string) (*types.Event, error) {
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()

	if !s.backend.attached {
		return nil, types.ErrRegistryDetached
	}
	if id == "" {
		return nil, types.ErrInvalidID
	}

	row := s.backend.db.QueryRow(
		"SELECT "+eventColumns+" FROM tombstone_events WHERE event_id = ?",
		id,
	)
	e, err := hydrateEvent(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting event %s: %w", id, err)
	}
	return e, nil
}

// Put inserts an event. When the event ID is empty a UUID v7 is generated;
// when the tombstone ID is empty it is derived from the call site.
func (s *eventStore) Put(e *types.Event) (string, error) {
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()

	if !s.backend.attached {
		return "", types.ErrRegistryDetached
	}
	if e == nil {
		return "", types.ErrInvalidData
	}
	if e.ProjectName == "" || e.FunctionName == "" || e.FilePath == "" || e.LineNumber <= 0 {
		return "", types.ErrInvalidData
	}

	if e.EventID == "" {
		e.EventID = generateUUID()
	}
	if e.TombstoneID == "" {
		e.TombstoneID = types.DeriveTombstoneID(e.ProjectName, e.FilePath, e.FunctionName, e.LineNumber)
	}
	if e.TriggeredAt.IsZero() {
		e.TriggeredAt = time.Now().UTC()
	}

	var contextJSON any
	if len(e.Context) > 0 {
		data, err := json.Marshal(e.Context)
		if err != nil {
			return "", fmt.Errorf("marshaling event context: %w", err)
		}
		contextJSON = string(data)
	}

	_, err := s.backend.db.Exec(
		"INSERT INTO tombstone_events ("+eventColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		e.EventID, e.TombstoneID, e.ProjectName, e.FunctionName, e.FilePath,
		e.LineNumber, e.TriggeredAt.Format(time.RFC3339), contextJSON,
	)
	if err != nil {
		return "", fmt.Errorf("persisting event: %w", err)
	}

	if err := s.backend.persistOrQueue("tombstone_events", s.persistJSONL); err != nil {
		return "", fmt.Errorf("persisting %s: %w", eventsJSONL, err)
	}

	return e.EventID, nil
}

// Delete removes an event by ID.
func (s *eventStore) Delete(id string) error {
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()

	if !s.backend.attached {
		return types.ErrRegistryDetached
	}
	if id == "" {
		return types.ErrInvalidID
	}

	res, err := s.backend.db.Exec("DELETE FROM tombstone_events WHERE event_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking deleted rows: %w", err)
	}
	if affected == 0 {
		return types.ErrNotFound
	}

	if err := s.backend.persistOrQueue("tombstone_events", s.persistJSONL); err != nil {
		return fmt.Errorf("persisting %s: %w", eventsJSONL, err)
	}

	return nil
}

// List queries events matching the filter, ordered by triggered_at DESC.
func (s *eventStore) List(filter map[string]any) ([]*types.Event, error) {
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()

	if !s.backend.attached {
		return nil, types.ErrRegistryDetached
	}

	query := "SELECT " + eventColumns + " FROM tombstone_events"
	var conditions []string
	var args []any

	if filter != nil {
		if v, ok := filter["tombstone_id"]; ok {
			id, ok := v.(string)
			if !ok {
				return nil, types.ErrInvalidFilter
			}
			conditions = append(conditions, "tombstone_id = ?")
			args = append(args, id)
		}

		if v, ok := filter["project_name"]; ok {
			project, ok := v.(string)
			if !ok {
				return nil, types.ErrInvalidFilter
			}
			conditions = append(conditions, "project_name = ?")
			args = append(args, project)
		}

		if v, ok := filter["since"]; ok {
			since, ok := v.(time.Time)
			if !ok {
				return nil, types.ErrInvalidFilter
			}
			conditions = append(conditions, "triggered_at >= ?")
			args = append(args, since.UTC().Format(time.RFC3339))
		}
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY triggered_at DESC"

	if filter != nil {
		if v, ok := filter["limit"]; ok {
			limit, ok := v.(int)
			if !ok {
				return nil, types.ErrInvalidFilter
			}
			if limit > 0 {
				query += fmt.Sprintf(" LIMIT %d", limit)
			}
		}
		if v, ok := filter["offset"]; ok {
			offset, ok := v.(int)
			if !ok {
				return nil, types.ErrInvalidFilter
			}
			if offset > 0 {
				query += fmt.Sprintf(" OFFSET %d", offset)
			}
		}
	}

	rows, err := s.backend.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	results := []*types.Event{}
	for rows.Next() {
		e, err := hydrateEvent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating event: %w", err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}

	return results, nil
}

// hydrateEvent converts one row into a *types.Event using the given scan
// function, which works for both sql.Row and sql.Rows.
func hydrateEvent(scan func(dest ...any) error) (*types.Event, error) {
	var e types.Event
	var triggeredAt string
	var context sql.NullString
	if err := scan(&e.EventID, &e.TombstoneID, &e.ProjectName, &e.FunctionName,
		&e.FilePath, &e.LineNumber, &triggeredAt, &context); err != nil {
		return nil, err
	}
	var err error
	e.TriggeredAt, err = time.Parse(time.RFC3339, triggeredAt)
	if err != nil {
		return nil, fmt.Errorf("parsing triggered_at: %w", err)
	}
	if context.Valid && context.String != "" {
		if err := json.Unmarshal([]byte(context.String), &e.Context); err != nil {
			return nil, fmt.Errorf("parsing event context: %w", err)
		}
	}
	return &e, nil
}

// persistJSONL reads all events from SQLite and writes them to events.jsonl
// using the atomic write pattern.
func (s *eventStore) persistJSONL() error {
	rows, err := s.backend.db.Query(
		"SELECT " + eventColumns + " FROM tombstone_events ORDER BY triggered_at ASC",
	)
	if err != nil {
		return fmt.Errorf("querying events for JSONL: %w", err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		var rec eventRecord
		var context sql.NullString
		if err := rows.Scan(&rec.EventID, &rec.TombstoneID, &rec.ProjectName,
			&rec.FunctionName, &rec.FilePath, &rec.LineNumber,
			&rec.TriggeredAt, &context); err != nil {
			return fmt.Errorf("scanning event for JSONL: %w", err)
		}
		if context.Valid && context.String != "" {
			rec.Context = json.RawMessage(context.String)
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling event for JSONL: %w", err)
		}
		records = append(records, data)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating events for JSONL: %w", err)
	}

	return writeJSONL(filepath.Join(s.backend.config.DataDir, eventsJSONL), records)
}

// eventRecord matches the JSONL format for events. The context round-trips
// as raw JSON so unknown keys survive rewrite cycles.
type eventRecord struct {
	EventID      string          `json:"event_id"`
	TombstoneID  string          `json:"tombstone_id"`
	ProjectName  string          `json:"project_name"`
	FunctionName string          `json:"function_name"`
	FilePath     string          `json:"file_path"`
	LineNumber   int             `json:"line_number"`
	TriggeredAt  string          `json:"triggered_at"`
	Context      json.RawMessage `json:"context,omitempty"`
}
