// This file implements the tombstone store for the registry backend.
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

// Compile-time interface check: tombstoneStore must implement TombstoneStore.
var _ types.TombstoneStore = (*tombstoneStore)(nil)

// tombstoneStore persists tombstones. Each write updates SQLite inside a
// transaction and then persists tombstones.jsonl according to the backend's
// sync strategy.
type tombstoneStore struct {
	backend *Backend
}

const tombstoneColumns = "tombstone_id, project_name, function_name, file_path, line_number, reason, registered_at, status, updated_at"

// Get retrieves a tombstone by ID.
// Returns ErrInvalidID if id is empty, ErrNotFound if no tombstone exists.
func (s *tombstoneStore) Get(id string) (*types.Tombstone, error) {
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()

	if !s.backend.attached {
		return nil, types.ErrRegistryDetached
	}
	if id == "" {
		return nil, types.ErrInvalidID
	}

	row := s.backend.db.QueryRow(
		"SELECT "+tombstoneColumns+" FROM tombstones WHERE tombstone_id = ?",
		id,
	)
	t, err := hydrateTombstone(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting tombstone %s: %w", id, err)
	}
	return t, nil
}

// Put upserts a tombstone keyed by its derived ID. A new site is inserted as
// active; re-registering an existing site refreshes the reason and update
// time but keeps the original registration time and status.
func (s *tombstoneStore) Put(t *types.Tombstone) (string, error) {
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()

	if !s.backend.attached {
		return "", types.ErrRegistryDetached
	}
	if t == nil {
		return "", types.ErrInvalidData
	}
	if t.ProjectName == "" || t.FunctionName == "" || t.FilePath == "" || t.LineNumber <= 0 {
		return "", types.ErrInvalidData
	}

	now := time.Now().UTC()
	if t.TombstoneID == "" {
		t.TombstoneID = types.DeriveTombstoneID(t.ProjectName, t.FilePath, t.FunctionName, t.LineNumber)
	}
	if t.Status == "" {
		t.Status = types.StatusActive
	}
	if t.RegisteredAt.IsZero() {
		t.RegisteredAt = now
	}
	t.UpdatedAt = now

	_, err := s.backend.db.Exec(
		`INSERT INTO tombstones (`+tombstoneColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(tombstone_id) DO UPDATE SET
		     reason = excluded.reason,
		     updated_at = excluded.updated_at`,
		t.TombstoneID, t.ProjectName, t.FunctionName, t.FilePath, t.LineNumber,
		t.Reason, t.RegisteredAt.Format(time.RFC3339), t.Status,
		t.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("persisting tombstone: %w", err)
	}

	if err := s.backend.persistOrQueue("tombstones", s.persistJSONL); err != nil {
		return "", fmt.Errorf("persisting %s: %w", tombstonesJSONL, err)
	}

	return t.TombstoneID, nil
}

// Delete removes a tombstone and cascades to its events.
func (s *tombstoneStore) Delete(id string) error {
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()

	if !s.backend.attached {
		return types.ErrRegistryDetached
	}
	if id == "" {
		return types.ErrInvalidID
	}

	var exists bool
	err := s.backend.db.QueryRow(
		"SELECT 1 FROM tombstones WHERE tombstone_id = ?", id,
	).Scan(&exists)
	if err != nil {
		if err == sql.ErrNoRows {
			return types.ErrNotFound
		}
		return fmt.Errorf("checking tombstone existence: %w", err)
	}

	tx, err := s.backend.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM tombstone_events WHERE tombstone_id = ?", id); err != nil {
		return fmt.Errorf("deleting tombstone events: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM tombstones WHERE tombstone_id = ?", id); err != nil {
		return fmt.Errorf("deleting tombstone: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing tombstone deletion: %w", err)
	}

	if err := s.backend.persistOrQueue("tombstones", s.persistJSONL); err != nil {
		return fmt.Errorf("persisting %s: %w", tombstonesJSONL, err)
	}
	if err := s.backend.persistOrQueue("tombstone_events", s.backend.events.persistJSONL); err != nil {
		return fmt.Errorf("persisting %s: %w", eventsJSONL, err)
	}

	return nil
}

// List queries tombstones matching the filter, ordered by registered_at DESC.
func (s *tombstoneStore) List(filter map[string]any) ([]*types.Tombstone, error) {
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()

	if !s.backend.attached {
		return nil, types.ErrRegistryDetached
	}

	query := "SELECT " + tombstoneColumns + " FROM tombstones"
	var conditions []string
	var args []any

	if filter != nil {
		if v, ok := filter["project_name"]; ok {
			project, ok := v.(string)
			if !ok {
				return nil, types.ErrInvalidFilter
			}
			conditions = append(conditions, "project_name = ?")
			args = append(args, project)
		}

		if v, ok := filter["status"]; ok {
			status, ok := v.(string)
			if !ok {
				return nil, types.ErrInvalidFilter
			}
			conditions = append(conditions, "status = ?")
			args = append(args, status)
		}

		if v, ok := filter["statuses"]; ok {
			statuses, ok := v.([]string)
			if !ok {
				return nil, types.ErrInvalidFilter
			}
			if len(statuses) > 0 {
				placeholders := make([]string, len(statuses))
				for i, st := range statuses {
					placeholders[i] = "?"
					args = append(args, st)
				}
				conditions = append(conditions, "status IN ("+strings.Join(placeholders, ", ")+")")
			}
		}

		if v, ok := filter["file_path"]; ok {
			path, ok := v.(string)
			if !ok {
				return nil, types.ErrInvalidFilter
			}
			conditions = append(conditions, "file_path = ?")
			args = append(args, path)
		}
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY registered_at DESC"

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
		return nil, fmt.Errorf("listing tombstones: %w", err)
	}
	defer rows.Close()

	results := []*types.Tombstone{}
	for rows.Next() {
		t, err := hydrateTombstone(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating tombstone: %w", err)
		}
		results = append(results, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tombstones: %w", err)
	}

	return results, nil
}

// SetStatus moves the tombstone to status through the entity transition
// rules, so invalid moves are rejected before any row changes.
func (s *tombstoneStore) SetStatus(id, status, reason string) error {
	t, err := s.Get(id)
	if err != nil {
		return err
	}

	if err := t.SetStatus(status); err != nil {
		return err
	}
	if reason != "" {
		t.Reason = reason
	}

	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()

	if !s.backend.attached {
		return types.ErrRegistryDetached
	}

	_, err = s.backend.db.Exec(
		"UPDATE tombstones SET status = ?, reason = ?, updated_at = ? WHERE tombstone_id = ?",
		t.Status, t.Reason, t.UpdatedAt.Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("updating tombstone status: %w", err)
	}

	if err := s.backend.persistOrQueue("tombstones", s.persistJSONL); err != nil {
		return fmt.Errorf("persisting %s: %w", tombstonesJSONL, err)
	}

	return nil
}

// hydrateTombstone converts one row into a *types.Tombstone using the given
// scan function, which works for both sql.Row and sql.Rows.
func hydrateTombstone(scan func(dest ...any) error) (*types.Tombstone, error) {
	var t types.Tombstone
	var reason sql.NullString
	var registeredAt, updatedAt string
	if err := scan(&t.TombstoneID, &t.ProjectName, &t.FunctionName, &t.FilePath,
		&t.LineNumber, &reason, &registeredAt, &t.Status, &updatedAt); err != nil {
		return nil, err
	}
	t.Reason = reason.String
	var err error
	t.RegisteredAt, err = time.Parse(time.RFC3339, registeredAt)
	if err != nil {
		return nil, fmt.Errorf("parsing registered_at: %w", err)
	}
	t.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &t, nil
}

// persistJSONL reads all tombstones from SQLite and writes them to
// tombstones.jsonl using the atomic write pattern.
func (s *tombstoneStore) persistJSONL() error {
	rows, err := s.backend.db.Query(
		"SELECT " + tombstoneColumns + " FROM tombstones ORDER BY registered_at ASC",
	)
	if err != nil {
		return fmt.Errorf("querying tombstones for JSONL: %w", err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		var rec tombstoneRecord
		var reason sql.NullString
		if err := rows.Scan(&rec.TombstoneID, &rec.ProjectName, &rec.FunctionName,
			&rec.FilePath, &rec.LineNumber, &reason, &rec.RegisteredAt,
			&rec.Status, &rec.UpdatedAt); err != nil {
			return fmt.Errorf("scanning tombstone for JSONL: %w", err)
		}
		rec.Reason = reason.String
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling tombstone for JSONL: %w", err)
		}
		records = append(records, data)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating tombstones for JSONL: %w", err)
	}

	return writeJSONL(filepath.Join(s.backend.config.DataDir, tombstonesJSONL), records)
}

// tombstoneRecord matches the JSONL format for tombstones. Timestamps stay
// as the RFC3339 strings stored in SQLite.
type tombstoneRecord struct {
	TombstoneID  string `json:"tombstone_id"`
	ProjectName  string `json:"project_name"`
	FunctionName string `json:"function_name"`
	FilePath     string `json:"file_path"`
	LineNumber   int    `json:"line_number"`
	Reason       string `json:"reason,omitempty"`
	RegisteredAt string `json:"registered_at"`
	Status       string `json:"status"`
	UpdatedAt    string `json:"updated_at"`
}
