// This file implements the rollup queries backed by the schema views.
package registry

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/joao-cognition/devin-workshop/pkg/types"
)

// ConfirmedDead returns active tombstones for the project registered before
// cutoff with zero recorded events: the registry's notion of code that is
// safe to delete.
func (b *Backend) ConfirmedDead(project string, cutoff time.Time) ([]*types.Tombstone, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrRegistryDetached
	}

	rows, err := b.db.Query(
		`SELECT `+tombstoneColumns+` FROM tombstones
		 WHERE project_name = ?
		   AND status = ?
		   AND registered_at < ?
		   AND NOT EXISTS (
		       SELECT 1 FROM tombstone_events e
		       WHERE e.tombstone_id = tombstones.tombstone_id
		   )
		 ORDER BY registered_at ASC`,
		project, types.StatusActive, cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("querying confirmed dead: %w", err)
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
		return nil, fmt.Errorf("iterating confirmed dead: %w", err)
	}

	return results, nil
}

// Activity returns per-tombstone event rollups for the project from the
// tombstone_activity view, most recently triggered first; tombstones that
// never triggered sort last.
func (b *Backend) Activity(project string) ([]types.ActivityRow, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrRegistryDetached
	}

	rows, err := b.db.Query(
		`SELECT tombstone_id, project_name, function_name, file_path,
		        line_number, status, registered_at, event_count, last_triggered_at
		 FROM tombstone_activity
		 WHERE project_name = ?
		 ORDER BY last_triggered_at DESC, registered_at DESC`,
		project,
	)
	if err != nil {
		return nil, fmt.Errorf("querying activity: %w", err)
	}
	defer rows.Close()

	results := []types.ActivityRow{}
	for rows.Next() {
		var r types.ActivityRow
		var registeredAt string
		var lastTriggered sql.NullString
		if err := rows.Scan(&r.TombstoneID, &r.ProjectName, &r.FunctionName,
			&r.FilePath, &r.LineNumber, &r.Status, &registeredAt,
			&r.EventCount, &lastTriggered); err != nil {
			return nil, fmt.Errorf("scanning activity row: %w", err)
		}
		r.RegisteredAt, err = time.Parse(time.RFC3339, registeredAt)
		if err != nil {
			return nil, fmt.Errorf("parsing registered_at: %w", err)
		}
		if lastTriggered.Valid && lastTriggered.String != "" {
			ts, err := time.Parse(time.RFC3339, lastTriggered.String)
			if err != nil {
				return nil, fmt.Errorf("parsing last_triggered_at: %w", err)
			}
			r.LastTriggeredAt = &ts
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity rows: %w", err)
	}

	return results, nil
}

// Summary returns per-project aggregate counts from the project_summary
// view, one row per project, ordered by project name.
func (b *Backend) Summary() ([]types.ProjectSummary, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrRegistryDetached
	}

	rows, err := b.db.Query(
		`SELECT project_name, total, active, removed, dismissed, triggered, untriggered
		 FROM project_summary
		 ORDER BY project_name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying summary: %w", err)
	}
	defer rows.Close()

	results := []types.ProjectSummary{}
	for rows.Next() {
		var s types.ProjectSummary
		if err := rows.Scan(&s.ProjectName, &s.Total, &s.Active, &s.Removed,
			&s.Dismissed, &s.Triggered, &s.Untriggered); err != nil {
			return nil, fmt.Errorf("scanning summary row: %w", err)
		}
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating summary rows: %w", err)
	}

	return results, nil
}
