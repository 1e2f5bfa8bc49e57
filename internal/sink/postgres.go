package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/joao-cognition/devin-workshop/pkg/types"
)

// Compile-time interface check.
var _ Sink = (*Postgres)(nil)

// copyBatchSize bounds CopyFrom batches so a huge export stays in
// reasonably sized round trips.
const copyBatchSize = 1000

// postgresSchema mirrors the registry schema in Postgres dialect: the two
// tables plus the activity and summary views.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS tombstones (
    tombstone_id TEXT PRIMARY KEY,
    project_name TEXT NOT NULL,
    function_name TEXT NOT NULL,
    file_path TEXT NOT NULL,
    line_number INTEGER NOT NULL,
    reason TEXT,
    registered_at TIMESTAMPTZ NOT NULL,
    status TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS tombstone_events (
    event_id TEXT PRIMARY KEY,
    tombstone_id TEXT NOT NULL,
    project_name TEXT NOT NULL,
    function_name TEXT NOT NULL,
    file_path TEXT NOT NULL,
    line_number INTEGER NOT NULL,
    triggered_at TIMESTAMPTZ NOT NULL,
    context TEXT
);

CREATE INDEX IF NOT EXISTS idx_tombstones_project_status
    ON tombstones(project_name, status);
CREATE INDEX IF NOT EXISTS idx_events_tombstone
    ON tombstone_events(tombstone_id);
CREATE INDEX IF NOT EXISTS idx_events_triggered
    ON tombstone_events(triggered_at);

CREATE OR REPLACE VIEW tombstone_activity AS
SELECT
    t.tombstone_id,
    t.project_name,
    t.function_name,
    t.file_path,
    t.line_number,
    t.status,
    t.registered_at,
    COUNT(e.event_id) AS event_count,
    MAX(e.triggered_at) AS last_triggered_at
FROM tombstones t
LEFT JOIN tombstone_events e ON e.tombstone_id = t.tombstone_id
GROUP BY t.tombstone_id;

CREATE OR REPLACE VIEW project_summary AS
SELECT
    t.project_name,
    COUNT(*) AS total,
    COUNT(*) FILTER (WHERE t.status = 'active') AS active,
    COUNT(*) FILTER (WHERE t.status = 'removed') AS removed,
    COUNT(*) FILTER (WHERE t.status = 'dismissed') AS dismissed,
    COUNT(*) FILTER (WHERE EXISTS (
        SELECT 1 FROM tombstone_events e WHERE e.tombstone_id = t.tombstone_id
    )) AS triggered,
    COUNT(*) FILTER (WHERE NOT EXISTS (
        SELECT 1 FROM tombstone_events e WHERE e.tombstone_id = t.tombstone_id
    )) AS untriggered
FROM tombstones t
GROUP BY t.project_name;
`

// Postgres is the external sink backed by a pgx connection pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// OpenPostgres connects to the DSN, bootstraps the sink schema, and returns
// the sink. The caller must Close it.
func OpenPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*Postgres, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to sink: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging sink: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrapping sink schema: %w", err)
	}
	logger.Debug("postgres sink ready")
	return &Postgres{pool: pool, logger: logger}, nil
}

// RegisterTombstone upserts the tombstone. Re-registration refreshes the
// reason and update time but keeps the original registration time and status.
func (p *Postgres) RegisterTombstone(ctx context.Context, t *types.Tombstone) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO tombstones (tombstone_id, project_name, function_name,
		     file_path, line_number, reason, registered_at, status, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (tombstone_id) DO UPDATE SET
		     reason = EXCLUDED.reason,
		     updated_at = EXCLUDED.updated_at`,
		t.TombstoneID, t.ProjectName, t.FunctionName, t.FilePath, t.LineNumber,
		t.Reason, t.RegisteredAt, t.Status, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("registering tombstone %s: %w", t.TombstoneID, err)
	}
	return nil
}

// RecordEvent inserts one event. A duplicate event ID is ignored.
func (p *Postgres) RecordEvent(ctx context.Context, e *types.Event) error {
	contextJSON, err := marshalContext(e.Context)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO tombstone_events (event_id, tombstone_id, project_name,
		     function_name, file_path, line_number, triggered_at, context)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (event_id) DO NOTHING`,
		e.EventID, e.TombstoneID, e.ProjectName, e.FunctionName, e.FilePath,
		e.LineNumber, e.TriggeredAt, contextJSON)
	if err != nil {
		return fmt.Errorf("recording event %s: %w", e.EventID, err)
	}
	return nil
}

// RecordEvents bulk-inserts events with CopyFrom in batches. Events whose IDs
// already exist are filtered out first, since CopyFrom cannot skip conflicts.
func (p *Postgres) RecordEvents(ctx context.Context, events []*types.Event) error {
	if len(events) == 0 {
		return nil
	}
	fresh, err := p.filterExistingEvents(ctx, events)
	if err != nil {
		return err
	}
	columns := []string{"event_id", "tombstone_id", "project_name",
		"function_name", "file_path", "line_number", "triggered_at", "context"}
	for start := 0; start < len(fresh); start += copyBatchSize {
		end := start + copyBatchSize
		if end > len(fresh) {
			end = len(fresh)
		}
		batch := fresh[start:end]
		rows := make([][]any, 0, len(batch))
		for _, e := range batch {
			contextJSON, err := marshalContext(e.Context)
			if err != nil {
				return err
			}
			rows = append(rows, []any{e.EventID, e.TombstoneID, e.ProjectName,
				e.FunctionName, e.FilePath, e.LineNumber, e.TriggeredAt, contextJSON})
		}
		if _, err := p.pool.CopyFrom(ctx, pgx.Identifier{"tombstone_events"},
			columns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("copying events (start=%d, batch=%d): %w", start, len(batch), err)
		}
	}
	return nil
}

// filterExistingEvents drops events whose IDs are already in the sink.
func (p *Postgres) filterExistingEvents(ctx context.Context, events []*types.Event) ([]*types.Event, error) {
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.EventID)
	}
	rows, err := p.pool.Query(ctx,
		"SELECT event_id FROM tombstone_events WHERE event_id = ANY($1)", ids)
	if err != nil {
		return nil, fmt.Errorf("checking existing events: %w", err)
	}
	defer rows.Close()

	existing := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning existing event id: %w", err)
		}
		existing[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating existing event ids: %w", err)
	}

	fresh := make([]*types.Event, 0, len(events))
	for _, e := range events {
		if !existing[e.EventID] {
			fresh = append(fresh, e)
		}
	}
	return fresh, nil
}

// Tombstones lists sink tombstones matching the filter, newest first.
func (p *Postgres) Tombstones(ctx context.Context, f TombstoneFilter) ([]*types.Tombstone, error) {
	query := `SELECT tombstone_id, project_name, function_name, file_path,
	                 line_number, COALESCE(reason, ''), registered_at, status, updated_at
	          FROM tombstones`
	var conditions []string
	var args []any
	if f.Project != "" {
		args = append(args, f.Project)
		conditions = append(conditions, fmt.Sprintf("project_name = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY registered_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sink tombstones: %w", err)
	}
	defer rows.Close()

	results := []*types.Tombstone{}
	for rows.Next() {
		var t types.Tombstone
		if err := rows.Scan(&t.TombstoneID, &t.ProjectName, &t.FunctionName,
			&t.FilePath, &t.LineNumber, &t.Reason, &t.RegisteredAt,
			&t.Status, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning sink tombstone: %w", err)
		}
		results = append(results, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sink tombstones: %w", err)
	}
	return results, nil
}

// Events lists sink events matching the filter, most recent first.
func (p *Postgres) Events(ctx context.Context, f EventFilter) ([]*types.Event, error) {
	query := `SELECT event_id, tombstone_id, project_name, function_name,
	                 file_path, line_number, triggered_at, COALESCE(context, '')
	          FROM tombstone_events`
	var conditions []string
	var args []any
	if f.TombstoneID != "" {
		args = append(args, f.TombstoneID)
		conditions = append(conditions, fmt.Sprintf("tombstone_id = $%d", len(args)))
	}
	if f.Project != "" {
		args = append(args, f.Project)
		conditions = append(conditions, fmt.Sprintf("project_name = $%d", len(args)))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		conditions = append(conditions, fmt.Sprintf("triggered_at >= $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY triggered_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sink events: %w", err)
	}
	defer rows.Close()

	results := []*types.Event{}
	for rows.Next() {
		var e types.Event
		var contextJSON string
		if err := rows.Scan(&e.EventID, &e.TombstoneID, &e.ProjectName,
			&e.FunctionName, &e.FilePath, &e.LineNumber, &e.TriggeredAt,
			&contextJSON); err != nil {
			return nil, fmt.Errorf("scanning sink event: %w", err)
		}
		if contextJSON != "" {
			if err := json.Unmarshal([]byte(contextJSON), &e.Context); err != nil {
				return nil, fmt.Errorf("parsing event context: %w", err)
			}
		}
		results = append(results, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sink events: %w", err)
	}
	return results, nil
}

// Ping verifies the pool is reachable.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// marshalContext renders the event context map as JSON text, matching how
// the registry stores it.
func marshalContext(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshaling event context: %w", err)
	}
	return string(data), nil
}
