// Package sink delivers tombstone registrations and events to an external
// store. The Postgres implementation is the shared sink a team reports to;
// the registry adapter serves as the local fallback and the export source.
package sink

import (
	"context"
	"time"

	"github.com/joao-cognition/devin-workshop/pkg/types"
)

// Sink is the full event-sink surface. The tracker only needs the two write
// methods; reconciliation and export use the rest.
type Sink interface {
	// RegisterTombstone upserts a tombstone keyed by its derived ID.
	RegisterTombstone(ctx context.Context, t *types.Tombstone) error

	// RecordEvent inserts one execution event.
	RecordEvent(ctx context.Context, e *types.Event) error

	// RecordEvents inserts events in bulk. Duplicate event IDs are skipped.
	RecordEvents(ctx context.Context, events []*types.Event) error

	// Tombstones lists tombstones matching the filter.
	Tombstones(ctx context.Context, f TombstoneFilter) ([]*types.Tombstone, error)

	// Events lists events matching the filter, most recent first.
	Events(ctx context.Context, f EventFilter) ([]*types.Event, error)

	// Ping verifies the sink is reachable.
	Ping(ctx context.Context) error

	// Close releases sink resources.
	Close()
}

// TombstoneFilter narrows Tombstones results. Zero values match everything.
type TombstoneFilter struct {
	Project string
	Status  string
	Limit   int
}

// EventFilter narrows Events results. Zero values match everything.
type EventFilter struct {
	TombstoneID string
	Project     string
	Since       time.Time
	Limit       int
}
