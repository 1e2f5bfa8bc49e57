package types

import (
	"errors"
	"time"
)

// Registry defines storage access for tombstones and their events.
// Callers attach to a backend, operate through the typed stores, and
// detach when done.
type Registry interface {
	// Attach connects the registry to the backend described by config.
	// Creates the DataDir if it does not exist. Returns ErrAlreadyAttached
	// if called while already attached.
	Attach(config Config) error

	// Detach flushes pending writes and releases backend resources.
	// Idempotent: multiple calls succeed. After Detach, operations return
	// ErrRegistryDetached.
	Detach() error

	// Tombstones returns the tombstone store.
	// Returns ErrRegistryDetached if the registry is not attached.
	Tombstones() (TombstoneStore, error)

	// Events returns the event store.
	// Returns ErrRegistryDetached if the registry is not attached.
	Events() (EventStore, error)

	// ConfirmedDead returns active tombstones for the project registered
	// before cutoff with zero recorded events. These are the candidates
	// safe to delete.
	ConfirmedDead(project string, cutoff time.Time) ([]*Tombstone, error)

	// Activity returns per-tombstone event rollups for the project,
	// most recently triggered first.
	Activity(project string) ([]ActivityRow, error)

	// Summary returns per-project aggregate counts, one row per project.
	Summary() ([]ProjectSummary, error)
}

// TombstoneStore provides persistence for tombstones.
type TombstoneStore interface {
	// Get retrieves the tombstone with the given ID.
	// Returns ErrNotFound if no tombstone exists with that ID.
	Get(id string) (*Tombstone, error)

	// Put upserts a tombstone keyed by its derived ID. Re-registering an
	// existing site refreshes the reason and keeps the original
	// registration time. Returns the tombstone ID.
	Put(t *Tombstone) (string, error)

	// Delete removes the tombstone and all of its events.
	// Returns ErrNotFound if no tombstone exists with that ID.
	Delete(id string) error

	// List returns tombstones matching the filter, ordered by
	// registration time descending. Supported keys: project_name, status,
	// statuses ([]string), file_path, limit, offset. An empty filter
	// returns every tombstone.
	List(filter map[string]any) ([]*Tombstone, error)

	// SetStatus moves the tombstone to status, enforcing the entity
	// transition rules. A non-empty reason replaces the stored one.
	SetStatus(id, status, reason string) error
}

// EventStore provides persistence for execution events.
type EventStore interface {
	// Get retrieves the event with the given ID.
	// Returns ErrNotFound if no event exists with that ID.
	Get(id string) (*Event, error)

	// Put inserts an event. When the event ID is empty a new UUID v7 is
	// generated. An unknown tombstone ID is allowed: the event may arrive
	// before its registration syncs. Returns the actual event ID used.
	Put(e *Event) (string, error)

	// Delete removes the event with the given ID.
	// Returns ErrNotFound if no event exists with that ID.
	Delete(id string) error

	// List returns events matching the filter, ordered by trigger time
	// descending. Supported keys: tombstone_id, project_name, since
	// (time.Time), limit, offset.
	List(filter map[string]any) ([]*Event, error)
}

// ActivityRow is one row of the per-tombstone activity rollup: the site,
// its status, and how often and how recently it was triggered.
type ActivityRow struct {
	TombstoneID     string     `json:"tombstone_id"`
	ProjectName     string     `json:"project_name"`
	FunctionName    string     `json:"function_name"`
	FilePath        string     `json:"file_path"`
	LineNumber      int        `json:"line_number"`
	Status          string     `json:"status"`
	RegisteredAt    time.Time  `json:"registered_at"`
	EventCount      int        `json:"event_count"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
}

// ProjectSummary aggregates one project's tombstones by status, split by
// whether any event was ever recorded against them.
type ProjectSummary struct {
	ProjectName string `json:"project_name"`
	Total       int    `json:"total"`
	Active      int    `json:"active"`
	Removed     int    `json:"removed"`
	Dismissed   int    `json:"dismissed"`
	Triggered   int    `json:"triggered"`
	Untriggered int    `json:"untriggered"`
}

// Registry lifecycle errors.
var (
	ErrRegistryDetached = errors.New("registry is detached")
	ErrAlreadyAttached  = errors.New("registry is already attached")
)

// Store operation errors.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrInvalidID     = errors.New("invalid entity ID")
	ErrInvalidData   = errors.New("invalid entity data")
	ErrInvalidFilter = errors.New("invalid filter value type")
)

// Entity method errors.
var (
	ErrInvalidState      = errors.New("invalid status value")
	ErrInvalidTransition = errors.New("invalid status transition")
)
