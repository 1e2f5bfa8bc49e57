package sink

import (
	"context"
	"fmt"

	"github.com/joao-cognition/devin-workshop/pkg/types"
)

// Compile-time interface check.
var _ Sink = (*RegistrySink)(nil)

// RegistrySink adapts the local registry to the Sink interface. The tracker
// uses it as the fallback target and it lets every sink consumer run fully
// offline.
type RegistrySink struct {
	registry types.Registry
}

// NewRegistrySink wraps an attached registry as a Sink.
func NewRegistrySink(registry types.Registry) *RegistrySink {
	return &RegistrySink{registry: registry}
}

// RegisterTombstone upserts into the local tombstone store.
func (r *RegistrySink) RegisterTombstone(ctx context.Context, t *types.Tombstone) error {
	store, err := r.registry.Tombstones()
	if err != nil {
		return err
	}
	if _, err := store.Put(t); err != nil {
		return fmt.Errorf("registering tombstone locally: %w", err)
	}
	return nil
}

// RecordEvent inserts into the local event store.
func (r *RegistrySink) RecordEvent(ctx context.Context, e *types.Event) error {
	store, err := r.registry.Events()
	if err != nil {
		return err
	}
	if _, err := store.Put(e); err != nil {
		return fmt.Errorf("recording event locally: %w", err)
	}
	return nil
}

// RecordEvents inserts events one at a time; the registry has no bulk path.
func (r *RegistrySink) RecordEvents(ctx context.Context, events []*types.Event) error {
	for _, e := range events {
		if err := r.RecordEvent(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Tombstones lists from the local tombstone store.
func (r *RegistrySink) Tombstones(ctx context.Context, f TombstoneFilter) ([]*types.Tombstone, error) {
	store, err := r.registry.Tombstones()
	if err != nil {
		return nil, err
	}
	filter := map[string]any{}
	if f.Project != "" {
		filter["project_name"] = f.Project
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Limit > 0 {
		filter["limit"] = f.Limit
	}
	return store.List(filter)
}

// Events lists from the local event store.
func (r *RegistrySink) Events(ctx context.Context, f EventFilter) ([]*types.Event, error) {
	store, err := r.registry.Events()
	if err != nil {
		return nil, err
	}
	filter := map[string]any{}
	if f.TombstoneID != "" {
		filter["tombstone_id"] = f.TombstoneID
	}
	if f.Project != "" {
		filter["project_name"] = f.Project
	}
	if !f.Since.IsZero() {
		filter["since"] = f.Since
	}
	if f.Limit > 0 {
		filter["limit"] = f.Limit
	}
	return store.List(filter)
}

// Ping reports whether the registry is attached.
func (r *RegistrySink) Ping(ctx context.Context) error {
	_, err := r.registry.Tombstones()
	return err
}

// Close is a no-op; the registry's lifecycle belongs to its owner.
func (r *RegistrySink) Close() {}
