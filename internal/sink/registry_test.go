package sink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-cognition/devin-workshop/internal/registry"
	"github.com/joao-cognition/devin-workshop/pkg/types"
)

// setupRegistry attaches a registry backend in a temp dir.
func setupRegistry(t *testing.T) types.Registry {
	t.Helper()
	backend := registry.NewBackend()
	err := backend.Attach(types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
		Project: "demo",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Detach() })
	return backend
}

func TestRegistrySinkRoundTrip(t *testing.T) {
	reg := setupRegistry(t)
	s := NewRegistrySink(reg)
	ctx := context.Background()

	ts := types.NewTombstone("demo", "internal/export.go", "legacyExport", 42, "unused since v2")
	require.NoError(t, s.RegisterTombstone(ctx, ts))

	e := &types.Event{
		TombstoneID:  ts.TombstoneID,
		ProjectName:  "demo",
		FunctionName: "legacyExport",
		FilePath:     "internal/export.go",
		LineNumber:   42,
		Context:      map[string]string{"reason": "unused since v2"},
	}
	require.NoError(t, s.RecordEvent(ctx, e))

	tombstones, err := s.Tombstones(ctx, TombstoneFilter{Project: "demo"})
	require.NoError(t, err)
	require.Len(t, tombstones, 1)
	assert.Equal(t, ts.TombstoneID, tombstones[0].TombstoneID)

	events, err := s.Events(ctx, EventFilter{TombstoneID: ts.TombstoneID})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "unused since v2", events[0].Context["reason"])

	assert.NoError(t, s.Ping(ctx))
}

func TestRegistrySinkFilters(t *testing.T) {
	reg := setupRegistry(t)
	s := NewRegistrySink(reg)
	ctx := context.Background()

	for i, fn := range []string{"oldA", "oldB", "oldC"} {
		ts := types.NewTombstone("demo", "legacy.go", fn, 10+i, "")
		require.NoError(t, s.RegisterTombstone(ctx, ts))
	}

	tombstones, err := s.Tombstones(ctx, TombstoneFilter{Project: "demo", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, tombstones, 2)

	tombstones, err = s.Tombstones(ctx, TombstoneFilter{Project: "other"})
	require.NoError(t, err)
	assert.Empty(t, tombstones)
}

func TestExportCopiesRegistry(t *testing.T) {
	src := setupRegistry(t)
	srcSink := NewRegistrySink(src)
	ctx := context.Background()

	ts := types.NewTombstone("demo", "legacy.go", "oldA", 10, "flagged")
	require.NoError(t, srcSink.RegisterTombstone(ctx, ts))
	require.NoError(t, srcSink.RecordEvent(ctx, &types.Event{
		TombstoneID:  ts.TombstoneID,
		ProjectName:  "demo",
		FunctionName: "oldA",
		FilePath:     "legacy.go",
		LineNumber:   10,
	}))

	dest := NewRegistrySink(setupRegistry(t))
	result, err := Export(ctx, src, dest, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Tombstones)
	assert.Equal(t, 1, result.Events)

	exported, err := dest.Tombstones(ctx, TombstoneFilter{})
	require.NoError(t, err)
	assert.Len(t, exported, 1)
}
