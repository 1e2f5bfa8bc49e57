package reconcile

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-cognition/devin-workshop/internal/registry"
	"github.com/joao-cognition/devin-workshop/internal/sink"
	"github.com/joao-cognition/devin-workshop/pkg/types"
)

const testProject = "billing"

func setupRegistry(t *testing.T) types.Registry {
	t.Helper()
	backend := registry.NewBackend()
	err := backend.Attach(types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
		Project: testProject,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Detach() })
	return backend
}

// putTombstone inserts an active tombstone registered the given number of
// days ago.
func putTombstone(t *testing.T, reg types.Registry, function string, daysOld int) *types.Tombstone {
	t.Helper()
	store, err := reg.Tombstones()
	require.NoError(t, err)

	ts := types.NewTombstone(testProject, "internal/ledger/post.go", function, 10, "flagged by analysis")
	ts.RegisteredAt = time.Now().UTC().AddDate(0, 0, -daysOld)
	_, err = store.Put(ts)
	require.NoError(t, err)
	return ts
}

func putEvent(t *testing.T, reg types.Registry, ts *types.Tombstone) *types.Event {
	t.Helper()
	store, err := reg.Events()
	require.NoError(t, err)

	e := &types.Event{
		TombstoneID:  ts.TombstoneID,
		ProjectName:  ts.ProjectName,
		FunctionName: ts.FunctionName,
		FilePath:     ts.FilePath,
		LineNumber:   ts.LineNumber,
	}
	_, err = store.Put(e)
	require.NoError(t, err)
	return e
}

func TestRunClassifiesTombstones(t *testing.T) {
	reg := setupRegistry(t)

	dead := putTombstone(t, reg, "legacyExport", 40)
	live := putTombstone(t, reg, "oldFlush", 40)
	putEvent(t, reg, live)
	putTombstone(t, reg, "recentSuspect", 5)

	report, err := Run(context.Background(), reg, nil, Options{Project: testProject})
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalActive)
	assert.Equal(t, 1, report.ConfirmedDead)
	assert.Equal(t, 1, report.FalsePositives)
	assert.Equal(t, 0, report.SinkDrift)
	assert.Equal(t, 30, report.WindowDays)
	assert.NotEmpty(t, report.CorrelationID)

	byCheck := map[string]types.Finding{}
	for _, f := range report.Findings {
		byCheck[f.CheckType] = f
	}
	assert.Equal(t, dead.TombstoneID, byCheck[types.CheckConfirmedDead].TombstoneID)
	assert.Equal(t, live.TombstoneID, byCheck[types.CheckFalsePositive].TombstoneID)
	assert.Contains(t, byCheck[types.CheckFalsePositive].Detail, "triggered 1 times")
}

func TestRunHonorsWindowDays(t *testing.T) {
	reg := setupRegistry(t)
	putTombstone(t, reg, "legacyExport", 10)

	report, err := Run(context.Background(), reg, nil, Options{Project: testProject, WindowDays: 7})
	require.NoError(t, err)
	assert.Equal(t, 1, report.ConfirmedDead)

	report, err = Run(context.Background(), reg, nil, Options{Project: testProject, WindowDays: 30})
	require.NoError(t, err)
	assert.Equal(t, 0, report.ConfirmedDead)
}

func TestRunDetectsSinkDrift(t *testing.T) {
	reg := setupRegistry(t)
	remote := setupRegistry(t)
	snk := sink.NewRegistrySink(remote)

	localOnly := putTombstone(t, reg, "localOnly", 0)
	remoteOnly := putTombstone(t, remote, "remoteOnly", 0)

	report, err := Run(context.Background(), reg, snk, Options{Project: testProject})
	require.NoError(t, err)

	assert.Equal(t, 2, report.SinkDrift)
	ids := map[string]string{}
	for _, f := range report.Findings {
		if f.CheckType == types.CheckSinkDrift {
			ids[f.TombstoneID] = f.Detail
		}
	}
	assert.Contains(t, ids[localOnly.TombstoneID], "missing in sink")
	assert.Contains(t, ids[remoteOnly.TombstoneID], "missing locally")
}

func TestRunDetectsEventDrift(t *testing.T) {
	reg := setupRegistry(t)
	remote := setupRegistry(t)
	snk := sink.NewRegistrySink(remote)

	// Same tombstone on both sides, but the event only landed locally.
	ts := putTombstone(t, reg, "legacyExport", 0)
	remoteStore, err := remote.Tombstones()
	require.NoError(t, err)
	clone := *ts
	_, err = remoteStore.Put(&clone)
	require.NoError(t, err)

	e := putEvent(t, reg, ts)

	report, err := Run(context.Background(), reg, snk, Options{Project: testProject})
	require.NoError(t, err)

	// The event drift also makes the tombstone a local false positive.
	assert.Equal(t, 1, report.SinkDrift)
	drift := findByCheck(report, types.CheckSinkDrift)
	require.NotNil(t, drift)
	assert.Contains(t, drift.Detail, e.EventID)
	assert.Contains(t, drift.Detail, "missing in sink")
}

func findByCheck(r *types.ReconciliationReport, check string) *types.Finding {
	for i := range r.Findings {
		if r.Findings[i].CheckType == check {
			return &r.Findings[i]
		}
	}
	return nil
}

func TestMarkdownAgreesWithFindings(t *testing.T) {
	reg := setupRegistry(t)
	putTombstone(t, reg, "legacyExport", 40)

	report, err := Run(context.Background(), reg, nil, Options{Project: testProject})
	require.NoError(t, err)

	dir := t.TempDir()
	path, err := WriteMarkdown(dir, report)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)

	assert.Contains(t, text, "| Confirmed dead | 1 |")
	assert.Contains(t, text, report.CorrelationID)
	assert.Contains(t, text, "legacyExport")
	assert.Contains(t, text, "## False Positives\n\nNothing found.")
}

func TestWatchRunsOnScheduleAndStops(t *testing.T) {
	reg := setupRegistry(t)

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	var runs atomic.Int32
	err := Watch(ctx, reg, nil, Options{Project: testProject}, 50*time.Millisecond,
		func(r *types.ReconciliationReport) { runs.Add(1) })

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, runs.Load(), int32(2))
}

func TestWatchRejectsBadInterval(t *testing.T) {
	reg := setupRegistry(t)
	err := Watch(context.Background(), reg, nil, Options{Project: testProject}, 0, nil)
	assert.Error(t, err)
}
