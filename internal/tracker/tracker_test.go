package tracker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/joao-cognition/devin-workshop/pkg/types"
)

// memorySink collects registrations and events for assertions.
type memorySink struct {
	mu         sync.Mutex
	tombstones []*types.Tombstone
	events     []*types.Event
	failEvents bool
}

func (m *memorySink) RegisterTombstone(ctx context.Context, t *types.Tombstone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tombstones = append(m.tombstones, t)
	return nil
}

func (m *memorySink) RecordEvent(ctx context.Context, e *types.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failEvents {
		return errors.New("sink unavailable")
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memorySink) eventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func waitForEvents(t *testing.T, sink *memorySink, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sink.eventCount() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events, have %d", want, sink.eventCount())
}

func TestRegisterDerivesDeterministicID(t *testing.T) {
	sink := &memorySink{}
	tr := New(sink, Options{Project: "demo"})
	defer tr.Close()

	a := tr.Register("legacyExport", "internal/export.go", 42, "unused since v2")
	b := tr.Register("legacyExport", "internal/export.go", 42, "unused since v2")

	assert.Equal(t, a.Tombstone.TombstoneID, b.Tombstone.TombstoneID)
	assert.Len(t, sink.tombstones, 2) // upsert semantics live in the sink
}

func TestHitDeliversEvent(t *testing.T) {
	sink := &memorySink{}
	tr := New(sink, Options{Project: "demo"})

	site := tr.Register("legacyExport", "internal/export.go", 42, "unused since v2")
	site.Hit(context.Background(), map[string]string{"caller": "batch-job"})

	waitForEvents(t, sink, 1)
	tr.Close()

	e := sink.events[0]
	assert.Equal(t, site.Tombstone.TombstoneID, e.TombstoneID)
	assert.Equal(t, "legacyExport", e.FunctionName)
	assert.Equal(t, "unused since v2", e.Context["reason"])
	assert.Equal(t, "batch-job", e.Context["caller"])
	assert.Equal(t, int64(1), tr.Delivered())
}

func TestWrapRecordsBeforeRunning(t *testing.T) {
	sink := &memorySink{}
	tr := New(sink, Options{Project: "demo"})
	defer tr.Close()

	ran := false
	site := tr.Register("oldPath", "old.go", 7, "")
	fn := site.Wrap(func() error {
		ran = true
		return nil
	})

	require.NoError(t, fn())
	assert.True(t, ran)
	waitForEvents(t, sink, 1)
}

func TestDryRunSkipsDelivery(t *testing.T) {
	sink := &memorySink{}
	tr := New(sink, Options{Project: "demo", DryRun: true})
	defer tr.Close()

	site := tr.Register("legacyExport", "export.go", 10, "")
	site.Mark(context.Background())

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, sink.eventCount())
	assert.Empty(t, sink.tombstones) // dry run skips registration too
}

func TestFallbackOnSinkFailure(t *testing.T) {
	primary := &memorySink{failEvents: true}
	fallback := &memorySink{}
	tr := New(primary, Options{Project: "demo", Fallback: fallback})

	site := tr.Register("legacyExport", "export.go", 10, "")
	site.Mark(context.Background())

	waitForEvents(t, fallback, 1)
	tr.Close()
	assert.Equal(t, int64(1), tr.Delivered())
}

func TestCloseDrainsBuffer(t *testing.T) {
	sink := &memorySink{}
	tr := New(sink, Options{Project: "demo", BufferSize: 64})

	site := tr.Register("legacyExport", "export.go", 10, "")
	for i := 0; i < 10; i++ {
		site.Mark(context.Background())
	}
	tr.Close()

	assert.Equal(t, 10, sink.eventCount())
	// Recording after close is a no-op.
	site.Mark(context.Background())
	assert.Equal(t, 10, sink.eventCount())
}

func TestMiddlewareRecordsHit(t *testing.T) {
	sink := &memorySink{}
	tr := New(sink, Options{Project: "demo"})
	defer tr.Close()

	site := tr.Register("handleLegacyReport", "handlers.go", 88, "route unused")
	handler := site.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/legacy/report", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	waitForEvents(t, sink, 1)
	assert.Equal(t, "/legacy/report", sink.events[0].Context["path"])
}

func TestTrackerGoroutineLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	sink := &memorySink{}
	tr := New(sink, Options{Project: "demo"})
	site := tr.Register("legacyExport", "export.go", 10, "")
	site.Mark(context.Background())
	tr.Close()
	tr.Close() // idempotent
}
