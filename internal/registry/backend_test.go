// Tests for registry backend lifecycle and sync strategies.
package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joao-cognition/devin-workshop/pkg/types"
)

func sqliteConfig(dir string) types.Config {
	return types.Config{
		Backend: types.BackendSQLite,
		DataDir: dir,
		Project: "billing",
	}
}

// seedTombstone registers one tombstone and returns it.
func seedTombstone(t *testing.T, b *Backend, function string, line int) *types.Tombstone {
	t.Helper()

	store, err := b.Tombstones()
	if err != nil {
		t.Fatalf("Tombstones failed: %v", err)
	}
	ts := types.NewTombstone("billing", "internal/ledger/post.go", function, line, "flagged by analysis")
	if _, err := store.Put(ts); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	return ts
}

func TestBackend_Attach(t *testing.T) {
	tmpDir := t.TempDir()

	b := NewBackend()
	err := b.Attach(sqliteConfig(tmpDir))
	if err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	// Verify database file created
	dbPath := filepath.Join(tmpDir, "registry.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("registry.db not created")
	}

	// Verify JSONL files created empty
	for _, name := range jsonlFileNames {
		path := filepath.Join(tmpDir, name)
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			t.Errorf("%s not created", name)
			continue
		}
		if info.Size() != 0 {
			t.Errorf("%s should start empty, has %d bytes", name, info.Size())
		}
	}

	// Verify double attach fails
	err = b.Attach(sqliteConfig(tmpDir))
	if err != types.ErrAlreadyAttached {
		t.Errorf("expected ErrAlreadyAttached, got %v", err)
	}

	b.Detach()
}

func TestBackend_AttachCreatesDataDir(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "nested", "data")

	b := NewBackend()
	if err := b.Attach(sqliteConfig(tmpDir)); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	defer b.Detach()

	if _, err := os.Stat(tmpDir); os.IsNotExist(err) {
		t.Error("DataDir not created")
	}
}

func TestBackend_AttachRejectsInvalidConfig(t *testing.T) {
	b := NewBackend()
	err := b.Attach(types.Config{Backend: "mysql", DataDir: t.TempDir()})
	if err != types.ErrBackendUnknown {
		t.Errorf("expected ErrBackendUnknown, got %v", err)
	}
}

func TestBackend_Detach(t *testing.T) {
	tmpDir := t.TempDir()

	b := NewBackend()
	b.Attach(sqliteConfig(tmpDir))

	err := b.Detach()
	if err != nil {
		t.Fatalf("Detach failed: %v", err)
	}

	// Verify idempotent
	err = b.Detach()
	if err != nil {
		t.Errorf("second Detach should not error, got %v", err)
	}

	// Verify operations fail after detach
	if _, err := b.Tombstones(); err != types.ErrRegistryDetached {
		t.Errorf("expected ErrRegistryDetached from Tombstones, got %v", err)
	}
	if _, err := b.Events(); err != types.ErrRegistryDetached {
		t.Errorf("expected ErrRegistryDetached from Events, got %v", err)
	}
	if _, err := b.Summary(); err != types.ErrRegistryDetached {
		t.Errorf("expected ErrRegistryDetached from Summary, got %v", err)
	}
}

func TestBackend_StoreFailsAfterDetach(t *testing.T) {
	tmpDir := t.TempDir()

	b := NewBackend()
	b.Attach(sqliteConfig(tmpDir))

	store, err := b.Tombstones()
	if err != nil {
		t.Fatalf("Tombstones failed: %v", err)
	}

	b.Detach()

	// A store handle held across Detach must fail, not panic.
	if _, err := store.Get("abc123"); err != types.ErrRegistryDetached {
		t.Errorf("expected ErrRegistryDetached, got %v", err)
	}
	if _, err := store.List(nil); err != types.ErrRegistryDetached {
		t.Errorf("expected ErrRegistryDetached, got %v", err)
	}
}

func TestBackend_ReattachLoadsJSONL(t *testing.T) {
	tmpDir := t.TempDir()

	b := NewBackend()
	if err := b.Attach(sqliteConfig(tmpDir)); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	ts := seedTombstone(t, b, "settleBatch", 142)

	events, err := b.Events()
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if _, err := events.Put(&types.Event{
		TombstoneID:  ts.TombstoneID,
		ProjectName:  ts.ProjectName,
		FunctionName: ts.FunctionName,
		FilePath:     ts.FilePath,
		LineNumber:   ts.LineNumber,
	}); err != nil {
		t.Fatalf("Put event failed: %v", err)
	}

	if err := b.Detach(); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}

	// Fresh backend over the same DataDir must see the same data.
	b2 := NewBackend()
	if err := b2.Attach(sqliteConfig(tmpDir)); err != nil {
		t.Fatalf("re-Attach failed: %v", err)
	}
	defer b2.Detach()

	store, err := b2.Tombstones()
	if err != nil {
		t.Fatalf("Tombstones failed: %v", err)
	}
	got, err := store.Get(ts.TombstoneID)
	if err != nil {
		t.Fatalf("Get after reattach failed: %v", err)
	}
	if got.FunctionName != "settleBatch" || got.Status != types.StatusActive {
		t.Errorf("reloaded tombstone mismatch: %+v", got)
	}

	evStore, err := b2.Events()
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	evs, err := evStore.List(map[string]any{"tombstone_id": ts.TombstoneID})
	if err != nil {
		t.Fatalf("List events after reattach failed: %v", err)
	}
	if len(evs) != 1 {
		t.Errorf("expected 1 reloaded event, got %d", len(evs))
	}
}

func TestBackend_SyncOnClose(t *testing.T) {
	tmpDir := t.TempDir()

	b := NewBackend()
	config := sqliteConfig(tmpDir)
	config.Sync = types.SyncConfig{Strategy: types.SyncOnClose}
	if err := b.Attach(config); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	seedTombstone(t, b, "settleBatch", 142)

	// JSONL must remain empty until Detach flushes.
	info, err := os.Stat(filepath.Join(tmpDir, tombstonesJSONL))
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("on_close wrote JSONL before Detach (%d bytes)", info.Size())
	}

	if err := b.Detach(); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}

	info, err = os.Stat(filepath.Join(tmpDir, tombstonesJSONL))
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Size() == 0 {
		t.Error("Detach did not flush pending JSONL writes")
	}
}

func TestBackend_SyncBatchFlushesAtSize(t *testing.T) {
	tmpDir := t.TempDir()

	b := NewBackend()
	config := sqliteConfig(tmpDir)
	config.Sync = types.SyncConfig{
		Strategy:        types.SyncBatch,
		BatchSize:       2,
		BatchIntervalMS: 60_000, // interval far away so only size triggers
	}
	if err := b.Attach(config); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	defer b.Detach()

	seedTombstone(t, b, "settleBatch", 142)

	info, err := os.Stat(filepath.Join(tmpDir, tombstonesJSONL))
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Size() != 0 {
		t.Error("batch flushed before reaching batch size")
	}

	seedTombstone(t, b, "settleOne", 201)

	info, err = os.Stat(filepath.Join(tmpDir, tombstonesJSONL))
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Size() == 0 {
		t.Error("batch did not flush at batch size")
	}
}

func TestBackend_SyncBatchFlushesOnInterval(t *testing.T) {
	tmpDir := t.TempDir()

	b := NewBackend()
	config := sqliteConfig(tmpDir)
	config.Sync = types.SyncConfig{
		Strategy:        types.SyncBatch,
		BatchSize:       100,
		BatchIntervalMS: 50,
	}
	if err := b.Attach(config); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	defer b.Detach()

	seedTombstone(t, b, "settleBatch", 142)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		info, err := os.Stat(filepath.Join(tmpDir, tombstonesJSONL))
		if err != nil {
			t.Fatalf("stat failed: %v", err)
		}
		if info.Size() > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("batch interval flush never happened")
}
