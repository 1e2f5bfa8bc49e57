// Package registry implements the SQLite-backed tombstone registry.
// JSONL files are the durable source of truth; SQLite serves queries and is
// rebuilt from the JSONL files on every attach.
package registry

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/joao-cognition/devin-workshop/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// Compile-time interface check: Backend must implement Registry.
var _ types.Registry = (*Backend)(nil)

// Backend implements the Registry interface using SQLite as the query engine
// and JSONL files as the source of truth.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB

	tombstones *tombstoneStore
	events     *eventStore

	// Sync strategy state.
	syncStrategy  string         // effective sync strategy: immediate, on_close, batch
	batchSize     int            // number of writes before batch flush
	batchInterval time.Duration  // time between batch flushes
	pendingWrites []pendingWrite // queue of writes pending JSONL persist
	batchTimer    *time.Timer    // timer for interval-based batch flush
	batchMu       sync.Mutex     // protects pendingWrites and batchTimer
}

// pendingWrite represents a deferred JSONL write operation.
// Used by the on_close and batch sync strategies.
type pendingWrite struct {
	tableName string       // "tombstones" or "tombstone_events"
	persist   func() error // function that executes the JSONL write
}

// NewBackend creates a new registry backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{}
}

// Attach initializes the backend with the given configuration.
// Creates DataDir if it does not exist, initializes the SQLite schema, and
// loads the JSONL files into SQLite.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}
	config.DataDir = dataDir

	// The database is a rebuildable cache of the JSONL files: remove any
	// stale copy so every attach starts from a fresh schema.
	dbPath := filepath.Join(dataDir, "registry.db")
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return fmt.Errorf("initializing schema: %w", err)
	}

	b.db = db
	b.config = config

	b.syncStrategy = config.Sync.GetStrategy()
	b.batchSize = config.Sync.GetBatchSize()
	b.batchInterval = time.Duration(config.Sync.GetBatchIntervalMS()) * time.Millisecond
	b.pendingWrites = nil

	if b.syncStrategy == types.SyncBatch && b.batchInterval > 0 {
		b.startBatchTimer()
	}

	if err := b.initJSONLFiles(); err != nil {
		db.Close()
		return err
	}

	if err := loadAllJSONL(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	b.attached = true
	b.tombstones = &tombstoneStore{backend: b}
	b.events = &eventStore{backend: b}

	return nil
}

// Detach releases all resources held by the backend. For the on_close and
// batch sync strategies, flushes all pending writes before closing.
// After Detach, all operations return ErrRegistryDetached.
// Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil // idempotent
	}

	b.stopBatchTimer()

	if err := b.flushPendingWritesLocked(); err != nil {
		return fmt.Errorf("flush pending writes: %w", err)
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}

	b.attached = false
	b.tombstones = nil
	b.events = nil

	return nil
}

// Tombstones returns the tombstone store.
// Returns ErrRegistryDetached if the backend is not attached.
func (b *Backend) Tombstones() (types.TombstoneStore, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrRegistryDetached
	}
	return b.tombstones, nil
}

// Events returns the event store.
// Returns ErrRegistryDetached if the backend is not attached.
func (b *Backend) Events() (types.EventStore, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrRegistryDetached
	}
	return b.events, nil
}

// generateUUID generates a new UUID v7 for event IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}

// Sync strategy methods

// shouldPersistImmediately returns true if JSONL writes should happen
// immediately. True for the "immediate" strategy (default), false for
// "on_close" and "batch".
func (b *Backend) shouldPersistImmediately() bool {
	return b.syncStrategy == types.SyncImmediate || b.syncStrategy == ""
}

// persistOrQueue runs the JSONL write now under the immediate strategy and
// queues it otherwise. The caller must hold b.mu (read or write lock).
func (b *Backend) persistOrQueue(tableName string, persist func() error) error {
	if b.shouldPersistImmediately() {
		return persist()
	}
	b.queueWrite(tableName, persist)
	return nil
}

// queueWrite adds a write operation to the pending queue.
// For the "on_close" strategy, writes are queued until Detach. For "batch",
// writes are queued until the batch size or interval is reached.
func (b *Backend) queueWrite(tableName string, persist func() error) {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	b.pendingWrites = append(b.pendingWrites, pendingWrite{
		tableName: tableName,
		persist:   persist,
	})

	if b.syncStrategy == types.SyncBatch && b.batchSize > 0 && len(b.pendingWrites) >= b.batchSize {
		_ = b.flushPendingWritesBatchLocked()
	}
}

// flushPendingWritesLocked flushes all pending writes to JSONL files.
// The caller must hold b.mu write lock.
func (b *Backend) flushPendingWritesLocked() error {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	return b.flushPendingWritesBatchLocked()
}

// flushPendingWritesBatchLocked executes all pending writes.
// The caller must hold b.batchMu.
func (b *Backend) flushPendingWritesBatchLocked() error {
	if len(b.pendingWrites) == 0 {
		return nil
	}

	// Each queued persist rewrites its whole file, so only the last write
	// per table matters; running them all keeps the logic simple and the
	// queue is bounded by the batch size.
	for _, pw := range b.pendingWrites {
		if err := pw.persist(); err != nil {
			return fmt.Errorf("flush %s: %w", pw.tableName, err)
		}
	}

	b.pendingWrites = nil

	return nil
}

// startBatchTimer starts the batch interval timer for periodic flushes.
// Only called for the batch strategy with a positive interval.
func (b *Backend) startBatchTimer() {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	if b.batchTimer != nil {
		return // already running
	}

	b.batchTimer = time.AfterFunc(b.batchInterval, func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if !b.attached {
			return
		}

		_ = b.flushPendingWritesLocked()

		b.batchMu.Lock()
		if b.batchTimer != nil && b.attached {
			b.batchTimer.Reset(b.batchInterval)
		}
		b.batchMu.Unlock()
	})
}

// stopBatchTimer stops the batch interval timer if running.
func (b *Backend) stopBatchTimer() {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	if b.batchTimer != nil {
		b.batchTimer.Stop()
		b.batchTimer = nil
	}
}
