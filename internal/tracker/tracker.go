// Package tracker records executions of code marked by tombstones.
//
// A Tracker wraps suspect call sites; when marked code runs, the tracker
// builds an event and hands it to a delivery goroutine that writes to the
// configured sink. Recording never blocks the caller: a full buffer drops
// the event and counts the drop.
package tracker

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/joao-cognition/devin-workshop/pkg/types"
)

// Sink receives tombstone registrations and execution events.
type Sink interface {
	RegisterTombstone(ctx context.Context, t *types.Tombstone) error
	RecordEvent(ctx context.Context, e *types.Event) error
}

// Options configure a Tracker.
type Options struct {
	// Project is the project name stamped on every site and event.
	Project string

	// BufferSize is the event channel capacity. Zero means DefaultBufferSize.
	BufferSize int

	// DryRun logs events instead of delivering them to the sink.
	DryRun bool

	// Fallback receives events when the primary sink fails. Typically the
	// local registry sink. Nil means failed deliveries are only counted.
	Fallback Sink

	// Logger for delivery diagnostics. Nil means no logging.
	Logger *zap.Logger

	// DeliveryTimeout bounds each sink call. Zero means DefaultDeliveryTimeout.
	DeliveryTimeout time.Duration
}

// Default option values.
const (
	DefaultBufferSize      = 256
	DefaultDeliveryTimeout = 5 * time.Second
)

// Site is one registered call site. Obtain one from Register or RegisterHere
// and call Hit when the marked code runs.
type Site struct {
	tracker   *Tracker
	Tombstone *types.Tombstone
}

// Tracker delivers tombstone events to a sink from a single background
// goroutine. Close drains the buffer and stops the goroutine.
type Tracker struct {
	sink      Sink
	opts      Options
	logger    *zap.Logger
	events    chan *types.Event
	done      chan struct{}
	wg        sync.WaitGroup
	closed    atomic.Bool
	dropped   atomic.Int64
	delivered atomic.Int64
	fellBack  sync.Once
}

// New creates a Tracker delivering to sink and starts its delivery goroutine.
// A nil sink is only valid in dry-run mode.
func New(sink Sink, opts Options) *Tracker {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = DefaultDeliveryTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{
		sink:   sink,
		opts:   opts,
		logger: logger,
		events: make(chan *types.Event, opts.BufferSize),
		done:   make(chan struct{}),
	}
	t.wg.Add(1)
	go t.deliver()
	return t
}

// Register records a call site with the tracker and registers its tombstone
// with the sink. Registration is an upsert keyed by the derived tombstone ID,
// so repeated calls for the same site are harmless.
func (t *Tracker) Register(function, file string, line int, reason string) *Site {
	ts := types.NewTombstone(t.opts.Project, file, function, line, reason)
	if !t.opts.DryRun && t.sink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), t.opts.DeliveryTimeout)
		if err := t.sink.RegisterTombstone(ctx, ts); err != nil {
			t.logger.Warn("tombstone registration failed",
				zap.String("tombstone_id", ts.TombstoneID),
				zap.String("function", function),
				zap.Error(err))
		}
		cancel()
	}
	return &Site{tracker: t, Tombstone: ts}
}

// RegisterHere registers the caller's location as a call site. function names
// the marked code; the file and line come from runtime.Caller.
func (t *Tracker) RegisterHere(function, reason string) *Site {
	file, line := callerLocation(2)
	return t.Register(function, file, line, reason)
}

// callerLocation returns the file and line `skip` frames up the stack.
func callerLocation(skip int) (string, int) {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown", 0
	}
	return file, line
}

// Hit records that the marked code ran, with optional extra context.
// Returns immediately; delivery happens on the background goroutine.
func (s *Site) Hit(ctx context.Context, extra map[string]string) {
	s.tracker.record(s.Tombstone, extra)
}

// Mark is Hit without extra context.
func (s *Site) Mark(ctx context.Context) {
	s.tracker.record(s.Tombstone, nil)
}

// Wrap returns fn wrapped so each invocation records a hit for the site
// before running fn.
func (s *Site) Wrap(fn func() error) func() error {
	return func() error {
		s.tracker.record(s.Tombstone, nil)
		return fn()
	}
}

// record builds the event and enqueues it. Drops are counted, never blocked on.
func (t *Tracker) record(ts *types.Tombstone, extra map[string]string) {
	if t.closed.Load() {
		return
	}
	ctx := map[string]string{}
	if ts.Reason != "" {
		ctx["reason"] = ts.Reason
	}
	for k, v := range extra {
		ctx[k] = v
	}
	e := &types.Event{
		TombstoneID:  ts.TombstoneID,
		ProjectName:  ts.ProjectName,
		FunctionName: ts.FunctionName,
		FilePath:     ts.FilePath,
		LineNumber:   ts.LineNumber,
		TriggeredAt:  time.Now().UTC(),
		Context:      ctx,
	}
	if t.opts.DryRun {
		t.logger.Info("tombstone hit (dry run)",
			zap.String("function", e.FunctionName),
			zap.String("tombstone_id", e.TombstoneID))
		return
	}
	select {
	case t.events <- e:
	default:
		if t.dropped.Add(1) == 1 {
			t.logger.Warn("tombstone event buffer full, dropping events",
				zap.Int("buffer_size", t.opts.BufferSize))
		}
	}
}

// deliver drains the event channel until Close.
func (t *Tracker) deliver() {
	defer t.wg.Done()
	for {
		select {
		case e := <-t.events:
			t.send(e)
		case <-t.done:
			// Drain whatever is already buffered.
			for {
				select {
				case e := <-t.events:
					t.send(e)
				default:
					return
				}
			}
		}
	}
}

// send writes one event to the primary sink, falling back once to the
// fallback sink on failure. The fallback warning logs only on first use.
func (t *Tracker) send(e *types.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), t.opts.DeliveryTimeout)
	defer cancel()

	if t.sink != nil {
		if err := t.sink.RecordEvent(ctx, e); err == nil {
			t.delivered.Add(1)
			return
		} else if t.opts.Fallback == nil {
			t.logger.Warn("event delivery failed",
				zap.String("tombstone_id", e.TombstoneID), zap.Error(err))
			return
		}
	}
	if t.opts.Fallback == nil {
		return
	}
	t.fellBack.Do(func() {
		t.logger.Warn("primary sink unreachable, falling back to local registry")
	})
	if err := t.opts.Fallback.RecordEvent(ctx, e); err != nil {
		t.logger.Warn("fallback event delivery failed",
			zap.String("tombstone_id", e.TombstoneID), zap.Error(err))
		return
	}
	t.delivered.Add(1)
}

// Dropped returns how many events were discarded because the buffer was full.
func (t *Tracker) Dropped() int64 { return t.dropped.Load() }

// Delivered returns how many events reached a sink.
func (t *Tracker) Delivered() int64 { return t.delivered.Load() }

// Close stops accepting events, drains the buffer, and waits for the
// delivery goroutine to exit. Idempotent.
func (t *Tracker) Close() {
	if t.closed.Swap(true) {
		return
	}
	close(t.done)
	t.wg.Wait()
}
