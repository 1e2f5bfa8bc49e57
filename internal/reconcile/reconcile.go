// Package reconcile compares the local tombstone registry against recorded
// events and the external sink. The pass classifies each active tombstone
// as confirmed dead or a false positive, and flags rows that drifted
// between the registry and the sink.
package reconcile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joao-cognition/devin-workshop/internal/sink"
	"github.com/joao-cognition/devin-workshop/pkg/types"
)

// DefaultWindowDays is the quarantine window: an active tombstone must be
// at least this old with zero events before it is confirmed dead.
const DefaultWindowDays = 30

// ReportFileName is the markdown file WriteMarkdown produces.
const ReportFileName = "reconciliation_report.md"

// Options configures one reconciliation pass.
type Options struct {
	Project    string
	WindowDays int
	// Now overrides the pass timestamp. Zero means the wall clock.
	Now    time.Time
	Logger *zap.Logger
}

func (o Options) normalize() Options {
	if o.WindowDays <= 0 {
		o.WindowDays = DefaultWindowDays
	}
	if o.Now.IsZero() {
		o.Now = time.Now().UTC()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Run executes one reconciliation pass. The sink comparison is skipped
// when snk is nil; the registry-only checks always run.
func Run(ctx context.Context, reg types.Registry, snk sink.Sink, opts Options) (*types.ReconciliationReport, error) {
	opts = opts.normalize()

	report := &types.ReconciliationReport{
		CorrelationID: uuid.NewString(),
		ProjectName:   opts.Project,
		GeneratedAt:   opts.Now,
		WindowDays:    opts.WindowDays,
	}
	logger := opts.Logger.With(
		zap.String("correlation_id", report.CorrelationID),
		zap.String("project", opts.Project),
	)

	cutoff := opts.Now.AddDate(0, 0, -opts.WindowDays)

	dead, err := reg.ConfirmedDead(opts.Project, cutoff)
	if err != nil {
		return nil, fmt.Errorf("confirmed dead lookup: %w", err)
	}
	for _, t := range dead {
		report.Findings = append(report.Findings, types.Finding{
			CheckType:   types.CheckConfirmedDead,
			TombstoneID: t.TombstoneID,
			Site:        t.Site(),
			Detail: fmt.Sprintf("active for %d days with zero events, safe to remove",
				int(opts.Now.Sub(t.RegisteredAt).Hours()/24)),
		})
	}

	activity, err := reg.Activity(opts.Project)
	if err != nil {
		return nil, fmt.Errorf("activity lookup: %w", err)
	}
	for _, row := range activity {
		if row.Status != types.StatusActive {
			continue
		}
		report.TotalActive++
		if row.EventCount == 0 {
			continue
		}
		site := fmt.Sprintf("%s:%d (%s)", row.FilePath, row.LineNumber, row.FunctionName)
		report.Findings = append(report.Findings, types.Finding{
			CheckType:   types.CheckFalsePositive,
			TombstoneID: row.TombstoneID,
			Site:        site,
			Detail: fmt.Sprintf("triggered %d times, last at %s, dismiss the suspicion",
				row.EventCount, formatTriggeredAt(row.LastTriggeredAt)),
		})
	}

	if snk != nil {
		drift, driftErr := sinkDrift(ctx, reg, snk, opts.Project)
		if driftErr != nil {
			return nil, driftErr
		}
		report.Findings = append(report.Findings, drift...)
	} else {
		logger.Debug("no sink configured, skipping drift check")
	}

	report.ConfirmedDead = report.CountByCheck(types.CheckConfirmedDead)
	report.FalsePositives = report.CountByCheck(types.CheckFalsePositive)
	report.SinkDrift = report.CountByCheck(types.CheckSinkDrift)

	logger.Info("reconciliation pass complete",
		zap.Int("total_active", report.TotalActive),
		zap.Int("confirmed_dead", report.ConfirmedDead),
		zap.Int("false_positives", report.FalsePositives),
		zap.Int("sink_drift", report.SinkDrift),
	)
	return report, nil
}

func formatTriggeredAt(t *time.Time) string {
	if t == nil {
		return "unknown"
	}
	return t.UTC().Format(time.RFC3339)
}

// sinkDrift compares tombstone and event id sets between the registry and
// the sink, in both directions.
func sinkDrift(ctx context.Context, reg types.Registry, snk sink.Sink, project string) ([]types.Finding, error) {
	tombstones, err := reg.Tombstones()
	if err != nil {
		return nil, fmt.Errorf("tombstone store: %w", err)
	}
	local, err := tombstones.List(map[string]any{"project_name": project})
	if err != nil {
		return nil, fmt.Errorf("list local tombstones: %w", err)
	}
	remote, err := snk.Tombstones(ctx, sink.TombstoneFilter{Project: project})
	if err != nil {
		return nil, fmt.Errorf("list sink tombstones: %w", err)
	}

	var findings []types.Finding
	localIDs := map[string]*types.Tombstone{}
	for _, t := range local {
		localIDs[t.TombstoneID] = t
	}
	remoteIDs := map[string]*types.Tombstone{}
	for _, t := range remote {
		remoteIDs[t.TombstoneID] = t
	}
	for id, t := range localIDs {
		if _, ok := remoteIDs[id]; !ok {
			findings = append(findings, types.Finding{
				CheckType:   types.CheckSinkDrift,
				TombstoneID: id,
				Site:        t.Site(),
				Detail:      "tombstone present locally but missing in sink, export required",
			})
		}
	}
	for id, t := range remoteIDs {
		if _, ok := localIDs[id]; !ok {
			findings = append(findings, types.Finding{
				CheckType:   types.CheckSinkDrift,
				TombstoneID: id,
				Site:        t.Site(),
				Detail:      "tombstone present in sink but missing locally, registry out of date",
			})
		}
	}

	events, err := reg.Events()
	if err != nil {
		return nil, fmt.Errorf("event store: %w", err)
	}
	localEvents, err := events.List(map[string]any{"project_name": project})
	if err != nil {
		return nil, fmt.Errorf("list local events: %w", err)
	}
	remoteEvents, err := snk.Events(ctx, sink.EventFilter{Project: project})
	if err != nil {
		return nil, fmt.Errorf("list sink events: %w", err)
	}

	localEventIDs := map[string]*types.Event{}
	for _, e := range localEvents {
		localEventIDs[e.EventID] = e
	}
	remoteEventIDs := map[string]bool{}
	for _, e := range remoteEvents {
		remoteEventIDs[e.EventID] = true
	}
	for id, e := range localEventIDs {
		if !remoteEventIDs[id] {
			findings = append(findings, types.Finding{
				CheckType:   types.CheckSinkDrift,
				TombstoneID: e.TombstoneID,
				Site:        fmt.Sprintf("%s:%d (%s)", e.FilePath, e.LineNumber, e.FunctionName),
				Detail:      fmt.Sprintf("event %s present locally but missing in sink", id),
			})
		}
	}
	for _, e := range remoteEvents {
		if _, ok := localEventIDs[e.EventID]; !ok {
			findings = append(findings, types.Finding{
				CheckType:   types.CheckSinkDrift,
				TombstoneID: e.TombstoneID,
				Site:        fmt.Sprintf("%s:%d (%s)", e.FilePath, e.LineNumber, e.FunctionName),
				Detail:      fmt.Sprintf("event %s present in sink but missing locally", e.EventID),
			})
		}
	}

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].TombstoneID != findings[j].TombstoneID {
			return findings[i].TombstoneID < findings[j].TombstoneID
		}
		return findings[i].Detail < findings[j].Detail
	})
	return findings, nil
}

// Markdown renders the report for humans. Counts in the overview come
// from the same findings listed below, so the document is consistent by
// construction.
func Markdown(r *types.ReconciliationReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Reconciliation Report\n\n")
	fmt.Fprintf(&b, "Project: %s\n", r.ProjectName)
	fmt.Fprintf(&b, "Generated: %s\n", r.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "Correlation ID: `%s`\n", r.CorrelationID)
	fmt.Fprintf(&b, "Window: %d days\n\n", r.WindowDays)

	fmt.Fprintf(&b, "## Overview\n\n")
	fmt.Fprintf(&b, "| Check | Count |\n|---|---|\n")
	fmt.Fprintf(&b, "| Active tombstones | %d |\n", r.TotalActive)
	fmt.Fprintf(&b, "| Confirmed dead | %d |\n", r.ConfirmedDead)
	fmt.Fprintf(&b, "| False positives | %d |\n", r.FalsePositives)
	fmt.Fprintf(&b, "| Sink drift | %d |\n\n", r.SinkDrift)

	sections := []struct {
		title string
		check string
	}{
		{"Confirmed Dead", types.CheckConfirmedDead},
		{"False Positives", types.CheckFalsePositive},
		{"Sink Drift", types.CheckSinkDrift},
	}
	for _, section := range sections {
		fmt.Fprintf(&b, "## %s\n\n", section.title)
		found := false
		for _, f := range r.Findings {
			if f.CheckType != section.check {
				continue
			}
			found = true
			fmt.Fprintf(&b, "- `%s` %s: %s\n", f.TombstoneID, f.Site, f.Detail)
		}
		if !found {
			fmt.Fprintf(&b, "Nothing found.\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// WriteMarkdown persists the report under dir and returns the file path.
func WriteMarkdown(dir string, r *types.ReconciliationReport) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, ReportFileName)
	if err := os.WriteFile(path, []byte(Markdown(r)), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// Watch runs reconciliation passes on a fixed interval until the context
// is canceled. The first pass runs immediately. Each report is handed to
// onReport when set; pass errors are logged and do not stop the loop.
func Watch(ctx context.Context, reg types.Registry, snk sink.Sink, opts Options, interval time.Duration, onReport func(*types.ReconciliationReport)) error {
	opts = opts.normalize()
	if interval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %s", interval)
	}

	runOnce := func() {
		report, err := Run(ctx, reg, snk, Options{
			Project:    opts.Project,
			WindowDays: opts.WindowDays,
			Logger:     opts.Logger,
		})
		if err != nil {
			opts.Logger.Error("reconciliation pass failed", zap.Error(err))
			return
		}
		if onReport != nil {
			onReport(report)
		}
	}

	runOnce()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			runOnce()
		}
	}
}
