// Reconcile command audits the registry against reality.
package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joao-cognition/devin-workshop/internal/reconcile"
	"github.com/joao-cognition/devin-workshop/internal/sink"
	"github.com/joao-cognition/devin-workshop/pkg/types"
)

var (
	reconcileDays     int
	reconcileWatch    bool
	reconcileInterval time.Duration
	reconcileOut      string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Audit tombstones and write the reconciliation report",
	Long: `Reconcile classifies every active tombstone as confirmed dead or a false
positive, checks the external sink for drift when sink_dsn is
configured, and writes reconciliation_report.md to --out. With --watch
it repeats on --interval until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().IntVar(&reconcileDays, "days", 0, "monitoring window in days (default: window_days from config)")
	reconcileCmd.Flags().BoolVar(&reconcileWatch, "watch", false, "run on a schedule until interrupted")
	reconcileCmd.Flags().DurationVar(&reconcileInterval, "interval", time.Hour, "delay between watch runs")
	reconcileCmd.Flags().StringVar(&reconcileOut, "out", ".", "directory for the markdown report")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	days := reconcileDays
	if days == 0 {
		days = cliConfig.GetWindowDays()
	}
	if days < 0 {
		return usageErrorf("--days must be positive, got %d", days)
	}
	if reconcileWatch && reconcileInterval <= 0 {
		return usageErrorf("--interval must be positive, got %v", reconcileInterval)
	}

	backend, err := attachRegistry()
	if err != nil {
		return err
	}
	defer backend.Detach()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var snk sink.Sink
	if cliConfig.SinkDSN != "" {
		pg, err := sink.OpenPostgres(ctx, cliConfig.SinkDSN, logger)
		if err != nil {
			return fmt.Errorf("open sink: %w", err)
		}
		defer pg.Close()
		snk = pg
	}

	opts := reconcile.Options{
		Project:    projectName(),
		WindowDays: days,
		Logger:     logger,
	}

	if reconcileWatch {
		err := reconcile.Watch(ctx, backend, snk, opts, reconcileInterval, reportReconciliation)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	report, err := reconcile.Run(ctx, backend, snk, opts)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	if flagJSON {
		if _, err := reconcile.WriteMarkdown(reconcileOut, report); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		return printJSON(report)
	}
	reportReconciliation(report)
	return nil
}

// reportReconciliation writes the markdown report and prints the counts.
func reportReconciliation(r *types.ReconciliationReport) {
	path, err := reconcile.WriteMarkdown(reconcileOut, r)
	if err != nil {
		fmt.Println("write report:", err)
		return
	}
	fmt.Printf("Reconciliation %s: %d active, %d confirmed dead, %d false positives, %d sink drift\n",
		r.CorrelationID, r.TotalActive, r.ConfirmedDead, r.FalsePositives, r.SinkDrift)
	fmt.Println("Report written to", path)
}
