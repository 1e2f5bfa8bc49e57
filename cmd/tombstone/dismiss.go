// Dismiss command clears a false-positive tombstone.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joao-cognition/devin-workshop/pkg/types"
)

var dismissReason string

var dismissCmd = &cobra.Command{
	Use:   "dismiss <tombstone-id>",
	Short: "Dismiss a tombstone as a false positive",
	Long: `Dismiss marks an active tombstone as a false positive, usually because
the reconciliation run showed it being executed. Dismissed tombstones
keep their event history but leave the confirmed-dead pipeline.`,
	Args: cobra.ExactArgs(1),
	RunE: runDismiss,
}

func init() {
	dismissCmd.Flags().StringVar(&dismissReason, "reason", "", "why the suspicion was wrong")
}

func runDismiss(cmd *cobra.Command, args []string) error {
	return setStatus(args[0], types.StatusDismissed, dismissReason)
}

var markRemovedCmd = &cobra.Command{
	Use:   "mark-removed <tombstone-id>",
	Short: "Mark a tombstone's code as removed",
	Long: `Mark-removed records that the tombstoned code has been deleted from the
source tree. The remove command does this automatically; use this for
removals done by hand.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStatus(args[0], types.StatusRemoved, "")
	},
}

// setStatus applies a status transition to one tombstone and reports it.
func setStatus(id, status, reason string) error {
	backend, err := attachRegistry()
	if err != nil {
		return err
	}
	defer backend.Detach()

	tombstones, err := backend.Tombstones()
	if err != nil {
		return err
	}
	if err := tombstones.SetStatus(id, status, reason); err != nil {
		return fmt.Errorf("set status: %w", err)
	}

	ts, err := tombstones.Get(id)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(ts)
	}
	fmt.Printf("Tombstone %s is now %s: %s (%s:%d)\n", id, status, ts.FunctionName, ts.FilePath, ts.LineNumber)
	return nil
}
