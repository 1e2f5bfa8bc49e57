// Remove command deletes confirmed-dead code from the source tree.
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joao-cognition/devin-workshop/internal/remover"
	"github.com/joao-cognition/devin-workshop/pkg/types"
)

var (
	removeDays       int
	removeMaxChanges int
	removeDryRun     bool
	removeConfirm    bool
)

var removeCmd = &cobra.Command{
	Use:   "remove [path]",
	Short: "Delete confirmed dead code from the source tree",
	Long: `Remove builds a deletion plan for every confirmed-dead tombstone whose
file lives under path (default "."). Without --confirm the plan is only
printed. With --confirm the declarations are deleted, files rewritten
atomically, and the tombstones marked removed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().IntVar(&removeDays, "days", 0, "monitoring window in days (default: window_days from config)")
	removeCmd.Flags().IntVar(&removeMaxChanges, "max-changes", 0, "maximum number of functions to remove (0 for no cap)")
	removeCmd.Flags().BoolVar(&removeDryRun, "dry-run", false, "print the plan without writing")
	removeCmd.Flags().BoolVar(&removeConfirm, "confirm", false, "apply the deletions")
}

func runRemove(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	days := removeDays
	if days == 0 {
		days = cliConfig.GetWindowDays()
	}
	if days < 0 {
		return usageErrorf("--days must be positive, got %d", days)
	}

	backend, err := attachRegistry()
	if err != nil {
		return err
	}
	defer backend.Detach()

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	dead, err := backend.ConfirmedDead(projectName(), cutoff)
	if err != nil {
		return fmt.Errorf("query confirmed dead: %w", err)
	}
	if len(dead) == 0 {
		fmt.Println("Nothing to remove: no confirmed dead code.")
		return nil
	}

	targets := make([]remover.Target, 0, len(dead))
	byTarget := make(map[remover.Target]*types.Tombstone, len(dead))
	for _, ts := range dead {
		tg := remover.Target{FilePath: ts.FilePath, Name: ts.FunctionName}
		targets = append(targets, tg)
		byTarget[tg] = ts
	}

	opts := remover.Options{MaxChanges: removeMaxChanges, Logger: logger}
	plan, err := remover.Build(root, targets, opts)
	if err != nil {
		return fmt.Errorf("build removal plan: %w", err)
	}

	if flagJSON && (removeDryRun || !removeConfirm) {
		return printJSON(plan)
	}

	fmt.Printf("Removal plan: %d deletions\n", len(plan.Deletions))
	for _, d := range plan.Deletions {
		fmt.Printf("  %s: %s lines %d-%d\n", d.FilePath, d.Name, d.StartLine, d.EndLine)
	}
	for _, tg := range plan.NotFound {
		fmt.Printf("  not found under %s: %s in %s\n", root, tg.Name, tg.FilePath)
	}

	if removeDryRun || !removeConfirm {
		fmt.Println("\nDry run. Re-run with --confirm to apply.")
		return nil
	}

	removedLines, err := remover.Apply(root, plan, opts)
	if err != nil {
		return fmt.Errorf("apply removal plan: %w", err)
	}

	tombstones, err := backend.Tombstones()
	if err != nil {
		return err
	}
	marked := 0
	for _, d := range plan.Deletions {
		ts, ok := byTarget[remover.Target{FilePath: d.FilePath, Name: d.Name}]
		if !ok {
			continue
		}
		if err := tombstones.SetStatus(ts.TombstoneID, types.StatusRemoved, ""); err != nil {
			return fmt.Errorf("mark %s removed: %w", ts.TombstoneID, err)
		}
		marked++
	}

	total := 0
	for _, n := range removedLines {
		total += n
	}
	fmt.Printf("\nRemoved %d functions (%d lines) across %d files; %d tombstones marked removed.\n",
		len(plan.Deletions), total, len(removedLines), marked)
	return nil
}
