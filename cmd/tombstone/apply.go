// Apply command registers analyzer candidates as tombstones.
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joao-cognition/devin-workshop/internal/analyzer"
	"github.com/joao-cognition/devin-workshop/pkg/types"
)

var (
	applyMinConfidence float64
	applyMaxChanges    int
	applyDryRun        bool
)

var applyCmd = &cobra.Command{
	Use:   "apply [path]",
	Short: "Register analyzer candidates as tombstones",
	Long: `Apply runs the analyzer over path (default ".") and registers the top
candidates as tombstones, starting their monitoring windows. Use
--dry-run to see what would be registered without writing anything.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().Float64Var(&applyMinConfidence, "min-confidence", analyzer.DefaultMinConfidence, "minimum confidence score to register")
	applyCmd.Flags().IntVar(&applyMaxChanges, "max-changes", 10, "maximum number of tombstones to register (0 for no cap)")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "list what would be registered without writing")
}

func runApply(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	if applyMaxChanges < 0 {
		return usageErrorf("--max-changes must not be negative, got %d", applyMaxChanges)
	}

	candidates, err := analyzer.Analyze(root, analyzer.Options{
		MinConfidence: applyMinConfidence,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("analyze %s: %w", root, err)
	}

	if applyMaxChanges > 0 && len(candidates) > applyMaxChanges {
		candidates = candidates[:applyMaxChanges]
	}

	if len(candidates) == 0 {
		fmt.Println("No dead code candidates to register.")
		return nil
	}

	if applyDryRun {
		fmt.Printf("Would register %d tombstones:\n", len(candidates))
		for _, c := range candidates {
			fmt.Printf("  %s (%s:%d) confidence %.2f\n", c.Name, c.FilePath, c.Line, c.Confidence)
		}
		return nil
	}

	backend, err := attachRegistry()
	if err != nil {
		return err
	}
	defer backend.Detach()

	tombstones, err := backend.Tombstones()
	if err != nil {
		return err
	}

	registered := make([]*types.Tombstone, 0, len(candidates))
	for _, c := range candidates {
		reason := fmt.Sprintf("analyzer confidence %.2f: %s", c.Confidence, strings.Join(c.Reasons, "; "))
		ts := types.NewTombstone(projectName(), c.FilePath, c.Name, c.Line, reason)
		if _, err := tombstones.Put(ts); err != nil {
			return fmt.Errorf("register %s: %w", c.Name, err)
		}
		registered = append(registered, ts)
	}

	if flagJSON {
		return printJSON(registered)
	}
	fmt.Printf("Registered %d tombstones:\n", len(registered))
	for _, ts := range registered {
		fmt.Printf("  %s  %s (%s:%d)\n", ts.TombstoneID, ts.FunctionName, ts.FilePath, ts.LineNumber)
	}
	return nil
}
