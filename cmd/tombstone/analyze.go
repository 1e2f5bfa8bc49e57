// Analyze command scans a source tree for dead-code candidates.
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joao-cognition/devin-workshop/internal/analyzer"
)

var analyzeMinConfidence float64

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Scan a source tree for dead-code candidates",
	Long: `Analyze parses the Go sources under path (default ".") and scores each
unreferenced function by how likely it is to be dead: reference counts,
naming patterns, deprecation markers, and export status all contribute.
Candidates at or above --min-confidence are listed, highest first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().Float64Var(&analyzeMinConfidence, "min-confidence", analyzer.DefaultMinConfidence, "minimum confidence score to report")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	if analyzeMinConfidence < 0 || analyzeMinConfidence > 1 {
		return usageErrorf("--min-confidence must be between 0 and 1, got %v", analyzeMinConfidence)
	}

	candidates, err := analyzer.Analyze(root, analyzer.Options{
		MinConfidence: analyzeMinConfidence,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("analyze %s: %w", root, err)
	}

	if flagJSON {
		return printJSON(candidates)
	}

	if len(candidates) == 0 {
		fmt.Println("No dead code candidates found.")
		return nil
	}

	fmt.Printf("Found %d dead code candidates:\n\n", len(candidates))
	for i, c := range candidates {
		fmt.Printf("%d. %s  [%s, confidence %.2f]\n", i+1, c.Name, c.Kind, c.Confidence)
		fmt.Printf("   File: %s:%d\n", c.FilePath, c.Line)
		if len(c.Reasons) > 0 {
			fmt.Printf("   Reasons: %s\n", strings.Join(c.Reasons, "; "))
		}
		fmt.Println()
	}
	return nil
}
