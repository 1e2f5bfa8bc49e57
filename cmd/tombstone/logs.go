// Logs commands generate the demo application logs and their analysis
// reports.
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joao-cognition/devin-workshop/internal/logs"
)

var (
	logsSeed int64
	logsDay  string
	logsOut  string
	logsIn   string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Generate and analyze the demo application logs",
}

var logsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one day of synthetic application logs",
	Long: `Generate writes one day of JSONL application logs: HTTP requests with a
daily traffic curve, database queries, minute-level resource metrics,
scattered errors, and one injected brute-force incident. Deterministic
for a given seed and day.`,
	Args: cobra.NoArgs,
	RunE: runLogsGenerate,
}

var logsAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a log file and write the four markdown reports",
	Long: `Analyze reads a JSONL log file and writes the error, security,
performance, and summary reports to --out. The reports cross-link each
other and share their headline figures.`,
	Args: cobra.NoArgs,
	RunE: runLogsAnalyze,
}

func init() {
	logsGenerateCmd.Flags().Int64Var(&logsSeed, "seed", 42, "random seed")
	logsGenerateCmd.Flags().StringVar(&logsDay, "day", "", "day to generate in YYYY-MM-DD (default: today)")
	logsGenerateCmd.Flags().StringVar(&logsOut, "out", "demo_logs.jsonl", "output JSONL file")
	logsAnalyzeCmd.Flags().StringVar(&logsIn, "in", "demo_logs.jsonl", "input JSONL file")
	logsAnalyzeCmd.Flags().StringVar(&logsOut, "out", ".", "directory for the markdown reports")

	logsCmd.AddCommand(logsGenerateCmd)
	logsCmd.AddCommand(logsAnalyzeCmd)
}

func runLogsGenerate(cmd *cobra.Command, args []string) error {
	day := time.Now().UTC().Truncate(24 * time.Hour)
	if logsDay != "" {
		parsed, err := time.Parse("2006-01-02", logsDay)
		if err != nil {
			return usageErrorf("invalid --day %q (expected YYYY-MM-DD)", logsDay)
		}
		day = parsed
	}

	entries := logs.Generate(logsSeed, day)
	if err := logs.WriteJSONL(logsOut, entries); err != nil {
		return fmt.Errorf("write logs: %w", err)
	}

	fmt.Printf("Wrote %d log entries for %s to %s.\n", len(entries), day.Format("2006-01-02"), logsOut)
	return nil
}

func runLogsAnalyze(cmd *cobra.Command, args []string) error {
	entries, err := logs.ReadJSONL(logsIn)
	if err != nil {
		return fmt.Errorf("read logs: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("no log entries in %s", logsIn)
	}

	analysis, err := logs.Analyze(cmd.Context(), entries)
	if err != nil {
		return fmt.Errorf("analyze logs: %w", err)
	}

	if flagJSON {
		return printJSON(analysis)
	}

	files, err := logs.WriteReports(logsOut, analysis, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write reports: %w", err)
	}

	score := analysis.HealthScore()
	fmt.Printf("Analyzed %d entries: health score %.1f (grade %s).\n",
		analysis.Errors.TotalLogs, score, logs.HealthGrade(score))
	fmt.Println("Reports written:")
	for _, f := range files {
		fmt.Println(" ", f)
	}
	return nil
}
