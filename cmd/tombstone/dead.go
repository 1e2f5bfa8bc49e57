// Dead command lists confirmed-dead tombstones.
package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	deadDays   int
	deadFormat string
)

var deadCmd = &cobra.Command{
	Use:   "dead",
	Short: "List confirmed dead code",
	Long: `Dead lists active tombstones registered more than --days ago with zero
recorded events. These sites survived the monitoring window without a
single execution and are safe to remove.`,
	Args: cobra.NoArgs,
	RunE: runDead,
}

func init() {
	deadCmd.Flags().IntVar(&deadDays, "days", 0, "monitoring window in days (default: window_days from config)")
	deadCmd.Flags().StringVar(&deadFormat, "format", "text", "output format: text, json, or csv")
}

func runDead(cmd *cobra.Command, args []string) error {
	days := deadDays
	if days == 0 {
		days = cliConfig.GetWindowDays()
	}
	if days < 0 {
		return usageErrorf("--days must be positive, got %d", days)
	}
	switch deadFormat {
	case "text", "json", "csv":
	default:
		return usageErrorf("unknown format %q (valid: text, json, csv)", deadFormat)
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
		fmt.Printf("No confirmed dead code found for project %q in the last %d days.\n", projectName(), days)
		fmt.Println("Either every tombstoned site was executed, or the monitoring window has not passed yet.")
		return nil
	}

	switch deadFormat {
	case "json":
		out, err := json.MarshalIndent(dead, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal output: %w", err)
		}
		fmt.Println(string(out))
	case "csv":
		fmt.Println("tombstone_id,function_name,file_path,line_number,reason,registered_at")
		for _, ts := range dead {
			fmt.Printf("%s,%s,%s,%d,%s,%s\n",
				ts.TombstoneID, ts.FunctionName, ts.FilePath, ts.LineNumber,
				ts.Reason, ts.RegisteredAt.Format(time.RFC3339))
		}
	default:
		fmt.Printf("Found %d confirmed dead code locations:\n\n", len(dead))
		for i, ts := range dead {
			fmt.Printf("%d. %s\n", i+1, ts.FunctionName)
			fmt.Printf("   File: %s:%d\n", ts.FilePath, ts.LineNumber)
			if ts.Reason != "" {
				fmt.Printf("   Reason: %s\n", ts.Reason)
			}
			fmt.Printf("   Registered: %s\n\n", ts.RegisteredAt.Format(time.RFC3339))
		}
		fmt.Println("Review each site, then run `tombstone remove --confirm` to delete the code.")
	}
	return nil
}
