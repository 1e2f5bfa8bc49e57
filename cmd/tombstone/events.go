// Events command lists recorded tombstone executions.
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	eventsTombstone string
	eventsSince     string
	eventsLimit     int
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List recorded tombstone events",
	Long: `Events lists execution events for the project, most recent first.
--since accepts an RFC3339 timestamp or a Go duration relative to now
(for example --since 72h).`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().StringVar(&eventsTombstone, "tombstone", "", "only events for this tombstone ID")
	eventsCmd.Flags().StringVar(&eventsSince, "since", "", "only events after this time (RFC3339 or duration)")
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 50, "maximum number of events (0 for all)")
}

func runEvents(cmd *cobra.Command, args []string) error {
	filter := map[string]any{"project_name": projectName()}
	if eventsTombstone != "" {
		filter["tombstone_id"] = eventsTombstone
	}
	if eventsSince != "" {
		since, err := parseSince(eventsSince)
		if err != nil {
			return err
		}
		filter["since"] = since
	}
	if eventsLimit < 0 {
		return usageErrorf("--limit must not be negative, got %d", eventsLimit)
	}
	if eventsLimit > 0 {
		filter["limit"] = eventsLimit
	}

	backend, err := attachRegistry()
	if err != nil {
		return err
	}
	defer backend.Detach()

	events, err := backend.Events()
	if err != nil {
		return err
	}
	list, err := events.List(filter)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	if flagJSON {
		return printJSON(list)
	}

	if len(list) == 0 {
		fmt.Println("No events recorded.")
		return nil
	}
	fmt.Printf("%d events:\n", len(list))
	for _, e := range list {
		fmt.Printf("  %s  %s (%s:%d)  tombstone %s\n",
			e.TriggeredAt.Format(time.RFC3339), e.FunctionName, e.FilePath, e.LineNumber, e.TombstoneID)
	}
	return nil
}

// parseSince accepts an absolute RFC3339 timestamp or a duration back from
// now.
func parseSince(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Time{}, usageErrorf("invalid --since %q (expected RFC3339 timestamp or duration)", s)
	}
	return time.Now().UTC().Add(-d), nil
}
