// Export command copies the local registry to the Postgres sink.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joao-cognition/devin-workshop/internal/sink"
)

var exportDSN string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Copy the local registry to the Postgres event sink",
	Long: `Export pushes every tombstone and event from the local registry into the
Postgres sink, creating the schema if needed. Existing rows are skipped
by ID, so repeated exports are safe.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportDSN, "dsn", "", "Postgres connection string (default: sink_dsn from config)")
}

func runExport(cmd *cobra.Command, args []string) error {
	dsn := exportDSN
	if dsn == "" {
		dsn = cliConfig.SinkDSN
	}
	if dsn == "" {
		return usageErrorf("no sink configured: pass --dsn or set sink_dsn in config.yaml")
	}

	backend, err := attachRegistry()
	if err != nil {
		return err
	}
	defer backend.Detach()

	ctx := cmd.Context()
	pg, err := sink.OpenPostgres(ctx, dsn, logger)
	if err != nil {
		return fmt.Errorf("open sink: %w", err)
	}
	defer pg.Close()

	result, err := sink.Export(ctx, backend, pg, logger)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	if flagJSON {
		return printJSON(result)
	}
	fmt.Printf("Exported %d tombstones and %d events.\n", result.Tombstones, result.Events)
	return nil
}
