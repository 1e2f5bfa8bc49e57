// Init command creates the config and data directories with an empty
// registry so later commands start from a known state.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joao-cognition/devin-workshop/internal/paths"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the tombstone registry",
	Long: `Init creates the configuration directory with a default config.yaml,
creates the data directory, and attaches an empty registry so the
database file and JSONL snapshots exist before the first register.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	// PersistentPreRunE already created the config dir and default file.
	configDir, err := paths.ResolveConfigDir(flagConfigDir)
	if err != nil {
		return err
	}

	backend, err := attachRegistry()
	if err != nil {
		return err
	}
	dataDir, err := resolveDataDir()
	if err != nil {
		_ = backend.Detach()
		return err
	}
	if err := backend.Detach(); err != nil {
		return fmt.Errorf("detach registry: %w", err)
	}

	fmt.Println("Initialized tombstone registry")
	fmt.Println("  config:", configDir)
	fmt.Println("  data:  ", dataDir)
	return nil
}
