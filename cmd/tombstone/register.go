// Register command adds a tombstone for a suspected-dead function.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joao-cognition/devin-workshop/pkg/types"
)

var (
	registerFunction string
	registerFile     string
	registerLine     int
	registerReason   string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a tombstone for a suspected-dead function",
	Long: `Register records a code site in the registry and starts its monitoring
window. Re-registering the same site refreshes the reason and keeps the
original registration time.

Example:
  tombstone register --function legacy_checkout --file billing/checkout.go --line 42 --reason "replaced by checkout_v2"`,
	Args: cobra.NoArgs,
	RunE: runRegister,
}

func init() {
	registerCmd.Flags().StringVar(&registerFunction, "function", "", "function name (required)")
	registerCmd.Flags().StringVar(&registerFile, "file", "", "file path relative to the project root (required)")
	registerCmd.Flags().IntVar(&registerLine, "line", 0, "line number of the declaration (required)")
	registerCmd.Flags().StringVar(&registerReason, "reason", "", "why this code is suspected dead")
	_ = registerCmd.MarkFlagRequired("function")
	_ = registerCmd.MarkFlagRequired("file")
	_ = registerCmd.MarkFlagRequired("line")
}

func runRegister(cmd *cobra.Command, args []string) error {
	if registerLine <= 0 {
		return usageErrorf("--line must be positive, got %d", registerLine)
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

	ts := types.NewTombstone(projectName(), registerFile, registerFunction, registerLine, registerReason)
	id, err := tombstones.Put(ts)
	if err != nil {
		return fmt.Errorf("register tombstone: %w", err)
	}

	if flagJSON {
		return printJSON(ts)
	}
	fmt.Println("Registered tombstone", id)
	fmt.Printf("  %s (%s:%d)\n", ts.FunctionName, ts.FilePath, ts.LineNumber)
	return nil
}
