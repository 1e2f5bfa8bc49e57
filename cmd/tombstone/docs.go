// Docs commands check the generated workshop documents.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joao-cognition/devin-workshop/internal/docs"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Verify the generated workshop documents",
}

var docsVerifyCmd = &cobra.Command{
	Use:   "verify [dir]",
	Short: "Check SQL columns, markdown links, and report totals",
	Long: `Verify walks dir (default ".") and reports problems in the workshop
materials: SQL files referencing columns absent from the banking
schema, markdown links to missing files, and summary report figures
that disagree with the detail reports. Exits nonzero when any problem
is found.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDocsVerify,
}

func init() {
	docsCmd.AddCommand(docsVerifyCmd)
}

func runDocsVerify(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	problems, err := docs.Verify(dir)
	if err != nil {
		return fmt.Errorf("verify %s: %w", dir, err)
	}

	if flagJSON {
		if err := printJSON(problems); err != nil {
			return err
		}
	} else {
		for _, p := range problems {
			fmt.Println(p)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%d problems found", len(problems))
	}
	if !flagJSON {
		fmt.Println("All documents check out.")
	}
	return nil
}
