// Package main provides the tombstone CLI: registry management, dead-code
// analysis and removal, the event sink exporter, workshop dataset and log
// generators, and the HTTP ingestion server.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	err := rootCmd.Execute()
	if err == nil {
		os.Exit(exitSuccess)
	}

	fmt.Fprintln(os.Stderr, "Error:", err)

	var ue usageError
	if errors.As(err, &ue) {
		os.Exit(exitUsageError)
	}
	os.Exit(exitRuntimeError)
}
