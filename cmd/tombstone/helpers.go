// Shared helpers for tombstone CLI commands.
package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/joao-cognition/devin-workshop/internal/registry"
	"github.com/joao-cognition/devin-workshop/pkg/types"
)

// datasetFileName is the SQLite file for the banking demo dataset, stored
// next to the registry inside the data directory.
const datasetFileName = "dataset.db"

// usageError marks an invocation mistake so main can exit with the usage
// code instead of the runtime one.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

// attachRegistry resolves the data directory and attaches the registry
// backend. The caller must defer backend.Detach().
func attachRegistry() (*registry.Backend, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	cfg := cliConfig
	cfg.Backend = types.BackendSQLite
	cfg.DataDir = dataDir

	backend := registry.NewBackend()
	if err := backend.Attach(cfg); err != nil {
		return nil, fmt.Errorf("attach registry: %w", err)
	}

	return backend, nil
}

// datasetPath returns the demo dataset location inside the data directory.
func datasetPath() (string, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return "", fmt.Errorf("resolve data dir: %w", err)
	}
	return filepath.Join(dataDir, datasetFileName), nil
}

// projectName returns the effective project, --project flag included.
func projectName() string {
	if cliConfig.Project != "" {
		return cliConfig.Project
	}
	return defaultProject
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
