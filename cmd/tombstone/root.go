// Root command for the tombstone CLI.
package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/joao-cognition/devin-workshop/internal/paths"
	"github.com/joao-cognition/devin-workshop/pkg/types"
)

// Exit codes: success, runtime failure, bad invocation.
const (
	exitSuccess      = 0
	exitRuntimeError = 1
	exitUsageError   = 2
)

// Global flag values.
var (
	flagConfigDir string
	flagDataDir   string
	flagProject   string
	flagVerbose   bool
	flagJSON      bool
)

// cliConfig is built from config.yaml plus flags by PersistentPreRunE.
// configDataDir carries the data_dir value from config.yaml so
// resolveDataDir can apply flag > config > env > default precedence.
var (
	cliConfig     types.Config
	configDataDir string
	logger        *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tombstone",
	Short: "Tombstone tracks suspected dead code until it is safe to delete",
	Long: `Tombstone manages a local registry of suspected dead code. Register a
function as a tombstone, let the instrumented application report any
execution, and once a site stays silent past the monitoring window the
CLI confirms it as dead and can remove it from the source tree.

The same binary generates the workshop's banking demo dataset and
application logs, verifies the generated documents, and serves the
event-ingestion HTTP API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Version and help need no config or logger.
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		configDir, err := paths.ResolveConfigDir(flagConfigDir)
		if err != nil {
			return err
		}

		v, err := loadConfig(configDir)
		if err != nil {
			return err
		}

		cliConfig = configFromViper(v)
		configDataDir = cliConfig.DataDir
		if flagProject != "" {
			cliConfig.Project = flagProject
		}

		logger, err = buildLogger()
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: $(CWD)/.tombstone)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default: $(CWD)/.tombstone-db)")
	rootCmd.PersistentFlags().StringVar(&flagProject, "project", "", "project name (default: from config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(deadCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(dismissCmd)
	rootCmd.AddCommand(markRemovedCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(datasetCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(serveCmd)
}

// resolveDataDir applies precedence: --data-dir flag > config.yaml data_dir >
// TOMBSTONE_DATA_DIR env > default $(CWD)/.tombstone-db.
func resolveDataDir() (string, error) {
	return paths.ResolveDataDir(flagDataDir, configDataDir)
}

// buildLogger returns the CLI logger. Quiet by default so command output
// stays parseable; --verbose switches to the development encoder at debug.
func buildLogger() (*zap.Logger, error) {
	if flagVerbose {
		return zap.NewDevelopmentConfig().Build()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	return cfg.Build()
}
