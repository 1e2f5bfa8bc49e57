// Serve command runs the event-ingestion and dashboard HTTP server.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joao-cognition/devin-workshop/internal/dataset"
	"github.com/joao-cognition/devin-workshop/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the event-ingestion HTTP server",
	Long: `Serve exposes the HTTP API: event ingestion, the Sentry webhook,
tombstone and dead-code queries, and the complaint dashboard endpoints
when the demo dataset has been generated. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "bind address (default: listen_addr from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	backend, err := attachRegistry()
	if err != nil {
		return err
	}
	defer backend.Detach()

	cfg := cliConfig
	if serveAddr != "" {
		cfg.ListenAddr = serveAddr
	}

	// The dashboard endpoints come up only when the dataset exists.
	var store *dataset.Store
	if path, err := datasetPath(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			store, err = dataset.Open(path)
			if err != nil {
				return fmt.Errorf("open dataset: %w", err)
			}
			defer store.Close()
		}
	}

	srv, err := server.NewServer(backend, store, cfg, logger)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("Listening on", cfg.GetListenAddr())
	return srv.ListenAndServe(ctx)
}
