package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwbudde/mlplayground/internal/server"
	"github.com/cwbudde/mlplayground/internal/store"
	"github.com/spf13/cobra"
)

var (
	servePort     int
	serveDataDir  string
	serveNoStore  bool
	serveShutdown time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP job server",
	Long: `Starts an HTTP server that runs grid search jobs in the background.

Endpoints:
  POST   /api/v1/jobs               create a job from a JSON config
  GET    /api/v1/jobs               list jobs
  GET    /api/v1/jobs/{id}/status   job status
  GET    /api/v1/jobs/{id}/grid.txt the job's grid
  GET    /api/v1/jobs/{id}/stream   live progress (Server-Sent Events)
  GET    /api/v1/jobs/{id}/trace    recorded steps
  DELETE /api/v1/jobs/{id}          cancel a job
  GET    /api/v1/checkpoints        saved checkpoints`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveDataDir, "data-dir", "./data", "Base directory for checkpoints and traces")
	serveCmd.Flags().BoolVar(&serveNoStore, "no-store", false, "Do not persist checkpoints or traces")
	serveCmd.Flags().DurationVar(&serveShutdown, "shutdown-timeout", 10*time.Second, "Grace period for open connections on shutdown")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	var checkpointStore store.Store
	if !serveNoStore {
		fsStore, err := store.NewFSStore(serveDataDir)
		if err != nil {
			return fmt.Errorf("failed to create checkpoint store: %w", err)
		}
		checkpointStore = fsStore
	}

	addr := fmt.Sprintf(":%d", servePort)
	srv := server.NewServer(addr, checkpointStore)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Received shutdown signal")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdown)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
