package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"layercast/config"
	"layercast/credentials"
	"layercast/failures"
	"layercast/logger"
	"layercast/merge"
	"layercast/routes"
	"layercast/success"
	"layercast/taskQueue"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the merge server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default LAYERCAST_ADDR or :8080)")
	rootCmd.AddCommand(serveCmd)
}

func serve(parent context.Context) error {
	logger.Info("Starting layercast server initialization")

	logger.Debug("Initializing credentials database")
	if err := credentials.OpenDB(config.GetCredentialsDBPath()); err != nil {
		return fmt.Errorf("credentials store: %w", err)
	}
	defer credentials.CloseDB()

	logger.Debug("Initializing failures database")
	if err := failures.Init(config.GetFailuresDBPath()); err != nil {
		return fmt.Errorf("failure store: %w", err)
	}
	defer failures.Close()

	logger.Debug("Initializing success database")
	if err := success.Init(config.GetSuccessDBPath()); err != nil {
		return fmt.Errorf("success store: %w", err)
	}
	defer success.Close()

	logger.Debug("Initializing run queue")
	if err := taskQueue.OpenRunQueueDB(config.GetQueueDBPath()); err != nil {
		return fmt.Errorf("run queue: %w", err)
	}
	defer taskQueue.CloseRunQueueDB()
	logger.Info("Databases initialized")

	// A failed scan only loses queued runs, the server still starts.
	if err := merge.ScanForPendingRuns(); err != nil {
		logger.Errorf("Failed to scan for pending runs: %v", err)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go cleanupRoutine(ctx, config.GetRetention())

	done := make(chan struct{})
	go func() {
		merge.ProcessPendingRuns(ctx)
		close(done)
	}()

	mux := http.NewServeMux()
	routes.Register(mux)

	addr := serveAddr
	if addr == "" {
		addr = config.GetListenAddr()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("layercast server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case serveErr = <-errCh:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("HTTP shutdown: %v", err)
	}

	// The active run, if any, is requeued on cancellation and resumes on the
	// next start.
	<-done
	logger.Info("Server stopped")
	return serveErr
}

// cleanupRoutine drops success and failure records older than maxAge, once
// at start and then every 24 hours.
func cleanupRoutine(ctx context.Context, maxAge time.Duration) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		logger.Debugf("Cleaning up records older than %v", maxAge)
		if n, err := success.CleanupOldRecords(maxAge); err != nil {
			logger.Errorf("Failed to cleanup old success records: %v", err)
		} else if n > 0 {
			logger.Infof("Removed %d old success records", n)
		}
		if n, err := failures.CleanupOldRecords(maxAge); err != nil {
			logger.Errorf("Failed to cleanup old failure records: %v", err)
		} else if n > 0 {
			logger.Infof("Removed %d old failure records", n)
		}

		select {
		case <-ctx.Done():
			logger.Debug("Cleanup routine stopped")
			return
		case <-ticker.C:
		}
	}
}
