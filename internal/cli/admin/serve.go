package admin

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

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/resumeqa/internal/api/handlers"
	"github.com/cloo-solutions/resumeqa/internal/jobs"
	"github.com/cloo-solutions/resumeqa/internal/server"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the resumeqa API server.

When INGEST_INTERVAL is set, ingestion is re-run on that interval so a run
halted by a provider rate limit resumes without manual intervention.`,
		RunE: runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.shutdown()
	cfg, logger := rt.cfg, rt.logger

	if portFlag, _ := cmd.Flags().GetString("port"); portFlag != "" {
		cfg.Port = portFlag
	}

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	deps, err := BuildDeps(ctx, cfg, logger, DepsOptions{NoMigrate: noMigrate, RequireProvider: true})
	if err != nil {
		return err
	}
	defer deps.Close()

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	var ingestWorker *jobs.Worker
	if cfg.IngestInterval > 0 {
		ingestWorker = jobs.NewWorker(jobs.NewIngestionJob(deps.Ingestion, logger), cfg.IngestInterval, logger)
		go ingestWorker.Start(workerCtx)
	}

	router := server.NewRouter(server.RouterConfig{
		Logger:        logger,
		APIToken:      cfg.APIToken,
		AnswerHandler: handlers.NewAnswerHandler(deps.Answer),
		IngestHandler: handlers.NewIngestHandler(deps.Ingestion),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}
	logger.Info("shutting down")

	// Cancelling mid-run is safe: completed documents are already checkpointed.
	cancelWorker()
	if ingestWorker != nil {
		ingestWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}
