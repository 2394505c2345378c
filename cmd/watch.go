package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newWatchCmd creates the 'watch' subcommand: runs on a cron schedule until
// interrupted, serving health and metrics over HTTP on the side.
func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Runs the monitor on a schedule",
		Long: `Starts the scheduler and executes monitoring runs on the configured cron
schedule. Runs never overlap; if a run is still in progress when the next tick
fires, the tick is skipped. An HTTP sidecar serves /healthz and /metrics.`,

		RunE: runWatchCommand,
	}
}

func runWatchCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.Logger()
	cfg := appInstance.Config()

	runner, err := appInstance.Runner()
	if err != nil {
		return fmt.Errorf("assemble runner: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := startSidecar(cfg.Server.Port, logger)

	// Overlap guard: the pipeline assumes strictly sequential runs against
	// the same stores.
	var running atomic.Bool
	executeRun := func() {
		if !running.CompareAndSwap(false, true) {
			logger.Warn("Previous run still in progress; skipping this tick")
			return
		}
		defer running.Store(false)

		report, runErr := runner.Run(ctx)
		if runErr != nil {
			logger.Error("Scheduled run failed",
				zap.String("run_id", report.RunID),
				zap.Error(runErr))
			return
		}
		logger.Info("Scheduled run finished",
			zap.String("run_id", report.RunID),
			zap.Int("fresh", report.Fresh),
			zap.Int("notified", report.Notified),
			zap.Int("digested", report.Digested))
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Watch.Schedule, executeRun); err != nil {
		return fmt.Errorf("invalid watch.schedule %q: %w", cfg.Watch.Schedule, err)
	}

	logger.Info("Starting scheduler",
		zap.String("schedule", cfg.Watch.Schedule),
		zap.Int("port", cfg.Server.Port))
	scheduler.Start()

	// One run right away so a fresh deployment does not sit idle until the
	// first tick.
	executeRun()

	<-ctx.Done()
	logger.Info("Shutting down scheduler...")

	// Stop returns a context that completes when in-flight jobs finish.
	<-scheduler.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP sidecar shutdown failed", zap.Error(err))
	}
	return nil
}

// startSidecar serves liveness and Prometheus metrics next to the scheduler.
func startSidecar(port int, logger *zap.Logger) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Starting HTTP sidecar", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP sidecar failed", zap.Error(err))
		}
	}()
	return srv
}
