package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/syncwatch/syncwatch/api"
	"github.com/syncwatch/syncwatch/config"
	"github.com/syncwatch/syncwatch/metrics"
	"github.com/syncwatch/syncwatch/report"
	"github.com/syncwatch/syncwatch/sentry_integration"
	"github.com/syncwatch/syncwatch/types"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the syncwatch API server with periodic scans",
		Long: `
Run the syncwatch API server with periodic scans.

This command scans the tracked accounts every SCAN_INTERVAL and serves the latest report over HTTP.
Prometheus metrics are exposed on METRICS_PORT when METRICS_ENABLED is set.

You can configure accounts, probing, logging, and server options via environment variables.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.GetConfig()
			if err != nil {
				return err
			}

			logger, err := setup(cfg)
			if err != nil {
				return err
			}
			defer sentry_integration.Flush(2 * time.Second)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger)
		},
	}

	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store := report.NewStore()
	server := api.New(cfg, logger, store)
	metricsServer := metrics.NewServer(cfg, logger)
	p := newPipeline(cfg, logger)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(metricsServer.Start)
	g.Go(func() error {
		rescan(gCtx, cfg, logger, p, store)
		return nil
	})

	// graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down servers...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), types.ShutdownTimeout)
		defer cancel()
		return multierr.Combine(
			server.Shutdown(shutdownCtx),
			metricsServer.Shutdown(shutdownCtx),
		)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// rescan scans immediately and then every SCAN_INTERVAL until ctx is done.
// A failed scan keeps the previous report.
func rescan(ctx context.Context, cfg *config.Config, logger *slog.Logger, p *pipeline, store *report.Store) {
	ticker := time.NewTicker(cfg.GetScanInterval())
	defer ticker.Stop()

	for {
		store.SetScanning(true)
		r, err := p.scan(ctx)
		store.SetScanning(false)

		switch {
		case err != nil:
			metrics.TrackError("scan", string(types.ErrorTypeOf(err)))
			sentry_integration.CaptureCurrentHubException(err, sentry.LevelError)
			logger.Error("scan failed", slog.Any("error", err))
		case ctx.Err() == nil:
			store.Set(r)
			for _, oerr := range multierr.Errors(r.Err()) {
				logger.Warn("deployment omitted", slog.Any("error", oerr))
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
