package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/syncwatch/syncwatch/config"
	"github.com/syncwatch/syncwatch/report"
	"github.com/syncwatch/syncwatch/sentry_integration"
	"github.com/syncwatch/syncwatch/types"
)

func scanCmd() *cobra.Command {
	var (
		accounts  []string
		outputDir string
		mode      string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan every deployment of the tracked accounts once",
		Long: `
Scan every deployment of the tracked accounts once.

This command lists the deployments published by the tracked accounts, probes every indexer
allocated to them and writes the results to the output directory, followed by a summary.

Accounts given with --account replace the ACCOUNTS environment variable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.GetConfig()
			if err != nil {
				return err
			}
			if len(accounts) > 0 {
				cfg.SetAccounts(config.ParseAccounts(accounts...))
			}
			if outputDir != "" {
				cfg.SetOutputDir(outputDir)
			}
			if mode != "" {
				if err := cfg.SetProbeMode(types.ProbeKind(mode)); err != nil {
					return err
				}
			}

			logger, err := setup(cfg)
			if err != nil {
				return err
			}
			defer sentry_integration.Flush(2 * time.Second)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runScan(ctx, cfg, logger, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&accounts, "account", nil, "account address to track (repeatable, comma separated)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "directory the report files are written to (default OUTPUT_DIR)")
	cmd.Flags().StringVar(&mode, "mode", "", "probe mode: direct or consolidated (default PROBE_MODE)")

	return cmd
}

func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger, cmd *cobra.Command) error {
	r, err := newPipeline(cfg, logger).scan(ctx)
	if err != nil {
		return err
	}

	files, err := report.WriteFiles(cfg.GetOutputDir(), r)
	if err != nil {
		return err
	}
	for _, f := range files {
		logger.Info("report written", slog.String("file", f))
	}
	for _, oerr := range multierr.Errors(r.Err()) {
		logger.Warn("deployment omitted", slog.Any("error", oerr))
	}

	out := cmd.OutOrStdout()
	report.PrintSummary(out, r)
	fmt.Fprintf(out, "\nResults saved to: %s\n", cfg.GetOutputDir())

	if ctx.Err() != nil {
		return fmt.Errorf("scan interrupted: %w", ctx.Err())
	}
	return nil
}
