package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/syncwatch/syncwatch/metrics"
	"github.com/syncwatch/syncwatch/sentry_integration"
	"github.com/syncwatch/syncwatch/types"
	"github.com/syncwatch/syncwatch/util/workerpool"
)

const componentName = "scheduler"

type Aggregator interface {
	Aggregate(ctx context.Context, d types.Deployment) (types.DeploymentSummary, error)
}

// StartBlockResolver returns the block a deployment starts indexing from,
// or 0 when it cannot be determined.
type StartBlockResolver interface {
	StartBlock(ctx context.Context, deploymentID string) uint64
}

// Scheduler aggregates a fleet of deployments, at most workers at a time.
type Scheduler struct {
	aggregator  Aggregator
	startBlocks StartBlockResolver
	workers     int
	logger      *slog.Logger
}

// New returns a Scheduler. startBlocks may be nil to keep the start block
// each deployment was listed with.
func New(aggregator Aggregator, startBlocks StartBlockResolver, workers int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		aggregator:  aggregator,
		startBlocks: startBlocks,
		workers:     workers,
		logger:      logger.With("component", componentName),
	}
}

// Run aggregates every deployment and returns the report with summaries in
// completion order. A deployment whose aggregation fails or panics is left
// out of Summaries and recorded in Omitted instead; the other deployments
// are unaffected. Once ctx is done no further deployment is started.
func (s *Scheduler) Run(ctx context.Context, deployments []types.Deployment) *types.FleetReport {
	report := &types.FleetReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	logger := s.logger.With(slog.String("run_id", report.RunID))
	logger.Info("starting scan", slog.Int("deployments", len(deployments)), slog.Int("workers", s.workers))

	total := len(deployments)
	var done atomic.Int64
	byLabel := make(map[string]types.Deployment, total)
	pool := workerpool.New[types.DeploymentSummary](s.workers)

	for i, d := range deployments {
		if err := ctx.Err(); err != nil {
			report.Omitted = append(report.Omitted, types.NewOmittedDeployment(d, err))
			continue
		}
		label := fmt.Sprintf("%s#%d", d.ID, i)
		byLabel[label] = d
		pool.Submit(label, func() (types.DeploymentSummary, error) {
			summary, err := s.process(ctx, d)
			if n := done.Add(1); n%types.ProgressLogInterval == 0 || int(n) == total {
				logger.Info(fmt.Sprintf("[%d/%d] deployments processed", n, total))
			}
			return summary, err
		})
	}

	summaries, errs := pool.Wait()
	report.Summaries = summaries
	for _, err := range errs {
		report.Omitted = append(report.Omitted, s.omit(logger, byLabel, err))
	}
	report.Duration = time.Since(report.StartedAt)

	scan := metrics.GetMetrics().ScanMetrics()
	scan.DeploymentsProcessedTotal.WithLabelValues("summarized").Add(float64(len(report.Summaries)))
	scan.DeploymentsProcessedTotal.WithLabelValues("omitted").Add(float64(len(report.Omitted)))
	scan.ScanDuration.Observe(report.Duration.Seconds())
	scan.LastScanTimestamp.Set(float64(time.Now().Unix()))
	scan.LastScanOmitted.Set(float64(len(report.Omitted)))

	logger.Info("scan finished",
		slog.Int("summarized", len(report.Summaries)),
		slog.Int("omitted", len(report.Omitted)),
		slog.Duration("duration", report.Duration))

	return report
}

func (s *Scheduler) process(ctx context.Context, d types.Deployment) (types.DeploymentSummary, error) {
	scan := metrics.GetMetrics().ScanMetrics()
	scan.DeploymentsInFlight.Inc()
	start := time.Now()
	defer func() {
		scan.DeploymentsInFlight.Dec()
		scan.DeploymentDuration.Observe(time.Since(start).Seconds())
	}()

	if s.startBlocks != nil {
		d = d.WithStartBlock(s.startBlocks.StartBlock(ctx, d.ID))
	}
	return s.aggregator.Aggregate(ctx, d)
}

func (s *Scheduler) omit(logger *slog.Logger, byLabel map[string]types.Deployment, err error) types.OmittedDeployment {
	var (
		label string
		cause = err
	)

	var pe *workerpool.PanicError
	var te *workerpool.TaskError
	switch {
	case errors.As(err, &pe):
		label = pe.Label
		cause = types.NewInternalError("aggregation panicked", fmt.Errorf("%v", pe.Value))
		metrics.TrackPanic(componentName)
		logger.Error("deployment aggregation panicked",
			slog.String("task", pe.Label),
			slog.Any("panic", pe.Value),
			slog.String("stack", string(pe.Stack)))
	case errors.As(err, &te):
		label = te.Label
		cause = te.Err
		metrics.TrackError(componentName, string(types.ErrorTypeOf(te.Err)))
		logger.Error("deployment aggregation failed",
			slog.String("task", te.Label),
			slog.Any("error", te.Err))
	}

	d := byLabel[label]
	if !errors.Is(cause, context.Canceled) && !errors.Is(cause, context.DeadlineExceeded) {
		sentry_integration.CaptureExceptionWithTags(cause, sentry.LevelError, map[string]string{
			"deployment": d.ID,
			"component":  componentName,
		})
	}
	return types.NewOmittedDeployment(d, cause)
}
