package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/syncwatch/syncwatch/metrics"
	"github.com/syncwatch/syncwatch/probe"
	"github.com/syncwatch/syncwatch/sentry_integration"
	"github.com/syncwatch/syncwatch/types"
	"github.com/syncwatch/syncwatch/util/workerpool"
)

const (
	componentName    = "aggregator"
	queryVolumeLabel = "query_volume"
)

// QueryVolumeFetcher looks up how often a deployment was queried recently.
type QueryVolumeFetcher interface {
	Fetch(ctx context.Context, deploymentID string) (*types.QueryVolume, error)
}

// Aggregator probes every source of a deployment and folds the statuses
// into one summary.
type Aggregator struct {
	prober  probe.Prober
	volumes QueryVolumeFetcher
	workers int
	logger  *slog.Logger
}

// New returns an Aggregator running at most workers probes of one
// deployment at a time. volumes may be nil to skip query volume lookups.
func New(prober probe.Prober, volumes QueryVolumeFetcher, workers int, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		prober:  prober,
		volumes: volumes,
		workers: workers,
		logger:  logger.With("component", componentName),
	}
}

type taskResult struct {
	probe  probe.Result
	volume *types.QueryVolume
}

// Aggregate always returns a summary. The error is only set when ctx ended
// before every probe settled, in which case the summary is incomplete.
func (a *Aggregator) Aggregate(ctx context.Context, d types.Deployment) (types.DeploymentSummary, error) {
	if len(d.Sources) == 0 {
		return Summarize(d, nil), nil
	}

	start := time.Now()
	pool := workerpool.New[taskResult](a.workers)
	sources := make(map[string]types.SourceDescriptor, len(d.Sources))

	if a.volumes != nil {
		pool.Submit(queryVolumeLabel, func() (taskResult, error) {
			v, err := a.volumes.Fetch(ctx, d.ID)
			return taskResult{volume: v}, err
		})
	}
	for i, src := range d.Sources {
		label := fmt.Sprintf("%d:%s", i, src.Address)
		sources[label] = src
		pool.Submit(label, func() (taskResult, error) {
			return taskResult{probe: a.prober.Probe(ctx, d, src)}, nil
		})
	}

	results, errs := pool.Wait()

	var (
		statuses  []types.SourceStatus
		volume    *types.QueryVolume
		feedFails []string
	)
	for _, res := range results {
		if res.volume != nil {
			volume = res.volume
		}
		statuses = append(statuses, res.probe.Statuses...)
		if res.probe.Err != nil {
			feedFails = append(feedFails, types.Describe(res.probe.Err))
		}
	}
	for _, err := range errs {
		label, panicked := a.taskFailed(d, err)
		if src, ok := sources[label]; ok && panicked {
			statuses = append(statuses, types.NewFailureStatus(src, types.NewInternalError("probe panicked", err)))
		}
	}

	summary := Summarize(d, statuses)
	summary.QueryVolume = volume
	summary.Errors = feedFails
	a.record(summary)

	a.logger.Debug("aggregated deployment",
		slog.String("deployment", d.ID),
		slog.Int("total", summary.TotalCount),
		slog.Int("responding", summary.RespondingCount),
		slog.Int("synced", summary.SyncedCount),
		slog.String("highest", summary.HighestSyncPercentage.String()),
		slog.Duration("took", time.Since(start)))

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("aggregation of %s interrupted: %w", d.ID, err)
	}
	return summary, nil
}

// taskFailed logs a failed pool task and returns its label, and whether it
// panicked. Probes never return errors, so only the query volume task can
// fail without panicking.
func (a *Aggregator) taskFailed(d types.Deployment, err error) (string, bool) {
	var pe *workerpool.PanicError
	if errors.As(err, &pe) {
		metrics.TrackPanic(componentName)
		a.logger.Error("task panicked",
			slog.String("deployment", d.ID),
			slog.String("task", pe.Label),
			slog.Any("panic", pe.Value),
			slog.String("stack", string(pe.Stack)))
		sentry_integration.CaptureExceptionWithTags(err, sentry.LevelError, map[string]string{
			"deployment": d.ID,
			"task":       pe.Label,
		})
		return pe.Label, true
	}

	var te *workerpool.TaskError
	if errors.As(err, &te) {
		metrics.TrackError(componentName, string(types.ErrorTypeOf(te.Err)))
		a.logger.Debug("task failed",
			slog.String("deployment", d.ID),
			slog.String("task", te.Label),
			slog.Any("error", te.Err))
		return te.Label, false
	}
	return "", false
}

func (a *Aggregator) record(summary types.DeploymentSummary) {
	probed := metrics.GetMetrics().ScanMetrics().SourcesProbedTotal
	for _, s := range summary.Statuses {
		probed.WithLabelValues(string(s.Kind), string(s.Outcome)).Inc()
	}
}

// Summarize folds statuses into the summary of d. Failed probes count
// towards TotalCount only; successful ones contribute their percentage,
// not-applicable ones included.
func Summarize(d types.Deployment, statuses []types.SourceStatus) types.DeploymentSummary {
	if statuses == nil {
		statuses = []types.SourceStatus{}
	}
	summary := types.DeploymentSummary{
		Listing:         d.Index,
		DeploymentID:    d.ID,
		SubgraphID:      d.SubgraphID,
		SignalledTokens: d.SignalledTokens,
		Latest:          d.Latest,
		StartBlock:      d.StartBlock,
		Indexers:        d.Indexers,
		IndexerCount:    len(d.Indexers),
		TotalCount:      len(statuses),
		SyncPercentages: make([]types.Percentage, 0, len(statuses)),
		Statuses:        statuses,
	}

	for _, s := range statuses {
		if !s.Succeeded() {
			continue
		}
		summary.RespondingCount++
		if s.Synced {
			summary.SyncedCount++
		}
		if s.Health == types.HealthHealthy {
			summary.HealthyCount++
		}
		summary.SyncPercentages = append(summary.SyncPercentages, s.SyncPercentage)
	}
	summary.HighestSyncPercentage = types.MaxPercentage(summary.SyncPercentages)

	return summary
}
