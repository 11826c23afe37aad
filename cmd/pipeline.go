package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/syncwatch/syncwatch/aggregator"
	"github.com/syncwatch/syncwatch/cache"
	"github.com/syncwatch/syncwatch/config"
	"github.com/syncwatch/syncwatch/manifest"
	"github.com/syncwatch/syncwatch/network"
	"github.com/syncwatch/syncwatch/probe"
	"github.com/syncwatch/syncwatch/scheduler"
	"github.com/syncwatch/syncwatch/types"
	"github.com/syncwatch/syncwatch/util"
)

// pipeline lists the deployments of the tracked accounts and aggregates
// them. One pipeline is built per process; its caches outlive single scans.
type pipeline struct {
	cfg       *config.Config
	logger    *slog.Logger
	network   *network.Client
	scheduler *scheduler.Scheduler
}

func newPipeline(cfg *config.Config, logger *slog.Logger) *pipeline {
	nc := cfg.GetNetworkConfig()
	pc := cfg.GetProbeConfig()

	client := &fiber.Client{}
	limiter := util.NewLimiter(cfg.GetMaxConcurrentRequests())

	upstream := func(target string, headers map[string]string) *util.Requester {
		return util.NewRequester(client, limiter, util.RequesterConfig{
			Target:          target,
			Timeout:         pc.GetTimeout(),
			CoolingDuration: cfg.GetCoolingDuration(),
			MaxRetries:      util.DefaultMaxRetries,
			Headers:         headers,
		})
	}
	// probes make a single attempt
	probeRequester := func(target string) *util.Requester {
		return util.NewRequester(client, limiter, util.RequesterConfig{
			Target:  target,
			Timeout: pc.GetTimeout(),
		})
	}

	prober := probe.NewDispatcher(
		probe.NewDirect(probeRequester(util.TargetIndexer), logger),
		probe.NewConsolidated(probeRequester(util.TargetProgress), logger),
	)

	var volumes aggregator.QueryVolumeFetcher
	if nc.QueryVolumeEnabled {
		volumes = network.NewQueryVolumeClient(
			upstream(util.TargetQueryVolume, nil),
			nc.QueryVolumeURL,
			cache.NewTTL[string, types.QueryVolume](cfg.GetCacheSize(), cfg.GetCacheTTL()),
		)
	}

	resolver := manifest.NewResolver(
		upstream(util.TargetIPFS, nil),
		nc.IPFSURL,
		cache.New[string, uint64](cfg.GetCacheSize()),
		logger,
	)

	listing := network.NewClient(
		upstream(util.TargetNetwork, map[string]string{"Authorization": "Bearer " + nc.APIKey}),
		network.Options{
			SubgraphURL: nc.SubgraphURL,
			Mode:        pc.Mode,
			ProgressURL: pc.ProgressURL,
		},
		logger,
	)

	agg := aggregator.New(prober, volumes, pc.Workers, logger)

	return &pipeline{
		cfg:       cfg,
		logger:    logger,
		network:   listing,
		scheduler: scheduler.New(agg, resolver, pc.DeploymentWorkers, logger),
	}
}

// scan runs one pass over every deployment of the tracked accounts. The
// returned report is in listing order.
func (p *pipeline) scan(ctx context.Context) (*types.FleetReport, error) {
	accounts := p.cfg.GetAccounts()

	start := time.Now()
	deployments, err := p.network.ListDeployments(ctx, accounts)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}
	p.logger.Info("deployments listed",
		slog.Int("accounts", len(accounts)),
		slog.Int("deployments", len(deployments)),
		slog.Duration("elapsed", time.Since(start)))

	report := p.scheduler.Run(ctx, deployments)
	report.SortByListing()

	p.logger.Info("scan completed",
		slog.String("run_id", report.RunID),
		slog.Int("summarized", len(report.Summaries)),
		slog.Int("omitted", len(report.Omitted)),
		slog.Duration("duration", report.Duration))
	return report, nil
}
