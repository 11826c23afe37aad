package probe

import (
	"context"
	"log/slog"

	"github.com/syncwatch/syncwatch/types"
	"github.com/syncwatch/syncwatch/util"
)

const deploymentProgressQuery = `query ($id: String!) {
  deploymentProgress(deployment: $id) {
    source
    health
    synced
    node
    chains {
      network
      chainHeadBlock { number }
      latestBlock { number }
      earliestBlock { number }
    }
  }
}`

type deploymentProgressData struct {
	DeploymentProgress []rawStatus `json:"deploymentProgress"`
}

// Consolidated reads the status of every source of a deployment from one
// progress feed, addressed by the descriptor.
type Consolidated struct {
	requester *util.Requester
	logger    *slog.Logger
}

func NewConsolidated(requester *util.Requester, logger *slog.Logger) *Consolidated {
	return &Consolidated{requester: requester, logger: logger.With("component", "consolidated_probe")}
}

// Probe returns one status per entry of the feed. A feed without the
// deploymentProgress field or with an empty list reports zero sources and
// no error.
func (p *Consolidated) Probe(ctx context.Context, d types.Deployment, src types.SourceDescriptor) Result {
	body, err := p.requester.Post(ctx, src.Address, util.GraphQLRequest{
		Query:     deploymentProgressQuery,
		Variables: map[string]any{"id": d.ID},
	})
	if err != nil {
		return p.failed(d, src, err)
	}

	data, err := util.DecodeGraphQL[deploymentProgressData](body)
	if err != nil {
		return p.failed(d, src, err)
	}

	statuses := make([]types.SourceStatus, 0, len(data.DeploymentProgress))
	for _, entry := range data.DeploymentProgress {
		status, err := normalize(types.ProbeConsolidated, entry.Source, entry.Source, d.StartBlock, entry)
		if err != nil {
			status = types.NewFailureStatus(types.SourceDescriptor{Address: entry.Source, Kind: types.ProbeConsolidated}, err)
			status.Indexer = entry.Source
		}
		statuses = append(statuses, status)
	}
	return Result{Statuses: statuses}
}

func (p *Consolidated) failed(d types.Deployment, src types.SourceDescriptor, err error) Result {
	p.logger.Warn("progress feed query failed",
		slog.String("deployment", d.ID),
		slog.String("source", src.Address),
		slog.Any("error", err))
	return Result{Err: err}
}
