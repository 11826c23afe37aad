package probe

import (
	"context"
	"log/slog"

	"github.com/syncwatch/syncwatch/types"
	"github.com/syncwatch/syncwatch/util"
)

const indexingStatusQuery = `query ($id: String!) {
  indexingStatuses(subgraphs: [$id]) {
    subgraph
    synced
    health
    entityCount
    node
    paused
    fatalError { message deterministic }
    nonFatalErrors { message deterministic block { number } }
    chains {
      network
      chainHeadBlock { number }
      latestBlock { number }
      earliestBlock { number }
    }
  }
}`

type indexingStatusesData struct {
	IndexingStatuses []rawStatus `json:"indexingStatuses"`
}

// Direct asks an indexer's own status endpoint about one deployment. Each
// probe is exactly one request with the requester's fixed timeout.
type Direct struct {
	requester *util.Requester
	logger    *slog.Logger
}

func NewDirect(requester *util.Requester, logger *slog.Logger) *Direct {
	return &Direct{requester: requester, logger: logger.With("component", "direct_probe")}
}

func (p *Direct) Probe(ctx context.Context, d types.Deployment, src types.SourceDescriptor) Result {
	indexer := indexerID(d, src.Address)
	status, err := p.probe(ctx, d, src, indexer)
	if err != nil {
		p.logger.Debug("indexer probe failed",
			slog.String("deployment", d.ID),
			slog.String("source", src.Address),
			slog.Any("error", err))
		status = types.NewFailureStatus(src, err)
		status.Indexer = indexer
	}
	return single(status)
}

func (p *Direct) probe(ctx context.Context, d types.Deployment, src types.SourceDescriptor, indexer string) (types.SourceStatus, error) {
	body, err := p.requester.Post(ctx, StatusURL(src.Address), util.GraphQLRequest{
		Query:     indexingStatusQuery,
		Variables: map[string]any{"id": d.ID},
	})
	if err != nil {
		return types.SourceStatus{}, err
	}

	data, err := util.DecodeGraphQL[indexingStatusesData](body)
	if err != nil {
		return types.SourceStatus{}, err
	}

	raw, ok := pickStatus(data.IndexingStatuses, d.ID)
	if !ok {
		return types.SourceStatus{}, types.NewNoDataError(types.NoStatusData)
	}
	return normalize(types.ProbeDirect, src.Address, indexer, d.StartBlock, raw)
}

// pickStatus returns the record of the requested deployment. A record with
// an empty subgraph is taken as the requested one only when no record names
// it; records of other deployments are never used.
func pickStatus(statuses []rawStatus, id string) (rawStatus, bool) {
	var (
		unnamed rawStatus
		found   bool
	)
	for _, s := range statuses {
		switch s.Subgraph {
		case id:
			return s, true
		case "":
			if !found {
				unnamed, found = s, true
			}
		}
	}
	return unnamed, found
}

func indexerID(d types.Deployment, address string) string {
	for _, ref := range d.Indexers {
		if ref.URL == address {
			return ref.ID
		}
	}
	return ""
}
