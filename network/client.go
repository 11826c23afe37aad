package network

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/syncwatch/syncwatch/types"
	"github.com/syncwatch/syncwatch/util"
)

const graphAccountsQuery = `query ($id: String!) {
  graphAccounts(where: {id: $id}) {
    subgraphs {
      id
      versions(orderBy: version, orderDirection: asc) {
        version
        subgraphDeployment {
          ipfsHash
          signalledTokens
          createdAt
          indexerAllocations(where: {status: Active}) {
            indexer { id url }
          }
        }
      }
    }
  }
}`

type graphAccountsData struct {
	GraphAccounts []struct {
		Subgraphs []subgraph `json:"subgraphs"`
	} `json:"graphAccounts"`
}

type subgraph struct {
	ID       string    `json:"id"`
	Versions []version `json:"versions"`
}

type version struct {
	Version            int `json:"version"`
	SubgraphDeployment struct {
		IPFSHash           string `json:"ipfsHash"`
		SignalledTokens    string `json:"signalledTokens"`
		CreatedAt          int64  `json:"createdAt"`
		IndexerAllocations []struct {
			Indexer struct {
				ID  string `json:"id"`
				URL string `json:"url"`
			} `json:"indexer"`
		} `json:"indexerAllocations"`
	} `json:"subgraphDeployment"`
}

// Options select how the sources of each listed deployment are probed.
type Options struct {
	SubgraphURL string
	Mode        types.ProbeKind
	ProgressURL string
}

// Client lists the deployments published by tracked accounts on the network
// subgraph. The requester carries the gateway credentials.
type Client struct {
	requester *util.Requester
	opts      Options
	logger    *slog.Logger
}

func NewClient(requester *util.Requester, opts Options, logger *slog.Logger) *Client {
	return &Client{requester: requester, opts: opts, logger: logger.With("component", "network")}
}

// ListDeployments returns every version of every subgraph of the accounts,
// in listing order. The last version of a subgraph is marked Latest. Any
// account that cannot be listed fails the whole listing.
func (c *Client) ListDeployments(ctx context.Context, accounts []string) ([]types.Deployment, error) {
	var deployments []types.Deployment
	for _, account := range accounts {
		subgraphs, err := c.listSubgraphs(ctx, account)
		if err != nil {
			return nil, fmt.Errorf("listing subgraphs of %s: %w", account, err)
		}
		c.logger.Info("listed account",
			slog.String("account", account),
			slog.Int("subgraphs", len(subgraphs)))

		for _, sg := range subgraphs {
			for i, v := range sg.Versions {
				d := c.toDeployment(sg.ID, v)
				d.Index = len(deployments)
				d.Latest = i == len(sg.Versions)-1
				deployments = append(deployments, d)
			}
		}
	}
	return deployments, nil
}

func (c *Client) listSubgraphs(ctx context.Context, account string) ([]subgraph, error) {
	body, err := c.requester.PostWithRetry(ctx, c.opts.SubgraphURL, util.GraphQLRequest{
		Query:     graphAccountsQuery,
		Variables: map[string]any{"id": account},
	})
	if err != nil {
		return nil, err
	}

	data, err := util.DecodeGraphQL[graphAccountsData](body)
	if err != nil {
		return nil, err
	}
	if len(data.GraphAccounts) == 0 {
		c.logger.Warn("account not found", slog.String("account", account))
		return nil, nil
	}
	return data.GraphAccounts[0].Subgraphs, nil
}

func (c *Client) toDeployment(subgraphID string, v version) types.Deployment {
	sd := v.SubgraphDeployment
	d := types.Deployment{
		ID:              sd.IPFSHash,
		SubgraphID:      subgraphID,
		SignalledTokens: sd.SignalledTokens,
		CreatedAt:       sd.CreatedAt,
		Indexers:        []types.IndexerRef{},
		Sources:         []types.SourceDescriptor{},
	}

	// an indexer may hold several active allocations on one deployment
	seen := make(map[string]struct{}, len(sd.IndexerAllocations))
	for _, alloc := range sd.IndexerAllocations {
		if _, ok := seen[alloc.Indexer.ID]; ok {
			continue
		}
		seen[alloc.Indexer.ID] = struct{}{}
		d.Indexers = append(d.Indexers, types.IndexerRef{ID: alloc.Indexer.ID, URL: alloc.Indexer.URL})

		if c.opts.Mode == types.ProbeDirect && alloc.Indexer.URL != "" {
			d.Sources = append(d.Sources, types.SourceDescriptor{Address: alloc.Indexer.URL, Kind: types.ProbeDirect})
		}
	}

	if c.opts.Mode == types.ProbeConsolidated {
		d.Sources = append(d.Sources, types.SourceDescriptor{Address: c.opts.ProgressURL, Kind: types.ProbeConsolidated})
	}
	return d
}
