package types

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/multierr"
)

type QueryVolume struct {
	Count uint64 `json:"count"`
	Days  int    `json:"num_days"`
}

// DeploymentSummary folds every SourceStatus collected for one deployment.
// RespondingCount <= TotalCount, and SyncedCount and HealthyCount never
// exceed RespondingCount.
type DeploymentSummary struct {
	Listing               int            `json:"listing"`
	DeploymentID          string         `json:"ipfs_hash"`
	SubgraphID            string         `json:"subgraph_id"`
	SignalledTokens       string         `json:"signal_amount"`
	Latest                bool           `json:"is_latest"`
	StartBlock            uint64         `json:"start_block"`
	Indexers              []IndexerRef   `json:"active_indexers"`
	IndexerCount          int            `json:"indexer_count"`
	TotalCount            int            `json:"total_count"`
	RespondingCount       int            `json:"indexers_responding"`
	SyncedCount           int            `json:"indexers_synced"`
	HealthyCount          int            `json:"indexers_healthy"`
	HighestSyncPercentage Percentage     `json:"sync_percentage"`
	SyncPercentages       []Percentage   `json:"indexer_sync_percentages"`
	Statuses              []SourceStatus `json:"indexer_statuses"`
	QueryVolume           *QueryVolume   `json:"query_volume,omitempty"`
	Errors                []string       `json:"errors,omitempty"`
}

// NeedsAttention reports deployments that have indexers and whose best
// source is partway through syncing.
func (s DeploymentSummary) NeedsAttention() bool {
	if s.IndexerCount == 0 {
		return false
	}
	v, ok := s.HighestSyncPercentage.Value()
	return ok && v > 0 && v < 100
}

type OmittedDeployment struct {
	Listing      int    `json:"listing"`
	DeploymentID string `json:"ipfs_hash"`
	Cause        string `json:"cause"`

	err error
}

func NewOmittedDeployment(d Deployment, err error) OmittedDeployment {
	return OmittedDeployment{
		Listing:      d.Index,
		DeploymentID: d.ID,
		Cause:        Describe(err),
		err:          err,
	}
}

func (o OmittedDeployment) Err() error {
	if o.err != nil {
		return fmt.Errorf("deployment %s: %w", o.DeploymentID, o.err)
	}
	return fmt.Errorf("deployment %s: %s", o.DeploymentID, o.Cause)
}

// FleetReport is assembled once per run and read-only afterwards.
type FleetReport struct {
	RunID     string              `json:"run_id"`
	StartedAt time.Time           `json:"started_at"`
	Duration  time.Duration       `json:"duration"`
	Summaries []DeploymentSummary `json:"summaries"`
	Omitted   []OmittedDeployment `json:"omitted,omitempty"`
}

// SortByListing reorders summaries from completion order to listing order.
func (r *FleetReport) SortByListing() {
	sort.SliceStable(r.Summaries, func(i, j int) bool {
		return r.Summaries[i].Listing < r.Summaries[j].Listing
	})
	sort.SliceStable(r.Omitted, func(i, j int) bool {
		return r.Omitted[i].Listing < r.Omitted[j].Listing
	})
}

// Err combines the causes of every omitted deployment.
func (r *FleetReport) Err() error {
	var err error
	for _, o := range r.Omitted {
		err = multierr.Append(err, o.Err())
	}
	return err
}

func (r *FleetReport) Find(deploymentID string) (DeploymentSummary, error) {
	for _, s := range r.Summaries {
		if s.DeploymentID == deploymentID {
			return s, nil
		}
	}
	return DeploymentSummary{}, NewNotFoundError(fmt.Sprintf("deployment %s", deploymentID))
}

func (r *FleetReport) NeedsAttention() []DeploymentSummary {
	var out []DeploymentSummary
	for _, s := range r.Summaries {
		if s.NeedsAttention() {
			out = append(out, s)
		}
	}
	return out
}

type FleetTotals struct {
	Deployments      int     `json:"deployments"`
	Subgraphs        int     `json:"subgraphs"`
	Omitted          int     `json:"omitted"`
	WithSignal       int     `json:"with_signal"`
	WithIndexers     int     `json:"with_indexers"`
	Sources          int     `json:"sources"`
	Responding       int     `json:"responding"`
	Synced           int     `json:"synced"`
	Healthy          int     `json:"healthy"`
	QueryVolume      uint64  `json:"query_volume"`
	WithQueryVolume  int     `json:"with_query_volume"`
	NeedingAttention int     `json:"needing_attention"`
	DurationSeconds  float64 `json:"duration_seconds"`
}

func (r *FleetReport) Totals() FleetTotals {
	t := FleetTotals{
		Deployments:     len(r.Summaries),
		Omitted:         len(r.Omitted),
		DurationSeconds: r.Duration.Seconds(),
	}
	subgraphs := make(map[string]struct{})
	for _, s := range r.Summaries {
		subgraphs[s.SubgraphID] = struct{}{}
		if (Deployment{SignalledTokens: s.SignalledTokens}).HasSignal() {
			t.WithSignal++
		}
		if s.IndexerCount > 0 {
			t.WithIndexers++
		}
		t.Sources += s.TotalCount
		t.Responding += s.RespondingCount
		t.Synced += s.SyncedCount
		t.Healthy += s.HealthyCount
		if s.QueryVolume != nil && s.QueryVolume.Count > 0 {
			t.QueryVolume += s.QueryVolume.Count
			t.WithQueryVolume++
		}
		if s.NeedsAttention() {
			t.NeedingAttention++
		}
	}
	t.Subgraphs = len(subgraphs)
	return t
}
