package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/syncwatch/syncwatch/types"
)

var networkDataHeader = []string{
	"subgraph_id",
	"ipfs_hash",
	"signal_amount",
	"active_indexers",
	"indexer_sync_percentages",
	"indexer_count",
	"query_volume_30d",
	"query_volume_days",
	"indexers_responding",
	"indexers_synced",
	"indexers_healthy",
	"sync_percentage",
}

var issuesHeader = []string{
	"subgraph_id",
	"ipfs_hash",
	"is_latest",
	"signal_amount_formatted",
	"query_volume_30d",
	"active_indexers",
	"indexer_count",
	"indexers_responding",
	"sync_percentage",
	"indexer_sync_percentages",
}

// WriteCSV writes one row per summarized deployment.
func WriteCSV(w io.Writer, r *types.FleetReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(networkDataHeader); err != nil {
		return err
	}
	for _, s := range r.Summaries {
		count, days := queryVolume(s)
		row := []string{
			s.SubgraphID,
			s.DeploymentID,
			s.SignalledTokens,
			indexerIDs(s.Indexers),
			percentages(s.SyncPercentages),
			strconv.Itoa(s.IndexerCount),
			strconv.FormatUint(count, 10),
			strconv.Itoa(days),
			strconv.Itoa(s.RespondingCount),
			strconv.Itoa(s.SyncedCount),
			strconv.Itoa(s.HealthyCount),
			s.HighestSyncPercentage.String(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteIssuesCSV writes the deployments that need attention and returns how
// many there were.
func WriteIssuesCSV(w io.Writer, r *types.FleetReport) (int, error) {
	issues := r.NeedsAttention()

	cw := csv.NewWriter(w)
	if err := cw.Write(issuesHeader); err != nil {
		return 0, err
	}
	for _, s := range issues {
		count, _ := queryVolume(s)
		row := []string{
			s.SubgraphID,
			s.DeploymentID,
			strconv.FormatBool(s.Latest),
			types.FormatTokens(s.SignalledTokens),
			strconv.FormatUint(count, 10),
			indexerIDs(s.Indexers),
			strconv.Itoa(s.IndexerCount),
			strconv.Itoa(s.RespondingCount),
			s.HighestSyncPercentage.String(),
			percentages(s.SyncPercentages),
		}
		if err := cw.Write(row); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(issues), cw.Error()
}

func queryVolume(s types.DeploymentSummary) (uint64, int) {
	if s.QueryVolume == nil {
		return 0, 0
	}
	return s.QueryVolume.Count, s.QueryVolume.Days
}

func indexerIDs(refs []types.IndexerRef) string {
	if len(refs) == 0 {
		return "None"
	}
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.ID)
	}
	return strings.Join(ids, ", ")
}

func percentages(ps []types.Percentage) string {
	if len(ps) == 0 {
		return "None"
	}
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.String())
	}
	return strings.Join(out, ", ")
}
