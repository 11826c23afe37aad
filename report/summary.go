package report

import (
	"fmt"
	"io"
	"math/big"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/syncwatch/syncwatch/types"
)

const topN = 5

// PrintSummary writes the fleet totals and the notable deployments of r as
// human readable text.
func PrintSummary(w io.Writer, r *types.FleetReport) {
	t := r.Totals()

	fmt.Fprintf(w, "Processing completed in %.2f seconds\n\n", t.DurationSeconds)
	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "Deployments: %d (omitted: %d)\n", t.Deployments, t.Omitted)
	fmt.Fprintf(w, "Unique subgraphs: %d\n", t.Subgraphs)
	fmt.Fprintf(w, "Deployments with signal: %d\n", t.WithSignal)
	fmt.Fprintf(w, "Deployments with active indexers: %d\n", t.WithIndexers)
	fmt.Fprintf(w, "Total 30-day query volume: %s\n", formatCount(t.QueryVolume))
	fmt.Fprintf(w, "Deployments with query volume: %d\n", t.WithQueryVolume)

	fmt.Fprintln(w, "\nSource Status Summary:")
	fmt.Fprintf(w, "Sources checked: %d\n", t.Sources)
	fmt.Fprintf(w, "Sources responding: %d%s\n", t.Responding, ratio(t.Responding, t.Sources))
	fmt.Fprintf(w, "Sources synced: %d%s\n", t.Synced, ratio(t.Synced, t.Responding))
	fmt.Fprintf(w, "Sources healthy: %d%s\n", t.Healthy, ratio(t.Healthy, t.Responding))

	if bySignal := topBySignal(r.Summaries); len(bySignal) > 0 {
		fmt.Fprintf(w, "\nTop %d deployments by signal amount:\n", topN)
		table := newTable(w, "IPFS HASH", "SIGNAL", "QUERY VOLUME", "INDEXERS", "RESPONDING", "SYNCED", "SYNC")
		for _, s := range bySignal {
			table.Append(row(s, types.FormatTokens(s.SignalledTokens)))
		}
		table.Render()
	}

	if byVolume := topByQueryVolume(r.Summaries); len(byVolume) > 0 {
		fmt.Fprintf(w, "\nTop %d deployments by 30-day query volume:\n", topN)
		table := newTable(w, "IPFS HASH", "SIGNAL", "QUERY VOLUME", "INDEXERS", "RESPONDING", "SYNCED", "SYNC")
		for _, s := range byVolume {
			table.Append(row(s, types.FormatTokens(s.SignalledTokens)))
		}
		table.Render()
	}

	issues := r.NeedsAttention()
	if len(issues) == 0 {
		fmt.Fprintln(w, "\nNo issues found: every indexed deployment is fully synced.")
	} else {
		fmt.Fprintf(w, "\nDeployments with potential issues (%d):\n", len(issues))
		table := newTable(w, "SUBGRAPH", "IPFS HASH", "LATEST", "SIGNAL", "INDEXERS", "RESPONDING", "SYNC", "PER SOURCE")
		for _, s := range issues {
			table.Append([]string{
				s.SubgraphID,
				s.DeploymentID,
				strconv.FormatBool(s.Latest),
				types.FormatTokens(s.SignalledTokens),
				strconv.Itoa(s.IndexerCount),
				strconv.Itoa(s.RespondingCount),
				s.HighestSyncPercentage.String(),
				percentages(s.SyncPercentages),
			})
		}
		table.Render()
	}

	if len(r.Omitted) > 0 {
		fmt.Fprintf(w, "\nOmitted deployments (%d):\n", len(r.Omitted))
		for _, o := range r.Omitted {
			fmt.Fprintf(w, "  %s: %s\n", o.DeploymentID, o.Cause)
		}
	}
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	return table
}

// formatCount renders a count with thousands separators over the full
// uint64 range.
func formatCount(v uint64) string {
	return humanize.BigComma(new(big.Int).SetUint64(v))
}

func row(s types.DeploymentSummary, signal string) []string {
	count, _ := queryVolume(s)
	return []string{
		s.DeploymentID,
		signal,
		formatCount(count),
		strconv.Itoa(s.IndexerCount),
		strconv.Itoa(s.RespondingCount),
		strconv.Itoa(s.SyncedCount),
		s.HighestSyncPercentage.String(),
	}
}

func ratio(n, of int) string {
	if of == 0 {
		return ""
	}
	return fmt.Sprintf(" (%.1f%%)", float64(n)*100/float64(of))
}

func topBySignal(summaries []types.DeploymentSummary) []types.DeploymentSummary {
	type signalled struct {
		summary types.DeploymentSummary
		signal  *big.Int
	}
	var candidates []signalled
	for _, s := range summaries {
		v, ok := (types.Deployment{SignalledTokens: s.SignalledTokens}).Signal()
		if ok && v.Sign() > 0 {
			candidates = append(candidates, signalled{summary: s, signal: v})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].signal.Cmp(candidates[j].signal) > 0
	})

	out := make([]types.DeploymentSummary, 0, topN)
	for i := 0; i < len(candidates) && i < topN; i++ {
		out = append(out, candidates[i].summary)
	}
	return out
}

func topByQueryVolume(summaries []types.DeploymentSummary) []types.DeploymentSummary {
	var candidates []types.DeploymentSummary
	for _, s := range summaries {
		if count, _ := queryVolume(s); count > 0 {
			candidates = append(candidates, s)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].QueryVolume.Count > candidates[j].QueryVolume.Count
	})
	if len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates
}
