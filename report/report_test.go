package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/syncwatch/syncwatch/types"
)

func sampleReport() *types.FleetReport {
	return &types.FleetReport{
		RunID:     "run-1",
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Summaries: []types.DeploymentSummary{
			{
				Listing:               0,
				DeploymentID:          "QmSynced",
				SubgraphID:            "sg-1",
				SignalledTokens:       "1000000000000000000000",
				Latest:                true,
				Indexers:              []types.IndexerRef{{ID: "0xa"}, {ID: "0xb"}},
				IndexerCount:          2,
				TotalCount:            2,
				RespondingCount:       2,
				SyncedCount:           2,
				HealthyCount:          2,
				HighestSyncPercentage: types.PercentOf(100),
				SyncPercentages:       []types.Percentage{types.PercentOf(100), types.PercentOf(100)},
				QueryVolume:           &types.QueryVolume{Count: 5000, Days: 30},
			},
			{
				Listing:               1,
				DeploymentID:          "QmLagging",
				SubgraphID:            "sg-2",
				SignalledTokens:       "123456789000000000000000",
				Latest:                false,
				Indexers:              []types.IndexerRef{{ID: "0xc"}},
				IndexerCount:          1,
				TotalCount:            2,
				RespondingCount:       1,
				HealthyCount:          1,
				HighestSyncPercentage: types.PercentOf(50),
				SyncPercentages:       []types.Percentage{types.PercentOf(50)},
			},
			{
				Listing:               2,
				DeploymentID:          "QmIdle",
				SubgraphID:            "sg-2",
				SignalledTokens:       "0",
				HighestSyncPercentage: types.PercentOf(0),
				SyncPercentages:       []types.Percentage{},
			},
		},
		Omitted: []types.OmittedDeployment{
			types.NewOmittedDeployment(types.Deployment{Index: 3, ID: "QmBroken"}, errors.New("aggregation panicked")),
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleReport()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	require.Equal(t, networkDataHeader, records[0])
	require.Equal(t, []string{
		"sg-1", "QmSynced", "1000000000000000000000", "0xa, 0xb", "100%, 100%", "2", "5000", "30", "2", "2", "2", "100%",
	}, records[1])
	require.Equal(t, "None", records[3][3])
	require.Equal(t, "None", records[3][4])
	require.Equal(t, "0%", records[3][11])
}

func TestWriteIssuesCSV(t *testing.T) {
	var buf bytes.Buffer
	n, err := WriteIssuesCSV(&buf, sampleReport())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, []string{
		"sg-2", "QmLagging", "false", "123,456.78", "0", "0xc", "1", "1", "50%", "50%",
	}, records[1])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleReport()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "run-1", decoded["run_id"])

	summaries := decoded["summaries"].([]any)
	require.Len(t, summaries, 3)
	first := summaries[0].(map[string]any)
	require.Equal(t, "QmSynced", first["ipfs_hash"])
	require.EqualValues(t, 100, first["sync_percentage"])
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	written, err := WriteFiles(dir, sampleReport())
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, NetworkDataCSV),
		filepath.Join(dir, NetworkDataJSON),
		filepath.Join(dir, IssuesCSV),
	}, written)
	for _, path := range written {
		info, err := os.Stat(path)
		require.NoError(t, err)
		require.Positive(t, info.Size())
	}

	clean := sampleReport()
	clean.Summaries = clean.Summaries[:1]
	dir = t.TempDir()
	written, err = WriteFiles(dir, clean)
	require.NoError(t, err)
	require.Len(t, written, 2)
	_, err = os.Stat(filepath.Join(dir, IssuesCSV))
	require.True(t, os.IsNotExist(err))
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, sampleReport())
	out := buf.String()

	require.Contains(t, out, "Processing completed in 1.50 seconds")
	require.Contains(t, out, "Deployments: 3 (omitted: 1)")
	require.Contains(t, out, "Unique subgraphs: 2")
	require.Contains(t, out, "Deployments with signal: 2")
	require.Contains(t, out, "Total 30-day query volume: 5,000")
	require.Contains(t, out, "Sources responding: 3 (75.0%)")
	require.Contains(t, out, "Sources synced: 2 (66.7%)")
	require.Contains(t, out, "123,456.78")
	require.Contains(t, out, "Deployments with potential issues (1)")
	require.Contains(t, out, "QmBroken: aggregation panicked")

	// signal ranking is numeric, not lexical
	lagging := strings.Index(out, "QmLagging")
	synced := strings.Index(out, "QmSynced")
	require.Less(t, lagging, synced)
}

func TestFormatCount(t *testing.T) {
	require.Equal(t, "0", formatCount(0))
	require.Equal(t, "5,000", formatCount(5000))
	require.Equal(t, "18,446,744,073,709,551,615", formatCount(math.MaxUint64))
}

func TestStore(t *testing.T) {
	s := NewStore()
	_, ok := s.Latest()
	require.False(t, ok)
	require.False(t, s.Scanning())

	s.SetScanning(true)
	require.True(t, s.Scanning())

	r := sampleReport()
	s.Set(r)
	got, ok := s.Latest()
	require.True(t, ok)
	require.Same(t, r, got)
}
