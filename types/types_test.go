package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func u64(v uint64) *uint64 { return &v }

func TestPercentage(t *testing.T) {
	require.Equal(t, "N/A", NotApplicable.String())
	require.Equal(t, "50%", PercentOf(50).String())
	require.Equal(t, "100%", PercentOf(250).String())

	b, err := json.Marshal([]Percentage{PercentOf(7), NotApplicable})
	require.NoError(t, err)
	require.JSONEq(t, `[7, null]`, string(b))

	var back []Percentage
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, []Percentage{PercentOf(7), NotApplicable}, back)
}

func TestMaxPercentage(t *testing.T) {
	tests := []struct {
		name     string
		input    []Percentage
		expected Percentage
	}{
		{"empty", nil, PercentOf(0)},
		{"all not applicable", []Percentage{NotApplicable, NotApplicable}, PercentOf(0)},
		{"mixed", []Percentage{PercentOf(12), NotApplicable, PercentOf(88), PercentOf(40)}, PercentOf(88)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, MaxPercentage(tt.input))
		})
	}
}

func TestFormatTokens(t *testing.T) {
	tests := []struct {
		wei      string
		expected string
	}{
		{"0", "0"},
		{"", "0"},
		{"garbage", "0"},
		{"1000000000000000000", "1.00"},
		{"1234567890000000000000", "1,234.56"},
		{"5000000000000000", "0.00"},
		{"50000000000000000", "0.05"},
		{"123456789000000000000000000", "123,456,789.00"},
		{"1" + strings.Repeat("0", 38), "100,000,000,000,000,000,000.00"},
	}
	for _, tt := range tests {
		t.Run(tt.wei, func(t *testing.T) {
			require.Equal(t, tt.expected, FormatTokens(tt.wei))
		})
	}
}

func TestDeploymentSignal(t *testing.T) {
	d := Deployment{SignalledTokens: "340282366920938463463374607431768211457"}
	v, ok := d.Signal()
	require.True(t, ok)
	require.Equal(t, "340282366920938463463374607431768211457", v.String())
	require.True(t, d.HasSignal())

	_, ok = Deployment{SignalledTokens: "-1"}.Signal()
	require.False(t, ok)
	require.False(t, Deployment{SignalledTokens: "0"}.HasSignal())
}

func TestParseHealth(t *testing.T) {
	require.Equal(t, HealthHealthy, ParseHealth("healthy"))
	require.Equal(t, HealthUnhealthy, ParseHealth("UNHEALTHY"))
	require.Equal(t, HealthFailed, ParseHealth(" failed "))
	require.Equal(t, HealthUnknown, ParseHealth("degraded"))
	require.Equal(t, HealthUnknown, ParseHealth(""))
}

func TestBlocksBehind(t *testing.T) {
	var nilChain *ChainProgress
	_, ok := nilChain.BlocksBehind()
	require.False(t, ok)

	behind, ok := (&ChainProgress{ChainHeadBlock: u64(200), LatestBlock: u64(150)}).BlocksBehind()
	require.True(t, ok)
	require.Equal(t, uint64(50), behind)

	behind, ok = (&ChainProgress{ChainHeadBlock: u64(100), LatestBlock: u64(150)}).BlocksBehind()
	require.True(t, ok)
	require.Zero(t, behind)

	_, ok = (&ChainProgress{ChainHeadBlock: u64(100)}).BlocksBehind()
	require.False(t, ok)
}

func TestNewFailureStatus(t *testing.T) {
	src := SourceDescriptor{Address: "https://indexer.example/status", Kind: ProbeDirect}

	tests := []struct {
		err   error
		kind  FailureKind
		cause string
	}{
		{NewNoDataError(NoStatusData), FailureNoData, NoStatusData},
		{NewTimeoutError("POST https://indexer.example/status"), FailureNetwork, "POST https://indexer.example/status operation timed out"},
		{NewHTTPStatusError("https://indexer.example/status", 502, nil), FailureNetwork, "http response 502 from https://indexer.example/status"},
		{NewProtocolError("missing data", nil), FailureProtocol, "missing data"},
		{NewParseError("latestBlock", "abc", nil), FailureParse, `cannot parse latestBlock "abc"`},
		{errors.New("boom"), FailureInternal, "boom"},
		{fmt.Errorf("wrapped: %w", NewRateLimitError("x")), FailureNetwork, "wrapped: [RATE_LIMIT] rate limit exceeded for endpoint: x"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			s := NewFailureStatus(src, tt.err)
			require.Equal(t, OutcomeFailure, s.Outcome)
			require.False(t, s.Succeeded())
			require.Equal(t, tt.kind, s.FailureKind)
			require.Equal(t, tt.cause, s.Cause)
			require.False(t, s.SyncPercentage.Applicable())
			require.Equal(t, src.Address, s.Source)
		})
	}
}

func TestFleetReport(t *testing.T) {
	r := &FleetReport{
		Duration: 3 * time.Second,
		Summaries: []DeploymentSummary{
			{Listing: 2, DeploymentID: "Qm2", SubgraphID: "sg1", SignalledTokens: "0", IndexerCount: 1, TotalCount: 1, RespondingCount: 1, SyncedCount: 1, HealthyCount: 1, HighestSyncPercentage: PercentOf(100)},
			{Listing: 0, DeploymentID: "Qm0", SubgraphID: "sg1", SignalledTokens: "10", IndexerCount: 3, TotalCount: 3, RespondingCount: 2, HealthyCount: 1, HighestSyncPercentage: PercentOf(50), QueryVolume: &QueryVolume{Count: 42, Days: 30}},
			{Listing: 1, DeploymentID: "Qm1", SubgraphID: "sg2", SignalledTokens: "", HighestSyncPercentage: PercentOf(0)},
		},
		Omitted: []OmittedDeployment{
			NewOmittedDeployment(Deployment{Index: 4, ID: "Qm4"}, NewInternalError("aggregation panicked", nil)),
			NewOmittedDeployment(Deployment{Index: 3, ID: "Qm3"}, errors.New("boom")),
		},
	}

	r.SortByListing()
	require.Equal(t, "Qm0", r.Summaries[0].DeploymentID)
	require.Equal(t, "Qm1", r.Summaries[1].DeploymentID)
	require.Equal(t, "Qm2", r.Summaries[2].DeploymentID)
	require.Equal(t, "Qm3", r.Omitted[0].DeploymentID)

	totals := r.Totals()
	require.Equal(t, 3, totals.Deployments)
	require.Equal(t, 2, totals.Subgraphs)
	require.Equal(t, 2, totals.Omitted)
	require.Equal(t, 1, totals.WithSignal)
	require.Equal(t, 2, totals.WithIndexers)
	require.Equal(t, 4, totals.Sources)
	require.Equal(t, 3, totals.Responding)
	require.Equal(t, 1, totals.Synced)
	require.Equal(t, 2, totals.Healthy)
	require.Equal(t, uint64(42), totals.QueryVolume)
	require.Equal(t, 1, totals.NeedingAttention)
	require.InDelta(t, 3.0, totals.DurationSeconds, 1e-9)

	attention := r.NeedsAttention()
	require.Len(t, attention, 1)
	require.Equal(t, "Qm0", attention[0].DeploymentID)

	_, err := r.Find("missing")
	require.Equal(t, ErrTypeNotFound, ErrorTypeOf(err))
	found, err := r.Find("Qm1")
	require.NoError(t, err)
	require.Equal(t, "sg2", found.SubgraphID)

	errs := multierr.Errors(r.Err())
	require.Len(t, errs, 2)
	require.Contains(t, errs[0].Error(), "deployment Qm3")
}
