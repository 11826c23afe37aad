package aggregator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/syncwatch/syncwatch/probe"
	"github.com/syncwatch/syncwatch/progress"
	"github.com/syncwatch/syncwatch/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func u64(v uint64) *uint64 { return &v }

func chain(head, latest uint64) *types.ChainProgress {
	return &types.ChainProgress{Network: "mainnet", ChainHeadBlock: u64(head), LatestBlock: u64(latest), EarliestBlock: u64(0)}
}

func success(src types.SourceDescriptor, start uint64, c *types.ChainProgress, synced bool, health types.Health) types.SourceStatus {
	return types.SourceStatus{
		Source:         src.Address,
		Kind:           src.Kind,
		Outcome:        types.OutcomeSuccess,
		Synced:         synced,
		Health:         health,
		Chain:          c,
		SyncPercentage: progress.ForChain(start, c),
	}
}

// fakeProber answers from a per-address table and counts calls.
type fakeProber struct {
	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
	answer   func(d types.Deployment, src types.SourceDescriptor) probe.Result
}

func (f *fakeProber) Probe(_ context.Context, d types.Deployment, src types.SourceDescriptor) probe.Result {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.answer(d, src)
}

type fakeVolumes struct {
	calls atomic.Int32
	err   error
}

func (f *fakeVolumes) Fetch(_ context.Context, _ string) (*types.QueryVolume, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &types.QueryVolume{Count: 1234, Days: 30}, nil
}

func direct(addrs ...string) []types.SourceDescriptor {
	out := make([]types.SourceDescriptor, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, types.SourceDescriptor{Address: a, Kind: types.ProbeDirect})
	}
	return out
}

func TestAggregateMixedSources(t *testing.T) {
	// start=100, head=200: A at 150 is 50%, B at 0 is N/A, C does not answer.
	prober := &fakeProber{answer: func(d types.Deployment, src types.SourceDescriptor) probe.Result {
		switch src.Address {
		case "a":
			return probe.Result{Statuses: []types.SourceStatus{success(src, d.StartBlock, chain(200, 150), false, types.HealthHealthy)}}
		case "b":
			return probe.Result{Statuses: []types.SourceStatus{success(src, d.StartBlock, chain(200, 0), false, types.HealthHealthy)}}
		default:
			return probe.Result{Statuses: []types.SourceStatus{
				types.NewFailureStatus(src, types.NewNetworkError(src.Address, errors.New("connection refused"))),
			}}
		}
	}}

	d := types.Deployment{ID: "QmA", StartBlock: 100, Sources: direct("a", "b", "c"), Indexers: make([]types.IndexerRef, 3)}
	summary, err := New(prober, nil, 10, testLogger()).Aggregate(context.Background(), d)
	require.NoError(t, err)

	require.Equal(t, 3, summary.TotalCount)
	require.Equal(t, 2, summary.RespondingCount)
	require.Equal(t, 0, summary.SyncedCount)
	require.Equal(t, 2, summary.HealthyCount)
	require.Equal(t, "50%", summary.HighestSyncPercentage.String())
	require.Len(t, summary.SyncPercentages, 2)
	require.ElementsMatch(t, []string{"50%", "N/A"}, []string{summary.SyncPercentages[0].String(), summary.SyncPercentages[1].String()})
	require.Equal(t, int32(3), prober.calls.Load())
	require.True(t, summary.NeedsAttention())
}

func TestAggregateConsolidatedExpansion(t *testing.T) {
	prober := &fakeProber{answer: func(d types.Deployment, src types.SourceDescriptor) probe.Result {
		var statuses []types.SourceStatus
		for i, latest := range []uint64{200, 150, 120} {
			s := success(types.SourceDescriptor{Address: string(rune('a' + i)), Kind: src.Kind}, d.StartBlock, chain(200, latest), true, types.HealthHealthy)
			statuses = append(statuses, s)
		}
		statuses = append(statuses, success(types.SourceDescriptor{Address: "d", Kind: src.Kind}, d.StartBlock, nil, false, types.HealthUnhealthy))
		return probe.Result{Statuses: statuses}
	}}

	d := types.Deployment{
		ID:         "QmA",
		StartBlock: 100,
		Sources:    []types.SourceDescriptor{{Address: "https://progress.example", Kind: types.ProbeConsolidated}},
	}
	summary, err := New(prober, nil, 10, testLogger()).Aggregate(context.Background(), d)
	require.NoError(t, err)

	require.Equal(t, 4, summary.TotalCount)
	require.Equal(t, 4, summary.RespondingCount)
	require.Equal(t, 3, summary.SyncedCount)
	require.Equal(t, 3, summary.HealthyCount)
	require.Equal(t, "100%", summary.HighestSyncPercentage.String())

	var na int
	for _, p := range summary.SyncPercentages {
		if !p.Applicable() {
			na++
		}
	}
	require.Equal(t, 1, na)
	require.Equal(t, int32(1), prober.calls.Load())
}

func TestAggregateWithoutSources(t *testing.T) {
	prober := &fakeProber{answer: func(types.Deployment, types.SourceDescriptor) probe.Result {
		t.Fatal("no probe expected")
		return probe.Result{}
	}}
	volumes := &fakeVolumes{}

	summary, err := New(prober, volumes, 10, testLogger()).Aggregate(context.Background(), types.Deployment{ID: "QmA"})
	require.NoError(t, err)
	require.Equal(t, 0, summary.TotalCount)
	require.Equal(t, 0, summary.RespondingCount)
	require.Equal(t, 0, summary.SyncedCount)
	require.Equal(t, 0, summary.HealthyCount)
	require.Equal(t, "0%", summary.HighestSyncPercentage.String())
	require.Equal(t, int32(0), prober.calls.Load())
	require.Equal(t, int32(0), volumes.calls.Load())
	require.False(t, summary.NeedsAttention())
}

func TestAggregateAllFailing(t *testing.T) {
	prober := &fakeProber{answer: func(_ types.Deployment, src types.SourceDescriptor) probe.Result {
		return probe.Result{Statuses: []types.SourceStatus{types.NewFailureStatus(src, types.NewTimeoutError("POST "+src.Address))}}
	}}

	d := types.Deployment{ID: "QmA", Sources: direct("a", "b", "c", "d")}
	summary, err := New(prober, nil, 2, testLogger()).Aggregate(context.Background(), d)
	require.NoError(t, err)
	require.Equal(t, 4, summary.TotalCount)
	require.Equal(t, 0, summary.RespondingCount)
	require.Empty(t, summary.SyncPercentages)
	require.Equal(t, "0%", summary.HighestSyncPercentage.String())
	for _, s := range summary.Statuses {
		require.Equal(t, types.FailureNetwork, s.FailureKind)
	}
}

func TestAggregateConsolidatedFeedFailure(t *testing.T) {
	prober := &fakeProber{answer: func(types.Deployment, types.SourceDescriptor) probe.Result {
		return probe.Result{Err: types.NewNetworkError("https://progress.example", errors.New("dial tcp: refused"))}
	}}

	d := types.Deployment{ID: "QmA", Sources: []types.SourceDescriptor{{Address: "https://progress.example", Kind: types.ProbeConsolidated}}}
	summary, err := New(prober, nil, 4, testLogger()).Aggregate(context.Background(), d)
	require.NoError(t, err)
	require.Equal(t, 0, summary.TotalCount)
	require.Equal(t, "0%", summary.HighestSyncPercentage.String())
	require.Len(t, summary.Errors, 1)
	require.Contains(t, summary.Errors[0], "progress.example")
}

func TestAggregateRecoversProbePanic(t *testing.T) {
	prober := &fakeProber{answer: func(d types.Deployment, src types.SourceDescriptor) probe.Result {
		if src.Address == "bad" {
			panic("nil chain")
		}
		return probe.Result{Statuses: []types.SourceStatus{success(src, d.StartBlock, chain(10, 10), true, types.HealthHealthy)}}
	}}

	d := types.Deployment{ID: "QmA", Sources: direct("good", "bad")}
	summary, err := New(prober, nil, 4, testLogger()).Aggregate(context.Background(), d)
	require.NoError(t, err)
	require.Equal(t, 2, summary.TotalCount)
	require.Equal(t, 1, summary.RespondingCount)

	var failed types.SourceStatus
	for _, s := range summary.Statuses {
		if !s.Succeeded() {
			failed = s
		}
	}
	require.Equal(t, "bad", failed.Source)
	require.Equal(t, types.FailureInternal, failed.FailureKind)
	require.Contains(t, failed.Cause, "nil chain")
}

func TestAggregateQueryVolume(t *testing.T) {
	prober := &fakeProber{answer: func(d types.Deployment, src types.SourceDescriptor) probe.Result {
		return probe.Result{Statuses: []types.SourceStatus{success(src, d.StartBlock, chain(10, 5), false, types.HealthHealthy)}}
	}}

	t.Run("attached", func(t *testing.T) {
		volumes := &fakeVolumes{}
		summary, err := New(prober, volumes, 4, testLogger()).Aggregate(context.Background(), types.Deployment{ID: "QmA", Sources: direct("a")})
		require.NoError(t, err)
		require.Equal(t, &types.QueryVolume{Count: 1234, Days: 30}, summary.QueryVolume)
		require.Equal(t, int32(1), volumes.calls.Load())
	})

	t.Run("failure does not affect statuses", func(t *testing.T) {
		volumes := &fakeVolumes{err: types.NewTimeoutError("GET volume")}
		summary, err := New(prober, volumes, 4, testLogger()).Aggregate(context.Background(), types.Deployment{ID: "QmA", Sources: direct("a")})
		require.NoError(t, err)
		require.Nil(t, summary.QueryVolume)
		require.Equal(t, 1, summary.RespondingCount)
		require.Empty(t, summary.Errors)
	})
}

func TestAggregateRespectsWorkerLimit(t *testing.T) {
	prober := &fakeProber{delay: 20 * time.Millisecond, answer: func(d types.Deployment, src types.SourceDescriptor) probe.Result {
		return probe.Result{Statuses: []types.SourceStatus{success(src, d.StartBlock, nil, false, types.HealthHealthy)}}
	}}

	d := types.Deployment{ID: "QmA", Sources: direct("a", "b", "c", "d", "e", "f", "g", "h")}
	summary, err := New(prober, nil, 3, testLogger()).Aggregate(context.Background(), d)
	require.NoError(t, err)
	require.Equal(t, 8, summary.TotalCount)
	require.LessOrEqual(t, prober.peak.Load(), int32(3))
}

func TestAggregateInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	prober := &fakeProber{answer: func(_ types.Deployment, src types.SourceDescriptor) probe.Result {
		once.Do(cancel)
		return probe.Result{Statuses: []types.SourceStatus{types.NewFailureStatus(src, context.Canceled)}}
	}}

	_, err := New(prober, nil, 1, testLogger()).Aggregate(ctx, types.Deployment{ID: "QmA", Sources: direct("a", "b")})
	require.ErrorIs(t, err, context.Canceled)
}

func TestAggregateIsIdempotent(t *testing.T) {
	prober := &fakeProber{answer: func(d types.Deployment, src types.SourceDescriptor) probe.Result {
		switch src.Address {
		case "a":
			return probe.Result{Statuses: []types.SourceStatus{success(src, d.StartBlock, chain(1000, 700), false, types.HealthHealthy)}}
		case "b":
			return probe.Result{Statuses: []types.SourceStatus{success(src, d.StartBlock, chain(1000, 1000), true, types.HealthHealthy)}}
		case "c":
			return probe.Result{Statuses: []types.SourceStatus{success(src, d.StartBlock, chain(1000, 300), false, types.HealthFailed)}}
		default:
			return probe.Result{Statuses: []types.SourceStatus{types.NewFailureStatus(src, types.NewNoDataError(types.NoStatusData))}}
		}
	}}

	agg := New(prober, nil, 4, testLogger())
	d := types.Deployment{ID: "QmA", StartBlock: 200, Sources: direct("a", "b", "c", "d", "e")}

	sorted := func(ps []types.Percentage) []string {
		out := make([]string, 0, len(ps))
		for _, p := range ps {
			out = append(out, p.String())
		}
		sort.Strings(out)
		return out
	}

	first, err := agg.Aggregate(context.Background(), d)
	require.NoError(t, err)
	for range 10 {
		again, err := agg.Aggregate(context.Background(), d)
		require.NoError(t, err)
		require.Equal(t, first.TotalCount, again.TotalCount)
		require.Equal(t, first.RespondingCount, again.RespondingCount)
		require.Equal(t, first.SyncedCount, again.SyncedCount)
		require.Equal(t, first.HealthyCount, again.HealthyCount)
		require.Equal(t, first.HighestSyncPercentage, again.HighestSyncPercentage)
		require.Equal(t, sorted(first.SyncPercentages), sorted(again.SyncPercentages))
	}
	require.Equal(t, 3, first.RespondingCount)
	require.Equal(t, "100%", first.HighestSyncPercentage.String())
}

func TestSummarizeCountBounds(t *testing.T) {
	src := types.SourceDescriptor{Address: "x", Kind: types.ProbeDirect}
	statuses := []types.SourceStatus{
		success(src, 0, chain(100, 40), false, types.HealthHealthy),
		success(src, 0, chain(100, 100), true, types.HealthUnhealthy),
		types.NewFailureStatus(src, errors.New("boom")),
	}
	summary := Summarize(types.Deployment{ID: "QmA", SignalledTokens: "5", Index: 7}, statuses)

	require.LessOrEqual(t, summary.RespondingCount, summary.TotalCount)
	require.LessOrEqual(t, summary.SyncedCount, summary.RespondingCount)
	require.LessOrEqual(t, summary.HealthyCount, summary.RespondingCount)
	require.Equal(t, "100%", summary.HighestSyncPercentage.String())
	require.Equal(t, 7, summary.Listing)
	require.Equal(t, "5", summary.SignalledTokens)

	empty := Summarize(types.Deployment{}, nil)
	require.NotNil(t, empty.Statuses)
	require.NotNil(t, empty.SyncPercentages)
}
