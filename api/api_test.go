package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/syncwatch/syncwatch/config"
	"github.com/syncwatch/syncwatch/report"
	"github.com/syncwatch/syncwatch/types"
)

const (
	syncedID  = "QmXoypizjW3WknFiJnKLwHCnL72vedxjQkDDP1mXWo6uco"
	laggingID = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"
)

func newTestApp(store *report.Store) *fiber.App {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(&config.Config{}, logger, store).App()
}

func testReport() *types.FleetReport {
	return &types.FleetReport{
		RunID:     "run-1",
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Duration:  2 * time.Second,
		Summaries: []types.DeploymentSummary{
			{
				Listing:               0,
				DeploymentID:          syncedID,
				SubgraphID:            "sg-1",
				Latest:                true,
				IndexerCount:          1,
				TotalCount:            1,
				RespondingCount:       1,
				SyncedCount:           1,
				HighestSyncPercentage: types.PercentOf(100),
				SyncPercentages:       []types.Percentage{types.PercentOf(100)},
			},
			{
				Listing:               1,
				DeploymentID:          laggingID,
				SubgraphID:            "sg-1",
				Latest:                false,
				IndexerCount:          2,
				TotalCount:            2,
				RespondingCount:       1,
				HighestSyncPercentage: types.PercentOf(40),
				SyncPercentages:       []types.Percentage{types.PercentOf(40)},
			},
		},
		Omitted: []types.OmittedDeployment{
			{Listing: 2, DeploymentID: "QmGone", Cause: "aggregation panicked"},
		},
	}
}

func get(t *testing.T, app *fiber.App, path string) (int, []byte) {
	t.Helper()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, path, nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, body
}

func TestHealth(t *testing.T) {
	app := newTestApp(report.NewStore())

	code, body := get(t, app, "/health")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if string(body) != "OK" {
		t.Fatalf("expected OK, got %q", body)
	}
}

func TestReport_BeforeFirstScan(t *testing.T) {
	app := newTestApp(report.NewStore())

	for _, path := range []string{"/report", "/report/totals", "/deployments/attention", "/deployments/" + syncedID} {
		code, body := get(t, app, path)
		if code != http.StatusServiceUnavailable {
			t.Fatalf("%s: expected 503, got %d (%s)", path, code, body)
		}
	}
}

func TestReport_Latest(t *testing.T) {
	store := report.NewStore()
	store.Set(testReport())
	app := newTestApp(store)

	code, body := get(t, app, "/report")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	var got types.FleetReport
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RunID != "run-1" || len(got.Summaries) != 2 || len(got.Omitted) != 1 {
		t.Fatalf("unexpected report: %+v", got)
	}
	if v, ok := got.Summaries[1].HighestSyncPercentage.Value(); !ok || v != 40 {
		t.Fatalf("expected 40%% for lagging deployment, got %s", got.Summaries[1].HighestSyncPercentage)
	}
}

func TestReport_Totals(t *testing.T) {
	store := report.NewStore()
	store.Set(testReport())
	app := newTestApp(store)

	code, body := get(t, app, "/report/totals")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	var totals types.FleetTotals
	if err := json.Unmarshal(body, &totals); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if totals.Deployments != 2 || totals.Subgraphs != 1 || totals.Omitted != 1 {
		t.Fatalf("unexpected totals: %+v", totals)
	}
	if totals.Sources != 3 || totals.Responding != 2 || totals.Synced != 1 || totals.NeedingAttention != 1 {
		t.Fatalf("unexpected source totals: %+v", totals)
	}
}

func TestDeployments_Attention(t *testing.T) {
	store := report.NewStore()
	store.Set(testReport())
	app := newTestApp(store)

	code, body := get(t, app, "/deployments/attention")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	var resp struct {
		Deployments []types.DeploymentSummary `json:"deployments"`
		Count       int                       `json:"count"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || resp.Deployments[0].DeploymentID != laggingID {
		t.Fatalf("expected only the lagging deployment, got %+v", resp)
	}

	// the lagging deployment is not the latest version
	code, body = get(t, app, "/deployments/attention?latest=true")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 0 || resp.Deployments == nil {
		t.Fatalf("expected an empty list, got %s", body)
	}

	code, _ = get(t, app, "/deployments/attention?latest=maybe")
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid latest flag, got %d", code)
	}
}

func TestDeployments_ByID(t *testing.T) {
	store := report.NewStore()
	store.Set(testReport())
	app := newTestApp(store)

	code, body := get(t, app, "/deployments/"+syncedID)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	var got types.DeploymentSummary
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.DeploymentID != syncedID || got.SyncedCount != 1 {
		t.Fatalf("unexpected summary: %+v", got)
	}

	// omitted deployments are not addressable
	code, _ = get(t, app, "/deployments/QmdfTbBqBPQ7VNxZEYEj14VmRuZBkqFbiwReogJgS1zR1n")
	if code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}

	code, body = get(t, app, "/deployments/not-a-hash")
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != http.StatusBadRequest || errResp.Message == "" {
		t.Fatalf("unexpected error response: %+v", errResp)
	}
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(report.NewStore())

	code, _ := get(t, app, "/nope")
	if code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}
