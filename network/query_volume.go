package network

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/syncwatch/syncwatch/cache"
	"github.com/syncwatch/syncwatch/types"
	"github.com/syncwatch/syncwatch/util"
)

type queryVolumeResponse struct {
	Count   *json.Number `json:"count"`
	NumDays *int         `json:"numDays"`
}

// QueryVolumeClient reads how often a deployment was queried over the
// explorer's reporting window. Answers are cached until they expire.
type QueryVolumeClient struct {
	requester *util.Requester
	baseURL   string
	cache     *cache.TTLCache[string, types.QueryVolume]
}

func NewQueryVolumeClient(requester *util.Requester, baseURL string, volumes *cache.TTLCache[string, types.QueryVolume]) *QueryVolumeClient {
	return &QueryVolumeClient{
		requester: requester,
		baseURL:   strings.TrimRight(baseURL, "/"),
		cache:     volumes,
	}
}

// Fetch returns the cached volume of a deployment or asks the explorer.
// Failed lookups are not cached.
func (c *QueryVolumeClient) Fetch(ctx context.Context, deploymentID string) (*types.QueryVolume, error) {
	v, err := c.cache.GetOrLoad(deploymentID, func() (types.QueryVolume, error) {
		return c.fetch(ctx, deploymentID)
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *QueryVolumeClient) fetch(ctx context.Context, deploymentID string) (types.QueryVolume, error) {
	body, err := c.requester.Get(ctx, c.baseURL+"/"+deploymentID, nil)
	if err != nil {
		return types.QueryVolume{}, err
	}

	var res queryVolumeResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return types.QueryVolume{}, types.NewProtocolError("malformed query volume response", err)
	}
	if res.Count == nil || res.NumDays == nil {
		return types.QueryVolume{}, types.NewNoDataError("query volume response has no count")
	}

	count, err := parseCount(*res.Count)
	if err != nil {
		return types.QueryVolume{}, err
	}
	return types.QueryVolume{Count: count, Days: *res.NumDays}, nil
}

// parseCount accepts integral counts, including ones rendered as floats.
func parseCount(n json.Number) (uint64, error) {
	if i, err := n.Int64(); err == nil && i >= 0 {
		return uint64(i), nil
	}
	f, err := n.Float64()
	if err != nil || f < 0 {
		return 0, types.NewParseError("count", n.String(), err)
	}
	return uint64(f), nil
}
