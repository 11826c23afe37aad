package manifest

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/syncwatch/syncwatch/cache"
	"github.com/syncwatch/syncwatch/util"
)

const startBlockKey = "startBlock"

var startBlockPattern = regexp.MustCompile(`startBlock:\s*(\d+)`)

// Resolver finds the block a deployment starts indexing from by reading its
// manifest from IPFS. Manifests are content addressed, so a resolved value
// is cached for good.
type Resolver struct {
	requester *util.Requester
	ipfsURL   string
	cache     *cache.Cache[string, uint64]
	logger    *slog.Logger
}

func NewResolver(requester *util.Requester, ipfsURL string, startBlocks *cache.Cache[string, uint64], logger *slog.Logger) *Resolver {
	return &Resolver{
		requester: requester,
		ipfsURL:   strings.TrimRight(ipfsURL, "/"),
		cache:     startBlocks,
		logger:    logger.With("component", "manifest"),
	}
}

// StartBlock returns the lowest start block declared by any data source of
// the deployment, or 0 when the manifest is unavailable or declares none.
func (r *Resolver) StartBlock(ctx context.Context, deploymentID string) uint64 {
	start, err := r.cache.GetOrLoad(deploymentID, func() (uint64, error) {
		body, err := r.requester.GetWithRetry(ctx, r.ipfsURL+"/cat", map[string]string{"arg": deploymentID})
		if err != nil {
			return 0, err
		}
		start, _ := ParseStartBlock(string(body))
		return start, nil
	})
	if err != nil {
		r.logger.Warn("failed to fetch manifest",
			slog.String("deployment", deploymentID),
			slog.Any("error", err))
		return 0
	}
	return start
}

// ParseStartBlock returns the minimum of every startBlock declared in a
// manifest. Text that is not valid YAML is scanned with a pattern instead.
func ParseStartBlock(manifest string) (uint64, bool) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(manifest), &root); err == nil {
		if blocks := collectStartBlocks(&root, nil); len(blocks) > 0 {
			return minimum(blocks), true
		}
	}

	var blocks []uint64
	for _, m := range startBlockPattern.FindAllStringSubmatch(manifest, -1) {
		if v, err := strconv.ParseUint(m[1], 10, 64); err == nil {
			blocks = append(blocks, v)
		}
	}
	if len(blocks) == 0 {
		return 0, false
	}
	return minimum(blocks), true
}

func collectStartBlocks(node *yaml.Node, acc []uint64) []uint64 {
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if key.Value == startBlockKey && value.Kind == yaml.ScalarNode {
				if v, err := strconv.ParseUint(value.Value, 10, 64); err == nil {
					acc = append(acc, v)
				}
				continue
			}
			acc = collectStartBlocks(value, acc)
		}
		return acc
	}
	for _, child := range node.Content {
		acc = collectStartBlocks(child, acc)
	}
	return acc
}

func minimum(vs []uint64) uint64 {
	m := vs[0]
	for _, v := range vs[1:] {
		m = min(m, v)
	}
	return m
}
