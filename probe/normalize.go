package probe

import (
	"bytes"
	"strconv"

	"github.com/syncwatch/syncwatch/progress"
	"github.com/syncwatch/syncwatch/types"
)

// numeric holds a number that graph-node sends as a JSON string (block
// numbers, entity counts). Bare JSON numbers are accepted too. It is parsed
// during normalization so a bad value surfaces as a parse failure rather
// than a malformed response.
type numeric string

func (n *numeric) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*n = ""
		return nil
	}
	if unquoted, err := strconv.Unquote(string(b)); err == nil {
		*n = numeric(unquoted)
		return nil
	}
	*n = numeric(b)
	return nil
}

type blockRef struct {
	Number numeric `json:"number"`
}

type wireChain struct {
	Network        string    `json:"network"`
	ChainHeadBlock *blockRef `json:"chainHeadBlock"`
	LatestBlock    *blockRef `json:"latestBlock"`
	EarliestBlock  *blockRef `json:"earliestBlock"`
}

type wireError struct {
	Message       string    `json:"message"`
	Deterministic bool      `json:"deterministic"`
	Block         *blockRef `json:"block"`
}

// rawStatus is the wire shape shared by an indexer's indexingStatuses
// records and the entries of a consolidated progress feed. Fields absent
// from one protocol simply stay zero.
type rawStatus struct {
	Subgraph       string      `json:"subgraph"`
	Source         string      `json:"source"`
	Synced         bool        `json:"synced"`
	Health         string      `json:"health"`
	EntityCount    numeric     `json:"entityCount"`
	Paused         *bool       `json:"paused"`
	Node           string      `json:"node"`
	FatalError     *wireError  `json:"fatalError"`
	NonFatalErrors []wireError `json:"nonFatalErrors"`
	Chains         []wireChain `json:"chains"`
}

// normalize builds the canonical status of one successfully answered probe.
// Only the first reported chain is considered.
func normalize(kind types.ProbeKind, source, indexer string, startBlock uint64, raw rawStatus) (types.SourceStatus, error) {
	status := types.SourceStatus{
		Source:  source,
		Indexer: indexer,
		Kind:    kind,
		Outcome: types.OutcomeSuccess,
		Synced:  raw.Synced,
		Health:  types.ParseHealth(raw.Health),
		Paused:  raw.Paused,
		Node:    raw.Node,
	}

	count, err := parseOptional("entityCount", raw.EntityCount)
	if err != nil {
		return types.SourceStatus{}, err
	}
	status.EntityCount = count

	if len(raw.Chains) > 0 {
		chain, err := normalizeChain(raw.Chains[0])
		if err != nil {
			return types.SourceStatus{}, err
		}
		status.Chain = chain
	}
	status.SyncPercentage = progress.ForChain(startBlock, status.Chain)

	if raw.FatalError != nil {
		fatal, err := normalizeError(*raw.FatalError)
		if err != nil {
			return types.SourceStatus{}, err
		}
		status.FatalError = &fatal
	}
	for _, e := range raw.NonFatalErrors {
		nonFatal, err := normalizeError(e)
		if err != nil {
			return types.SourceStatus{}, err
		}
		status.NonFatalErrors = append(status.NonFatalErrors, nonFatal)
	}

	return status, nil
}

func normalizeChain(c wireChain) (*types.ChainProgress, error) {
	head, err := parseBlock("chainHeadBlock", c.ChainHeadBlock)
	if err != nil {
		return nil, err
	}
	latest, err := parseBlock("latestBlock", c.LatestBlock)
	if err != nil {
		return nil, err
	}
	earliest, err := parseBlock("earliestBlock", c.EarliestBlock)
	if err != nil {
		return nil, err
	}
	return &types.ChainProgress{
		Network:        c.Network,
		ChainHeadBlock: head,
		LatestBlock:    latest,
		EarliestBlock:  earliest,
	}, nil
}

func normalizeError(e wireError) (types.StatusError, error) {
	block, err := parseBlock("block", e.Block)
	if err != nil {
		return types.StatusError{}, err
	}
	return types.StatusError{Message: e.Message, Deterministic: e.Deterministic, Block: block}, nil
}

func parseBlock(field string, ref *blockRef) (*uint64, error) {
	if ref == nil {
		return nil, nil
	}
	return parseOptional(field, ref.Number)
}

func parseOptional(field string, n numeric) (*uint64, error) {
	if n == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(string(n), 10, 64)
	if err != nil {
		return nil, types.NewParseError(field, string(n), err)
	}
	return &v, nil
}
