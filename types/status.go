package types

import "strings"

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

type Health string

const (
	HealthHealthy   Health = "healthy"
	HealthUnhealthy Health = "unhealthy"
	HealthFailed    Health = "failed"
	HealthUnknown   Health = "unknown"
)

func ParseHealth(s string) Health {
	switch Health(strings.ToLower(strings.TrimSpace(s))) {
	case HealthHealthy:
		return HealthHealthy
	case HealthUnhealthy:
		return HealthUnhealthy
	case HealthFailed:
		return HealthFailed
	default:
		return HealthUnknown
	}
}

type FailureKind string

const (
	FailureNetwork  FailureKind = "network"
	FailureProtocol FailureKind = "protocol"
	FailureNoData   FailureKind = "no_data"
	FailureParse    FailureKind = "parse"
	FailureInternal FailureKind = "internal"
)

// FailureKindOf maps an error onto the probe failure taxonomy.
func FailureKindOf(err error) FailureKind {
	switch ErrorTypeOf(err) {
	case ErrTypeNetwork, ErrTypeTimeout, ErrTypeRateLimit:
		return FailureNetwork
	case ErrTypeProtocol:
		return FailureProtocol
	case ErrTypeNoData:
		return FailureNoData
	case ErrTypeParse:
		return FailureParse
	default:
		return FailureInternal
	}
}

type ChainProgress struct {
	Network        string  `json:"network,omitempty"`
	ChainHeadBlock *uint64 `json:"chain_head_block,omitempty"`
	LatestBlock    *uint64 `json:"latest_block,omitempty"`
	EarliestBlock  *uint64 `json:"earliest_block,omitempty"`
}

func (c *ChainProgress) Latest() uint64 {
	if c == nil || c.LatestBlock == nil {
		return 0
	}
	return *c.LatestBlock
}

func (c *ChainProgress) Head() uint64 {
	if c == nil || c.ChainHeadBlock == nil {
		return 0
	}
	return *c.ChainHeadBlock
}

// BlocksBehind reports how far the latest block trails the chain head.
func (c *ChainProgress) BlocksBehind() (uint64, bool) {
	if c == nil || c.ChainHeadBlock == nil || c.LatestBlock == nil {
		return 0, false
	}
	if *c.LatestBlock >= *c.ChainHeadBlock {
		return 0, true
	}
	return *c.ChainHeadBlock - *c.LatestBlock, true
}

type StatusError struct {
	Message       string  `json:"message"`
	Deterministic bool    `json:"deterministic"`
	Block         *uint64 `json:"block,omitempty"`
}

// SourceStatus is the normalized result of probing one source for one
// deployment. Values are built once and never modified.
type SourceStatus struct {
	Source         string         `json:"source"`
	Indexer        string         `json:"indexer,omitempty"`
	Kind           ProbeKind      `json:"kind"`
	Outcome        Outcome        `json:"outcome"`
	Synced         bool           `json:"synced"`
	Health         Health         `json:"health,omitempty"`
	EntityCount    *uint64        `json:"entity_count,omitempty"`
	Paused         *bool          `json:"paused,omitempty"`
	Node           string         `json:"node,omitempty"`
	Chain          *ChainProgress `json:"chain,omitempty"`
	SyncPercentage Percentage     `json:"sync_percentage"`
	FatalError     *StatusError   `json:"fatal_error,omitempty"`
	NonFatalErrors []StatusError  `json:"non_fatal_errors,omitempty"`
	FailureKind    FailureKind    `json:"failure_kind,omitempty"`
	Cause          string         `json:"cause,omitempty"`
}

func (s SourceStatus) Succeeded() bool {
	return s.Outcome == OutcomeSuccess
}

// NewFailureStatus records a failed probe of src.
func NewFailureStatus(src SourceDescriptor, err error) SourceStatus {
	cause := "unknown error"
	if err != nil {
		cause = Describe(err)
	}
	return SourceStatus{
		Source:         src.Address,
		Kind:           src.Kind,
		Outcome:        OutcomeFailure,
		Health:         HealthUnknown,
		SyncPercentage: NotApplicable,
		FailureKind:    FailureKindOf(err),
		Cause:          cause,
	}
}
