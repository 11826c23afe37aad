package types

import (
	"math/big"
	"strings"

	"github.com/dustin/go-humanize"
)

type ProbeKind string

const (
	ProbeDirect       ProbeKind = "direct"
	ProbeConsolidated ProbeKind = "consolidated"
)

func (k ProbeKind) Valid() bool {
	return k == ProbeDirect || k == ProbeConsolidated
}

// SourceDescriptor names one candidate data source of a deployment and the
// probe protocol it speaks.
type SourceDescriptor struct {
	Address string    `json:"address"`
	Kind    ProbeKind `json:"kind"`
}

type IndexerRef struct {
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
}

// Deployment is one published version of a tracked subgraph. It is not
// modified while an aggregation pass runs over it.
type Deployment struct {
	// Index is the position in the listing across all accounts.
	Index           int                `json:"index"`
	ID              string             `json:"ipfs_hash"`
	SubgraphID      string             `json:"subgraph_id"`
	SignalledTokens string             `json:"signalled_tokens"`
	CreatedAt       int64              `json:"created_at"`
	Latest          bool               `json:"is_latest"`
	Indexers        []IndexerRef       `json:"indexers"`
	StartBlock      uint64             `json:"start_block"`
	Sources         []SourceDescriptor `json:"sources"`
}

// WithStartBlock returns a copy of d using the given start block.
func (d Deployment) WithStartBlock(start uint64) Deployment {
	d.StartBlock = start
	return d
}

// Signal parses the signalled tokens (wei) without losing precision.
func (d Deployment) Signal() (*big.Int, bool) {
	s := strings.TrimSpace(d.SignalledTokens)
	if s == "" {
		return new(big.Int), true
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}

func (d Deployment) HasSignal() bool {
	v, ok := d.Signal()
	return ok && v.Sign() > 0
}

var weiPerToken = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// SignalGRT formats the signal as whole tokens with two decimals and
// thousands separators, truncating below a cent.
func (d Deployment) SignalGRT() string {
	return FormatTokens(d.SignalledTokens)
}

// FormatTokens formats a wei amount given as a decimal string. Zero and
// unparseable amounts render as "0".
func FormatTokens(wei string) string {
	v, ok := new(big.Int).SetString(strings.TrimSpace(wei), 10)
	if !ok || v.Sign() <= 0 {
		return "0"
	}

	cents := new(big.Int).Mul(v, big.NewInt(100))
	cents.Quo(cents, weiPerToken)
	whole, frac := new(big.Int).QuoRem(cents, big.NewInt(100), new(big.Int))

	var b strings.Builder
	b.WriteString(humanize.BigComma(whole))
	b.WriteByte('.')
	if frac.Int64() < 10 {
		b.WriteByte('0')
	}
	b.WriteString(frac.String())
	return b.String()
}
