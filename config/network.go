package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/syncwatch/syncwatch/types"
)

// NetworkConfig describes where the deployment listing and its side data
// (manifests, query volume) come from.
type NetworkConfig struct {
	SubgraphURL        string
	APIKey             string
	Accounts           []string
	IPFSURL            string
	QueryVolumeEnabled bool
	QueryVolumeURL     string
}

func (nc NetworkConfig) Validate() error {
	if len(nc.APIKey) == 0 {
		return types.NewValidationError("THEGRAPH_API_KEY", "required field is missing")
	}
	if err := validateHTTPURL("NETWORK_SUBGRAPH_URL", nc.SubgraphURL); err != nil {
		return err
	}
	if err := validateHTTPURL("IPFS_URL", nc.IPFSURL); err != nil {
		return err
	}
	if nc.QueryVolumeEnabled {
		if err := validateHTTPURL("QUERY_VOLUME_URL", nc.QueryVolumeURL); err != nil {
			return err
		}
	}
	return nil
}

// InvalidAccounts returns the configured accounts that are not 0x-prefixed
// hex addresses. They are still queried; the listing simply returns nothing
// for them.
func (nc NetworkConfig) InvalidAccounts() []string {
	var invalid []string
	for _, acc := range nc.Accounts {
		if !common.IsHexAddress(acc) || !strings.HasPrefix(acc, "0x") {
			invalid = append(invalid, acc)
		}
	}
	return invalid
}

// ParseAccounts splits a comma or whitespace separated account list,
// lowercasing and de-duplicating entries while keeping their order.
func ParseAccounts(raw ...string) []string {
	var (
		accounts []string
		seen     = make(map[string]struct{})
	)
	for _, r := range raw {
		for _, f := range strings.FieldsFunc(r, func(c rune) bool {
			return c == ',' || c == ' ' || c == '\t' || c == '\n'
		}) {
			acc := strings.ToLower(strings.TrimSpace(f))
			if acc == "" {
				continue
			}
			if _, ok := seen[acc]; ok {
				continue
			}
			seen[acc] = struct{}{}
			accounts = append(accounts, acc)
		}
	}
	return accounts
}

func validateHTTPURL(field, raw string) error {
	if len(raw) == 0 {
		return types.NewValidationError(field, "required field is missing")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return types.NewInvalidValueError(field, raw, fmt.Sprintf("invalid URL: %v", err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return types.NewInvalidValueError(field, raw, fmt.Sprintf("must use http or https scheme, got: %s", u.Scheme))
	}
	if u.Host == "" {
		return types.NewInvalidValueError(field, raw, "missing host")
	}
	return nil
}
