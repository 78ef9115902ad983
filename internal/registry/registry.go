// Package registry enumerates the known swap subgraphs.
package registry

import (
	"fmt"
	"strings"

	"dex-swaps-lab/internal/domain"
)

// DefaultEndpointTemplate is the hosted-service URL of the Messari DEX subgraphs.
// "{id}" is replaced by the source identifier.
const DefaultEndpointTemplate = "https://api.thegraph.com/subgraphs/name/messari/{id}"

// placeholder marks where the source id goes in an endpoint template.
const placeholder = "{id}"

// ids lists every known source in registry order.
var ids = []domain.SourceID{
	"apeswap-bsc", "apeswap-polygon",
	"balancer-v2-arbitrum", "balancer-v2-ethereum",
	"balancer-v2-polygon", "bancor-v3-ethereum",
	"beethoven-x-fantom",
	"beethoven-x-optimism", "curve-finance-arbitrum",
	"curve-finance-avalanche", "curve-finance-fantom",
	"curve-finance-gnosis", "curve-finance-ethereum",
	"curve-finance-polygon", "curve-finance-optimism",
	"honeyswap-gnosis", "platypus-avalanche",
	"quickswap-polygon", "saddle-finance-arbitrum",
	"saddle-finance-fantom", "saddle-finance-ethereum",
	"saddle-finance-optimism", "solarbeam-moonriver",
	"spiritswap-fantom", "spookyswap-fantom",
	"sushiswap-arbitrum", "sushiswap-avalanche",
	"sushiswap-bsc", "sushiswap-celo",
	"sushiswap-fantom", "sushiswap-fuse",
	"sushiswap-gnosis", "sushiswap-ethereum",
	"sushiswap-polygon", "sushiswap-moonriver",
	"sushiswap-moonbeam", "trader-joe-avalanche",
	"ubeswap-celo", "uniswap-v2-ethereum",
	"uniswap-v3-arbitrum", "uniswap-v3-ethereum",
	"uniswap-v3-polygon", "uniswap-v3-optimism",
}

// IDs returns a copy of all source identifiers in registry order.
func IDs() []domain.SourceID {
	return append([]domain.SourceID(nil), ids...)
}

// Sources returns descriptors for every source using DefaultEndpointTemplate.
func Sources() []domain.SourceDescriptor {
	return WithTemplate(DefaultEndpointTemplate)
}

// WithTemplate returns descriptors for every source rendered from template.
// An empty template falls back to DefaultEndpointTemplate.
func WithTemplate(template string) []domain.SourceDescriptor {
	out := make([]domain.SourceDescriptor, 0, len(ids))
	for _, id := range ids {
		out = append(out, Describe(template, id))
	}
	return out
}

// Describe renders the descriptor of a single source id.
func Describe(template string, id domain.SourceID) domain.SourceDescriptor {
	if template == "" {
		template = DefaultEndpointTemplate
	}
	return domain.SourceDescriptor{
		ID:       id,
		Endpoint: strings.ReplaceAll(template, placeholder, string(id)),
	}
}

// Select returns descriptors for the given ids, preserving their order.
// Unknown ids are rejected so a typo on the command line is not silently ignored.
func Select(template string, selected []string) ([]domain.SourceDescriptor, error) {
	out := make([]domain.SourceDescriptor, 0, len(selected))
	for _, s := range selected {
		id := domain.SourceID(strings.TrimSpace(s))
		if id == "" {
			continue
		}
		d, err := Lookup(template, id)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Lookup returns the descriptor of a registered id.
func Lookup(template string, id domain.SourceID) (domain.SourceDescriptor, error) {
	if !Known(id) {
		return domain.SourceDescriptor{}, fmt.Errorf("unknown source %q", id)
	}
	return Describe(template, id), nil
}

// Known reports whether id is in the registry.
func Known(id domain.SourceID) bool {
	for _, known := range ids {
		if known == id {
			return true
		}
	}
	return false
}
