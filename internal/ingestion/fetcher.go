package ingestion

import (
	"context"
	"errors"

	"dex-swaps-lab/internal/domain"
	"dex-swaps-lab/internal/subgraph"
)

// Fetcher implements SwapFetcher against a subgraph schema handle.
type Fetcher struct {
	rowLimit int
}

// NewFetcher creates a fetcher capped at rowLimit swaps per source.
// Non-positive rowLimit uses subgraph.DefaultRowLimit.
func NewFetcher(rowLimit int) *Fetcher {
	if rowLimit <= 0 {
		rowLimit = subgraph.DefaultRowLimit
	}
	return &Fetcher{rowLimit: rowLimit}
}

// Compile-time interface check.
var _ SwapFetcher = (*Fetcher)(nil)

// Fetch queries the most recent swaps received by the filter recipients.
func (f *Fetcher) Fetch(ctx context.Context, schema *subgraph.Schema, filter domain.SwapFilter) (*domain.RawTable, error) {
	if schema == nil {
		return nil, errors.New("nil schema")
	}

	rows, err := schema.QuerySwaps(ctx, filter, f.rowLimit)
	if err != nil {
		return nil, err
	}

	return &domain.RawTable{
		Columns: sourceColumns(),
		Rows:    rows,
	}, nil
}

// sourceColumns is the raw schema minus the project column the aggregator appends.
func sourceColumns() []string {
	cols := make([]string, 0, len(domain.RawColumns))
	for _, c := range domain.RawColumns {
		if c != domain.ColProject {
			cols = append(cols, c)
		}
	}
	return cols
}
