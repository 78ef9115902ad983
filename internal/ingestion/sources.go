package ingestion

import (
	"context"
	"time"

	"dex-swaps-lab/internal/domain"
	"dex-swaps-lab/internal/subgraph"
)

// SwapFetcher fetches raw swaps from one resolved source.
type SwapFetcher interface {
	// Fetch returns the swaps matching filter, newest first, with source-native
	// column names. Errors are returned to the caller, never swallowed.
	Fetch(ctx context.Context, schema *subgraph.Schema, filter domain.SwapFilter) (*domain.RawTable, error)
}

// SourceOutcome reports how one source fared during a FetchAll call.
type SourceOutcome struct {
	Source  domain.SourceID
	Rows    int
	Err     error
	Elapsed time.Duration
}

// ProgressFunc observes per-source outcomes in completion order.
// It is called from the goroutine running FetchAll, never concurrently.
type ProgressFunc func(SourceOutcome)
