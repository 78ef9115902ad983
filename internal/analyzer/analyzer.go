// Package analyzer exposes GetSwaps: fetch the swaps of a wallet set from every
// loaded subgraph and return them as one canonical table.
package analyzer

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dex-swaps-lab/internal/domain"
	"dex-swaps-lab/internal/ingestion"
	"dex-swaps-lab/internal/logging"
	"dex-swaps-lab/internal/normalization"
	"dex-swaps-lab/internal/observability"
	"dex-swaps-lab/internal/registry"
	"dex-swaps-lab/internal/subgraph"
)

// ErrEmptyFilter is returned when no usable wallet address was supplied.
var ErrEmptyFilter = errors.New("empty filter: at least one wallet address is required")

// Options contains configuration for creating an Analyzer.
type Options struct {
	Sources    []domain.SourceDescriptor // default registry.Sources()
	Loader     *ingestion.Loader         // default built from the fields below
	Aggregator *ingestion.Aggregator     // default built from the fields below

	LoadMode  domain.ConcurrencyMode
	FetchMode domain.ConcurrencyMode

	Workers      int
	RowLimit     int
	FetchTimeout time.Duration
	LoadTimeout  time.Duration
	HTTPTimeout  time.Duration

	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// Analyzer is the long-lived context object behind GetSwaps. It resolves source
// schemas once at construction; the handle map is read-only afterwards, so
// concurrent GetSwaps calls are safe and do not share per-call state.
type Analyzer struct {
	handles    map[domain.SourceID]*subgraph.Schema
	aggregator *ingestion.Aggregator
	fetchMode  domain.ConcurrencyMode
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// New loads every source and returns a ready Analyzer. Sources that fail to
// load are skipped; New only fails if ctx is already done.
func New(ctx context.Context, opts Options) (*Analyzer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := logging.OrNop(opts.Logger)

	sources := opts.Sources
	if sources == nil {
		sources = registry.Sources()
	}

	httpClient := subgraph.NewHTTPClient(opts.HTTPTimeout)

	loader := opts.Loader
	if loader == nil {
		loader = ingestion.NewLoader(ingestion.LoaderOptions{
			HTTPClient: httpClient,
			Timeout:    opts.LoadTimeout,
			Logger:     logger,
			Metrics:    opts.Metrics,
		})
	}

	aggregator := opts.Aggregator
	if aggregator == nil {
		aggregator = ingestion.NewAggregator(ingestion.AggregatorOptions{
			Fetcher: ingestion.NewFetcher(opts.RowLimit),
			Workers: opts.Workers,
			Timeout: opts.FetchTimeout,
			Logger:  logger,
			Metrics: opts.Metrics,
		})
	}

	handles := loader.LoadAll(ctx, sources, opts.LoadMode)

	return &Analyzer{
		handles:    handles,
		aggregator: aggregator,
		fetchMode:  opts.FetchMode,
		logger:     logger,
		metrics:    opts.Metrics,
	}, nil
}

// NewWithHandles builds an Analyzer over already resolved handles.
func NewWithHandles(handles map[domain.SourceID]*subgraph.Schema, aggregator *ingestion.Aggregator, logger *zap.Logger) *Analyzer {
	if aggregator == nil {
		aggregator = ingestion.NewAggregator(ingestion.AggregatorOptions{Logger: logger})
	}
	copied := make(map[domain.SourceID]*subgraph.Schema, len(handles))
	for id, h := range handles {
		copied[id] = h
	}
	return &Analyzer{
		handles:    copied,
		aggregator: aggregator,
		logger:     logging.OrNop(logger),
	}
}

// Sources returns the ids of the loaded sources, sorted.
func (a *Analyzer) Sources() []domain.SourceID {
	ids := make([]domain.SourceID, 0, len(a.handles))
	for id := range a.handles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// GetSwaps returns the canonical swaps received by any of wallets across all
// loaded sources. Addresses are case-insensitive.
func (a *Analyzer) GetSwaps(ctx context.Context, wallets []string) (*domain.Table, error) {
	return a.GetSwapsWithProgress(ctx, wallets, nil)
}

// GetSwapsWithProgress is GetSwaps with a per-source progress observer.
func (a *Analyzer) GetSwapsWithProgress(ctx context.Context, wallets []string, progress ingestion.ProgressFunc) (*domain.Table, error) {
	start := time.Now()

	filter := domain.NewSwapFilter(wallets)
	if filter.IsEmpty() {
		a.metrics.RecordCall(0, time.Since(start), ErrEmptyFilter)
		return nil, ErrEmptyFilter
	}

	logger := a.logger.With(
		zap.String("call_id", uuid.NewString()),
		zap.Int("wallets", len(filter.Recipients)),
	)
	logger.Info("fetching swaps", zap.Int("sources", len(a.handles)))

	raw := a.aggregator.WithLogger(logger).FetchAllWithProgress(ctx, a.handles, filter, a.fetchMode, progress)
	table := normalization.Normalize(raw)

	elapsed := time.Since(start)
	a.metrics.RecordCall(table.Len(), elapsed, nil)
	logger.Info("swaps fetched", zap.Int("rows", table.Len()), zap.Duration("elapsed", elapsed))

	return table, nil
}
