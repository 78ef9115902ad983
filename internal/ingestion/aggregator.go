package ingestion

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dex-swaps-lab/internal/domain"
	"dex-swaps-lab/internal/logging"
	"dex-swaps-lab/internal/observability"
	"dex-swaps-lab/internal/subgraph"
)

// DefaultWorkers caps concurrent per-source fetches.
const DefaultWorkers = 4

// Aggregator fans a swap query out to every resolved source and combines
// the per-source tables.
type Aggregator struct {
	fetcher SwapFetcher
	workers int
	timeout time.Duration // per-source fetch timeout, 0 = none
	logger  *zap.Logger
	metrics *observability.Metrics
}

// AggregatorOptions contains configuration for creating an Aggregator.
type AggregatorOptions struct {
	Fetcher SwapFetcher // default NewFetcher(subgraph.DefaultRowLimit)
	Workers int         // default DefaultWorkers
	Timeout time.Duration
	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// NewAggregator creates a new fan-out aggregator.
func NewAggregator(opts AggregatorOptions) *Aggregator {
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = NewFetcher(subgraph.DefaultRowLimit)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	return &Aggregator{
		fetcher: fetcher,
		workers: workers,
		timeout: opts.Timeout,
		logger:  logging.OrNop(opts.Logger),
		metrics: opts.Metrics,
	}
}

// WithLogger returns a copy of a that logs to logger.
func (a *Aggregator) WithLogger(logger *zap.Logger) *Aggregator {
	c := *a
	c.logger = logging.OrNop(logger)
	return &c
}

// fetchResult is the outcome of one per-source task. The source id is bound at
// submission so results can be attributed in completion order.
type fetchResult struct {
	source  domain.SourceID
	table   *domain.RawTable
	err     error
	elapsed time.Duration
}

// FetchAll queries every handle and concatenates the non-empty results.
// See FetchAllWithProgress.
func (a *Aggregator) FetchAll(ctx context.Context, handles map[domain.SourceID]*subgraph.Schema, filter domain.SwapFilter, mode domain.ConcurrencyMode) *domain.RawTable {
	return a.FetchAllWithProgress(ctx, handles, filter, mode, nil)
}

// FetchAllWithProgress queries every handle with at most the configured number of
// fetches in flight (one in Sequential mode). A failing source contributes no
// rows and does not fail the call. Rows keep their per-source order; sources are
// combined in completion order. The result always carries the full raw schema,
// even when every source failed or returned nothing.
func (a *Aggregator) FetchAllWithProgress(
	ctx context.Context,
	handles map[domain.SourceID]*subgraph.Schema,
	filter domain.SwapFilter,
	mode domain.ConcurrencyMode,
	progress ProgressFunc,
) *domain.RawTable {
	combined := domain.NewRawTable()
	if len(handles) == 0 {
		return combined
	}

	limit := a.workers
	if mode == domain.Sequential {
		limit = 1
	}

	// Submit in a stable order so sequential runs are reproducible.
	ids := make([]string, 0, len(handles))
	for id := range handles {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	results := make(chan fetchResult, len(ids))
	go func() {
		var g errgroup.Group
		g.SetLimit(limit)
		for _, id := range ids {
			source := domain.SourceID(id)
			schema := handles[source]
			g.Go(func() error {
				results <- a.fetchOne(ctx, source, schema, filter)
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	var failed, empty int
	for res := range results {
		rows := res.table.Len()
		a.metrics.RecordFetch(res.source.String(), rows, res.elapsed, res.err)
		if progress != nil {
			progress(SourceOutcome{Source: res.source, Rows: rows, Err: res.err, Elapsed: res.elapsed})
		}

		if res.err != nil {
			failed++
			a.logger.Warn("failed to fetch swaps",
				zap.String("source", res.source.String()),
				zap.Duration("elapsed", res.elapsed),
				zap.Error(res.err),
			)
			continue
		}
		if rows == 0 {
			empty++
			continue
		}

		res.table.TagProject(res.source)
		combined.Rows = append(combined.Rows, res.table.Rows...)
		a.logger.Debug("fetched swaps",
			zap.String("source", res.source.String()),
			zap.Int("rows", rows),
			zap.Duration("elapsed", res.elapsed),
		)
	}

	a.logger.Info("fan-out complete",
		zap.Int("sources", len(ids)),
		zap.Int("failed", failed),
		zap.Int("empty", empty),
		zap.Int("rows", combined.Len()),
	)

	return combined
}

func (a *Aggregator) fetchOne(ctx context.Context, source domain.SourceID, schema *subgraph.Schema, filter domain.SwapFilter) (res fetchResult) {
	res.source = source
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res.table = nil
			res.err = fmt.Errorf("panic fetching %s: %v", source, r)
		}
		res.elapsed = time.Since(start)
	}()

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	res.table, res.err = a.fetcher.Fetch(ctx, schema, filter)
	if res.err != nil {
		res.table = nil
	}
	return res
}
