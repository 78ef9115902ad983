package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dex-swaps-lab/internal/domain"
	"dex-swaps-lab/internal/observability"
	"dex-swaps-lab/internal/subgraph"
)

// fakeFetcher returns canned tables per source and tracks concurrency.
type fakeFetcher struct {
	tables map[domain.SourceID][]domain.RawSwap
	errs   map[domain.SourceID]error
	panics map[domain.SourceID]bool
	delay  time.Duration

	inFlight    int32
	maxInFlight int32

	mu    sync.Mutex
	order []domain.SourceID
}

func (f *fakeFetcher) Fetch(ctx context.Context, schema *subgraph.Schema, _ domain.SwapFilter) (*domain.RawTable, error) {
	id := schema.Source.ID

	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if n <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, n) {
			break
		}
	}

	f.mu.Lock()
	f.order = append(f.order, id)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if f.panics[id] {
		panic("decoder exploded")
	}
	if err := f.errs[id]; err != nil {
		return nil, err
	}

	rows := append([]domain.RawSwap(nil), f.tables[id]...)
	return &domain.RawTable{Columns: sourceColumns(), Rows: rows}, nil
}

func handlesFor(ids ...domain.SourceID) map[domain.SourceID]*subgraph.Schema {
	out := make(map[domain.SourceID]*subgraph.Schema, len(ids))
	for _, id := range ids {
		out[id] = &subgraph.Schema{Source: domain.SourceDescriptor{ID: id}}
	}
	return out
}

func rawRows(n int, prefix string) []domain.RawSwap {
	rows := make([]domain.RawSwap, n)
	for i := range rows {
		rows[i] = domain.RawSwap{
			Timestamp: int64(1700000000 - i),
			To:        "0xwallet",
			Hash:      fmt.Sprintf("%s-%d", prefix, i),
			LogIndex:  int64(i),
		}
	}
	return rows
}

func TestAggregator_FetchAll_SumsAndTagsRows(t *testing.T) {
	fetcher := &fakeFetcher{tables: map[domain.SourceID][]domain.RawSwap{
		"sushiswap-ethereum":  rawRows(3, "sushi"),
		"uniswap-v3-ethereum": rawRows(5, "uni"),
		"quickswap-polygon":   rawRows(1, "quick"),
	}}
	agg := NewAggregator(AggregatorOptions{Fetcher: fetcher})

	handles := handlesFor("sushiswap-ethereum", "uniswap-v3-ethereum", "quickswap-polygon")
	table := agg.FetchAll(context.Background(), handles, domain.NewSwapFilter([]string{"0xwallet"}), domain.Parallel)

	require.Equal(t, 9, table.Len())
	assert.Equal(t, domain.RawColumns, table.Columns)

	counts := make(map[domain.SourceID]int)
	for _, row := range table.Rows {
		counts[row.Project]++
		switch row.Project {
		case "sushiswap-ethereum":
			assert.Contains(t, row.Hash, "sushi-")
		case "uniswap-v3-ethereum":
			assert.Contains(t, row.Hash, "uni-")
		case "quickswap-polygon":
			assert.Contains(t, row.Hash, "quick-")
		default:
			t.Errorf("unexpected project %q", row.Project)
		}
	}
	assert.Equal(t, 3, counts["sushiswap-ethereum"])
	assert.Equal(t, 5, counts["uniswap-v3-ethereum"])
	assert.Equal(t, 1, counts["quickswap-polygon"])
}

func TestAggregator_FetchAll_PreservesPerSourceOrder(t *testing.T) {
	fetcher := &fakeFetcher{tables: map[domain.SourceID][]domain.RawSwap{
		"a": rawRows(4, "a"),
		"b": rawRows(4, "b"),
	}}
	agg := NewAggregator(AggregatorOptions{Fetcher: fetcher, Workers: 2})

	table := agg.FetchAll(context.Background(), handlesFor("a", "b"), domain.SwapFilter{}, domain.Parallel)

	last := map[domain.SourceID]int64{}
	for _, row := range table.Rows {
		if prev, ok := last[row.Project]; ok {
			assert.Less(t, row.Timestamp, prev, "rows of %s out of order", row.Project)
		}
		last[row.Project] = row.Timestamp
	}
}

func TestAggregator_FetchAll_PartialFailure(t *testing.T) {
	// X returns 3 rows, Y returns none, Z fails entirely.
	fetcher := &fakeFetcher{
		tables: map[domain.SourceID][]domain.RawSwap{"X": rawRows(3, "x"), "Y": nil},
		errs:   map[domain.SourceID]error{"Z": errors.New("connection refused")},
	}
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("test", reg)
	agg := NewAggregator(AggregatorOptions{Fetcher: fetcher, Metrics: metrics})

	table := agg.FetchAll(context.Background(), handlesFor("X", "Y", "Z"), domain.SwapFilter{}, domain.Parallel)

	require.Equal(t, 3, table.Len())
	for _, row := range table.Rows {
		assert.Equal(t, domain.SourceID("X"), row.Project)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SourceFetches.WithLabelValues("Z", observability.StatusError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SourceFetches.WithLabelValues("Y", observability.StatusEmpty)))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.SourceRowsFetched.WithLabelValues("X")))
}

func TestAggregator_FetchAll_TotalOutage(t *testing.T) {
	fetcher := &fakeFetcher{errs: map[domain.SourceID]error{
		"a": errors.New("down"),
		"b": errors.New("down"),
	}}
	agg := NewAggregator(AggregatorOptions{Fetcher: fetcher})

	table := agg.FetchAll(context.Background(), handlesFor("a", "b"), domain.SwapFilter{}, domain.Parallel)

	require.NotNil(t, table)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, domain.RawColumns, table.Columns)
}

func TestAggregator_FetchAll_NoHandles(t *testing.T) {
	agg := NewAggregator(AggregatorOptions{Fetcher: &fakeFetcher{}})

	table := agg.FetchAll(context.Background(), nil, domain.SwapFilter{}, domain.Parallel)

	assert.Equal(t, 0, table.Len())
	assert.Equal(t, domain.RawColumns, table.Columns)
}

func TestAggregator_FetchAll_BoundedWorkers(t *testing.T) {
	ids := make([]domain.SourceID, 12)
	tables := make(map[domain.SourceID][]domain.RawSwap)
	for i := range ids {
		ids[i] = domain.SourceID(fmt.Sprintf("dex-%02d", i))
		tables[ids[i]] = rawRows(1, string(ids[i]))
	}
	fetcher := &fakeFetcher{tables: tables, delay: 20 * time.Millisecond}
	agg := NewAggregator(AggregatorOptions{Fetcher: fetcher, Workers: 3})

	table := agg.FetchAll(context.Background(), handlesFor(ids...), domain.SwapFilter{}, domain.Parallel)

	assert.Equal(t, 12, table.Len())
	assert.LessOrEqual(t, atomic.LoadInt32(&fetcher.maxInFlight), int32(3))
	assert.Greater(t, atomic.LoadInt32(&fetcher.maxInFlight), int32(1))
}

func TestAggregator_FetchAll_Sequential(t *testing.T) {
	fetcher := &fakeFetcher{
		tables: map[domain.SourceID][]domain.RawSwap{"c": rawRows(1, "c"), "a": rawRows(2, "a")},
		errs:   map[domain.SourceID]error{"b": errors.New("down")},
		delay:  5 * time.Millisecond,
	}
	agg := NewAggregator(AggregatorOptions{Fetcher: fetcher, Workers: 8})

	table := agg.FetchAll(context.Background(), handlesFor("a", "b", "c"), domain.SwapFilter{}, domain.Sequential)

	assert.Equal(t, 3, table.Len())
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.maxInFlight))
	assert.Equal(t, []domain.SourceID{"a", "b", "c"}, fetcher.order)
	assert.Equal(t, domain.SourceID("a"), table.Rows[0].Project)
	assert.Equal(t, domain.SourceID("c"), table.Rows[2].Project)
}

func TestAggregator_FetchAll_Timeout(t *testing.T) {
	fetcher := &fakeFetcher{
		tables: map[domain.SourceID][]domain.RawSwap{"slow": rawRows(1, "slow")},
		delay:  time.Second,
	}
	agg := NewAggregator(AggregatorOptions{Fetcher: fetcher, Timeout: 20 * time.Millisecond})

	var outcomes []SourceOutcome
	table := agg.FetchAllWithProgress(context.Background(), handlesFor("slow"), domain.SwapFilter{}, domain.Parallel,
		func(o SourceOutcome) { outcomes = append(outcomes, o) })

	assert.Equal(t, 0, table.Len())
	require.Len(t, outcomes, 1)
	assert.True(t, errors.Is(outcomes[0].Err, context.DeadlineExceeded))
}

func TestAggregator_FetchAll_RecoversPanics(t *testing.T) {
	fetcher := &fakeFetcher{
		tables: map[domain.SourceID][]domain.RawSwap{"ok": rawRows(2, "ok")},
		panics: map[domain.SourceID]bool{"bad": true},
	}
	agg := NewAggregator(AggregatorOptions{Fetcher: fetcher})

	var outcomes []SourceOutcome
	table := agg.FetchAllWithProgress(context.Background(), handlesFor("ok", "bad"), domain.SwapFilter{}, domain.Parallel,
		func(o SourceOutcome) { outcomes = append(outcomes, o) })

	assert.Equal(t, 2, table.Len())
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		if o.Source == "bad" {
			require.Error(t, o.Err)
			assert.Contains(t, o.Err.Error(), "panic fetching bad")
		} else {
			assert.NoError(t, o.Err)
			assert.Equal(t, 2, o.Rows)
		}
	}
}

func TestNewAggregator_Defaults(t *testing.T) {
	agg := NewAggregator(AggregatorOptions{})

	assert.Equal(t, DefaultWorkers, agg.workers)
	assert.IsType(t, &Fetcher{}, agg.fetcher)
	assert.NotNil(t, agg.WithLogger(nil).logger)
}
