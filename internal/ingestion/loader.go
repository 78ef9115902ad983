package ingestion

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dex-swaps-lab/internal/domain"
	"dex-swaps-lab/internal/logging"
	"dex-swaps-lab/internal/observability"
	"dex-swaps-lab/internal/subgraph"
)

// Loader resolves the schema of every registry source.
type Loader struct {
	httpClient *http.Client
	timeout    time.Duration // per-source resolution timeout, 0 = none
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// LoaderOptions contains configuration for creating a Loader.
type LoaderOptions struct {
	HTTPClient *http.Client // shared by every source client; default subgraph.NewHTTPClient
	Timeout    time.Duration
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewLoader creates a new source loader.
func NewLoader(opts LoaderOptions) *Loader {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = subgraph.NewHTTPClient(0)
	}

	return &Loader{
		httpClient: httpClient,
		timeout:    opts.Timeout,
		logger:     logging.OrNop(opts.Logger),
		metrics:    opts.Metrics,
	}
}

// LoadAll resolves every source and returns the handles of those that loaded.
// A source that fails is logged and left out; LoadAll itself never fails.
// Parallel mode starts one resolution per source at once, since it is one-shot setup.
func (l *Loader) LoadAll(ctx context.Context, sources []domain.SourceDescriptor, mode domain.ConcurrencyMode) map[domain.SourceID]*subgraph.Schema {
	sources = uniqueSources(sources)
	started := time.Now()

	var (
		mu      sync.Mutex
		handles = make(map[domain.SourceID]*subgraph.Schema, len(sources))
	)
	record := func(src domain.SourceDescriptor) {
		schema, err := l.load(ctx, src)
		if err != nil {
			l.logger.Warn("failed to load source",
				zap.String("source", src.ID.String()),
				zap.String("endpoint", src.Endpoint),
				zap.Error(err),
			)
			return
		}
		mu.Lock()
		handles[src.ID] = schema
		mu.Unlock()
	}

	if mode == domain.Sequential {
		for _, src := range sources {
			record(src)
		}
	} else {
		var g errgroup.Group
		for _, src := range sources {
			src := src
			g.Go(func() error {
				record(src)
				return nil
			})
		}
		_ = g.Wait()
	}

	l.metrics.RecordSourcesLoaded(len(handles))
	l.logger.Info("sources loaded",
		zap.Int("loaded", len(handles)),
		zap.Int("failed", len(sources)-len(handles)),
		zap.Stringer("mode", mode),
		zap.Duration("elapsed", time.Since(started)),
	)

	return handles
}

func (l *Loader) load(ctx context.Context, src domain.SourceDescriptor) (*subgraph.Schema, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	client := subgraph.NewClient(src.Endpoint, subgraph.WithHTTPClient(l.httpClient))
	schema, err := subgraph.Resolve(ctx, src, client)
	l.metrics.RecordLoad(src.ID.String(), time.Since(start), err)
	return schema, err
}

// uniqueSources drops repeated ids, keeping the first descriptor of each.
func uniqueSources(sources []domain.SourceDescriptor) []domain.SourceDescriptor {
	seen := make(map[domain.SourceID]struct{}, len(sources))
	out := make([]domain.SourceDescriptor, 0, len(sources))
	for _, s := range sources {
		if _, ok := seen[s.ID]; ok {
			continue
		}
		seen[s.ID] = struct{}{}
		out = append(out, s)
	}
	return out
}
