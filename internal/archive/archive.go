// Package archive writes GetSwaps results to the configured swap stores.
package archive

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"dex-swaps-lab/internal/domain"
	"dex-swaps-lab/internal/logging"
	"dex-swaps-lab/internal/observability"
	"dex-swaps-lab/internal/storage"
)

// Archiver writes canonical tables to every named store.
type Archiver struct {
	stores  map[string]storage.SwapStore
	names   []string
	logger  *zap.Logger
	metrics *observability.Metrics
}

// Options contains configuration for creating an Archiver.
type Options struct {
	Stores  map[string]storage.SwapStore // keyed by metric/log label, e.g. "postgres"
	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// New creates an Archiver. Nil stores are ignored.
func New(opts Options) *Archiver {
	a := &Archiver{
		stores:  make(map[string]storage.SwapStore, len(opts.Stores)),
		logger:  logging.OrNop(opts.Logger),
		metrics: opts.Metrics,
	}
	for name, store := range opts.Stores {
		if store == nil {
			continue
		}
		a.stores[name] = store
		a.names = append(a.names, name)
	}
	sort.Strings(a.names)
	return a
}

// Stores returns the configured store names, sorted.
func (a *Archiver) Stores() []string {
	return append([]string(nil), a.names...)
}

// Enabled reports whether any store is configured.
func (a *Archiver) Enabled() bool {
	return a != nil && len(a.names) > 0
}

// Archive writes table to every store. A failing store does not stop the
// others; the returned error joins every store failure. The result maps store
// name to newly inserted rows.
func (a *Archiver) Archive(ctx context.Context, table *domain.Table) (map[string]int, error) {
	inserted := make(map[string]int, len(a.names))
	rows := storage.Rows(table)
	if len(rows) == 0 || !a.Enabled() {
		return inserted, nil
	}

	var errs []error
	for _, name := range a.names {
		n, err := a.stores[name].InsertBulk(ctx, rows)
		a.metrics.RecordArchive(name, n, err)
		if err != nil {
			a.logger.Error("failed to archive swaps", zap.String("store", name), zap.Error(err))
			errs = append(errs, fmt.Errorf("archive to %s: %w", name, err))
			continue
		}
		inserted[name] = n
		a.logger.Info("archived swaps",
			zap.String("store", name),
			zap.Int("rows", len(rows)),
			zap.Int("inserted", n),
		)
	}

	return inserted, errors.Join(errs...)
}
