package archive

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"dex-swaps-lab/internal/logging"
	"dex-swaps-lab/internal/observability"
	"dex-swaps-lab/internal/storage"
	chstore "dex-swaps-lab/internal/storage/clickhouse"
	"dex-swaps-lab/internal/storage/migrations"
	pgstore "dex-swaps-lab/internal/storage/postgres"
)

// Store names used as metric and log labels.
const (
	StorePostgres   = "postgres"
	StoreClickHouse = "clickhouse"
)

// Open connects to every store whose DSN is non-empty, applies its migrations
// and returns an Archiver over them with a cleanup func closing the
// connections. With both DSNs empty the Archiver is disabled.
func Open(ctx context.Context, postgresDSN, clickhouseDSN string, logger *zap.Logger, metrics *observability.Metrics) (*Archiver, func(), error) {
	logger = logging.OrNop(logger)
	stores := make(map[string]storage.SwapStore, 2)
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		stores[StorePostgres] = pgstore.NewSwapStore(pool)
	}

	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		closers = append(closers, func() { _ = conn.Close() })
		stores[StoreClickHouse] = chstore.NewSwapStore(conn)
	}

	a := New(Options{Stores: stores, Logger: logger, Metrics: metrics})
	if a.Enabled() {
		logger.Info("archive enabled", zap.Strings("stores", a.Stores()))
	}
	return a, cleanup, nil
}
