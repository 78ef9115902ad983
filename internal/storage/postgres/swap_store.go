package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"dex-swaps-lab/internal/domain"
	"dex-swaps-lab/internal/storage"
)

// SwapStore implements storage.SwapStore using PostgreSQL.
type SwapStore struct {
	pool *Pool
}

// NewSwapStore creates a new SwapStore.
func NewSwapStore(pool *Pool) *SwapStore {
	return &SwapStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SwapStore = (*SwapStore)(nil)

const insertSwapQuery = `
	INSERT INTO swaps (
		dex, tx_hash, log_index, swapper, swap_datetime,
		token_address_in, token_symbol_in, amount_in, amount_in_usd, token_in_approx_price_usd,
		token_address_out, token_symbol_out, amount_out, amount_out_usd, token_out_approx_price_usd,
		conversion_rate_in_to_out, pool_address, pool_name
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	ON CONFLICT (dex, tx_hash, log_index) DO NOTHING
`

const selectSwapColumns = `
	SELECT dex, tx_hash, log_index, swapper, swap_datetime,
		token_address_in, token_symbol_in, amount_in, amount_in_usd, token_in_approx_price_usd,
		token_address_out, token_symbol_out, amount_out, amount_out_usd, token_out_approx_price_usd,
		conversion_rate_in_to_out, pool_address, pool_name
	FROM swaps
`

// InsertBulk archives swaps in one transaction. Existing keys are skipped by
// ON CONFLICT, so the returned count only includes new rows.
func (s *SwapStore) InsertBulk(ctx context.Context, swaps []*domain.Swap) (int, error) {
	for _, swap := range swaps {
		if err := storage.ValidateSwap(swap); err != nil {
			return 0, err
		}
	}
	if len(swaps) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, swap := range swaps {
		batch.Queue(insertSwapQuery,
			swap.Dex.String(),
			swap.TxHash,
			swap.LogIndex,
			swap.Swapper,
			swap.SwapDatetime.UTC(),
			swap.TokenAddressIn,
			swap.TokenSymbolIn,
			swap.AmountIn,
			swap.AmountInUSD,
			swap.TokenInApproxPriceUSD,
			swap.TokenAddressOut,
			swap.TokenSymbolOut,
			swap.AmountOut,
			swap.AmountOutUSD,
			swap.TokenOutApproxPriceUSD,
			swap.ConversionRateInToOut,
			swap.PoolAddress,
			swap.PoolName,
		)
	}

	results := tx.SendBatch(ctx, batch)
	inserted := 0
	for i := 0; i < batch.Len(); i++ {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return 0, fmt.Errorf("insert swap %d in bulk: %w", i, err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return inserted, nil
}

// Get retrieves one swap by key. Returns ErrNotFound if not stored.
func (s *SwapStore) Get(ctx context.Context, dex domain.SourceID, txHash string, logIndex int64) (*domain.Swap, error) {
	query := selectSwapColumns + `WHERE dex = $1 AND tx_hash = $2 AND log_index = $3`

	swap, err := scanSwap(s.pool.QueryRow(ctx, query, dex.String(), txHash, logIndex))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get swap: %w", err)
	}
	return swap, nil
}

// GetBySwapper retrieves all swaps received by swapper, newest first.
func (s *SwapStore) GetBySwapper(ctx context.Context, swapper string) ([]*domain.Swap, error) {
	swapper = strings.ToLower(strings.TrimSpace(swapper))
	if swapper == "" {
		return nil, storage.ErrInvalidInput
	}

	query := selectSwapColumns + `
		WHERE swapper = $1
		ORDER BY swap_datetime DESC, dex ASC, tx_hash ASC, log_index ASC
	`

	rows, err := s.pool.Query(ctx, query, swapper)
	if err != nil {
		return nil, fmt.Errorf("get swaps by swapper: %w", err)
	}
	defer rows.Close()

	var swaps []*domain.Swap
	for rows.Next() {
		swap, err := scanSwap(rows)
		if err != nil {
			return nil, fmt.Errorf("scan swap row: %w", err)
		}
		swaps = append(swaps, swap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swap rows: %w", err)
	}

	return swaps, nil
}

// scanSwap scans one row in selectSwapColumns order.
func scanSwap(row pgx.Row) (*domain.Swap, error) {
	var swap domain.Swap
	var dex string

	err := row.Scan(
		&dex,
		&swap.TxHash,
		&swap.LogIndex,
		&swap.Swapper,
		&swap.SwapDatetime,
		&swap.TokenAddressIn,
		&swap.TokenSymbolIn,
		&swap.AmountIn,
		&swap.AmountInUSD,
		&swap.TokenInApproxPriceUSD,
		&swap.TokenAddressOut,
		&swap.TokenSymbolOut,
		&swap.AmountOut,
		&swap.AmountOutUSD,
		&swap.TokenOutApproxPriceUSD,
		&swap.ConversionRateInToOut,
		&swap.PoolAddress,
		&swap.PoolName,
	)
	if err != nil {
		return nil, err
	}

	swap.Dex = domain.SourceID(dex)
	swap.SwapDatetime = swap.SwapDatetime.UTC()
	return &swap, nil
}
