package clickhouse

import (
	"context"
	"fmt"
	"strings"

	"dex-swaps-lab/internal/domain"
	"dex-swaps-lab/internal/storage"
)

// SwapStore implements storage.SwapStore using ClickHouse.
type SwapStore struct {
	conn *Conn
}

// NewSwapStore creates a new SwapStore.
func NewSwapStore(conn *Conn) *SwapStore {
	return &SwapStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SwapStore = (*SwapStore)(nil)

const selectSwapColumns = `
	SELECT dex, tx_hash, log_index, swapper, swap_datetime,
		token_address_in, token_symbol_in, amount_in, amount_in_usd, token_in_approx_price_usd,
		token_address_out, token_symbol_out, amount_out, amount_out_usd, token_out_approx_price_usd,
		conversion_rate_in_to_out, pool_address, pool_name
	FROM swaps FINAL
`

type swapKey struct {
	dex      domain.SourceID
	txHash   string
	logIndex int64
}

// InsertBulk archives swaps whose key is not stored yet, in one batch.
// MergeTree does not enforce uniqueness, so stored keys are looked up in
// chunks before insert.
func (s *SwapStore) InsertBulk(ctx context.Context, swaps []*domain.Swap) (int, error) {
	for _, swap := range swaps {
		if err := storage.ValidateSwap(swap); err != nil {
			return 0, err
		}
	}

	seen := make(map[swapKey]struct{}, len(swaps))
	var keys []swapKey
	var unique []*domain.Swap
	for _, swap := range swaps {
		k := swapKey{swap.Dex, swap.TxHash, swap.LogIndex}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
		unique = append(unique, swap)
	}

	stored, err := s.existingKeys(ctx, keys)
	if err != nil {
		return 0, fmt.Errorf("check exists: %w", err)
	}
	var pending []*domain.Swap
	for i, swap := range unique {
		if _, ok := stored[keys[i]]; !ok {
			pending = append(pending, swap)
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO swaps (
			swapper, dex, tx_hash, log_index, swap_datetime,
			token_address_in, token_symbol_in, amount_in, amount_in_usd, token_in_approx_price_usd,
			token_address_out, token_symbol_out, amount_out, amount_out_usd, token_out_approx_price_usd,
			conversion_rate_in_to_out, pool_address, pool_name
		)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare batch: %w", err)
	}

	for _, swap := range pending {
		err = batch.Append(
			swap.Swapper, swap.Dex.String(), swap.TxHash, swap.LogIndex, swap.SwapDatetime.UTC(),
			swap.TokenAddressIn, swap.TokenSymbolIn, swap.AmountIn, swap.AmountInUSD, swap.TokenInApproxPriceUSD,
			swap.TokenAddressOut, swap.TokenSymbolOut, swap.AmountOut, swap.AmountOutUSD, swap.TokenOutApproxPriceUSD,
			swap.ConversionRateInToOut, swap.PoolAddress, swap.PoolName,
		)
		if err != nil {
			_ = batch.Abort()
			return 0, fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("send batch: %w", err)
	}

	return len(pending), nil
}

// Get retrieves one swap by key. Returns ErrNotFound if not stored.
func (s *SwapStore) Get(ctx context.Context, dex domain.SourceID, txHash string, logIndex int64) (*domain.Swap, error) {
	query := selectSwapColumns + `WHERE dex = ? AND tx_hash = ? AND log_index = ? LIMIT 1`

	rows, err := s.conn.Query(ctx, query, dex.String(), txHash, logIndex)
	if err != nil {
		return nil, fmt.Errorf("query swap: %w", err)
	}
	defer rows.Close()

	swaps, err := scanSwaps(rows)
	if err != nil {
		return nil, err
	}
	if len(swaps) == 0 {
		return nil, storage.ErrNotFound
	}
	return swaps[0], nil
}

// GetBySwapper retrieves all swaps received by swapper, newest first.
func (s *SwapStore) GetBySwapper(ctx context.Context, swapper string) ([]*domain.Swap, error) {
	swapper = strings.ToLower(strings.TrimSpace(swapper))
	if swapper == "" {
		return nil, storage.ErrInvalidInput
	}

	query := selectSwapColumns + `
		WHERE swapper = ?
		ORDER BY swap_datetime DESC, dex ASC, tx_hash ASC, log_index ASC
	`

	rows, err := s.conn.Query(ctx, query, swapper)
	if err != nil {
		return nil, fmt.Errorf("query by swapper: %w", err)
	}
	defer rows.Close()

	return scanSwaps(rows)
}

// existingKeys returns the subset of keys already stored, one query per
// keyLookupChunk keys.
func (s *SwapStore) existingKeys(ctx context.Context, keys []swapKey) (map[swapKey]struct{}, error) {
	stored := make(map[swapKey]struct{})
	for start := 0; start < len(keys); start += keyLookupChunk {
		chunk := keys[start:min(start+keyLookupChunk, len(keys))]

		args := make([]any, 0, 3*len(chunk))
		for _, k := range chunk {
			args = append(args, k.dex.String(), k.txHash, k.logIndex)
		}

		rows, err := s.conn.Query(ctx, existingKeysQuery(len(chunk)), args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var k swapKey
			var dex string
			if err := rows.Scan(&dex, &k.txHash, &k.logIndex); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan key row: %w", err)
			}
			k.dex = domain.SourceID(dex)
			stored[k] = struct{}{}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterate key rows: %w", err)
		}
	}
	return stored, nil
}

// keyLookupChunk bounds the tuples bound into one existence query.
const keyLookupChunk = 1000

// existingKeysQuery selects the stored keys among n bound (dex, tx_hash,
// log_index) tuples.
func existingKeysQuery(n int) string {
	var sb strings.Builder
	sb.WriteString("SELECT DISTINCT dex, tx_hash, log_index FROM swaps WHERE (dex, tx_hash, log_index) IN (")
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?)")
	}
	sb.WriteString(")")
	return sb.String()
}

// scanSwaps scans multiple rows in selectSwapColumns order.
func scanSwaps(rows chRows) ([]*domain.Swap, error) {
	var swaps []*domain.Swap

	for rows.Next() {
		var swap domain.Swap
		var dex string

		err := rows.Scan(
			&dex, &swap.TxHash, &swap.LogIndex, &swap.Swapper, &swap.SwapDatetime,
			&swap.TokenAddressIn, &swap.TokenSymbolIn, &swap.AmountIn, &swap.AmountInUSD, &swap.TokenInApproxPriceUSD,
			&swap.TokenAddressOut, &swap.TokenSymbolOut, &swap.AmountOut, &swap.AmountOutUSD, &swap.TokenOutApproxPriceUSD,
			&swap.ConversionRateInToOut, &swap.PoolAddress, &swap.PoolName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan swap row: %w", err)
		}

		swap.Dex = domain.SourceID(dex)
		swap.SwapDatetime = swap.SwapDatetime.UTC()
		swaps = append(swaps, &swap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swap rows: %w", err)
	}

	return swaps, nil
}
