package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dex-swaps-lab/internal/domain"
	"dex-swaps-lab/internal/storage"
)

func testSwap(dex domain.SourceID, hash string, logIndex int64, swapper string, ts int64) *domain.Swap {
	return &domain.Swap{
		Swapper:                swapper,
		SwapDatetime:           time.Unix(ts, 0).UTC(),
		Dex:                    dex,
		TokenAddressIn:         "0xa0b8",
		TokenSymbolIn:          "USDC",
		AmountIn:               1,
		AmountInUSD:            2,
		TokenInApproxPriceUSD:  2,
		TokenAddressOut:        "0xc02a",
		TokenSymbolOut:         "WETH",
		AmountOut:              0.5,
		AmountOutUSD:           1.98,
		TokenOutApproxPriceUSD: 3.96,
		ConversionRateInToOut:  2,
		PoolAddress:            "0x88e6",
		PoolName:               "USDC/WETH 0.05%",
		TxHash:                 hash,
		LogIndex:               logIndex,
	}
}

func TestSwapStore_InsertBulkAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSwapStore(pool)

	swap := testSwap("uniswap-v3-ethereum", "0xabc", 3, "0xwallet", 1700000000)
	n, err := store.InsertBulk(ctx, []*domain.Swap{swap})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.Get(ctx, "uniswap-v3-ethereum", "0xabc", 3)
	require.NoError(t, err)
	assert.True(t, swap.SwapDatetime.Equal(got.SwapDatetime))
	got.SwapDatetime = swap.SwapDatetime
	assert.Equal(t, swap, got)
}

func TestSwapStore_InsertBulkSkipsDuplicates(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSwapStore(pool)

	first := testSwap("uniswap-v3-ethereum", "0x1", 0, "0xwallet", 1700000000)
	n, err := store.InsertBulk(ctx, []*domain.Swap{first})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = store.InsertBulk(ctx, []*domain.Swap{
		first,
		testSwap("uniswap-v3-ethereum", "0x2", 0, "0xwallet", 1700000100),
		testSwap("uniswap-v3-ethereum", "0x2", 0, "0xwallet", 1700000100),
		testSwap("sushiswap-ethereum", "0x1", 0, "0xwallet", 1700000000),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	swaps, err := store.GetBySwapper(ctx, "0xwallet")
	require.NoError(t, err)
	assert.Len(t, swaps, 3)
}

func TestSwapStore_InsertBulkInvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSwapStore(pool)

	_, err := store.InsertBulk(ctx, []*domain.Swap{
		testSwap("uniswap-v3-ethereum", "0x1", 0, "0xwallet", 1700000000),
		testSwap("", "0x2", 0, "0xwallet", 1700000000),
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	swaps, err := store.GetBySwapper(ctx, "0xwallet")
	require.NoError(t, err)
	assert.Empty(t, swaps)

	n, err := store.InsertBulk(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSwapStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSwapStore(pool)

	_, err := store.Get(context.Background(), "uniswap-v3-ethereum", "0xmissing", 0)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSwapStore_GetBySwapperOrdering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSwapStore(pool)

	_, err := store.InsertBulk(ctx, []*domain.Swap{
		testSwap("b-dex", "0x1", 0, "0xa", 1700000000),
		testSwap("a-dex", "0x2", 0, "0xa", 1700000300),
		testSwap("a-dex", "0x3", 0, "0xb", 1700000200),
		testSwap("a-dex", "0x4", 0, "0xa", 1700000000),
	})
	require.NoError(t, err)

	swaps, err := store.GetBySwapper(ctx, "0xA")
	require.NoError(t, err)
	require.Len(t, swaps, 3)
	assert.Equal(t, "0x2", swaps[0].TxHash)
	assert.Equal(t, "0x4", swaps[1].TxHash)
	assert.Equal(t, "0x1", swaps[2].TxHash)
	assert.Equal(t, time.UTC, swaps[0].SwapDatetime.Location())

	_, err = store.GetBySwapper(ctx, "")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
