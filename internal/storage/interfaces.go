// Package storage defines archive sinks for canonical swap rows.
// Archived rows are written after a GetSwaps call; nothing in the fetch path
// reads them back.
package storage

import (
	"context"

	"dex-swaps-lab/internal/domain"
)

// SwapStore provides access to archived canonical swaps.
// A swap is identified by (dex, tx_hash, log_index).
type SwapStore interface {
	// InsertBulk archives swaps, skipping keys that are already stored or repeated
	// within the batch. Returns the number of newly stored rows.
	// Returns ErrInvalidInput if any swap is nil or lacks a key field.
	InsertBulk(ctx context.Context, swaps []*domain.Swap) (int, error)

	// Get and GetBySwapper read the archive back for inspection and tests.

	// Get retrieves one swap by key. Returns ErrNotFound if not stored.
	Get(ctx context.Context, dex domain.SourceID, txHash string, logIndex int64) (*domain.Swap, error)

	// GetBySwapper retrieves all swaps received by swapper, newest first.
	GetBySwapper(ctx context.Context, swapper string) ([]*domain.Swap, error)
}

// ValidateSwap checks that s carries every key field.
func ValidateSwap(s *domain.Swap) error {
	if s == nil || s.Dex == "" || s.TxHash == "" || s.Swapper == "" {
		return ErrInvalidInput
	}
	return nil
}

// Rows returns pointers to the rows of table, for InsertBulk.
func Rows(table *domain.Table) []*domain.Swap {
	if table.Len() == 0 {
		return nil
	}
	out := make([]*domain.Swap, len(table.Rows))
	for i := range table.Rows {
		out[i] = &table.Rows[i]
	}
	return out
}
