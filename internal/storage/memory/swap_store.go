package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"dex-swaps-lab/internal/domain"
	"dex-swaps-lab/internal/storage"
)

// SwapStore is an in-memory implementation of storage.SwapStore. It backs
// the archiver in tests; archive.Open only builds database stores.
type SwapStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Swap // keyed by composite key
}

// NewSwapStore creates a new in-memory swap store.
func NewSwapStore() *SwapStore {
	return &SwapStore{
		data: make(map[string]*domain.Swap),
	}
}

// swapKey generates a unique key for a swap.
func swapKey(dex domain.SourceID, txHash string, logIndex int64) string {
	return fmt.Sprintf("%s|%s|%d", dex, txHash, logIndex)
}

// InsertBulk stores swaps whose key is not present yet. Validation runs
// before anything is stored, so an invalid batch leaves the store unchanged.
func (s *SwapStore) InsertBulk(_ context.Context, swaps []*domain.Swap) (int, error) {
	for _, swap := range swaps {
		if err := storage.ValidateSwap(swap); err != nil {
			return 0, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, swap := range swaps {
		key := swapKey(swap.Dex, swap.TxHash, swap.LogIndex)
		if _, exists := s.data[key]; exists {
			continue
		}
		copy := *swap
		s.data[key] = &copy
		inserted++
	}

	return inserted, nil
}

// Get retrieves one swap by key.
func (s *SwapStore) Get(_ context.Context, dex domain.SourceID, txHash string, logIndex int64) (*domain.Swap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	swap, ok := s.data[swapKey(dex, txHash, logIndex)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *swap
	return &copy, nil
}

// GetBySwapper retrieves all swaps received by swapper, newest first.
func (s *SwapStore) GetBySwapper(_ context.Context, swapper string) ([]*domain.Swap, error) {
	swapper = strings.ToLower(strings.TrimSpace(swapper))
	if swapper == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Swap
	for _, swap := range s.data {
		if strings.ToLower(swap.Swapper) == swapper {
			copy := *swap
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.SwapDatetime.Equal(b.SwapDatetime) {
			return a.SwapDatetime.After(b.SwapDatetime)
		}
		if a.Dex != b.Dex {
			return a.Dex < b.Dex
		}
		if a.TxHash != b.TxHash {
			return a.TxHash < b.TxHash
		}
		return a.LogIndex < b.LogIndex
	})

	return result, nil
}

// Len returns the number of stored swaps.
func (s *SwapStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

var _ storage.SwapStore = (*SwapStore)(nil)
