package memory

import (
	"context"
	"sort"
	"sync"

	"eth-risk-lab/internal/domain"
	"eth-risk-lab/internal/ingestion"
	"eth-risk-lab/internal/storage"
)

// TransferStore is an in-memory implementation of storage.TransferStore.
type TransferStore struct {
	mu   sync.RWMutex
	data map[string][]domain.Transaction // keyed by address
}

// NewTransferStore creates a new in-memory transfer archive.
func NewTransferStore() *TransferStore {
	return &TransferStore{
		data: make(map[string][]domain.Transaction),
	}
}

// Compile-time interface check.
var _ storage.TransferStore = (*TransferStore)(nil)

// InsertBulk adds the merged transactions of one run for an address.
func (s *TransferStore) InsertBulk(_ context.Context, address string, _ int64, txs []domain.Transaction) error {
	if address == "" {
		return storage.ErrInvalidInput
	}
	if len(txs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[address] = append(s.data[address], txs...)
	return nil
}

// GetByAddress retrieves all archived transactions for an address, ordered by
// timestamp ASC.
func (s *TransferStore) GetByAddress(_ context.Context, address string) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txs := s.data[address]
	result := make([]domain.Transaction, len(txs))
	copy(result, txs)

	sort.SliceStable(result, func(i, j int) bool {
		ti, _ := ingestion.ParseInt64(result[i].TimeStamp)
		tj, _ := ingestion.ParseInt64(result[j].TimeStamp)
		return ti < tj
	})

	return result, nil
}
