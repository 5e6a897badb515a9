// Package memory provides in-memory store implementations, used by the CLI
// and in tests.
package memory

import (
	"context"
	"sync"

	"eth-risk-lab/internal/domain"
	"eth-risk-lab/internal/storage"
)

// AddressReportStore is an in-memory implementation of storage.AddressReportStore.
type AddressReportStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.AddressReport // keyed by address, ordered by computed_at ASC
}

// NewAddressReportStore creates a new in-memory address report store.
func NewAddressReportStore() *AddressReportStore {
	return &AddressReportStore{
		data: make(map[string][]*domain.AddressReport),
	}
}

// Compile-time interface check.
var _ storage.AddressReportStore = (*AddressReportStore)(nil)

// Insert adds a new report. Returns ErrDuplicateKey if (address, computed_at) exists.
func (s *AddressReportStore) Insert(_ context.Context, r *domain.AddressReport) error {
	if r == nil || r.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reports := s.data[r.Address]
	for _, existing := range reports {
		if existing.ComputedAt == r.ComputedAt {
			return storage.ErrDuplicateKey
		}
	}

	stored := copyReport(r)

	// Insert keeping computed_at ASC order
	pos := len(reports)
	for i, existing := range reports {
		if existing.ComputedAt > r.ComputedAt {
			pos = i
			break
		}
	}
	reports = append(reports, nil)
	copy(reports[pos+1:], reports[pos:])
	reports[pos] = stored
	s.data[r.Address] = reports

	return nil
}

// GetLatest retrieves the most recent report for an address.
func (s *AddressReportStore) GetLatest(_ context.Context, address string) (*domain.AddressReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports := s.data[address]
	if len(reports) == 0 {
		return nil, storage.ErrNotFound
	}
	return copyReport(reports[len(reports)-1]), nil
}

// GetByAddress retrieves all reports for an address, ordered by computed_at ASC.
func (s *AddressReportStore) GetByAddress(_ context.Context, address string) ([]*domain.AddressReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports := s.data[address]
	result := make([]*domain.AddressReport, len(reports))
	for i, r := range reports {
		result[i] = copyReport(r)
	}
	return result, nil
}

// copyReport deep-copies a report so callers cannot mutate stored state.
func copyReport(r *domain.AddressReport) *domain.AddressReport {
	reportCopy := *r
	reportCopy.Features = make(domain.FeatureMap, len(r.Features))
	for k, v := range r.Features {
		reportCopy.Features[k] = v
	}
	return &reportCopy
}
