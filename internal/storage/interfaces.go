package storage

import (
	"context"

	"eth-risk-lab/internal/domain"
)

// AddressReportStore provides access to address_reports storage. Reports are
// append-only; every extraction run produces a new row.
type AddressReportStore interface {
	// Insert adds a new report. Returns ErrDuplicateKey if
	// (address, computed_at) exists.
	Insert(ctx context.Context, r *domain.AddressReport) error

	// GetLatest retrieves the most recent report for an address.
	// Returns ErrNotFound if the address has never been analyzed.
	GetLatest(ctx context.Context, address string) (*domain.AddressReport, error)

	// GetByAddress retrieves all reports for an address, ordered by
	// computed_at ASC.
	GetByAddress(ctx context.Context, address string) ([]*domain.AddressReport, error)
}

// TransferStore archives the merged transaction history examined during an
// extraction run, for audit and offline reprocessing.
type TransferStore interface {
	// InsertBulk adds the merged transactions of one run for an address.
	InsertBulk(ctx context.Context, address string, runAt int64, txs []domain.Transaction) error

	// GetByAddress retrieves all archived transactions for an address,
	// ordered by timestamp ASC.
	GetByAddress(ctx context.Context, address string) ([]domain.Transaction, error)
}
