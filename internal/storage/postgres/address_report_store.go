package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"eth-risk-lab/internal/domain"
	"eth-risk-lab/internal/observability"
	"eth-risk-lab/internal/storage"
)

// AddressReportStore implements storage.AddressReportStore using PostgreSQL.
// Feature maps are stored as JSONB; the schema is flat string->number so no
// relational decomposition is needed.
type AddressReportStore struct {
	pool *Pool
}

// NewAddressReportStore creates a new AddressReportStore.
func NewAddressReportStore(pool *Pool) *AddressReportStore {
	return &AddressReportStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AddressReportStore = (*AddressReportStore)(nil)

// Insert adds a new report. Returns ErrDuplicateKey if (address, computed_at) exists.
func (s *AddressReportStore) Insert(ctx context.Context, r *domain.AddressReport) error {
	if r == nil || r.Address == "" {
		return storage.ErrInvalidInput
	}

	payload, err := json.Marshal(r.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}

	query := `
		INSERT INTO address_reports (address, computed_at, tx_count, features)
		VALUES ($1, $2, $3, $4)
	`

	start := time.Now()
	_, err = s.pool.Exec(ctx, query, r.Address, r.ComputedAt, r.TxCount, payload)
	observability.RecordDBQuery("postgres", "insert_report", time.Since(start).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert address report: %w", err)
	}
	return nil
}

// GetLatest retrieves the most recent report for an address.
func (s *AddressReportStore) GetLatest(ctx context.Context, address string) (*domain.AddressReport, error) {
	query := `
		SELECT address, computed_at, tx_count, features
		FROM address_reports
		WHERE address = $1
		ORDER BY computed_at DESC
		LIMIT 1
	`

	start := time.Now()
	row := s.pool.QueryRow(ctx, query, address)
	report, err := scanReport(row)
	observability.RecordDBQuery("postgres", "get_latest_report", time.Since(start).Seconds(), err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest report: %w", err)
	}
	return report, nil
}

// GetByAddress retrieves all reports for an address, ordered by computed_at ASC.
func (s *AddressReportStore) GetByAddress(ctx context.Context, address string) ([]*domain.AddressReport, error) {
	query := `
		SELECT address, computed_at, tx_count, features
		FROM address_reports
		WHERE address = $1
		ORDER BY computed_at ASC
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, address)
	observability.RecordDBQuery("postgres", "get_reports", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var reports []*domain.AddressReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

// rowScanner abstracts pgx.Row and pgx.Rows for scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanReport scans one address_reports row, unmarshalling the JSONB features.
func scanReport(row rowScanner) (*domain.AddressReport, error) {
	var (
		r       domain.AddressReport
		payload []byte
	)
	if err := row.Scan(&r.Address, &r.ComputedAt, &r.TxCount, &payload); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &r.Features); err != nil {
		return nil, fmt.Errorf("unmarshal features: %w", err)
	}
	return &r, nil
}
