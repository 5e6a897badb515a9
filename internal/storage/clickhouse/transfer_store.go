package clickhouse

import (
	"context"
	"fmt"
	"time"

	"eth-risk-lab/internal/domain"
	"eth-risk-lab/internal/ingestion"
	"eth-risk-lab/internal/observability"
	"eth-risk-lab/internal/storage"
)

// TransferStore implements storage.TransferStore using ClickHouse. The
// archive is append-only; MergeTree does not enforce uniqueness and repeated
// runs for the same address are expected.
type TransferStore struct {
	conn *Conn
}

// NewTransferStore creates a new TransferStore.
func NewTransferStore(conn *Conn) *TransferStore {
	return &TransferStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TransferStore = (*TransferStore)(nil)

// InsertBulk adds the merged transactions of one run for an address.
func (s *TransferStore) InsertBulk(ctx context.Context, address string, runAt int64, txs []domain.Transaction) error {
	if address == "" {
		return storage.ErrInvalidInput
	}
	if len(txs) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO transfers (
			address, run_at, tx_hash, tx_type, block_number, ts,
			from_addr, to_addr, value_raw, gas_used, gas_price, contract_address
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, tx := range txs {
		block, _ := ingestion.ParseInt64(tx.BlockNumber)
		ts, _ := ingestion.ParseInt64(tx.TimeStamp)
		err = batch.Append(
			address, runAt, tx.Hash, string(tx.Type), uint64(block), uint64(ts),
			tx.From, tx.To, tx.Value, tx.GasUsed, tx.GasPrice, tx.ContractAddress,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	start := time.Now()
	err = batch.Send()
	observability.RecordDBQuery("clickhouse", "insert_transfers", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByAddress retrieves all archived transactions for an address, ordered by
// timestamp ASC.
func (s *TransferStore) GetByAddress(ctx context.Context, address string) ([]domain.Transaction, error) {
	query := `
		SELECT tx_hash, tx_type, block_number, ts,
		       from_addr, to_addr, value_raw, gas_used, gas_price, contract_address
		FROM transfers
		WHERE address = ?
		ORDER BY ts ASC
	`

	start := time.Now()
	rows, err := s.conn.Query(ctx, query, address)
	observability.RecordDBQuery("clickhouse", "get_transfers", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("query transfers: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var (
			tx     domain.Transaction
			txType string
			block  uint64
			ts     uint64
		)
		err := rows.Scan(
			&tx.Hash, &txType, &block, &ts,
			&tx.From, &tx.To, &tx.Value, &tx.GasUsed, &tx.GasPrice, &tx.ContractAddress,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		tx.Type = domain.TxType(txType)
		tx.BlockNumber = fmt.Sprintf("%d", block)
		tx.TimeStamp = fmt.Sprintf("%d", ts)
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfers: %w", err)
	}
	return txs, nil
}
