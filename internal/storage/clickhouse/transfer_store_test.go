package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eth-risk-lab/internal/domain"
	"eth-risk-lab/internal/storage"
)

func makeTestTransaction(hash, block, ts string, txType domain.TxType) domain.Transaction {
	return domain.Transaction{
		TransferRecord: domain.TransferRecord{
			Hash:        hash,
			BlockNumber: block,
			TimeStamp:   ts,
			From:        "0xaaa",
			To:          "0xbbb",
			Value:       "1000000000000000000",
			GasUsed:     "21000",
			GasPrice:    "30000000000",
		},
		Type: txType,
	}
}

func TestTransferStore_InsertBulkAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransferStore(conn)
	ctx := context.Background()

	// Empty insert is a no-op
	err := store.InsertBulk(ctx, "0xabc", 1, nil)
	assert.NoError(t, err)

	txs := []domain.Transaction{
		makeTestTransaction("0x1", "100", "1000", domain.TxTypeNative),
		makeTestTransaction("0x2", "200", "2000", domain.TxTypeToken),
	}
	txs[1].ContractAddress = "0xtoken"
	txs[1].TokenSymbol = "USDT"

	err = store.InsertBulk(ctx, "0xabc", 1, txs)
	require.NoError(t, err)

	got, err := store.GetByAddress(ctx, "0xabc")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "0x1", got[0].Hash)
	assert.Equal(t, domain.TxTypeNative, got[0].Type)
	assert.Equal(t, "100", got[0].BlockNumber)
	assert.Equal(t, "1000", got[0].TimeStamp)
	assert.Equal(t, "0xaaa", got[0].From)
	assert.Equal(t, "0xbbb", got[0].To)
	assert.Equal(t, "1000000000000000000", got[0].Value)
	assert.Equal(t, "21000", got[0].GasUsed)
	assert.Equal(t, "30000000000", got[0].GasPrice)

	assert.Equal(t, "0x2", got[1].Hash)
	assert.Equal(t, domain.TxTypeToken, got[1].Type)
	assert.Equal(t, "0xtoken", got[1].ContractAddress)
}

func TestTransferStore_GetByAddressOrdered(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransferStore(conn)
	ctx := context.Background()

	// Insert out of timestamp order
	txs := []domain.Transaction{
		makeTestTransaction("0x3", "300", "3000", domain.TxTypeNative),
		makeTestTransaction("0x1", "100", "1000", domain.TxTypeNative),
		makeTestTransaction("0x2", "200", "2000", domain.TxTypeNative),
	}

	err := store.InsertBulk(ctx, "0xabc", 1, txs)
	require.NoError(t, err)

	got, err := store.GetByAddress(ctx, "0xabc")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "1000", got[0].TimeStamp)
	assert.Equal(t, "2000", got[1].TimeStamp)
	assert.Equal(t, "3000", got[2].TimeStamp)
}

func TestTransferStore_SeparateAddresses(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransferStore(conn)
	ctx := context.Background()

	err := store.InsertBulk(ctx, "0xabc", 1, []domain.Transaction{
		makeTestTransaction("0x1", "100", "1000", domain.TxTypeNative),
	})
	require.NoError(t, err)

	err = store.InsertBulk(ctx, "0xdef", 1, []domain.Transaction{
		makeTestTransaction("0x2", "200", "2000", domain.TxTypeNative),
	})
	require.NoError(t, err)

	got, err := store.GetByAddress(ctx, "0xabc")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "0x1", got[0].Hash)
}

func TestTransferStore_RepeatedRunsAccumulate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransferStore(conn)
	ctx := context.Background()

	txs := []domain.Transaction{
		makeTestTransaction("0x1", "100", "1000", domain.TxTypeNative),
	}

	// Append-only archive: the same transaction from two runs is kept twice.
	err := store.InsertBulk(ctx, "0xabc", 1, txs)
	require.NoError(t, err)
	err = store.InsertBulk(ctx, "0xabc", 2, txs)
	require.NoError(t, err)

	got, err := store.GetByAddress(ctx, "0xabc")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestTransferStore_InvalidAddress(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransferStore(conn)

	err := store.InsertBulk(context.Background(), "", 1, []domain.Transaction{
		makeTestTransaction("0x1", "100", "1000", domain.TxTypeNative),
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestTransferStore_EmptyResult(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransferStore(conn)

	got, err := store.GetByAddress(context.Background(), "0xmissing")
	require.NoError(t, err)
	assert.Empty(t, got)
}
