package ingestion

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eth-risk-lab/internal/domain"
)

func makeRecord(hash string, block, ts int64) domain.TransferRecord {
	return domain.TransferRecord{
		Hash:        hash,
		BlockNumber: fmt.Sprintf("%d", block),
		TimeStamp:   fmt.Sprintf("%d", ts),
		From:        "0xaaa",
		To:          "0xbbb",
		Value:       "1000000000000000000",
	}
}

func TestMerge_TokenClaimsNativeGas(t *testing.T) {
	native := makeRecord("0xshared", 100, 1000)
	native.GasUsed = "21000"
	native.GasPrice = "20000000000"

	token := makeRecord("0xshared", 100, 1000)
	token.GasUsed = ""
	token.GasPrice = ""

	merged := Merge([]domain.TransferRecord{native}, []domain.TransferRecord{token})

	require.Len(t, merged, 1, "native leg of a token transfer must be suppressed")
	assert.Equal(t, domain.TxTypeToken, merged[0].Type)
	assert.Equal(t, "21000", merged[0].GasUsed)
	assert.Equal(t, "20000000000", merged[0].GasPrice)
}

func TestMerge_UnclaimedNativeKept(t *testing.T) {
	native := []domain.TransferRecord{
		makeRecord("0xn1", 100, 1000),
		makeRecord("0xn2", 101, 1001),
	}
	token := []domain.TransferRecord{
		makeRecord("0xn1", 100, 1000),
	}

	merged := Merge(native, token)

	require.Len(t, merged, 2)
	types := map[string]domain.TxType{}
	for _, tx := range merged {
		types[tx.Hash] = tx.Type
	}
	assert.Equal(t, domain.TxTypeToken, types["0xn1"])
	assert.Equal(t, domain.TxTypeNative, types["0xn2"])
}

func TestMerge_SortedByTimestamp(t *testing.T) {
	// Deliberately unordered inputs
	native := []domain.TransferRecord{
		makeRecord("0xn3", 300, 3000),
		makeRecord("0xn1", 100, 1000),
	}
	token := []domain.TransferRecord{
		makeRecord("0xt4", 400, 4000),
		makeRecord("0xt2", 200, 2000),
	}

	merged := Merge(native, token)

	require.Len(t, merged, 4)
	var prev int64
	for _, tx := range merged {
		ts, ok := ParseInt64(tx.TimeStamp)
		require.True(t, ok)
		assert.GreaterOrEqual(t, ts, prev, "merged output must be non-decreasing by timestamp")
		prev = ts
	}
}

func TestMerge_NoTokenGasWithoutParent(t *testing.T) {
	token := makeRecord("0xorphan", 100, 1000)
	token.GasUsed = ""
	token.GasPrice = ""

	merged := Merge(nil, []domain.TransferRecord{token})

	require.Len(t, merged, 1)
	assert.Equal(t, domain.TxTypeToken, merged[0].Type)
	assert.Empty(t, merged[0].GasUsed)
	assert.Empty(t, merged[0].GasPrice)
}

func TestParseInt64(t *testing.T) {
	tests := []struct {
		input  string
		want   int64
		wantOK bool
	}{
		{"123", 123, true},
		{"0", 0, true},
		{"", 0, false},
		{"abc", 0, false},
		{"12.5", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseInt64(tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		assert.Equal(t, tt.wantOK, ok, "input %q", tt.input)
	}
}

func TestParseFloat(t *testing.T) {
	got, ok := ParseFloat("1.5")
	assert.True(t, ok)
	assert.Equal(t, 1.5, got)

	got, ok = ParseFloat("bogus")
	assert.False(t, ok)
	assert.Zero(t, got)
}
