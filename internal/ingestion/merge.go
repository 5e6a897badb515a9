package ingestion

import (
	"sort"

	"eth-risk-lab/internal/domain"
)

// Merge combines the native and token transfer streams for one address into a
// classified, de-duplicated sequence sorted ascending by timestamp.
//
// Token transfers do not carry their own gas cost; the gas was paid by the
// native transaction that wrapped them. When a native record shares a token
// record's hash, its gas fields are copied onto the token transaction and the
// native leg is suppressed to avoid double counting.
func Merge(native, token []domain.TransferRecord) []domain.Transaction {
	nativeByHash := make(map[string]domain.TransferRecord, len(native))
	for _, rec := range native {
		nativeByHash[rec.Hash] = rec
	}

	claimed := make(map[string]struct{}, len(token))
	merged := make([]domain.Transaction, 0, len(native)+len(token))

	for _, rec := range token {
		claimed[rec.Hash] = struct{}{}
		if parent, ok := nativeByHash[rec.Hash]; ok {
			rec.GasUsed = parent.GasUsed
			rec.GasPrice = parent.GasPrice
		}
		merged = append(merged, domain.Transaction{TransferRecord: rec, Type: domain.TxTypeToken})
	}

	for _, rec := range native {
		if _, ok := claimed[rec.Hash]; ok {
			continue
		}
		merged = append(merged, domain.Transaction{TransferRecord: rec, Type: domain.TxTypeNative})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		ti, _ := ParseInt64(merged[i].TimeStamp)
		tj, _ := ParseInt64(merged[j].TimeStamp)
		return ti < tj
	})

	return merged
}
