// Package ingestion retrieves and normalizes an address's transfer history
// from a block-explorer API.
package ingestion

import (
	"context"
	"fmt"
	"log"

	"eth-risk-lab/internal/domain"
	"eth-risk-lab/internal/etherscan"
	"eth-risk-lab/internal/observability"
)

// MaxTransactionsPerAddress caps how many records feature computation will
// examine for one address. Larger histories are approximated, not rejected.
const MaxTransactionsPerAddress = 100

// Fetcher retrieves the complete transaction history for one address.
type Fetcher struct {
	client     etherscan.Client
	maxRecords int
	logger     *log.Logger
}

// FetcherOptions contains configuration for creating a Fetcher.
type FetcherOptions struct {
	Client     etherscan.Client
	MaxRecords int // Default: MaxTransactionsPerAddress
	Logger     *log.Logger
}

// NewFetcher creates a new history fetcher.
func NewFetcher(opts FetcherOptions) *Fetcher {
	maxRecords := opts.MaxRecords
	if maxRecords <= 0 {
		maxRecords = MaxTransactionsPerAddress
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Fetcher{
		client:     opts.Client,
		maxRecords: maxRecords,
		logger:     logger,
	}
}

// FetchHistory retrieves, merges and classifies the native and token transfer
// streams for an address. The result is sorted ascending by timestamp and
// truncated to the record cap, earliest entries retained.
//
// Pages are requested one at a time; the explorer rate-limits aggressively and
// each request depends on the previous page's block cursor.
func (f *Fetcher) FetchHistory(ctx context.Context, address string) ([]domain.Transaction, error) {
	native, err := f.fetchAll(ctx, address, etherscan.ActionNative)
	if err != nil {
		return nil, fmt.Errorf("fetch native transfers: %w", err)
	}

	token, err := f.fetchAll(ctx, address, etherscan.ActionToken)
	if err != nil {
		return nil, fmt.Errorf("fetch token transfers: %w", err)
	}

	merged := Merge(native, token)

	if len(merged) > f.maxRecords {
		f.logger.Printf("limiting %s to %d transactions (found %d)", address, f.maxRecords, len(merged))
		merged = merged[:f.maxRecords]
	}

	return merged, nil
}

// fetchAll pages through one transfer stream. Pagination stops when a page
// comes back empty, the accumulated count reaches the cap, or a short page
// signals the end of the history.
func (f *Fetcher) fetchAll(ctx context.Context, address string, action etherscan.Action) ([]domain.TransferRecord, error) {
	var all []domain.TransferRecord
	startBlock := int64(0)

	for {
		page, err := f.client.TransferPage(ctx, address, action, startBlock)
		if err != nil {
			return nil, err
		}
		observability.RecordPageFetched(string(action), len(page))

		if len(page) == 0 {
			break
		}
		all = append(all, page...)

		if len(all) >= f.maxRecords || len(page) < etherscan.MaxPageSize {
			break
		}

		lastBlock, ok := ParseInt64(page[len(page)-1].BlockNumber)
		if !ok || lastBlock == 0 {
			break
		}
		startBlock = lastBlock + 1
	}

	return all, nil
}
