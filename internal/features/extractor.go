package features

import (
	"context"
	"log"
	"math"
	"strings"
	"time"

	"eth-risk-lab/internal/domain"
	"eth-risk-lab/internal/ingestion"
	"eth-risk-lab/internal/observability"
)

// WeiPerEth converts wei into whole native units.
const WeiPerEth = 1e18

// defaultTokenDecimals is assumed when a token record carries no usable
// decimals field.
const defaultTokenDecimals = 18

// DefaultTokenRatio is the stand-in token-to-native conversion ratio applied
// by FixedRatioValuer. Real per-token historical pricing plugs in through
// TokenValuer.
const DefaultTokenRatio = 0.001

// HistorySource supplies the merged, classified transaction history for an
// address.
type HistorySource interface {
	FetchHistory(ctx context.Context, address string) ([]domain.Transaction, error)
}

// RatioSource converts native-unit values into the settlement currency at a
// transaction timestamp. It never fails; see pricing.Oracle.
type RatioSource interface {
	Ratio(ctx context.Context, ts int64) float64
}

// TokenValuer converts a decimal-scaled token amount into native units at a
// transaction timestamp.
type TokenValuer interface {
	NativeValue(ctx context.Context, contractAddress string, amount float64, ts int64) float64
}

// FixedRatioValuer values every token at a constant token-to-native ratio.
type FixedRatioValuer struct {
	Ratio float64
}

// NativeValue applies the fixed ratio.
func (v FixedRatioValuer) NativeValue(_ context.Context, _ string, amount float64, _ int64) float64 {
	return amount * v.Ratio
}

// Compile-time interface check.
var _ TokenValuer = FixedRatioValuer{}

// Extractor turns a raw address into a complete feature map. It is stateless
// per call; the only state shared across calls lives in the injected
// RatioSource's cache.
type Extractor struct {
	history HistorySource
	prices  RatioSource
	tokens  TokenValuer
	logger  *log.Logger
	now     func() time.Time
}

// ExtractorOptions contains configuration for creating an Extractor.
type ExtractorOptions struct {
	History HistorySource
	Prices  RatioSource
	Tokens  TokenValuer // Default: FixedRatioValuer{Ratio: DefaultTokenRatio}
	Logger  *log.Logger
	Now     func() time.Time // Default: time.Now, injectable for tests
}

// NewExtractor creates a new feature extractor.
func NewExtractor(opts ExtractorOptions) *Extractor {
	tokens := opts.Tokens
	if tokens == nil {
		tokens = FixedRatioValuer{Ratio: DefaultTokenRatio}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Extractor{
		history: opts.History,
		prices:  opts.Prices,
		tokens:  tokens,
		logger:  logger,
		now:     now,
	}
}

// bucketed carries the per-transaction values accumulated for one direction.
type bucketed struct {
	value float64 // settlement-currency value
	fee   float64 // settlement-currency fee, sent only
	block int64
}

// Extract fetches, merges and converts the address's history and computes the
// complete feature map. The caller receives either a report with the full
// stable key schema or a single error from the ledger-fetch stage; pricing
// failures and data-shape anomalies are absorbed internally.
func (e *Extractor) Extract(ctx context.Context, address string) (*domain.AddressReport, error) {
	start := e.now()
	addr := strings.ToLower(address)

	txs, err := e.history.FetchHistory(ctx, addr)
	if err != nil {
		observability.RecordExtraction("error", e.now().Sub(start).Seconds(), -1)
		return nil, err
	}

	var (
		sent      []bucketed
		received  []bucketed
		allValues []float64
		allFees   []float64
		blocks    []int64
	)
	counterparties := make(map[string]int)

	for i := range txs {
		tx := &txs[i]

		// A record with an unusable timestamp cannot be priced or ordered;
		// it is skipped entirely.
		ts, ok := ingestion.ParseInt64(tx.TimeStamp)
		if !ok || ts == 0 {
			continue
		}
		block, _ := ingestion.ParseInt64(tx.BlockNumber)
		from := strings.ToLower(tx.From)
		to := strings.ToLower(tx.To)

		valueNative := e.nativeValue(ctx, tx, ts)

		gasUsed, _ := ingestion.ParseFloat(tx.GasUsed)
		gasPrice, _ := ingestion.ParseFloat(tx.GasPrice)
		feeNative := gasUsed * gasPrice / WeiPerEth

		ratio := e.prices.Ratio(ctx, ts)
		value := valueNative * ratio
		fee := feeNative * ratio

		if block > 0 {
			blocks = append(blocks, block)
		}

		if from == addr {
			allFees = append(allFees, fee)
			if value > 0 {
				sent = append(sent, bucketed{value: value, fee: fee, block: block})
				allValues = append(allValues, value)
				counterparties[to]++
			}
		}
		if to == addr && value > 0 {
			received = append(received, bucketed{value: value, block: block})
			allValues = append(allValues, value)
			counterparties[from]++
		}
	}

	f := e.buildFeatures(sent, received, allValues, allFees, blocks, counterparties)

	report := &domain.AddressReport{
		Address:    addr,
		Features:   f,
		TxCount:    int(f["total_txs"]),
		ComputedAt: e.now().UnixMilli(),
	}

	observability.RecordExtraction("success", e.now().Sub(start).Seconds(), len(txs))
	return report, nil
}

// nativeValue computes the transaction value in native units. Native
// transfers convert wei directly; token transfers go through the TokenValuer.
func (e *Extractor) nativeValue(ctx context.Context, tx *domain.Transaction, ts int64) float64 {
	raw, _ := ingestion.ParseFloat(tx.Value)

	if tx.Type == domain.TxTypeNative {
		return raw / WeiPerEth
	}

	decimals, ok := ingestion.ParseInt64(tx.TokenDecimal)
	if !ok || decimals <= 0 {
		decimals = defaultTokenDecimals
	}
	amount := raw / math.Pow(10, float64(decimals))
	if amount <= 0 {
		return 0
	}
	return e.tokens.NativeValue(ctx, strings.ToLower(tx.ContractAddress), amount, ts)
}

// buildFeatures assembles the scalar features and every statistical group.
func (e *Extractor) buildFeatures(sent, received []bucketed, allValues, allFees []float64, blocks []int64, counterparties map[string]int) domain.FeatureMap {
	f := make(domain.FeatureMap)

	f["num_txs_as_sender"] = float64(len(sent))
	f["num_txs_as_receiver"] = float64(len(received))
	f["total_txs"] = float64(len(sent) + len(received))

	if len(blocks) > 0 {
		first, last := blocks[0], blocks[0]
		distinct := make(map[int64]struct{}, len(blocks))
		for _, b := range blocks {
			if b < first {
				first = b
			}
			if b > last {
				last = b
			}
			distinct[b] = struct{}{}
		}
		f["first_block_appeared_in"] = float64(first)
		f["last_block_appeared_in"] = float64(last)
		f["lifetime_in_blocks"] = float64(last - first)
		f["num_timesteps_appeared_in"] = float64(len(distinct))
	} else {
		f["first_block_appeared_in"] = 0.0
		f["last_block_appeared_in"] = 0.0
		f["lifetime_in_blocks"] = 0.0
		f["num_timesteps_appeared_in"] = 0.0
	}

	sentBlocks := positiveBlocks(sent)
	receivedBlocks := positiveBlocks(received)
	f["first_sent_block"] = float64(minBlock(sentBlocks))
	f["first_received_block"] = float64(minBlock(receivedBlocks))

	AddStats(f, "btc_transacted", allValues, true)
	AddStats(f, "btc_sent", values(sent), true)
	AddStats(f, "btc_received", values(received), true)
	AddStats(f, "fees", allFees, true)

	var feeShares []float64
	for _, s := range sent {
		if s.value > 0 {
			feeShares = append(feeShares, s.fee/s.value*100.0)
		}
	}
	AddStats(f, "fees_as_share", feeShares, true)

	AddIntervalStats(f, "blocks_btwn_txs", blocks)
	AddIntervalStats(f, "blocks_btwn_input_txs", sentBlocks)
	AddIntervalStats(f, "blocks_btwn_output_txs", receivedBlocks)

	f["transacted_w_address_total"] = float64(len(counterparties))
	multiple := 0
	counts := make([]float64, 0, len(counterparties))
	for _, c := range counterparties {
		counts = append(counts, float64(c))
		if c > 1 {
			multiple++
		}
	}
	f["num_addr_transacted_multiple"] = float64(multiple)
	AddStats(f, "transacted_w_address", counts, false)

	return f
}

func values(txs []bucketed) []float64 {
	out := make([]float64, len(txs))
	for i, t := range txs {
		out[i] = t.value
	}
	return out
}

func positiveBlocks(txs []bucketed) []int64 {
	var out []int64
	for _, t := range txs {
		if t.block > 0 {
			out = append(out, t.block)
		}
	}
	return out
}

func minBlock(blocks []int64) int64 {
	if len(blocks) == 0 {
		return 0
	}
	min := blocks[0]
	for _, b := range blocks {
		if b < min {
			min = b
		}
	}
	return min
}
