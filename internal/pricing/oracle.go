// Package pricing resolves historical cross-currency ratios at monthly
// granularity, with caching and a deterministic fallback when live lookup
// fails.
package pricing

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"eth-risk-lab/internal/observability"
)

// Source fetches a historical exchange ratio between two currencies at a Unix
// timestamp (seconds).
type Source interface {
	HistoricalRatio(ctx context.Context, fsym, tsym string, ts int64) (float64, error)
}

// Fallback ETH/BTC ratios by year bucket, used when the live lookup fails.
// Approximate pricing is acceptable for a statistical risk signal; aborting
// feature extraction on a pricing outage is not.
const (
	fallbackThrough2016 = 0.02
	fallbackThrough2017 = 0.05
	fallbackThrough2018 = 0.08
	fallbackThrough2020 = 0.04
	fallbackDefault     = 0.067
)

// Oracle returns historical exchange ratios keyed by calendar month. The
// cache never evicts; the key space is bounded by months x currency pairs.
type Oracle struct {
	source Source
	fsym   string
	tsym   string
	logger *log.Logger

	mu    sync.Mutex
	cache map[string]float64
}

// OracleOptions contains configuration for creating an Oracle.
type OracleOptions struct {
	Source Source
	Fsym   string // Default: ETH
	Tsym   string // Default: BTC
	Logger *log.Logger
}

// NewOracle creates a new price oracle.
func NewOracle(opts OracleOptions) *Oracle {
	fsym := opts.Fsym
	if fsym == "" {
		fsym = "ETH"
	}
	tsym := opts.Tsym
	if tsym == "" {
		tsym = "BTC"
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Oracle{
		source: opts.Source,
		fsym:   fsym,
		tsym:   tsym,
		logger: logger,
		cache:  make(map[string]float64),
	}
}

// Ratio returns the exchange ratio for the calendar month containing ts
// (Unix seconds). It never fails: on a cache miss the source is queried for
// the first-of-month timestamp, and on any lookup failure or non-positive
// result a year-bucketed fallback is returned instead. Fallbacks are not
// cached, so a later lookup for the same month is still attempted.
func (o *Oracle) Ratio(ctx context.Context, ts int64) float64 {
	key := o.monthKey(ts)

	o.mu.Lock()
	cached, ok := o.cache[key]
	o.mu.Unlock()
	if ok {
		observability.RecordPriceLookup("cache_hit")
		return cached
	}

	ratio, err := o.source.HistoricalRatio(ctx, o.fsym, o.tsym, firstOfMonth(ts))
	if err == nil && ratio > 0 {
		o.mu.Lock()
		o.cache[key] = ratio
		o.mu.Unlock()
		observability.RecordPriceLookup("fetched")
		return ratio
	}

	fallback := fallbackRatio(time.Unix(ts, 0).UTC().Year())
	o.logger.Printf("could not fetch %s/%s price for %s, using fallback ratio %v", o.fsym, o.tsym, key, fallback)
	observability.RecordPriceLookup("fallback")
	return fallback
}

// monthKey builds the cache key for the UTC calendar month containing ts.
func (o *Oracle) monthKey(ts int64) string {
	t := time.Unix(ts, 0).UTC()
	return fmt.Sprintf("%s_%s_%04d-%02d-01", o.fsym, o.tsym, t.Year(), int(t.Month()))
}

// firstOfMonth returns the Unix timestamp of the first of the UTC month
// containing ts.
func firstOfMonth(ts int64) int64 {
	t := time.Unix(ts, 0).UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).Unix()
}

// fallbackRatio selects the fallback ratio for a year.
func fallbackRatio(year int) float64 {
	switch {
	case year <= 2016:
		return fallbackThrough2016
	case year <= 2017:
		return fallbackThrough2017
	case year <= 2018:
		return fallbackThrough2018
	case year <= 2020:
		return fallbackThrough2020
	default:
		return fallbackDefault
	}
}
