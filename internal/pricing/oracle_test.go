package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource implements Source for testing, counting calls.
type stubSource struct {
	ratio  float64
	err    error
	calls  int
	lastTS int64
}

func (s *stubSource) HistoricalRatio(_ context.Context, _, _ string, ts int64) (float64, error) {
	s.calls++
	s.lastTS = ts
	return s.ratio, s.err
}

func tsFor(year int, month time.Month, day int) int64 {
	return time.Date(year, month, day, 15, 30, 0, 0, time.UTC).Unix()
}

func TestOracle_CachesSuccessfulLookup(t *testing.T) {
	source := &stubSource{ratio: 0.061}
	oracle := NewOracle(OracleOptions{Source: source})
	ctx := context.Background()

	ts := tsFor(2021, time.June, 17)
	got := oracle.Ratio(ctx, ts)
	assert.Equal(t, 0.061, got)
	assert.Equal(t, 1, source.calls)

	// Any timestamp in the same month must hit the cache, not the network.
	got = oracle.Ratio(ctx, tsFor(2021, time.June, 30))
	assert.Equal(t, 0.061, got)
	assert.Equal(t, 1, source.calls, "cache hit must not invoke the source")
}

func TestOracle_LookupUsesFirstOfMonth(t *testing.T) {
	source := &stubSource{ratio: 0.05}
	oracle := NewOracle(OracleOptions{Source: source})

	oracle.Ratio(context.Background(), tsFor(2021, time.June, 17))

	want := time.Date(2021, time.June, 1, 0, 0, 0, 0, time.UTC).Unix()
	assert.Equal(t, want, source.lastTS)
}

func TestOracle_FallbackOnError(t *testing.T) {
	source := &stubSource{err: errors.New("price API down")}
	oracle := NewOracle(OracleOptions{Source: source})
	ctx := context.Background()

	tests := []struct {
		year int
		want float64
	}{
		{2015, 0.02},
		{2016, 0.02},
		{2017, 0.05},
		{2018, 0.08},
		{2019, 0.04},
		{2020, 0.04},
		{2021, 0.067},
		{2024, 0.067},
	}

	for _, tt := range tests {
		got := oracle.Ratio(ctx, tsFor(tt.year, time.March, 10))
		assert.Equal(t, tt.want, got, "year %d", tt.year)
	}
}

func TestOracle_FallbackNotCached(t *testing.T) {
	source := &stubSource{err: errors.New("transient outage")}
	oracle := NewOracle(OracleOptions{Source: source})
	ctx := context.Background()

	ts := tsFor(2022, time.January, 5)
	got := oracle.Ratio(ctx, ts)
	assert.Equal(t, 0.067, got)
	require.Equal(t, 1, source.calls)

	// Source recovers; the same month must be attempted again and the live
	// value returned and cached.
	source.err = nil
	source.ratio = 0.071

	got = oracle.Ratio(ctx, ts)
	assert.Equal(t, 0.071, got)
	assert.Equal(t, 2, source.calls, "fallback must not be cached")

	got = oracle.Ratio(ctx, ts)
	assert.Equal(t, 0.071, got)
	assert.Equal(t, 2, source.calls)
}

func TestOracle_NonPositiveRatioFallsBack(t *testing.T) {
	source := &stubSource{ratio: 0}
	oracle := NewOracle(OracleOptions{Source: source})

	got := oracle.Ratio(context.Background(), tsFor(2023, time.May, 1))
	assert.Equal(t, 0.067, got)
}

func TestOracle_MonthKey(t *testing.T) {
	oracle := NewOracle(OracleOptions{Source: &stubSource{}})

	key := oracle.monthKey(tsFor(2021, time.June, 17))
	assert.Equal(t, "ETH_BTC_2021-06-01", key)

	key = oracle.monthKey(tsFor(2019, time.December, 31))
	assert.Equal(t, "ETH_BTC_2019-12-01", key)
}
