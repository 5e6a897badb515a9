// Package features computes the flat numeric feature map for an address from
// its merged transaction history.
package features

import (
	"sort"

	"eth-risk-lab/internal/domain"
)

// AddStats writes {prefix}_min, {prefix}_max, {prefix}_mean, {prefix}_median
// and, when includeTotal is set, {prefix}_total for values into features.
// Every key is always written; empty input leaves all of them at 0.0 so the
// feature map keeps a stable schema regardless of transaction volume.
func AddStats(features domain.FeatureMap, prefix string, values []float64, includeTotal bool) {
	if includeTotal {
		features[prefix+"_total"] = 0.0
	}
	features[prefix+"_min"] = 0.0
	features[prefix+"_max"] = 0.0
	features[prefix+"_mean"] = 0.0
	features[prefix+"_median"] = 0.0

	if len(values) == 0 {
		return
	}

	sum := 0.0
	min := values[0]
	max := values[0]
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	if includeTotal {
		features[prefix+"_total"] = sum
	}
	features[prefix+"_min"] = min
	features[prefix+"_max"] = max
	features[prefix+"_mean"] = sum / float64(len(values))
	features[prefix+"_median"] = median(values)
}

// AddIntervalStats deduplicates and sorts block numbers, computes consecutive
// differences and feeds them into AddStats with a total. Fewer than two
// unique blocks produce the all-zero schema, never a division error.
func AddIntervalStats(features domain.FeatureMap, prefix string, blocks []int64) {
	unique := make(map[int64]struct{}, len(blocks))
	for _, b := range blocks {
		unique[b] = struct{}{}
	}
	if len(unique) < 2 {
		AddStats(features, prefix, nil, true)
		return
	}

	sorted := make([]int64, 0, len(unique))
	for b := range unique {
		sorted = append(sorted, b)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	intervals := make([]float64, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		intervals[i-1] = float64(sorted[i] - sorted[i-1])
	}

	AddStats(features, prefix, intervals, true)
}

// median returns the middle element of values after ascending sort, averaging
// the two central elements for even lengths. The input is not modified.
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2.0
	}
	return sorted[mid]
}
