package ingestion

import "strconv"

// ParseInt64 parses a base-10 integer field from an explorer record. Returns
// (0, false) for empty or malformed input; callers that can tolerate the
// anomaly use the zero, the timestamp-skip rule consumes the flag.
func ParseInt64(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseFloat parses a numeric field from an explorer record. Returns
// (0, false) for empty or malformed input.
func ParseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
