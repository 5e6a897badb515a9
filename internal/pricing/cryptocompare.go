package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout = 10 * time.Second

	// DefaultBaseURL is the CryptoCompare historical price endpoint.
	DefaultBaseURL = "https://min-api.cryptocompare.com/data/pricehistorical"
)

// HTTPSource implements Source against a CryptoCompare-style historical
// price API.
type HTTPSource struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// SourceOption configures HTTPSource.
type SourceOption func(*HTTPSource)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) SourceOption {
	return func(s *HTTPSource) {
		s.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) SourceOption {
	return func(s *HTTPSource) {
		s.client = client
	}
}

// NewHTTPSource creates a new historical price source.
func NewHTTPSource(baseURL, apiKey string, opts ...SourceOption) *HTTPSource {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	s := &HTTPSource{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compile-time interface check.
var _ Source = (*HTTPSource)(nil)

// HistoricalRatio fetches the fsym/tsym ratio at ts (Unix seconds).
// Response shape: {"ETH": {"BTC": 0.067}}. A missing pair yields 0, which
// the oracle treats as a failed lookup.
func (s *HTTPSource) HistoricalRatio(ctx context.Context, fsym, tsym string, ts int64) (float64, error) {
	q := url.Values{}
	q.Set("fsym", fsym)
	q.Set("tsyms", tsym)
	q.Set("ts", strconv.FormatInt(ts, 10))
	q.Set("api_key", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("http status %d", resp.StatusCode)
	}

	var payload map[string]map[string]float64
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("decode price response: %w", err)
	}

	return payload[fsym][tsym], nil
}
