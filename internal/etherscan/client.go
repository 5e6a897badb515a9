// Package etherscan provides an HTTP client for an Etherscan-compatible
// block-explorer account API.
package etherscan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"eth-risk-lab/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0

	// DefaultBaseURL is the public Etherscan API endpoint.
	DefaultBaseURL = "https://api.etherscan.io/api"

	// MaxPageSize is the explorer's max-records-per-page constant. A page
	// shorter than this signals the last page of an account's history.
	MaxPageSize = 10000

	// EndBlock is the open upper bound for history queries.
	EndBlock = 99999999
)

// Action selects which transfer stream to fetch for an account.
type Action string

// Supported account actions.
const (
	ActionNative Action = "txlist"  // native value transfers
	ActionToken  Action = "tokentx" // ERC-20 token transfers
)

// Client fetches one page of an address's transfer history.
type Client interface {
	// TransferPage requests transfers for address starting at startBlock,
	// sorted ascending. A "No transactions found" response is a valid empty
	// page, not an error.
	TransferPage(ctx context.Context, address string, action Action, startBlock int64) ([]domain.TransferRecord, error)
}

// APIError is a non-success status returned by the explorer API.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("explorer API error: %s", e.Message)
}

// HTTPClient implements Client against an Etherscan-compatible HTTP API.
type HTTPClient struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts for transport-level failures.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new explorer API client.
func NewHTTPClient(baseURL, apiKey string, opts ...ClientOption) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &HTTPClient{
		baseURL:     baseURL,
		apiKey:      apiKey,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// accountResponse is the explorer API envelope. Result is a record array on
// success and a plain string on some error responses, so it is decoded lazily.
type accountResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// TransferPage requests one page of transfers for an address.
func (c *HTTPClient) TransferPage(ctx context.Context, address string, action Action, startBlock int64) ([]domain.TransferRecord, error) {
	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", string(action))
	q.Set("address", address)
	q.Set("startblock", strconv.FormatInt(startBlock, 10))
	q.Set("endblock", strconv.Itoa(EndBlock))
	q.Set("sort", "asc")
	q.Set("apikey", c.apiKey)

	body, err := c.get(ctx, c.baseURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp accountResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode explorer response: %w", err)
	}

	if resp.Status == "1" {
		var records []domain.TransferRecord
		if err := json.Unmarshal(resp.Result, &records); err != nil {
			return nil, fmt.Errorf("decode transfer records: %w", err)
		}
		return records, nil
	}

	// Empty history is a valid result for a real address.
	if strings.Contains(resp.Message, "No transactions found") {
		return nil, nil
	}

	return nil, &APIError{Message: resp.Message}
}

// get performs a GET with retries and exponential backoff on transport or
// server-side failures. API-level status errors are never retried.
func (c *HTTPClient) get(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	delay := c.retryDelay

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response body: %w", err)
			continue
		}

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		return body, nil
	}

	return nil, fmt.Errorf("explorer request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}
