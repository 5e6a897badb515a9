package stub

import (
	"context"

	"eth-risk-lab/internal/domain"
	"eth-risk-lab/internal/etherscan"
)

// Client implements etherscan.Client for testing. Pages are served in order
// per action; once exhausted, further requests return empty pages.
type Client struct {
	Pages map[etherscan.Action][][]domain.TransferRecord
	Err   error // returned on every call when set

	// Calls counts TransferPage invocations per action.
	Calls map[etherscan.Action]int
}

// NewClient creates a new stub explorer client.
func NewClient() *Client {
	return &Client{
		Pages: make(map[etherscan.Action][][]domain.TransferRecord),
		Calls: make(map[etherscan.Action]int),
	}
}

// AddPage appends a page to the stream for an action.
func (c *Client) AddPage(action etherscan.Action, page []domain.TransferRecord) {
	c.Pages[action] = append(c.Pages[action], page)
}

// TransferPage serves the next configured page for the action.
func (c *Client) TransferPage(_ context.Context, _ string, action etherscan.Action, _ int64) ([]domain.TransferRecord, error) {
	if c.Err != nil {
		return nil, c.Err
	}

	served := c.Calls[action]
	c.Calls[action]++

	pages := c.Pages[action]
	if served >= len(pages) {
		return nil, nil
	}
	return pages[served], nil
}

// Compile-time interface check.
var _ etherscan.Client = (*Client)(nil)
