// Package aptos is a minimal Aptos fullnode REST client. It covers the two
// reads the service needs: ledger info for health reporting and the recent
// transaction window for the compliance monitor.
package aptos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultNodeURL = "https://fullnode.testnet.aptoslabs.com/v1"
	defaultTimeout = 10 * time.Second
)

type Config struct {
	// Optional configuration.
	NodeURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

func (c *Config) Validate() error {
	if c.NodeURL == "" {
		c.NodeURL = defaultNodeURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	return nil
}

type Client struct {
	log *slog.Logger
	cfg Config
}

func NewClient(log *slog.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, errors.New("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{log: log, cfg: cfg}, nil
}

// LedgerInfo is the fullnode index response.
type LedgerInfo struct {
	ChainID         int    `json:"chain_id"`
	LedgerVersion   string `json:"ledger_version"`
	LedgerTimestamp string `json:"ledger_timestamp"`
}

// TransactionPayload is the entry-function payload of a user transaction.
type TransactionPayload struct {
	Type      string            `json:"type"`
	Function  string            `json:"function"`
	Arguments []json.RawMessage `json:"arguments"`
}

// Transaction is the subset of the fullnode transaction shape the monitor
// evaluates. Numeric fields arrive as decimal strings on the wire.
type Transaction struct {
	Type     string              `json:"type"`
	Version  string              `json:"version"`
	Hash     string              `json:"hash"`
	Success  bool                `json:"success"`
	Sender   string              `json:"sender"`
	GasUsed  string              `json:"gas_used"`
	Payload  *TransactionPayload `json:"payload"`
	VMStatus string              `json:"vm_status"`
}

// IsUser reports whether this is a user-submitted transaction.
func (t Transaction) IsUser() bool {
	return t.Type == "user_transaction"
}

// GasUsedValue parses the gas_used decimal string, returning 0 when absent.
func (t Transaction) GasUsedValue() uint64 {
	n, err := strconv.ParseUint(t.GasUsed, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// LedgerInfo fetches the chain's current ledger state.
func (c *Client) LedgerInfo(ctx context.Context) (*LedgerInfo, error) {
	var info LedgerInfo
	if err := c.get(ctx, "/", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// RecentTransactions fetches the most recent committed transactions.
func (c *Client) RecentTransactions(ctx context.Context, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 25
	}
	var txs []Transaction
	if err := c.get(ctx, fmt.Sprintf("/transactions?limit=%d", limit), &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.NodeURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(data), 200))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
