// Package ondemand is a thin transport wrapper for the On-Demand.io chat
// API. It exposes the two operations the workflow engine needs: creating a
// chat session and submitting a sync query to a named model endpoint within
// that session. The API defines no session teardown; sessions expire
// server-side.
package ondemand

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/movelabs/moveguard/internal/metrics"
)

const (
	defaultBaseURL = "https://api.on-demand.io/chat/v1"

	// Session creation is a lightweight round trip; a model query is heavy
	// and gets a substantially longer allowance.
	defaultSessionTimeout = 60 * time.Second
	defaultQueryTimeout   = 120 * time.Second
)

// defaultPluginIDs are the plugins attached to every query.
var defaultPluginIDs = []string{"plugin-1712327325", "plugin-1713962163"}

type Config struct {
	APIKey string

	// Optional configuration.
	BaseURL        string
	SessionTimeout time.Duration
	QueryTimeout   time.Duration
	PluginIDs      []string
	HTTPClient     *http.Client
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("api key is required")
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = defaultSessionTimeout
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = defaultQueryTimeout
	}
	if c.PluginIDs == nil {
		c.PluginIDs = defaultPluginIDs
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

type createSessionRequest struct {
	PluginIDs      []string `json:"pluginIds"`
	ExternalUserID string   `json:"externalUserId"`
}

type createSessionResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// CreateSession opens a new chat session and returns its id.
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.SessionTimeout)
	defer cancel()

	body := createSessionRequest{
		PluginIDs:      []string{},
		ExternalUserID: "workflow-" + uuid.NewString(),
	}

	var resp createSessionResponse
	err := c.post(ctx, "/sessions", body, &resp)
	if err == nil && resp.Data.ID == "" {
		err = errors.New("response envelope is missing session id")
	}
	metrics.RecordOnDemandRequest("create_session", err)
	if err != nil {
		return "", err
	}

	c.log.Debug("ondemand: session created", "session_id", resp.Data.ID)
	return resp.Data.ID, nil
}

type submitQueryRequest struct {
	EndpointID   string   `json:"endpointId"`
	Query        string   `json:"query"`
	PluginIDs    []string `json:"pluginIds"`
	ResponseMode string   `json:"responseMode"`
}

type submitQueryResponse struct {
	Data struct {
		Answer string `json:"answer"`
	} `json:"data"`
}

// SubmitQuery submits a prompt to the given model endpoint within a session
// and returns the raw textual answer.
func (c *Client) SubmitQuery(ctx context.Context, sessionID, endpointID, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()

	body := submitQueryRequest{
		EndpointID:   endpointID,
		Query:        prompt,
		PluginIDs:    c.cfg.PluginIDs,
		ResponseMode: "sync",
	}

	start := time.Now()
	var resp submitQueryResponse
	err := c.post(ctx, "/sessions/"+sessionID+"/query", body, &resp)
	if err == nil && resp.Data.Answer == "" {
		err = errors.New("response envelope is missing answer")
	}
	metrics.RecordOnDemandRequest("submit_query", err)
	if err != nil {
		return "", err
	}

	c.log.Debug("ondemand: query completed",
		"session_id", sessionID,
		"endpoint", endpointID,
		"duration", time.Since(start),
		"answer_len", len(resp.Data.Answer))
	return resp.Data.Answer, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.cfg.APIKey)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(data), 200))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response envelope: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
