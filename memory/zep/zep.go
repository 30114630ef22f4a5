// Package zep implements conversation memory backed by a Zep server's
// session memory API.
package zep

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	l3agi "github.com/psyuktha/L3AGI"
)

// Message is one turn stored in a Zep session.
type Message struct {
	UUID      string         `json:"uuid,omitempty"`
	CreatedAt string         `json:"created_at,omitempty"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Summary is Zep's rolling summary of older turns.
type Summary struct {
	Content string `json:"content"`
}

type memoryResponse struct {
	Messages []Message `json:"messages"`
	Summary  *Summary  `json:"summary,omitempty"`
}

type memoryRequest struct {
	Messages []Message `json:"messages"`
}

// Client talks to the Zep REST API.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithRetries sets how many times failed requests are retried.
func WithRetries(n int) ClientOption {
	return func(c *Client) { c.http.SetRetryCount(n) }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a client for the Zep server at baseURL. apiKey may be empty
// for servers without authentication.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	h := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(retryCondition)
	if apiKey != "" {
		h.SetAuthToken(apiKey)
	}
	c := &Client{http: h, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests
}

// GetMemory returns the last lastN messages of a session, oldest first, and
// its summary if any. A session that does not exist yet has no memory.
func (c *Client) GetMemory(ctx context.Context, sessionID string, lastN int) ([]Message, string, error) {
	var out memoryResponse
	req := c.http.R().
		SetContext(ctx).
		SetPathParam("session", sessionID).
		SetResult(&out)
	if lastN > 0 {
		req.SetQueryParam("lastn", fmt.Sprint(lastN))
	}
	resp, err := req.Get("/api/v1/sessions/{session}/memory")
	if err != nil {
		return nil, "", fmt.Errorf("zep: get memory: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, "", nil
	}
	if resp.IsError() {
		return nil, "", fmt.Errorf("zep: get memory: %w", &l3agi.ErrHTTP{Status: resp.StatusCode(), Body: resp.String()})
	}
	var summary string
	if out.Summary != nil {
		summary = out.Summary.Content
	}
	return out.Messages, summary, nil
}

// AddMemory appends messages to a session, creating it if needed.
func (c *Client) AddMemory(ctx context.Context, sessionID string, msgs []Message) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("session", sessionID).
		SetBody(memoryRequest{Messages: msgs}).
		Post("/api/v1/sessions/{session}/memory")
	if err != nil {
		return fmt.Errorf("zep: add memory: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("zep: add memory: %w", &l3agi.ErrHTTP{Status: resp.StatusCode(), Body: resp.String()})
	}
	c.logger.Debug("zep memory added", "session_id", sessionID, "messages", len(msgs))
	return nil
}

// DeleteMemory removes all messages of a session.
func (c *Client) DeleteMemory(ctx context.Context, sessionID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("session", sessionID).
		Delete("/api/v1/sessions/{session}/memory")
	if err != nil {
		return fmt.Errorf("zep: delete memory: %w", err)
	}
	if resp.IsError() && resp.StatusCode() != http.StatusNotFound {
		return fmt.Errorf("zep: delete memory: %w", &l3agi.ErrHTTP{Status: resp.StatusCode(), Body: resp.String()})
	}
	return nil
}
