// Package remote is the HTTP client for the remote progress authority.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ssaritan18/Project-1-sub000/internal/domain"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 1 << 20

// Client talks to the authority over JSON/HTTP.
//
//	POST {endpoint}/v1/ops/{kind}   body: RemoteOp, header Idempotency-Key
//	GET  {endpoint}/v1/health
type Client struct {
	endpoint  string
	token     string
	userAgent string
	http      *http.Client
}

// Config holds client settings.
type Config struct {
	Endpoint string
	Token    string
	Timeout  time.Duration
	Version  string
}

// New creates a client. The endpoint must be an absolute http(s) URL.
func New(cfg Config) (*Client, error) {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("remote endpoint must be an http(s) URL, got %q", cfg.Endpoint)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	return &Client{
		endpoint:  endpoint,
		token:     cfg.Token,
		userAgent: "focus/" + version,
		http:      &http.Client{Timeout: timeout},
	}, nil
}

// Endpoint returns the base URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Do sends one op. Transport failures, timeouts and non-2xx statuses come
// back wrapping ErrRemoteUnavailable, except 409 and 422 which wrap
// ErrRemoteRejected: the authority understood the op and refused it.
func (c *Client) Do(ctx context.Context, op domain.RemoteOp) (domain.RemoteResult, error) {
	body, err := json.Marshal(op)
	if err != nil {
		return domain.RemoteResult{}, fmt.Errorf("encode op: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/ops/"+string(op.Kind), bytes.NewReader(body))
	if err != nil {
		return domain.RemoteResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if op.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", op.IdempotencyKey)
	}
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.RemoteResult{}, fmt.Errorf("%w: %s: %v", domain.ErrRemoteUnavailable, op.Kind, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.RemoteResult{}, fmt.Errorf("%w: read %s response: %v", domain.ErrRemoteUnavailable, op.Kind, err)
	}

	switch {
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity:
		return domain.RemoteResult{}, fmt.Errorf("%w: %s: %s", domain.ErrRemoteRejected, op.Kind, errorMessage(data, resp.Status))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return domain.RemoteResult{}, fmt.Errorf("%w: %s: %s", domain.ErrRemoteUnavailable, op.Kind, errorMessage(data, resp.Status))
	}

	var result domain.RemoteResult
	if len(bytes.TrimSpace(data)) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return domain.RemoteResult{}, fmt.Errorf("%w: decode %s response: %v", domain.ErrRemoteUnavailable, op.Kind, err)
	}
	return result, nil
}

// Ping checks the authority's health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/v1/health", nil)
	if err != nil {
		return err
	}
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health returned %s", domain.ErrRemoteUnavailable, resp.Status)
	}
	return nil
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// errorMessage extracts {"error": {"message": ...}} or {"error": "..."}
// from a response body, falling back to the status line.
func errorMessage(data []byte, status string) string {
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}
	var flat struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &flat) == nil && flat.Error != "" {
		return flat.Error
	}
	return status
}

var _ domain.Authority = (*Client)(nil)
