// Package client calls a running hookgen server.
package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tjfontaine/hookgen/internal/domain"
)

// Client is a thin HTTP client for the generate endpoint.
type Client struct {
	http *resty.Client
	path string
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends key as a bearer token.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if key != "" {
			c.http.SetAuthToken(key)
		}
	}
}

// WithPath overrides the generate path (default /api/generate).
func WithPath(path string) Option {
	return func(c *Client) {
		c.path = "/" + strings.TrimPrefix(path, "/")
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(d)
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimSuffix(baseURL, "/")).
			SetHeader("User-Agent", "hookctl/1.0"),
		path: "/api/generate",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type errorEnvelope struct {
	Error *domain.APIError `json:"error"`
}

// Generate posts req and returns the decoded result. Server errors come back
// as *domain.APIError with the response status.
func (c *Client) Generate(ctx context.Context, req *domain.GenerationRequest) (*domain.GenerationResult, error) {
	var (
		out    domain.GenerationResult
		errEnv errorEnvelope
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&errEnv).
		Post(c.path)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", c.path, err)
	}

	if resp.IsError() {
		if errEnv.Error != nil && errEnv.Error.Type != "" {
			return nil, errEnv.Error.WithStatusCode(resp.StatusCode())
		}
		return nil, fmt.Errorf("unexpected status %s", resp.Status())
	}
	return &out, nil
}
