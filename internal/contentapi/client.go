// Package contentapi reads public posts from a third-party content API that
// answers GET {base}/{id} with {"success": bool, "tweet": {...}}.
package contentapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mikequentel/sheetposter/internal/model"
)

const defaultTimeout = 10 * time.Second

// HTTPStatusError captures non-2xx upstream responses.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("contentapi: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("contentapi: base URL must not be empty")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetPost fetches one post. The success flag is returned as-is; callers
// decide what an unsuccessful answer means.
func (c *Client) GetPost(ctx context.Context, id string) (*model.SourcePostResp, error) {
	u := c.baseURL + "/" + url.PathEscape(id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("contentapi: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contentapi: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	log.Debug().Str("id", id).Int("statusCode", res.StatusCode).Dur("duration", time.Since(start)).Msg("Content API response")

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{StatusCode: res.StatusCode, URL: u, Body: string(buf)}
	}

	var out model.SourcePostResp
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("contentapi: decode response: %w", err)
	}
	return &out, nil
}
