// Package api implements the REST client for the construction-tracking
// backend. It only fetches and decodes; all interpretation of the loosely
// shaped records happens in the workitem package.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	serrors "github.com/buildcrew/sitetrack/internal/errors"
	"github.com/buildcrew/sitetrack/internal/metrics"
)

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Authenticator applies authentication to requests.
type Authenticator interface {
	Apply(req *http.Request) error
}

// TokenAuth authenticates with a static bearer token.
type TokenAuth struct {
	Token string
}

// Apply sets the Authorization header.
func (a *TokenAuth) Apply(req *http.Request) error {
	if a.Token == "" {
		return fmt.Errorf("empty API token")
	}
	req.Header.Set("Authorization", "Bearer "+a.Token)
	return nil
}

// Client wraps the tracking backend's REST API.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	auth       Authenticator
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewClient creates a new backend API client.
func NewClient(baseURL string, auth Authenticator, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		auth:       auth,
		logger:     logger.With().Str("component", "api").Logger(),
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(hc HTTPClient) {
	c.httpClient = hc
}

// SetMetrics enables per-endpoint fetch metrics.
func (c *Client) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// record tracks a fetch outcome under a fixed endpoint label (no ids, to
// keep metric cardinality bounded).
func (c *Client) record(endpoint string, err error) {
	if c.metrics == nil {
		return
	}
	if err != nil {
		c.metrics.RecordFetch(endpoint, "error")
		c.metrics.RecordFetchError(endpoint)
		return
	}
	c.metrics.RecordFetch(endpoint, "ok")
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// get executes an authenticated GET and decodes the JSON response into v.
// Non-2xx responses become *errors.APIError carrying the status code, so
// callers can branch on a tagged not-found instead of catching blindly.
func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if c.auth != nil {
		if err := c.auth.Apply(req); err != nil {
			return fmt.Errorf("applying auth: %w", err)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return serrors.NewAPIError(path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

func escape(segment string) string {
	return url.PathEscape(segment)
}
