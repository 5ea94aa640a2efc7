// SPDX-License-Identifier: MPL-2.0

package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/modcrate/modcrate/internal/retry"
)

const (
	// DefaultBaseURL is the public repository used when none is configured.
	DefaultBaseURL = "https://thunderstore.io/"

	// DefaultTimeout bounds a single HTTP exchange.
	DefaultTimeout = 60 * time.Second

	// DefaultUserAgent is sent when WithUserAgent is not used.
	DefaultUserAgent = "modcrate/dev"

	// maxJSONResponseBytes is the upper bound on JSON API response size (10 MB).
	maxJSONResponseBytes = 10 << 20

	// maxErrorBodyBytes caps the response body quoted in a StatusError.
	maxErrorBodyBytes = 512
)

type (
	// Client talks to one repository. It is safe for concurrent use.
	Client struct {
		httpClient *http.Client
		baseURL    *url.URL
		token      string
		userAgent  string
		timeout    time.Duration
		retry      retry.Policy
		logger     *log.Logger
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)
)

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy configurations.
// The client's own timeout is used as is; WithTimeout does not modify it.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithToken sets the bearer token attached to authenticated calls.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRetry sets the policy used for idempotent calls.
func WithRetry(p retry.Policy) ClientOption {
	return func(c *Client) {
		c.retry = p
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a Client for the repository rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing repository URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("repository URL %q must use http or https", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	c := &Client{
		baseURL:   u,
		userAgent: DefaultUserAgent,
		timeout:   DefaultTimeout,
		retry:     retry.DefaultPolicy,
		logger:    log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c, nil
}

// BaseURL returns the repository root URL.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// HTTPClient returns the underlying HTTP client so chunk uploads share its
// transport and timeout.
func (c *Client) HTTPClient() *http.Client { return c.httpClient }

// RetryPolicy returns the policy used for idempotent calls.
func (c *Client) RetryPolicy() retry.Policy { return c.retry }

// UserAgent returns the User-Agent header value.
func (c *Client) UserAgent() string { return c.userAgent }

// endpoint joins escaped path elements onto the base URL. A trailing slash
// on the last element is kept, as the API requires it.
func (c *Client) endpoint(elem ...string) string {
	return c.baseURL.JoinPath(elem...).String()
}

// doJSON sends body (if non-nil) as JSON and returns the raw response.
func (c *Client) doJSON(ctx context.Context, method, reqURL string, body any) (*http.Response, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("request", "method", method, "url", redactURL(reqURL))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	c.logger.Debug("response", "method", method, "url", redactURL(reqURL), "status", resp.StatusCode)
	return resp, nil
}

// decodeJSON reads a size-capped JSON body into v.
func decodeJSON(r io.Reader, v any) error {
	if err := json.NewDecoder(io.LimitReader(r, maxJSONResponseBytes)).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// NewStatusError builds a StatusError quoting the start of the response body.
// It reads from resp.Body but does not close it.
func NewStatusError(op string, resp *http.Response) *StatusError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes)) //nolint:errcheck // Best-effort diagnostics.
	return &StatusError{
		Operation: op,
		Code:      resp.StatusCode,
		Body:      strings.TrimSpace(string(data)),
	}
}

// getJSON performs an idempotent GET with retries and decodes the response.
// A 404 response yields notFound when it is non-nil.
func (c *Client) getJSON(ctx context.Context, op, reqURL string, notFound error, v any) error {
	return retry.Do(ctx, c.retry, func(attempt int) error {
		if attempt > 0 {
			c.logger.Debug("retrying", "operation", op, "attempt", attempt+1)
		}
		resp, err := c.doJSON(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		defer func() { _ = resp.Body.Close() }() // read-only response body

		if resp.StatusCode == http.StatusNotFound && notFound != nil {
			return notFound
		}
		if resp.StatusCode != http.StatusOK {
			return NewStatusError(op, resp)
		}
		if err := decodeJSON(resp.Body, v); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	})
}

// redactURL strips query parameters and fragments from a URL for safe inclusion
// in logs and error messages. Chunk URLs are presigned and carry credentials in
// their query string.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid URL>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return u.String()
}

// RedactURL is the exported form of redactURL for other packages that log
// server-issued URLs.
func RedactURL(rawURL string) string { return redactURL(rawURL) }
