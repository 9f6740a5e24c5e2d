// Package explorer queries a public block explorer for address balances.
package explorer

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

const (
	// DefaultBaseURL is the haskoin-store API base for Bitcoin mainnet.
	DefaultBaseURL = "https://api.blockchain.info/haskoin-store/btc"

	// httpTimeout is the default HTTP request timeout.
	httpTimeout = 30 * time.Second

	// maxResponseBody is the maximum response body size to read (1 MB).
	maxResponseBody = 1 << 20

	// limiterKey is the rate limiter bucket used for every request.
	limiterKey = "haskoin"
)

// Sentinel errors for the explorer API.
var (
	// ErrAPIError indicates the explorer returned an unusable response.
	ErrAPIError = &linkerr.LinkError{
		Code:     "EXPLORER_API_ERROR",
		Message:  "block explorer returned an error",
		ExitCode: linkerr.ExitUnavailable,
	}

	// ErrRateLimited indicates the explorer rate limit was exceeded.
	ErrRateLimited = &linkerr.LinkError{
		Code:     "EXPLORER_RATE_LIMITED",
		Message:  "block explorer rate limit exceeded",
		ExitCode: linkerr.ExitUnavailable,
	}
)

// Client is a haskoin-store API client.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// ClientOptions configures the explorer client.
type ClientOptions struct {
	// BaseURL overrides the default API URL (useful for testing).
	BaseURL string
	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
	// RateLimiter overrides the default limiter.
	RateLimiter *RateLimiter
}

// NewClient creates a new explorer client.
func NewClient(opts *ClientOptions) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: httpTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		rateLimiter: DefaultRateLimiter(),
	}

	if opts != nil {
		if opts.BaseURL != "" {
			c.baseURL = strings.TrimRight(opts.BaseURL, "/")
		}
		if opts.HTTPClient != nil {
			c.httpClient = opts.HTTPClient
		}
		if opts.RateLimiter != nil {
			c.rateLimiter = opts.RateLimiter
		}
	}

	return c
}

// BaseURL returns the API base the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// get performs a GET against path below the base URL and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	if err := c.rateLimiter.Wait(ctx, limiterKey); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := c.baseURL + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq) //nolint:gosec // URL is built from config and an escaped address
	if err != nil {
		return linkerr.WithCause(linkerr.ErrNetworkError, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return linkerr.WithDetails(ErrRateLimited, map[string]string{
			"status":      fmt.Sprintf("%d", resp.StatusCode),
			"retry_after": resp.Header.Get("Retry-After"),
		})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return linkerr.WithDetails(ErrAPIError, map[string]string{
			"status": fmt.Sprintf("%d", resp.StatusCode),
			"body":   truncateBody(string(body), 512),
		})
	}

	if err := json.Unmarshal(body, out); err != nil {
		return linkerr.WithDetails(ErrAPIError, map[string]string{
			"parse": err.Error(),
			"body":  truncateBody(string(body), 256),
		})
	}
	return nil
}

func addressPath(address string) string {
	return "/address/" + url.PathEscape(address) + "/balance"
}

// truncateBody truncates a string to maxLen characters.
func truncateBody(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
