// Package client fetches comment fragments from the comments endpoint.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ErrAbsoluteEndpoint is returned when an endpoint carries its own scheme or host.
var ErrAbsoluteEndpoint = errors.New("endpoint must be a relative path")

// Options tunes how fragments are fetched.
type Options struct {
	// StrictStatus treats any status >= 400 as a failure instead of
	// returning the error page body as the fragment.
	StrictStatus bool
	UserAgent    string
}

// Client is an HTTP client for the comments endpoint.
type Client struct {
	baseURL    string
	opts       Options
	httpClient *http.Client
}

// New creates a new fragment client rooted at baseURL.
// The underlying http.Client has no timeout; cancel through the context.
func New(baseURL string, opts Options) *Client {
	return &Client{
		baseURL:    baseURL,
		opts:       opts,
		httpClient: &http.Client{},
	}
}

// Fetch performs a GET against endpoint and returns the body as text.
func (c *Client) Fetch(ctx context.Context, endpoint string) (string, error) {
	target, err := ResolveEndpoint(c.baseURL, endpoint)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/html, text/plain;q=0.9, */*;q=0.1")
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if c.opts.StrictStatus && resp.StatusCode >= 400 {
		return "", fmt.Errorf("server error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	return string(body), nil
}

// ResolveEndpoint joins a relative endpoint onto baseURL.
func ResolveEndpoint(baseURL, endpoint string) (string, error) {
	ref, err := ParseEndpoint(endpoint)
	if err != nil {
		return "", err
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("base URL %q must include scheme and host", baseURL)
	}

	return base.ResolveReference(ref).String(), nil
}

// ParseEndpoint parses endpoint and rejects anything that names its own
// host. A schemeless "host/path" string such as "example.com/api/comment"
// is accepted as a path, which is how a browser would treat it too.
func ParseEndpoint(endpoint string) (*url.URL, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if strings.HasPrefix(endpoint, "//") {
		return nil, fmt.Errorf("%w: %q", ErrAbsoluteEndpoint, endpoint)
	}

	ref, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint: %w", err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return nil, fmt.Errorf("%w: %q", ErrAbsoluteEndpoint, endpoint)
	}

	return ref, nil
}
