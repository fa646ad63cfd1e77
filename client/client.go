// Package client provides the HTTP client shared by all backends.
//
// The client performs no retries of its own; retry policy belongs to the
// check runner. Certificate validation and the per-request timeout are
// decided per call from a FetchConfig snapshot, never cached at
// construction time, so flag toggles apply on the very next fetch.
package client

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/dnscache"
)

const (
	defaultTimeout   = 20 * time.Second
	defaultUserAgent = "relwatch"
	maxErrorBody     = 1024
)

// FetchConfig is the per-call network configuration, derived from the
// project being checked.
type FetchConfig struct {
	// Insecure skips TLS certificate validation for this request.
	Insecure bool

	// Timeout bounds the whole round trip. Zero means the client default.
	Timeout time.Duration
}

// HTTPError represents a non-2xx upstream response.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// IsNotFound returns true if the error represents a 404 response.
func (e *HTTPError) IsNotFound() bool {
	return e.StatusCode == 404
}

// Client is an HTTP client for upstream version sources.
type Client struct {
	transport http.RoundTripper
	insecure  http.RoundTripper
	userAgent string
	timeout   time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithTransport replaces both transports. Used by tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = rt
		c.insecure = rt
	}
}

// DefaultClient returns a client with sensible defaults:
// - 20s per-request timeout
// - DNS-cached dialer
// - no retries (the check runner owns retry policy)
func DefaultClient() *Client {
	return NewClient()
}

// NewClient creates a new client with the given options.
func NewClient(opts ...Option) *Client {
	verified := newTransport(nil)
	skipVerify := newTransport(&tls.Config{InsecureSkipVerify: true})

	c := &Client{
		transport: verified,
		insecure:  skipVerify,
		userAgent: defaultUserAgent,
		timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newTransport builds a pooled transport with DNS caching.
func newTransport(tlsCfg *tls.Config) *http.Transport {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			resolver.Refresh(true)
		}
	}()

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ips, err := resolver.LookupHost(ctx, host)
			if err != nil {
				return nil, err
			}
			for _, ip := range ips {
				conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
				if err == nil {
					return conn, nil
				}
			}
			return nil, fmt.Errorf("failed to dial any resolved IP for %s", host)
		},
		TLSClientConfig:       tlsCfg,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// HTTPClient returns an *http.Client honoring cfg, for libraries that take
// a client rather than a request (e.g. the GitHub SDK).
func (c *Client) HTTPClient(cfg FetchConfig) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	rt := c.transport
	if cfg.Insecure {
		rt = c.insecure
	}
	return &http.Client{Transport: rt, Timeout: timeout}
}

func (c *Client) do(ctx context.Context, url string, cfg FetchConfig, accept string) (*http.Response, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)

	resp, err := c.HTTPClient(cfg).Do(req)
	if err != nil {
		cancel()
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		cancel()
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: url, Body: string(body)}
	}

	resp.Body = &cancelReadCloser{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// GetBody fetches url and returns the response body.
func (c *Client) GetBody(ctx context.Context, url string, cfg FetchConfig) ([]byte, error) {
	resp, err := c.do(ctx, url, cfg, "*/*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}

// GetJSON fetches url and decodes the JSON response into v.
func (c *Client) GetJSON(ctx context.Context, url string, cfg FetchConfig, v any) error {
	resp, err := c.do(ctx, url, cfg, "application/json")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return json.NewDecoder(resp.Body).Decode(v)
}

// GetXML fetches url and decodes the XML response into v.
func (c *Client) GetXML(ctx context.Context, url string, cfg FetchConfig, v any) error {
	resp, err := c.do(ctx, url, cfg, "application/rss+xml, application/xml, text/xml")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return xml.NewDecoder(resp.Body).Decode(v)
}
