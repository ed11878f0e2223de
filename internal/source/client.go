// Package source fetches the risk snapshot from the prediction backend.
package source

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Path is the backend endpoint returning the full risk snapshot
const Path = "/riesgo-sismico"

// maxBody caps the snapshot size read from the backend
const maxBody = 32 << 20

// NetworkError is a transport failure or a non-2xx answer
type NetworkError struct {
	URL        string
	StatusCode int // 0 when the request never got a response
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Fetcher returns the raw snapshot body
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Client fetches the snapshot over HTTP
type Client struct {
	url    string
	client *http.Client
}

// NewHTTPClient builds the tuned client. A zero timeout leaves requests
// unbounded; cancellation then relies on the caller's context.
func NewHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// NewClient creates a client for the backend at baseURL
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		url:    strings.TrimRight(baseURL, "/") + Path,
		client: NewHTTPClient(timeout),
	}
}

// URL returns the snapshot endpoint
func (c *Client) URL() string { return c.url }

// Fetch performs one GET of the snapshot. There are no retries.
func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &NetworkError{URL: c.url, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: c.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &NetworkError{URL: c.url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &NetworkError{URL: c.url, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}

// FetcherFunc adapts a function to Fetcher
type FetcherFunc func(ctx context.Context) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context) ([]byte, error) { return f(ctx) }
