package clob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	EndpointCreateApiKey     = "/auth/api-key"
	EndpointDeriveApiKey     = "/auth/derive-api-key"
	EndpointGetApiKeys       = "/auth/api-keys"
	EndpointBalanceAllowance = "/balance-allowance"

	maxErrorBody = 256
)

// Client is a minimal transport for the CLOB auth and balance endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return NewClientWithHTTP(baseURL, &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     90 * time.Second,
		},
		Timeout: timeout,
	})
}

func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = "https://clob.polymarket.com"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Response is a raw upstream reply. Non-2xx statuses are not errors at this level.
type Response struct {
	Status int
	Body   []byte
}

func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// APIError is a non-2xx reply surfaced as an error.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

func (r *Response) Err(method, path string) *APIError {
	return &APIError{Method: method, Path: path, Status: r.Status, Body: Truncate(string(r.Body), maxErrorBody)}
}

// Do sends one request. pathAndQuery is appended to the base URL verbatim.
func (c *Client) Do(ctx context.Context, method, pathAndQuery string, header http.Header, body []byte) (*Response, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+pathAndQuery, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vals := range header {
		// keep POLY_* names byte-exact
		req.Header[k] = append(req.Header[k], vals...)
	}
	req.Header.Set("Accept", "application/json")
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, pathAndQuery, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", method, pathAndQuery, err)
	}
	return &Response{Status: resp.StatusCode, Body: data}, nil
}

// Truncate shortens upstream bodies before they reach logs or error messages.
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	// back off to a rune start so multi-byte characters are never split
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}
