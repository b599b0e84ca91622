// Package fetch abstracts outbound HTTP for the bucket lister, the OpenAIP
// importer and the URL checker so each can be tested without a network.
package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fulmenhq/aerorepo/pkg/buildinfo"
)

// HTTPFetcher abstracts HTTP calls for testability
type HTTPFetcher interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewClient returns the production HTTP client. Redirects are followed
// (net/http default, including for HEAD).
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// Get issues a GET request carrying the aerorepo user agent.
func Get(ctx context.Context, f HTTPFetcher, url string) (*http.Response, error) {
	return send(ctx, f, http.MethodGet, url)
}

// Head issues a HEAD request carrying the aerorepo user agent.
func Head(ctx context.Context, f HTTPFetcher, url string) (*http.Response, error) {
	return send(ctx, f, http.MethodHead, url)
}

// GetBody fetches url and returns its body, failing on any non-2xx status.
func GetBody(ctx context.Context, f HTTPFetcher, url string) ([]byte, error) {
	resp, err := Get(ctx, f, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if !IsSuccess(resp.StatusCode) {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

// IsSuccess reports whether code is 2xx.
func IsSuccess(code int) bool {
	return code >= 200 && code < 300
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

func send(ctx context.Context, f HTTPFetcher, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request for %s: %w", method, url, err)
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	return f.Do(req)
}

type mockResponse struct {
	status int
	body   string
}

// MockHTTPFetcher simulates HTTP responses for testing. Unknown URLs get a 404.
type MockHTTPFetcher struct {
	mu        sync.Mutex
	responses map[string]mockResponse
	errors    map[string]error
	requests  []string
}

// NewMockHTTPFetcher creates a mock HTTP fetcher
func NewMockHTTPFetcher() *MockHTTPFetcher {
	return &MockHTTPFetcher{
		responses: make(map[string]mockResponse),
		errors:    make(map[string]error),
	}
}

// AddResponse registers a mock response for a URL
func (m *MockHTTPFetcher) AddResponse(url string, statusCode int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[url] = mockResponse{status: statusCode, body: body}
}

// AddError registers a mock error for a URL
func (m *MockHTTPFetcher) AddError(url string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[url] = err
}

// Requests returns "METHOD url" for every request seen, in order.
func (m *MockHTTPFetcher) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

func (m *MockHTTPFetcher) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	url := req.URL.String()
	m.requests = append(m.requests, req.Method+" "+url)

	if err, ok := m.errors[url]; ok {
		return nil, err
	}
	r, ok := m.responses[url]
	if !ok {
		r = mockResponse{status: http.StatusNotFound, body: "Not Found"}
	}
	body := r.body
	if req.Method == http.MethodHead {
		body = ""
	}
	return &http.Response{
		StatusCode: r.status,
		Status:     fmt.Sprintf("%d %s", r.status, http.StatusText(r.status)),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}
