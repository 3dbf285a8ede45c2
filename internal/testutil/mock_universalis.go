// Package testutil provides testing utilities for the market-list packages.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock provider endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockListing is one market board listing served by the mock.
type MockListing struct {
	World string
	Price string
	Qty   int
}

// MockUniversalis is a configurable mock of the Universalis API.
type MockUniversalis struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
	inFlight          int
	maxInFlight       int
}

// NewMockUniversalis creates a new mock provider server. Unknown item paths
// answer with an empty listing set.
func NewMockUniversalis() *MockUniversalis {
	mock := &MockUniversalis{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.inFlight++
		if mock.inFlight > mock.maxInFlight {
			mock.maxInFlight = mock.inFlight
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		defer func() {
			mock.mu.Lock()
			mock.inFlight--
			mock.mu.Unlock()
		}()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockUniversalis) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockUniversalis) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockUniversalis) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestHeader = nil
	m.maxInFlight = 0
}

// SetHandler sets a custom handler for a specific path.
func (m *MockUniversalis) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockUniversalis) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetListings serves the given listings for an item within a scope.
func (m *MockUniversalis) SetListings(scope string, itemID uint32, listings ...MockListing) {
	m.SetResponse(ItemPath(scope, itemID), NewListingsResponse(itemID, listings...))
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockUniversalis) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetLastRequestHeader returns the headers of the most recent request.
func (m *MockUniversalis) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader.Clone()
}

// GetMaxInFlight returns the highest number of concurrent requests seen.
func (m *MockUniversalis) GetMaxInFlight() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxInFlight
}

// defaultHandler answers every item with no listings.
func (m *MockUniversalis) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	fmt.Fprintf(w, `{"itemID":%s,"listings":[]}`, id)
}

// ItemPath returns the provider path for an item within a scope.
func ItemPath(scope string, itemID uint32) string {
	return fmt.Sprintf("/api/v2/%s/%d", scope, itemID)
}

// NewListingsResponse creates a 200 OK response carrying the listings.
func NewListingsResponse(itemID uint32, listings ...MockListing) MockResponse {
	var b strings.Builder
	b.WriteString(`{"itemID":`)
	b.WriteString(strconv.FormatUint(uint64(itemID), 10))
	b.WriteString(`,"listings":[`)
	for i, l := range listings {
		if i > 0 {
			b.WriteByte(',')
		}
		qty := l.Qty
		if qty == 0 {
			qty = 1
		}
		fmt.Fprintf(&b, `{"pricePerUnit":%s,"quantity":%d,"worldName":%q,"hq":false}`, l.Price, qty, l.World)
	}
	b.WriteString(`]}`)

	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       b.String(),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter string) MockResponse {
	headers := map[string]string{
		"Content-Type": "application/json; charset=utf-8",
	}
	if retryAfter != "" {
		headers["Retry-After"] = retryAfter
	}
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Too Many Requests"}`,
		Headers:    headers,
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewNotFoundResponse creates a 404 response, as returned for unknown items
// or scopes.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"error": "Not Found"}`,
	}
}
