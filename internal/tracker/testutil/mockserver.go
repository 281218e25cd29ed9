// Package testutil provides an in-process fake of the issue tracker REST API
// for client, adapter and CLI tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// RecordedRequest stores information about a request made to the mock server.
type RecordedRequest struct {
	Method  string
	Path    string
	Query   string
	Headers http.Header
	Body    []byte
}

// MockResponse represents a configured response for the mock server.
type MockResponse struct {
	StatusCode int
	Body       interface{}
	RawBody    []byte
	Headers    map[string]string
}

// MockTrackerServer records requests and answers them either from
// per-path overrides or from a route handler.
type MockTrackerServer struct {
	Server *httptest.Server
	mu     sync.RWMutex

	requests []RecordedRequest

	responses      map[string]MockResponse // "METHOD path" or "path" -> response
	defaultHandler func(w http.ResponseWriter, r *http.Request)

	apiKeyHeader string
	apiKey       string
	serverError  bool
}

// NewMockTrackerServer creates a new base mock server.
func NewMockTrackerServer() *MockTrackerServer {
	m := &MockTrackerServer{
		requests:  []RecordedRequest{},
		responses: make(map[string]MockResponse),
	}

	m.Server = httptest.NewServer(http.HandlerFunc(m.handleRequest))
	return m
}

func (m *MockTrackerServer) handleRequest(w http.ResponseWriter, r *http.Request) {
	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
		_ = r.Body.Close()
	}

	m.mu.Lock()
	m.requests = append(m.requests, RecordedRequest{
		Method:  r.Method,
		Path:    r.URL.Path,
		Query:   r.URL.RawQuery,
		Headers: r.Header.Clone(),
		Body:    body,
	})
	requiredKey, keyHeader, serverError := m.apiKey, m.apiKeyHeader, m.serverError
	resp, found := m.responses[r.Method+" "+r.URL.Path]
	if !found {
		resp, found = m.responses[r.URL.Path]
	}
	handler := m.defaultHandler
	m.mu.Unlock()

	if requiredKey != "" && r.Header.Get(keyHeader) != requiredKey {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	if serverError {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	if found {
		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		status := resp.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		if resp.RawBody != nil {
			w.WriteHeader(status)
			_, _ = w.Write(resp.RawBody)
			return
		}
		writeJSON(w, status, resp.Body)
		return
	}

	if handler != nil {
		r.Body = io.NopCloser(bytes.NewReader(body))
		handler(w, r)
		return
	}

	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
}

// URL returns the mock server URL.
func (m *MockTrackerServer) URL() string {
	return m.Server.URL
}

// Close shuts down the mock server.
func (m *MockTrackerServer) Close() {
	m.Server.Close()
}

// SetResponse configures a JSON response for a path. The path may be
// prefixed with a method ("PUT /issues/1.json") to match only that method.
func (m *MockTrackerServer) SetResponse(path string, statusCode int, body interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[path] = MockResponse{StatusCode: statusCode, Body: body}
}

// SetRawResponse configures a non-JSON response body for a path.
func (m *MockTrackerServer) SetRawResponse(path string, statusCode int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[path] = MockResponse{StatusCode: statusCode, RawBody: []byte(body)}
}

// SetDefaultHandler sets a custom handler for unmatched requests.
func (m *MockTrackerServer) SetDefaultHandler(handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultHandler = handler
}

// RequireAPIKey makes the server answer 401 unless header carries key.
func (m *MockTrackerServer) RequireAPIKey(header, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apiKeyHeader = header
	m.apiKey = key
}

// SetServerError enables/disables 500 Internal Server Error responses.
func (m *MockTrackerServer) SetServerError(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.serverError = enabled
}

// GetRequests returns all recorded requests.
func (m *MockTrackerServer) GetRequests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]RecordedRequest, len(m.requests))
	copy(result, m.requests)
	return result
}

// GetRequestCount returns the number of recorded requests.
func (m *MockTrackerServer) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// ClearRequests clears all recorded requests.
func (m *MockTrackerServer) ClearRequests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = []RecordedRequest{}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
