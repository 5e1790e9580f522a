// Package testutil provides a fake Airtable list-records server for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultPageSize is the page size Airtable uses when none is requested.
const DefaultPageSize = 100

// Record is a fake upstream record.
type Record struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// MockAirtableResponse defines a canned response that replaces the normal
// listing behavior.
type MockAirtableResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is one request seen by the mock.
type RecordedRequest struct {
	BaseID string
	Table  string
	Query  url.Values
	Header http.Header
	At     time.Time
}

// MockAirtable is a configurable fake Airtable server. Tables are paginated
// by the pageSize query parameter and continued with an opaque offset.
type MockAirtable struct {
	server *httptest.Server

	mu        sync.RWMutex
	tables    map[string][]Record
	overrides map[string]MockAirtableResponse
	failures  map[string]map[int]MockAirtableResponse
	apiKey    string
	requests  []RecordedRequest
}

// NewMockAirtable creates a new fake Airtable server.
func NewMockAirtable() *MockAirtable {
	mock := &MockAirtable{
		tables:    make(map[string][]Record),
		overrides: make(map[string]MockAirtableResponse),
		failures:  make(map[string]map[int]MockAirtableResponse),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the API root, equivalent to https://api.airtable.com/v0.
func (m *MockAirtable) URL() string {
	return m.server.URL + "/v0"
}

// Close shuts down the mock server.
func (m *MockAirtable) Close() {
	m.server.Close()
}

// Reset clears the request log.
func (m *MockAirtable) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// RequireKey makes the mock reject requests without this bearer token.
func (m *MockAirtable) RequireKey(apiKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apiKey = apiKey
}

// SetTable replaces the records of table.
func (m *MockAirtable) SetTable(table string, rs []Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[table] = rs
}

// SetResponse makes every request for table return resp.
func (m *MockAirtable) SetResponse(table string, resp MockAirtableResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[table] = resp
}

// FailAt makes the request for the given zero-based page of table return
// resp instead of records.
func (m *MockAirtable) FailAt(table string, page int, resp MockAirtableResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures[table] == nil {
		m.failures[table] = make(map[int]MockAirtableResponse)
	}
	m.failures[table][page] = resp
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAirtable) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// Requests returns a copy of the request log.
func (m *MockAirtable) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MockAirtable) handle(w http.ResponseWriter, r *http.Request) {
	// Path: /v0/{baseId}/{table}
	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/v0/"), "/", 2)
	if r.Method != http.MethodGet || len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "")
		return
	}
	baseID, table := parts[0], parts[1]

	m.mu.Lock()
	m.requests = append(m.requests, RecordedRequest{
		BaseID: baseID,
		Table:  table,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		At:     time.Now(),
	})
	apiKey := m.apiKey
	override, hasOverride := m.overrides[table]
	rs, hasTable := m.tables[table]
	failures := m.failures[table]
	m.mu.Unlock()

	if apiKey != "" && r.Header.Get("Authorization") != "Bearer "+apiKey {
		writeError(w, http.StatusUnauthorized, "AUTHENTICATION_REQUIRED", "Authentication required")
		return
	}

	if hasOverride {
		writeCanned(w, override)
		return
	}

	if !hasTable {
		writeError(w, http.StatusNotFound, "TABLE_NOT_FOUND",
			fmt.Sprintf("Could not find table %s in application %s", table, baseID))
		return
	}

	pageSize := DefaultPageSize
	if v := r.URL.Query().Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > DefaultPageSize {
			writeError(w, http.StatusUnprocessableEntity, "INVALID_PAGE_SIZE", "Invalid page size: "+v)
			return
		}
		pageSize = n
	}

	start := 0
	if offset := r.URL.Query().Get("offset"); offset != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(offset, "itr/"))
		if err != nil || !strings.HasPrefix(offset, "itr/") || n <= 0 || n >= len(rs) {
			writeError(w, http.StatusUnprocessableEntity, "LIST_RECORDS_ITERATOR_NOT_AVAILABLE", "")
			return
		}
		start = n
	}

	if resp, ok := failures[start/pageSize]; ok {
		writeCanned(w, resp)
		return
	}

	end := start + pageSize
	if end > len(rs) {
		end = len(rs)
	}

	body := struct {
		Records []Record `json:"records"`
		Offset  string   `json:"offset,omitempty"`
	}{Records: rs[start:end]}
	if body.Records == nil {
		body.Records = []Record{}
	}
	if end < len(rs) {
		body.Offset = fmt.Sprintf("itr/%d", end)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(body)
}

func writeCanned(w http.ResponseWriter, resp MockAirtableResponse) {
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
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if message == "" {
		json.NewEncoder(w).Encode(map[string]string{"error": errType})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"type": errType, "message": message},
	})
}

// Records builds n records with IDs rec000, rec001, ...
func Records(n int) []Record {
	rs := make([]Record, n)
	for i := range rs {
		rs[i] = Record{
			ID:     fmt.Sprintf("rec%03d", i),
			Fields: map[string]any{"Name": fmt.Sprintf("Row %d", i), "Index": float64(i)},
		}
	}
	return rs
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockAirtableResponse {
	return MockAirtableResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"errors":[{"error":"RATE_LIMIT_REACHED","message":"Rate limit exceeded. Please try again later"}]}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockAirtableResponse {
	return MockAirtableResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error":{"type":"SERVER_ERROR","message":"Try again. If the problem persists, contact support."}}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewPermissionsResponse creates a 403 response for a key without access.
func NewPermissionsResponse() MockAirtableResponse {
	return MockAirtableResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"error":{"type":"INVALID_PERMISSIONS_OR_MODEL_NOT_FOUND","message":"Invalid permissions, or the requested model was not found."}}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
