package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/airtable-proxy/pkg/airtable"
	"github.com/Sternrassler/airtable-proxy/pkg/cache"
	"github.com/Sternrassler/airtable-proxy/pkg/pagination"
	"github.com/Sternrassler/airtable-proxy/pkg/proxy"
	"github.com/Sternrassler/airtable-proxy/pkg/records"
)

// stubWalker returns err when set, otherwise one record naming the request.
type stubWalker struct {
	err   error
	calls int
}

func (w *stubWalker) Walk(_ context.Context, req pagination.Request) (records.Page, error) {
	w.calls++
	if w.err != nil {
		return nil, w.err
	}
	return records.Page{"rec1": {"table": req.Table, "page": float64(req.Page)}}, nil
}

// pingFailingBackend is a memory backend whose health check fails.
type pingFailingBackend struct {
	*cache.MemoryBackend
}

func (pingFailingBackend) Ping(context.Context) error { return errors.New("unreachable") }

func newTestServer(t *testing.T, walker proxy.PageWalker, backend cache.Backend) *httptest.Server {
	t.Helper()
	if backend == nil {
		backend = cache.NewMemoryBackend()
	}
	fetcher := proxy.NewFetcher(
		proxy.Routes{"ai": "AI Projects"},
		cache.NewManager(backend, zerolog.Nop()),
		walker,
	)
	srv := New(Options{Fetcher: fetcher, Logger: zerolog.Nop()})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, ts *httptest.Server, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestList_Success(t *testing.T) {
	walker := &stubWalker{}
	ts := newTestServer(t, walker, nil)

	resp, body := get(t, ts, "/api/ai/list/2")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"rec1":{"table":"AI Projects","page":2}}`, string(body))

	// Second request is served from the cache.
	resp, _ = get(t, ts, "/api/ai/list/2")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, walker.calls)
}

func TestList_InvalidPaths(t *testing.T) {
	walker := &stubWalker{}
	ts := newTestServer(t, walker, nil)

	paths := []string{
		"/api",
		"/api/",
		"/api/ai",
		"/api/ai/list",
		"/api/ai/list/abc",
		"/api/ai/list/-1",
		"/api/ai/list/1.5",
		"/api/ai/list/1/extra",
		"/api/ai/records/1",
		"/apifoo",
		"/api-docs",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			resp, body := get(t, ts, path)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.JSONEq(t, `{"Error":"Invalid path"}`, string(body))
		})
	}
	assert.Equal(t, 0, walker.calls)
}

func TestNonAPIPathIsNotFound(t *testing.T) {
	ts := newTestServer(t, &stubWalker{}, nil)

	for _, path := range []string{"/", "/favicon.ico", "/ap"} {
		resp, _ := get(t, ts, path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestList_UnknownTable(t *testing.T) {
	walker := &stubWalker{}
	ts := newTestServer(t, walker, nil)

	resp, body := get(t, ts, "/api/nope/list/0")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"Error":"Unknown table"}`, string(body))
	assert.Equal(t, 0, walker.calls)
}

func TestList_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorDetail
	}{
		{
			name: "upstream api error",
			err: &airtable.APIError{
				StatusCode: 403,
				Type:       "INVALID_PERMISSIONS",
				Message:    "You are not permitted to perform this operation",
				Class:      airtable.ErrorClassClient,
			},
			want: ErrorDetail{Error: "INVALID_PERMISSIONS", Message: "You are not permitted to perform this operation", StatusCode: 403},
		},
		{
			name: "page beyond listing",
			err:  &pagination.ExhaustedError{Target: 9, Pages: 3},
			want: ErrorDetail{Error: "PAGE_NOT_FOUND", Message: "page 9 not found: listing ended after 3 page(s)", StatusCode: 404},
		},
		{
			name: "timeout",
			err:  context.DeadlineExceeded,
			want: ErrorDetail{Error: "REQUEST_TIMEOUT", Message: "upstream did not answer in time", StatusCode: 504},
		},
		{
			name: "other",
			err:  errors.New("boom"),
			want: ErrorDetail{Error: "UNEXPECTED_ERROR", Message: "boom", StatusCode: 500},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := cache.NewMemoryBackend()
			ts := newTestServer(t, &stubWalker{err: tt.err}, backend)

			resp, body := get(t, ts, "/api/ai/list/9")
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			var details []ErrorDetail
			require.NoError(t, json.Unmarshal(body, &details))
			require.Len(t, details, 1)
			assert.Equal(t, tt.want, details[0])
			assert.Equal(t, 0, backend.Len(), "failed fetches must not be cached")
		})
	}
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, &stubWalker{}, nil)

	resp, body := get(t, ts, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	// Memory backend has no health check, so it is always ready.
	resp, _ = get(t, ts, "/ready")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReady_BackendDown(t *testing.T) {
	ts := newTestServer(t, &stubWalker{}, pingFailingBackend{cache.NewMemoryBackend()})

	resp, _ := get(t, ts, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, &stubWalker{}, nil)

	get(t, ts, "/api/ai/list/0")
	resp, body := get(t, ts, "/metrics")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "proxy_fetch_total")
}

func TestNew_PanicsWithoutFetcher(t *testing.T) {
	assert.Panics(t, func() { New(Options{}) })
}
