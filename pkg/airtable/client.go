// Package airtable provides the upstream HTTP client for Airtable's
// list-records endpoint, with response decoding and error classification.
// Rate limiting is the caller's concern: every call made by the proxy goes
// through a ratelimit.Gate.
package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/airtable-proxy/pkg/records"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the public Airtable REST root.
const DefaultBaseURL = "https://api.airtable.com/v0"

// MaxPageSize is the largest page Airtable will return.
const MaxPageSize = 100

// Prometheus metrics for upstream client operations.
var (
	airtableRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airtable_requests_total",
		Help: "Total Airtable list requests by table and status",
	}, []string{"table", "status"})

	airtableRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "airtable_request_duration_seconds",
		Help:    "Airtable request duration in seconds by table",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"table"})

	airtableErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airtable_errors_total",
		Help: "Total Airtable errors by class",
	}, []string{"class"})
)

// Config holds the client configuration.
type Config struct {
	// APIKey is sent as a bearer token (REQUIRED)
	APIKey string

	// BaseID identifies the Airtable base (REQUIRED)
	BaseID string

	// BaseURL overrides DefaultBaseURL, mainly for tests
	BaseURL string

	// Timeout bounds a single HTTP call
	Timeout time.Duration

	// UserAgent header, optional
	UserAgent string
}

// DefaultConfig returns a configuration for the public API.
func DefaultConfig(apiKey, baseID string) Config {
	return Config{
		APIKey:    apiKey,
		BaseID:    baseID,
		BaseURL:   DefaultBaseURL,
		Timeout:   30 * time.Second,
		UserAgent: "airtable-proxy/1.0",
	}
}

// Client calls the Airtable list-records endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

// ListOptions are the query parameters of one list call.
type ListOptions struct {
	// View restricts and orders records as the named view does
	View string

	// PageSize is 1..MaxPageSize; 0 leaves it to the upstream default
	PageSize int

	// Offset is the continuation cursor from the previous page
	Offset string
}

// Record is one upstream record as returned on the wire.
type Record struct {
	ID          string         `json:"id"`
	CreatedTime string         `json:"createdTime,omitempty"`
	Fields      records.Fields `json:"fields"`
}

// ListResponse is one page of a listing. Offset is empty on the last page.
type ListResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

// Page converts the records into the id to fields form.
func (r *ListResponse) Page() records.Page {
	rs := make([]records.Record, 0, len(r.Records))
	for _, rec := range r.Records {
		rs = append(rs, records.Record{ID: rec.ID, Fields: rec.Fields})
	}
	return records.FromRecords(rs)
}

// New creates a new Airtable client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	if cfg.BaseID == "" {
		return nil, fmt.Errorf("base id is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	baseURL, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	// Initialize logger
	logger := log.With().Str("component", "airtable-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: baseURL,
		config:  cfg,
		logger:  logger,
	}, nil
}

// ListRecords fetches one page of table. Non-2xx responses and transport
// failures are returned as *APIError. The call is made exactly once.
func (c *Client) ListRecords(ctx context.Context, table string, opts ListOptions) (*ListResponse, error) {
	if table == "" {
		return nil, fmt.Errorf("table is required")
	}
	if opts.PageSize < 0 || opts.PageSize > MaxPageSize {
		return nil, fmt.Errorf("page size must be between 1 and %d (got %d)", MaxPageSize, opts.PageSize)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.listURL(table, opts), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	startTime := time.Now()
	defer func() {
		airtableRequestDuration.WithLabelValues(table).Observe(time.Since(startTime).Seconds())
	}()

	c.logger.Debug().
		Str("table", table).
		Bool("has_offset", opts.Offset != "").
		Msg("Executing list request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Context cancellation is the caller's doing, not an upstream failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Warn().Err(err).Str("table", table).Msg("HTTP request failed")
		airtableErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		airtableRequestsTotal.WithLabelValues(table, "network_error").Inc()
		return nil, newNetworkError(err)
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		airtableErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		airtableRequestsTotal.WithLabelValues(table, status).Inc()
		return nil, newNetworkError(fmt.Errorf("read body: %w", err))
	}
	airtableRequestsTotal.WithLabelValues(table, status).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newResponseError(resp, body)
		airtableErrorsTotal.WithLabelValues(string(apiErr.Class)).Inc()
		c.logger.Warn().
			Str("table", table).
			Int("status", resp.StatusCode).
			Str("error_class", string(apiErr.Class)).
			Str("error_type", apiErr.Type).
			Msg("Airtable request error")
		return nil, apiErr
	}

	var list ListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Type:       TypeUnexpectedError,
			Message:    "invalid list response",
			Class:      ErrorClassServer,
			Err:        err,
		}
	}

	return &list, nil
}

func (c *Client) listURL(table string, opts ListOptions) string {
	u := c.baseURL.JoinPath(c.config.BaseID, table)

	q := url.Values{}
	if opts.View != "" {
		q.Set("view", opts.View)
	}
	if opts.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	if opts.Offset != "" {
		q.Set("offset", opts.Offset)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
