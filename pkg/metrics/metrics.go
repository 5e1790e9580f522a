// Package metrics exposes the Prometheus registry used by the proxy.
// All metrics are defined in their respective packages (airtable, cache,
// ratelimit, pagination, proxy) to maintain modularity and avoid circular
// dependencies.
//
// This package provides the /metrics handler and a reference for all
// available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the proxy.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the registry read by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler serves every registered metric in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Upstream Metrics (pkg/airtable):
//   - airtable_requests_total{table, status} (Counter): List requests by table and HTTP status
//   - airtable_request_duration_seconds{table} (Histogram): Request duration by table
//   - airtable_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Rate Gate Metrics (pkg/ratelimit):
//   - rate_gate_queue_depth (Gauge): Calls waiting for admission
//   - rate_gate_admitted_total (Counter): Calls admitted
//   - rate_gate_wait_seconds (Histogram): Time spent queued before admission
//   - rate_gate_lockouts_total (Counter): Upstream lockouts that paused admissions
//
// Pagination Metrics (pkg/pagination):
//   - pagination_pages_walked_total (Counter): Upstream pages consumed by walks
//   - pagination_walks_total{outcome} (Counter): Walks by outcome (found, exhausted, failed)
//
// Cache Metrics (pkg/cache):
//   - page_cache_hits_total{backend} (Counter): Cache hits by backend
//   - page_cache_misses_total (Counter): Cache misses
//   - page_cache_written_bytes_total{backend} (Counter): Bytes written by backend
//   - page_cache_errors_total{operation} (Counter): Cache operation errors
//
// Fetch Metrics (pkg/proxy):
//   - proxy_fetch_total{result} (Counter): Page fetches by result (hit, miss, error)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(page_cache_hits_total[5m])) /
//   (sum(rate(page_cache_hits_total[5m])) + sum(rate(page_cache_misses_total[5m])))
//
//   # Gate Backlog
//   rate_gate_queue_depth > 10
//
//   # Upstream Error Rate
//   rate(airtable_errors_total[5m])
//
//   # P95 Upstream Latency
//   histogram_quantile(0.95, rate(airtable_request_duration_seconds_bucket[5m]))
//
//   # Average Pages Walked Per Miss
//   rate(pagination_pages_walked_total[5m]) / rate(pagination_walks_total[5m])
