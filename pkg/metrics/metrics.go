// Package metrics provides the Prometheus registry and scrape handler for the
// catalog client. All metrics are defined in their respective packages
// (client, cache, ratelimit, controller) to maintain modularity and avoid
// circular dependencies.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the catalog client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns the /metrics handler for the default gatherer.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Budget Metrics (pkg/ratelimit):
//   - artic_rate_limit_remaining (Gauge): Requests remaining in the current window
//   - artic_rate_limit_blocks_total (Counter): Requests blocked because the window was exhausted
//   - artic_rate_limit_throttles_total (Counter): Requests throttled because the budget was low
//
// Cache Metrics (pkg/cache):
//   - artic_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - artic_cache_misses_total (Counter): Cache misses
//   - artic_cache_size_bytes{layer="redis"} (Gauge): Bytes written to the cache
//   - artic_304_responses_total (Counter): 304 Not Modified responses
//   - artic_conditional_requests_total (Counter): Conditional requests sent
//   - artic_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - artic_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - artic_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - artic_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - artic_retries_total{error_class} (Counter): Retry attempts by error class
//   - artic_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - artic_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Page Metrics (pkg/controller):
//   - artic_stale_responses_total (Counter): Superseded page responses discarded
//   - artic_page_loads_total{result} (Counter): Applied page loads by result (ok, error)
//   - artic_page_load_duration_seconds (Histogram): Request-to-apply latency
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(artic_cache_hits_total[5m])) /
//   (sum(rate(artic_cache_hits_total[5m])) + sum(rate(artic_cache_misses_total[5m])))
//
//   # Budget running low
//   artic_rate_limit_remaining < 12
//
//   # Stale response ratio
//   rate(artic_stale_responses_total[5m]) / rate(artic_page_loads_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(artic_request_duration_seconds_bucket[5m]))
