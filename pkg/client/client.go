// Package client provides the catalog HTTP client with a shared request
// budget, response caching, retries and error classification.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/artic-catalog-client/pkg/cache"
	"github.com/Sternrassler/artic-catalog-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the public Art Institute of Chicago API root.
const DefaultBaseURL = "https://api.artic.edu/api/v1"

// Prometheus metrics for catalog client operations.
var (
	articRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artic_requests_total",
		Help: "Total catalog requests by endpoint and status",
	}, []string{"endpoint", "status"})

	articRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "artic_request_duration_seconds",
		Help:    "Catalog request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	articErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artic_errors_total",
		Help: "Total catalog errors by class",
	}, []string{"class"})
)

// Client is the catalog HTTP client.
type Client struct {
	httpClient  *http.Client
	redis       *redis.Client
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	baseURL     *url.URL
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Redis backs the response cache and the shared request budget.
	// Nil disables both.
	Redis *redis.Client

	// BaseURL is the API root, e.g. "https://api.artic.edu/api/v1".
	BaseURL string

	// User-Agent header (REQUIRED, the catalog asks clients to identify themselves)
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// RequestsPerMinute is the shared request budget.
	RequestsPerMinute int

	// Retry
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(redis *redis.Client, userAgent string) Config {
	return Config{
		Redis:             redis,
		BaseURL:           DefaultBaseURL,
		UserAgent:         userAgent,
		RequestsPerMinute: ratelimit.DefaultRequestsPerWindow,
		MaxRetries:        3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		Timeout:           30 * time.Second,
	}
}

// New creates a new catalog client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	if cfg.RequestsPerMinute < 1 {
		return nil, fmt.Errorf("requests_per_minute must be >= 1 (got %d)", cfg.RequestsPerMinute)
	}

	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "artic-client").Logger()

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		redis:   cfg.Redis,
		baseURL: base,
		config:  cfg,
		logger:  logger,
	}

	if cfg.Redis != nil {
		c.rateLimiter = ratelimit.NewTracker(cfg.Redis, logger, cfg.RequestsPerMinute)
		c.cache = cache.NewManager(cfg.Redis)
	} else {
		logger.Debug().Msg("No Redis configured - response cache and shared budget disabled")
	}

	return c, nil
}

// Do performs an HTTP request through the cache, the request budget and the
// retry policy. Non-retried 4xx responses are returned to the caller as-is.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		articRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check Cache
	cacheKey := cache.CacheKey{
		Endpoint:    endpoint,
		QueryParams: req.URL.Query(),
	}

	var cachedEntry *cache.CacheEntry
	if c.cache != nil && req.Method == http.MethodGet {
		entry, err := c.cache.Lookup(ctx, cacheKey)
		switch {
		case err == nil && !entry.IsExpired():
			cache.CacheHits.WithLabelValues("redis").Inc()
			articRequestsTotal.WithLabelValues(endpoint, "cache_hit").Inc()
			c.logger.Debug().Str("endpoint", endpoint).Dur("ttl", entry.TTL()).Msg("Serving from cache")
			return cache.EntryToResponse(entry), nil
		case err == nil:
			cachedEntry = entry
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	// Step 2: Revalidate a stale entry
	if cache.ShouldMakeConditionalRequest(cachedEntry) {
		cache.AddConditionalHeaders(req, cachedEntry)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("etag", cachedEntry.ETag).
			Msg("Making conditional request")
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("AIC-User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	// Step 3: Execute with retries, each attempt paying for budget
	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing catalog request")

	var resp *http.Response

	retryErr := retryWithBackoff(ctx, c.retryConfig(), func() error {
		if err := c.acquireBudget(ctx, endpoint); err != nil {
			resp = nil
			return err
		}

		var reqErr error
		resp, reqErr = c.httpClient.Do(req)

		if reqErr != nil {
			c.logger.Error().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			articErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			articRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			resp = nil
			return &CatalogError{ErrorClass: ErrorClassNetwork, Message: "request failed", Err: reqErr}
		}

		if resp.StatusCode < 400 {
			return nil
		}

		errClass := c.classifyError(resp, nil)
		articErrorsTotal.WithLabelValues(string(errClass)).Inc()
		articRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Catalog request error")

		if !shouldRetry(errClass) {
			// Let the caller read the error body
			return nil
		}

		if errClass == ErrorClassRateLimit && c.rateLimiter != nil {
			if err := c.rateLimiter.MarkExhausted(ctx); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to record exhausted budget")
			}
		}

		catErr := &CatalogError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
		resp.Body.Close()
		resp = nil
		return catErr
	}, ClassOf)

	if retryErr != nil {
		return nil, retryErr
	}

	// Step 4: 304 Not Modified refreshes the stale entry
	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		articRequestsTotal.WithLabelValues(endpoint, "304").Inc()
		cache.NotModifiedResponses.Inc()

		newExpires := time.Now().Add(cache.DefaultTTL)
		if entry, err := cache.ResponseToEntry(resp); err == nil {
			newExpires = entry.Expires
		}
		if err := c.cache.UpdateTTL(ctx, cacheKey, newExpires); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
		}

		resp.Body.Close()
		cachedEntry.Expires = newExpires
		return cache.EntryToResponse(cachedEntry), nil
	}

	if resp.StatusCode < 400 {
		articRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	}

	// Step 5: Update Cache on success
	if c.cache != nil && resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if entry.TTL() > 0 {
			if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to cache response")
			} else {
				c.logger.Debug().
					Str("endpoint", endpoint).
					Dur("ttl", entry.TTL()).
					Msg("Cached response")
			}
		}
	}

	return resp, nil
}

// acquireBudget charges one request against the shared budget. Retries pay
// too, so after a 429 has saturated the window the next attempt is refused
// locally instead of reaching the catalog.
func (c *Client) acquireBudget(ctx context.Context, endpoint string) error {
	if c.rateLimiter == nil {
		return nil
	}

	allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Rate limit check failed")
		return &CatalogError{ErrorClass: ErrorClassBudget, Message: "rate limit check", Err: err}
	}
	if !allowed {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Msg("Request blocked by rate limiter")
		articRequestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		return &CatalogError{ErrorClass: ErrorClassBudget, Message: "request budget exhausted", Err: ErrRateLimited}
	}
	return nil
}

func (c *Client) retryConfig() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = c.config.MaxRetries
	if c.config.InitialBackoff > 0 {
		cfg.InitialBackoff = c.config.InitialBackoff
	}
	if c.config.MaxBackoff > 0 {
		cfg.MaxBackoff = c.config.MaxBackoff
	}
	return cfg
}

// classifyError categorizes an error for observability and handling.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return ErrorClassClient
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// parseRetryAfter reads a Retry-After value given in seconds or as an HTTP date.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// Get performs a GET request to path below the configured base URL.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	target := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Close releases the client's idle connections. The Redis client is owned
// by the caller.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager, nil without Redis (for testing).
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}

// GetRateLimiter returns the request budget tracker, nil without Redis.
func (c *Client) GetRateLimiter() *ratelimit.Tracker {
	return c.rateLimiter
}
