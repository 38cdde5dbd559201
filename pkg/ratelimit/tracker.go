package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for request budget tracking.
var (
	articRequestsRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "artic_rate_limit_remaining",
		Help: "Requests remaining in the current catalog rate limit window",
	})

	articRateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artic_rate_limit_blocks_total",
		Help: "Total number of requests blocked because the window budget was exhausted",
	})

	articRateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artic_rate_limit_throttles_total",
		Help: "Total number of requests throttled because the window budget was low",
	})
)

// Tracker counts catalog requests per fixed window and gates new ones.
type Tracker struct {
	redis         *redis.Client
	logger        zerolog.Logger
	limit         int
	window        time.Duration
	throttleDelay time.Duration
	now           func() time.Time
}

// NewTracker creates a tracker allowing limit requests per DefaultWindow.
// A non-positive limit falls back to DefaultRequestsPerWindow.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger, limit int) *Tracker {
	if limit <= 0 {
		limit = DefaultRequestsPerWindow
	}
	return &Tracker{
		redis:         redisClient,
		logger:        logger,
		limit:         limit,
		window:        DefaultWindow,
		throttleDelay: 1 * time.Second,
		now:           time.Now,
	}
}

// SetThrottleDelay changes how long a throttled request waits (for testing).
func (t *Tracker) SetThrottleDelay(d time.Duration) {
	t.throttleDelay = d
}

// windowStart returns the start of the window containing now.
func (t *Tracker) windowStart(now time.Time) time.Time {
	return now.Truncate(t.window)
}

func (t *Tracker) windowKey(start time.Time) string {
	return RedisKeyWindowPrefix + strconv.FormatInt(start.Unix(), 10)
}

func (t *Tracker) newState(used int, start, now time.Time) *RateLimitState {
	state := &RateLimitState{
		RequestsUsed: used,
		Limit:        t.limit,
		ResetAt:      start.Add(t.window),
		LastUpdate:   now,
	}
	state.UpdateHealth()
	return state
}

// GetState reads the current window without consuming budget.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	now := t.now()
	start := t.windowStart(now)

	used, err := t.redis.Get(ctx, t.windowKey(start)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get request counter: %w", err)
	}

	return t.newState(used, start, now), nil
}

// acquire consumes one request from the current window.
func (t *Tracker) acquire(ctx context.Context) (*RateLimitState, error) {
	now := t.now()
	start := t.windowStart(now)
	key := t.windowKey(start)

	pipe := t.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// Outlive the window slightly so a late reader still sees the final count.
	pipe.Expire(ctx, key, t.window+5*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("increment request counter: %w", err)
	}

	state := t.newState(int(incr.Val()), start, now)
	articRequestsRemaining.Set(float64(state.Remaining()))
	return state, nil
}

// ShouldAllowRequest consumes budget for one request.
// Returns false if the window is exhausted. Returns true but may wait
// briefly when the budget is running low.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("requests_used", state.RequestsUsed).
			Int("limit", state.Limit).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Catalog request budget exhausted - blocking request")

		articRateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("remaining", state.Remaining()).
			Msg("Catalog request budget low - throttling request")

		articRateLimitThrottlesTotal.Inc()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(t.throttleDelay):
		}
	}

	return true, nil
}

// MarkExhausted spends the rest of the current window, typically after the
// catalog answered 429.
func (t *Tracker) MarkExhausted(ctx context.Context) error {
	now := t.now()
	start := t.windowStart(now)

	if err := t.redis.Set(ctx, t.windowKey(start), t.limit, t.window+5*time.Second).Err(); err != nil {
		return fmt.Errorf("store exhausted window: %w", err)
	}

	articRequestsRemaining.Set(0)
	t.logger.Warn().
		Time("reset_at", start.Add(t.window)).
		Msg("Catalog answered rate limited - window marked exhausted")

	return nil
}
