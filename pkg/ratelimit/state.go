// Package ratelimit keeps catalog traffic inside the API's per-minute request
// allowance. The counter lives in Redis so every process sharing an address
// draws from the same budget.
package ratelimit

import (
	"time"
)

// RedisKeyWindowPrefix prefixes the per-window request counters.
const RedisKeyWindowPrefix = "artic:rate_limit:window:"

const (
	// DefaultRequestsPerWindow is the public catalog allowance.
	DefaultRequestsPerWindow = 60

	// DefaultWindow is the length of one counting window.
	DefaultWindow = time.Minute

	// WarningRatio is the remaining share of the budget below which requests
	// are throttled.
	WarningRatio = 0.2

	// HealthyRatio is the remaining share at or above which the budget is
	// reported healthy.
	HealthyRatio = 0.5
)

// RateLimitState is a snapshot of the current counting window.
type RateLimitState struct {
	// RequestsUsed counts requests issued in this window, including the one
	// being admitted when the state comes from ShouldAllowRequest.
	RequestsUsed int `json:"requests_used"`

	// Limit is the number of requests allowed per window.
	Limit int `json:"limit"`

	// ResetAt is when the window rolls over.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this snapshot was taken.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true while at least HealthyRatio of the budget remains.
	IsHealthy bool `json:"is_healthy"`
}

// Remaining returns the requests left in the window, never negative.
func (s *RateLimitState) Remaining() int {
	if r := s.Limit - s.RequestsUsed; r > 0 {
		return r
	}
	return 0
}

// IsStale returns true if the snapshot is older than maxAge.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true once the window's budget is overdrawn.
func (s *RateLimitState) NeedsCriticalBlock() bool {
	return s.RequestsUsed > s.Limit
}

// NeedsThrottling returns true when less than WarningRatio of the budget
// remains and the request is not blocked outright.
func (s *RateLimitState) NeedsThrottling() bool {
	return float64(s.Remaining()) < float64(s.Limit)*WarningRatio && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the window rolls over.
// Returns 0 if the reset time has already passed.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates IsHealthy from the remaining budget.
func (s *RateLimitState) UpdateHealth() {
	s.IsHealthy = float64(s.Remaining()) >= float64(s.Limit)*HealthyRatio
}
