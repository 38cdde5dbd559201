package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func setupTracker(t *testing.T, limit int) (*Tracker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	tracker := NewTracker(client, zerolog.Nop(), limit)
	tracker.SetThrottleDelay(0)
	fixed := time.Date(2024, 3, 1, 10, 15, 20, 0, time.UTC)
	tracker.now = func() time.Time { return fixed }

	return tracker, mr
}

func TestNewTracker_DefaultLimit(t *testing.T) {
	tracker := NewTracker(nil, zerolog.Nop(), 0)
	if tracker.limit != DefaultRequestsPerWindow {
		t.Errorf("limit = %d, want %d", tracker.limit, DefaultRequestsPerWindow)
	}
}

func TestTracker_GetState_Empty(t *testing.T) {
	tracker, _ := setupTracker(t, 10)

	state, err := tracker.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if state.RequestsUsed != 0 || state.Remaining() != 10 {
		t.Errorf("state = %+v, want an untouched window", state)
	}
	if !state.IsHealthy {
		t.Error("empty window should be healthy")
	}
	wantReset := time.Date(2024, 3, 1, 10, 16, 0, 0, time.UTC)
	if !state.ResetAt.Equal(wantReset) {
		t.Errorf("ResetAt = %v, want %v", state.ResetAt, wantReset)
	}
}

func TestTracker_ShouldAllowRequest_BlocksAfterLimit(t *testing.T) {
	tracker, mr := setupTracker(t, 5)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		allowed, err := tracker.ShouldAllowRequest(ctx)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("request %d blocked, want allowed", i)
		}
	}

	allowed, err := tracker.ShouldAllowRequest(ctx)
	if err != nil {
		t.Fatalf("request 6: %v", err)
	}
	if allowed {
		t.Error("request 6 allowed, want blocked")
	}

	key := tracker.windowKey(tracker.windowStart(tracker.now()))
	if ttl := mr.TTL(key); ttl <= 0 {
		t.Errorf("window counter has no expiry (ttl %v)", ttl)
	}
}

func TestTracker_NewWindowResetsBudget(t *testing.T) {
	tracker, _ := setupTracker(t, 1)
	ctx := context.Background()

	if allowed, _ := tracker.ShouldAllowRequest(ctx); !allowed {
		t.Fatal("first request blocked")
	}
	if allowed, _ := tracker.ShouldAllowRequest(ctx); allowed {
		t.Fatal("second request in the same window allowed")
	}

	next := tracker.now().Add(time.Minute)
	tracker.now = func() time.Time { return next }

	if allowed, _ := tracker.ShouldAllowRequest(ctx); !allowed {
		t.Error("request in a new window blocked")
	}
}

func TestTracker_MarkExhausted(t *testing.T) {
	tracker, _ := setupTracker(t, 60)
	ctx := context.Background()

	if err := tracker.MarkExhausted(ctx); err != nil {
		t.Fatalf("MarkExhausted failed: %v", err)
	}

	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if state.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", state.Remaining())
	}

	if allowed, _ := tracker.ShouldAllowRequest(ctx); allowed {
		t.Error("request after MarkExhausted allowed, want blocked")
	}
}

func TestTracker_ThrottleRespectsContext(t *testing.T) {
	tracker, _ := setupTracker(t, 1)
	tracker.SetThrottleDelay(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The single allowed request lands below the warning ratio and waits.
	allowed, err := tracker.ShouldAllowRequest(ctx)
	if err == nil || allowed {
		t.Errorf("ShouldAllowRequest() = %v, %v; want false and a context error", allowed, err)
	}
}
