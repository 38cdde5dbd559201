//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/Sternrassler/artic-catalog-client/internal/testutil"
	"github.com/Sternrassler/artic-catalog-client/pkg/cache"
	"github.com/Sternrassler/artic-catalog-client/pkg/catalog"
	"github.com/Sternrassler/artic-catalog-client/pkg/client"
	"github.com/Sternrassler/artic-catalog-client/pkg/controller"
	"github.com/Sternrassler/artic-catalog-client/pkg/pagination"
	"github.com/Sternrassler/artic-catalog-client/pkg/selection"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

func newClient(t *testing.T, redisClient *redis.Client, mock *testutil.MockCatalog) *client.Client {
	t.Helper()

	cfg := client.DefaultConfig(redisClient, "artic-integration/1.0 (test@example.com)")
	cfg.BaseURL = mock.BaseURL()
	cfg.InitialBackoff = 10 * time.Millisecond
	cfg.MaxBackoff = 50 * time.Millisecond

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// TestFullRequestFlow tests the complete flow: budget → cache → catalog → cache update.
func TestFullRequestFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockCatalog(40)
	defer mock.Close()

	svc := catalog.NewService(newClient(t, redisClient, mock))
	ctx := context.Background()

	first, err := svc.FetchPage(ctx, 2, 12)
	if err != nil {
		t.Fatalf("First fetch failed: %v", err)
	}
	if len(first.Data) != 12 || first.Data[0].ID != 1012 {
		t.Fatalf("Unexpected first page: %d rows, first id %d", len(first.Data), first.Data[0].ID)
	}

	second, err := svc.FetchPage(ctx, 2, 12)
	if err != nil {
		t.Fatalf("Second fetch failed: %v", err)
	}
	if second.Pagination.Total != 40 {
		t.Errorf("Expected total 40, got %d", second.Pagination.Total)
	}

	if mock.GetRequestCount() != 1 {
		t.Errorf("Expected 1 upstream request (second served from cache), got %d", mock.GetRequestCount())
	}
}

// TestNotModified tests revalidation of a stale entry with If-None-Match.
func TestNotModified(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockCatalog(20)
	defer mock.Close()

	c := newClient(t, redisClient, mock)
	ctx := context.Background()
	query := url.Values{"page": {"1"}, "limit": {"5"}}

	resp, err := c.Get(ctx, "artworks", query)
	if err != nil {
		t.Fatalf("Initial request failed: %v", err)
	}
	resp.Body.Close()

	// Age the entry past its expiry without evicting it.
	key := cache.CacheKey{Endpoint: testutil.ArtworksPath, QueryParams: query}
	entry, err := c.GetCache().Lookup(ctx, key)
	if err != nil {
		t.Fatalf("Entry not cached: %v", err)
	}
	entry.Expires = time.Now().Add(-time.Minute)
	raw, _ := json.Marshal(entry)
	if err := redisClient.Set(ctx, key.String(), raw, cache.StaleGrace).Err(); err != nil {
		t.Fatalf("Failed to age entry: %v", err)
	}

	resp, err = c.Get(ctx, "artworks", query)
	if err != nil {
		t.Fatalf("Revalidation request failed: %v", err)
	}
	resp.Body.Close()

	if mock.GetConditionalCount() != 1 {
		t.Errorf("Expected 1 conditional request, got %d", mock.GetConditionalCount())
	}

	refreshed, err := c.GetCache().Lookup(ctx, key)
	if err != nil {
		t.Fatalf("Entry lost after 304: %v", err)
	}
	if refreshed.IsExpired() {
		t.Error("Expected entry to be fresh after 304")
	}
}

// TestBudgetBlock tests that an exhausted budget blocks requests before the network.
func TestBudgetBlock(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockCatalog(10)
	defer mock.Close()

	c := newClient(t, redisClient, mock)
	ctx := context.Background()

	if err := c.GetRateLimiter().MarkExhausted(ctx); err != nil {
		t.Fatalf("MarkExhausted failed: %v", err)
	}

	_, err := c.Get(ctx, "artworks", url.Values{"page": {"1"}})
	if !errors.Is(err, client.ErrRateLimited) {
		t.Fatalf("Expected ErrRateLimited, got %v", err)
	}
	if mock.GetRequestCount() != 0 {
		t.Errorf("Expected no upstream request, got %d", mock.GetRequestCount())
	}
}

// TestRetry5xxErrors tests that server errors are retried.
func TestRetry5xxErrors(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockCatalog(10)
	defer mock.Close()
	mock.FailNext(2, 503)

	svc := catalog.NewService(newClient(t, redisClient, mock))

	page, err := svc.FetchPage(context.Background(), 1, 5)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if len(page.Data) != 5 {
		t.Errorf("Expected 5 rows, got %d", len(page.Data))
	}
	if mock.GetRequestCount() != 3 {
		t.Errorf("Expected 3 requests (2 failures + 1 success), got %d", mock.GetRequestCount())
	}
}

// TestBrowseAndExport walks a browse session across pages and resolves the
// selection through the id batch fetcher.
func TestBrowseAndExport(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockCatalog(50)
	defer mock.Close()

	svc := catalog.NewService(newClient(t, redisClient, mock))
	ctrl := controller.New(svc, selection.NewStore(), 12)
	ctx := context.Background()

	if err := ctrl.Load(ctx); err != nil {
		t.Fatalf("Initial load failed: %v", err)
	}
	ctrl.SelectPage(true)

	req := ctrl.GoToPage(3)
	resp, err := ctrl.Fetch(ctx, req)
	if !ctrl.Apply(req, resp, err) {
		t.Fatal("Expected page 3 response to apply")
	}
	ctrl.ToggleRow(1030, true)

	// Returning to page 1 is served from cache and keeps its marks.
	req = ctrl.GoToPage(1)
	resp, err = ctrl.Fetch(ctx, req)
	ctrl.Apply(req, resp, err)
	if ctrl.HeaderState() != selection.HeaderAll {
		t.Errorf("Expected page 1 header all-selected, got %s", ctrl.HeaderState())
	}
	if mock.GetRequestCount() != 2 {
		t.Errorf("Expected 2 upstream page requests, got %d", mock.GetRequestCount())
	}

	batch := pagination.NewBatchFetcher(svc, pagination.Config{MaxConcurrency: 2, ChunkSize: 5, Timeout: 10 * time.Second})
	records, err := batch.FetchByIDs(ctx, ctrl.SelectedIDs())
	if err != nil {
		t.Fatalf("FetchByIDs failed: %v", err)
	}
	if len(records) != 13 {
		t.Errorf("Expected 13 resolved records, got %d", len(records))
	}
	if records[1030].Title != "Artwork 30" {
		t.Errorf("Unexpected record for 1030: %+v", records[1030])
	}
}
