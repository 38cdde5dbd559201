package cli

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Sternrassler/artic-catalog-client/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProxyServer(t *testing.T) *httptest.Server {
	t.Helper()
	mock := setupCatalog(t)

	cfg := config.Default()
	cfg.BaseURL = mock.BaseURL()

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	srv := httptest.NewServer(newProxyMux(a.client))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestProxy_Health(t *testing.T) {
	srv := newProxyServer(t)

	resp, body := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body)
}

func TestProxy_ForwardsCatalogBody(t *testing.T) {
	srv := newProxyServer(t)

	resp, body := get(t, srv.URL+"/api/v1/artworks?page=1&limit=2")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"id":1000`)
	assert.Contains(t, body, `"id":1001`)
	assert.NotContains(t, body, `"id":1002`)
}

func TestProxy_ForwardsClientErrors(t *testing.T) {
	srv := newProxyServer(t)

	resp, _ := get(t, srv.URL+"/api/v1/artworks?page=1&limit=500")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProxy_Metrics(t *testing.T) {
	srv := newProxyServer(t)
	get(t, srv.URL+"/api/v1/artworks?page=2&limit=2")

	resp, body := get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(body, "artic_requests_total"), "metrics output should include client counters")
}

func TestProxy_RejectsNonGet(t *testing.T) {
	srv := newProxyServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/artworks", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
