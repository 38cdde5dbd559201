// Package testutil provides a mock catalog server for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ArtworksPath is the listing endpoint served by the mock.
const ArtworksPath = "/api/v1/artworks"

// MockCatalogResponse defines a canned response for a path.
type MockCatalogResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockArtwork is one record in the mock dataset.
type MockArtwork struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	PlaceOfOrigin string `json:"place_of_origin"`
	ArtistDisplay string `json:"artist_display"`
	Inscriptions  string `json:"inscriptions"`
	DateStart     *int   `json:"date_start"`
	DateEnd       *int   `json:"date_end"`
}

// MockCatalog is a configurable mock of the artwork listing API.
type MockCatalog struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	artworks []MockArtwork

	// failNext answers the next n listing requests with failStatus.
	failNext   int
	failStatus int

	// Tracking
	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
	LastQuery         string
}

// NewMockCatalog creates a mock serving count generated artworks with ids
// starting at 1000.
func NewMockCatalog(count int) *MockCatalog {
	mock := &MockCatalog{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		artworks: GenerateArtworks(count),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.LastQuery = r.URL.RawQuery
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		if r.URL.Path == ArtworksPath {
			mock.listHandler(w, r)
			return
		}

		http.NotFound(w, r)
	}))

	return mock
}

// GenerateArtworks builds a deterministic dataset. Every fifth record has
// no title and every seventh has no dates.
func GenerateArtworks(count int) []MockArtwork {
	artworks := make([]MockArtwork, count)
	for i := range artworks {
		start, end := 1800+i, 1805+i
		a := MockArtwork{
			ID:            1000 + i,
			Title:         fmt.Sprintf("Artwork %d", i),
			PlaceOfOrigin: "Chicago",
			ArtistDisplay: fmt.Sprintf("Artist %d", i%10),
			DateStart:     &start,
			DateEnd:       &end,
		}
		if i%5 == 4 {
			a.Title = ""
		}
		if i%7 == 6 {
			a.DateStart, a.DateEnd = nil, nil
		}
		artworks[i] = a
	}
	return artworks
}

// URL returns the mock server URL.
func (m *MockCatalog) URL() string {
	return m.server.URL
}

// BaseURL returns the API root to configure clients with.
func (m *MockCatalog) BaseURL() string {
	return m.server.URL + "/api/v1"
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockCatalog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
	m.LastQuery = ""
}

// SetHandler sets a custom handler for a specific path.
func (m *MockCatalog) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockCatalog) SetResponse(path string, resp MockCatalogResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// FailNext makes the next n listing requests answer with status.
func (m *MockCatalog) FailNext(n, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = n
	m.failStatus = status
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockCatalog) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockCatalog) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// GetLastRequestHeader returns the headers of the latest request.
func (m *MockCatalog) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader
}

type listResponse struct {
	Pagination map[string]any `json:"pagination"`
	Data       []MockArtwork  `json:"data"`
}

// listHandler mimics GET /api/v1/artworks with page/limit or ids.
func (m *MockCatalog) listHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	if m.failNext > 0 {
		m.failNext--
		status := m.failStatus
		m.mu.Unlock()
		if status == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", "1")
		}
		w.WriteHeader(status)
		w.Write([]byte(`{"status": ` + strconv.Itoa(status) + `, "error": "mock failure"}`))
		return
	}
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	q := r.URL.Query()

	etag := fmt.Sprintf(`"%s"`, strings.NewReplacer("&", "-", "=", "-", ",", "_").Replace(q.Encode()))
	if r.Header.Get("If-None-Match") == etag {
		w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if ids := q.Get("ids"); ids != "" {
		m.writeIDs(w, ids, etag)
		return
	}

	page, err := strconv.Atoi(q.Get("page"))
	if q.Get("page") == "" {
		page, err = 1, nil
	}
	limit, lerr := strconv.Atoi(q.Get("limit"))
	if q.Get("limit") == "" {
		limit, lerr = 12, nil
	}
	if err != nil || lerr != nil || page < 1 || limit < 1 || limit > 100 {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status": 400, "error": "Invalid pagination"}`))
		return
	}

	m.mu.RLock()
	total := len(m.artworks)
	offset := (page - 1) * limit
	data := []MockArtwork{}
	if offset < total {
		data = append(data, m.artworks[offset:min(offset+limit, total)]...)
	}
	m.mu.RUnlock()

	totalPages := (total + limit - 1) / limit
	var nextPage any
	if page < totalPages {
		nextPage = page + 1
	}

	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(listResponse{
		Pagination: map[string]any{
			"total":        total,
			"limit":        limit,
			"offset":       offset,
			"total_pages":  totalPages,
			"current_page": page,
			"next_page":    nextPage,
		},
		Data: data,
	})
}

func (m *MockCatalog) writeIDs(w http.ResponseWriter, ids, etag string) {
	m.mu.RLock()
	byID := make(map[int]MockArtwork, len(m.artworks))
	for _, a := range m.artworks {
		byID[a.ID] = a
	}
	m.mu.RUnlock()

	data := []MockArtwork{}
	for _, raw := range strings.Split(ids, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			continue
		}
		if a, ok := byID[id]; ok {
			data = append(data, a)
		}
	}

	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(listResponse{
		Pagination: map[string]any{
			"total":        len(data),
			"limit":        len(data),
			"offset":       0,
			"total_pages":  1,
			"current_page": 1,
			"next_page":    nil,
		},
		Data: data,
	})
}

// NewHealthyResponse creates a 200 OK JSON response with caching headers.
func NewHealthyResponse(data string) MockCatalogResponse {
	return MockCatalogResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"ETag":         `"test-etag-123"`,
			"Expires":      time.Now().Add(5 * time.Minute).Format(http.TimeFormat),
			"Content-Type": "application/json",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfterSeconds int) MockCatalogResponse {
	return MockCatalogResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"status": 429, "error": "Too many requests"}`,
		Headers: map[string]string{
			"Retry-After":  strconv.Itoa(retryAfterSeconds),
			"Content-Type": "application/json",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockCatalogResponse {
	return MockCatalogResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"status": 500, "error": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockCatalogResponse {
	return MockCatalogResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"status": 404, "error": "Not found"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}
