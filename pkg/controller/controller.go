// Package controller coordinates one table session: the pagination window,
// the rows currently on screen and the selection store they are keyed into.
package controller

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Sternrassler/artic-catalog-client/pkg/catalog"
	"github.com/Sternrassler/artic-catalog-client/pkg/pagination"
	"github.com/Sternrassler/artic-catalog-client/pkg/selection"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for page loading.
var (
	articStaleResponsesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artic_stale_responses_total",
		Help: "Total page responses discarded because a newer request superseded them",
	})

	articPageLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artic_page_loads_total",
		Help: "Total page loads applied by result",
	}, []string{"result"})

	articPageLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "artic_page_load_duration_seconds",
		Help:    "Time from issuing a page request to applying its response",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})
)

// PageFetcher loads one listing page. *catalog.Service implements it.
type PageFetcher interface {
	FetchPage(ctx context.Context, page, limit int) (*catalog.PageResponse, error)
}

// Request identifies one outstanding page fetch.
type Request struct {
	Seq   uint64
	Page  int
	Limit int

	issued time.Time
}

// Controller owns the window and rows of a table session. Its methods are
// safe for concurrent use so fetches may complete on another goroutine.
type Controller struct {
	mu sync.Mutex

	fetcher PageFetcher
	store   *selection.Store

	window        pagination.Window
	rows          []catalog.Artwork
	displayedPage int
	displayedRows int
	loading       bool
	lastErr       error
	seq           uint64

	sessionID string
	logger    zerolog.Logger
}

// New creates a controller starting on page 1 with rows per page. A rows
// value below 1 uses pagination.DefaultRows.
func New(fetcher PageFetcher, store *selection.Store, rows int) *Controller {
	if rows < 1 {
		rows = pagination.DefaultRows
	}
	if store == nil {
		store = selection.NewStore()
	}

	sessionID := uuid.NewString()
	return &Controller{
		fetcher:       fetcher,
		store:         store,
		window:        pagination.NewWindow(1, rows, 0),
		displayedPage: 1,
		displayedRows: rows,
		sessionID:     sessionID,
		logger: log.With().
			Str("component", "controller").
			Str("session", sessionID).
			Logger(),
	}
}

// SessionID returns the id attached to this session's log lines.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// Begin marks the controller loading and tags a request for the current
// window. Any earlier outstanding request becomes stale.
func (c *Controller) Begin() Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.beginLocked()
}

func (c *Controller) beginLocked() Request {
	c.seq++
	c.loading = true
	req := Request{
		Seq:    c.seq,
		Page:   c.window.Page(),
		Limit:  c.window.Rows,
		issued: time.Now(),
	}
	c.logger.Debug().Uint64("seq", req.Seq).Int("page", req.Page).Int("limit", req.Limit).Msg("Page request issued")
	return req
}

// Fetch runs req against the page fetcher. It does not touch controller
// state; pass the result to Apply.
func (c *Controller) Fetch(ctx context.Context, req Request) (*catalog.PageResponse, error) {
	return c.fetcher.FetchPage(ctx, req.Page, req.Limit)
}

// Apply records the outcome of req. It reports false when req was superseded
// by a later Begin, in which case nothing changes.
func (c *Controller) Apply(req Request, resp *catalog.PageResponse, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if req.Seq != c.seq {
		articStaleResponsesTotal.Inc()
		c.logger.Debug().
			Uint64("seq", req.Seq).
			Uint64("latest", c.seq).
			Int("page", req.Page).
			Msg("Discarding stale page response")
		return false
	}

	c.loading = false
	if !req.issued.IsZero() {
		articPageLoadDuration.Observe(time.Since(req.issued).Seconds())
	}

	if err == nil && resp == nil {
		err = errEmptyResponse
	}
	if err != nil {
		articPageLoadsTotal.WithLabelValues("error").Inc()
		c.lastErr = err
		// Keep the rows on screen and point the window back at them.
		c.window = pagination.NewWindow(c.displayedPage, c.displayedRows, c.window.Total)
		c.logger.Error().
			Err(err).
			Int("page", req.Page).
			Int("displayed_page", c.displayedPage).
			Msg("Page load failed")
		return true
	}

	page := resp.Pagination.CurrentPage
	if page < 1 {
		page = req.Page
	}

	articPageLoadsTotal.WithLabelValues("ok").Inc()
	c.lastErr = nil
	c.rows = resp.Data
	c.displayedPage = page
	c.displayedRows = req.Limit
	c.window = pagination.NewWindow(page, req.Limit, resp.Pagination.Total)

	c.logger.Info().
		Int("page", page).
		Int("rows", len(resp.Data)).
		Int("total", resp.Pagination.Total).
		Msg("Page loaded")
	return true
}

// Load fetches the current window synchronously.
func (c *Controller) Load(ctx context.Context) error {
	req := c.Begin()
	resp, err := c.Fetch(ctx, req)
	c.Apply(req, resp, err)
	return err
}

// ChangePage moves the window to the page containing offset first with rows
// per page and tags a request for it.
func (c *Controller) ChangePage(first, rows int) Request {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rows < 1 {
		rows = c.window.Rows
	}
	c.window.First = max(0, first)
	c.window.Rows = rows
	return c.beginLocked()
}

// GoToPage moves to page, clamped to the known page range.
func (c *Controller) GoToPage(page int) Request {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.window = c.window.GoTo(page)
	return c.beginLocked()
}

// SetRows changes the page size and returns to the first page.
func (c *Controller) SetRows(rows int) Request {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.window = c.window.WithRows(rows)
	return c.beginLocked()
}

// Rows returns a copy of the rows on screen.
func (c *Controller) Rows() []catalog.Artwork {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.rows)
}

// Loading reports whether the latest request is still outstanding.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Window returns the requested pagination window.
func (c *Controller) Window() pagination.Window {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window
}

// DisplayedPage returns the page the rows on screen belong to.
func (c *Controller) DisplayedPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.displayedPage
}

// Err returns the error of the last applied load, nil after a success.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}
