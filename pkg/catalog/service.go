package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/artic-catalog-client/pkg/client"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	// MaxLimit is the largest page size and id batch the API accepts.
	MaxLimit = 100

	artworksPath = "artworks"

	// sharedFetchTimeout bounds a page request that several callers wait on.
	sharedFetchTimeout = 60 * time.Second
)

// ErrInvalidRequest is returned for a page or limit the API would reject.
var ErrInvalidRequest = errors.New("invalid catalog request")

// Getter issues GET requests below the catalog API root. *client.Client
// implements it.
type Getter interface {
	Get(ctx context.Context, path string, query url.Values) (*http.Response, error)
}

// Service reads artwork pages and id batches.
type Service struct {
	getter Getter
	group  singleflight.Group
	logger zerolog.Logger
}

// NewService creates a catalog service on top of getter.
func NewService(getter Getter) *Service {
	return &Service{
		getter: getter,
		logger: log.With().Str("component", "catalog").Logger(),
	}
}

// FetchPage returns one listing page. Concurrent calls for the same page and
// limit share a single request. Cancelling ctx stops only this caller's wait;
// the shared request keeps running for the others.
func (s *Service) FetchPage(ctx context.Context, page, limit int) (*PageResponse, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be >= 1 (got %d)", ErrInvalidRequest, page)
	}
	if limit < 1 || limit > MaxLimit {
		return nil, fmt.Errorf("%w: limit must be 1..%d (got %d)", ErrInvalidRequest, MaxLimit, limit)
	}

	key := strconv.Itoa(page) + ":" + strconv.Itoa(limit)
	ch := s.group.DoChan(key, func() (any, error) {
		// Detached from any single caller's cancellation.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()

		query := url.Values{
			"page":   {strconv.Itoa(page)},
			"limit":  {strconv.Itoa(limit)},
			"fields": {Fields},
		}
		return s.get(fctx, query)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch page %d: %w", page, ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", page, res.Err)
	}

	if res.Shared {
		s.logger.Debug().Int("page", page).Int("limit", limit).Msg("Shared in-flight page request")
	}

	// Callers may mutate their copy of Data.
	resp := *res.Val.(*PageResponse)
	resp.Data = append([]Artwork(nil), resp.Data...)
	return &resp, nil
}

// FetchByIDs returns the records for up to MaxLimit ids. Unknown ids are
// simply missing from the result.
func (s *Service) FetchByIDs(ctx context.Context, ids []int) ([]Artwork, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxLimit {
		return nil, fmt.Errorf("%w: at most %d ids per request (got %d)", ErrInvalidRequest, MaxLimit, len(ids))
	}

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}

	query := url.Values{
		"ids":    {strings.Join(parts, ",")},
		"limit":  {strconv.Itoa(len(ids))},
		"fields": {Fields},
	}

	resp, err := s.get(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch %d ids: %w", len(ids), err)
	}
	return resp.Data, nil
}

func (s *Service) get(ctx context.Context, query url.Values) (*PageResponse, error) {
	resp, err := s.getter.Get(ctx, artworksPath, query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		class := client.ErrorClassClient
		if resp.StatusCode >= 500 {
			class = client.ErrorClassServer
		}
		return nil, &client.CatalogError{
			StatusCode: resp.StatusCode,
			ErrorClass: class,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	var page PageResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode artworks response: %w", err)
	}

	s.logger.Debug().
		Int("records", len(page.Data)).
		Int("total", page.Pagination.Total).
		Str("cache", resp.Header.Get("X-Cache")).
		Msg("Catalog response decoded")

	return &page, nil
}
