// Package query drives cursor-based incremental fetching. Free-text
// filtering happens after the store-level fetch, so a fixed-size
// fetch could yield short pages even though more matches exist; the
// engine over-fetches, filters, and re-paginates instead.
package query

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/linkhoard/linkhoard/internal/cache"
	"github.com/linkhoard/linkhoard/internal/domain"
	"github.com/linkhoard/linkhoard/internal/logger"
	"github.com/linkhoard/linkhoard/internal/store"
)

// ErrFetchInFlight is returned when a fetch-more request arrives
// while another fetch for the same query identity is still running.
var ErrFetchInFlight = errors.New("fetch already in flight for this query")

// overFetchFactor is how much the raw fetch is inflated when a
// free-text query is active.
const overFetchFactor = 2

// Result is one page of composed results.
type Result struct {
	Bookmarks []*domain.Bookmark `json:"bookmarks"`

	// NextCursor is always the adapter's raw last-document cursor,
	// not a filtered-result cursor: a filtered page shorter than
	// pageSize still advances past every raw record examined. The
	// adapter resumes exactly after the cursor position.
	NextCursor string `json:"nextCursor,omitempty"`

	// HasMore is a heuristic: true when the raw fetch returned a
	// full raw page or the post-filter results met the page size.
	// It may over- or under-report by one fetch.
	HasMore bool `json:"hasMore"`
}

// Engine fetches pages and records them in the shared cache, keyed
// by query identity.
type Engine struct {
	store  store.Adapter
	cache  *cache.Store
	logger logger.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New creates an engine. The cache is an explicit constructor
// parameter shared with the mutation layer.
func New(adapter store.Adapter, c *cache.Store, log logger.Logger) *Engine {
	return &Engine{
		store:    adapter,
		cache:    c,
		logger:   log,
		inflight: make(map[string]struct{}),
	}
}

// FetchPage returns one composed page. When params carry a free-text
// query it requests overFetchFactor*pageSize raw records, applies the
// search composer, and truncates to pageSize. The first page (empty
// cursor) resets the cached entry; later pages append to it.
//
// Fetch-more calls for an identity that already has a fetch in
// flight fail fast with ErrFetchInFlight; parameter changes do not
// cancel running fetches, staleness is the caller's to discard.
func (e *Engine) FetchPage(ctx context.Context, ownerID string, params domain.SearchParams, pageSize int, cursor string) (Result, error) {
	if ownerID == "" {
		return Result{}, domain.ErrUnauthenticated
	}
	if pageSize <= 0 {
		return Result{}, domain.ValidationError{Field: "pageSize", Reason: "must be positive"}
	}

	key := cache.Key{OwnerID: ownerID, Params: params, Mode: cache.ModePaginated}
	if cursor != "" {
		if !e.begin(key) {
			return Result{}, ErrFetchInFlight
		}
		defer e.end(key)
	}

	raw := pageSize
	if params.Query != "" {
		raw = overFetchFactor * pageSize
	}

	page, err := e.store.ListPage(ctx, ownerID, store.Filter{Favorite: params.Favorite}, raw, cursor)
	if err != nil {
		// Last-known cache state stays untouched.
		e.logger.Warn("page fetch failed",
			logger.String("owner", ownerID),
			logger.Error(err))
		return Result{}, domain.QueryFailedError{Cause: err}
	}

	filtered := domain.ApplySearch(page.Items, params)
	items := filtered
	if len(items) > pageSize {
		items = items[:pageSize]
	}

	res := Result{
		Bookmarks:  items,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore || len(filtered) >= pageSize,
	}

	cached := cache.Page{Bookmarks: items, NextCursor: res.NextCursor, HasMore: res.HasMore}
	if cursor == "" {
		e.cache.Replace(key, []cache.Page{cached})
	} else {
		// Re-fetching a cursor replaces its cached page instead of
		// growing the entry.
		e.cache.SetPageAfter(key, cursor, cached)
	}
	return res, nil
}

// Count returns how many records match params. Without a free-text
// query this is a single server-side aggregate; with one, the full
// filtered set is fetched and counted client-side, O(n) in the
// matching-filter records.
func (e *Engine) Count(ctx context.Context, ownerID string, params domain.SearchParams) (int64, error) {
	if ownerID == "" {
		return 0, domain.ErrUnauthenticated
	}

	filter := store.Filter{Favorite: params.Favorite}
	if params.Query == "" {
		n, err := e.store.Count(ctx, ownerID, filter)
		if err != nil {
			return 0, domain.QueryFailedError{Cause: err}
		}
		return n, nil
	}

	all, err := e.store.GetAll(ctx, ownerID, filter)
	if err != nil {
		return 0, domain.QueryFailedError{Cause: err}
	}
	return int64(len(domain.ApplySearch(all, params))), nil
}

// Stats computes profile statistics from a full snapshot of the
// owner's records, already ordered by updatedAt descending.
func (e *Engine) Stats(ctx context.Context, ownerID string, now time.Time) (domain.Stats, error) {
	if ownerID == "" {
		return domain.Stats{}, domain.ErrUnauthenticated
	}

	all, err := e.store.GetAll(ctx, ownerID, store.Filter{})
	if err != nil {
		return domain.Stats{}, domain.QueryFailedError{Cause: err}
	}
	return domain.ComputeStats(all, now), nil
}

func (e *Engine) begin(key cache.Key) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	ks := key.String()
	if _, busy := e.inflight[ks]; busy {
		return false
	}
	e.inflight[ks] = struct{}{}
	return true
}

func (e *Engine) end(key cache.Key) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, key.String())
}
