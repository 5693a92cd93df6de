package query

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/linkhoard/linkhoard/internal/cache"
	"github.com/linkhoard/linkhoard/internal/domain"
	"github.com/linkhoard/linkhoard/internal/logger"
	"github.com/linkhoard/linkhoard/internal/store/storetest"
)

const owner = "user-1"

func newEngine(t *testing.T) (*Engine, *storetest.Fake, *cache.Store) {
	t.Helper()
	fake := storetest.New()
	c := cache.New()
	return New(fake, c, logger.NewNop()), fake, c
}

// seed creates n records; every other one has "match" in the title,
// giving 50% selectivity for the query "match".
func seed(t *testing.T, fake *storetest.Fake, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		title := fmt.Sprintf("plain %03d", i)
		if i%2 == 0 {
			title = fmt.Sprintf("match %03d", i)
		}
		_, err := fake.Create(context.Background(), owner, domain.Draft{
			Title: title,
			URL:   fmt.Sprintf("https://example.com/%d", i),
		})
		if err != nil {
			t.Fatalf("seed create failed: %v", err)
		}
	}
}

func TestFetchPageWithoutQueryUsesExactPageSize(t *testing.T) {
	e, fake, _ := newEngine(t)
	seed(t, fake, 30)

	res, err := e.FetchPage(context.Background(), owner, domain.SearchParams{}, 20, "")
	if err != nil {
		t.Fatalf("FetchPage() unexpected error: %v", err)
	}
	if len(res.Bookmarks) != 20 {
		t.Errorf("page len = %d, want 20", len(res.Bookmarks))
	}
	if got := fake.ListCalls[len(fake.ListCalls)-1]; got != 20 {
		t.Errorf("raw fetch size = %d, want 20", got)
	}
	if !res.HasMore {
		t.Error("hasMore = false, want true with 30 records")
	}
}

func TestFetchPageOverFetchesUnderTextQuery(t *testing.T) {
	e, fake, _ := newEngine(t)
	seed(t, fake, 80) // 40 match, selectivity 50%

	res, err := e.FetchPage(context.Background(), owner, domain.SearchParams{Query: "match"}, 20, "")
	if err != nil {
		t.Fatalf("FetchPage() unexpected error: %v", err)
	}
	if got := fake.ListCalls[len(fake.ListCalls)-1]; got != 40 {
		t.Errorf("raw fetch size = %d, want 2*pageSize = 40", got)
	}
	if len(res.Bookmarks) != 20 {
		t.Errorf("post-filter page len = %d, want at most pageSize = 20", len(res.Bookmarks))
	}
	if !res.HasMore {
		t.Error("hasMore = false, want true: raw fetch returned a full raw page")
	}
	for _, b := range res.Bookmarks {
		if !(domain.SearchParams{Query: "match"}).Matches(b) {
			t.Errorf("record %q does not match the query", b.Title)
		}
	}
}

func TestFetchPageHasMoreHeuristicOnShortRawPage(t *testing.T) {
	e, fake, _ := newEngine(t)
	seed(t, fake, 10) // 5 match

	res, err := e.FetchPage(context.Background(), owner, domain.SearchParams{Query: "match"}, 20, "")
	if err != nil {
		t.Fatalf("FetchPage() unexpected error: %v", err)
	}
	if len(res.Bookmarks) != 5 {
		t.Errorf("page len = %d, want 5", len(res.Bookmarks))
	}
	if res.HasMore {
		t.Error("hasMore = true, want false: short raw page and short filtered page")
	}
}

func TestFetchPageCursorIsRawNotFiltered(t *testing.T) {
	e, fake, _ := newEngine(t)
	seed(t, fake, 12)

	first, err := e.FetchPage(context.Background(), owner, domain.SearchParams{Query: "match"}, 2, "")
	if err != nil {
		t.Fatalf("FetchPage() unexpected error: %v", err)
	}
	// Raw fetch was 4 records; the cursor points at the 4th raw
	// record, not the 2nd filtered one.
	second, err := e.FetchPage(context.Background(), owner, domain.SearchParams{Query: "match"}, 2, first.NextCursor)
	if err != nil {
		t.Fatalf("FetchPage() second page error: %v", err)
	}
	for _, b := range second.Bookmarks {
		for _, prev := range first.Bookmarks {
			if b.ID == prev.ID {
				t.Errorf("record %s appeared on both pages", b.ID)
			}
		}
	}
}

func TestFetchPagePopulatesCache(t *testing.T) {
	e, fake, c := newEngine(t)
	seed(t, fake, 6)

	params := domain.SearchParams{}
	first, err := e.FetchPage(context.Background(), owner, params, 4, "")
	if err != nil {
		t.Fatalf("FetchPage() unexpected error: %v", err)
	}
	if _, err := e.FetchPage(context.Background(), owner, params, 4, first.NextCursor); err != nil {
		t.Fatalf("FetchPage() second page error: %v", err)
	}

	key := cache.Key{OwnerID: owner, Params: params, Mode: cache.ModePaginated}
	pages, ok := c.Get(key)
	if !ok {
		t.Fatal("cache entry missing after fetches")
	}
	if len(pages) != 2 {
		t.Fatalf("cached pages = %d, want 2", len(pages))
	}
	if len(pages[0].Bookmarks) != 4 || len(pages[1].Bookmarks) != 2 {
		t.Errorf("cached page sizes = %d,%d want 4,2", len(pages[0].Bookmarks), len(pages[1].Bookmarks))
	}

	// A fresh first-page fetch resets the entry.
	if _, err := e.FetchPage(context.Background(), owner, params, 4, ""); err != nil {
		t.Fatalf("FetchPage() reset error: %v", err)
	}
	pages, _ = c.Get(key)
	if len(pages) != 1 {
		t.Errorf("cached pages after reset = %d, want 1", len(pages))
	}
}

func TestFetchPageSameCursorRefetchDoesNotDuplicate(t *testing.T) {
	e, fake, c := newEngine(t)
	seed(t, fake, 6)

	params := domain.SearchParams{}
	first, err := e.FetchPage(context.Background(), owner, params, 2, "")
	if err != nil {
		t.Fatalf("FetchPage() unexpected error: %v", err)
	}
	if _, err := e.FetchPage(context.Background(), owner, params, 2, first.NextCursor); err != nil {
		t.Fatalf("FetchPage() second page error: %v", err)
	}
	// Same cursor again, as after a retry or a re-rendered view.
	if _, err := e.FetchPage(context.Background(), owner, params, 2, first.NextCursor); err != nil {
		t.Fatalf("FetchPage() repeated cursor error: %v", err)
	}

	key := cache.Key{OwnerID: owner, Params: params, Mode: cache.ModePaginated}
	pages, _ := c.Get(key)
	if len(pages) != 2 {
		t.Fatalf("cached pages = %d, want 2 after re-fetching the same cursor", len(pages))
	}
	seen := make(map[string]int)
	for _, p := range pages {
		for _, b := range p.Bookmarks {
			seen[b.ID]++
		}
	}
	for id, n := range seen {
		if n > 1 {
			t.Errorf("record %s cached %d times, want once", id, n)
		}
	}
}

func TestFetchPageFailureLeavesCacheUntouched(t *testing.T) {
	e, fake, c := newEngine(t)
	seed(t, fake, 4)

	params := domain.SearchParams{}
	if _, err := e.FetchPage(context.Background(), owner, params, 4, ""); err != nil {
		t.Fatalf("FetchPage() unexpected error: %v", err)
	}
	key := cache.Key{OwnerID: owner, Params: params, Mode: cache.ModePaginated}
	before, _ := c.Get(key)

	fake.FailList = errors.New("store down")
	_, err := e.FetchPage(context.Background(), owner, params, 4, "")
	if !errors.Is(err, domain.ErrQueryFailed) {
		t.Fatalf("FetchPage() error = %v, want QueryFailed", err)
	}

	after, ok := c.Get(key)
	if !ok || len(after) != len(before) || len(after[0].Bookmarks) != len(before[0].Bookmarks) {
		t.Error("failed query must leave the last-known cache state untouched")
	}
}

func TestFetchMoreSuppressedWhileInFlight(t *testing.T) {
	e, _, _ := newEngine(t)

	key := cache.Key{OwnerID: owner, Params: domain.SearchParams{}, Mode: cache.ModePaginated}
	if !e.begin(key) {
		t.Fatal("begin() should succeed on an idle identity")
	}

	_, err := e.FetchPage(context.Background(), owner, domain.SearchParams{}, 4, "some-cursor")
	if !errors.Is(err, ErrFetchInFlight) {
		t.Errorf("FetchPage() error = %v, want ErrFetchInFlight", err)
	}

	e.end(key)
	// Different identity is not suppressed.
	if !e.begin(cache.Key{OwnerID: owner, Params: domain.SearchParams{Query: "x"}, Mode: cache.ModePaginated}) {
		t.Error("a different query identity should not be suppressed")
	}
}

func TestCountUsesAggregateWithoutQuery(t *testing.T) {
	e, fake, _ := newEngine(t)
	seed(t, fake, 10)

	n, err := e.Count(context.Background(), owner, domain.SearchParams{})
	if err != nil {
		t.Fatalf("Count() unexpected error: %v", err)
	}
	if n != 10 {
		t.Errorf("Count() = %d, want 10", n)
	}
}

func TestCountWithQueryCountsClientSide(t *testing.T) {
	e, fake, _ := newEngine(t)
	seed(t, fake, 10) // 5 match

	n, err := e.Count(context.Background(), owner, domain.SearchParams{Query: "match"})
	if err != nil {
		t.Fatalf("Count() unexpected error: %v", err)
	}
	if n != 5 {
		t.Errorf("Count() = %d, want 5", n)
	}
}

func TestStats(t *testing.T) {
	e, fake, _ := newEngine(t)
	fav := true
	if _, err := fake.Create(context.Background(), owner, domain.Draft{Title: "A", URL: "https://a.com", Tags: []string{"go"}, Favorite: fav}); err != nil {
		t.Fatal(err)
	}
	if _, err := fake.Create(context.Background(), owner, domain.Draft{Title: "B", URL: "https://b.com", Tags: []string{"go", "web"}}); err != nil {
		t.Fatal(err)
	}

	s, err := e.Stats(context.Background(), owner, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Stats() unexpected error: %v", err)
	}
	if s.TotalCount != 2 || s.FavoriteCount != 1 || s.UniqueTagCount != 2 {
		t.Errorf("Stats() = %+v, want total 2, favorites 1, unique tags 2", s)
	}
	if s.MostRecent == nil || s.MostRecent.Title != "B" {
		t.Errorf("most recent = %+v, want record B", s.MostRecent)
	}
}

func TestFetchPageRequiresIdentity(t *testing.T) {
	e, _, _ := newEngine(t)
	_, err := e.FetchPage(context.Background(), "", domain.SearchParams{}, 10, "")
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("FetchPage() error = %v, want ErrUnauthenticated", err)
	}
}
