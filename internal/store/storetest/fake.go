// Package storetest provides an in-memory Adapter for tests, with
// deterministic ids, a monotonic fake server clock, and per-operation
// failure injection.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/linkhoard/linkhoard/internal/domain"
	"github.com/linkhoard/linkhoard/internal/store"
)

// Fake is an Adapter backed by a map. Safe for concurrent use.
type Fake struct {
	mu      sync.Mutex
	seq     int
	clock   time.Time
	records map[string]*domain.Bookmark

	// Failure injection: when set, the corresponding operation fails
	// with the given error without touching state.
	FailCreate error
	FailUpdate error
	FailDelete error
	FailList   error
	FailCount  error

	// ListCalls records the raw page sizes requested, newest last.
	ListCalls []int
}

// New creates an empty fake with a clock starting at a fixed instant.
func New() *Fake {
	return &Fake{
		clock:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		records: make(map[string]*domain.Bookmark),
	}
}

var _ store.Adapter = (*Fake)(nil)

// tick advances the fake server clock so successive writes get
// strictly increasing updatedAt stamps.
func (f *Fake) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *Fake) Create(_ context.Context, ownerID string, draft domain.Draft) (*domain.Bookmark, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailCreate != nil {
		return nil, f.FailCreate
	}

	f.seq++
	now := f.tick()
	b := &domain.Bookmark{
		ID:        fmt.Sprintf("bm-%04d", f.seq),
		UserID:    ownerID,
		Title:     draft.Title,
		URL:       draft.URL,
		Notes:     draft.Notes,
		Tags:      domain.NormalizeTags(draft.Tags),
		Favorite:  draft.Favorite,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.records[b.ID] = b
	return b.Clone(), nil
}

func (f *Fake) Update(_ context.Context, ownerID, id string, patch domain.Patch) (*domain.Bookmark, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailUpdate != nil {
		return nil, f.FailUpdate
	}

	b, ok := f.records[id]
	if !ok || b.UserID != ownerID {
		return nil, domain.ErrNotFoundOrForbidden
	}
	patch.Apply(b)
	b.UpdatedAt = f.tick()
	return b.Clone(), nil
}

func (f *Fake) Delete(_ context.Context, ownerID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailDelete != nil {
		return f.FailDelete
	}

	b, ok := f.records[id]
	if !ok || b.UserID != ownerID {
		return domain.ErrNotFoundOrForbidden
	}
	delete(f.records, id)
	return nil
}

func (f *Fake) ListPage(_ context.Context, ownerID string, filter store.Filter, pageSize int, cursor string) (store.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ListCalls = append(f.ListCalls, pageSize)
	if f.FailList != nil {
		return store.Page{}, f.FailList
	}

	all := f.sorted(ownerID, filter)

	start := 0
	if cursor != "" {
		for i, b := range all {
			if b.ID == cursor {
				start = i + 1
				break
			}
		}
	}

	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	items := make([]*domain.Bookmark, 0, end-start)
	for _, b := range all[start:end] {
		items = append(items, b.Clone())
	}

	page := store.Page{Items: items, HasMore: len(items) == pageSize}
	if len(items) > 0 {
		page.NextCursor = items[len(items)-1].ID
	}
	return page, nil
}

func (f *Fake) Count(_ context.Context, ownerID string, filter store.Filter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailCount != nil {
		return 0, f.FailCount
	}
	return int64(len(f.sorted(ownerID, filter))), nil
}

func (f *Fake) GetAll(_ context.Context, ownerID string, filter store.Filter) ([]*domain.Bookmark, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailList != nil {
		return nil, f.FailList
	}

	all := f.sorted(ownerID, filter)
	out := make([]*domain.Bookmark, len(all))
	for i, b := range all {
		out[i] = b.Clone()
	}
	return out, nil
}

func (f *Fake) DeleteAllForOwner(_ context.Context, ownerID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int64
	for id, b := range f.records {
		if b.UserID == ownerID {
			delete(f.records, id)
			n++
		}
	}
	return n, nil
}

// Get returns a copy of a stored record, for assertions.
func (f *Fake) Get(id string) (*domain.Bookmark, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.records[id]
	if !ok {
		return nil, false
	}
	return b.Clone(), true
}

// Len returns the number of stored records.
func (f *Fake) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func (f *Fake) sorted(ownerID string, filter store.Filter) []*domain.Bookmark {
	all := make([]*domain.Bookmark, 0)
	for _, b := range f.records {
		if b.UserID != ownerID {
			continue
		}
		if filter.Favorite != nil && b.Favorite != *filter.Favorite {
			continue
		}
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].UpdatedAt.Equal(all[j].UpdatedAt) {
			return all[i].UpdatedAt.After(all[j].UpdatedAt)
		}
		return all[i].ID > all[j].ID
	})
	return all
}
