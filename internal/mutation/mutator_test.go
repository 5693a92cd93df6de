package mutation

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/linkhoard/linkhoard/internal/cache"
	"github.com/linkhoard/linkhoard/internal/domain"
	"github.com/linkhoard/linkhoard/internal/logger"
	"github.com/linkhoard/linkhoard/internal/store/storetest"
)

const owner = "user-1"

func newMutator(t *testing.T) (*Mutator, *storetest.Fake, *cache.Store) {
	t.Helper()
	fake := storetest.New()
	c := cache.New()
	return New(fake, c, logger.NewNop()), fake, c
}

func listKey(ownerID string) cache.Key {
	return cache.Key{OwnerID: ownerID, Params: domain.SearchParams{}, Mode: cache.ModePaginated}
}

func seedCache(c *cache.Store, ownerID string, pages ...[]*domain.Bookmark) {
	cp := make([]cache.Page, len(pages))
	for i, p := range pages {
		cp[i] = cache.Page{Bookmarks: p}
	}
	c.Replace(listKey(ownerID), cp)
}

func TestCreateReconcilesPlaceholder(t *testing.T) {
	m, _, c := newMutator(t)
	seedCache(c, owner, []*domain.Bookmark{})

	b, err := m.Create(context.Background(), owner, domain.Draft{Title: "A", URL: "https://a.com"})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if b.IsPlaceholder() {
		t.Errorf("returned record still has placeholder id %q", b.ID)
	}
	if !b.CreatedAt.Equal(b.UpdatedAt) {
		t.Errorf("createdAt %v != updatedAt %v on fresh record", b.CreatedAt, b.UpdatedAt)
	}

	pages, ok := c.Get(listKey(owner))
	if !ok || len(pages[0].Bookmarks) != 1 {
		t.Fatalf("cache head = %+v, want one record", pages)
	}
	if got := pages[0].Bookmarks[0]; got.ID != b.ID || got.IsPlaceholder() {
		t.Errorf("cache head id = %q, want authoritative id %q", got.ID, b.ID)
	}
}

func TestCreateRollsBackOnFailure(t *testing.T) {
	m, fake, c := newMutator(t)
	seedCache(c, owner, []*domain.Bookmark{
		{ID: "keep", UserID: owner, UpdatedAt: time.Now()},
	})
	before, _ := c.Get(listKey(owner))

	fake.FailCreate = errors.New("network down")
	_, err := m.Create(context.Background(), owner, domain.Draft{Title: "A", URL: "https://a.com"})
	if !errors.Is(err, domain.ErrMutationFailed) {
		t.Fatalf("Create() error = %v, want MutationFailed", err)
	}

	after, _ := c.Get(listKey(owner))
	if !reflect.DeepEqual(before, after) {
		t.Errorf("cache after rollback = %+v, want pre-mutation snapshot %+v", after, before)
	}
}

func TestCreateValidationNeverTouchesStore(t *testing.T) {
	m, fake, _ := newMutator(t)
	fake.FailCreate = errors.New("should never be reached")

	_, err := m.Create(context.Background(), owner, domain.Draft{Title: "", URL: "https://a.com"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Create() error = %v, want ValidationError", err)
	}
	if fake.Len() != 0 {
		t.Error("validation failure reached the store")
	}
}

func TestCreateRequiresIdentity(t *testing.T) {
	m, _, _ := newMutator(t)
	_, err := m.Create(context.Background(), "", domain.Draft{Title: "A", URL: "https://a.com"})
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("Create() error = %v, want ErrUnauthenticated", err)
	}
}

func TestCreateOnlyPrependsToMatchingQueries(t *testing.T) {
	m, _, c := newMutator(t)
	fav := true
	favKey := cache.Key{OwnerID: owner, Params: domain.SearchParams{Favorite: &fav}, Mode: cache.ModePaginated}
	c.Replace(listKey(owner), []cache.Page{{}})
	c.Replace(favKey, []cache.Page{{}})

	_, err := m.Create(context.Background(), owner, domain.Draft{Title: "plain", URL: "https://p.com"})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	all, _ := c.Get(listKey(owner))
	if len(all[0].Bookmarks) != 1 {
		t.Errorf("unfiltered query head = %d records, want 1", len(all[0].Bookmarks))
	}
	favs, _ := c.Get(favKey)
	if len(favs[0].Bookmarks) != 0 {
		t.Errorf("favorites query should not see a non-favorite create, got %d", len(favs[0].Bookmarks))
	}
}

func TestUpdateOptimisticThenRollback(t *testing.T) {
	m, fake, c := newMutator(t)

	// Create through the store so the record exists remotely.
	b, err := m.Create(context.Background(), owner, domain.Draft{Title: "A", URL: "https://a.com"})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	seedCache(c, owner, []*domain.Bookmark{b.Clone()})

	// Optimistic apply is visible even though the remote fails.
	fake.FailUpdate = errors.New("remote update failed")
	fav := true
	_, err = m.Update(context.Background(), owner, b.ID, domain.Patch{Favorite: &fav})
	if !errors.Is(err, domain.ErrMutationFailed) {
		t.Fatalf("Update() error = %v, want MutationFailed", err)
	}

	pages, _ := c.Get(listKey(owner))
	if pages[0].Bookmarks[0].Favorite {
		t.Error("rollback should have reverted favorite to false")
	}

	// Store record untouched as well.
	stored, _ := fake.Get(b.ID)
	if stored.Favorite {
		t.Error("failed update must not reach the store record")
	}
}

func TestUpdateSuccessReconcilesAuthoritativeRecord(t *testing.T) {
	m, _, c := newMutator(t)
	b, err := m.Create(context.Background(), owner, domain.Draft{Title: "A", URL: "https://a.com"})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	seedCache(c, owner, []*domain.Bookmark{b.Clone()})

	fav := true
	updated, err := m.Update(context.Background(), owner, b.ID, domain.Patch{Favorite: &fav})
	if err != nil {
		t.Fatalf("Update() unexpected error: %v", err)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Error("updatedAt should advance past createdAt after a mutation")
	}

	pages, _ := c.Get(listKey(owner))
	got := pages[0].Bookmarks[0]
	if !got.Favorite {
		t.Error("cache should hold the updated favorite flag")
	}
	if !got.UpdatedAt.Equal(updated.UpdatedAt) {
		t.Errorf("cache updatedAt = %v, want store-authoritative %v", got.UpdatedAt, updated.UpdatedAt)
	}
}

func TestUpdateReconcileRestoresListingOrder(t *testing.T) {
	m, fake, c := newMutator(t)
	older, err := fake.Create(context.Background(), owner, domain.Draft{Title: "older", URL: "https://o.com"})
	if err != nil {
		t.Fatalf("seed create failed: %v", err)
	}
	newer, err := fake.Create(context.Background(), owner, domain.Draft{Title: "newer", URL: "https://n.com"})
	if err != nil {
		t.Fatalf("seed create failed: %v", err)
	}
	seedCache(c, owner, []*domain.Bookmark{newer.Clone(), older.Clone()})

	// The local clock lags the store clock, so the optimistic stamp
	// alone cannot move the record to the head; the authoritative
	// updatedAt must.
	m.now = func() time.Time { return older.UpdatedAt.Add(-time.Hour) }

	note := "touched"
	updated, err := m.Update(context.Background(), owner, older.ID, domain.Patch{Notes: &note})
	if err != nil {
		t.Fatalf("Update() unexpected error: %v", err)
	}

	pages, _ := c.Get(listKey(owner))
	head := pages[0].Bookmarks[0]
	if head.ID != older.ID {
		t.Fatalf("page head = %q, want the freshly updated %q", head.ID, older.ID)
	}
	if !head.UpdatedAt.Equal(updated.UpdatedAt) {
		t.Errorf("head updatedAt = %v, want store-authoritative %v", head.UpdatedAt, updated.UpdatedAt)
	}
}

func TestUpdateOwnershipMismatchSurfacesVerbatim(t *testing.T) {
	m, fake, _ := newMutator(t)
	b, err := m.Create(context.Background(), owner, domain.Draft{Title: "A", URL: "https://a.com"})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	fav := true
	_, err = m.Update(context.Background(), "intruder", b.ID, domain.Patch{Favorite: &fav})
	if !errors.Is(err, domain.ErrNotFoundOrForbidden) {
		t.Fatalf("Update() error = %v, want ErrNotFoundOrForbidden", err)
	}

	stored, _ := fake.Get(b.ID)
	if stored.Favorite {
		t.Error("ownership mismatch must leave the store record unchanged")
	}
}

func TestDeleteRemovesEverywhereAndRollsBack(t *testing.T) {
	m, fake, c := newMutator(t)
	b, err := m.Create(context.Background(), owner, domain.Draft{Title: "A", URL: "https://a.com"})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	// Record appears on two pages of the same query.
	seedCache(c, owner, []*domain.Bookmark{b.Clone()}, []*domain.Bookmark{b.Clone()})
	before, _ := c.Get(listKey(owner))

	fake.FailDelete = errors.New("remote delete failed")
	err = m.Delete(context.Background(), owner, b.ID)
	if !errors.Is(err, domain.ErrMutationFailed) {
		t.Fatalf("Delete() error = %v, want MutationFailed", err)
	}
	after, _ := c.Get(listKey(owner))
	if !reflect.DeepEqual(before, after) {
		t.Error("failed delete should restore the snapshot exactly")
	}

	fake.FailDelete = nil
	if err := m.Delete(context.Background(), owner, b.ID); err != nil {
		t.Fatalf("Delete() unexpected error: %v", err)
	}
	after, _ = c.Get(listKey(owner))
	for pi, page := range after {
		if len(page.Bookmarks) != 0 {
			t.Errorf("page %d still holds %d records after delete", pi, len(page.Bookmarks))
		}
	}
	if fake.Len() != 0 {
		t.Error("store record should be gone after delete")
	}
}

func TestMutationsMarkNamespaceStale(t *testing.T) {
	m, fake, c := newMutator(t)
	if _, err := m.Create(context.Background(), owner, domain.Draft{Title: "A", URL: "https://a.com"}); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if owners := c.TakeStale(); len(owners) != 1 || owners[0] != owner {
		t.Errorf("stale owners after create = %v, want [%s]", owners, owner)
	}

	// Failure paths mark staleness too.
	fake.FailCreate = errors.New("down")
	_, _ = m.Create(context.Background(), owner, domain.Draft{Title: "B", URL: "https://b.com"})
	if owners := c.TakeStale(); len(owners) != 1 {
		t.Errorf("stale owners after failed create = %v, want one", owners)
	}
}

func TestConcurrentMutationsKeepOwnSnapshots(t *testing.T) {
	m, fake, c := newMutator(t)
	first, err := m.Create(context.Background(), owner, domain.Draft{Title: "first", URL: "https://one.com"})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	seedCache(c, owner, []*domain.Bookmark{first.Clone()})

	// First mutation succeeds and is visible.
	note := "kept"
	if _, err := m.Update(context.Background(), owner, first.ID, domain.Patch{Notes: &note}); err != nil {
		t.Fatalf("Update() unexpected error: %v", err)
	}

	// Second mutation fails; its rollback must not undo the first
	// mutation's settled effect.
	fake.FailUpdate = errors.New("down")
	fav := true
	_, err = m.Update(context.Background(), owner, first.ID, domain.Patch{Favorite: &fav})
	if !errors.Is(err, domain.ErrMutationFailed) {
		t.Fatalf("Update() error = %v, want MutationFailed", err)
	}

	pages, _ := c.Get(listKey(owner))
	got := pages[0].Bookmarks[0]
	if got.Notes != "kept" {
		t.Errorf("rollback undid an earlier settled mutation: notes = %q", got.Notes)
	}
	if got.Favorite {
		t.Error("failed mutation's effect should be rolled back")
	}
}

func TestEndToEndOptimisticScenario(t *testing.T) {
	m, fake, c := newMutator(t)
	seedCache(c, owner, []*domain.Bookmark{})

	// Create: cache head becomes the authoritative record.
	b, err := m.Create(context.Background(), owner, domain.Draft{Title: "A", URL: "https://a.com"})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	pages, _ := c.Get(listKey(owner))
	head := pages[0].Bookmarks[0]
	if head.IsPlaceholder() || !head.CreatedAt.Equal(head.UpdatedAt) {
		t.Fatalf("head after create = %+v, want confirmed record with createdAt == updatedAt", head)
	}

	// Update to favorite, then simulate remote failure: cache
	// reverts favorite to false.
	fake.FailUpdate = errors.New("down")
	fav := true
	_, _ = m.Update(context.Background(), owner, b.ID, domain.Patch{Favorite: &fav})

	pages, _ = c.Get(listKey(owner))
	if pages[0].Bookmarks[0].Favorite {
		t.Error("cache favorite should have reverted to false after remote failure")
	}
}
