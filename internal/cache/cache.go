// Package cache holds the process-local projection of remote
// bookmark state, addressed by query identity (owner + search
// parameters + pagination mode). The cache never owns a bookmark;
// it is derived, invalidatable state that the mutation layer writes
// optimistically and the query engine fills lazily.
package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/linkhoard/linkhoard/internal/domain"
)

// ModePaginated is the pagination mode used by the query engine.
// Kept in the key so differently-shaped projections of the same
// params never collide.
const ModePaginated = "pages"

// Key is the logical query identity of one cache entry.
type Key struct {
	OwnerID string
	Params  domain.SearchParams
	Mode    string
}

// String returns the canonical form used to address the entry.
func (k Key) String() string {
	return k.OwnerID + "|" + k.Params.Identity() + "|" + k.Mode
}

// Page is one cached page of results in listing order.
type Page struct {
	Bookmarks  []*domain.Bookmark
	NextCursor string
	HasMore    bool
}

type entry struct {
	key     Key
	pages   []Page
	touched time.Time
}

// Snapshot is a deep copy of every entry in an owner's namespace,
// captured immediately before an optimistic mutation. Restoring it
// is a full replacement of those entries, never a partial undo.
type Snapshot struct {
	ownerID string
	entries map[string]snapEntry
}

type snapEntry struct {
	key   Key
	pages []Page
}

// Store is the shared cache. All access is mutex-guarded; every
// mutation of cached state goes through the reconciliation protocol
// in the mutation layer, there is no other write path.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	stale   map[string]struct{}
	now     func() time.Time
}

// New creates an empty cache. One instance is created per process
// lifetime and passed explicitly to the query engine and the
// mutation layer.
func New() *Store {
	return &Store{
		entries: make(map[string]*entry),
		stale:   make(map[string]struct{}),
		now:     time.Now,
	}
}

// Get returns a deep copy of the entry's pages. Callers may read the
// result freely without racing later optimistic writes.
func (s *Store) Get(key Key) ([]Page, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key.String()]
	if !ok {
		return nil, false
	}
	return clonePages(e.pages), true
}

// Replace resets the entry to exactly the given pages. Used when a
// first page (empty cursor) is fetched.
func (s *Store) Replace(key Key, pages []Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key.String()] = &entry{key: key, pages: clonePages(pages), touched: s.now()}
}

// SetPageAfter installs the page fetched with afterCursor directly
// behind the cached page whose NextCursor equals it, replacing any
// continuation already present there; a re-fetch of the same cursor
// must not duplicate its page. Deeper pages are dropped, they were
// relative to the replaced continuation. Falls back to a plain
// append when no cached page carries the cursor.
func (s *Store) SetPageAfter(key Key, afterCursor string, page Page) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ks := key.String()
	e, ok := s.entries[ks]
	if !ok {
		e = &entry{key: key}
		s.entries[ks] = e
	}
	cp := clonePages([]Page{page})[0]
	placed := false
	for i := range e.pages {
		if e.pages[i].NextCursor == afterCursor {
			e.pages = append(e.pages[:i+1], cp)
			placed = true
			break
		}
	}
	if !placed {
		e.pages = append(e.pages, cp)
	}
	e.touched = s.now()
}

// Keys returns the query identities currently cached for an owner.
func (s *Store) Keys(ownerID string) []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]Key, 0)
	for _, e := range s.entries {
		if e.key.OwnerID == ownerID {
			keys = append(keys, e.key)
		}
	}
	return keys
}

// Snapshot deep-copies every entry in the owner's namespace. Each
// in-flight mutation carries its own snapshot, so a later-failing
// mutation rolls back only to the state it saw, which may already
// include earlier mutations' optimistic effects.
func (s *Store) Snapshot(ownerID string) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{ownerID: ownerID, entries: make(map[string]snapEntry)}
	for ks, e := range s.entries {
		if e.key.OwnerID != ownerID {
			continue
		}
		snap.entries[ks] = snapEntry{key: e.key, pages: clonePages(e.pages)}
	}
	return snap
}

// Restore replaces every snapshotted entry with its captured state.
// Entries created after the snapshot by concurrent fetches are left
// alone; background revalidation corrects any residual drift.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ks, se := range snap.entries {
		s.entries[ks] = &entry{key: se.key, pages: clonePages(se.pages), touched: s.now()}
	}
	// Entries the snapshot knew nothing about but the mutation may
	// have touched (created between snapshot and rollback) cannot
	// exist: optimistic writes only touch entries present at apply
	// time, all under the same lock.
}

// PrependToFirstPage inserts the bookmark at the head of the first
// page of every owner entry that admit accepts. Listing order is
// updatedAt descending, so fresh records belong at the head. Creates
// nothing when the owner has no cached entries.
func (s *Store) PrependToFirstPage(ownerID string, b *domain.Bookmark, admit func(Key) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.key.OwnerID != ownerID || !admit(e.key) {
			continue
		}
		if len(e.pages) == 0 {
			e.pages = []Page{{}}
		}
		head := &e.pages[0]
		head.Bookmarks = append([]*domain.Bookmark{b.Clone()}, head.Bookmarks...)
		e.touched = s.now()
	}
}

// ReplaceID swaps every cached occurrence of the record with the
// given id for the authoritative version and re-sorts each affected
// page, since the store-assigned updatedAt can differ from the
// optimistic local stamp. Used to reconcile a placeholder after a
// confirmed create and the settled record after a confirmed update.
func (s *Store) ReplaceID(ownerID, id string, authoritative *domain.Bookmark) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.key.OwnerID != ownerID {
			continue
		}
		for pi := range e.pages {
			touched := false
			for bi, b := range e.pages[pi].Bookmarks {
				if b.ID == id {
					e.pages[pi].Bookmarks[bi] = authoritative.Clone()
					touched = true
				}
			}
			if touched {
				sortPage(e.pages[pi].Bookmarks)
			}
		}
	}
}

// UpdateAll applies mutate to every cached occurrence of the record
// and re-sorts each affected page by updatedAt descending, since a
// mutated record may need to move to the top.
func (s *Store) UpdateAll(ownerID, id string, mutate func(*domain.Bookmark)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.key.OwnerID != ownerID {
			continue
		}
		for pi := range e.pages {
			touched := false
			for _, b := range e.pages[pi].Bookmarks {
				if b.ID == id {
					mutate(b)
					touched = true
				}
			}
			if touched {
				sortPage(e.pages[pi].Bookmarks)
			}
		}
	}
}

// RemoveAll deletes every cached occurrence of the record.
func (s *Store) RemoveAll(ownerID, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.key.OwnerID != ownerID {
			continue
		}
		for pi := range e.pages {
			kept := e.pages[pi].Bookmarks[:0]
			for _, b := range e.pages[pi].Bookmarks {
				if b.ID != id {
					kept = append(kept, b)
				}
			}
			e.pages[pi].Bookmarks = kept
		}
	}
}

// MarkStale flags the owner's whole namespace for background
// revalidation. Called after every settled mutation, success or
// failure, to correct drift from the heuristic pagination.
func (s *Store) MarkStale(ownerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stale[ownerID] = struct{}{}
}

// TakeStale returns and clears the set of owners awaiting
// revalidation.
func (s *Store) TakeStale() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	owners := make([]string, 0, len(s.stale))
	for owner := range s.stale {
		owners = append(owners, owner)
	}
	s.stale = make(map[string]struct{})
	return owners
}

// DropOwner removes every entry and staleness mark for the owner.
// Used on account deletion.
func (s *Store) DropOwner(ownerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ks, e := range s.entries {
		if e.key.OwnerID == ownerID {
			delete(s.entries, ks)
		}
	}
	delete(s.stale, ownerID)
}

// EvictIdle drops entries untouched for longer than maxAge and
// returns how many were evicted.
func (s *Store) EvictIdle(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	evicted := 0
	for ks, e := range s.entries {
		if e.touched.Before(cutoff) {
			delete(s.entries, ks)
			evicted++
		}
	}
	return evicted
}

// TagSuggestions flattens the owner's cached pages and returns the
// distinct tags in first-seen order. A pure read-only projection
// over currently cached data, never a second cache.
func (s *Store) TagSuggestions(ownerID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Walk entries in key order so the projection is deterministic.
	keys := make([]string, 0, len(s.entries))
	for ks := range s.entries {
		keys = append(keys, ks)
	}
	sort.Strings(keys)

	tags := make([]string, 0)
	seen := make(map[string]struct{})
	for _, ks := range keys {
		e := s.entries[ks]
		if e.key.OwnerID != ownerID {
			continue
		}
		for _, page := range e.pages {
			for _, b := range page.Bookmarks {
				for _, tag := range b.Tags {
					if _, ok := seen[tag]; ok {
						continue
					}
					seen[tag] = struct{}{}
					tags = append(tags, tag)
				}
			}
		}
	}
	return tags
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// sortPage restores the listing order, updatedAt descending. Stable,
// so records with equal stamps keep their relative order.
func sortPage(page []*domain.Bookmark) {
	sort.SliceStable(page, func(i, j int) bool {
		return page[i].UpdatedAt.After(page[j].UpdatedAt)
	})
}

func clonePages(pages []Page) []Page {
	out := make([]Page, len(pages))
	for i, p := range pages {
		cp := Page{NextCursor: p.NextCursor, HasMore: p.HasMore}
		cp.Bookmarks = make([]*domain.Bookmark, len(p.Bookmarks))
		for j, b := range p.Bookmarks {
			cp.Bookmarks[j] = b.Clone()
		}
		out[i] = cp
	}
	return out
}
