// Package store defines the remote document-store adapter contract.
// Every operation is a single round trip; the adapter owns no state.
package store

import (
	"context"

	"github.com/linkhoard/linkhoard/internal/domain"
)

// Filter is the server-evaluated part of a query. Only the favorite
// equality filter can be pushed down; free-text filtering happens
// client-side in the search composer.
type Filter struct {
	Favorite *bool
}

// Page is one raw page of a listing, ordered by updatedAt descending.
type Page struct {
	Items []*domain.Bookmark

	// NextCursor is an opaque handle into the store's ordering,
	// pointing just past the last item. Empty when the page is the
	// last one.
	NextCursor string

	// HasMore is true when a full page was returned, suggesting more
	// records exist upstream.
	HasMore bool
}

// Adapter is the contract against the hosted document store.
//
// Update and Delete verify the stored owner before mutating and fail
// with domain.ErrNotFoundOrForbidden on mismatch or missing record;
// they never partially apply. Create and Update stamp updatedAt with
// the store's authoritative clock, never the caller's.
type Adapter interface {
	// Create persists a validated draft owned by ownerID and returns
	// the authoritative record with store-assigned id and timestamps.
	Create(ctx context.Context, ownerID string, draft domain.Draft) (*domain.Bookmark, error)

	// Update applies a partial patch to the record and returns the
	// authoritative post-update record.
	Update(ctx context.Context, ownerID, id string, patch domain.Patch) (*domain.Bookmark, error)

	// Delete removes the record.
	Delete(ctx context.Context, ownerID, id string) error

	// ListPage returns one raw page ordered by updatedAt descending,
	// resuming from cursor ("" for the first page).
	ListPage(ctx context.Context, ownerID string, filter Filter, pageSize int, cursor string) (Page, error)

	// Count returns the number of records matching filter using a
	// server-side aggregate.
	Count(ctx context.Context, ownerID string, filter Filter) (int64, error)

	// GetAll returns the full matching set ordered by updatedAt
	// descending. Used for text-filtered counts and profile stats;
	// O(n) in the owner's record count.
	GetAll(ctx context.Context, ownerID string, filter Filter) ([]*domain.Bookmark, error)

	// DeleteAllForOwner removes every record owned by ownerID and
	// returns how many were deleted. Used by account deletion.
	DeleteAllForOwner(ctx context.Context, ownerID string) (int64, error)
}
