// Package mutation implements the optimistic write path: every
// operation applies its effect to the local cache first, then issues
// the remote call, then reconciles on success or restores the
// pre-mutation snapshot on failure.
package mutation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/linkhoard/linkhoard/internal/cache"
	"github.com/linkhoard/linkhoard/internal/domain"
	"github.com/linkhoard/linkhoard/internal/logger"
	"github.com/linkhoard/linkhoard/internal/store"
)

// Mutator coordinates the three-phase mutation protocol against one
// shared cache. Multiple mutations may be in flight at once; each
// carries its own snapshot, so rollback restores only to the state
// captured immediately before that mutation's optimistic apply.
// Same-record mutations are not serialized: the final cached state
// reflects whichever remote call resolves last.
type Mutator struct {
	store  store.Adapter
	cache  *cache.Store
	logger logger.Logger
	now    func() time.Time
}

// New creates a mutator. The cache is an explicit constructor
// parameter, never ambient global state.
func New(adapter store.Adapter, c *cache.Store, log logger.Logger) *Mutator {
	return &Mutator{store: adapter, cache: c, logger: log, now: time.Now}
}

// Create synthesizes a placeholder record, prepends it to the head
// of every matching cached query, then issues the remote create.
// On success the placeholder is replaced by the authoritative record
// wherever it appears; on failure the pre-mutation snapshot is
// restored exactly.
func (m *Mutator) Create(ctx context.Context, ownerID string, draft domain.Draft) (*domain.Bookmark, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	// Placeholder timestamps are client-assigned; the store replaces
	// them with its own clock on reconciliation.
	localNow := m.now()
	placeholder := &domain.Bookmark{
		ID:        domain.PlaceholderPrefix + uuid.NewString(),
		UserID:    ownerID,
		Title:     draft.Title,
		URL:       draft.URL,
		Notes:     draft.Notes,
		Tags:      domain.NormalizeTags(draft.Tags),
		Favorite:  draft.Favorite,
		CreatedAt: localNow,
		UpdatedAt: localNow,
	}

	snap := m.cache.Snapshot(ownerID)
	m.cache.PrependToFirstPage(ownerID, placeholder, func(k cache.Key) bool {
		return k.Params.Matches(placeholder)
	})

	b, err := m.store.Create(ctx, ownerID, draft)
	m.cache.MarkStale(ownerID)
	if err != nil {
		m.cache.Restore(snap)
		m.logger.Warn("create rolled back",
			logger.String("owner", ownerID),
			logger.Error(err))
		return nil, domain.MutationFailedError{Op: "create", Cause: err}
	}

	m.cache.ReplaceID(ownerID, placeholder.ID, b)
	m.logger.Debug("bookmark created",
		logger.String("owner", ownerID),
		logger.String("id", b.ID))
	return b, nil
}

// Update merges the patch into every cached occurrence of the
// record, stamps a fresh local updatedAt and re-sorts affected
// pages, then issues the remote update. On failure the full
// pre-mutation snapshot is restored.
func (m *Mutator) Update(ctx context.Context, ownerID, id string, patch domain.Patch) (*domain.Bookmark, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if strings.TrimSpace(id) == "" {
		return nil, domain.ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if patch.IsEmpty() {
		return nil, domain.ValidationError{Field: "patch", Reason: "must change at least one field"}
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	localNow := m.now()
	snap := m.cache.Snapshot(ownerID)
	m.cache.UpdateAll(ownerID, id, func(b *domain.Bookmark) {
		patch.Apply(b)
		b.UpdatedAt = localNow
	})

	b, err := m.store.Update(ctx, ownerID, id, patch)
	m.cache.MarkStale(ownerID)
	if err != nil {
		m.cache.Restore(snap)
		if errors.Is(err, domain.ErrNotFoundOrForbidden) {
			return nil, err
		}
		m.logger.Warn("update rolled back",
			logger.String("owner", ownerID),
			logger.String("id", id),
			logger.Error(err))
		return nil, domain.MutationFailedError{Op: "update", Cause: err}
	}

	// Reconcile the authoritative timestamps back into the cache;
	// affected pages re-sort to the store's ordering.
	m.cache.ReplaceID(ownerID, id, b)
	return b, nil
}

// Delete removes every cached occurrence of the record, then issues
// the remote delete. On failure the snapshot is restored.
func (m *Mutator) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return domain.ErrUnauthenticated
	}
	if strings.TrimSpace(id) == "" {
		return domain.ValidationError{Field: "id", Reason: "must not be empty"}
	}

	snap := m.cache.Snapshot(ownerID)
	m.cache.RemoveAll(ownerID, id)

	err := m.store.Delete(ctx, ownerID, id)
	m.cache.MarkStale(ownerID)
	if err != nil {
		m.cache.Restore(snap)
		if errors.Is(err, domain.ErrNotFoundOrForbidden) {
			return err
		}
		m.logger.Warn("delete rolled back",
			logger.String("owner", ownerID),
			logger.String("id", id),
			logger.Error(err))
		return domain.MutationFailedError{Op: "delete", Cause: err}
	}
	return nil
}
