// Package account handles whole-account removal.
package account

import (
	"context"

	"github.com/linkhoard/linkhoard/internal/cache"
	"github.com/linkhoard/linkhoard/internal/domain"
	"github.com/linkhoard/linkhoard/internal/logger"
	"github.com/linkhoard/linkhoard/internal/store"
)

// Deleter wipes every record an owner has, then drops their cached
// state. Deletion is a hard commitment: there is no optimistic phase
// and no rollback, a partial failure surfaces as an error with the
// store in whatever state the bulk delete reached.
type Deleter struct {
	store  store.Adapter
	cache  *cache.Store
	logger logger.Logger
}

func New(adapter store.Adapter, c *cache.Store, log logger.Logger) *Deleter {
	return &Deleter{store: adapter, cache: c, logger: log}
}

// DeleteAccount removes all of the owner's records and cached pages.
// Returns how many records were removed from the store.
func (d *Deleter) DeleteAccount(ctx context.Context, ownerID string) (int64, error) {
	if ownerID == "" {
		return 0, domain.ErrUnauthenticated
	}

	n, err := d.store.DeleteAllForOwner(ctx, ownerID)
	if err != nil {
		d.logger.Error("account deletion failed",
			logger.String("owner", ownerID),
			logger.Error(err))
		return n, domain.MutationFailedError{Op: "delete account", Cause: err}
	}

	d.cache.DropOwner(ownerID)
	d.logger.Info("account deleted",
		logger.String("owner", ownerID),
		logger.Int64("records", n))
	return n, nil
}
