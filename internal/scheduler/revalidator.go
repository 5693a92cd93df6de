// Package scheduler runs the background maintenance loops: cache
// revalidation after mutations and eviction of idle query entries.
package scheduler

import (
	"context"
	"time"

	"github.com/linkhoard/linkhoard/internal/cache"
	"github.com/linkhoard/linkhoard/internal/logger"
	"github.com/linkhoard/linkhoard/internal/query"
)

// Revalidator refreshes cached first pages for owners whose entries
// were marked stale by settled mutations. Re-fetching the first page
// replaces the cached entry with authoritative data; deeper pages are
// dropped and re-fetched on demand.
type Revalidator struct {
	engine        *query.Engine
	cache         *cache.Store
	logger        logger.Logger
	interval      time.Duration
	pageSize      int
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewRevalidator creates a revalidator. manualTrigger lets the admin
// endpoint force a sweep between ticks.
func NewRevalidator(
	engine *query.Engine,
	c *cache.Store,
	log logger.Logger,
	interval time.Duration,
	pageSize int,
	manualTrigger chan struct{},
) *Revalidator {
	return &Revalidator{
		engine:        engine,
		cache:         c,
		logger:        log,
		interval:      interval,
		pageSize:      pageSize,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start begins the periodic revalidation process
func (rv *Revalidator) Start(ctx context.Context) error {
	ticker := time.NewTicker(rv.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rv.Sweep(ctx)
			case <-rv.manualTrigger:
				rv.logger.Info("manual revalidation triggered")
				rv.Sweep(ctx)
			case <-rv.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the revalidator
func (rv *Revalidator) Stop() {
	close(rv.stopCh)
}

// Sweep re-fetches the first page of every cached query for every
// stale owner. Failures keep the last-known cached pages, the owner
// is re-marked so the next sweep retries.
func (rv *Revalidator) Sweep(ctx context.Context) {
	owners := rv.cache.TakeStale()
	if len(owners) == 0 {
		return
	}

	refreshed := 0
	for _, owner := range owners {
		for _, key := range rv.cache.Keys(owner) {
			if key.Mode != cache.ModePaginated {
				continue
			}
			if _, err := rv.engine.FetchPage(ctx, owner, key.Params, rv.pageSize, ""); err != nil {
				rv.logger.Warn("revalidation fetch failed",
					logger.String("owner", owner),
					logger.Error(err))
				rv.cache.MarkStale(owner)
				continue
			}
			refreshed++
		}
	}

	if refreshed > 0 {
		rv.logger.Info("revalidation sweep completed",
			logger.Int("owners", len(owners)),
			logger.Int("queries_refreshed", refreshed))
	}
}
