package scheduler

import (
	"context"
	"time"

	"github.com/linkhoard/linkhoard/internal/cache"
	"github.com/linkhoard/linkhoard/internal/logger"
)

const (
	// DefaultIdleTTL is the age after which untouched query entries are evicted
	DefaultIdleTTL = 30 * time.Minute
)

// Janitor evicts cached query entries that have not been touched for
// longer than the TTL.
type Janitor struct {
	cache    *cache.Store
	logger   logger.Logger
	interval time.Duration
	ttl      time.Duration
	stopCh   chan struct{}
}

// NewJanitor creates a cache janitor
func NewJanitor(c *cache.Store, log logger.Logger, interval, ttl time.Duration) *Janitor {
	if ttl == 0 {
		ttl = DefaultIdleTTL
	}

	return &Janitor{
		cache:    c,
		logger:   log,
		interval: interval,
		ttl:      ttl,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic eviction process
func (j *Janitor) Start(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				j.Collect()
			case <-j.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the janitor
func (j *Janitor) Stop() {
	close(j.stopCh)
}

// Collect evicts idle entries once.
func (j *Janitor) Collect() {
	evicted := j.cache.EvictIdle(j.ttl)
	if evicted > 0 {
		j.logger.Info("evicted idle query entries",
			logger.Int("count", evicted))
	} else {
		j.logger.Debug("no idle query entries to evict")
	}
}
