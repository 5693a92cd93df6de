package seed

import (
	"context"
	"fmt"

	"github.com/linkhoard/linkhoard/internal/logger"
	"github.com/linkhoard/linkhoard/internal/store"
)

// Importer loads a seed file and writes its bookmarks through the
// store adapter.
type Importer struct {
	loader *Loader
	store  store.Adapter
	logger logger.Logger
}

func NewImporter(filePath string, adapter store.Adapter, log logger.Logger) *Importer {
	return &Importer{
		loader: NewLoader(filePath),
		store:  adapter,
		logger: log,
	}
}

// Run imports every user block in the seed file. Users who already
// have records keep them untouched.
func (i *Importer) Run(ctx context.Context) error {
	f, err := i.loader.Load()
	if err != nil {
		return err
	}

	for _, u := range f.Users {
		if u.UserID == "" {
			i.logger.Warn("seed block without user id, skipping")
			continue
		}

		n, err := i.store.Count(ctx, u.UserID, store.Filter{})
		if err != nil {
			return fmt.Errorf("checking existing records for %s: %w", u.UserID, err)
		}
		if n > 0 {
			i.logger.Info("user already has records, skipping seed",
				logger.String("user", u.UserID),
				logger.Int64("existing", n))
			continue
		}

		drafts, skipped := MapDrafts(u.Bookmarks)
		if skipped > 0 {
			i.logger.Warn("seed entries failed validation",
				logger.String("user", u.UserID),
				logger.Int("skipped", skipped))
		}

		for _, d := range drafts {
			if _, err := i.store.Create(ctx, u.UserID, d); err != nil {
				return fmt.Errorf("seeding bookmark %q for %s: %w", d.Title, u.UserID, err)
			}
		}
		i.logger.Info("seeded user",
			logger.String("user", u.UserID),
			logger.Int("bookmarks", len(drafts)))
	}
	return nil
}
