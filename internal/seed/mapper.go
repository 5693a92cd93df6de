package seed

import (
	"github.com/linkhoard/linkhoard/internal/domain"
)

// MapDrafts converts a user's seed entries into validated drafts.
// Invalid entries are dropped rather than failing the whole import;
// the skipped count lets the caller log them.
func MapDrafts(entries []Entry) (drafts []domain.Draft, skipped int) {
	drafts = make([]domain.Draft, 0, len(entries))
	for _, e := range entries {
		d := domain.Draft{
			Title:    e.Title,
			URL:      e.URL,
			Notes:    e.Notes,
			Tags:     e.Tags,
			Favorite: e.Favorite,
		}
		if err := d.Validate(); err != nil {
			skipped++
			continue
		}
		drafts = append(drafts, d)
	}
	return drafts, skipped
}
