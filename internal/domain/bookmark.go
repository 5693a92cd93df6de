package domain

import (
	"net/url"
	"strings"
	"time"
)

// Bookmark represents a single saved link owned by one user.
// Bookmarks live in one flat collection keyed by generated id;
// tags are inlined per record, there is no separate tag table.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is assigned by the store on creation and never changes.
	// Optimistic placeholders carry a "tmp-" prefixed id until the
	// store confirms the create.
	ID string `json:"id"`

	// UserID is the owning user. Stamped at creation and verified
	// on every update and delete.
	UserID string `json:"userId"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	// Title is required and trimmed. Never empty post-validation.
	Title string `json:"title"`

	// URL is required and must parse as an absolute URL.
	URL string `json:"url"`

	// Notes is optional free text.
	Notes string `json:"notes,omitempty"`

	// Tags are lower-cased, case-insensitively deduplicated,
	// first-seen order preserved for display.
	Tags []string `json:"tags"`

	// Favorite is the only filter pushed down to the store.
	Favorite bool `json:"favorite"`

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	// CreatedAt is set once at creation with the store's clock.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is set at creation and on every mutation with the
	// store's clock. Always >= CreatedAt. Listing order is
	// UpdatedAt descending.
	UpdatedAt time.Time `json:"updatedAt"`
}

// PlaceholderPrefix marks ids synthesized by the mutation layer
// before the store has confirmed a create.
const PlaceholderPrefix = "tmp-"

// IsPlaceholder reports whether the bookmark is an unconfirmed
// optimistic record.
func (b *Bookmark) IsPlaceholder() bool {
	return strings.HasPrefix(b.ID, PlaceholderPrefix)
}

// Clone returns a deep copy. Cache snapshots rely on clones so a
// rollback restores state untouched by later optimistic writes.
func (b *Bookmark) Clone() *Bookmark {
	c := *b
	if b.Tags != nil {
		c.Tags = make([]string, len(b.Tags))
		copy(c.Tags, b.Tags)
	}
	return &c
}

// Draft is the caller-supplied input for creating a bookmark.
type Draft struct {
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Notes    string   `json:"notes"`
	Tags     []string `json:"tags"`
	Favorite bool     `json:"favorite"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Title    *string   `json:"title,omitempty"`
	URL      *string   `json:"url,omitempty"`
	Notes    *string   `json:"notes,omitempty"`
	Tags     *[]string `json:"tags,omitempty"`
	Favorite *bool     `json:"favorite,omitempty"`
}

// IsEmpty reports whether the patch would change nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.URL == nil && p.Notes == nil && p.Tags == nil && p.Favorite == nil
}

// Validate checks a draft before it is allowed anywhere near the
// network. Returns a ValidationError describing the first problem.
func (d *Draft) Validate() error {
	d.Title = strings.TrimSpace(d.Title)
	d.URL = strings.TrimSpace(d.URL)

	if d.Title == "" {
		return ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if err := validateURL(d.URL); err != nil {
		return err
	}
	d.Tags = NormalizeTags(d.Tags)
	return nil
}

// Validate checks a patch. Fields that are present must satisfy the
// same invariants as a draft.
func (p *Patch) Validate() error {
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		if t == "" {
			return ValidationError{Field: "title", Reason: "must not be empty"}
		}
		p.Title = &t
	}
	if p.URL != nil {
		u := strings.TrimSpace(*p.URL)
		if err := validateURL(u); err != nil {
			return err
		}
		p.URL = &u
	}
	if p.Tags != nil {
		tags := NormalizeTags(*p.Tags)
		p.Tags = &tags
	}
	return nil
}

// Apply merges the patch into b. Identity and timestamps are not
// touched here; callers stamp UpdatedAt themselves.
func (p Patch) Apply(b *Bookmark) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.URL != nil {
		b.URL = *p.URL
	}
	if p.Notes != nil {
		b.Notes = *p.Notes
	}
	if p.Tags != nil {
		b.Tags = NormalizeTags(*p.Tags)
	}
	if p.Favorite != nil {
		b.Favorite = *p.Favorite
	}
}

// NormalizeTags lower-cases, trims and deduplicates tags while
// preserving first-seen order. "React" and "react" collapse to one
// entry.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func validateURL(raw string) error {
	if raw == "" {
		return ValidationError{Field: "url", Reason: "must not be empty"}
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ValidationError{Field: "url", Reason: "must be a valid absolute URL"}
	}
	return nil
}
