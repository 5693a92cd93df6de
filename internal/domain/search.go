package domain

import (
	"net/url"
	"strconv"
	"strings"
)

// SearchParams is the ephemeral search state. It round-trips with
// the navigable URL (keys "q" and "favorites") so a search is
// shareable and restorable on load.
type SearchParams struct {
	// Query is free text matched client-side; the store has no text
	// index.
	Query string

	// Favorite, when set, is pushed down to the store as an equality
	// filter.
	Favorite *bool
}

// IsZero reports whether no filtering is active.
func (p SearchParams) IsZero() bool {
	return p.Query == "" && p.Favorite == nil
}

// ParamsFromValues restores SearchParams from URL query values.
// Decoding the values produced by Values yields an equal params
// struct.
func ParamsFromValues(v url.Values) SearchParams {
	p := SearchParams{Query: strings.TrimSpace(v.Get("q"))}
	if raw := v.Get("favorites"); raw != "" {
		if b, err := strconv.ParseBool(raw); err == nil {
			p.Favorite = &b
		}
	}
	return p
}

// Values encodes the params back into URL query values.
func (p SearchParams) Values() url.Values {
	v := url.Values{}
	if p.Query != "" {
		v.Set("q", p.Query)
	}
	if p.Favorite != nil {
		v.Set("favorites", strconv.FormatBool(*p.Favorite))
	}
	return v
}

// Identity is the canonical cache-key fragment for these params.
// Two param structs with the same meaning produce the same identity.
func (p SearchParams) Identity() string {
	fav := "-"
	if p.Favorite != nil {
		fav = strconv.FormatBool(*p.Favorite)
	}
	return strings.ToLower(p.Query) + "|" + fav
}

// ApplySearch retains the records whose title, url, notes or any tag
// contains the query as a case-insensitive unanchored substring.
// An empty query returns the input unchanged, same order. The input
// slice is never mutated.
func ApplySearch(records []*Bookmark, p SearchParams) []*Bookmark {
	if p.Query == "" {
		return records
	}
	needle := strings.ToLower(p.Query)
	out := make([]*Bookmark, 0, len(records))
	for _, r := range records {
		if matchesQuery(r, needle) {
			out = append(out, r)
		}
	}
	return out
}

// Matches reports whether a single record satisfies both the server
// and the client half of the params. Used by the mutation layer to
// decide which cached queries should see an optimistic record.
func (p SearchParams) Matches(b *Bookmark) bool {
	if p.Favorite != nil && b.Favorite != *p.Favorite {
		return false
	}
	if p.Query == "" {
		return true
	}
	return matchesQuery(b, strings.ToLower(p.Query))
}

func matchesQuery(b *Bookmark, needle string) bool {
	if strings.Contains(strings.ToLower(b.Title), needle) ||
		strings.Contains(strings.ToLower(b.URL), needle) ||
		strings.Contains(strings.ToLower(b.Notes), needle) {
		return true
	}
	for _, tag := range b.Tags {
		if strings.Contains(tag, needle) {
			return true
		}
	}
	return false
}
