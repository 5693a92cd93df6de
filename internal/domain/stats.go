package domain

import (
	"math"
	"sort"
	"time"
)

// RecentWindow is the recency bucket used by the profile page.
const RecentWindow = 7 * 24 * time.Hour

// TagCount is one entry of the tag frequency histogram.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Stats is the summary derived from a full snapshot of a user's
// bookmarks.
type Stats struct {
	TotalCount           int        `json:"totalCount"`
	FavoriteCount        int        `json:"favoriteCount"`
	UniqueTagCount       int        `json:"uniqueTagCount"`
	RecentCount          int        `json:"recentCount"`
	AverageTagsPerRecord float64    `json:"averageTagsPerRecord"`
	MaxTagsOnSingleItem  int        `json:"maxTagsOnSingleRecord"`
	MostRecent           *Bookmark  `json:"mostRecentRecord,omitempty"`
	TopTags              []TagCount `json:"topTags"`
}

// ComputeStats derives summary metrics from records. Pure and
// deterministic: no I/O, input order preserved. Records are assumed
// sorted by UpdatedAt descending, so the most recent record is the
// first element.
func ComputeStats(records []*Bookmark, now time.Time) Stats {
	s := Stats{TotalCount: len(records), TopTags: []TagCount{}}
	if len(records) == 0 {
		return s
	}

	s.MostRecent = records[0]
	cutoff := now.Add(-RecentWindow)

	tagTotal := 0
	counts := make(map[string]int)
	firstSeen := make(map[string]int)

	for _, r := range records {
		if r.Favorite {
			s.FavoriteCount++
		}
		if !r.CreatedAt.Before(cutoff) {
			s.RecentCount++
		}
		if len(r.Tags) > s.MaxTagsOnSingleItem {
			s.MaxTagsOnSingleItem = len(r.Tags)
		}
		tagTotal += len(r.Tags)
		for _, tag := range r.Tags {
			if _, ok := counts[tag]; !ok {
				firstSeen[tag] = len(firstSeen)
			}
			counts[tag]++
		}
	}

	s.UniqueTagCount = len(counts)
	s.AverageTagsPerRecord = math.Round(float64(tagTotal)/float64(len(records))*10) / 10

	s.TopTags = make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		s.TopTags = append(s.TopTags, TagCount{Tag: tag, Count: n})
	}
	// Descending by count, ties broken by first-seen order.
	sort.SliceStable(s.TopTags, func(i, j int) bool {
		if s.TopTags[i].Count != s.TopTags[j].Count {
			return s.TopTags[i].Count > s.TopTags[j].Count
		}
		return firstSeen[s.TopTags[i].Tag] < firstSeen[s.TopTags[j].Tag]
	})

	return s
}
