// Package redis implements the document-store adapter on Redis.
// Each bookmark is one JSON document; per-user sorted sets scored by
// updatedAt (unix microseconds) provide the descending listing order,
// cursor pagination, and the count aggregate.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/linkhoard/linkhoard/internal/domain"
	"github.com/linkhoard/linkhoard/internal/store"
)

// Store handles Redis operations for bookmark documents and their
// per-user indexes.
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis-backed store.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

var _ store.Adapter = (*Store)(nil)

// serverNow reads the store's authoritative clock. Timestamps are
// never taken from the caller's machine.
func (s *Store) serverNow(ctx context.Context) (time.Time, error) {
	t, err := s.client.Time(ctx).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read server time: %w", err)
	}
	return t.UTC(), nil
}

// Create persists a validated draft and returns the authoritative
// record. CreatedAt and UpdatedAt are stamped once with the same
// server time.
func (s *Store) Create(ctx context.Context, ownerID string, draft domain.Draft) (*domain.Bookmark, error) {
	now, err := s.serverNow(ctx)
	if err != nil {
		return nil, err
	}

	b := &domain.Bookmark{
		ID:        uuid.NewString(),
		UserID:    ownerID,
		Title:     draft.Title,
		URL:       draft.URL,
		Notes:     draft.Notes,
		Tags:      domain.NormalizeTags(draft.Tags),
		Favorite:  draft.Favorite,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.write(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Update verifies ownership, applies the patch, restamps UpdatedAt
// with the server clock, and returns the authoritative record.
// On mismatch or missing record nothing is applied.
func (s *Store) Update(ctx context.Context, ownerID, id string, patch domain.Patch) (*domain.Bookmark, error) {
	b, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	now, err := s.serverNow(ctx)
	if err != nil {
		return nil, err
	}

	patch.Apply(b)
	b.UpdatedAt = now

	if err := s.write(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Delete verifies ownership and removes the document and its index
// entries.
func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	b, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, BookmarkKey(b.ID))
	pipe.ZRem(ctx, ByUpdatedKey(ownerID), b.ID)
	pipe.ZRem(ctx, FavoritesKey(ownerID), b.ID)
	pipe.ZRem(ctx, NonFavoritesKey(ownerID), b.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	return nil
}

// ListPage returns one raw page ordered by updatedAt descending.
// Only the favorite equality filter is pushed down; free-text
// filtering is the search composer's job.
func (s *Store) ListPage(ctx context.Context, ownerID string, filter store.Filter, pageSize int, rawCursor string) (store.Page, error) {
	if pageSize <= 0 {
		return store.Page{}, fmt.Errorf("page size must be positive, got %d", pageSize)
	}

	key := s.indexKey(ownerID, filter)
	members := make([]redis.Z, 0, pageSize)
	maxBound := "+inf"

	if rawCursor != "" {
		cur, err := decodeCursor(rawCursor)
		if err != nil {
			return store.Page{}, err
		}
		// Documents tied on the cursor score resume after the cursor
		// id. Within one score Redis orders members lexicographically,
		// so in reverse order the unread remainder is every member
		// strictly below the cursor id.
		ties, err := s.client.ZRevRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
			Min: strconv.FormatInt(cur.Score, 10),
			Max: strconv.FormatInt(cur.Score, 10),
		}).Result()
		if err != nil {
			return store.Page{}, fmt.Errorf("failed to list bookmarks: %w", err)
		}
		for _, m := range ties {
			if len(members) == pageSize {
				break
			}
			if fmt.Sprint(m.Member) < cur.ID {
				members = append(members, m)
			}
		}
		maxBound = fmt.Sprintf("(%d", cur.Score)
	}

	if len(members) < pageSize {
		// go-redis wants Start=min and Stop=max even with Rev; it
		// swaps them when emitting ZRANGE ... BYSCORE REV.
		rest, err := s.client.ZRangeArgsWithScores(ctx, redis.ZRangeArgs{
			Key:     key,
			Start:   "-inf",
			Stop:    maxBound,
			ByScore: true,
			Rev:     true,
			Count:   int64(pageSize - len(members)),
		}).Result()
		if err != nil {
			return store.Page{}, fmt.Errorf("failed to list bookmarks: %w", err)
		}
		members = append(members, rest...)
	}

	ids := make([]string, 0, len(members))
	for _, m := range members {
		if id, ok := m.Member.(string); ok {
			ids = append(ids, id)
		}
	}

	items, err := s.fetchMany(ctx, ids)
	if err != nil {
		return store.Page{}, err
	}

	page := store.Page{
		Items:   items,
		HasMore: len(members) == pageSize,
	}
	if len(members) > 0 {
		last := members[len(members)-1]
		page.NextCursor = encodeCursor(cursor{
			Score: int64(last.Score),
			ID:    fmt.Sprint(last.Member),
		})
	}
	return page, nil
}

// Count returns the matching record count via the ZCARD aggregate.
func (s *Store) Count(ctx context.Context, ownerID string, filter store.Filter) (int64, error) {
	n, err := s.client.ZCard(ctx, s.indexKey(ownerID, filter)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count bookmarks: %w", err)
	}
	return n, nil
}

// GetAll returns the full matching set ordered by updatedAt
// descending. O(n) in the owner's record count.
func (s *Store) GetAll(ctx context.Context, ownerID string, filter store.Filter) ([]*domain.Bookmark, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(ownerID, filter), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	return s.fetchMany(ctx, ids)
}

// DeleteAllForOwner removes every document owned by ownerID along
// with the owner's indexes. Used by account deletion.
func (s *Store) DeleteAllForOwner(ctx context.Context, ownerID string) (int64, error) {
	ids, err := s.client.ZRevRange(ctx, ByUpdatedKey(ownerID), 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read index: %w", err)
	}

	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, BookmarkKey(id))
	}
	pipe.Del(ctx, ByUpdatedKey(ownerID))
	pipe.Del(ctx, FavoritesKey(ownerID))
	pipe.Del(ctx, NonFavoritesKey(ownerID))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to delete bookmarks: %w", err)
	}
	return int64(len(ids)), nil
}

// getOwned point-reads a document and verifies the stored owner.
// Missing record and owner mismatch are indistinguishable to the
// caller.
func (s *Store) getOwned(ctx context.Context, ownerID, id string) (*domain.Bookmark, error) {
	data, err := s.client.Get(ctx, BookmarkKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFoundOrForbidden
		}
		return nil, fmt.Errorf("failed to get bookmark: %w", err)
	}

	var b domain.Bookmark
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bookmark: %w", err)
	}
	if b.UserID != ownerID {
		return nil, domain.ErrNotFoundOrForbidden
	}
	return &b, nil
}

// write stores the document and keeps the three indexes consistent
// in one pipeline.
func (s *Store) write(ctx context.Context, b *domain.Bookmark) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal bookmark: %w", err)
	}

	score := float64(b.UpdatedAt.UnixMicro())
	member := redis.Z{Score: score, Member: b.ID}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, BookmarkKey(b.ID), data, 0)
	pipe.ZAdd(ctx, ByUpdatedKey(b.UserID), member)
	if b.Favorite {
		pipe.ZAdd(ctx, FavoritesKey(b.UserID), member)
		pipe.ZRem(ctx, NonFavoritesKey(b.UserID), b.ID)
	} else {
		pipe.ZAdd(ctx, NonFavoritesKey(b.UserID), member)
		pipe.ZRem(ctx, FavoritesKey(b.UserID), b.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save bookmark: %w", err)
	}
	return nil
}

// fetchMany point-reads documents in order. Documents missing from
// the store (index drift) are skipped rather than failing the page.
func (s *Store) fetchMany(ctx context.Context, ids []string) ([]*domain.Bookmark, error) {
	if len(ids) == 0 {
		return []*domain.Bookmark{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = BookmarkKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bookmarks: %w", err)
	}

	items := make([]*domain.Bookmark, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var b domain.Bookmark
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			continue
		}
		items = append(items, &b)
	}
	return items, nil
}

func (s *Store) indexKey(ownerID string, filter store.Filter) string {
	switch {
	case filter.Favorite == nil:
		return ByUpdatedKey(ownerID)
	case *filter.Favorite:
		return FavoritesKey(ownerID)
	default:
		return NonFavoritesKey(ownerID)
	}
}
