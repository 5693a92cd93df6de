package redis

const (
	// KeyPrefixBookmark is the prefix for bookmark document keys.
	KeyPrefixBookmark = "linkhoard:bookmark:"
	// KeyPrefixUser is the prefix for per-user index keys.
	KeyPrefixUser = "linkhoard:user:"

	keySuffixAll          = ":byupdated"
	keySuffixFavorites    = ":favorites:byupdated"
	keySuffixNonFavorites = ":nonfavorites:byupdated"
)

// BookmarkKey returns the key of a bookmark document.
func BookmarkKey(id string) string {
	return KeyPrefixBookmark + id
}

// ByUpdatedKey returns the key of the owner's full index, a sorted
// set scored by updatedAt (unix microseconds).
func ByUpdatedKey(ownerID string) string {
	return KeyPrefixUser + ownerID + keySuffixAll
}

// FavoritesKey returns the key of the owner's favorites-only index.
func FavoritesKey(ownerID string) string {
	return KeyPrefixUser + ownerID + keySuffixFavorites
}

// NonFavoritesKey returns the key of the owner's non-favorites index.
// Kept alongside FavoritesKey so a favorite equality filter can be
// pushed down in either direction.
func NonFavoritesKey(ownerID string) string {
	return KeyPrefixUser + ownerID + keySuffixNonFavorites
}
