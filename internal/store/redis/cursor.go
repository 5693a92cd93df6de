package redis

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// cursor is the decoded pagination position: the updatedAt score of
// the last returned document plus its id. Callers only ever see the
// opaque encoded form.
type cursor struct {
	Score int64  `json:"s"`
	ID    string `json:"id"`
}

func encodeCursor(c cursor) string {
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

func decodeCursor(raw string) (cursor, error) {
	var c cursor
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return c, fmt.Errorf("malformed cursor: %w", err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("malformed cursor: %w", err)
	}
	return c, nil
}
