package seed

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/linkhoard/linkhoard/internal/logger"
	"github.com/linkhoard/linkhoard/internal/store/storetest"
)

func TestMapDrafts(t *testing.T) {
	entries := []Entry{
		{Title: "Go docs", URL: "https://go.dev/doc", Tags: []string{"Go", "docs"}},
		{Title: "", URL: "https://missing-title.com"},       // invalid: no title
		{Title: "Relative", URL: "not-a-url"},               // invalid: no scheme
		{Title: "Favs", URL: "https://fav.com", Favorite: true},
	}

	drafts, skipped := MapDrafts(entries)
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
	if len(drafts) != 2 {
		t.Fatalf("drafts = %d, want 2", len(drafts))
	}
	if !reflect.DeepEqual(drafts[0].Tags, []string{"go", "docs"}) {
		t.Errorf("tags = %v, want normalized [go docs]", drafts[0].Tags)
	}
	if !drafts[1].Favorite {
		t.Error("favorite flag should survive mapping")
	}
}

func TestImporterRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	content := `users:
  - user: user-1
    bookmarks:
      - title: Go docs
        url: https://go.dev/doc
        tags: [go, docs]
      - title: Broken
        url: nope
  - user: user-2
    bookmarks:
      - title: Example
        url: https://example.com
        favorite: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	fake := storetest.New()
	imp := NewImporter(path, fake, logger.NewNop())
	if err := imp.Run(context.Background()); err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if fake.Len() != 2 {
		t.Errorf("store has %d records, want 2 (invalid entry skipped)", fake.Len())
	}

	// Second run is a no-op for seeded users.
	if err := imp.Run(context.Background()); err != nil {
		t.Fatalf("Run() second pass error: %v", err)
	}
	if fake.Len() != 2 {
		t.Errorf("store has %d records after re-run, want 2", fake.Len())
	}
}

func TestLoaderMissingFile(t *testing.T) {
	l := NewLoader("/does/not/exist.yaml")
	if _, err := l.Load(); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}

func TestMapDraftsEmpty(t *testing.T) {
	drafts, skipped := MapDrafts(nil)
	if len(drafts) != 0 || skipped != 0 {
		t.Errorf("MapDrafts(nil) = %d drafts, %d skipped; want 0, 0", len(drafts), skipped)
	}
}
