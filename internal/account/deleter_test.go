package account

import (
	"context"
	"testing"

	"github.com/linkhoard/linkhoard/internal/cache"
	"github.com/linkhoard/linkhoard/internal/domain"
	"github.com/linkhoard/linkhoard/internal/logger"
	"github.com/linkhoard/linkhoard/internal/store/storetest"
)

func TestDeleteAccountRemovesRecordsAndCache(t *testing.T) {
	fake := storetest.New()
	c := cache.New()
	d := New(fake, c, logger.NewNop())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := fake.Create(ctx, "user-1", domain.Draft{Title: "a", URL: "https://a.com"}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := fake.Create(ctx, "user-2", domain.Draft{Title: "b", URL: "https://b.com"}); err != nil {
		t.Fatal(err)
	}

	key := cache.Key{OwnerID: "user-1", Params: domain.SearchParams{}, Mode: cache.ModePaginated}
	c.Replace(key, []cache.Page{{}})

	n, err := d.DeleteAccount(ctx, "user-1")
	if err != nil {
		t.Fatalf("DeleteAccount() unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("DeleteAccount() = %d, want 3", n)
	}
	if fake.Len() != 1 {
		t.Errorf("store has %d records, want 1 (other owner untouched)", fake.Len())
	}
	if _, ok := c.Get(key); ok {
		t.Error("cached entries should be dropped with the account")
	}
}

func TestDeleteAccountRequiresIdentity(t *testing.T) {
	d := New(storetest.New(), cache.New(), logger.NewNop())
	if _, err := d.DeleteAccount(context.Background(), ""); err != domain.ErrUnauthenticated {
		t.Errorf("DeleteAccount() error = %v, want ErrUnauthenticated", err)
	}
}
