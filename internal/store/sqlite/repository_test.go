package sqlite

import (
	"context"
	"fmt"
	"testing"

	"github.com/smartmark/smartmark/internal/domain"
)

var memDBCounter int

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	memDBCounter++
	url := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", memDBCounter)
	repo, err := NewRepository(url)
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo *Repository, id, email string) {
	t.Helper()
	if err := repo.UpsertUser(context.Background(), domain.User{ID: id, Email: email}); err != nil {
		t.Fatalf("failed to upsert user: %v", err)
	}
}

func TestInsertAndFetchByOwner(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "user-a", "a@example.com")
	seedUser(t, repo, "user-b", "b@example.com")

	first, err := repo.Insert(ctx, "user-a", "First", "https://first.example.com")
	if err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if first.ID == 0 {
		t.Error("Insert() did not assign an id")
	}
	if first.CreatedAt.IsZero() {
		t.Error("Insert() did not assign created_at")
	}

	second, err := repo.Insert(ctx, "user-a", "Second", "https://second.example.com")
	if err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if _, err := repo.Insert(ctx, "user-b", "Foreign", "https://foreign.example.com"); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}

	got, err := repo.FetchByOwner(ctx, "user-a")
	if err != nil {
		t.Fatalf("FetchByOwner() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("FetchByOwner() returned %d bookmarks, want 2", len(got))
	}

	// Newest first; id breaks the tie when both rows share a timestamp.
	if got[0].ID != second.ID {
		t.Errorf("FetchByOwner()[0].ID = %d, want %d (newest first)", got[0].ID, second.ID)
	}
	if got[1].ID != first.ID {
		t.Errorf("FetchByOwner()[1].ID = %d, want %d", got[1].ID, first.ID)
	}
	for _, b := range got {
		if b.UserID != "user-a" {
			t.Errorf("FetchByOwner() leaked foreign bookmark: %+v", b)
		}
	}
}

func TestFetchByOwnerEmpty(t *testing.T) {
	repo := newTestRepo(t)
	seedUser(t, repo, "user-a", "a@example.com")

	got, err := repo.FetchByOwner(context.Background(), "user-a")
	if err != nil {
		t.Fatalf("FetchByOwner() error: %v", err)
	}
	if got == nil {
		t.Error("FetchByOwner() returned nil, want empty slice")
	}
	if len(got) != 0 {
		t.Errorf("FetchByOwner() returned %d bookmarks, want 0", len(got))
	}
}

func TestDeleteByIDOwnerScoped(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "user-a", "a@example.com")
	seedUser(t, repo, "user-b", "b@example.com")

	b, err := repo.Insert(ctx, "user-a", "Mine", "https://mine.example.com")
	if err != nil {
		t.Fatalf("Insert() error: %v", err)
	}

	// Another user cannot delete the row.
	if err := repo.DeleteByID(ctx, "user-b", b.ID); err != ErrNotFound {
		t.Errorf("DeleteByID() foreign owner = %v, want ErrNotFound", err)
	}

	if err := repo.DeleteByID(ctx, "user-a", b.ID); err != nil {
		t.Fatalf("DeleteByID() error: %v", err)
	}

	// Second delete finds nothing.
	if err := repo.DeleteByID(ctx, "user-a", b.ID); err != ErrNotFound {
		t.Errorf("DeleteByID() repeated = %v, want ErrNotFound", err)
	}

	count, err := repo.CountByOwner(ctx, "user-a")
	if err != nil {
		t.Fatalf("CountByOwner() error: %v", err)
	}
	if count != 0 {
		t.Errorf("CountByOwner() = %d, want 0", count)
	}
}

func TestUpsertUserIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.UpsertUser(ctx, domain.User{ID: "user-a", Email: "old@example.com"}); err != nil {
		t.Fatalf("UpsertUser() error: %v", err)
	}
	if err := repo.UpsertUser(ctx, domain.User{ID: "user-a", Email: "new@example.com"}); err != nil {
		t.Fatalf("UpsertUser() second call error: %v", err)
	}

	user, err := repo.UserByEmail(ctx, "new@example.com")
	if err != nil {
		t.Fatalf("UserByEmail() error: %v", err)
	}
	if user.ID != "user-a" {
		t.Errorf("UserByEmail() id = %q, want user-a", user.ID)
	}

	if _, err := repo.UserByEmail(ctx, "old@example.com"); err != ErrNotFound {
		t.Errorf("UserByEmail() stale email = %v, want ErrNotFound", err)
	}
}

func TestExistsByURL(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "user-a", "a@example.com")

	if _, err := repo.Insert(ctx, "user-a", "Docs", "https://docs.example.com"); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}

	exists, err := repo.ExistsByURL(ctx, "user-a", "https://docs.example.com")
	if err != nil {
		t.Fatalf("ExistsByURL() error: %v", err)
	}
	if !exists {
		t.Error("ExistsByURL() = false for stored url")
	}

	exists, err = repo.ExistsByURL(ctx, "user-b", "https://docs.example.com")
	if err != nil {
		t.Fatalf("ExistsByURL() error: %v", err)
	}
	if exists {
		t.Error("ExistsByURL() = true for another owner")
	}
}
