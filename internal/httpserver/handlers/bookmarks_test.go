package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/smartmark/smartmark/internal/domain"
	"github.com/smartmark/smartmark/internal/feed"
	"github.com/smartmark/smartmark/internal/httpserver/deps"
	"github.com/smartmark/smartmark/internal/httpserver/mw"
	"github.com/smartmark/smartmark/internal/logger"
	"github.com/smartmark/smartmark/internal/store/sqlite"
)

var handlerDBCounter int

func newTestDeps(t *testing.T) (deps.Deps, *sqlite.Repository, *feed.Hub) {
	t.Helper()

	handlerDBCounter++
	repo, err := sqlite.NewRepository(fmt.Sprintf("file:handlerdb%d?mode=memory&cache=shared", handlerDBCounter))
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	log := logger.New("error", true)
	hub := feed.NewHub(log)
	t.Cleanup(hub.Close)

	d := deps.Deps{
		Logger: log,
		Store:  repo,
		Feed:   feed.NewBroadcaster(hub, nil),
	}
	return d, repo, hub
}

// newTestRouter mounts the bookmark handlers the way the real routes do,
// with asUser injected instead of a session cookie.
func newTestRouter(d deps.Deps, asUser domain.User) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(mw.WithUser(req.Context(), asUser)))
		})
	})
	r.Get("/api/bookmarks", ListBookmarks(d))
	r.Post("/api/bookmarks", CreateBookmark(d))
	r.Delete("/api/bookmarks/{id}", DeleteBookmark(d))
	r.Get("/api/me", Me(d))
	return r
}

func seedUser(t *testing.T, repo *sqlite.Repository, id, email string) domain.User {
	t.Helper()
	user := domain.User{ID: id, Email: email}
	if err := repo.UpsertUser(context.Background(), user); err != nil {
		t.Fatalf("UpsertUser() error = %v", err)
	}
	return user
}

func TestListBookmarksEmpty(t *testing.T) {
	d, repo, _ := newTestDeps(t)
	user := seedUser(t, repo, "u1", "u1@example.com")
	router := newTestRouter(d, user)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bookmarks", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/bookmarks status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("GET /api/bookmarks body = %q, want empty array", body)
	}
}

func TestCreateBookmark(t *testing.T) {
	d, repo, hub := newTestDeps(t)
	user := seedUser(t, repo, "u1", "u1@example.com")
	router := newTestRouter(d, user)

	sub := hub.Subscribe()
	defer sub.Close()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/bookmarks",
		strings.NewReader(`{"title":"Go Blog","url":"https://go.dev/blog"}`))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/bookmarks status = %d, want %d (body %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var row domain.Bookmark
	if err := json.Unmarshal(rec.Body.Bytes(), &row); err != nil {
		t.Fatalf("response decode error = %v", err)
	}
	if row.ID == 0 {
		t.Error("POST /api/bookmarks should return the assigned id")
	}
	if row.UserID != user.ID {
		t.Errorf("row.UserID = %q, want %q", row.UserID, user.ID)
	}
	if row.CreatedAt.IsZero() {
		t.Error("POST /api/bookmarks should return created_at")
	}

	ev := <-sub.Events()
	if ev.Type != domain.EventCreated {
		t.Errorf("published event type = %q, want %q", ev.Type, domain.EventCreated)
	}
	if ev.Bookmark == nil || ev.Bookmark.ID != row.ID {
		t.Error("published event should carry the stored row")
	}
}

func TestCreateBookmarkValidation(t *testing.T) {
	d, repo, _ := newTestDeps(t)
	user := seedUser(t, repo, "u1", "u1@example.com")
	router := newTestRouter(d, user)

	tests := []struct {
		name string
		body string
	}{
		{name: "empty url", body: `{"title":"Go Blog","url":""}`},
		{name: "empty title", body: `{"title":"","url":"https://go.dev"}`},
		{name: "whitespace only", body: `{"title":"   ","url":"   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/bookmarks", strings.NewReader(tt.body))
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}

			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("response decode error = %v", err)
			}
			if resp.Error != "Both URL and title are required." {
				t.Errorf("error message = %q, want %q", resp.Error, "Both URL and title are required.")
			}

			count, err := repo.CountByOwner(context.Background(), user.ID)
			if err != nil {
				t.Fatalf("CountByOwner() error = %v", err)
			}
			if count != 0 {
				t.Errorf("rejected payload must not be stored, found %d rows", count)
			}
		})
	}
}

func TestDeleteBookmark(t *testing.T) {
	d, repo, hub := newTestDeps(t)
	user := seedUser(t, repo, "u1", "u1@example.com")
	router := newTestRouter(d, user)

	row, err := repo.Insert(context.Background(), user.ID, "Go Blog", "https://go.dev/blog")
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	sub := hub.Subscribe()
	defer sub.Close()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/bookmarks/%d", row.ID), nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	ev := <-sub.Events()
	if ev.Type != domain.EventDeleted || ev.ID != row.ID {
		t.Errorf("published event = %+v, want deleted id %d", ev, row.ID)
	}

	count, err := repo.CountByOwner(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("CountByOwner() error = %v", err)
	}
	if count != 0 {
		t.Errorf("bookmark should be gone, found %d rows", count)
	}
}

func TestDeleteBookmarkNotFound(t *testing.T) {
	d, repo, _ := newTestDeps(t)
	user := seedUser(t, repo, "u1", "u1@example.com")
	router := newTestRouter(d, user)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/bookmarks/999", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("DELETE missing row status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestDeleteBookmarkOwnerScoped(t *testing.T) {
	d, repo, _ := newTestDeps(t)
	owner := seedUser(t, repo, "u1", "u1@example.com")
	intruder := seedUser(t, repo, "u2", "u2@example.com")

	row, err := repo.Insert(context.Background(), owner.ID, "Go Blog", "https://go.dev/blog")
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	router := newTestRouter(d, intruder)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/bookmarks/%d", row.ID), nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("cross-owner DELETE status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	count, err := repo.CountByOwner(context.Background(), owner.ID)
	if err != nil {
		t.Fatalf("CountByOwner() error = %v", err)
	}
	if count != 1 {
		t.Errorf("owner's bookmark must survive a foreign delete, found %d rows", count)
	}
}

func TestListBookmarksScopedToOwner(t *testing.T) {
	d, repo, _ := newTestDeps(t)
	owner := seedUser(t, repo, "u1", "u1@example.com")
	other := seedUser(t, repo, "u2", "u2@example.com")

	if _, err := repo.Insert(context.Background(), owner.ID, "Mine", "https://example.com/mine"); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if _, err := repo.Insert(context.Background(), other.ID, "Theirs", "https://example.com/theirs"); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	router := newTestRouter(d, owner)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bookmarks", nil))

	var rows []domain.Bookmark
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("response decode error = %v", err)
	}
	if len(rows) != 1 || rows[0].Title != "Mine" {
		t.Errorf("GET /api/bookmarks = %+v, want only the owner's row", rows)
	}
}

func TestMe(t *testing.T) {
	d, repo, _ := newTestDeps(t)
	user := seedUser(t, repo, "u1", "u1@example.com")
	router := newTestRouter(d, user)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/me status = %d, want %d", rec.Code, http.StatusOK)
	}

	var got domain.User
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("response decode error = %v", err)
	}
	if got.ID != user.ID || got.Email != user.Email {
		t.Errorf("GET /api/me = %+v, want %+v", got, user)
	}
}
