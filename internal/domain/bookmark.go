package domain

import (
	"net/url"
	"strings"
	"time"
)

// Bookmark represents one saved link belonging to a single user.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is the store-assigned unique identifier.
	ID int64 `json:"id"`

	// UserID is the owner. Set at creation, never changed.
	UserID string `json:"user_id"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	// Title is the user-supplied display string. Never empty.
	Title string `json:"title"`

	// URL is the saved link. Never empty, intended to be a valid URL.
	URL string `json:"url"`

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	// CreatedAt is assigned by the store and is the sole sort key
	// (descending, newest first). Bookmarks are never mutated after
	// creation, so there is no UpdatedAt.
	CreatedAt time.Time `json:"created_at"`
}

// Hostname extracts the host part of the bookmark URL for favicon display.
// Invalid or scheme-less URLs degrade to an empty string, never an error.
func (b *Bookmark) Hostname() string {
	u, err := url.Parse(b.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// BookmarkInput is the user-supplied payload for creating a bookmark.
type BookmarkInput struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Validate trims surrounding whitespace and checks that both fields are
// present. Returns the trimmed input, or a *ValidationError when either
// field is empty.
func (in BookmarkInput) Validate() (BookmarkInput, error) {
	trimmed := BookmarkInput{
		Title: strings.TrimSpace(in.Title),
		URL:   strings.TrimSpace(in.URL),
	}
	if trimmed.Title == "" || trimmed.URL == "" {
		return BookmarkInput{}, &ValidationError{Reason: "Both URL and title are required."}
	}
	return trimmed, nil
}
