// Package client is the remote counterpart of the in-process store: it
// implements the synchronizer's Store, Identity and FeedSource
// interfaces over the server's HTTP API and websocket feed. The CLI
// runs the exact same synchronizer as the web dashboard through it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smartmark/smartmark/internal/domain"
	"github.com/smartmark/smartmark/internal/session"
	"github.com/smartmark/smartmark/internal/utils"
)

// Client talks to a running smartmark server with a session token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New builds a client for baseURL (e.g. "http://localhost:8080")
// authenticating with a session token, typically lifted from the
// browser's session cookie.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type apiError struct {
	Error string `json:"error"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: c.token})
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// decodeError turns a non-2xx API response into the matching domain
// error so the synchronizer treats remote failures exactly like local
// ones.
func decodeError(resp *http.Response) error {
	var body apiError
	_ = json.NewDecoder(resp.Body).Decode(&body)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return &domain.AuthError{Reason: "You must be logged in to add bookmarks."}
	case http.StatusBadRequest:
		return &domain.ValidationError{Reason: body.Error}
	default:
		msg := body.Error
		if msg == "" {
			msg = resp.Status
		}
		return &domain.StoreError{Op: "api request", Err: fmt.Errorf("%s", msg)}
	}
}

// CurrentUser resolves the session's user via /api/me.
func (c *Client) CurrentUser(ctx context.Context) (domain.User, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/me", nil)
	if err != nil {
		return domain.User{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.User{}, err
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return domain.User{}, decodeError(resp)
	}

	var user domain.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// FetchByOwner lists the session user's bookmarks. The ownerID argument
// is ignored: the server scopes the list to the session.
func (c *Client) FetchByOwner(ctx context.Context, _ string) ([]domain.Bookmark, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/bookmarks", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var bookmarks []domain.Bookmark
	if err := json.NewDecoder(resp.Body).Decode(&bookmarks); err != nil {
		return nil, err
	}
	return bookmarks, nil
}

// Insert saves a bookmark and returns the authoritative stored row.
func (c *Client) Insert(ctx context.Context, _ string, title, rawURL string) (domain.Bookmark, error) {
	payload, err := json.Marshal(domain.BookmarkInput{Title: title, URL: rawURL})
	if err != nil {
		return domain.Bookmark{}, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/bookmarks", bytes.NewReader(payload))
	if err != nil {
		return domain.Bookmark{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Bookmark{}, err
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode != http.StatusCreated {
		return domain.Bookmark{}, decodeError(resp)
	}

	var row domain.Bookmark
	if err := json.NewDecoder(resp.Body).Decode(&row); err != nil {
		return domain.Bookmark{}, err
	}
	return row, nil
}

// DeleteByID removes a bookmark by id.
func (c *Client) DeleteByID(ctx context.Context, _ string, id int64) error {
	req, err := c.newRequest(ctx, http.MethodDelete, fmt.Sprintf("/api/bookmarks/%d", id), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode != http.StatusNoContent {
		return decodeError(resp)
	}
	return nil
}
