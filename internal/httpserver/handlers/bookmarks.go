package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/smartmark/smartmark/internal/domain"
	"github.com/smartmark/smartmark/internal/httpserver/deps"
	"github.com/smartmark/smartmark/internal/httpserver/mw"
	"github.com/smartmark/smartmark/internal/logger"
	"github.com/smartmark/smartmark/internal/store/sqlite"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListBookmarks returns the session user's bookmarks, newest first.
func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := mw.UserFrom(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		bookmarks, err := d.Store.FetchByOwner(r.Context(), user.ID)
		if err != nil {
			d.Logger.Error("failed to fetch bookmarks", logger.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, bookmarks)
	}
}

// CreateBookmark validates the payload, inserts the row, publishes the
// created event, and returns the stored row with its assigned id and
// created_at.
func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := mw.UserFrom(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var input domain.BookmarkInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}

		input, err := input.Validate()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}

		bookmark, err := d.Store.Insert(r.Context(), user.ID, input.Title, input.URL)
		if err != nil {
			d.Logger.Error("failed to insert bookmark", logger.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}

		d.Feed.Publish(r.Context(), domain.ChangeEvent{
			Type:     domain.EventCreated,
			Bookmark: &bookmark,
		})

		d.Logger.Info("bookmark created",
			logger.Int64("bookmark_id", bookmark.ID),
			logger.String("user_id", user.ID))
		writeJSON(w, http.StatusCreated, bookmark)
	}
}

// DeleteBookmark removes an owned bookmark and publishes the deleted
// event. Rows not owned by the session user report 404: the delete is
// owner-scoped in the store itself.
func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := mw.UserFrom(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid bookmark id"})
			return
		}

		if err := d.Store.DeleteByID(r.Context(), user.ID, id); err != nil {
			if errors.Is(err, sqlite.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, errorResponse{Error: "bookmark not found"})
				return
			}
			d.Logger.Error("failed to delete bookmark", logger.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}

		d.Feed.Publish(r.Context(), domain.ChangeEvent{
			Type: domain.EventDeleted,
			ID:   id,
		})

		d.Logger.Info("bookmark deleted",
			logger.Int64("bookmark_id", id),
			logger.String("user_id", user.ID))
		w.WriteHeader(http.StatusNoContent)
	}
}

// Me returns the session's user, the identity half of the client API.
func Me(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := mw.UserFrom(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}
