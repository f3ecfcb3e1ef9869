package domain

import "time"

// EventType identifies the kind of change carried by a ChangeEvent.
type EventType string

const (
	// EventCreated signals a newly inserted bookmark.
	EventCreated EventType = "created"
	// EventDeleted signals a removed bookmark.
	EventDeleted EventType = "deleted"
)

// ChangeEvent is one notification on the bookmarks change feed.
//
// Created events carry the full row. Deleted events carry only the ID:
// the deleted row (including its owner) is gone by the time the event is
// delivered, so consumers must match deletions by ID alone.
type ChangeEvent struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// Bookmark is set for created events.
	Bookmark *Bookmark `json:"bookmark,omitempty"`

	// ID is set for deleted events.
	ID int64 `json:"id,omitempty"`
}

// OwnerID returns the owner of a created event, or "" when unknown
// (deleted events).
func (e ChangeEvent) OwnerID() string {
	if e.Bookmark != nil {
		return e.Bookmark.UserID
	}
	return ""
}
