// Package sync owns the client-visible bookmark list and keeps it
// consistent with the store: initial fetch, optimistic mutations,
// change-feed merging, and reconciliation on failure.
//
// The Synchronizer is transport-agnostic. It runs identically over the
// in-process store or the remote HTTP client because it only consumes
// the narrow Store/Identity/FeedSource interfaces below.
package sync

import (
	"context"
	"sync"

	"github.com/smartmark/smartmark/internal/domain"
	"github.com/smartmark/smartmark/internal/logger"
)

// Store is the bookmark persistence the synchronizer talks to.
type Store interface {
	FetchByOwner(ctx context.Context, ownerID string) ([]domain.Bookmark, error)
	Insert(ctx context.Context, ownerID, title, url string) (domain.Bookmark, error)
	DeleteByID(ctx context.Context, ownerID string, id int64) error
}

// Identity resolves the current session's user. Implementations return a
// *domain.AuthError when no identity is available.
type Identity interface {
	CurrentUser(ctx context.Context) (domain.User, error)
}

// Subscription is a handle on an open change feed.
type Subscription interface {
	Events() <-chan domain.ChangeEvent
	Close()
}

// FeedSource opens change-feed subscriptions.
type FeedSource interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// Snapshot is the read model handed to presentation code.
type Snapshot struct {
	Bookmarks  []domain.Bookmark
	Loading    bool
	Submitting bool
	Err        string // inline error message, empty when clear
}

// Synchronizer keeps a transient local cache of the current user's
// bookmarks that eventually agrees with the store.
type Synchronizer struct {
	store    Store
	identity Identity
	feed     FeedSource
	logger   logger.Logger

	mu         sync.Mutex
	bookmarks  []domain.Bookmark
	loading    bool
	submitting bool
	errMsg     string
	userID     string
	closed     bool
	sub        Subscription

	notify chan struct{}
}

func New(store Store, identity Identity, feed FeedSource, log logger.Logger) *Synchronizer {
	return &Synchronizer{
		store:    store,
		identity: identity,
		feed:     feed,
		logger:   log,
		notify:   make(chan struct{}, 1),
	}
}

// Start kicks off the initial fetch and, concurrently, the change-feed
// subscription. Neither gates the other.
func (s *Synchronizer) Start(ctx context.Context) {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	go s.initialFetch(ctx)
	go s.openFeed(ctx)
}

// Notify returns a channel that receives a signal after every state
// change. Signals are coalesced: a slow consumer sees at least one.
func (s *Synchronizer) Notify() <-chan struct{} {
	return s.notify
}

// Snapshot returns a copy of the current read model.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]domain.Bookmark, len(s.bookmarks))
	copy(list, s.bookmarks)
	return Snapshot{
		Bookmarks:  list,
		Loading:    s.loading,
		Submitting: s.submitting,
		Err:        s.errMsg,
	}
}

// Add validates the input, resolves the session identity, inserts the
// bookmark, and prepends the store's returned row. Validation and auth
// failures never reach the store.
func (s *Synchronizer) Add(ctx context.Context, title, url string) error {
	input, err := domain.BookmarkInput{Title: title, URL: url}.Validate()
	if err != nil {
		s.setError(err.Error())
		return err
	}

	s.mu.Lock()
	s.submitting = true
	s.errMsg = ""
	s.mu.Unlock()
	s.signal()

	user, err := s.identity.CurrentUser(ctx)
	if err != nil {
		authErr := &domain.AuthError{Reason: "You must be logged in to add bookmarks."}
		s.mu.Lock()
		s.submitting = false
		if !s.closed {
			s.errMsg = authErr.Reason
		}
		s.mu.Unlock()
		s.signal()
		return authErr
	}

	created, err := s.store.Insert(ctx, user.ID, input.Title, input.URL)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false

	if s.closed {
		// Late completion after teardown: drop it.
		return err
	}

	if err != nil {
		// Surface the store's message as-is; the list stays untouched so
		// the user can retry with the same input.
		s.errMsg = err.Error()
		s.signalLocked()
		return err
	}

	// Prepend the authoritative returned row. The feed echo for this
	// same id may have won the race, so dedup here too.
	if !s.containsLocked(created.ID) {
		s.bookmarks = append([]domain.Bookmark{created}, s.bookmarks...)
	}
	s.errMsg = ""
	s.signalLocked()
	return nil
}

// Delete removes the entry locally before any network confirmation, then
// issues the remote delete. On failure the whole list is re-fetched to
// reconcile with ground truth rather than undoing the one edit.
func (s *Synchronizer) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.removeLocked(id)
	s.mu.Unlock()
	s.signal()

	user, err := s.identity.CurrentUser(ctx)
	if err == nil {
		err = s.store.DeleteByID(ctx, user.ID, id)
	}
	if err != nil {
		s.logger.Warn("bookmark delete failed, reconciling with store",
			logger.Int64("bookmark_id", id),
			logger.Error(err))
		s.reconcile(ctx)
	}
	return err
}

// Close releases the change-feed subscription and marks the synchronizer
// torn down. Completions and events arriving afterwards are no-ops.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.sub != nil {
		s.sub.Close()
		s.sub = nil
	}
}

func (s *Synchronizer) initialFetch(ctx context.Context) {
	user, err := s.identity.CurrentUser(ctx)
	var list []domain.Bookmark
	if err == nil {
		list, err = s.store.FetchByOwner(ctx, user.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.loading = false
	if err != nil {
		s.errMsg = err.Error()
		s.bookmarks = []domain.Bookmark{}
	} else {
		s.userID = user.ID
		if list == nil {
			list = []domain.Bookmark{}
		}
		s.bookmarks = list
	}
	s.signalLocked()
}

func (s *Synchronizer) openFeed(ctx context.Context) {
	user, err := s.identity.CurrentUser(ctx)
	if err != nil {
		s.logger.Debug("no identity, change feed not opened")
		return
	}

	sub, err := s.feed.Subscribe(ctx)
	if err != nil {
		s.logger.Warn("failed to open change feed", logger.Error(err))
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sub.Close()
		return
	}
	s.sub = sub
	s.userID = user.ID
	s.mu.Unlock()

	for ev := range sub.Events() {
		s.merge(ev)
	}
}

// merge applies one change-feed event to the local list. The policy is
// idempotent: the same logical creation can be observed twice (once via
// Add's own response, once via the echoed feed event).
func (s *Synchronizer) merge(ev domain.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	switch ev.Type {
	case domain.EventCreated:
		if ev.Bookmark == nil {
			return
		}
		// Foreign-owner filtering on top of server-side scoping; both
		// must hold independently.
		if s.userID != "" && ev.Bookmark.UserID != s.userID {
			return
		}
		if s.containsLocked(ev.Bookmark.ID) {
			return
		}
		// Prepending preserves descending-time order: new entries are
		// always newest.
		s.bookmarks = append([]domain.Bookmark{*ev.Bookmark}, s.bookmarks...)
		s.signalLocked()

	case domain.EventDeleted:
		// Owner may be absent on deletion events; match by id alone.
		if s.removeLocked(ev.ID) {
			s.signalLocked()
		}
	}
}

// reconcile replaces local state with a fresh authoritative read.
func (s *Synchronizer) reconcile(ctx context.Context) {
	s.mu.Lock()
	ownerID := s.userID
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}

	// A delete can fail before the initial fetch has recorded the owner;
	// resolve the identity directly so the rollback still happens.
	if ownerID == "" {
		user, err := s.identity.CurrentUser(ctx)
		if err != nil {
			s.logger.Warn("reconciliation skipped, no identity", logger.Error(err))
			return
		}
		ownerID = user.ID
	}

	list, err := s.store.FetchByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error("reconciliation fetch failed", logger.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if list == nil {
		list = []domain.Bookmark{}
	}
	s.bookmarks = list
	s.signalLocked()
}

func (s *Synchronizer) containsLocked(id int64) bool {
	for i := range s.bookmarks {
		if s.bookmarks[i].ID == id {
			return true
		}
	}
	return false
}

func (s *Synchronizer) removeLocked(id int64) bool {
	for i := range s.bookmarks {
		if s.bookmarks[i].ID == id {
			s.bookmarks = append(s.bookmarks[:i:i], s.bookmarks[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Synchronizer) setError(msg string) {
	s.mu.Lock()
	if !s.closed {
		s.errMsg = msg
	}
	s.mu.Unlock()
	s.signal()
}

func (s *Synchronizer) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// signalLocked is signal for callers already holding mu. The channel send
// never blocks, so holding the lock is safe.
func (s *Synchronizer) signalLocked() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}
