// Package feed delivers bookmark change notifications to subscribers.
//
// The Hub fans out created/deleted events inside one process. The
// optional redis Bridge extends the fan-out across instances so feeds
// behave the same whether two tabs share a server or not.
package feed

import (
	"sync"
	"time"

	"github.com/smartmark/smartmark/internal/domain"
	"github.com/smartmark/smartmark/internal/logger"
)

// subscriptionBuffer is the per-subscriber event buffer. A subscriber
// that falls this far behind loses events instead of blocking publishers.
const subscriptionBuffer = 16

// Subscription is one consumer's handle on the change feed. Close must
// be called on teardown; calling it more than once is safe.
type Subscription struct {
	events chan domain.ChangeEvent
	hub    *Hub
	once   sync.Once
}

// Events returns the channel of change events. It is closed when the
// subscription or the hub is closed.
func (s *Subscription) Events() <-chan domain.ChangeEvent {
	return s.events
}

// Close releases the subscription. Events buffered but not yet consumed
// are discarded.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
	})
}

// Hub fans out change events to all active subscriptions.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
	logger logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		logger: log,
	}
}

// Subscribe registers a new consumer on the feed.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		events: make(chan domain.ChangeEvent, subscriptionBuffer),
		hub:    h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.events)
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

// Publish delivers an event to every subscriber. Delivery never blocks:
// a subscriber with a full buffer is skipped for this event. The sends
// happen under the read lock so a concurrent unsubscribe or Close (both
// need the write lock) can never close a channel mid-send.
func (h *Hub) Publish(ev domain.ChangeEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		select {
		case sub.events <- ev:
		default:
			h.logger.Warn("slow feed subscriber, dropping event",
				logger.String("event_type", string(ev.Type)))
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close shuts down the hub and closes all subscriber channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		close(sub.events)
		delete(h.subs, sub)
	}
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.events)
	}
}
