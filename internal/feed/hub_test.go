package feed

import (
	"testing"
	"time"

	"github.com/smartmark/smartmark/internal/domain"
	"github.com/smartmark/smartmark/internal/logger"
)

func testHub() *Hub {
	return NewHub(logger.New("error", false))
}

func recvEvent(t *testing.T, sub *Subscription) domain.ChangeEvent {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		if !ok {
			t.Fatal("subscription channel closed unexpectedly")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return domain.ChangeEvent{}
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	hub := testHub()
	defer hub.Close()

	subA := hub.Subscribe()
	subB := hub.Subscribe()
	defer subA.Close()
	defer subB.Close()

	if got := hub.SubscriberCount(); got != 2 {
		t.Fatalf("SubscriberCount() = %d, want 2", got)
	}

	hub.Publish(domain.ChangeEvent{
		Type:     domain.EventCreated,
		Bookmark: &domain.Bookmark{ID: 1, UserID: "user-a", Title: "T", URL: "https://t.example.com"},
	})

	for _, sub := range []*Subscription{subA, subB} {
		ev := recvEvent(t, sub)
		if ev.Type != domain.EventCreated {
			t.Errorf("event type = %q, want created", ev.Type)
		}
		if ev.Bookmark == nil || ev.Bookmark.ID != 1 {
			t.Errorf("event bookmark = %+v, want id 1", ev.Bookmark)
		}
		if ev.Timestamp.IsZero() {
			t.Error("Publish() did not stamp the event")
		}
	}
}

func TestCloseStopsDelivery(t *testing.T) {
	hub := testHub()
	defer hub.Close()

	sub := hub.Subscribe()
	sub.Close()

	if got := hub.SubscriberCount(); got != 0 {
		t.Errorf("SubscriberCount() after Close = %d, want 0", got)
	}

	// Channel is closed, not leaked.
	if _, ok := <-sub.Events(); ok {
		t.Error("Events() still open after Close")
	}

	// Publishing afterwards must not panic.
	hub.Publish(domain.ChangeEvent{Type: domain.EventDeleted, ID: 7})
}

func TestDoubleCloseIsSafe(t *testing.T) {
	hub := testHub()
	defer hub.Close()

	sub := hub.Subscribe()
	sub.Close()
	sub.Close() // must not panic
}

func TestSlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	hub := testHub()
	defer hub.Close()

	sub := hub.Subscribe()
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Overflow the buffer without draining; Publish must not block.
		for i := 0; i < subscriptionBuffer*2; i++ {
			hub.Publish(domain.ChangeEvent{Type: domain.EventDeleted, ID: int64(i)})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestConcurrentPublishAndClose(t *testing.T) {
	hub := testHub()
	defer hub.Close()

	// Churn subscriptions against a busy publisher: a Close landing
	// between snapshot and send used to close a channel the publisher
	// was still writing to. Run with -race.
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				hub.Publish(domain.ChangeEvent{Type: domain.EventDeleted, ID: 1})
			}
		}
	}()

	for i := 0; i < 200; i++ {
		sub := hub.Subscribe()
		go func() {
			for range sub.Events() {
			}
		}()
		sub.Close()
	}

	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher goroutine did not finish")
	}

	if got := hub.SubscriberCount(); got != 0 {
		t.Errorf("SubscriberCount() after churn = %d, want 0", got)
	}
}

func TestHubCloseClosesSubscribers(t *testing.T) {
	hub := testHub()
	sub := hub.Subscribe()

	hub.Close()

	if _, ok := <-sub.Events(); ok {
		t.Error("Events() still open after hub Close")
	}

	// Subscribing after close yields an already-closed subscription.
	late := hub.Subscribe()
	if _, ok := <-late.Events(); ok {
		t.Error("late Subscribe() returned a live channel on a closed hub")
	}
}
