package feed

import (
	"context"

	"github.com/smartmark/smartmark/internal/domain"
)

// Broadcaster is the single entry point for publishing change events.
// It always delivers locally through the hub; when a redis bridge is
// configured it also forwards the event to peer instances. A nil bridge
// means single-instance mode.
type Broadcaster struct {
	hub    *Hub
	bridge *Bridge
}

func NewBroadcaster(hub *Hub, bridge *Bridge) *Broadcaster {
	return &Broadcaster{hub: hub, bridge: bridge}
}

// Publish fans an event out to local subscribers and, when bridged, to
// other instances. The remote publish is best effort.
func (b *Broadcaster) Publish(ctx context.Context, ev domain.ChangeEvent) {
	b.hub.Publish(ev)
	if b.bridge != nil {
		b.bridge.Publish(ctx, ev)
	}
}

// Subscribe registers a consumer on the local hub.
func (b *Broadcaster) Subscribe() *Subscription {
	return b.hub.Subscribe()
}
