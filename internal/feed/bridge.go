package feed

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"

	goredis "github.com/redis/go-redis/v9"

	"github.com/smartmark/smartmark/internal/domain"
	"github.com/smartmark/smartmark/internal/logger"
	redisstore "github.com/smartmark/smartmark/internal/store/redis"
)

// envelope wraps an event on the wire with its origin instance so a
// bridge can skip events it published itself.
type envelope struct {
	Origin string             `json:"origin"`
	Event  domain.ChangeEvent `json:"event"`
}

// Bridge republishes local change events to a redis pub/sub channel and
// injects events from peer instances into the local hub.
type Bridge struct {
	client     *goredis.Client
	hub        *Hub
	logger     logger.Logger
	instanceID string
	stopCh     chan struct{}
	doneCh     chan struct{}
}

func NewBridge(client *goredis.Client, hub *Hub, log logger.Logger) *Bridge {
	return &Bridge{
		client:     client,
		hub:        hub,
		logger:     log,
		instanceID: newInstanceID(),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start opens the pub/sub subscription and begins injecting peer events.
func (b *Bridge) Start(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, redisstore.FeedChannel())

	// Force the subscription to be established before returning, so no
	// peer event published after Start is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	b.logger.Info("feed bridge started",
		logger.String("channel", redisstore.FeedChannel()),
		logger.String("instance_id", b.instanceID))

	go func() {
		defer close(b.doneCh)
		defer func() { _ = pubsub.Close() }()

		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				b.inject(msg.Payload)
			case <-b.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop closes the pub/sub subscription and waits for the pump to exit.
func (b *Bridge) Stop() {
	close(b.stopCh)
	<-b.doneCh
}

// Publish forwards a local event to peer instances. Failures are logged,
// not returned: local delivery already happened.
func (b *Bridge) Publish(ctx context.Context, ev domain.ChangeEvent) {
	data, err := json.Marshal(envelope{Origin: b.instanceID, Event: ev})
	if err != nil {
		b.logger.Error("failed to marshal feed event", logger.Error(err))
		return
	}
	if err := b.client.Publish(ctx, redisstore.FeedChannel(), data).Err(); err != nil {
		b.logger.Warn("failed to publish feed event to redis", logger.Error(err))
	}
}

func (b *Bridge) inject(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.logger.Warn("dropping malformed feed payload", logger.Error(err))
		return
	}
	if env.Origin == b.instanceID {
		return // our own publication echoed back
	}
	b.hub.Publish(env.Event)
}

func newInstanceID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
