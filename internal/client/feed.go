package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/coder/websocket"

	"github.com/smartmark/smartmark/internal/domain"
	"github.com/smartmark/smartmark/internal/session"
	syncer "github.com/smartmark/smartmark/internal/sync"
)

// feedSubscription adapts one websocket connection to the
// synchronizer's Subscription interface.
type feedSubscription struct {
	conn   *websocket.Conn
	events chan domain.ChangeEvent
	cancel context.CancelFunc
}

func (s *feedSubscription) Events() <-chan domain.ChangeEvent { return s.events }

func (s *feedSubscription) Close() {
	s.cancel()
	_ = s.conn.Close(websocket.StatusNormalClosure, "")
}

// Subscribe opens the server's websocket change feed. Frames are decoded
// into ChangeEvents; the events channel closes when the connection goes
// away.
func (c *Client) Subscribe(ctx context.Context) (syncer.Subscription, error) {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/api/ws"

	header := http.Header{}
	header.Set("Cookie", session.CookieName+"="+c.token)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		return nil, err
	}

	readCtx, cancel := context.WithCancel(context.Background())
	sub := &feedSubscription{
		conn:   conn,
		events: make(chan domain.ChangeEvent),
		cancel: cancel,
	}

	go func() {
		defer close(sub.events)
		for {
			_, data, err := conn.Read(readCtx)
			if err != nil {
				return
			}
			var ev domain.ChangeEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				continue
			}
			select {
			case sub.events <- ev:
			case <-readCtx.Done():
				return
			}
		}
	}()

	return sub, nil
}
