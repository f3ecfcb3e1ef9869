package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/smartmark/smartmark/internal/domain"
	"github.com/smartmark/smartmark/internal/httpserver/deps"
	"github.com/smartmark/smartmark/internal/httpserver/mw"
	"github.com/smartmark/smartmark/internal/logger"
)

const wsWriteTimeout = 5 * time.Second

// Feed upgrades the connection and streams the change feed as JSON text
// frames. Created events are only forwarded to their owner's sessions;
// deleted events go to everyone because a deleted row's owner is unknown
// by the time the event exists. The hub subscription is released when
// the connection goes away.
func Feed(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := mw.UserFrom(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			d.Logger.Warn("websocket upgrade failed", logger.Error(err))
			return
		}

		sub := d.Feed.Subscribe()
		defer sub.Close()

		d.Logger.Debug("feed subscriber connected",
			logger.String("user_id", user.ID))

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Clients don't send anything meaningful; the read loop only
		// notices disconnects.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.Read(ctx); err != nil {
					return
				}
			}
		}()

		defer func() {
			_ = conn.Close(websocket.StatusNormalClosure, "")
		}()

		for {
			select {
			case ev, open := <-sub.Events():
				if !open {
					return
				}
				if ev.Type == domain.EventCreated && ev.OwnerID() != user.ID {
					continue // server-side owner scoping
				}
				data, err := json.Marshal(ev)
				if err != nil {
					d.Logger.Error("failed to marshal change event", logger.Error(err))
					continue
				}
				writeCtx, writeCancel := context.WithTimeout(ctx, wsWriteTimeout)
				err = conn.Write(writeCtx, websocket.MessageText, data)
				writeCancel()
				if err != nil {
					d.Logger.Debug("feed subscriber write failed, dropping connection",
						logger.String("user_id", user.ID),
						logger.Error(err))
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}
}
