package routes

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/smartmark/smartmark/internal/httpserver/deps"
	"github.com/smartmark/smartmark/internal/httpserver/handlers"
	"github.com/smartmark/smartmark/internal/httpserver/mw"
)

func init() { Register(registerAPI) }

func registerAPI(r chi.Router, d deps.Deps) {
	requireSession := mw.RequireSession(d.Sessions, d.Logger)

	rateLimit := mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.RateBurst,
		RefillPerIPPerMin: d.RatePerMin,
		TrustProxy:        d.TrustProxy,
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(requireSession)

		// The websocket feed stays outside the per-request timeout: a
		// deadline would tear down the long-lived connection.
		api.Get("/ws", handlers.Feed(d))

		api.Group(func(api chi.Router) {
			api.Use(middleware.Timeout(10 * time.Second))

			api.Get("/me", handlers.Me(d))
			api.Get("/bookmarks", handlers.ListBookmarks(d))
			api.With(rateLimit).Post("/bookmarks", handlers.CreateBookmark(d))
			api.With(rateLimit).Delete("/bookmarks/{id}", handlers.DeleteBookmark(d))
			api.With(mw.AllowOnlyCIDRS(d.AdminCIDRS, d.TrustProxy, d.Logger)).Post("/reload", handlers.Reload(d))
		})
	})
}
