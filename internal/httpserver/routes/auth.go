package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/smartmark/smartmark/internal/httpserver/deps"
	"github.com/smartmark/smartmark/internal/httpserver/handlers"
)

func init() { Register(registerAuth) }

func registerAuth(r chi.Router, d deps.Deps) {
	r.Get("/auth/login", handlers.Login(d))
	r.Get("/auth/callback", handlers.Callback(d))
	r.Get("/auth/logout", handlers.Logout(d))
}
