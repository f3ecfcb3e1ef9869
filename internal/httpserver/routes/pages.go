package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/smartmark/smartmark/internal/httpserver/deps"
	"github.com/smartmark/smartmark/internal/httpserver/handlers"
	"github.com/smartmark/smartmark/internal/httpserver/mw"
	"github.com/smartmark/smartmark/internal/webui"
)

func init() { Register(registerPages) }

func registerPages(r chi.Router, d deps.Deps) {
	r.Get("/", handlers.Landing(d))
	r.Get("/login", handlers.LoginPage(d))
	r.With(mw.RequireSession(d.Sessions, d.Logger)).Get("/dashboard", handlers.Dashboard(d))
	r.Handle("/static/*", webui.StaticHandler())
}
