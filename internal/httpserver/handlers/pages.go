package handlers

import (
	"net/http"

	"github.com/smartmark/smartmark/internal/httpserver/deps"
	"github.com/smartmark/smartmark/internal/httpserver/mw"
	"github.com/smartmark/smartmark/internal/logger"
)

// Landing serves the public front page. Signed-in visitors go straight
// to their dashboard.
func Landing(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := d.Sessions.FromRequest(r.Context(), r); err == nil {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}
		renderPage(d, w, "landing.html", nil)
	}
}

// LoginPage serves the sign-in page. An error=auth query flag shows the
// failed-sign-in banner after a bounced OAuth attempt.
func LoginPage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := d.Sessions.FromRequest(r.Context(), r); err == nil {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}
		renderPage(d, w, "login.html", map[string]any{
			"AuthError": r.URL.Query().Get("error") == "auth",
		})
	}
}

// Dashboard serves the bookmark manager. The route is wrapped in
// RequireSession, so the user is always present on the context.
func Dashboard(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := mw.UserFrom(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		renderPage(d, w, "dashboard.html", map[string]any{
			"Email": user.Email,
		})
	}
}

func renderPage(d deps.Deps, w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := d.WebUI.Render(w, name, data); err != nil {
		d.Logger.Error("failed to render page",
			logger.String("template", name),
			logger.Error(err))
	}
}
