package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/smartmark/smartmark/internal/domain"
	"github.com/smartmark/smartmark/internal/httpserver/deps"
	"github.com/smartmark/smartmark/internal/logger"
	"github.com/smartmark/smartmark/internal/session"
	"github.com/smartmark/smartmark/internal/utils"
)

const userinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type googleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

// Login starts the OAuth flow: set a random state cookie and redirect to
// the provider's consent page.
func Login(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := generateStateCookie(w, d.SecureCookie)
		http.Redirect(w, r, d.OAuth.AuthCodeURL(state), http.StatusTemporaryRedirect)
	}
}

// Callback completes the OAuth flow. The provider redirects here with an
// auth code; we exchange it for a session and redirect to the protected
// area (or the caller-specified next path). Every failure collapses to
// /login?error=auth, so transport errors carry no structured message.
func Callback(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next := r.URL.Query().Get("next")
		if next == "" || !strings.HasPrefix(next, "/") {
			next = "/dashboard"
		}

		fail := func(reason string, err error) {
			d.Logger.Warn("oauth callback failed",
				logger.String("reason", reason),
				logger.Error(err))
			http.Redirect(w, r, "/login?error=auth", http.StatusTemporaryRedirect)
		}

		stateCookie, err := r.Cookie("oauthstate")
		if err != nil {
			fail("missing state cookie", err)
			return
		}
		if r.FormValue("state") != stateCookie.Value {
			fail("state mismatch", nil)
			return
		}

		code := r.FormValue("code")
		if code == "" {
			fail("missing code", nil)
			return
		}

		token, err := d.OAuth.Exchange(r.Context(), code)
		if err != nil {
			fail("code exchange failed", err)
			return
		}

		resp, err := d.OAuth.Client(r.Context(), token).Get(userinfoURL)
		if err != nil {
			fail("userinfo fetch failed", err)
			return
		}
		defer utils.Close(resp.Body)

		var gu googleUser
		if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
			fail("userinfo decode failed", err)
			return
		}
		if gu.ID == "" || gu.Email == "" {
			fail("incomplete userinfo", nil)
			return
		}

		user := domain.User{ID: gu.ID, Email: gu.Email}
		if err := d.Store.UpsertUser(r.Context(), user); err != nil {
			fail("user upsert failed", err)
			return
		}

		sessionToken, expires, err := d.Sessions.Issue(user)
		if err != nil {
			fail("session issue failed", err)
			return
		}
		d.Sessions.SetCookie(w, sessionToken, expires)

		d.Logger.Info("login successful",
			logger.String("user_id", user.ID),
			logger.String("email", user.Email))
		http.Redirect(w, r, next, http.StatusTemporaryRedirect)
	}
}

// Logout revokes the session server-side, clears the cookie, and sends
// the browser back to the sign-in page.
func Logout(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(session.CookieName); err == nil {
			if err := d.Sessions.Revoke(r.Context(), cookie.Value); err != nil {
				d.Logger.Warn("session revocation failed", logger.Error(err))
			}
		}
		d.Sessions.ClearCookie(w)
		http.Redirect(w, r, "/login", http.StatusTemporaryRedirect)
	}
}

func generateStateCookie(w http.ResponseWriter, secure bool) string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	state := base64.URLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     "oauthstate",
		Value:    state,
		Expires:  time.Now().Add(20 * time.Minute),
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return state
}
