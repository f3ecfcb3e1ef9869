package mw

import (
	"context"
	"net/http"
	"strings"

	"github.com/smartmark/smartmark/internal/domain"
	"github.com/smartmark/smartmark/internal/logger"
	"github.com/smartmark/smartmark/internal/session"
)

type ctxKey int

const userKey ctxKey = 0

// UserFrom returns the authenticated user placed on the context by
// RequireSession.
func UserFrom(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(userKey).(domain.User)
	return user, ok
}

// WithUser returns a context carrying the user. Exported for tests that
// exercise protected handlers directly.
func WithUser(ctx context.Context, user domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// RequireSession gates protected content: the session is resolved before
// anything renders. Without one, browser requests are redirected to the
// sign-in page and API requests get 401. With one, the user is placed on
// the context and nothing else happens.
func RequireSession(sessions *session.Manager, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := sessions.FromRequest(r.Context(), r)
			if err != nil {
				if isAPIRequest(r) {
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
				} else {
					http.Redirect(w, r, "/login", http.StatusTemporaryRedirect)
				}
				return
			}

			log.Debugf("RequireSession: user=%s path=%s", user.ID, r.URL.Path)
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}
