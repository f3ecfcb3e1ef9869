// Package session issues and verifies the cookie-backed user sessions.
//
// The same Manager serves both bindings of the session capability: the
// HTTP middleware reads the token from the request cookie jar, while the
// terminal client carries the raw token string. Neither caller branches
// on which binding is active.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/smartmark/smartmark/internal/domain"
)

// CookieName is the session cookie set after a successful login.
const CookieName = "smartmark_session"

// ErrNoSession is returned when a request carries no usable session.
var ErrNoSession = fmt.Errorf("no active session")

// Claims are the JWT claims carried by a session token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// RevocationStore marks tokens as revoked on sign-out. Optional: a nil
// store means sign-out relies on cookie clearing alone.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Manager issues, verifies and revokes session tokens.
type Manager struct {
	secret  []byte
	ttl     time.Duration
	secure  bool // Secure flag on cookies (true in production)
	revoked RevocationStore
	now     func() time.Time
}

func NewManager(secret string, ttl time.Duration, secure bool, revoked RevocationStore) *Manager {
	return &Manager{
		secret:  []byte(secret),
		ttl:     ttl,
		secure:  secure,
		revoked: revoked,
		now:     time.Now,
	}
}

// Issue creates a signed session token for the user.
func (m *Manager) Issue(user domain.User) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)

	claims := &Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        newJTI(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, expires, nil
}

// Verify parses and validates a token and returns the session's user.
func (m *Manager) Verify(ctx context.Context, token string) (domain.User, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil || !parsed.Valid {
		return domain.User{}, ErrNoSession
	}

	if m.revoked != nil && claims.ID != "" {
		revoked, err := m.revoked.IsRevoked(ctx, claims.ID)
		if err == nil && revoked {
			return domain.User{}, ErrNoSession
		}
		// A revocation-store failure keeps the session usable: the token
		// signature and expiry already validated.
	}

	return domain.User{ID: claims.Subject, Email: claims.Email}, nil
}

// FromRequest resolves the session of an HTTP request via its cookie.
func (m *Manager) FromRequest(ctx context.Context, r *http.Request) (domain.User, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return domain.User{}, ErrNoSession
	}
	return m.Verify(ctx, cookie.Value)
}

// Revoke invalidates a token server-side for its remaining lifetime.
// A nil revocation store makes this a no-op.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	if m.revoked == nil {
		return nil
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil || !parsed.Valid || claims.ID == "" {
		return nil // expired or malformed tokens need no revocation entry
	}

	remaining := claims.ExpiresAt.Time.Sub(m.now())
	if remaining <= 0 {
		return nil
	}
	return m.revoked.Revoke(ctx, claims.ID, remaining)
}

// SetCookie writes the session cookie on a login response.
func (m *Manager) SetCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Expires:  expires,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie on sign-out.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Expires:  time.Now().Add(-1 * time.Hour),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func newJTI() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
