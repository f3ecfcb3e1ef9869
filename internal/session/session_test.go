package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smartmark/smartmark/internal/domain"
)

type fakeRevocations struct {
	revoked map[string]bool
	lastTTL time.Duration
}

func (f *fakeRevocations) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if f.revoked == nil {
		f.revoked = make(map[string]bool)
	}
	f.revoked[jti] = true
	f.lastTTL = ttl
	return nil
}

func (f *fakeRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	return f.revoked[jti], nil
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	m := NewManager("test-secret", time.Hour, false, nil)
	user := domain.User{ID: "user-1", Email: "user@example.com"}

	token, expires, err := m.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if token == "" {
		t.Fatal("Issue() returned empty token")
	}
	if time.Until(expires) <= 0 {
		t.Errorf("Issue() expiry in the past: %v", expires)
	}

	got, err := m.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if got.ID != user.ID || got.Email != user.Email {
		t.Errorf("Verify() = %+v, want %+v", got, user)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m := NewManager("test-secret", time.Hour, false, nil)

	past := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return past }
	token, _, err := m.Issue(domain.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	m.now = time.Now
	if _, err := m.Verify(context.Background(), token); err != ErrNoSession {
		t.Errorf("Verify() expired token error = %v, want ErrNoSession", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewManager("secret-a", time.Hour, false, nil)
	verifier := NewManager("secret-b", time.Hour, false, nil)

	token, _, err := issuer.Issue(domain.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	if _, err := verifier.Verify(context.Background(), token); err != ErrNoSession {
		t.Errorf("Verify() foreign token error = %v, want ErrNoSession", err)
	}
}

func TestRevokeInvalidatesToken(t *testing.T) {
	store := &fakeRevocations{}
	m := NewManager("test-secret", time.Hour, false, store)

	token, _, err := m.Issue(domain.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if _, err := m.Verify(context.Background(), token); err != nil {
		t.Fatalf("Verify() before revocation: %v", err)
	}

	if err := m.Revoke(context.Background(), token); err != nil {
		t.Fatalf("Revoke() error: %v", err)
	}
	if _, err := m.Verify(context.Background(), token); err != ErrNoSession {
		t.Errorf("Verify() after revocation = %v, want ErrNoSession", err)
	}
}

func TestRevokeEntryExpiresWithToken(t *testing.T) {
	store := &fakeRevocations{}
	m := NewManager("test-secret", time.Hour, false, store)

	issued := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }
	token, _, err := m.Issue(domain.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	// Twenty minutes later the revocation entry only needs to outlive the
	// token's remaining forty minutes.
	m.now = func() time.Time { return issued.Add(20 * time.Minute) }
	if err := m.Revoke(context.Background(), token); err != nil {
		t.Fatalf("Revoke() error: %v", err)
	}
	if store.lastTTL != 40*time.Minute {
		t.Errorf("Revoke() stored TTL = %v, want %v", store.lastTTL, 40*time.Minute)
	}
}

func TestFromRequest(t *testing.T) {
	m := NewManager("test-secret", time.Hour, false, nil)
	user := domain.User{ID: "user-1", Email: "user@example.com"}
	token, expires, err := m.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	t.Run("with cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		m.SetCookie(rec, token, expires)

		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		for _, c := range rec.Result().Cookies() {
			req.AddCookie(c)
		}

		got, err := m.FromRequest(context.Background(), req)
		if err != nil {
			t.Fatalf("FromRequest() error: %v", err)
		}
		if got.ID != user.ID {
			t.Errorf("FromRequest() user = %+v, want %+v", got, user)
		}
	})

	t.Run("without cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		if _, err := m.FromRequest(context.Background(), req); err != ErrNoSession {
			t.Errorf("FromRequest() = %v, want ErrNoSession", err)
		}
	})
}
