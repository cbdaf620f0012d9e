package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSignVerify(t *testing.T) {
	s := NewSigner("test-secret", time.Hour)
	tok, jti, exp, err := s.Sign("user-1", []string{"Administrator", "User"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if jti == "" || time.Until(exp) <= 0 {
		t.Fatalf("bad session data jti=%q exp=%v", jti, exp)
	}

	c, err := s.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if c.Subject != "user-1" || c.JWTID != jti || !c.HasRole("Administrator") || c.HasRole("Auditor") {
		t.Errorf("unexpected claims %+v", c)
	}

	if _, err := NewSigner("other", time.Hour).Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("token verified under a different secret: %v", err)
	}
}

func TestSignRequiresSecret(t *testing.T) {
	if _, _, _, err := NewSigner("", 0).Sign("u", nil); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("Sign with empty secret = %v", err)
	}
}

func TestExpiredToken(t *testing.T) {
	s := NewSigner("test-secret", time.Hour)
	s.ttl = -time.Minute
	tok, _, _, err := s.Sign("u", nil)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := s.Verify(tok); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestPassword(t *testing.T) {
	if _, err := HashPassword("short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("HashPassword(short) = %v", err)
	}
	h, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if CheckPassword(h, "correct horse") != nil {
		t.Error("valid password rejected")
	}
	if CheckPassword(h, "wrong horse") == nil {
		t.Error("invalid password accepted")
	}
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, tc := range []struct {
		roles []string
		want  int
	}{
		{nil, http.StatusForbidden},
		{[]string{"User"}, http.StatusForbidden},
		{[]string{"User", "Administrator"}, http.StatusNoContent},
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithClaims(context.Background(), Claims{Subject: "u", Roles: tc.roles}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("roles %v: status %d, want %d", tc.roles, rec.Code, tc.want)
		}
	}
}
