package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/azizikri/qr-credits/internal/domain"
	jwt "github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestStaticResolver(t *testing.T) {
	r := NewStaticResolver(ParseList(" admin@admin.com , ops@example.com,"))

	cases := []struct {
		id   domain.Identity
		want domain.Policy
	}{
		{domain.Identity{UserID: "admin@admin.com"}, domain.PrivilegedPolicy},
		{domain.Identity{UserID: "Admin@Admin.com"}, domain.PrivilegedPolicy},
		{domain.Identity{UserID: "ops@example.com"}, domain.PrivilegedPolicy},
		{domain.Identity{UserID: "user@example.com"}, domain.StandardPolicy},
		{domain.Identity{UserID: "user@example.com", Role: "admin"}, domain.PrivilegedPolicy},
		{domain.Identity{UserID: "user@example.com", Role: "user"}, domain.StandardPolicy},
	}
	for _, tc := range cases {
		if got := r.Resolve(tc.id); got != tc.want {
			t.Fatalf("Resolve(%+v) = %s, want %s", tc.id, got.Name, tc.want.Name)
		}
	}
}

func TestParseList(t *testing.T) {
	got := ParseList("a, b,,c ")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected list %q", got)
	}
	if ParseList("") != nil {
		t.Fatalf("expected nil for empty input")
	}
}

func TestAuthenticatorParse(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: testSecret, Issuer: "qr-credits"}, nil)

	token := signToken(t, jwt.MapClaims{
		"iss":   "qr-credits",
		"email": "user@example.com",
		"role":  "admin",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	id, err := auth.Parse(token)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if id.UserID != "user@example.com" || id.Role != "admin" {
		t.Fatalf("unexpected identity %+v", id)
	}

	subOnly := signToken(t, jwt.MapClaims{"iss": "qr-credits", "sub": "device-user"})
	id, err = auth.Parse(subOnly)
	if err != nil || id.UserID != "device-user" {
		t.Fatalf("expected sub fallback, got %+v (%v)", id, err)
	}

	wrongIssuer := signToken(t, jwt.MapClaims{"iss": "other", "email": "user@example.com"})
	if _, err := auth.Parse(wrongIssuer); err == nil {
		t.Fatalf("expected issuer mismatch error")
	}

	expired := signToken(t, jwt.MapClaims{
		"iss":   "qr-credits",
		"email": "user@example.com",
		"exp":   time.Now().Add(-time.Hour).Unix(),
	})
	if _, err := auth.Parse(expired); err == nil {
		t.Fatalf("expected expired token error")
	}

	anonymous := signToken(t, jwt.MapClaims{"iss": "qr-credits"})
	if _, err := auth.Parse(anonymous); err == nil {
		t.Fatalf("expected error for token without identity")
	}
}

func TestAuthenticatorMiddleware(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: testSecret}, nil)

	var seen domain.Identity
	h := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.MapClaims{"email": "user@example.com"}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen.UserID != "user@example.com" {
		t.Fatalf("expected identity in context, got %+v", seen)
	}
}

func TestAuthenticatorMiddleware_Disabled(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{}, nil)
	called := false
	h := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if _, ok := FromContext(r.Context()); ok {
			t.Fatalf("disabled auth must not set an identity")
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatalf("expected handler to be called")
	}
}
