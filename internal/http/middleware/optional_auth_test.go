package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, secret, subject, email string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, identityClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestOptionalJWTAnonymousPassesThrough(t *testing.T) {
	mw := OptionalJWT("secret")
	var sawIdentity bool
	req := httptest.NewRequest(http.MethodPost, "/api/reservations", nil)
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawIdentity = IdentityFromContext(r.Context())
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if sawIdentity {
		t.Error("anonymous request should not carry an identity")
	}
}

func TestOptionalJWTAttachesIdentity(t *testing.T) {
	mw := OptionalJWT("secret")
	var identity Identity
	var ok bool
	req := httptest.NewRequest(http.MethodPost, "/api/reservations", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "secret", "user-1", "asha@example.com"))
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok = IdentityFromContext(r.Context())
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !ok || identity.UserID != "user-1" || identity.Email != "asha@example.com" {
		t.Errorf("identity = %+v ok=%v", identity, ok)
	}
}

func TestOptionalJWTRejectsBadToken(t *testing.T) {
	mw := OptionalJWT("secret")
	req := httptest.NewRequest(http.MethodPost, "/api/reservations", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "wrong-secret", "user-1", ""))
	rec := httptest.NewRecorder()

	called := false
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if called {
		t.Error("handler ran despite invalid token")
	}
}

func TestOptionalJWTRejectsExpiredToken(t *testing.T) {
	mw := OptionalJWT("secret")
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	signed, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/reservations", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestOptionalJWTTokenWithoutConfiguredSecret(t *testing.T) {
	mw := OptionalJWT("")
	req := httptest.NewRequest(http.MethodPost, "/api/reservations", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	rec := httptest.NewRecorder()
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}
