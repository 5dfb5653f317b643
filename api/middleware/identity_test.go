package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abhiruchieats/storefront-api/internal/identity"
	pkgauth "github.com/abhiruchieats/storefront-api/pkg/auth"
	"github.com/abhiruchieats/storefront-api/pkg/config"
	"github.com/abhiruchieats/storefront-api/pkg/enums"
	pkgerrors "github.com/abhiruchieats/storefront-api/pkg/errors"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "abhiruchieats", ExpirationMinutes: 30}
}

func captureIdentity(t *testing.T, r *http.Request) (identity.Identity, *httptest.ResponseRecorder) {
	t.Helper()
	var got identity.Identity
	var seen bool
	handler := Identity(testJWTConfig(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, seen = identity.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	if rec.Code == http.StatusNoContent && !seen {
		t.Fatalf("identity missing from context")
	}
	return got, rec
}

func TestIdentityUsesSessionHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(SessionHeader, "sess-123")

	who, rec := captureIdentity(t, req)
	if who.Kind() != enums.OwnerKindSession || who.SessionID() != "sess-123" {
		t.Fatalf("unexpected identity %+v", who)
	}
	if rec.Header().Get(SessionHeader) != "" {
		t.Fatalf("existing session id should not be re-issued")
	}
}

func TestIdentityMintsSessionWhenMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)

	who, rec := captureIdentity(t, req)
	issued := rec.Header().Get(SessionHeader)
	if issued == "" {
		t.Fatalf("expected a session id in the response header")
	}
	if who.SessionID() != issued {
		t.Fatalf("context session %q does not match header %q", who.SessionID(), issued)
	}
}

func TestIdentityPrefersBearerToken(t *testing.T) {
	token, err := pkgauth.MintCustomerToken(testJWTConfig(), time.Now(), pkgauth.CustomerTokenPayload{
		UserID: "user-42",
		Email:  "priya@example.com",
		Name:   "Priya",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(SessionHeader, "sess-ignored")

	who, _ := captureIdentity(t, req)
	if !who.IsAuthenticated() || who.UserID() != "user-42" || who.Email() != "priya@example.com" {
		t.Fatalf("unexpected identity %+v", who)
	}
}

func TestIdentityRejectsInvalidBearer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")

	_, rec := captureIdentity(t, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	if code := decodeCode(t, rec.Body.Bytes()); code != string(pkgerrors.CodeUnauthorized) {
		t.Fatalf("unexpected code %s", code)
	}
}
