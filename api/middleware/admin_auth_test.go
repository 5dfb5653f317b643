package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/abhiruchieats/storefront-api/pkg/auth"
	"github.com/abhiruchieats/storefront-api/pkg/config"
	"github.com/abhiruchieats/storefront-api/pkg/db/models"
	"github.com/abhiruchieats/storefront-api/pkg/enums"
	pkgerrors "github.com/abhiruchieats/storefront-api/pkg/errors"
)

type stubSessions struct {
	active map[string]bool
	err    error
}

func (s stubSessions) HasSession(_ context.Context, accessID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.active[accessID], nil
}

type stubAdmins map[uuid.UUID]*models.Admin

func (s stubAdmins) FindByID(_ context.Context, id uuid.UUID) (*models.Admin, error) {
	if a, ok := s[id]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func testAdminConfig() config.AdminAuthConfig {
	return config.AdminAuthConfig{
		Secret:     "admin-secret",
		Issuer:     "abhiruchieats-admin",
		TokenTTL:   time.Hour,
		CookieName: "admin-token",
	}
}

func mintAdmin(t *testing.T, admin *models.Admin, accessID string) string {
	t.Helper()
	token, err := pkgauth.MintAdminToken(testAdminConfig(), time.Now(), pkgauth.AdminTokenPayload{
		AdminID:  admin.ID,
		Email:    admin.Email,
		Role:     admin.Role,
		AccessID: accessID,
	})
	if err != nil {
		t.Fatalf("mint admin token: %v", err)
	}
	return token
}

type adminAuthResult struct {
	rec      *httptest.ResponseRecorder
	adminID  uuid.UUID
	role     enums.AdminRole
	accessID string
}

func serveAdminAuth(sessions stubSessions, admins stubAdmins, req *http.Request) adminAuthResult {
	var res adminAuthResult
	handler := AdminAuth(testAdminConfig(), sessions, admins, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res.adminID = AdminIDFromContext(r.Context())
		res.role = AdminRoleFromContext(r.Context())
		res.accessID = AccessIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	res.rec = httptest.NewRecorder()
	handler.ServeHTTP(res.rec, req)
	return res
}

func newAdmin(active bool) *models.Admin {
	return &models.Admin{ID: uuid.New(), Email: "admin@abhiruchieats.com", Role: enums.AdminRoleAdmin, IsActive: active}
}

func TestAdminAuthAcceptsCookie(t *testing.T) {
	admin := newAdmin(true)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "admin-token", Value: mintAdmin(t, admin, "acc-1")})

	res := serveAdminAuth(stubSessions{active: map[string]bool{"acc-1": true}}, stubAdmins{admin.ID: admin}, req)
	if res.rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", res.rec.Code)
	}
	if res.adminID != admin.ID || res.role != enums.AdminRoleAdmin || res.accessID != "acc-1" {
		t.Fatalf("unexpected context: %+v", res)
	}
}

func TestAdminAuthAcceptsBearerHeader(t *testing.T) {
	admin := newAdmin(true)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+mintAdmin(t, admin, "acc-2"))

	res := serveAdminAuth(stubSessions{active: map[string]bool{"acc-2": true}}, stubAdmins{admin.ID: admin}, req)
	if res.rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", res.rec.Code)
	}
}

func TestAdminAuthRejections(t *testing.T) {
	active := newAdmin(true)
	inactive := newAdmin(false)
	admins := stubAdmins{active.ID: active, inactive.ID: inactive}

	tests := []struct {
		name     string
		token    string
		sessions stubSessions
		status   int
		code     pkgerrors.Code
	}{
		{"missing token", "", stubSessions{}, http.StatusUnauthorized, pkgerrors.CodeUnauthorized},
		{"garbage token", "garbage", stubSessions{}, http.StatusUnauthorized, pkgerrors.CodeUnauthorized},
		{"revoked session", mintAdmin(t, active, "gone"), stubSessions{active: map[string]bool{}}, http.StatusUnauthorized, pkgerrors.CodeUnauthorized},
		{"session store down", mintAdmin(t, active, "acc"), stubSessions{err: errors.New("redis down")}, http.StatusServiceUnavailable, pkgerrors.CodeDependency},
		{"inactive admin", mintAdmin(t, inactive, "acc"), stubSessions{active: map[string]bool{"acc": true}}, http.StatusForbidden, pkgerrors.CodeForbidden},
		{"unknown admin", mintAdmin(t, newAdmin(true), "acc"), stubSessions{active: map[string]bool{"acc": true}}, http.StatusForbidden, pkgerrors.CodeForbidden},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/auth/me", nil)
		if tt.token != "" {
			req.AddCookie(&http.Cookie{Name: "admin-token", Value: tt.token})
		}
		res := serveAdminAuth(tt.sessions, admins, req)
		if res.rec.Code != tt.status {
			t.Fatalf("%s: expected %d got %d", tt.name, tt.status, res.rec.Code)
		}
		if code := decodeCode(t, res.rec.Body.Bytes()); code != string(tt.code) {
			t.Fatalf("%s: expected code %s got %s", tt.name, tt.code, code)
		}
	}
}

func TestRequireAdminRole(t *testing.T) {
	handler := RequireAdminRole(enums.AdminRoleSuperAdmin, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		role   enums.AdminRole
		status int
	}{
		{enums.AdminRoleSuperAdmin, http.StatusNoContent},
		{enums.AdminRoleAdmin, http.StatusForbidden},
		{"", http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodDelete, "/api/admin/v1/products/1", nil)
		req = req.WithContext(WithAdmin(req.Context(), uuid.New(), tt.role, "acc"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tt.status {
			t.Fatalf("role %q: expected %d got %d", tt.role, tt.status, rec.Code)
		}
	}
}
