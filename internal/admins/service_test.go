package admins

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/abhiruchieats/storefront-api/pkg/auth"
	"github.com/abhiruchieats/storefront-api/pkg/config"
	"github.com/abhiruchieats/storefront-api/pkg/db/dbtest"
	"github.com/abhiruchieats/storefront-api/pkg/db/models"
	"github.com/abhiruchieats/storefront-api/pkg/enums"
	pkgerrors "github.com/abhiruchieats/storefront-api/pkg/errors"
	"github.com/abhiruchieats/storefront-api/pkg/security"
)

var (
	testAuthCfg = config.AdminAuthConfig{
		Secret:   "admin-secret",
		Issuer:   "abhiruchieats-admin",
		TokenTTL: 24 * time.Hour,
	}
	// Cheap argon parameters keep the tests fast.
	testPasswordCfg = config.PasswordConfig{
		ArgonMemoryKB:    64,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
)

type stubSessions struct {
	sessions  map[string]uuid.UUID
	createErr error
}

func newStubSessions() *stubSessions {
	return &stubSessions{sessions: map[string]uuid.UUID{}}
}

func (s *stubSessions) Create(_ context.Context, adminID uuid.UUID) (string, error) {
	if s.createErr != nil {
		return "", s.createErr
	}
	id := uuid.NewString()
	s.sessions[id] = adminID
	return id, nil
}

func (s *stubSessions) Revoke(_ context.Context, accessID string) error {
	delete(s.sessions, accessID)
	return nil
}

type adminFixture struct {
	svc      *service
	repo     *Repository
	sessions *stubSessions
}

func newFixture(t *testing.T) adminFixture {
	t.Helper()
	repo := NewRepository(dbtest.Open(t, dbtest.Admins))
	sessions := newStubSessions()
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Sessions: sessions,
		Auth:     testAuthCfg,
		Password: testPasswordCfg,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return adminFixture{svc: svc.(*service), repo: repo, sessions: sessions}
}

func (f adminFixture) admin(t *testing.T, email, password string, active bool) *models.Admin {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordCfg)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	a := &models.Admin{
		ID:                uuid.New(),
		Email:             email,
		PasswordHash:      hash,
		Name:              "Kitchen Admin",
		Role:              enums.AdminRoleAdmin,
		IsActive:          active,
		IsDefaultPassword: true,
	}
	if err := f.repo.Create(context.Background(), a); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return a
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected error without repository")
	}
}

func TestLoginIssuesTokenAndSession(t *testing.T) {
	f := newFixture(t)
	a := f.admin(t, "Kitchen@AbhiruchiEats.com", "secret123", true)

	res, err := f.svc.Login(context.Background(), LoginRequest{Email: " KITCHEN@abhiruchieats.com ", Password: "secret123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !res.IsDefaultPassword {
		t.Fatal("expected default password flag")
	}
	if res.Admin.Email != "kitchen@abhiruchieats.com" {
		t.Fatalf("expected lower-cased email, got %s", res.Admin.Email)
	}
	if res.Admin.LastLoginAt == nil {
		t.Fatal("expected last login to be set")
	}

	claims, err := pkgauth.ParseAdminToken(testAuthCfg, res.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.AdminID != a.ID || claims.Role != enums.AdminRoleAdmin {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if owner, ok := f.sessions.sessions[claims.ID]; !ok || owner != a.ID {
		t.Fatalf("expected session keyed by jti")
	}

	if err := f.svc.Logout(context.Background(), claims.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok := f.sessions.sessions[claims.ID]; ok {
		t.Fatal("expected session to be revoked")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	f.admin(t, "active@abhiruchieats.com", "secret123", true)
	f.admin(t, "inactive@abhiruchieats.com", "secret123", false)

	cases := []struct {
		name string
		req  LoginRequest
		code pkgerrors.Code
	}{
		{"missing fields", LoginRequest{Email: "active@abhiruchieats.com"}, pkgerrors.CodeValidation},
		{"unknown email", LoginRequest{Email: "nobody@abhiruchieats.com", Password: "secret123"}, pkgerrors.CodeUnauthorized},
		{"wrong password", LoginRequest{Email: "active@abhiruchieats.com", Password: "nope"}, pkgerrors.CodeUnauthorized},
		{"inactive", LoginRequest{Email: "inactive@abhiruchieats.com", Password: "secret123"}, pkgerrors.CodeUnauthorized},
	}
	for _, tc := range cases {
		_, err := f.svc.Login(context.Background(), tc.req)
		if !pkgerrors.IsCode(err, tc.code) {
			t.Fatalf("%s: expected %s, got %v", tc.name, tc.code, err)
		}
	}
	if len(f.sessions.sessions) != 0 {
		t.Fatal("no session should be created for failed logins")
	}
}

func TestLoginSessionStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.admin(t, "active@abhiruchieats.com", "secret123", true)
	f.sessions.createErr = errors.New("redis down")

	_, err := f.svc.Login(context.Background(), LoginRequest{Email: "active@abhiruchieats.com", Password: "secret123"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestMeRejectsInactiveOrUnknown(t *testing.T) {
	f := newFixture(t)
	active := f.admin(t, "active@abhiruchieats.com", "secret123", true)
	inactive := f.admin(t, "inactive@abhiruchieats.com", "secret123", false)

	me, err := f.svc.Me(context.Background(), active.ID)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.ID != active.ID {
		t.Fatalf("unexpected admin %s", me.ID)
	}
	for _, id := range []uuid.UUID{inactive.ID, uuid.New()} {
		_, err := f.svc.Me(context.Background(), id)
		if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			t.Fatalf("expected unauthorized for %s, got %v", id, err)
		}
	}
}

func TestChangePasswordRules(t *testing.T) {
	f := newFixture(t)
	a := f.admin(t, "active@abhiruchieats.com", "secret123", true)
	ctx := context.Background()

	cases := []struct {
		req  ChangePasswordRequest
		want string
	}{
		{ChangePasswordRequest{CurrentPassword: "secret123"}, "All password fields are required"},
		{ChangePasswordRequest{"secret123", "abc", "abc"}, "New password must be at least 6 characters long"},
		{ChangePasswordRequest{"secret123", "newpass1", "newpass2"}, "New password and confirmation do not match"},
		{ChangePasswordRequest{"wrongpass", "newpass1", "newpass1"}, "Current password is incorrect"},
		{ChangePasswordRequest{"secret123", "secret123", "secret123"}, "New password must be different from current password"},
	}
	for _, tc := range cases {
		err := f.svc.ChangePassword(ctx, a.ID, tc.req)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation || typed.Message() != tc.want {
			t.Fatalf("expected %q, got %v", tc.want, err)
		}
	}

	if err := f.svc.ChangePassword(ctx, a.ID, ChangePasswordRequest{"secret123", "newpass1", "newpass1"}); err != nil {
		t.Fatalf("change password: %v", err)
	}
	stored, err := f.repo.FindByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.IsDefaultPassword {
		t.Fatal("expected default password flag to clear")
	}
	if ok, _ := security.VerifyPassword("newpass1", stored.PasswordHash); !ok {
		t.Fatal("expected new password to verify")
	}
}

func TestEnsureDefaultAdminIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seed := config.SeedConfig{AdminEmail: "Admin@AbhiruchiEats.com", AdminName: "AbhiruchiEats Admin", AdminPassword: "admin123"}

	created, err := f.svc.EnsureDefaultAdmin(ctx, seed)
	if err != nil || !created {
		t.Fatalf("expected creation, got %v %v", created, err)
	}
	created, err = f.svc.EnsureDefaultAdmin(ctx, seed)
	if err != nil || created {
		t.Fatalf("expected no-op on second run, got %v %v", created, err)
	}

	admin, err := f.repo.FindByEmail(ctx, "admin@abhiruchieats.com")
	if err != nil {
		t.Fatalf("find seed admin: %v", err)
	}
	if admin.Role != enums.AdminRoleSuperAdmin || !admin.IsDefaultPassword || !admin.IsActive {
		t.Fatalf("unexpected seed admin %+v", admin)
	}
	res, err := f.svc.Login(ctx, LoginRequest{Email: "admin@abhiruchieats.com", Password: "admin123"})
	if err != nil {
		t.Fatalf("login as seed admin: %v", err)
	}
	if !res.IsDefaultPassword {
		t.Fatal("seed admin should be flagged for a password change")
	}
}
