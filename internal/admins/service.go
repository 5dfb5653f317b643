package admins

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/abhiruchieats/storefront-api/pkg/auth"
	"github.com/abhiruchieats/storefront-api/pkg/config"
	"github.com/abhiruchieats/storefront-api/pkg/db"
	"github.com/abhiruchieats/storefront-api/pkg/db/models"
	"github.com/abhiruchieats/storefront-api/pkg/enums"
	pkgerrors "github.com/abhiruchieats/storefront-api/pkg/errors"
	"github.com/abhiruchieats/storefront-api/pkg/logger"
	"github.com/abhiruchieats/storefront-api/pkg/security"
)

const (
	invalidCredentialsMessage = "Invalid credentials"
	adminUnavailableMessage   = "Admin not found or inactive"
)

type adminRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Admin, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Admin, error)
	Create(ctx context.Context, admin *models.Admin) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

type sessionManager interface {
	Create(ctx context.Context, adminID uuid.UUID) (string, error)
	Revoke(ctx context.Context, accessID string) error
}

// Service covers admin sign-in and account upkeep.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, accessID string) error
	Me(ctx context.Context, adminID uuid.UUID) (*AdminDTO, error)
	ChangePassword(ctx context.Context, adminID uuid.UUID, req ChangePasswordRequest) error
	EnsureDefaultAdmin(ctx context.Context, seed config.SeedConfig) (bool, error)
}

// ServiceParams bundles the dependencies required to build an admin service.
type ServiceParams struct {
	Repo     adminRepository
	Sessions sessionManager
	Auth     config.AdminAuthConfig
	Password config.PasswordConfig
	Logger   *logger.Logger
}

type service struct {
	repo     adminRepository
	sessions sessionManager
	authCfg  config.AdminAuthConfig
	pwCfg    config.PasswordConfig
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("admin repository is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &service{
		repo:     params.Repo,
		sessions: params.Sessions,
		authCfg:  params.Auth,
		pwCfg:    params.Password,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Email and password are required")
	}

	admin, err := s.repo.FindByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup admin")
	}
	if !admin.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	valid, err := security.VerifyPassword(req.Password, admin.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	now := s.now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, admin.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	admin.LastLoginAt = &now

	accessID, err := s.sessions.Create(ctx, admin.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create admin session")
	}
	token, err := pkgauth.MintAdminToken(s.authCfg, now, pkgauth.AdminTokenPayload{
		AdminID:  admin.ID,
		Email:    admin.Email,
		Role:     admin.Role,
		AccessID: accessID,
	})
	if err != nil {
		_ = s.sessions.Revoke(ctx, accessID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint admin token")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithAdminID(ctx, admin.ID.String()), "admin.login")
	}
	return &LoginResult{
		Token:             token,
		Admin:             NewAdminDTO(admin),
		IsDefaultPassword: admin.IsDefaultPassword,
		ExpiresAt:         now.Add(s.authCfg.TokenTTL),
		AccessID:          accessID,
	}, nil
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return nil
	}
	if err := s.sessions.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke admin session")
	}
	return nil
}

func (s *service) Me(ctx context.Context, adminID uuid.UUID) (*AdminDTO, error) {
	admin, err := s.activeAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}
	dto := NewAdminDTO(admin)
	return &dto, nil
}

func (s *service) ChangePassword(ctx context.Context, adminID uuid.UUID, req ChangePasswordRequest) error {
	if req.CurrentPassword == "" || req.NewPassword == "" || req.ConfirmPassword == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "All password fields are required")
	}
	if err := security.CheckPasswordPolicy(req.NewPassword); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "New password must be at least 6 characters long")
	}
	if req.NewPassword != req.ConfirmPassword {
		return pkgerrors.New(pkgerrors.CodeValidation, "New password and confirmation do not match")
	}

	admin, err := s.activeAdmin(ctx, adminID)
	if err != nil {
		return err
	}
	valid, err := security.VerifyPassword(req.CurrentPassword, admin.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return pkgerrors.New(pkgerrors.CodeValidation, "Current password is incorrect")
	}
	if req.NewPassword == req.CurrentPassword {
		return pkgerrors.New(pkgerrors.CodeValidation, "New password must be different from current password")
	}

	hash, err := security.HashPassword(req.NewPassword, s.pwCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.repo.UpdatePassword(ctx, admin.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithAdminID(ctx, admin.ID.String()), "admin.password_changed")
	}
	return nil
}

// EnsureDefaultAdmin creates the seed super admin when no account with the
// seed email exists. It reports whether an account was created. Without a
// configured password a random one is generated and logged once.
func (s *service) EnsureDefaultAdmin(ctx context.Context, seed config.SeedConfig) (bool, error) {
	email := strings.ToLower(strings.TrimSpace(seed.AdminEmail))
	if email == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "seed admin email is required")
	}
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return false, nil
	} else if !db.IsNotFound(err) {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup seed admin")
	}

	password := seed.AdminPassword
	generated := false
	if password == "" {
		var err error
		password, err = security.GenerateTempPassword(16)
		if err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate seed password")
		}
		generated = true
	}
	hash, err := security.HashPassword(password, s.pwCfg)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash seed password")
	}

	name := strings.TrimSpace(seed.AdminName)
	if name == "" {
		name = "Administrator"
	}
	admin := &models.Admin{
		ID:                uuid.New(),
		Email:             email,
		PasswordHash:      hash,
		Name:              name,
		Role:              enums.AdminRoleSuperAdmin,
		IsActive:          true,
		IsDefaultPassword: true,
	}
	if err := s.repo.Create(ctx, admin); err != nil {
		if db.IsUniqueViolation(err, "ux_admins_email") {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create seed admin")
	}

	if s.logg != nil {
		fields := map[string]any{"email": email}
		if generated {
			fields["temporary_password"] = password
		}
		s.logg.Warn(s.logg.WithFields(ctx, fields), "admin.seeded_change_password_after_first_login")
	}
	return true, nil
}

func (s *service) activeAdmin(ctx context.Context, adminID uuid.UUID) (*models.Admin, error) {
	if adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, adminUnavailableMessage)
	}
	admin, err := s.repo.FindByID(ctx, adminID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, adminUnavailableMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load admin")
	}
	if !admin.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, adminUnavailableMessage)
	}
	return admin, nil
}
