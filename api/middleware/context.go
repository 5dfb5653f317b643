package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/abhiruchieats/storefront-api/pkg/enums"
)

type contextKey string

const (
	ctxAdminID   contextKey = "admin_id"
	ctxAdminRole contextKey = "admin_role"
	ctxAccessID  contextKey = "access_id"
)

func AdminIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxAdminID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

func AdminRoleFromContext(ctx context.Context) enums.AdminRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAdminRole).(enums.AdminRole); ok {
		return v
	}
	return ""
}

// AccessIDFromContext returns the admin session key (the token jti).
func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

// WithAdmin seeds the context the way AdminAuth does; handlers and tests use it.
func WithAdmin(ctx context.Context, adminID uuid.UUID, role enums.AdminRole, accessID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxAdminID, adminID)
	ctx = context.WithValue(ctx, ctxAdminRole, role)
	return context.WithValue(ctx, ctxAccessID, accessID)
}
