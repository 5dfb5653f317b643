// Package identity models who a storefront request acts for: an anonymous
// browser session or a signed-in customer.
package identity

import (
	"context"
	"strings"

	"github.com/abhiruchieats/storefront-api/pkg/enums"
	pkgerrors "github.com/abhiruchieats/storefront-api/pkg/errors"
)

// Identity is either Anonymous(sessionID) or Authenticated(userID, email, name).
// The zero value is invalid.
type Identity struct {
	kind      enums.OwnerKind
	sessionID string
	userID    string
	email     string
	name      string
}

func Anonymous(sessionID string) Identity {
	return Identity{kind: enums.OwnerKindSession, sessionID: strings.TrimSpace(sessionID)}
}

func Authenticated(userID, email, name string) Identity {
	return Identity{
		kind:   enums.OwnerKindUser,
		userID: strings.TrimSpace(userID),
		email:  strings.TrimSpace(email),
		name:   strings.TrimSpace(name),
	}
}

func (i Identity) Kind() enums.OwnerKind { return i.kind }

func (i Identity) IsAuthenticated() bool { return i.kind == enums.OwnerKindUser }

// OwnerKey is the owner_id stored on cart rows.
func (i Identity) OwnerKey() string {
	if i.IsAuthenticated() {
		return i.userID
	}
	return i.sessionID
}

func (i Identity) SessionID() string { return i.sessionID }
func (i Identity) UserID() string    { return i.userID }
func (i Identity) Email() string     { return i.email }
func (i Identity) Name() string      { return i.name }

// LockKey scopes mutations of one identity's cart and checkout.
func (i Identity) LockKey() string {
	return "cart:" + string(i.kind) + ":" + i.OwnerKey()
}

func (i Identity) Validate() error {
	switch i.kind {
	case enums.OwnerKindSession:
		if i.sessionID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
		}
	case enums.OwnerKindUser:
		if i.userID == "" {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
		}
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "identity is required")
	}
	return nil
}

// RequireAuthenticated returns AUTH_REQUIRED for anonymous callers.
func (i Identity) RequireAuthenticated() error {
	if !i.IsAuthenticated() || i.userID == "" {
		return pkgerrors.New(pkgerrors.CodeAuthRequired, "Authentication required")
	}
	return nil
}

type ctxKey struct{}

func WithContext(ctx context.Context, id Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
