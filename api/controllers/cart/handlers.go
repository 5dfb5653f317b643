package cart

import (
	"net/http"
	"strings"

	"github.com/abhiruchieats/storefront-api/api/middleware"
	"github.com/abhiruchieats/storefront-api/api/responses"
	"github.com/abhiruchieats/storefront-api/api/validators"
	cartsvc "github.com/abhiruchieats/storefront-api/internal/cart"
	"github.com/abhiruchieats/storefront-api/internal/identity"
	pkgerrors "github.com/abhiruchieats/storefront-api/pkg/errors"
	"github.com/abhiruchieats/storefront-api/pkg/logger"
)

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  *int   `json:"quantity"`
}

type updateItemRequest struct {
	ItemID   string `json:"itemId" validate:"required"`
	Quantity *int   `json:"quantity" validate:"required"`
}

// Get returns the caller's cart.
func Get(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, ok := requireIdentity(w, r, svc, logg)
		if !ok {
			return
		}
		cart, err := svc.Get(r.Context(), who)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

// Add inserts a line (201) or increments an existing one (200).
func Add(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, ok := requireIdentity(w, r, svc, logg)
		if !ok {
			return
		}

		var body addItemRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := validators.ParseUUID(body.ProductID, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Add(r.Context(), who, productID, body.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if result.Created {
			responses.WriteSuccessMessage(w, http.StatusCreated, result.Item, "Item added to cart")
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, result.Item, "Cart item quantity updated")
	}
}

func Update(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, ok := requireIdentity(w, r, svc, logg)
		if !ok {
			return
		}

		var body updateItemRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := validators.ParseUUID(body.ItemID, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Update(r.Context(), who, itemID, *body.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, item, "Cart item updated")
	}
}

// Remove deletes the line named by ?itemId=.
func Remove(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, ok := requireIdentity(w, r, svc, logg)
		if !ok {
			return
		}

		raw := strings.TrimSpace(r.URL.Query().Get("itemId"))
		if raw == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Item ID is required"))
			return
		}
		itemID, err := validators.ParseUUID(raw, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Remove(r.Context(), who, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, nil, "Item removed from cart")
	}
}

func Clear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, ok := requireIdentity(w, r, svc, logg)
		if !ok {
			return
		}

		removed, err := svc.Clear(r.Context(), who)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, map[string]int64{"removed": removed}, "Cart cleared")
	}
}

// Merge folds the anonymous cart named by X-Session-Id into the signed-in
// caller's cart.
func Merge(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, ok := requireIdentity(w, r, svc, logg)
		if !ok {
			return
		}
		if err := who.RequireAuthenticated(); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID := strings.TrimSpace(r.Header.Get(middleware.SessionHeader))
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Session-Id header is required"))
			return
		}

		result, err := svc.Merge(r.Context(), identity.Anonymous(sessionID), who)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func requireIdentity(w http.ResponseWriter, r *http.Request, svc cartsvc.Service, logg *logger.Logger) (identity.Identity, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
		return identity.Identity{}, false
	}
	who, ok := identity.FromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "identity missing from request"))
		return identity.Identity{}, false
	}
	return who, true
}
