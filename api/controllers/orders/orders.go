package orders

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abhiruchieats/storefront-api/api/responses"
	"github.com/abhiruchieats/storefront-api/api/validators"
	"github.com/abhiruchieats/storefront-api/internal/identity"
	internalorders "github.com/abhiruchieats/storefront-api/internal/orders"
	pkgerrors "github.com/abhiruchieats/storefront-api/pkg/errors"
	"github.com/abhiruchieats/storefront-api/pkg/logger"
)

// Place converts the signed-in caller's cart into an order.
func Place(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, ok := callerIdentity(w, r, svc, logg)
		if !ok {
			return
		}

		order, err := svc.PlaceOrder(r.Context(), who)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusCreated, order, "Order created successfully")
	}
}

// List returns the caller's orders, newest first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, ok := callerIdentity(w, r, svc, logg)
		if !ok {
			return
		}

		list, err := svc.ListMine(r.Context(), who)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, ok := callerIdentity(w, r, svc, logg)
		if !ok {
			return
		}

		orderID, err := validators.ParseUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetMine(r.Context(), who, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func callerIdentity(w http.ResponseWriter, r *http.Request, svc internalorders.Service, logg *logger.Logger) (identity.Identity, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
		return identity.Identity{}, false
	}
	who, ok := identity.FromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "identity missing from request"))
		return identity.Identity{}, false
	}
	return who, true
}
