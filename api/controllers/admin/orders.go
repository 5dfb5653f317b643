package admin

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/abhiruchieats/storefront-api/api/middleware"
	"github.com/abhiruchieats/storefront-api/api/responses"
	"github.com/abhiruchieats/storefront-api/api/validators"
	internalorders "github.com/abhiruchieats/storefront-api/internal/orders"
	pkgerrors "github.com/abhiruchieats/storefront-api/pkg/errors"
	"github.com/abhiruchieats/storefront-api/pkg/logger"
)

const statusUpdatedMessage = "Order status updated successfully"

type statusBody struct {
	Status string `json:"status" validate:"required"`
}

type orderStatusBody struct {
	OrderID string `json:"orderId" validate:"required"`
	Status  string `json:"status" validate:"required"`
}

// OrderList pages through every order, optionally filtered by ?status=.
func OrderList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.AdminList(r.Context(), params, strings.TrimSpace(r.URL.Query().Get("status")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func OrderStats(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		stats, err := svc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// UpdateOrderStatus handles PUT /orders with {orderId, status}.
func UpdateOrderStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var body orderStatusBody
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUID(body.OrderID, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		writeStatusUpdate(w, r, svc, logg, internalorders.StatusUpdate{
			OrderID: orderID,
			Status:  body.Status,
			AdminID: middleware.AdminIDFromContext(r.Context()),
		})
	}
}

// SetOrderStatus handles PUT /orders/{orderId}/status with {status}.
func SetOrderStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := validators.ParseUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body statusBody
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		writeStatusUpdate(w, r, svc, logg, internalorders.StatusUpdate{
			OrderID: orderID,
			Status:  body.Status,
			AdminID: middleware.AdminIDFromContext(r.Context()),
		})
	}
}

func writeStatusUpdate(w http.ResponseWriter, r *http.Request, svc internalorders.Service, logg *logger.Logger, input internalorders.StatusUpdate) {
	ctx := r.Context()
	if logg != nil {
		ctx = logg.WithOrderID(ctx, input.OrderID.String())
	}
	order, err := svc.UpdateStatus(ctx, input)
	if err != nil {
		responses.WriteError(ctx, logg, w, err)
		return
	}
	responses.WriteSuccessMessage(w, http.StatusOK, order, statusUpdatedMessage)
}
