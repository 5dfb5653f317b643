package admin

import (
	"net/http"

	"github.com/abhiruchieats/storefront-api/api/responses"
	internalorders "github.com/abhiruchieats/storefront-api/internal/orders"
	pkgerrors "github.com/abhiruchieats/storefront-api/pkg/errors"
	"github.com/abhiruchieats/storefront-api/pkg/logger"
	"github.com/abhiruchieats/storefront-api/pkg/types"
)

type dashboardStats struct {
	TotalOrders   int64       `json:"totalOrders"`
	PendingOrders int64       `json:"pendingOrders"`
	TotalRevenue  types.Money `json:"totalRevenue"`
	TodaysOrders  int64       `json:"todaysOrders"`
}

// Dashboard is the headline subset of the order stats.
func Dashboard(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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
		responses.WriteSuccess(w, dashboardStats{
			TotalOrders:   stats.TotalOrders,
			PendingOrders: stats.PendingOrders,
			TotalRevenue:  stats.TotalRevenue,
			TodaysOrders:  stats.TodayOrders,
		})
	}
}
