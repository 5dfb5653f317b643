package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/abhiruchieats/storefront-api/api/controllers"
	admincontrollers "github.com/abhiruchieats/storefront-api/api/controllers/admin"
	cartcontrollers "github.com/abhiruchieats/storefront-api/api/controllers/cart"
	ordercontrollers "github.com/abhiruchieats/storefront-api/api/controllers/orders"
	"github.com/abhiruchieats/storefront-api/api/middleware"
	"github.com/abhiruchieats/storefront-api/internal/admins"
	"github.com/abhiruchieats/storefront-api/internal/cart"
	"github.com/abhiruchieats/storefront-api/internal/customers"
	"github.com/abhiruchieats/storefront-api/internal/orders"
	product "github.com/abhiruchieats/storefront-api/internal/products"
	"github.com/abhiruchieats/storefront-api/pkg/auth/session"
	"github.com/abhiruchieats/storefront-api/pkg/config"
	"github.com/abhiruchieats/storefront-api/pkg/db/models"
	"github.com/abhiruchieats/storefront-api/pkg/enums"
	"github.com/abhiruchieats/storefront-api/pkg/logger"
	"github.com/abhiruchieats/storefront-api/pkg/metrics"
	pkgredis "github.com/abhiruchieats/storefront-api/pkg/redis"
)

type rateLimitStore interface {
	RateLimitKey(scope string) string
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

type adminLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Admin, error)
}

// Deps is everything the HTTP surface needs. Nil stores disable the
// feature they back (idempotency replay, login throttling).
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	DB    pkgredis.Pinger
	Redis pkgredis.Pinger

	Idempotency pkgredis.IdempotencyStore
	RateLimiter rateLimitStore
	Sessions    session.AccessSessionChecker
	AdminLookup adminLookup

	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler

	Products  product.Service
	Cart      cart.Service
	Orders    orders.Service
	Admins    admins.Service
	Customers customers.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(d.HTTPMetrics),
		middleware.CORS(cfg.CORS),
	)

	idempotent := middleware.Idempotency(d.Idempotency, logg)
	loginPolicy := middleware.NewLoginRateLimitPolicy(middleware.AdminLoginScope, cfg.AuthRateLimit)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, d.DB, d.Redis, logg))
	})
	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ProductList(d.Products, logg))
		r.Get("/products/{productId}", controllers.ProductDetail(d.Products, logg))
		r.Post("/auth/dev-token", controllers.DevToken(cfg, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Identity(cfg.JWT, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.Get(d.Cart, logg))
				r.Post("/", cartcontrollers.Add(d.Cart, logg))
				r.Put("/", cartcontrollers.Update(d.Cart, logg))
				r.Delete("/", cartcontrollers.Remove(d.Cart, logg))
				r.Delete("/all", cartcontrollers.Clear(d.Cart, logg))
				r.With(idempotent).Post("/merge", cartcontrollers.Merge(d.Cart, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.With(idempotent).Post("/", ordercontrollers.Place(d.Orders, logg))
				r.Get("/", ordercontrollers.List(d.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(d.Orders, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.With(middleware.LoginRateLimit(loginPolicy, d.RateLimiter, logg)).
			Post("/auth/login", admincontrollers.Login(d.Admins, cfg.AdminAuth, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminAuth(cfg.AdminAuth, d.Sessions, d.AdminLookup, logg))
			r.Use(middleware.RequireAdminRole(enums.AdminRoleAdmin, logg))

			r.Post("/auth/logout", admincontrollers.Logout(d.Admins, cfg.AdminAuth, logg))
			r.Get("/auth/me", admincontrollers.Me(d.Admins, logg))
			r.Post("/auth/change-password", admincontrollers.ChangePassword(d.Admins, logg))

			r.Get("/dashboard", admincontrollers.Dashboard(d.Orders, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", admincontrollers.OrderList(d.Orders, logg))
				r.Get("/stats", admincontrollers.OrderStats(d.Orders, logg))
				r.Put("/", admincontrollers.UpdateOrderStatus(d.Orders, logg))
				r.With(idempotent).Put("/{orderId}/status", admincontrollers.SetOrderStatus(d.Orders, logg))
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", admincontrollers.ProductList(d.Products, logg))
				r.Post("/", admincontrollers.ProductCreate(d.Products, logg))
				r.Put("/{productId}", admincontrollers.ProductUpdate(d.Products, logg))
				r.Put("/{productId}/stock", admincontrollers.ProductStock(d.Products, logg))
				r.With(middleware.RequireAdminRole(enums.AdminRoleSuperAdmin, logg)).
					Delete("/{productId}", admincontrollers.ProductDelete(d.Products, logg))
			})

			r.Route("/customers", func(r chi.Router) {
				r.Get("/", admincontrollers.CustomerList(d.Customers, logg))
				r.Get("/{customerId}/orders", admincontrollers.CustomerOrders(d.Customers, logg))
			})
		})
	})

	return r
}
