package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/abhiruchieats/storefront-api/api"
	"github.com/abhiruchieats/storefront-api/api/routes"
	"github.com/abhiruchieats/storefront-api/internal/admins"
	"github.com/abhiruchieats/storefront-api/internal/cart"
	"github.com/abhiruchieats/storefront-api/internal/customers"
	"github.com/abhiruchieats/storefront-api/internal/notifications"
	"github.com/abhiruchieats/storefront-api/internal/orders"
	product "github.com/abhiruchieats/storefront-api/internal/products"
	"github.com/abhiruchieats/storefront-api/pkg/auth/session"
	"github.com/abhiruchieats/storefront-api/pkg/config"
	"github.com/abhiruchieats/storefront-api/pkg/db"
	"github.com/abhiruchieats/storefront-api/pkg/instance"
	"github.com/abhiruchieats/storefront-api/pkg/lock"
	"github.com/abhiruchieats/storefront-api/pkg/logger"
	"github.com/abhiruchieats/storefront-api/pkg/metrics"
	"github.com/abhiruchieats/storefront-api/pkg/migrate"
	"github.com/abhiruchieats/storefront-api/pkg/outbox"
	"github.com/abhiruchieats/storefront-api/pkg/redis"
)

const shutdownTimeout = 20 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	locker, err := newLocker(cfg, redisClient, logg)
	if err != nil {
		return err
	}

	notifier, dispatcher, err := newNotifier(cfg, metrics.NewNotificationMetrics(registry), logg)
	if err != nil {
		return err
	}

	sessions, err := session.NewManager(redisClient, cfg.AdminAuth)
	if err != nil {
		return err
	}

	productRepo := product.NewRepository(dbClient.DB())
	productService, err := product.NewService(productRepo)
	if err != nil {
		return err
	}

	cartRepo := cart.NewRepository(dbClient.DB())
	cartService, err := cart.NewService(cartRepo, dbClient, productRepo, locker, logg)
	if err != nil {
		return err
	}

	orderService, err := orders.NewService(orders.Deps{
		Repo:     orders.NewRepository(dbClient.DB()),
		Carts:    cartRepo,
		Products: productRepo,
		Tx:       dbClient,
		Outbox:   outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Locker:   locker,
		Notifier: notifier,
		Metrics:  metrics.NewOrderMetrics(registry),
		Logger:   logg,
		Config:   cfg.Orders,
	})
	if err != nil {
		return err
	}

	adminRepo := admins.NewRepository(dbClient.DB())
	adminService, err := admins.NewService(admins.ServiceParams{
		Repo:     adminRepo,
		Sessions: sessions,
		Auth:     cfg.AdminAuth,
		Password: cfg.Password,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	customerService, err := customers.NewService(customers.NewRepository(dbClient.DB()), orderService)
	if err != nil {
		return err
	}

	handler := routes.NewRouter(routes.Deps{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Redis:          redisClient,
		Idempotency:    redisClient,
		RateLimiter:    redisClient,
		Sessions:       sessions,
		AdminLookup:    adminRepo,
		HTTPMetrics:    metrics.NewHTTPMetrics(registry),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Products:       productService,
		Cart:           cartService,
		Orders:         orderService,
		Admins:         adminService,
		Customers:      customerService,
	})

	if port := os.Getenv("PORT"); port != "" {
		cfg.App.Port = port
	}
	server := api.NewServer(cfg.App, handler)

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":           cfg.App.Env,
		"instance":      instance.ID(),
		"addr":          server.Addr,
		"redis_locking": cfg.FeatureFlags.RedisLocking,
		"smtp_enabled":  cfg.SMTP.Enabled(),
	})
	logg.Info(logCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err = multierr.Append(err, server.Shutdown(shutdownCtx))
	if dispatcher != nil {
		err = multierr.Append(err, dispatcher.Shutdown(shutdownCtx))
	}
	return err
}

func newLocker(cfg *config.Config, client *redis.Client, logg *logger.Logger) (lock.Locker, error) {
	if !cfg.FeatureFlags.RedisLocking {
		return lock.NewLocalLocker(), nil
	}
	return lock.NewRedisLocker(client, cfg.Lock, logg)
}

// newNotifier sends through SMTP when it is configured and logs otherwise.
// The dispatcher is returned separately so shutdown can drain it.
func newNotifier(cfg *config.Config, m *metrics.NotificationMetrics, logg *logger.Logger) (notifications.Notifier, *notifications.Dispatcher, error) {
	if !cfg.SMTP.Enabled() {
		return notifications.NewLogNotifier(logg), nil, nil
	}
	mailer, err := notifications.NewMailer(cfg.SMTP)
	if err != nil {
		return nil, nil, err
	}
	dispatcher, err := notifications.NewDispatcher(mailer, cfg.Notifications, m, logg)
	if err != nil {
		return nil, nil, err
	}
	dispatcher.Start()
	return dispatcher, dispatcher, nil
}
