package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/abhiruchieats/storefront-api/internal/admins"
	product "github.com/abhiruchieats/storefront-api/internal/products"
	"github.com/abhiruchieats/storefront-api/pkg/config"
	"github.com/abhiruchieats/storefront-api/pkg/db"
	"github.com/abhiruchieats/storefront-api/pkg/logger"
	"github.com/abhiruchieats/storefront-api/pkg/migrate"
)

var errNoSessions = errors.New("admin sessions are not available while seeding")

// seedSessions satisfies the admin service without Redis; seeding never
// signs anyone in.
type seedSessions struct{}

func (seedSessions) Create(context.Context, uuid.UUID) (string, error) { return "", errNoSessions }

func (seedSessions) Revoke(context.Context, string) error { return errNoSessions }

func main() {
	logg := logger.New(logger.Options{ServiceName: "seed"})

	_ = godotenv.Load()

	what := flag.String("what", "all", "what to seed: admin|products|all")
	flag.Parse()

	switch *what {
	case "admin", "products", "all":
	default:
		fmt.Fprintln(os.Stderr, "unknown -what value:", *what)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "what": *what})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	if *what == "admin" || *what == "all" {
		if err := seedAdmin(ctx, cfg, logg, dbClient); err != nil {
			logg.Error(ctx, "admin seed failed", err)
			os.Exit(1)
		}
	}
	if *what == "products" || *what == "all" {
		if err := seedProducts(ctx, logg, dbClient); err != nil {
			logg.Error(ctx, "product seed failed", err)
			os.Exit(1)
		}
	}
}

func seedAdmin(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	svc, err := admins.NewService(admins.ServiceParams{
		Repo:     admins.NewRepository(client.DB()),
		Sessions: seedSessions{},
		Auth:     cfg.AdminAuth,
		Password: cfg.Password,
		Logger:   logg,
	})
	if err != nil {
		return err
	}
	created, err := svc.EnsureDefaultAdmin(ctx, cfg.Seed)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "created", created), "seed.admin")
	return nil
}

func seedProducts(ctx context.Context, logg *logger.Logger, client *db.Client) error {
	svc, err := product.NewService(product.NewRepository(client.DB()))
	if err != nil {
		return err
	}
	created, err := svc.Seed(ctx, product.DefaultCatalog())
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "created", created), "seed.products")
	return nil
}
