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
	"go.uber.org/multierr"

	"github.com/grmc/storefront-backend/api"
	"github.com/grmc/storefront-backend/api/controllers"
	"github.com/grmc/storefront-backend/api/routes"
	"github.com/grmc/storefront-backend/internal/auth"
	"github.com/grmc/storefront-backend/internal/cart"
	"github.com/grmc/storefront-backend/internal/checkout"
	"github.com/grmc/storefront-backend/internal/identity"
	"github.com/grmc/storefront-backend/internal/messages"
	"github.com/grmc/storefront-backend/internal/orders"
	"github.com/grmc/storefront-backend/internal/products"
	"github.com/grmc/storefront-backend/internal/profiles"
	"github.com/grmc/storefront-backend/internal/reports"
	"github.com/grmc/storefront-backend/internal/state"
	"github.com/grmc/storefront-backend/internal/wishlist"
	"github.com/grmc/storefront-backend/pkg/auth/session"
	"github.com/grmc/storefront-backend/pkg/config"
	"github.com/grmc/storefront-backend/pkg/db"
	"github.com/grmc/storefront-backend/pkg/env"
	"github.com/grmc/storefront-backend/pkg/geocode"
	"github.com/grmc/storefront-backend/pkg/images"
	"github.com/grmc/storefront-backend/pkg/logger"
	"github.com/grmc/storefront-backend/pkg/metrics"
	"github.com/grmc/storefront-backend/pkg/migrate"
	"github.com/grmc/storefront-backend/pkg/redis"
	"github.com/grmc/storefront-backend/pkg/security"
	"github.com/grmc/storefront-backend/pkg/storage/gcs"
)

const shutdownTimeout = 15 * time.Second

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
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	pingers := map[string]controllers.Pinger{"db": dbClient, "redis": redisClient}

	var gcsClient *gcs.Client
	if cfg.FeatureFlags.Uploads {
		gcsClient, err = gcs.NewClient(ctx, cfg.GCS, cfg.GCP, cfg.Storefront.StoragePublicURL, logg)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, gcsClient.Close()) }()
		pingers["gcs"] = gcsClient
	} else {
		pingers["gcs"] = nil
		logg.Warn(ctx, "uploads disabled; report photos and product images are rejected")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(registry)
	storeMetrics := metrics.NewStoreMetrics(registry)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}
	stateStore, err := state.NewStore(redisClient, cfg.Redis.StateTTL)
	if err != nil {
		return err
	}
	resolver := images.NewResolver(cfg.Storefront)

	identitySvc, err := identity.NewService(identity.ServiceParams{
		Repo:                     identity.NewRepository(dbClient.DB()),
		Sessions:                 sessionManager,
		Hasher:                   security.NewHasher(cfg.Password),
		JWTConfig:                cfg.JWT,
		RequireEmailConfirmation: cfg.Auth.RequireEmailConfirmation,
	})
	if err != nil {
		return err
	}

	profilesSvc, err := profiles.NewService(profiles.ServiceParams{Repo: profiles.NewRepository(dbClient.DB())})
	if err != nil {
		return err
	}

	authSvc, err := auth.NewService(auth.ServiceParams{
		Identity:          identitySvc,
		Profiles:          profilesSvc,
		State:             stateStore,
		Logger:            logg,
		MinPasswordLength: cfg.Auth.MinPasswordLength,
	})
	if err != nil {
		return err
	}

	productParams := products.ServiceParams{
		Repo:     products.NewRepository(dbClient.DB()),
		Resolver: resolver,
		Bucket:   cfg.GCS.ProductsBucket,
	}
	if gcsClient != nil {
		productParams.Uploader = gcsClient
	}
	productsSvc, err := products.NewService(productParams)
	if err != nil {
		return err
	}

	cartSvc, err := cart.NewService(cart.ServiceParams{State: stateStore, Products: productsSvc, Resolver: resolver})
	if err != nil {
		return err
	}

	wishlistSvc, err := wishlist.NewService(wishlist.ServiceParams{
		State:    stateStore,
		Products: productsSvc,
		Cart:     cartSvc,
		Resolver: resolver,
	})
	if err != nil {
		return err
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersSvc, err := orders.NewService(orders.ServiceParams{Repo: ordersRepo, Resolver: resolver})
	if err != nil {
		return err
	}

	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		Cart:              cartSvc,
		Orders:            ordersRepo,
		Stock:             productsSvc,
		Metrics:           storeMetrics,
		Logger:            logg,
		LegacyTotalColumn: cfg.Checkout.LegacyTotalColumn,
		StockTimeout:      cfg.Checkout.StockTimeout,
	})
	if err != nil {
		return err
	}

	messagesSvc, err := messages.NewService(messages.ServiceParams{Repo: messages.NewRepository(dbClient.DB())})
	if err != nil {
		return err
	}

	reportParams := reports.ServiceParams{
		Repo:   reports.NewRepository(dbClient.DB()),
		Bucket: cfg.GCS.ImagesBucket,
		Geocoder: geocode.NewClient(
			geocode.WithBaseURL(cfg.Geocode.BaseURL),
			geocode.WithUserAgent(cfg.Geocode.UserAgent),
			geocode.WithLanguage(cfg.Geocode.Language),
			geocode.WithTimeout(cfg.Geocode.Timeout),
		),
		Metrics: storeMetrics,
		Logger:  logg,
	}
	if gcsClient != nil {
		reportParams.Uploader = gcsClient
	}
	reportsSvc, err := reports.NewService(reportParams)
	if err != nil {
		return err
	}

	router := routes.NewRouter(routes.Deps{
		Config:   cfg,
		Logger:   logg,
		Pingers:  pingers,
		Redis:    redisClient,
		Sessions: sessionManager,
		Gatherer: registry,
		HTTP:     httpMetrics,
		Auth:     authSvc,
		Profiles: profilesSvc,
		Products: productsSvc,
		Cart:     cartSvc,
		Wishlist: wishlistSvc,
		Checkout: checkoutSvc,
		Orders:   ordersSvc,
		Messages: messagesSvc,
		Reports:  reportsSvc,
	})

	addr := ":" + env.Get("PORT", cfg.App.Port)
	server := api.NewServer(addr, router)

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": env.InstanceID(),
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
	return server.Shutdown(shutdownCtx)
}
