package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/deshikart/deshikart-backend/api/routes"
	authsvc "github.com/deshikart/deshikart-backend/internal/auth"
	"github.com/deshikart/deshikart-backend/internal/cart"
	"github.com/deshikart/deshikart-backend/internal/catalog"
	"github.com/deshikart/deshikart-backend/internal/fulfillment"
	"github.com/deshikart/deshikart-backend/internal/orders"
	"github.com/deshikart/deshikart-backend/internal/tracking"
	"github.com/deshikart/deshikart-backend/pkg/config"
	"github.com/deshikart/deshikart-backend/pkg/db"
	"github.com/deshikart/deshikart-backend/pkg/logger"
	"github.com/deshikart/deshikart-backend/pkg/metaconv"
	"github.com/deshikart/deshikart-backend/pkg/metrics"
	"github.com/deshikart/deshikart-backend/pkg/migrate"
	"github.com/deshikart/deshikart-backend/pkg/redis"
	"github.com/deshikart/deshikart-backend/pkg/steadfast"
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
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	orderMetrics := metrics.NewOrderMetrics(registry)

	zlog := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api").Logger().
		Level(logger.ParseLevel(cfg.App.LogLevel))

	cartRepo := cart.NewRepository(dbClient.DB())
	catalogRepo := catalog.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	trackingRepo := tracking.NewRepository(dbClient.DB())

	catalogService, err := catalog.NewService(catalogRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cartRepo, catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(ordersRepo, cartRepo, dbClient, orderMetrics, zlog)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	courier := steadfast.NewClient(cfg.Steadfast)
	fulfillmentService, err := fulfillment.NewService(ordersRepo, courier, orderMetrics, zlog)
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment service", err)
		os.Exit(1)
	}

	trackingService, err := tracking.NewService(trackingRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create tracking service", err)
		os.Exit(1)
	}

	authService := authsvc.NewService(cfg.Admin, cfg.JWT)
	pixels := metaconv.NewClient(cfg.Meta)

	router := routes.NewRouter(routes.Deps{
		Config:         cfg,
		Logger:         logg,
		Database:       dbClient,
		Redis:          redisClient,
		Auth:           authService,
		Catalog:        catalogService,
		Cart:           cartService,
		Orders:         orderService,
		Fulfillment:    fulfillmentService,
		Tracking:       trackingService,
		Pixels:         pixels,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	closeErr := multierr.Combine(
		server.Shutdown(shutdownCtx),
		redisClient.Close(),
		dbClient.Close(),
	)
	if closeErr != nil {
		logg.Error(ctx, "error during shutdown", closeErr)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down cleanly")
}
