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

	"github.com/avelazquez/zocalo-backend/api/routes"
	"github.com/avelazquez/zocalo-backend/internal/checkout"
	"github.com/avelazquez/zocalo-backend/internal/inventory"
	"github.com/avelazquez/zocalo-backend/internal/ledger"
	"github.com/avelazquez/zocalo-backend/internal/orders"
	"github.com/avelazquez/zocalo-backend/internal/pricing"
	"github.com/avelazquez/zocalo-backend/internal/products"
	"github.com/avelazquez/zocalo-backend/internal/promotions"
	"github.com/avelazquez/zocalo-backend/internal/sellers"
	"github.com/avelazquez/zocalo-backend/pkg/config"
	"github.com/avelazquez/zocalo-backend/pkg/db"
	"github.com/avelazquez/zocalo-backend/pkg/logger"
	"github.com/avelazquez/zocalo-backend/pkg/metrics"
	"github.com/avelazquez/zocalo-backend/pkg/migrate"
	"github.com/avelazquez/zocalo-backend/pkg/redis"
)

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
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	promRegistry := prometheus.NewRegistry()
	orderMetrics := metrics.NewOrderMetrics(promRegistry)

	inventoryService := inventory.NewService(inventory.NewRepository(dbClient.DB()))
	ledgerService := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	sellersService := sellers.NewService(sellers.NewRepository(dbClient.DB()))
	promotionsService := promotions.NewService(promotions.NewRepository(dbClient.DB()))

	productsService, err := products.NewService(
		products.NewRepository(dbClient.DB()),
		dbClient,
		inventoryService,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create products service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(
		ordersRepo,
		dbClient,
		inventoryService,
		ledgerService,
		sellersService,
		promotionsService,
		orderMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(
		checkout.NewRepository(dbClient.DB()),
		ordersRepo,
		dbClient,
		inventoryService,
		promotionsService,
		pricing.ShippingPolicy{
			FlatFeeCents:       cfg.Checkout.FlatShippingFeeCents,
			FreeThresholdCents: cfg.Checkout.FreeShippingThresholdCents,
		},
		orderMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			promRegistry,
			sellersService,
			productsService,
			inventoryService,
			promotionsService,
			checkoutService,
			ordersService,
			ledgerService,
		),
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-shutdown:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(stopCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			_ = server.Close()
		}
	}
}
