package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/accordmusic/accord-backend/api/routes"
	internalauth "github.com/accordmusic/accord-backend/internal/auth"
	"github.com/accordmusic/accord-backend/internal/checkout"
	"github.com/accordmusic/accord-backend/internal/orders"
	"github.com/accordmusic/accord-backend/internal/products"
	"github.com/accordmusic/accord-backend/internal/tradein"
	"github.com/accordmusic/accord-backend/internal/users"
	"github.com/accordmusic/accord-backend/pkg/auth/session"
	"github.com/accordmusic/accord-backend/pkg/config"
	"github.com/accordmusic/accord-backend/pkg/db"
	"github.com/accordmusic/accord-backend/pkg/logger"
	"github.com/accordmusic/accord-backend/pkg/metrics"
	"github.com/accordmusic/accord-backend/pkg/migrate"
	"github.com/accordmusic/accord-backend/pkg/redis"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
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
		Format:      cfg.App.LogFormat,
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

	sessionManager, err := session.NewManager(redisClient, cfg.Session)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())

	statusCache := orders.NewStatusCache()
	if err := statusCache.Refresh(context.Background(), ordersRepo); err != nil {
		logg.Error(context.Background(), "failed to load order statuses", err)
		os.Exit(1)
	}

	authService, err := internalauth.NewService(users.NewRepository(dbClient.DB()), sessionManager)
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo, dbClient, statusCache)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(
		ordersRepo,
		products.NewRepository(dbClient.DB()),
		tradein.NewRepository(dbClient.DB()),
		dbClient,
		statusCache,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Deps{
		Config:   cfg,
		Logger:   logg,
		Metrics:  metrics.NewHTTPMetrics(),
		Sessions: sessionManager,
		DB:       dbClient,
		Redis:    redisClient,
		Auth:     authService,
		Checkout: checkoutService,
		Orders:   ordersService,
	})

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
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}

	closeErr := multierr.Combine(redisClient.Close(), dbClient.Close())
	if closeErr != nil {
		logg.Error(ctx, "error closing backing stores", closeErr)
		os.Exit(1)
	}
}
