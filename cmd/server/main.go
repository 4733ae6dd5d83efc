package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"ridehail/internal/app"
	"ridehail/internal/auth"
	"ridehail/internal/config"
	"ridehail/internal/handler"
	internalRedis "ridehail/internal/redis"
	"ridehail/internal/repository/postgres"
	"ridehail/internal/service"
)

const idempotencyTTL = 24 * time.Hour

func main() {
	// A missing .env file is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize New Relic")
		} else {
			logger.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled")
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()
	logger.Info("Connected to Redis")

	server, cabService := wireServer(db, redisClient, nrApp, cfg, logger)

	// Redis may have been flushed or replaced since the last run.
	indexed, err := cabService.RebuildLocationIndex(ctx)
	if err != nil {
		logger.WithError(err).Warn("failed to rebuild cab location index")
	} else {
		logger.WithField("cabs", indexed).Info("Rebuilt cab location index")
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
	if nrApp != nil {
		nrApp.Shutdown(cfg.Server.ShutdownTimeout)
	}

	logger.Info("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	db *sql.DB,
	redisClient *redis.Client,
	nrApp *newrelic.Application,
	cfg *config.Config,
	logger *logrus.Logger,
) (*http.Server, *service.CabService) {
	locationStore := internalRedis.NewLocationStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient, cfg.Redis.UserCacheTTL)
	idempotencyStore := internalRedis.NewIdempotencyStore(redisClient, idempotencyTTL)

	userRepo := postgres.NewUserRepository(db)
	cabRepo := postgres.NewCabRepository(db)
	orderRepo := postgres.NewOrderRepository(db)
	transactor := postgres.NewTransactor(db)

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTExpire)
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)

	notificationService := service.NewNotificationService(logger)
	userService := service.NewUserService(userRepo, cacheStore, tokens, hasher, logger)
	cabService := service.NewCabService(cabRepo, locationStore, logger)
	orderService := service.NewOrderService(transactor, orderRepo, cabRepo, notificationService, logger)

	router := app.NewRouter(app.RouterDeps{
		UserHandler:      handler.NewUserHandler(userService),
		CabHandler:       handler.NewCabHandler(cabService),
		OrderHandler:     handler.NewOrderHandler(orderService),
		Identity:         userService,
		IdempotencyStore: idempotencyStore,
		CORSOrigins:      cfg.CORS.AllowedOrigins,
		Logger:           logger,
		NewRelicApp:      nrApp,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return server, cabService
}
