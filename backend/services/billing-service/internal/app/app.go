package app

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libdb "evbilling/backend/libs/db"
	libredis "evbilling/backend/libs/redis"
	"evbilling/backend/services/billing-service/internal/config"
	httpserver "evbilling/backend/services/billing-service/internal/http"
	"evbilling/backend/services/billing-service/internal/http/handlers"
	"evbilling/backend/services/billing-service/internal/http/middleware"
	redisstore "evbilling/backend/services/billing-service/internal/redis"
	"evbilling/backend/services/billing-service/internal/repository"
	"evbilling/backend/services/billing-service/internal/service"
)

// App wires billing service dependencies.
type App struct {
	server      *httpserver.Server
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs application graph.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	sqlDB, err := libdb.NewPostgresDB(ctx, libdb.Options{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		PingAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, err
	}

	a := &App{db: sqlDB, logger: logger}

	var lock service.SessionLock
	if cfg.Redis.Addr != "" {
		a.redisClient, err = libredis.NewRedisClient(ctx, libredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		lock = redisstore.NewBillLock(a.redisClient, cfg.Redis.LockTTL)
	} else {
		logger.Warn("redis addr not set, bill generation runs without a distributed lock")
	}

	billingService := service.NewBillingService(
		repository.NewBillingRepository(sqlDB),
		lock,
		service.Options{
			Location:    loc,
			FastPowerKW: cfg.Tariff.FastPowerKW,
			SlowPowerKW: cfg.Tariff.SlowPowerKW,
		},
		logger,
	)

	details := handlers.NewDetailsHandlers(billingService, logger)
	routes := httpserver.Routes{
		SessionStopped: handlers.NewSessionStoppedHandler(billingService, logger),
		Calculate:      handlers.NewCalculateHandler(billingService),
		DetailsList:    details.List,
		DetailsGet:     details.Get,
		Pricing:        handlers.NewPricingHandler(billingService),
		Statistics:     handlers.NewStatisticsHandler(billingService, logger),
		Health:         handlers.NewHealthHandler(),
	}

	router := httpserver.NewRouter(routes, middleware.Auth(cfg.JWT.Secret))
	a.server = httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	logger.Info("billing service configured",
		zap.String("tariff_timezone", loc.String()),
		zap.Bool("bill_lock", lock != nil),
	)
	return a, nil
}

// Run starts HTTP server.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
