// Package main is the entry point for the application.
// It initializes all dependencies, sets up the HTTP server,
// and starts the application.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"amafaranga/internal/config"
	"amafaranga/internal/handlers"
	"amafaranga/internal/logger"
	"amafaranga/internal/messaging/rabbitmq"
	"amafaranga/internal/middleware"
	"amafaranga/internal/repositories"
	"amafaranga/internal/repositories/cache"
	"amafaranga/internal/repositories/idempotency"
	"amafaranga/internal/repositories/memstore"
	"amafaranga/internal/routes"
	"amafaranga/internal/services/auth"
	"amafaranga/internal/services/fees"
	"amafaranga/internal/services/games"
	"amafaranga/internal/services/ledger"
	"amafaranga/internal/services/notification"
	"amafaranga/internal/services/recipient"
	"amafaranga/internal/services/settlement"
	"amafaranga/internal/services/transfer"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// storage is what the services need from either backend.
type storage interface {
	repositories.Store
	games.Repository
}

const idempotencyRetention = 24 * time.Hour

func main() {
	config.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}
	log := logger.NewWithConfig(logger.Config{
		Level:      cfg.LogLevel,
		TimeFormat: time.RFC3339,
		Pretty:     cfg.LogPretty,
	})
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]handlers.Check{}

	// Redis backs the live balance feed and the card index when reachable.
	var redisClient *redis.Client
	var cacheService *cache.CacheService
	var cardIndex recipient.CardIndex
	client := cache.NewRedisClient(&cache.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := cache.Ping(ctx, client); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, using in-process balance feed and no card cache")
		_ = client.Close()
	} else {
		redisClient = client
		cacheService = cache.NewCacheService(client, cfg.CacheTTL)
		cardIndex = cacheService
		checks["redis"] = cacheService.HealthCheck
		defer func() {
			if err := cacheService.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close redis connection")
			}
		}()
		log.Info().Str("addr", cfg.RedisAddr()).Msg("connected to redis")
	}

	var store storage
	var db *gorm.DB
	switch cfg.StorageDriver {
	case "memory":
		log.Warn().Msg("using in-memory storage, balances are lost on restart")
		store = memstore.New()
	default:
		db, err = repositories.Open(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open database")
		}
		defer func() {
			if err := repositories.Close(db); err != nil {
				log.Warn().Err(err).Msg("failed to close database connection")
			}
		}()
		if err := repositories.Migrate(db); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}

		var feed repositories.BalanceFeed = repositories.NewLocalFeed()
		if redisClient != nil {
			feed = cache.NewBalanceFeed(redisClient, log)
		}
		store = repositories.NewGormStore(db, feed, log)
		checks["database"] = databaseCheck(db)
		log.Info().Msg("connected to database")
	}

	go reportPoolStats(ctx, db, cacheService, log)

	var publisher rabbitmq.Publisher = &rabbitmq.EventProducerFallback{Log: log}
	if cfg.RabbitMQURL != "" {
		producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
		if err != nil {
			log.Warn().Err(err).Msg("rabbitmq unavailable, events will be dropped")
		} else {
			publisher = producer
		}
	}
	events := notification.NewService(publisher)
	defer events.Close()

	idem, err := idempotency.New(cfg.IdempotencyDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open idempotency store")
	}
	defer idem.Close()
	go purgeIdempotency(ctx, idem, log)

	policy, err := fees.NewPolicy(cfg.TransferFeeRate, cfg.WithdrawalFeeRate)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid fee configuration")
	}

	opts := transfer.DefaultOptions()
	if cfg.TransferMaxAttempts > 0 {
		opts.MaxAttempts = cfg.TransferMaxAttempts
	}
	if cfg.TransferBackoff > 0 {
		opts.Backoff = cfg.TransferBackoff
	}

	authService := auth.NewService(store, cfg.JWTSecret, cfg.TokenTTL, log)
	resolver := recipient.NewResolver(store, cardIndex, log)
	transferService := transfer.NewService(store, resolver, policy, events, opts, log)
	settlementService := settlement.NewService(store, policy, events, log).WithRetry(opts.MaxAttempts, opts.Backoff)
	ledgerService := ledger.NewService(store, log)
	gamesService := games.NewService(store, log)

	app := routes.NewApp(routes.AppConfig{
		CORSOrigins:  cfg.CORSOrigins,
		AccessLog:    !cfg.IsProduction(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // balance streams stay open
	})
	routes.SetupRoutes(app, routes.Dependencies{
		Auth:           handlers.NewAuthHandler(authService, log),
		Wallet:         handlers.NewWalletHandler(ledgerService, log),
		Recipients:     handlers.NewRecipientHandler(resolver, log),
		Transfers:      handlers.NewTransferHandler(transferService, log),
		Settlements:    handlers.NewSettlementHandler(settlementService, log),
		Games:          handlers.NewGamesHandler(gamesService, log),
		Health:         handlers.NewHealthHandler(checks),
		AuthMiddleware: middleware.NewAuthMiddleware(authService, log),
		Idempotency:    middleware.Idempotency(idem, log),
	})

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	log.Info().Str("port", cfg.Port).Str("storage", cfg.StorageDriver).Msg("starting server")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Error().Err(err).Msg("server stopped")
	}
}

func databaseCheck(db *gorm.DB) handlers.Check {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

// reportPoolStats logs database and Redis connection pool usage every
// minute. Either side may be nil.
func reportPoolStats(ctx context.Context, db *gorm.DB, cacheService *cache.CacheService, log zerolog.Logger) {
	if db == nil && cacheService == nil {
		return
	}
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if db != nil {
				if sqlDB, err := db.DB(); err == nil {
					stats := sqlDB.Stats()
					log.Debug().
						Int("open", stats.OpenConnections).
						Int("idle", stats.Idle).
						Int("in_use", stats.InUse).
						Int64("wait_count", stats.WaitCount).
						Dur("wait_duration", stats.WaitDuration).
						Msg("db stats")
				}
			}
			if cacheService != nil {
				stats := cacheService.GetStats()
				log.Debug().
					Uint32("total", stats.TotalConns).
					Uint32("idle", stats.IdleConns).
					Uint32("stale", stats.StaleConns).
					Uint32("hits", stats.Hits).
					Uint32("misses", stats.Misses).
					Uint32("timeouts", stats.Timeouts).
					Msg("redis stats")
			}
		}
	}
}

func purgeIdempotency(ctx context.Context, store *idempotency.Store, log zerolog.Logger) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Purge(time.Now().Add(-idempotencyRetention))
			if err != nil {
				log.Warn().Err(err).Msg("idempotency purge failed")
				continue
			}
			if n > 0 {
				log.Info().Int("removed", n).Msg("purged idempotency keys")
			}
		}
	}
}
