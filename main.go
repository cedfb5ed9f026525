package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ms-allocation/internal/analytics"
	analytics_api "ms-allocation/internal/analytics/api"
	"ms-allocation/internal/auth"
	"ms-allocation/internal/cache"
	"ms-allocation/internal/claims/claim_api"
	claims_db "ms-allocation/internal/claims/db"
	quotaredis "ms-allocation/internal/claims/redis"
	claims "ms-allocation/internal/claims/service"
	"ms-allocation/internal/config"
	"ms-allocation/internal/database"
	"ms-allocation/internal/events"
	events_db "ms-allocation/internal/events/db"
	"ms-allocation/internal/events/event_api"
	"ms-allocation/internal/kafka"
	"ms-allocation/internal/logger"
	"ms-allocation/internal/monitoring"
	"ms-allocation/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
)

func connectRedis(ctx context.Context, cfg config.RedisConfig, logger *logger.Logger) *redis.Client {
	if !cfg.Enabled {
		logger.Info("REDIS", "Redis disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, DB: cfg.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
	}
	logger.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Addr, cfg.DB))
	return client
}

func healthHandler(db *bun.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			utils.WriteError(w, http.StatusServiceUnavailable, "Database unreachable", err)
			return
		}
		utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("ok", nil))
	}
}

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting Allocation Service initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}
	cfg := config.Load()
	ctx := context.Background()

	bunDB, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Prepare(ctx, bunDB, logger); err != nil {
			logger.Fatal("DATABASE", fmt.Sprintf("Schema preparation failed: %v", err))
		}
	}

	redisClient := connectRedis(ctx, cfg.Redis, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	priceCache, err := cache.New(cfg.PriceCache, redisClient)
	if err != nil {
		logger.Fatal("CACHE", err.Error())
	}
	logger.Info("CACHE", fmt.Sprintf("Price cache backend: %s", cfg.PriceCache.Backend))

	selector, err := claims.NewPoolSelector(cfg.Allocation.PoolSelection)
	if err != nil {
		logger.Fatal("CONFIG", err.Error())
	}

	claimStore := claims_db.New(bunDB)
	opts := []claims.Option{
		claims.WithSelector(selector),
		claims.WithMaxPerUser(cfg.Allocation.MaxPerUser),
		claims.WithTransactor(claimStore),
		claims.WithLogger(logger),
	}

	if cfg.Allocation.StrictQuota {
		if redisClient == nil {
			logger.Fatal("CONFIG", "STRICT_QUOTA requires REDIS_ENABLED")
		}
		opts = append(opts, claims.WithQuotaGuard(
			quotaredis.NewQuotaLock(redisClient, cfg.Allocation.QuotaLockTTL, cfg.Allocation.QuotaLockWait, logger),
		))
		logger.Info("QUOTA", "Strict per-user quota enabled")
	}

	if cfg.Kafka.Enabled {
		topics := []string{cfg.Kafka.Topics.ClaimBooked, cfg.Kafka.Topics.ClaimCancelled}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics, logger); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics, logger)
		defer producer.Close()
		opts = append(opts, claims.WithPublisher(producer))
		logger.Info("KAFKA", "Kafka producer initialized successfully")
	}

	claimService := claims.NewClaimService(claimStore, claimStore, priceCache, opts...)

	eventService := events.NewService(&events_db.DB{Bun: bunDB}, cfg.Allocation.PoolShardSize, logger)
	eventService.Prices = priceCache

	analyticsService := analytics.NewService(analytics.NewDB(bunDB), logger)

	claimHandler := claim_api.NewHandler(claimService, logger)
	eventHandler := event_api.NewHandler(eventService, logger)
	analyticsHandler := analytics_api.NewHandler(analyticsService, logger)

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// --- Public Routes ---
	r.Get("/health", healthHandler(bunDB))
	r.Handle("/metrics", monitoring.Handler())

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(logger))
		logger.Info("AUTH", "Identity middleware applied to protected API routes")

		r.Route("/api/v1", func(r chi.Router) {
			claimHandler.RegisterRoutes(r)
			logger.Info("ROUTER", "Claim routes registered under /api/v1/claims")

			eventHandler.RegisterRoutes(r)
			logger.Info("ROUTER", "Event routes registered under /api/v1/events")

			analyticsHandler.RegisterRoutes(r)
			logger.Info("ROUTER", "Inventory route registered under /api/v1/events/{eventId}/inventory")
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Allocation Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Allocation Service shutdown complete")
	}
}
