package main

import (
	"context"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shortlink/pkg/cache"
	"shortlink/pkg/clicks"
	"shortlink/pkg/config"
	httphandler "shortlink/pkg/http"
	"shortlink/pkg/logging"
	"shortlink/pkg/middleware"
	"shortlink/pkg/service"
	"shortlink/pkg/storage"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	logger := logging.NewLogger(logging.LogLevel(cfg.LogLevel))
	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal("failed to open store: ", err)
	}

	// Redis is optional; the service runs identically without it.
	var redisClient *redis.Client
	var mappingCache cache.MappingCacheInterface
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal("invalid REDIS_URL: ", err)
		}
		redisClient = redis.NewClient(opt)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn(ctx, "redis unavailable, running without cache", "error", err)
			redisClient.Close()
			redisClient = nil
		} else {
			mappingCache = cache.NewMappingCache(redisClient)
		}
	}

	mappingService := service.NewMappingService(store, mappingCache, logger)
	recorder := clicks.NewRecorder(store, logger, cfg.ClickWorkers, cfg.ClickBuffer)
	handler := httphandler.NewHandler(mappingService, recorder, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(logger))
	httphandler.SetupRoutes(r, handler)

	srv := &stdhttp.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info(ctx, "server listening", "addr", srv.Addr, "driver", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			log.Fatal("listen: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "server shutdown", "error", err)
	}

	// Drain buffered click events before closing the store they write to.
	recorder.Close()
	if err := store.Close(); err != nil {
		logger.Error(ctx, "store close", "error", err)
	}
	if redisClient != nil {
		redisClient.Close()
	}
	logger.Info(ctx, "stopped")
}

// openStore selects the storage backend once at startup. Everything above
// this point sees only the storage.Store interface.
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageDriver {
	case config.DriverSQLite:
		return storage.NewSQLiteStore(ctx, cfg.SQLitePath)
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store, err := storage.NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
