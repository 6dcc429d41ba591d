package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/framepost/framepost/internal/api"
	"github.com/framepost/framepost/internal/config"
	"github.com/framepost/framepost/internal/queue"
	"github.com/framepost/framepost/internal/ratelimit"
	"github.com/framepost/framepost/internal/storage"
	"github.com/framepost/framepost/internal/store"
	"github.com/framepost/framepost/internal/telemetry"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.Lmsgprefix)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TraceConfig{
		ServiceName:  "framepost-api",
		Exporter:     cfg.Trace.Exporter,
		OTLPEndpoint: cfg.Trace.OTLPEndpoint,
		OTLPInsecure: cfg.Trace.OTLPInsecure,
	}, logger)
	cancel()
	if err != nil {
		logger.Fatalf("tracing setup failed: %v", err)
	}

	queueClient := queue.NewClient(cfg.Queue.RedisClientOpt(), cfg.Queue.Name)
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Printf("queue client close error: %v", err)
		}
	}()

	storageClient, err := storage.NewClient(storage.Config{
		Endpoint: cfg.Storage.Endpoint,
		Access:   cfg.Storage.AccessKey,
		Secret:   cfg.Storage.SecretKey,
		Bucket:   cfg.Storage.Bucket,
		UseSSL:   cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Fatalf("storage client setup failed: %v", err)
	}
	bucketCtx, bucketCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := storageClient.EnsureBucket(bucketCtx); err != nil {
		logger.Printf("bucket check failed (uploads may not work yet): %v", err)
	}
	bucketCancel()

	jobStore, closeStore := buildJobStore(logger, cfg.Database.DSN)
	defer closeStore()

	rateLimiter := buildRateLimiter(logger, cfg)

	app := api.NewServer(logger, queueClient, jobStore, storageClient, api.Options{
		PresignTTL:   cfg.API.PresignTTL,
		RateLimiter:  rateLimiter,
		UserIDHeader: cfg.API.UserIDHeader,
	})

	httpServer := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      app.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Printf("listening on %s", cfg.API.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Println("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Printf("tracing shutdown failed: %v", err)
	}
}

func buildJobStore(logger *log.Logger, dsn string) (store.JobStore, func()) {
	if dsn == "" {
		logger.Printf("using in-memory job store (set POSTGRES_DSN for persistence)")
		return store.NewMemoryJobStore(), func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pgStore, err := store.NewPostgresJobStore(ctx, dsn)
	if err != nil {
		logger.Fatalf("postgres job store setup failed: %v", err)
	}
	return pgStore, func() {
		if err := pgStore.Close(); err != nil {
			logger.Printf("job store close error: %v", err)
		}
	}
}

func buildRateLimiter(logger *log.Logger, cfg config.Config) api.RateLimiter {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Queue.RedisAddr,
		Password: cfg.Queue.RedisPassword,
		DB:       cfg.Queue.RedisDB,
	})

	limiter, err := ratelimit.NewRedisTokenBucket(redisClient, cfg.RateLimit.Capacity, cfg.RateLimit.Window, "")
	if err != nil {
		logger.Printf("rate limiter setup failed, requests will not be limited: %v", err)
		return nil
	}
	return limiter
}
