package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/framepost/framepost/internal/config"
	"github.com/framepost/framepost/internal/storage"
	"github.com/framepost/framepost/internal/store"
	"github.com/framepost/framepost/internal/telemetry"
	"github.com/framepost/framepost/internal/webhook"
	"github.com/framepost/framepost/internal/worker"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[worker] ", log.LstdFlags|log.Lmsgprefix)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TraceConfig{
		ServiceName:  "framepost-worker",
		Exporter:     cfg.Trace.Exporter,
		OTLPEndpoint: cfg.Trace.OTLPEndpoint,
		OTLPInsecure: cfg.Trace.OTLPInsecure,
	}, logger)
	cancel()
	if err != nil {
		logger.Fatalf("tracing setup failed: %v", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Printf("tracing shutdown failed: %v", err)
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

	webhookClient := webhook.NewClient(webhook.Config{
		SigningSecret: cfg.Webhook.SigningSecret,
		MaxAttempts:   cfg.Webhook.MaxAttempts,
	})

	jobStore, closeStore := buildJobStore(logger, cfg.Database.DSN)
	defer closeStore()

	srv, err := worker.NewServer(logger, cfg.Queue, cfg.Worker, storageClient, webhookClient, jobStore, nil)
	if err != nil {
		logger.Fatalf("worker setup failed: %v", err)
	}

	go func() {
		metricsServer := &http.Server{
			Addr:         cfg.Worker.MetricsAddr,
			Handler:      srv.MetricsHandler(),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		logger.Printf("metrics listening on %s", cfg.Worker.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("metrics server failed: %v", err)
		}
	}()

	logger.Printf(
		"starting worker concurrency=%d max_active_jobs=%d queue=%s redis=%s",
		cfg.Worker.Concurrency,
		cfg.Worker.MaxActiveJobs,
		cfg.Queue.Name,
		cfg.Queue.RedisAddr,
	)

	if err := srv.Run(); err != nil {
		logger.Fatalf("worker failed: %v", err)
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
