package config

import (
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
)

type Config struct {
	API       APIConfig
	Queue     QueueConfig
	Worker    WorkerConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Webhook   WebhookConfig
	Trace     TraceConfig
	RateLimit RateLimitConfig
}

type APIConfig struct {
	Addr         string
	PresignTTL   time.Duration
	UserIDHeader string
}

type QueueConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Name          string
}

func (q QueueConfig) RedisClientOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     q.RedisAddr,
		Password: q.RedisPassword,
		DB:       q.RedisDB,
	}
}

type WorkerConfig struct {
	Concurrency    int
	MaxActiveJobs  int
	LocalOutputDir string
	MetricsAddr    string
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type DatabaseConfig struct {
	DSN string
}

type WebhookConfig struct {
	SigningSecret string
	MaxAttempts   int
}

type TraceConfig struct {
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
}

type RateLimitConfig struct {
	Capacity int
	Window   time.Duration
}

func Load() Config {
	defaultWorkerSlots := max(1, runtime.NumCPU()/2)

	return Config{
		API: APIConfig{
			Addr:         env("FRAMEPOST_API_ADDR", ":8080"),
			PresignTTL:   envDuration("FRAMEPOST_PRESIGN_TTL", 15*time.Minute),
			UserIDHeader: env("FRAMEPOST_USER_ID_HEADER", "X-User-ID"),
		},
		Queue: QueueConfig{
			RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
			RedisPassword: env("REDIS_PASSWORD", ""),
			RedisDB:       envInt("REDIS_DB", 0),
			Name:          env("ASYNC_QUEUE", "default"),
		},
		Worker: WorkerConfig{
			Concurrency:    envInt("WORKER_CONCURRENCY", max(2, runtime.NumCPU())),
			MaxActiveJobs:  envInt("WORKER_MAX_ACTIVE_JOBS", defaultWorkerSlots),
			LocalOutputDir: env("WORKER_LOCAL_OUTPUT_DIR", "./.framepost-output"),
			MetricsAddr:    env("WORKER_METRICS_ADDR", ":9090"),
		},
		Storage: StorageConfig{
			Endpoint:  env("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: env("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: env("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    env("MINIO_BUCKET", "framepost-captures"),
			UseSSL:    envBool("MINIO_USE_SSL", false),
		},
		Database: DatabaseConfig{
			DSN: env("POSTGRES_DSN", ""),
		},
		Webhook: WebhookConfig{
			SigningSecret: env("WEBHOOK_SIGNING_SECRET", ""),
			MaxAttempts:   envInt("WEBHOOK_MAX_ATTEMPTS", 3),
		},
		Trace: TraceConfig{
			Exporter:     env("TRACE_EXPORTER", "none"),
			OTLPEndpoint: env("TRACE_OTLP_ENDPOINT", ""),
			OTLPInsecure: envBool("TRACE_OTLP_INSECURE", false),
		},
		RateLimit: RateLimitConfig{
			Capacity: envInt("RATE_LIMIT_CAPACITY", 60),
			Window:   envDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}
}

func env(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
