package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/framepost/framepost/internal/domain"
	_ "github.com/lib/pq"
)

const captureSchemaSQL = `
CREATE TABLE IF NOT EXISTS capture_jobs (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	source_type TEXT NOT NULL,
	facing TEXT NOT NULL,
	quality INTEGER NOT NULL DEFAULT 0,
	webhook_url TEXT NOT NULL DEFAULT '',
	steps JSONB NOT NULL,
	object_key TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS usage_records (
	id BIGSERIAL PRIMARY KEY,
	user_id TEXT NOT NULL,
	job_id TEXT NOT NULL,
	pixels_processed BIGINT NOT NULL,
	bytes_saved BIGINT NOT NULL,
	compute_time_ms BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`

type PostgresJobStore struct {
	db *sql.DB
}

func NewPostgresJobStore(ctx context.Context, dsn string) (*PostgresJobStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresJobStore{db: db}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresJobStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, captureSchemaSQL); err != nil {
		return fmt.Errorf("ensure capture schema: %w", err)
	}
	return nil
}

func (s *PostgresJobStore) Close() error {
	return s.db.Close()
}

func (s *PostgresJobStore) Create(ctx context.Context, job domain.CaptureJob) error {
	stepsJSON, err := json.Marshal(job.Steps)
	if err != nil {
		return fmt.Errorf("marshal job steps: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO capture_jobs (id, user_id, status, source_type, facing, quality, webhook_url, steps, object_key, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		job.ID,
		job.UserID,
		job.Status,
		job.SourceType,
		job.Facing,
		job.Quality,
		job.WebhookURL,
		stepsJSON,
		job.ObjectKey,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert capture job: %w", err)
	}

	return nil
}

func (s *PostgresJobStore) Get(ctx context.Context, id string) (domain.CaptureJob, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, user_id, status, source_type, facing, quality, webhook_url, steps, object_key, created_at, updated_at
		 FROM capture_jobs
		 WHERE id = $1`,
		id,
	)

	var (
		job       domain.CaptureJob
		stepsJSON []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.Status,
		&job.SourceType,
		&job.Facing,
		&job.Quality,
		&job.WebhookURL,
		&stepsJSON,
		&job.ObjectKey,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return domain.CaptureJob{}, false, nil
		}
		return domain.CaptureJob{}, false, fmt.Errorf("query capture job: %w", err)
	}

	if err := json.Unmarshal(stepsJSON, &job.Steps); err != nil {
		return domain.CaptureJob{}, false, fmt.Errorf("unmarshal job steps: %w", err)
	}

	return job, true, nil
}

func (s *PostgresJobStore) UpdateStatus(ctx context.Context, id, status string) (domain.CaptureJob, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE capture_jobs
		 SET status = $1, updated_at = $2
		 WHERE id = $3`,
		status,
		now,
		id,
	)
	if err != nil {
		return domain.CaptureJob{}, fmt.Errorf("update capture job status: %w", err)
	}

	job, ok, err := s.Get(ctx, id)
	if err != nil {
		return domain.CaptureJob{}, err
	}
	if !ok {
		return domain.CaptureJob{}, ErrJobNotFound
	}

	return job, nil
}

func (s *PostgresJobStore) CreateUsageRecord(ctx context.Context, usage domain.UsageRecord) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO usage_records (user_id, job_id, pixels_processed, bytes_saved, compute_time_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		usage.UserID,
		usage.JobID,
		usage.PixelsProcessed,
		usage.BytesSaved,
		usage.ComputeTimeMS,
		usage.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	return nil
}
