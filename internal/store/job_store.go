package store

import (
	"context"

	"github.com/framepost/framepost/internal/domain"
)

type JobStore interface {
	Create(ctx context.Context, job domain.CaptureJob) error
	Get(ctx context.Context, id string) (domain.CaptureJob, bool, error)
	UpdateStatus(ctx context.Context, id, status string) (domain.CaptureJob, error)
}

type UsageStore interface {
	CreateUsageRecord(ctx context.Context, usage domain.UsageRecord) error
}
