package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/framepost/framepost/internal/domain"
)

var ErrJobNotFound = errors.New("capture job not found")

type MemoryJobStore struct {
	mu    sync.RWMutex
	jobs  map[string]domain.CaptureJob
	usage []domain.UsageRecord
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs: make(map[string]domain.CaptureJob),
	}
}

func (s *MemoryJobStore) Create(_ context.Context, job domain.CaptureJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *MemoryJobStore) Get(_ context.Context, id string) (domain.CaptureJob, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	return job, ok, nil
}

func (s *MemoryJobStore) UpdateStatus(_ context.Context, id, status string) (domain.CaptureJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return domain.CaptureJob{}, ErrJobNotFound
	}

	job.Status = status
	job.UpdatedAt = time.Now().UTC()
	s.jobs[id] = job
	return job, nil
}

func (s *MemoryJobStore) CreateUsageRecord(_ context.Context, usage domain.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = append(s.usage, usage)
	return nil
}

// UsageRecords returns a copy of everything recorded so far.
func (s *MemoryJobStore) UsageRecords() []domain.UsageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.UsageRecord, len(s.usage))
	copy(out, s.usage)
	return out
}
