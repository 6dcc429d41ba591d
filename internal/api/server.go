package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/framepost/framepost/internal/domain"
	"github.com/framepost/framepost/internal/id"
	"github.com/framepost/framepost/internal/queue"
	"github.com/framepost/framepost/internal/storage"
	"github.com/framepost/framepost/internal/store"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type Server struct {
	logger                *log.Logger
	queueClient           queueEnqueuer
	jobStore              store.JobStore
	storage               objectStorage
	presignTTL            time.Duration
	rateLimiter           RateLimiter
	rateLimitUserIDHeader string
	metrics               *metrics
	tracer                trace.Tracer
	mux                   *http.ServeMux
}

type Options struct {
	PresignTTL   time.Duration
	RateLimiter  RateLimiter
	UserIDHeader string
}

type queueEnqueuer interface {
	EnqueuePostProcess(ctx context.Context, payload queue.PostProcessPayload) (*asynq.TaskInfo, error)
}

type objectStorage interface {
	PresignedPutURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
	ObjectExists(ctx context.Context, objectKey string) (bool, error)
}

func NewServer(logger *log.Logger, queueClient queueEnqueuer, jobStore store.JobStore, objectStore objectStorage, opts Options) *Server {
	presignTTL := opts.PresignTTL
	if presignTTL <= 0 {
		presignTTL = 15 * time.Minute
	}
	if objectStore == nil {
		objectStore = unavailableObjectStorage{}
	}
	userIDHeader := strings.TrimSpace(opts.UserIDHeader)
	if userIDHeader == "" {
		userIDHeader = "X-User-ID"
	}

	s := &Server{
		logger:                logger,
		queueClient:           queueClient,
		jobStore:              jobStore,
		storage:               objectStore,
		presignTTL:            presignTTL,
		rateLimiter:           opts.RateLimiter,
		rateLimitUserIDHeader: userIDHeader,
		metrics:               newMetrics(),
		tracer:                otel.Tracer("framepost/api"),
		mux:                   http.NewServeMux(),
	}
	s.routes()
	return s
}

type unavailableObjectStorage struct{}

func (unavailableObjectStorage) PresignedPutURL(_ context.Context, _ string, _ time.Duration) (string, error) {
	return "", errors.New("object storage is unavailable")
}

func (unavailableObjectStorage) ObjectExists(_ context.Context, _ string) (bool, error) {
	return false, errors.New("object storage is unavailable")
}

func (s *Server) Handler() http.Handler {
	return s.metrics.withHTTPMetrics(s.withTracing(s.withRateLimit(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", s.metrics.metricsHandler())
	s.mux.HandleFunc("POST /v1/captures", s.handleCreateCapture)
	s.mux.HandleFunc("POST /v1/captures/{id}/start", s.handleStartCapture)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateCapture(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCaptureRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	jobID := id.New()
	sourceType := strings.ToLower(strings.TrimSpace(req.SourceType))
	objectKey := strings.TrimSpace(req.ObjectKey)
	uploadState := "not_required"
	presignedPutURL := ""

	if sourceType == domain.SourceTypeS3Presigned {
		objectKey = storage.UploadObjectKey(jobID)
		url, err := s.storage.PresignedPutURL(r.Context(), objectKey, s.presignTTL)
		if err != nil {
			s.logger.Printf("generate presigned url failed for capture %s: %v", jobID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to generate upload URL"})
			return
		}
		presignedPutURL = url
		uploadState = "ready"
	}

	job := domain.CaptureJob{
		ID:         jobID,
		UserID:     strings.TrimSpace(r.Header.Get(s.rateLimitUserIDHeader)),
		Status:     domain.JobStatusCreated,
		SourceType: sourceType,
		Facing:     strings.ToLower(strings.TrimSpace(req.Facing)),
		Quality:    req.Quality,
		WebhookURL: req.WebhookURL,
		Steps:      req.Steps,
		ObjectKey:  objectKey,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.jobStore.Create(r.Context(), job); err != nil {
		s.logger.Printf("create capture failed for capture %s: %v", job.ID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create capture job"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id": job.ID,
		"status": job.Status,
		"upload": map[string]string{
			"object_key":          job.ObjectKey,
			"presigned_put_url":   presignedPutURL,
			"presigned_url_state": uploadState,
		},
		"start_url": fmt.Sprintf("/v1/captures/%s/start", job.ID),
	})
}

func (s *Server) handleStartCapture(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if strings.TrimSpace(jobID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "capture id is required"})
		return
	}

	job, ok, err := s.jobStore.Get(r.Context(), jobID)
	if err != nil {
		s.logger.Printf("fetch capture failed for capture %s: %v", jobID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load capture job"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "capture job not found"})
		return
	}

	if err := s.verifySourceExists(r.Context(), job); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}

	payload := queue.PostProcessPayload{
		JobID:       job.ID,
		SourceType:  job.SourceType,
		WebhookURL:  job.WebhookURL,
		ObjectKey:   job.ObjectKey,
		Facing:      job.Facing,
		Quality:     job.Quality,
		Steps:       job.Steps,
		RequestedAt: time.Now().UTC(),
	}

	taskInfo, err := s.queueClient.EnqueuePostProcess(r.Context(), payload)
	if err != nil {
		s.logger.Printf("enqueue failed for capture %s: %v", job.ID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to enqueue capture job"})
		return
	}
	s.metrics.queueEnqueued.WithLabelValues(taskInfo.Queue).Inc()

	if _, err := s.jobStore.UpdateStatus(r.Context(), job.ID, domain.JobStatusQueued); err != nil {
		s.logger.Printf("update status failed for capture %s: %v", job.ID, err)
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":      job.ID,
		"status":      domain.JobStatusQueued,
		"queue":       taskInfo.Queue,
		"task_id":     taskInfo.ID,
		"state":       taskInfo.State.String(),
		"enqueued_at": taskInfo.NextProcessAt,
	})
}

func (s *Server) verifySourceExists(ctx context.Context, job domain.CaptureJob) error {
	switch job.SourceType {
	case domain.SourceTypeLocalFile:
		if _, err := os.Stat(job.ObjectKey); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("capture source is missing: %s", job.ObjectKey)
			}
			return fmt.Errorf("capture source check failed: %w", err)
		}
		return nil
	default:
		exists, err := s.storage.ObjectExists(ctx, job.ObjectKey)
		if err != nil {
			return fmt.Errorf("capture source check failed: %w", err)
		}
		if !exists {
			return fmt.Errorf("capture source is missing: %s", job.ObjectKey)
		}
		return nil
	}
}

func decodeJSON(r *http.Request, into any) error {
	const maxBodyBytes = 1 << 20
	limited := io.LimitReader(r.Body, maxBodyBytes)
	decoder := json.NewDecoder(limited)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return errors.New("invalid JSON body: multiple JSON values are not allowed")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
