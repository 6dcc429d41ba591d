package worker

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/framepost/framepost/internal/config"
	"github.com/framepost/framepost/internal/domain"
	"github.com/framepost/framepost/internal/pipeline"
	"github.com/framepost/framepost/internal/postproc"
	"github.com/framepost/framepost/internal/queue"
	"github.com/framepost/framepost/internal/storage"
	"github.com/framepost/framepost/internal/store"
	"github.com/framepost/framepost/internal/webhook"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Server struct {
	logger          *log.Logger
	server          *asynq.Server
	sem             chan struct{}
	localProcessor  *pipeline.Processor
	objectProcessor *pipeline.Processor
	webhookClient   webhookSender
	jobStore        store.JobStore
	usageStore      store.UsageStore
	metrics         *metrics
	tracer          trace.Tracer
}

type webhookSender interface {
	Send(ctx context.Context, endpoint, event string, payload any) error
}

func NewServer(
	logger *log.Logger,
	queueCfg config.QueueConfig,
	workerCfg config.WorkerConfig,
	storageClient *storage.Client,
	webhookClient *webhook.Client,
	jobStore store.JobStore,
	usageStore store.UsageStore,
) (*Server, error) {
	if storageClient == nil {
		return nil, fmt.Errorf("storage client is required")
	}

	localProcessor, err := pipeline.NewLocalProcessor(workerCfg.LocalOutputDir, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize local processor: %w", err)
	}

	objectProcessor, err := pipeline.NewObjectStoreProcessor(
		pipeline.ObjectStoreFetcher{Storage: storageClient},
		pipeline.ObjectStoreEmitter{Storage: storageClient, OutputPrefix: "outputs"},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("initialize object-store processor: %w", err)
	}

	if usageStore == nil {
		if jobAndUsageStore, ok := jobStore.(store.UsageStore); ok {
			usageStore = jobAndUsageStore
		}
	}

	s := &Server{
		logger: logger,
		server: asynq.NewServer(
			queueCfg.RedisClientOpt(),
			asynq.Config{
				Concurrency: workerCfg.Concurrency,
				Queues: map[string]int{
					queueCfg.Name: 1,
				},
				LogLevel: asynq.InfoLevel,
				ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
					retried, _ := asynq.GetRetryCount(ctx)
					maxRetry, _ := asynq.GetMaxRetry(ctx)
					logger.Printf("task failed type=%s retry=%d/%d err=%v", task.Type(), retried, maxRetry, err)
				}),
			},
		),
		sem:             make(chan struct{}, max(1, workerCfg.MaxActiveJobs)),
		localProcessor:  localProcessor,
		objectProcessor: objectProcessor,
		webhookClient:   webhookClient,
		jobStore:        jobStore,
		usageStore:      usageStore,
		metrics:         newMetrics(),
		tracer:          otel.Tracer("framepost/worker"),
	}
	return s, nil
}

func (s *Server) Run() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypePostProcessCapture, s.handlePostProcessCapture)
	return s.server.Run(mux)
}

func (s *Server) MetricsHandler() http.Handler {
	return s.metrics.Handler()
}

func (s *Server) handlePostProcessCapture(ctx context.Context, task *asynq.Task) error {
	startedAt := time.Now()
	outcome := domain.JobStatusFailed

	payload, err := queue.ParsePostProcessPayload(task)
	if err != nil {
		return fmt.Errorf("parse payload: %v: %w", err, asynq.SkipRetry)
	}

	ctx, span := s.tracer.Start(ctx, "worker.postprocess_capture", trace.WithSpanKind(trace.SpanKindConsumer))
	span.SetAttributes(
		attribute.String("capture.id", payload.JobID),
		attribute.String("capture.source_type", payload.SourceType),
		attribute.String("capture.facing", payload.Facing),
		attribute.Int("capture.extra_steps", len(payload.Steps)),
	)
	defer span.End()
	defer func() {
		s.metrics.jobDuration.WithLabelValues(payload.SourceType, outcome).Observe(time.Since(startedAt).Seconds())
		s.metrics.jobsTotal.WithLabelValues(payload.SourceType, outcome).Inc()
	}()

	s.sem <- struct{}{}
	s.metrics.activeJobs.Inc()
	defer func() {
		<-s.sem
		s.metrics.activeJobs.Dec()
	}()

	s.logger.Printf(
		"Working... job_id=%s source_type=%s facing=%s steps=%d object_key=%s",
		payload.JobID,
		payload.SourceType,
		payload.Facing,
		len(payload.Steps),
		payload.ObjectKey,
	)

	s.updateJobStatus(ctx, payload.JobID, domain.JobStatusProcessing)

	request := pipeline.Request{
		JobID:      payload.JobID,
		SourceType: payload.SourceType,
		ObjectKey:  payload.ObjectKey,
		Facing:     payload.Facing,
		Quality:    payload.Quality,
		Steps:      payload.Steps,
	}

	var result pipeline.Result
	switch payload.SourceType {
	case domain.SourceTypeLocalFile:
		result, err = s.localProcessor.Process(ctx, request)
	default:
		result, err = s.objectProcessor.Process(ctx, request)
	}
	if err != nil {
		s.updateJobStatus(ctx, payload.JobID, domain.JobStatusFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "post-processing failed")
		s.dispatchWebhook(ctx, payload, "capture.failed", failureBody(payload, err))
		return fmt.Errorf("post-process capture: %w", err)
	}

	s.logger.Printf(
		"Processed job_id=%s width=%d height=%d bytes=%d",
		payload.JobID,
		result.Output.Width,
		result.Output.Height,
		result.Output.Bytes,
	)
	s.updateJobStatus(ctx, payload.JobID, domain.JobStatusSucceeded)
	s.metrics.outputBytesTotal.Add(float64(result.Output.Bytes))
	s.recordUsage(ctx, payload.JobID, result, time.Since(startedAt))

	if err := s.dispatchWebhook(ctx, payload, "capture.completed", map[string]any{
		"job_id":       payload.JobID,
		"status":       domain.JobStatusSucceeded,
		"source_type":  payload.SourceType,
		"object_key":   payload.ObjectKey,
		"requested_at": payload.RequestedAt,
		"completed_at": time.Now().UTC(),
		"output":       result.Output,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "webhook dispatch failed")
		return err
	}

	outcome = domain.JobStatusSucceeded
	span.SetStatus(codes.Ok, "processed")
	return nil
}

func failureBody(payload queue.PostProcessPayload, err error) map[string]any {
	body := map[string]any{
		"job_id":       payload.JobID,
		"status":       domain.JobStatusFailed,
		"source_type":  payload.SourceType,
		"object_key":   payload.ObjectKey,
		"requested_at": payload.RequestedAt,
		"failed_at":    time.Now().UTC(),
		"error":        err.Error(),
	}
	if kind, ok := postproc.KindOf(err); ok {
		body["failure_kind"] = string(kind)
	}
	return body
}

func (s *Server) updateJobStatus(ctx context.Context, jobID, status string) {
	if s.jobStore == nil {
		return
	}
	if _, err := s.jobStore.UpdateStatus(ctx, jobID, status); err != nil {
		s.logger.Printf("job status update failed job_id=%s status=%s err=%v", jobID, status, err)
	}
}

func (s *Server) dispatchWebhook(ctx context.Context, payload queue.PostProcessPayload, event string, body map[string]any) error {
	if payload.WebhookURL == "" || s.webhookClient == nil {
		return nil
	}

	if err := s.webhookClient.Send(ctx, payload.WebhookURL, event, body); err != nil {
		s.logger.Printf("webhook delivery failed job_id=%s event=%s err=%v", payload.JobID, event, err)
		return fmt.Errorf("dispatch webhook: %w", err)
	}

	return nil
}

func (s *Server) recordUsage(ctx context.Context, jobID string, result pipeline.Result, computeDuration time.Duration) {
	if s.usageStore == nil {
		return
	}

	userID := "anonymous"
	if s.jobStore != nil {
		job, ok, err := s.jobStore.Get(ctx, jobID)
		if err != nil {
			s.logger.Printf("usage lookup failed job_id=%s err=%v", jobID, err)
		} else if ok && strings.TrimSpace(job.UserID) != "" {
			userID = job.UserID
		}
	}

	pixelsProcessed := int64(result.Output.Width) * int64(result.Output.Height)

	bytesSaved := int64(result.SourceBytes - result.Output.Bytes)
	if bytesSaved < 0 {
		bytesSaved = 0
	}

	computeTimeMS := computeDuration.Milliseconds()
	if computeTimeMS < 1 {
		computeTimeMS = 1
	}

	usage := domain.UsageRecord{
		UserID:          userID,
		JobID:           jobID,
		PixelsProcessed: pixelsProcessed,
		BytesSaved:      bytesSaved,
		ComputeTimeMS:   computeTimeMS,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.usageStore.CreateUsageRecord(ctx, usage); err != nil {
		s.logger.Printf("usage record write failed job_id=%s err=%v", jobID, err)
		return
	}

	s.metrics.pixelsProcessedTotal.Add(float64(pixelsProcessed))
	s.metrics.bytesSavedTotal.Add(float64(bytesSaved))
	s.metrics.computeTimeMSTotal.Add(float64(computeTimeMS))
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
