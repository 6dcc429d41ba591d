package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/framepost/framepost/internal/domain"
	"github.com/framepost/framepost/internal/queue"
	"github.com/framepost/framepost/internal/store"
	"github.com/hibiken/asynq"
)

type stubEnqueuer struct {
	payloads []queue.PostProcessPayload
}

func (s *stubEnqueuer) EnqueuePostProcess(_ context.Context, payload queue.PostProcessPayload) (*asynq.TaskInfo, error) {
	s.payloads = append(s.payloads, payload)
	return &asynq.TaskInfo{ID: "task-1", Queue: "default", State: asynq.TaskStatePending}, nil
}

type stubStorage struct {
	putURL string
	exists bool
}

func (s stubStorage) PresignedPutURL(_ context.Context, _ string, _ time.Duration) (string, error) {
	return s.putURL, nil
}

func (s stubStorage) ObjectExists(_ context.Context, _ string) (bool, error) {
	return s.exists, nil
}

func newTestServer(t *testing.T, enqueuer *stubEnqueuer, objectStore objectStorage) (*Server, *store.MemoryJobStore) {
	t.Helper()
	jobStore := store.NewMemoryJobStore()
	logger := log.New(io.Discard, "", 0)
	return NewServer(logger, enqueuer, jobStore, objectStore, Options{}), jobStore
}

func TestRouteLabel(t *testing.T) {
	cases := map[string]string{
		"/v1/captures":              "/v1/captures",
		"/v1/captures/abc123/start": "/v1/captures/{id}/start",
		"/healthz":                  "/healthz",
		"/metrics":                  "/metrics",
		"/unknown":                  "/unknown",
	}
	for path, want := range cases {
		if got := routeLabel(path); got != want {
			t.Fatalf("routeLabel(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestCreateCapturePresignsUpload(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	server, jobStore := newTestServer(t, enqueuer, stubStorage{putURL: "https://minio.local/put"})

	body, _ := json.Marshal(map[string]any{
		"source_type": "s3_presigned",
		"facing":      "front",
		"quality":     90,
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/captures", bytes.NewReader(body))
	req.Header.Set("X-User-ID", "user-7")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
		Upload struct {
			ObjectKey       string `json:"object_key"`
			PresignedPutURL string `json:"presigned_put_url"`
		} `json:"upload"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != domain.JobStatusCreated {
		t.Fatalf("expected status %q, got %q", domain.JobStatusCreated, resp.Status)
	}
	if resp.Upload.PresignedPutURL != "https://minio.local/put" {
		t.Fatalf("unexpected presigned URL %q", resp.Upload.PresignedPutURL)
	}

	job, ok, err := jobStore.Get(context.Background(), resp.JobID)
	if err != nil || !ok {
		t.Fatalf("expected stored job, ok=%v err=%v", ok, err)
	}
	if job.UserID != "user-7" {
		t.Fatalf("expected user-7, got %q", job.UserID)
	}
	if !job.IsFrontFacing() {
		t.Fatal("expected front-facing job")
	}
	if len(enqueuer.payloads) != 0 {
		t.Fatalf("create must not enqueue, got %d payloads", len(enqueuer.payloads))
	}
}

func TestCreateCaptureRejectsInvalidBody(t *testing.T) {
	server, _ := newTestServer(t, &stubEnqueuer{}, stubStorage{})

	body, _ := json.Marshal(map[string]any{
		"source_type": "carrier_pigeon",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/captures", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStartCaptureEnqueues(t *testing.T) {
	sourcePath := filepath.Join(t.TempDir(), "frame.png")
	if err := os.WriteFile(sourcePath, []byte("stub"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	enqueuer := &stubEnqueuer{}
	server, jobStore := newTestServer(t, enqueuer, stubStorage{})

	job := domain.CaptureJob{
		ID:         "cap-1",
		Status:     domain.JobStatusCreated,
		SourceType: domain.SourceTypeLocalFile,
		Facing:     domain.FacingFront,
		Quality:    85,
		ObjectKey:  sourcePath,
	}
	if err := jobStore.Create(context.Background(), job); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/captures/cap-1/start", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(enqueuer.payloads) != 1 {
		t.Fatalf("expected 1 enqueued payload, got %d", len(enqueuer.payloads))
	}
	payload := enqueuer.payloads[0]
	if payload.JobID != "cap-1" || payload.Facing != domain.FacingFront || payload.Quality != 85 {
		t.Fatalf("unexpected payload %+v", payload)
	}

	updated, _, _ := jobStore.Get(context.Background(), "cap-1")
	if updated.Status != domain.JobStatusQueued {
		t.Fatalf("expected status %q, got %q", domain.JobStatusQueued, updated.Status)
	}
}

func TestStartCaptureUnknownJob(t *testing.T) {
	server, _ := newTestServer(t, &stubEnqueuer{}, stubStorage{})

	req := httptest.NewRequest(http.MethodPost, "/v1/captures/missing/start", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestStartCaptureMissingSource(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	server, jobStore := newTestServer(t, enqueuer, stubStorage{exists: false})

	job := domain.CaptureJob{
		ID:         "cap-2",
		Status:     domain.JobStatusCreated,
		SourceType: domain.SourceTypeS3Presigned,
		Facing:     domain.FacingBack,
		ObjectKey:  "uploads/cap-2/frame",
	}
	if err := jobStore.Create(context.Background(), job); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/captures/cap-2/start", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if len(enqueuer.payloads) != 0 {
		t.Fatal("missing source must not enqueue")
	}
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t, &stubEnqueuer{}, stubStorage{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
