package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSendAddsSigningHeaders(t *testing.T) {
	var (
		gotSig string
		gotTS  string
		gotEvt string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(HeaderSignature)
		gotTS = r.Header.Get(HeaderTimestamp)
		gotEvt = r.Header.Get(HeaderEvent)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(Config{
		SigningSecret:  "test-secret",
		Timeout:        2 * time.Second,
		MaxAttempts:    1,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
	})

	err := client.Send(context.Background(), srv.URL, "capture.completed", map[string]any{"job_id": "job-1"})
	if err != nil {
		t.Fatalf("send returned error: %v", err)
	}

	if gotSig == "" {
		t.Fatal("expected signature header")
	}
	if gotTS == "" {
		t.Fatal("expected timestamp header")
	}
	if gotEvt != "capture.completed" {
		t.Fatalf("expected event header capture.completed, got %q", gotEvt)
	}
}

func TestSendRetriesUntilSuccess(t *testing.T) {
	var attempts atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(Config{
		SigningSecret:  "test-secret",
		Timeout:        2 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	})

	if err := client.Send(context.Background(), srv.URL, "capture.failed", map[string]string{"job_id": "job-2"}); err != nil {
		t.Fatalf("send returned error: %v", err)
	}
	if got := attempts.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}
