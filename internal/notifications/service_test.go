package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"roadeye/internal/config"
	"roadeye/internal/jobs"
	"roadeye/internal/notifications"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newNtfyServer(t *testing.T) (*httptest.Server, func() []captured) {
	t.Helper()
	var mu sync.Mutex
	var got []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		got = append(got, captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		return append([]captured(nil), got...)
	}
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyError(context.Background(), errors.New("boom"), "upload"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).TestNotification(context.Background()); err != nil {
		t.Fatalf("expected nil config to yield noop, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	srv, requests := newNtfyServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	svc := notifications.NewService(&cfg)
	ctx := context.Background()

	if err := svc.NotifyBatchStarted(ctx, 1, []string{"mileposts"}); err != nil {
		t.Fatalf("NotifyBatchStarted: %v", err)
	}
	summary := jobs.Summary{Total: 3, Done: 2, Failed: 1}
	if err := svc.NotifyBatchCompleted(ctx, summary, 95*time.Second); err != nil {
		t.Fatalf("NotifyBatchCompleted: %v", err)
	}
	rec := jobs.Record{FileName: "drive.mp4", Status: jobs.StatusTimedOut, RemoteJobID: "job-1", Message: "no final status after 12h"}
	if err := svc.NotifyJobFailed(ctx, rec); err != nil {
		t.Fatalf("NotifyJobFailed: %v", err)
	}

	got := requests()
	if len(got) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(got))
	}
	if got[0].title != "roadeye - Batch Started" || got[0].body != "Submitting 1 file\nAssets: mileposts" {
		t.Fatalf("unexpected start notification %+v", got[0])
	}
	if got[1].title != "roadeye - Batch Complete (with errors)" || !strings.Contains(got[1].body, "2 done, 1 failed, 0 timed out in 1m35s") {
		t.Fatalf("unexpected completion notification %+v", got[1])
	}
	if got[2].title != "roadeye - Job Timed out" || got[2].priority != "high" || got[2].tags != "roadeye,job,timed_out" {
		t.Fatalf("unexpected failure notification %+v", got[2])
	}
	if !strings.Contains(got[2].body, "Job: job-1") {
		t.Fatalf("expected job id in body, got %q", got[2].body)
	}
}

func TestNtfyServiceHonoursToggles(t *testing.T) {
	srv, requests := newNtfyServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	cfg.Notifications.Batch = false
	cfg.Notifications.Errors = false
	svc := notifications.NewService(&cfg)
	ctx := context.Background()

	_ = svc.NotifyBatchStarted(ctx, 2, nil)
	_ = svc.NotifyBatchCompleted(ctx, jobs.Summary{}, time.Second)
	_ = svc.NotifyJobFailed(ctx, jobs.Record{Status: jobs.StatusError})
	_ = svc.NotifyError(ctx, errors.New("boom"), "")
	if err := svc.TestNotification(ctx); err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	got := requests()
	if len(got) != 1 || got[0].title != "roadeye - Test" || got[0].priority != "low" {
		t.Fatalf("expected only the test notification, got %+v", got)
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic not found", http.StatusNotFound)
	}))
	defer srv.Close()
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	err := notifications.NewService(&cfg).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected 404 error, got %v", err)
	}
}
