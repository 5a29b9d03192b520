package notify_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"papermill/internal/config"
	"papermill/internal/job"
	"papermill/internal/notify"
)

func TestDeliverPostsCompletedPayload(t *testing.T) {
	var received map[string]any
	var secret string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret = r.Header.Get(notify.SecretHeader)
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("parse payload: %v", err)
		}
	}))
	defer server.Close()

	j := job.New("ref", nil, time.Minute)
	j.CallbackURL = server.URL
	outcome := job.Completed([]byte("pdf-bytes"), time.Second)

	hook := notify.NewWebhook(time.Second, "hunter2", nil)
	hook.Deliver(context.Background(), j, outcome)

	if received["jobId"] != j.ID {
		t.Fatalf("expected job id %s, got %v", j.ID, received["jobId"])
	}
	if received["status"] != "completed" {
		t.Fatalf("expected completed status, got %v", received["status"])
	}
	want := base64.StdEncoding.EncodeToString([]byte("pdf-bytes"))
	if received["artifactBase64"] != want {
		t.Fatalf("expected artifact base64 %q, got %v", want, received["artifactBase64"])
	}
	if _, hasErr := received["error"]; hasErr {
		t.Fatal("completed payload must not carry error field")
	}
	if secret != "hunter2" {
		t.Fatalf("expected secret header, got %q", secret)
	}
}

func TestDeliverPostsFailedPayloadWithoutSecret(t *testing.T) {
	var received map[string]any
	var sawSecret bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawSecret = r.Header[notify.SecretHeader]
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
	}))
	defer server.Close()

	j := job.New("ref", nil, time.Minute)
	j.CallbackURL = server.URL
	outcome := job.Outcome{Kind: job.KindTimeout, Message: "timeout: converter: run: deadline exceeded"}

	hook := notify.NewWebhook(time.Second, "", nil)
	hook.Deliver(context.Background(), j, outcome)

	if received["status"] != "failed" {
		t.Fatalf("expected failed status, got %v", received["status"])
	}
	if received["error"] != outcome.Message {
		t.Fatalf("expected error message, got %v", received["error"])
	}
	if _, hasArtifact := received["artifactBase64"]; hasArtifact {
		t.Fatal("failed payload must not carry artifact")
	}
	if sawSecret {
		t.Fatal("secret header must be absent when unconfigured")
	}
}

func TestDeliverSwallowsNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	j := job.New("ref", nil, time.Minute)
	j.CallbackURL = server.URL

	hook := notify.NewWebhook(time.Second, "", nil)
	hook.Deliver(context.Background(), j, job.Completed([]byte("x"), time.Second)) // must not panic or error
}

func TestDeliverSwallowsTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	j := job.New("ref", nil, time.Minute)
	j.CallbackURL = server.URL

	hook := notify.NewWebhook(time.Second, "", nil)
	hook.Deliver(context.Background(), j, job.Completed([]byte("x"), time.Second))
}

func TestDeliverSkipsWithoutCallback(t *testing.T) {
	j := job.New("ref", nil, time.Minute)
	hook := notify.NewWebhook(time.Second, "", nil)
	hook.Deliver(context.Background(), j, job.Completed([]byte("x"), time.Second))
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notify.NewService(&cfg)
	if err := svc.NotifyJobFailed(context.Background(), "job-1", "timeout_error", "deadline exceeded"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceSendsHeaders(t *testing.T) {
	var gotTitle, gotTags, gotPriority, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		gotTags = r.Header.Get("Tags")
		gotPriority = r.Header.Get("Priority")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notify.NewService(&cfg)

	if err := svc.NotifyJobFailed(context.Background(), "job-9", "process_exit_error", "exit code 77"); err != nil {
		t.Fatalf("NotifyJobFailed returned error: %v", err)
	}
	if gotTitle != "Papermill - Conversion Failed" {
		t.Fatalf("unexpected title %q", gotTitle)
	}
	if gotTags != "papermill,job,failed" {
		t.Fatalf("unexpected tags %q", gotTags)
	}
	if gotPriority != "high" {
		t.Fatalf("unexpected priority %q", gotPriority)
	}
	for _, part := range []string{"job-9", "process_exit_error", "exit code 77"} {
		if !strings.Contains(gotBody, part) {
			t.Fatalf("expected %q in body %q", part, gotBody)
		}
	}
}

func TestNtfyServiceReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notify.NewService(&cfg)

	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx ntfy response")
	}
}
