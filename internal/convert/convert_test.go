package convert_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"papermill/internal/artifactcache"
	"papermill/internal/config"
	"papermill/internal/convert"
	"papermill/internal/job"
	"papermill/internal/notify"
	"papermill/internal/services"
)

type fakeConverter struct {
	calls        int32
	lastDeadline time.Duration
	artifact     []byte
	err          error
}

func (f *fakeConverter) Convert(_ context.Context, _ string, outputDir string, deadline time.Duration) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	f.lastDeadline = deadline
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(outputDir, "out.pdf")
	if err := os.WriteFile(path, f.artifact, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type fakeFetcher struct {
	docs  map[string][]byte
	err   error
	calls int32
}

func (f *fakeFetcher) Fetch(_ context.Context, ref string) ([]byte, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.docs[ref], nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.StagingDir = t.TempDir()
	cfg.Queue.CooldownSeconds = 0
	cfg.Staging.MinFreeMiB = 0
	cfg.Notifications.NtfyTopic = ""
	return &cfg
}

func newService(t *testing.T, cfg *config.Config, deps convert.Deps) *convert.Service {
	t.Helper()
	if deps.Webhook == nil {
		deps.Webhook = notify.NewWebhook(time.Second, "", nil)
	}
	return convert.NewService(context.Background(), cfg, deps)
}

func TestConvertInlineInputSucceedsAndCleansStaging(t *testing.T) {
	cfg := testConfig(t)
	conv := &fakeConverter{artifact: []byte("pdf-bytes")}
	svc := newService(t, cfg, convert.Deps{Converter: conv, Fetcher: &fakeFetcher{}})

	j, outcome := svc.Convert(context.Background(), convert.Request{
		InputRef: "memo.docx",
		Input:    []byte("doc-bytes"),
	})
	if !outcome.Success {
		t.Fatalf("expected success, got %s: %s", outcome.Kind, outcome.Message)
	}
	if string(outcome.Artifact) != "pdf-bytes" {
		t.Fatalf("unexpected artifact %q", outcome.Artifact)
	}
	if outcome.SizeBytes != int64(len("pdf-bytes")) {
		t.Fatalf("unexpected size %d", outcome.SizeBytes)
	}
	if j.InputName != "memo.docx" {
		t.Fatalf("unexpected input name %q", j.InputName)
	}

	entries, err := os.ReadDir(cfg.Paths.StagingDir)
	if err != nil {
		t.Fatalf("read staging dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "job-") {
			t.Fatalf("staging workspace %s survived the job", entry.Name())
		}
	}
}

func TestConvertFetchesWhenInputAbsent(t *testing.T) {
	cfg := testConfig(t)
	fetcher := &fakeFetcher{docs: map[string][]byte{"https://docs.example/memo.docx": []byte("remote")}}
	conv := &fakeConverter{artifact: []byte("pdf")}
	svc := newService(t, cfg, convert.Deps{Converter: conv, Fetcher: fetcher})

	_, outcome := svc.Convert(context.Background(), convert.Request{InputRef: "https://docs.example/memo.docx"})
	if !outcome.Success {
		t.Fatalf("expected success, got %s: %s", outcome.Kind, outcome.Message)
	}
	if atomic.LoadInt32(&fetcher.calls) != 1 {
		t.Fatalf("expected one fetch, got %d", fetcher.calls)
	}
}

func TestConvertClassifiesDownloadFailure(t *testing.T) {
	cfg := testConfig(t)
	fetcher := &fakeFetcher{err: services.Wrap(services.ErrDownload, "fetch", "get", "status 404", nil)}
	conv := &fakeConverter{artifact: []byte("pdf")}
	svc := newService(t, cfg, convert.Deps{Converter: conv, Fetcher: fetcher})

	_, outcome := svc.Convert(context.Background(), convert.Request{InputRef: "https://docs.example/gone.docx"})
	if outcome.Success {
		t.Fatal("expected failure")
	}
	if outcome.Kind != job.KindDownload {
		t.Fatalf("expected download_error, got %s", outcome.Kind)
	}
	if atomic.LoadInt32(&conv.calls) != 0 {
		t.Fatal("converter must not run when the download fails")
	}
}

func TestConvertRejectsEmptySubmission(t *testing.T) {
	cfg := testConfig(t)
	svc := newService(t, cfg, convert.Deps{Converter: &fakeConverter{}, Fetcher: &fakeFetcher{}})

	_, outcome := svc.Convert(context.Background(), convert.Request{})
	if outcome.Kind != job.KindValidation {
		t.Fatalf("expected validation_error, got %s", outcome.Kind)
	}
}

func TestConverterFailurePassesThroughAndReleasesWorkspace(t *testing.T) {
	cfg := testConfig(t)
	conv := &fakeConverter{err: services.Wrap(services.ErrTimeout, "converter", "run", "deadline exceeded", nil)}
	svc := newService(t, cfg, convert.Deps{Converter: conv, Fetcher: &fakeFetcher{}})

	_, outcome := svc.Convert(context.Background(), convert.Request{InputRef: "memo.docx", Input: []byte("x")})
	if outcome.Kind != job.KindTimeout {
		t.Fatalf("expected timeout_error, got %s", outcome.Kind)
	}

	entries, _ := os.ReadDir(cfg.Paths.StagingDir)
	if len(entries) != 0 {
		t.Fatalf("expected empty staging dir after failure, found %d entries", len(entries))
	}
}

func TestCacheHitSkipsConversion(t *testing.T) {
	cfg := testConfig(t)
	cache, err := artifactcache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer cache.Close()

	conv := &fakeConverter{artifact: []byte("pdf")}
	svc := newService(t, cfg, convert.Deps{Converter: conv, Fetcher: &fakeFetcher{}, Cache: cache})

	input := []byte("same document")
	_, first := svc.Convert(context.Background(), convert.Request{InputRef: "a.docx", Input: input})
	_, second := svc.Convert(context.Background(), convert.Request{InputRef: "b.docx", Input: input})

	if !first.Success || !second.Success {
		t.Fatalf("expected both conversions to succeed: %v / %v", first.Message, second.Message)
	}
	if string(second.Artifact) != "pdf" {
		t.Fatalf("cache returned wrong artifact %q", second.Artifact)
	}
	if got := atomic.LoadInt32(&conv.calls); got != 1 {
		t.Fatalf("expected exactly one converter run, got %d", got)
	}
}

func TestDeadlineClampedToConfiguredBounds(t *testing.T) {
	cfg := testConfig(t)
	conv := &fakeConverter{artifact: []byte("pdf")}
	svc := newService(t, cfg, convert.Deps{Converter: conv, Fetcher: &fakeFetcher{}})

	svc.Convert(context.Background(), convert.Request{InputRef: "a.docx", Input: []byte("x")})
	if want := time.Duration(cfg.Converter.DeadlineSeconds) * time.Second; conv.lastDeadline != want {
		t.Fatalf("expected default deadline %s, got %s", want, conv.lastDeadline)
	}

	svc.Convert(context.Background(), convert.Request{InputRef: "a.docx", Input: []byte("x"), Deadline: 10 * time.Hour})
	if want := time.Duration(cfg.Converter.MaxDeadlineSeconds) * time.Second; conv.lastDeadline != want {
		t.Fatalf("expected clamped deadline %s, got %s", want, conv.lastDeadline)
	}
}

func TestConvertAsyncDeliversCallback(t *testing.T) {
	cfg := testConfig(t)
	conv := &fakeConverter{artifact: []byte("pdf-bytes")}

	received := make(chan map[string]any, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		_ = json.Unmarshal(body, &payload)
		received <- payload
	}))
	defer server.Close()

	svc := newService(t, cfg, convert.Deps{Converter: conv, Fetcher: &fakeFetcher{}})
	j := svc.ConvertAsync(convert.Request{
		InputRef:    "memo.docx",
		Input:       []byte("doc"),
		CallbackURL: server.URL,
	})
	if j.ID == "" {
		t.Fatal("async submission must return a job id immediately")
	}

	select {
	case payload := <-received:
		if payload["jobId"] != j.ID {
			t.Fatalf("callback for wrong job: %v", payload["jobId"])
		}
		if payload["status"] != "completed" {
			t.Fatalf("expected completed callback, got %v", payload["status"])
		}
		want := base64.StdEncoding.EncodeToString([]byte("pdf-bytes"))
		if payload["artifactBase64"] != want {
			t.Fatal("callback artifact mismatch")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("callback never arrived")
	}
}

func TestQueueStatusCountsProcessedJobs(t *testing.T) {
	cfg := testConfig(t)
	conv := &fakeConverter{artifact: []byte("pdf")}
	svc := newService(t, cfg, convert.Deps{Converter: conv, Fetcher: &fakeFetcher{}})

	for i := 0; i < 3; i++ {
		svc.Convert(context.Background(), convert.Request{InputRef: "a.docx", Input: []byte{byte(i)}})
	}
	status := svc.QueueStatus()
	if status.Processed != 3 {
		t.Fatalf("expected 3 processed, got %d", status.Processed)
	}
	if status.Depth != 0 || status.Busy {
		t.Fatalf("expected idle queue, got %+v", status)
	}
}
