package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"papermill/internal/config"
)

const userAgent = "papermill/0.1.0"

// Service defines the operator notification surface. These are daemon-level
// events for humans, distinct from per-job callback delivery.
type Service interface {
	NotifyDaemonStarted(ctx context.Context, bind string) error
	NotifyJobFailed(ctx context.Context, jobID, kind, message string) error
	TestNotification(ctx context.Context) error
}

// NewService builds an operator notification service backed by ntfy when
// configured. When no ntfy topic is configured, a noop implementation is
// returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyDaemonStarted(ctx context.Context, bind string) error {
	data := payload{
		title:   "Papermill - Started",
		message: fmt.Sprintf("Conversion daemon listening on %s", strings.TrimSpace(bind)),
		tags:    []string{"papermill", "daemon", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, jobID, kind, message string) error {
	data := payload{
		title:    "Papermill - Conversion Failed",
		message:  fmt.Sprintf("Job %s failed (%s): %s", strings.TrimSpace(jobID), strings.TrimSpace(kind), strings.TrimSpace(message)),
		tags:     []string{"papermill", "job", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Papermill - Test",
		message:  "Notification system test",
		tags:     []string{"papermill", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyDaemonStarted(context.Context, string) error          { return nil }
func (noopService) NotifyJobFailed(context.Context, string, string, string) error { return nil }
func (noopService) TestNotification(context.Context) error                     { return nil }
