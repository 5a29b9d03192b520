package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"papermill/internal/job"
	"papermill/internal/logging"
)

// SecretHeader carries the optional shared secret on callback requests.
// Absence of the secret never prevents delivery.
const SecretHeader = "X-Papermill-Secret"

// Webhook delivers job outcomes to caller-supplied callback addresses.
// Delivery is best-effort, at most one attempt: transport errors and non-2xx
// responses are logged and never alter the job's recorded outcome.
type Webhook struct {
	client *http.Client
	secret string
	logger *slog.Logger
}

// NewWebhook constructs a callback notifier.
func NewWebhook(timeout time.Duration, secret string, logger *slog.Logger) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		client: &http.Client{Timeout: timeout},
		secret: strings.TrimSpace(secret),
		logger: logging.NewComponentLogger(logger, "notify"),
	}
}

type callbackPayload struct {
	JobID          string `json:"jobId"`
	Status         string `json:"status"`
	ArtifactBase64 string `json:"artifactBase64,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Deliver posts the outcome to the job's callback URL. It never blocks job
// completion on notification success and never returns an error.
func (w *Webhook) Deliver(ctx context.Context, j *job.Job, outcome job.Outcome) {
	destination := strings.TrimSpace(j.CallbackURL)
	if destination == "" {
		return
	}

	payload := callbackPayload{JobID: j.ID}
	if outcome.Success {
		payload.Status = "completed"
		payload.ArtifactBase64 = base64.StdEncoding.EncodeToString(outcome.Artifact)
	} else {
		payload.Status = "failed"
		payload.Error = outcome.Message
	}

	body, err := json.Marshal(payload)
	if err != nil {
		w.logger.Error("encode callback payload",
			logging.String(logging.FieldJobID, j.ID),
			logging.Error(err),
			logging.String(logging.FieldEventType, "callback_encode_failed"),
		)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewReader(body))
	if err != nil {
		w.logDeliveryFailure(j.ID, destination, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if w.secret != "" {
		req.Header.Set(SecretHeader, w.secret)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		w.logDeliveryFailure(j.ID, destination, err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		w.logger.Warn("callback rejected",
			logging.String(logging.FieldJobID, j.ID),
			logging.String("destination", destination),
			logging.Int("status", resp.StatusCode),
			logging.String(logging.FieldEventType, "callback_rejected"),
			logging.String(logging.FieldImpact, "caller never learns the outcome"),
		)
		return
	}

	w.logger.Info("callback delivered",
		logging.String(logging.FieldJobID, j.ID),
		logging.String("status", payload.Status),
		logging.String(logging.FieldEventType, "callback_delivered"),
	)
}

func (w *Webhook) logDeliveryFailure(jobID, destination string, err error) {
	w.logger.Warn("callback delivery failed",
		logging.String(logging.FieldJobID, jobID),
		logging.String("destination", destination),
		logging.Error(err),
		logging.String(logging.FieldEventType, "callback_failed"),
		logging.String(logging.FieldErrorHint, "verify the callback endpoint is reachable"),
		logging.String(logging.FieldImpact, "caller never learns the outcome"),
	)
}
