package apiclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to a running papermilld over its HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New constructs a client for the daemon at baseURL. A zero timeout means
// the caller accepts waiting out the full conversion deadline.
func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: timeout},
	}
}

// SubmitRequest mirrors the daemon's conversion payload.
type SubmitRequest struct {
	InputRef    string `json:"inputRef,omitempty"`
	InputBase64 string `json:"inputBase64,omitempty"`
	DeadlineMs  int64  `json:"deadlineMs,omitempty"`
	Callback    string `json:"callback,omitempty"`
}

// SubmitResult is the terminal result of a submission. Accepted marks an
// asynchronous job that resolves via callback; Artifact is only present for
// synchronous successes.
type SubmitResult struct {
	Accepted   bool
	JobID      string
	Artifact   []byte
	SizeBytes  int64
	DurationMs int64
}

// Status is the daemon's queue snapshot.
type Status struct {
	QueueDepth int    `json:"queueDepth"`
	Busy       bool   `json:"busy"`
	InFlight   string `json:"inFlight"`
	Processed  int64  `json:"processed"`
}

// APIError is a structured failure returned by the daemon.
type APIError struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *APIError) Error() string {
	switch {
	case e.Kind != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Message != "":
		return e.Message
	default:
		return fmt.Sprintf("daemon returned status %d", e.StatusCode)
	}
}

// Submit posts a conversion request and decodes the outcome.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	resp, err := c.post(ctx, "/api/v1/convert", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var decoded struct {
			JobID          string `json:"jobId"`
			ArtifactBase64 string `json:"artifactBase64"`
			SizeBytes      int64  `json:"sizeBytes"`
			DurationMs     int64  `json:"durationMs"`
		}
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		artifact, err := base64.StdEncoding.DecodeString(decoded.ArtifactBase64)
		if err != nil {
			return nil, fmt.Errorf("decode artifact: %w", err)
		}
		return &SubmitResult{
			JobID:      decoded.JobID,
			Artifact:   artifact,
			SizeBytes:  decoded.SizeBytes,
			DurationMs: decoded.DurationMs,
		}, nil
	case http.StatusAccepted:
		var decoded struct {
			JobID string `json:"jobId"`
		}
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return &SubmitResult{Accepted: true, JobID: decoded.JobID}, nil
	default:
		return nil, decodeAPIError(resp.StatusCode, payload)
	}
}

// Status fetches the daemon's queue snapshot.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	resp, err := c.get(ctx, "/api/v1/status")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp.StatusCode, payload)
	}
	var status Status
	if err := json.Unmarshal(payload, &status); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &status, nil
}

// Health probes the daemon's liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.get(ctx, "/healthz")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, dialError(err, c.baseURL)
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, dialError(err, c.baseURL)
	}
	return resp, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func decodeAPIError(status int, payload []byte) error {
	var decoded struct {
		Kind    string `json:"kind"`
		Message string `json:"error"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return &APIError{StatusCode: status}
	}
	return &APIError{StatusCode: status, Kind: decoded.Kind, Message: decoded.Message}
}

func dialError(err error, baseURL string) error {
	return fmt.Errorf("connect to daemon at %s: %w (is papermilld running?)", baseURL, err)
}
