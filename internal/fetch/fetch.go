package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"papermill/internal/services"
)

const userAgent = "papermill/0.1.0"

// Client retrieves input documents over HTTP. Papermill never retries a
// failed fetch; download failures are recoverable by caller retry.
type Client struct {
	httpClient *http.Client
	maxBytes   int64
}

// NewClient constructs a fetch client with the given request timeout and
// input size cap.
func NewClient(timeout time.Duration, maxBytes int64) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		maxBytes:   maxBytes,
	}
}

// Fetch downloads the document at ref. Unusable references fail fast with a
// validation error before any network traffic.
func (c *Client) Fetch(ctx context.Context, ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, services.Wrap(services.ErrValidation, "fetch", "validate", "input reference required", nil)
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "fetch", "validate", fmt.Sprintf("unparseable reference %q", ref), err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, services.Wrap(services.ErrValidation, "fetch", "validate", fmt.Sprintf("unsupported scheme %q", parsed.Scheme), nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrDownload, "fetch", "request", "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrDownload, "fetch", "request", fmt.Sprintf("get %s", ref), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrDownload, "fetch", "request", fmt.Sprintf("%s returned %d", ref, resp.StatusCode), nil)
	}

	limit := c.maxBytes
	if limit <= 0 {
		limit = 50 << 20
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, services.Wrap(services.ErrDownload, "fetch", "read", fmt.Sprintf("read %s", ref), err)
	}
	if int64(len(data)) > limit {
		return nil, services.Wrap(services.ErrDownload, "fetch", "read", fmt.Sprintf("input exceeds %d byte limit", limit), nil)
	}
	if len(data) == 0 {
		return nil, services.Wrap(services.ErrDownload, "fetch", "read", fmt.Sprintf("%s returned an empty document", ref), nil)
	}
	return data, nil
}
