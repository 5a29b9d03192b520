package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"papermill/internal/fetch"
	"papermill/internal/services"
)

func TestFetchReturnsBytes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected user agent header")
		}
		w.Write([]byte("doc-bytes"))
	}))
	defer server.Close()

	client := fetch.NewClient(5*time.Second, 1<<20)
	data, err := client.Fetch(context.Background(), server.URL+"/report.docx")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if string(data) != "doc-bytes" {
		t.Fatalf("unexpected body %q", data)
	}
}

func TestFetchRejectsUnusableReferences(t *testing.T) {
	client := fetch.NewClient(time.Second, 1<<20)
	for _, ref := range []string{"", "   ", "ftp://example.com/a.doc", "file:///etc/passwd", "not a url at all\x7f://"} {
		if _, err := client.Fetch(context.Background(), ref); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("expected validation error for %q, got %v", ref, err)
		}
	}
}

func TestFetchMapsHTTPFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	client := fetch.NewClient(time.Second, 1<<20)
	if _, err := client.Fetch(context.Background(), server.URL); !errors.Is(err, services.ErrDownload) {
		t.Fatalf("expected download error for 404, got %v", err)
	}
}

func TestFetchMapsTransportFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // connection refused from here on

	client := fetch.NewClient(time.Second, 1<<20)
	if _, err := client.Fetch(context.Background(), server.URL); !errors.Is(err, services.ErrDownload) {
		t.Fatalf("expected download error for refused connection, got %v", err)
	}
}

func TestFetchEnforcesSizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	defer server.Close()

	client := fetch.NewClient(time.Second, 1024)
	if _, err := client.Fetch(context.Background(), server.URL); !errors.Is(err, services.ErrDownload) {
		t.Fatalf("expected download error for oversized input, got %v", err)
	}
}

func TestFetchRejectsEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer server.Close()

	client := fetch.NewClient(time.Second, 1<<20)
	if _, err := client.Fetch(context.Background(), server.URL); !errors.Is(err, services.ErrDownload) {
		t.Fatalf("expected download error for empty body, got %v", err)
	}
}
