package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"papermill/internal/services"
)

func TestNewWritesJSONToFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "papermill.log")

	logger, err := New(Options{Level: "info", Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("conversion accepted", String(FieldJobID, "abc"))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	if entry["msg"] != "conversion accepted" {
		t.Fatalf("unexpected msg %v", entry["msg"])
	}
	if entry["level"] != "info" {
		t.Fatalf("unexpected level %v", entry["level"])
	}
	if entry[FieldJobID] != "abc" {
		t.Fatalf("unexpected job id %v", entry[FieldJobID])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestConsoleHandlerLiftsComponent(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	logger.Info("queue drained", String(FieldComponent, "queue"), Int("depth", 0))

	line := buf.String()
	if !strings.Contains(line, " queue: queue drained") {
		t.Fatalf("expected component prefix in %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should not repeat as attr in %q", line)
	}
	if !strings.Contains(line, "depth=0") {
		t.Fatalf("expected depth attr in %q", line)
	}
}

func TestWithContextAddsJobFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	ctx := services.WithJobID(context.Background(), "job-1")
	ctx = services.WithRequestID(ctx, "req-9")
	WithContext(ctx, logger).Info("staged input")

	line := buf.String()
	if !strings.Contains(line, "job_id=job-1") {
		t.Fatalf("expected job_id field in %q", line)
	}
	if !strings.Contains(line, "correlation_id=req-9") {
		t.Fatalf("expected correlation_id field in %q", line)
	}
}
