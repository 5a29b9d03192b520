package staging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"papermill/internal/staging"
)

func TestStageCreatesWorkspace(t *testing.T) {
	dir := t.TempDir()
	ws, err := staging.Stage(dir, "report.docx", []byte("doc-bytes"))
	if err != nil {
		t.Fatalf("Stage returned error: %v", err)
	}
	t.Cleanup(func() { ws.Release(nil) })

	data, err := os.ReadFile(ws.InputPath)
	if err != nil {
		t.Fatalf("read staged input: %v", err)
	}
	if string(data) != "doc-bytes" {
		t.Fatalf("unexpected staged content %q", data)
	}
	if filepath.Base(ws.InputPath) != "report.docx" {
		t.Fatalf("expected input name preserved, got %q", ws.InputPath)
	}
	info, err := os.Stat(ws.OutputDir)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected output directory, got err=%v", err)
	}
	entries, err := os.ReadDir(ws.OutputDir)
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty output directory, got %d entries err=%v", len(entries), err)
	}
}

func TestStageNamesDoNotCollide(t *testing.T) {
	dir := t.TempDir()
	seen := map[string]struct{}{}
	for i := 0; i < 20; i++ {
		ws, err := staging.Stage(dir, "a.txt", nil)
		if err != nil {
			t.Fatalf("Stage returned error: %v", err)
		}
		if _, dup := seen[ws.Root]; dup {
			t.Fatalf("duplicate workspace root %s", ws.Root)
		}
		seen[ws.Root] = struct{}{}
	}
}

func TestStageSanitizesHostileName(t *testing.T) {
	dir := t.TempDir()
	ws, err := staging.Stage(dir, "../../etc/passwd", []byte("x"))
	if err != nil {
		t.Fatalf("Stage returned error: %v", err)
	}
	t.Cleanup(func() { ws.Release(nil) })
	if !strings.HasPrefix(ws.InputPath, ws.Root) {
		t.Fatalf("input path %q escaped workspace %q", ws.InputPath, ws.Root)
	}
	if filepath.Base(ws.InputPath) != "passwd" {
		t.Fatalf("expected sanitized base name, got %q", ws.InputPath)
	}
}

func TestReleaseRemovesEverything(t *testing.T) {
	dir := t.TempDir()
	ws, err := staging.Stage(dir, "a.txt", []byte("x"))
	if err != nil {
		t.Fatalf("Stage returned error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(ws.OutputDir, "a.pdf"), []byte("pdf"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	ws.Release(nil)

	if _, err := os.Stat(ws.Root); !os.IsNotExist(err) {
		t.Fatalf("expected workspace gone, stat err=%v", err)
	}
}

func TestReleaseOnEmptyWorkspaceIsSafe(t *testing.T) {
	var ws staging.Workspace
	ws.Release(nil) // must not panic
}

func TestCleanStaleRemovesOldWorkspaces(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "job-1-deadbeef")
	if err := os.Mkdir(old, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	fresh, err := staging.Stage(dir, "a.txt", nil)
	if err != nil {
		t.Fatalf("Stage returned error: %v", err)
	}
	unrelated := filepath.Join(dir, "keep-me")
	if err := os.Mkdir(unrelated, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.Chtimes(unrelated, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	result := staging.CleanStale(dir, 24*time.Hour, nil)
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected cleanup errors: %v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != old {
		t.Fatalf("expected only %s removed, got %v", old, result.Removed)
	}
	if _, err := os.Stat(fresh.Root); err != nil {
		t.Fatalf("fresh workspace should survive: %v", err)
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Fatalf("non-job directory should survive: %v", err)
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if err := staging.CheckFreeSpace(dir, 1); err != nil {
		t.Fatalf("expected tiny requirement to pass: %v", err)
	}
	if err := staging.CheckFreeSpace(dir, 1<<62); err == nil {
		t.Fatal("expected absurd requirement to fail")
	}
}
