package staging

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"papermill/internal/logging"
)

// Workspace holds the staged paths for one conversion job. It lives from
// Stage until Release and never survives its owning job.
type Workspace struct {
	Root      string
	InputPath string
	OutputDir string
}

// Stage allocates a collision-resistant job directory under stagingDir,
// writes the input bytes into it, and creates the paired output directory.
// Names combine a monotonic timestamp with a random suffix so concurrent
// server instances sharing the temp namespace never collide.
func Stage(stagingDir, inputName string, data []byte) (Workspace, error) {
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return Workspace{}, fmt.Errorf("staging directory not configured")
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return Workspace{}, fmt.Errorf("ensure staging directory: %w", err)
	}

	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return Workspace{}, fmt.Errorf("generate staging suffix: %w", err)
	}
	root := filepath.Join(stagingDir, fmt.Sprintf("job-%d-%s", time.Now().UnixNano(), hex.EncodeToString(suffix)))

	if err := os.Mkdir(root, 0o755); err != nil {
		return Workspace{}, fmt.Errorf("create job directory: %w", err)
	}

	ws := Workspace{
		Root:      root,
		InputPath: filepath.Join(root, sanitizeName(inputName)),
		OutputDir: filepath.Join(root, "out"),
	}

	if err := os.WriteFile(ws.InputPath, data, 0o644); err != nil {
		_ = os.RemoveAll(root)
		return Workspace{}, fmt.Errorf("write staged input: %w", err)
	}
	if err := os.Mkdir(ws.OutputDir, 0o755); err != nil {
		_ = os.RemoveAll(root)
		return Workspace{}, fmt.Errorf("create output directory: %w", err)
	}
	return ws, nil
}

// Release removes the job directory recursively. Deletion errors are logged
// and swallowed; callers defer this on every exit path.
func (w Workspace) Release(logger *slog.Logger) {
	if strings.TrimSpace(w.Root) == "" {
		return
	}
	if err := os.RemoveAll(w.Root); err != nil {
		if logger != nil {
			logger.Warn("failed to release staging workspace",
				logging.String("path", w.Root),
				logging.Error(err),
				logging.String(logging.FieldEventType, "staging_release_failed"),
				logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
		}
	}
}

// CheckFreeSpace verifies the staging volume has at least minBytes available
// and is writable before any input is staged.
func CheckFreeSpace(dir string, minBytes uint64) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure staging directory: %w", err)
	}
	if err := unix.Access(dir, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("staging directory not writable: %w", err)
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return fmt.Errorf("statfs staging directory: %w", err)
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minBytes {
		return fmt.Errorf("insufficient staging space: %d bytes free, need %d", free, minBytes)
	}
	return nil
}

// sanitizeName strips path separators from a caller-derived file name so a
// hostile inputRef cannot escape the job directory.
func sanitizeName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "document"
	}
	return name
}
