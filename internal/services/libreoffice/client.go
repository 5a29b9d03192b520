package libreoffice

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"papermill/internal/logging"
	"papermill/internal/process"
	"papermill/internal/services"
)

// Runner abstracts the process supervisor so tests can fake converter runs.
type Runner interface {
	Run(ctx context.Context, spec process.Spec) (process.Result, error)
}

// Client defines document conversion behaviour.
type Client interface {
	Convert(ctx context.Context, inputPath, outputDir string, deadline time.Duration) (string, error)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithOutputFormat overrides the expected output format (extension without dot).
func WithOutputFormat(format string) Option {
	return func(c *CLI) {
		format = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
		if format != "" {
			c.format = format
		}
	}
}

// WithRunner overrides the process supervisor.
func WithRunner(r Runner) Option {
	return func(c *CLI) {
		if r != nil {
			c.runner = r
		}
	}
}

// WithLogger attaches a logger for anomaly reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(c *CLI) {
		c.logger = logging.NewComponentLogger(logger, "converter")
	}
}

// CLI wraps the LibreOffice command-line converter.
type CLI struct {
	binary string
	format string
	runner Runner
	logger *slog.Logger
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{
		binary: "soffice",
		format: "pdf",
		runner: process.NewSupervisor(nil),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Convert runs the converter against inputPath and returns the path of the
// produced artifact inside outputDir. Failures carry the sentinel taxonomy:
// spawn, timeout, process exit, or output missing.
func (c *CLI) Convert(ctx context.Context, inputPath, outputDir string, deadline time.Duration) (string, error) {
	if strings.TrimSpace(inputPath) == "" {
		return "", services.Wrap(services.ErrValidation, "converter", "convert", "input path required", nil)
	}
	if strings.TrimSpace(outputDir) == "" {
		return "", services.Wrap(services.ErrValidation, "converter", "convert", "output directory required", nil)
	}

	// Isolated profile per workspace so a wedged run cannot lock out the next.
	profileDir := filepath.Join(filepath.Dir(outputDir), ".profile")
	args := []string{
		"--headless",
		"--norestore",
		"-env:UserInstallation=file://" + profileDir,
		"--convert-to", c.format,
		"--outdir", outputDir,
		inputPath,
	}

	result, err := c.runner.Run(ctx, process.Spec{
		Path:     c.binary,
		Args:     args,
		Deadline: deadline,
	})
	if err != nil {
		return "", services.Wrap(services.ErrSpawn, "converter", "run", fmt.Sprintf("launch %s", c.binary), err)
	}

	if result.TimedOut {
		return "", services.Wrap(services.ErrTimeout, "converter", "run",
			fmt.Sprintf("deadline exceeded after %s (%s)%s", result.Duration.Round(time.Millisecond), result.Escalation, diagnosticTail(result)), nil)
	}
	if result.ExitCode != 0 {
		detail := fmt.Sprintf("exit code %d", result.ExitCode)
		if result.Signal != "" {
			detail = fmt.Sprintf("signal %s", result.Signal)
		}
		return "", services.Wrap(services.ErrProcessExit, "converter", "run", detail+diagnosticTail(result), nil)
	}

	return c.findArtifact(outputDir, result)
}

// findArtifact scans outputDir for the produced document. Multiple matches
// are resolved by picking the lexicographically first and logging the
// anomaly; enumeration order is never trusted.
func (c *CLI) findArtifact(outputDir string, result process.Result) (string, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return "", services.Wrap(services.ErrOutputMissing, "converter", "scan", "read output directory", err)
	}

	wantExt := "." + c.format
	var matches []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), wantExt) {
			matches = append(matches, entry.Name())
		}
	}

	switch len(matches) {
	case 0:
		return "", services.Wrap(services.ErrOutputMissing, "converter", "scan",
			fmt.Sprintf("converter exited 0 but produced no %s file%s", wantExt, diagnosticTail(result)), nil)
	case 1:
		return filepath.Join(outputDir, matches[0]), nil
	default:
		sort.Strings(matches)
		c.logger.Warn("converter produced multiple artifacts, selecting first",
			logging.Int("count", len(matches)),
			logging.String("selected", matches[0]),
			logging.String(logging.FieldEventType, "multiple_artifacts"),
		)
		return filepath.Join(outputDir, matches[0]), nil
	}
}

// diagnosticTail appends a trimmed stderr capture to failure messages.
func diagnosticTail(result process.Result) string {
	tail := strings.TrimSpace(result.Stderr)
	if tail == "" {
		tail = strings.TrimSpace(result.Stdout)
	}
	if tail == "" {
		return ""
	}
	const limit = 512
	if len(tail) > limit {
		tail = tail[len(tail)-limit:]
	}
	return ": " + tail
}

var _ Client = (*CLI)(nil)
