package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDownload marks failures fetching the input document. The caller may
	// retry; papermill never retries internally.
	ErrDownload = errors.New("download error")
	// ErrSpawn marks a converter binary that could not be started.
	ErrSpawn = errors.New("spawn error")
	// ErrProcessExit marks a converter that ran and exited non-zero.
	ErrProcessExit = errors.New("process exit error")
	// ErrTimeout marks a conversion that exceeded its deadline and was killed.
	ErrTimeout = errors.New("timeout")
	// ErrOutputMissing marks a converter that exited cleanly without producing
	// a recognizable artifact.
	ErrOutputMissing = errors.New("output missing")
	// ErrValidation marks unusable caller input rejected before any work runs.
	ErrValidation = errors.New("validation error")
	// ErrInternal marks queue or supervisor defects. Never expected.
	ErrInternal = errors.New("internal error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later outcome classification. The marker
// should be one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrInternal
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
