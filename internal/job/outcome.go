package job

import (
	"errors"
	"time"

	"papermill/internal/services"
)

// FailureKind classifies a failed conversion for callers and callbacks.
type FailureKind string

const (
	KindDownload      FailureKind = "download_error"
	KindSpawn         FailureKind = "spawn_error"
	KindProcessExit   FailureKind = "process_exit_error"
	KindTimeout       FailureKind = "timeout_error"
	KindOutputMissing FailureKind = "output_missing_error"
	KindValidation    FailureKind = "validation_error"
	KindInternal      FailureKind = "internal_error"
)

// Outcome is the terminal result of a job. Exactly one is produced per job
// and it is immutable once constructed.
type Outcome struct {
	Success   bool
	Artifact  []byte
	SizeBytes int64
	Kind      FailureKind
	Message   string
	Duration  time.Duration
}

// Completed builds a success outcome carrying the converted artifact.
func Completed(artifact []byte, duration time.Duration) Outcome {
	return Outcome{
		Success:   true,
		Artifact:  artifact,
		SizeBytes: int64(len(artifact)),
		Duration:  duration,
	}
}

// Failed builds a failure outcome, classifying err via the services
// sentinel taxonomy.
func Failed(err error, duration time.Duration) Outcome {
	message := "unknown failure"
	if err != nil {
		message = err.Error()
	}
	return Outcome{
		Kind:     Classify(err),
		Message:  message,
		Duration: duration,
	}
}

// Classify maps a tagged error to its failure kind. Untagged errors are
// internal defects.
func Classify(err error) FailureKind {
	switch {
	case errors.Is(err, services.ErrDownload):
		return KindDownload
	case errors.Is(err, services.ErrSpawn):
		return KindSpawn
	case errors.Is(err, services.ErrProcessExit):
		return KindProcessExit
	case errors.Is(err, services.ErrTimeout):
		return KindTimeout
	case errors.Is(err, services.ErrOutputMissing):
		return KindOutputMissing
	case errors.Is(err, services.ErrValidation):
		return KindValidation
	default:
		return KindInternal
	}
}
