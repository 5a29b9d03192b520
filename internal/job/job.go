package job

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Job is one conversion request and its lifecycle state. It is owned by the
// serialization queue until dispatched, by the supervisor while the converter
// runs, and by the notifier once the outcome exists.
type Job struct {
	ID          string
	InputRef    string
	InputName   string
	Input       []byte
	Deadline    time.Duration
	CallbackURL string
	CreatedAt   time.Time
}

// New constructs a job with a fresh identifier.
func New(inputRef string, input []byte, deadline time.Duration) *Job {
	return &Job{
		ID:        uuid.NewString(),
		InputRef:  inputRef,
		InputName: baseName(inputRef),
		Input:     input,
		Deadline:  deadline,
		CreatedAt: time.Now(),
	}
}

// Async reports whether the job's outcome is delivered via callback.
func (j *Job) Async() bool {
	return strings.TrimSpace(j.CallbackURL) != ""
}

func baseName(ref string) string {
	ref = strings.TrimRight(strings.TrimSpace(ref), "/")
	if idx := strings.IndexAny(ref, "?#"); idx >= 0 {
		ref = ref[:idx]
	}
	if idx := strings.LastIndex(ref, "/"); idx >= 0 {
		ref = ref[idx+1:]
	}
	if ref == "" {
		return "document"
	}
	return ref
}
