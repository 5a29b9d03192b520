package convert

import (
	"context"
	"log/slog"
	"os"
	"time"

	"papermill/internal/artifactcache"
	"papermill/internal/config"
	"papermill/internal/job"
	"papermill/internal/logging"
	"papermill/internal/notify"
	"papermill/internal/queue"
	"papermill/internal/services"
	"papermill/internal/services/libreoffice"
	"papermill/internal/staging"
)

// Fetcher retrieves an input document by reference.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Request is one conversion submission. Input bytes may be supplied inline;
// otherwise they are fetched from InputRef before the job is queued.
type Request struct {
	InputRef    string
	Input       []byte
	Deadline    time.Duration
	CallbackURL string
}

// Deps bundles the collaborators a Service needs. Cache may be nil when the
// artifact cache is disabled.
type Deps struct {
	Fetcher   Fetcher
	Converter libreoffice.Client
	Cache     *artifactcache.Store
	Webhook   *notify.Webhook
	Events    notify.Service
	Logger    *slog.Logger
}

// Service owns the conversion pipeline: fetch, cache lookup, serialized
// execution, artifact collection, and outcome delivery. It is the queue's
// runner; Run executes exactly one job at a time.
type Service struct {
	cfg     *config.Config
	baseCtx context.Context
	deps    Deps
	q       *queue.Queue
	logger  *slog.Logger
}

// NewService wires the pipeline together. baseCtx bounds background work at
// daemon shutdown.
func NewService(baseCtx context.Context, cfg *config.Config, deps Deps) *Service {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if deps.Events == nil {
		deps.Events = notify.NewService(cfg)
	}
	s := &Service{
		cfg:     cfg,
		baseCtx: baseCtx,
		deps:    deps,
		logger:  logging.NewComponentLogger(deps.Logger, "convert"),
	}
	cooldown := time.Duration(cfg.Queue.CooldownSeconds) * time.Second
	s.q = queue.New(baseCtx, s, cooldown, deps.Logger)
	return s
}

// QueueStatus reports the serialization queue's current state.
func (s *Service) QueueStatus() queue.Status {
	return s.q.Snapshot()
}

// Convert resolves a synchronous request, blocking until the outcome exists.
func (s *Service) Convert(ctx context.Context, req Request) (*job.Job, job.Outcome) {
	j := s.newJob(req)
	return j, s.resolve(ctx, j)
}

// ConvertAsync accepts a request whose outcome is delivered to its callback
// URL. It returns the job immediately; the caller's context never bounds the
// conversion itself.
func (s *Service) ConvertAsync(req Request) *job.Job {
	j := s.newJob(req)
	go func() {
		outcome := s.resolve(s.baseCtx, j)
		s.deps.Webhook.Deliver(s.baseCtx, j, outcome)
	}()
	return j
}

func (s *Service) newJob(req Request) *job.Job {
	deadline := req.Deadline
	if deadline <= 0 {
		deadline = time.Duration(s.cfg.Converter.DeadlineSeconds) * time.Second
	}
	if max := time.Duration(s.cfg.Converter.MaxDeadlineSeconds) * time.Second; deadline > max {
		deadline = max
	}
	j := job.New(req.InputRef, req.Input, deadline)
	j.CallbackURL = req.CallbackURL
	return j
}

// resolve carries a job from submission to terminal outcome: input fetch,
// cache lookup, queue dispatch, cache store, failure notification.
func (s *Service) resolve(ctx context.Context, j *job.Job) job.Outcome {
	started := time.Now()
	ctx = services.WithJobID(ctx, j.ID)

	if len(j.Input) == 0 {
		if j.InputRef == "" {
			return s.finish(ctx, j, job.Failed(
				services.Wrap(services.ErrValidation, "convert", "submit", "no input supplied", nil),
				time.Since(started)))
		}
		data, err := s.deps.Fetcher.Fetch(ctx, j.InputRef)
		if err != nil {
			return s.finish(ctx, j, job.Failed(err, time.Since(started)))
		}
		j.Input = data
	}

	format := s.cfg.Converter.OutputFormat
	var key string
	if s.deps.Cache != nil {
		key = artifactcache.Checksum(j.Input)
		artifact, hit, err := s.deps.Cache.Get(ctx, key, format)
		if err != nil {
			s.logger.Warn("cache lookup failed",
				logging.String(logging.FieldJobID, j.ID),
				logging.Error(err),
				logging.String(logging.FieldEventType, "cache_lookup_failed"),
			)
		} else if hit {
			s.logger.Info("cache hit, skipping conversion",
				logging.String(logging.FieldJobID, j.ID),
				logging.Int("size_bytes", len(artifact)),
				logging.String(logging.FieldEventType, "cache_hit"),
			)
			return s.finish(ctx, j, job.Completed(artifact, time.Since(started)))
		}
	}

	outcome := s.q.Enqueue(ctx, j)

	if outcome.Success && s.deps.Cache != nil {
		if err := s.deps.Cache.Put(ctx, key, format, outcome.Artifact); err != nil {
			s.logger.Warn("cache store failed",
				logging.String(logging.FieldJobID, j.ID),
				logging.Error(err),
				logging.String(logging.FieldEventType, "cache_store_failed"),
			)
		}
	}
	return s.finish(ctx, j, outcome)
}

// finish applies terminal side effects exactly once per job.
func (s *Service) finish(ctx context.Context, j *job.Job, outcome job.Outcome) job.Outcome {
	if !outcome.Success {
		if err := s.deps.Events.NotifyJobFailed(ctx, j.ID, string(outcome.Kind), outcome.Message); err != nil {
			s.logger.Warn("operator notification failed",
				logging.String(logging.FieldJobID, j.ID),
				logging.Error(err),
				logging.String(logging.FieldEventType, "ntfy_failed"),
			)
		}
	}
	return outcome
}

// Run executes one dispatched job: preflight the staging volume, stage the
// input, run the converter, collect the artifact. The workspace is released
// on every exit path.
func (s *Service) Run(ctx context.Context, j *job.Job) job.Outcome {
	started := time.Now()

	minFree := uint64(s.cfg.Staging.MinFreeMiB) * 1024 * 1024
	if err := staging.CheckFreeSpace(s.cfg.Paths.StagingDir, minFree); err != nil {
		return job.Failed(
			services.Wrap(services.ErrInternal, "convert", "preflight", "staging volume unavailable", err),
			time.Since(started))
	}

	ws, err := staging.Stage(s.cfg.Paths.StagingDir, j.InputName, j.Input)
	if err != nil {
		return job.Failed(
			services.Wrap(services.ErrInternal, "convert", "stage", "stage input", err),
			time.Since(started))
	}
	defer ws.Release(s.logger)

	artifactPath, err := s.deps.Converter.Convert(ctx, ws.InputPath, ws.OutputDir, j.Deadline)
	if err != nil {
		return job.Failed(err, time.Since(started))
	}

	artifact, err := os.ReadFile(artifactPath)
	if err != nil {
		return job.Failed(
			services.Wrap(services.ErrOutputMissing, "convert", "collect", "read artifact", err),
			time.Since(started))
	}
	return job.Completed(artifact, time.Since(started))
}

var _ queue.Runner = (*Service)(nil)
