package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"papermill/internal/job"
	"papermill/internal/logging"
	"papermill/internal/services"
)

// DefaultCooldown is the settle time between sequential dispatches.
const DefaultCooldown = time.Second

// Runner executes one dispatched job and produces its terminal outcome.
// Implementations must not panic; the queue recovers anyway and synthesizes
// an internal failure so one defect never takes down the drain loop.
type Runner interface {
	Run(ctx context.Context, j *job.Job) job.Outcome
}

type entry struct {
	job    *job.Job
	result chan job.Outcome
}

// Queue serializes conversion work: jobs are accepted in arrival order and
// at most one executes at any instant. The pending list and busy flag are
// the only shared state and every transition holds the one mutex.
type Queue struct {
	runner   Runner
	logger   *slog.Logger
	cooldown time.Duration
	baseCtx  context.Context

	mu        sync.Mutex
	pending   []*entry
	busy      bool
	inFlight  string
	processed int64
}

// Status is a point-in-time snapshot of queue state.
type Status struct {
	Depth     int
	Busy      bool
	InFlight  string
	Processed int64
}

// New constructs a queue. The base context bounds in-flight supervision at
// daemon shutdown; cooldown <= 0 keeps the default.
func New(baseCtx context.Context, runner Runner, cooldown time.Duration, logger *slog.Logger) *Queue {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if cooldown < 0 {
		cooldown = DefaultCooldown
	}
	return &Queue{
		runner:   runner,
		logger:   logging.NewComponentLogger(logger, "queue"),
		cooldown: cooldown,
		baseCtx:  baseCtx,
	}
}

// Enqueue appends the job and blocks until its outcome exists. Each entry
// resolves exactly once; a failure of one job never blocks or cancels the
// rest. When ctx expires before the outcome arrives the job still runs to
// completion internally and the abandoned outcome is logged.
func (q *Queue) Enqueue(ctx context.Context, j *job.Job) job.Outcome {
	e := &entry{job: j, result: make(chan job.Outcome, 1)}

	q.mu.Lock()
	q.pending = append(q.pending, e)
	depth := len(q.pending)
	start := !q.busy
	if start {
		q.busy = true
	}
	q.mu.Unlock()

	q.logger.Info("job enqueued",
		logging.String(logging.FieldJobID, j.ID),
		logging.Int("depth", depth),
		logging.String(logging.FieldEventType, "job_enqueued"),
	)

	if start {
		go q.drain()
	}

	select {
	case outcome := <-e.result:
		return outcome
	case <-ctx.Done():
		q.logger.Warn("caller stopped waiting for outcome",
			logging.String(logging.FieldJobID, j.ID),
			logging.Error(ctx.Err()),
			logging.String(logging.FieldEventType, "outcome_abandoned"),
			logging.String(logging.FieldImpact, "job still runs to completion"),
		)
		return job.Failed(services.Wrap(services.ErrInternal, "queue", "wait", "caller context done before outcome", ctx.Err()), 0)
	}
}

// Snapshot reports current queue state.
func (q *Queue) Snapshot() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Status{
		Depth:     len(q.pending),
		Busy:      q.busy,
		InFlight:  q.inFlight,
		Processed: q.processed,
	}
}

// drain pops and runs pending entries one at a time. Exactly one drain
// goroutine exists while busy is set; it exits only after observing an empty
// pending list under the lock.
func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.busy = false
			q.mu.Unlock()
			return
		}
		e := q.pending[0]
		q.pending = q.pending[1:]
		q.inFlight = e.job.ID
		q.mu.Unlock()

		outcome := q.runJob(e.job)
		e.result <- outcome

		q.mu.Lock()
		q.inFlight = ""
		q.processed++
		q.mu.Unlock()

		q.logger.Info("job resolved",
			logging.String(logging.FieldJobID, e.job.ID),
			logging.Bool("success", outcome.Success),
			logging.Duration("duration", outcome.Duration),
			logging.String(logging.FieldEventType, "job_resolved"),
		)

		// Settle time between dispatches; lets the converter's OS resources
		// wind down before the next spawn.
		if q.cooldown > 0 {
			select {
			case <-q.baseCtx.Done():
			case <-time.After(q.cooldown):
			}
		}
	}
}

func (q *Queue) runJob(j *job.Job) (outcome job.Outcome) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("runner panicked",
				logging.String(logging.FieldJobID, j.ID),
				logging.Any("panic", r),
				logging.String(logging.FieldEventType, "runner_panic"),
				logging.String(logging.FieldErrorHint, "this is a papermill defect, please report it"),
			)
			outcome = job.Failed(
				services.Wrap(services.ErrInternal, "queue", "run", fmt.Sprintf("runner panic: %v", r), nil),
				time.Since(started),
			)
		}
	}()

	ctx := services.WithJobID(q.baseCtx, j.ID)
	return q.runner.Run(ctx, j)
}
