package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"papermill/internal/logging"
)

// Escalation tracks how far the kill sequence progressed for one child.
type Escalation int

const (
	EscalationNone Escalation = iota
	EscalationSoftKillSent
	EscalationHardKillSent
)

func (e Escalation) String() string {
	switch e {
	case EscalationSoftKillSent:
		return "soft_kill_sent"
	case EscalationHardKillSent:
		return "hard_kill_sent"
	default:
		return "none"
	}
}

// DefaultDeadline bounds converter runtime when the caller supplies none.
const DefaultDeadline = 60 * time.Second

// DefaultGracePeriod is the fixed window between SIGTERM and SIGKILL.
const DefaultGracePeriod = 5 * time.Second

// Spec describes one supervised child process. Args is always passed as a
// vector; nothing is shell-interpreted.
type Spec struct {
	Path        string
	Args        []string
	Dir         string
	Deadline    time.Duration
	GracePeriod time.Duration
}

// Result is the structured outcome of one supervised run.
type Result struct {
	ExitCode   int
	Signal     string
	TimedOut   bool
	Escalation Escalation
	Stdout     string
	Stderr     string
	Duration   time.Duration
}

// handle holds supervisor-private state for one spawned child. It lives from
// Start until the process is confirmed gone.
type handle struct {
	pid       int
	stdout    *boundedBuffer
	stderr    *boundedBuffer
	startedAt time.Time
	state     Escalation
}

// Supervisor spawns child processes and enforces wall-clock deadlines with a
// graceful-then-forceful kill sequence.
type Supervisor struct {
	logger *slog.Logger
}

// NewSupervisor constructs a supervisor. A nil logger is replaced with a noop.
func NewSupervisor(logger *slog.Logger) *Supervisor {
	return &Supervisor{logger: logging.NewComponentLogger(logger, "supervisor")}
}

// Run spawns the child described by spec and blocks until it exits or the
// kill escalation completes. A non-zero exit or a timeout is reported in the
// Result, not as an error; the returned error covers spawn failures only.
func (s *Supervisor) Run(ctx context.Context, spec Spec) (Result, error) {
	deadline := spec.Deadline
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	grace := spec.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	cmd := exec.Command(spec.Path, spec.Args...)
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	h := &handle{
		stdout: newBoundedBuffer(captureLimit),
		stderr: newBoundedBuffer(captureLimit),
	}
	cmd.Stdout = h.stdout
	cmd.Stderr = h.stderr
	// Own process group so the kill sequence reaches converter children too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("start %s: %w", spec.Path, err)
	}
	h.pid = cmd.Process.Pid
	h.startedAt = time.Now()

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	deadlineTimer := time.NewTimer(deadline)
	defer deadlineTimer.Stop()

	// The grace channel stays nil until the soft kill fires, so the select
	// below cannot take the hard-kill branch early.
	var graceTimer *time.Timer
	var graceCh <-chan time.Time
	defer func() {
		if graceTimer != nil {
			graceTimer.Stop()
		}
	}()

	ctxDone := ctx.Done()

	for {
		select {
		case waitErr := <-waitCh:
			return s.collect(h, waitErr), nil
		case <-deadlineTimer.C:
			if h.state != EscalationNone {
				continue
			}
			s.softKill(h, deadline)
			graceTimer = time.NewTimer(grace)
			graceCh = graceTimer.C
		case <-ctxDone:
			// Cancellation follows the same escalation path as the deadline.
			ctxDone = nil
			if h.state != EscalationNone {
				continue
			}
			s.softKill(h, time.Since(h.startedAt))
			graceTimer = time.NewTimer(grace)
			graceCh = graceTimer.C
		case <-graceCh:
			graceCh = nil
			s.hardKill(h)
		}
	}
}

func (s *Supervisor) softKill(h *handle, elapsed time.Duration) {
	h.state = EscalationSoftKillSent
	s.logger.Warn("deadline exceeded, sending SIGTERM",
		logging.Int("pid", h.pid),
		logging.Duration("elapsed", elapsed),
		logging.String(logging.FieldEventType, "soft_kill_sent"),
	)
	_ = unix.Kill(-h.pid, unix.SIGTERM)
}

func (s *Supervisor) hardKill(h *handle) {
	h.state = EscalationHardKillSent
	s.logger.Warn("grace period expired, sending SIGKILL",
		logging.Int("pid", h.pid),
		logging.String(logging.FieldEventType, "hard_kill_sent"),
	)
	_ = unix.Kill(-h.pid, unix.SIGKILL)
}

// collect turns the process exit status into a Result. It runs exactly once
// per handle; the racing timers are dead by the time it returns.
func (s *Supervisor) collect(h *handle, waitErr error) Result {
	result := Result{
		TimedOut:   h.state != EscalationNone,
		Escalation: h.state,
		Stdout:     h.stdout.String(),
		Stderr:     h.stderr.String(),
		Duration:   time.Since(h.startedAt),
	}

	if waitErr == nil {
		return result
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				result.ExitCode = -1
				result.Signal = status.Signal().String()
			} else {
				result.ExitCode = status.ExitStatus()
			}
		} else {
			result.ExitCode = exitErr.ExitCode()
		}
		return result
	}

	// Wait failed for a non-exit reason. Report it as a synthetic exit so
	// callers still receive a structured result.
	result.ExitCode = -1
	result.Signal = waitErr.Error()
	return result
}
