package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"papermill/internal/api"
	"papermill/internal/artifactcache"
	"papermill/internal/config"
	"papermill/internal/convert"
	"papermill/internal/logging"
	"papermill/internal/queue"
	"papermill/internal/staging"
)

// shutdownGrace bounds how long Stop waits for in-flight HTTP requests.
const shutdownGrace = 10 * time.Second

// Daemon coordinates the API server and conversion service and enforces
// single-instance execution via a file lock.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	server *api.Server
	svc    *convert.Service
	cache  *artifactcache.Store

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Queue        queue.Status
	LockFilePath string
	CachePath    string
}

// New constructs a daemon with initialized dependencies. cache may be nil
// when the artifact cache is disabled.
func New(cfg *config.Config, svc *convert.Service, server *api.Server, cache *artifactcache.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || svc == nil || server == nil {
		return nil, errors.New("daemon requires config, conversion service, and api server")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "papermilld.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		server:   server,
		svc:      svc,
		cache:    cache,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, sweeps stale staging leftovers, and
// launches the API server.
func (d *Daemon) Start() error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another papermill daemon instance is already running")
	}

	d.sweepStaleWorkspaces()

	go func() {
		if err := d.server.Start(); err != nil {
			d.logger.Error("api server failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "api_failed"),
				logging.String(logging.FieldImpact, "daemon no longer accepts submissions"),
			)
		}
	}()

	d.running.Store(true)
	d.logger.Info("papermill daemon started",
		logging.String("lock", d.lockPath),
		logging.String("bind", d.cfg.Paths.APIBind),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop shuts down the API server and releases the instance lock. In-flight
// conversions are bounded by the base context handed to the queue.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := d.server.Shutdown(shutdownCtx); err != nil {
		d.logger.Warn("api shutdown incomplete", logging.Error(err))
	}

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("papermill daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stopped"),
	)
}

// Close stops the daemon and releases held resources.
func (d *Daemon) Close() error {
	d.Stop()
	if d.cache != nil {
		return d.cache.Close()
	}
	return nil
}

// Status reports current runtime state.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		Queue:        d.svc.QueueStatus(),
		LockFilePath: d.lockPath,
		CachePath:    d.cfg.Cache.Path,
	}
}

// sweepStaleWorkspaces removes job directories orphaned by an earlier crash.
func (d *Daemon) sweepStaleWorkspaces() {
	maxAge := time.Duration(d.cfg.Staging.StaleAgeHours) * time.Hour
	result := staging.CleanStale(d.cfg.Paths.StagingDir, maxAge, d.logger)
	if len(result.Removed) > 0 || len(result.Errors) > 0 {
		d.logger.Info("stale workspace sweep finished",
			logging.Int("removed", len(result.Removed)),
			logging.Int("errors", len(result.Errors)),
			logging.String(logging.FieldEventType, "staging_swept"),
		)
	}
}
