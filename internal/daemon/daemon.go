package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"lightbox/internal/archive"
	"lightbox/internal/config"
	"lightbox/internal/logging"
	"lightbox/internal/preflight"
	"lightbox/internal/render"
	"lightbox/internal/viewer"
)

// ErrNoLocalArchive marks operations that need the local archive index,
// which a daemon running against a remote DICOMweb origin does not have.
var ErrNoLocalArchive = errors.New("operation requires the local archive driver")

// Daemon coordinates the archive, the render engine, and the session
// manager, and enforces single-instance execution through a file lock.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	source   archive.Source
	store    *archive.Store
	engine   render.Engine
	sessions *viewer.Manager
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	mu     sync.Mutex
	checks []preflight.Result

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	IndexDBPath  string
	LockFilePath string
	Archive      archive.Stats
	OpenSessions int
	Checks       []preflight.Result
}

// New constructs a daemon with initialized dependencies. store is nil when
// the archive driver is remote; Import and index statistics then report as
// unavailable while browsing and sessions keep working through source.
func New(cfg *config.Config, source archive.Source, store *archive.Store, engine render.Engine, sessions *viewer.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || source == nil || engine == nil || sessions == nil || logger == nil {
		return nil, errors.New("daemon requires config, source, engine, session manager, and logger")
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		source:   source,
		store:    store,
		engine:   engine,
		sessions: sessions,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, fmt.Errorf("create api server: %w", err)
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock, runs preflight checks, and launches the
// session manager and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.acquireLock(); err != nil {
		return err
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if err := d.engine.EnsureReady(d.ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("ready render engine: %w", err)
	}

	checks := preflight.RunAll(d.ctx, d.cfg)
	checks = append(checks, preflight.CheckSource(d.ctx, d.source))
	checks = append(checks, preflight.CheckEngine(d.ctx, d.engine))
	d.mu.Lock()
	d.checks = checks
	d.mu.Unlock()
	for _, check := range checks {
		if check.Passed {
			continue
		}
		d.logger.Warn("preflight check failed",
			logging.String("check", check.Name),
			logging.String("detail", check.Detail),
		)
	}

	if err := d.sessions.Start(d.ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("start session manager: %w", err)
	}
	if d.api != nil {
		if err := d.api.start(d.ctx); err != nil {
			d.sessions.Stop()
			d.abortStart()
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("lightbox daemon started", logging.String("lock", d.lockPath))
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx = nil
	d.cancel = nil
}

// Stop shuts down the API server and session manager and releases the lock.
// acquireLock claims the singleton file lock guarding the data directory.
func (d *Daemon) acquireLock() error {
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another lightbox daemon instance is already running")
	}
	return nil
}

func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if cancel := d.cancel; cancel != nil {
		d.cancel = nil
		cancel()
	}
	if d.api != nil {
		d.api.stop()
	}
	d.sessions.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("lightbox daemon stopped")
}

// Close stops the daemon if needed and releases the archive store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store == nil {
		return nil
	}
	return d.store.Close()
}

// Sessions exposes the viewer session manager.
func (d *Daemon) Sessions() *viewer.Manager {
	return d.sessions
}

// Source exposes the archive backend the daemon browses.
func (d *Daemon) Source() archive.Source {
	return d.source
}

// LogPath reports the stable location of the current daemon log file.
func (d *Daemon) LogPath() string {
	return d.cfg.CurrentLogPath()
}

// Import ingests a directory of DICOM files into the local archive.
func (d *Daemon) Import(ctx context.Context, dir string) (*archive.ImportResult, error) {
	if d.store == nil {
		return nil, ErrNoLocalArchive
	}
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, errors.New("import directory is required")
	}
	absPath, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("resolve import directory: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat import directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("import path %q is not a directory", absPath)
	}
	importer := archive.NewImporter(d.store, d.logger)
	result, err := importer.ImportDirectory(ctx, absPath)
	if err != nil {
		return nil, err
	}
	d.logger.Info("import finished",
		logging.String("dir", absPath),
		logging.Int("imported", result.Imported),
		logging.Int("skipped", result.Skipped),
		logging.Int("failed", result.Failed),
	)
	return result, nil
}

// Status returns the current daemon status. Archive statistics come from
// the local index and stay zero when the driver is remote.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		OpenSessions: d.sessions.Count(),
	}
	if d.store != nil {
		status.IndexDBPath = d.cfg.IndexPath()
		if stats, err := d.store.Stats(ctx); err == nil {
			status.Archive = stats
		} else {
			d.logger.Warn("archive stats unavailable", logging.Error(err))
		}
	}
	d.mu.Lock()
	status.Checks = append([]preflight.Result(nil), d.checks...)
	d.mu.Unlock()
	return status
}
