package daemonrun

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"lightbox/internal/archive"
	"lightbox/internal/archive/blob"
	"lightbox/internal/archive/dicomweb"
	"lightbox/internal/config"
	"lightbox/internal/daemon"
	"lightbox/internal/ipc"
	"lightbox/internal/logging"
	"lightbox/internal/render"
	"lightbox/internal/viewer"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides the configured log level when non-empty.
	LogLevel string
	// SocketPath overrides the config-derived IPC socket location.
	SocketPath string
}

// Run starts the lightbox daemon runtime loop. It owns process-level
// concerns: signal handling, log file placement, the pid file, archive
// driver selection, and the IPC listener. Run blocks until the context is
// cancelled or a termination signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("lightbox-%s.log", newRunID()))
	logger, err := logging.New(logging.Options{
		Level:       cmp.Or(strings.TrimSpace(opts.LogLevel), cfg.Logging.Level),
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.CurrentLogPath(), logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update lightbox.log link: %v\n", err)
	}

	pidPath := PIDPath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	source, store, err := openSource(signalCtx, cfg, logger)
	if err != nil {
		logger.Error("open archive source", logging.Error(err))
		return err
	}

	engine := render.NewSoftwareEngine(logger)
	sessions := viewer.NewManager(cfg, source, engine, logger)

	d, err := daemon.New(cfg, source, store, engine, sessions, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	socketPath := cmp.Or(strings.TrimSpace(opts.SocketPath), cfg.SocketPath())
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	// A failed start leaves the IPC server up so the CLI can read status and
	// retry; the failure itself travels back through the Start RPC.
	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start rejected",
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check archive configuration and data directory access"),
			logging.Error(err),
		)
	}

	<-signalCtx.Done()
	logger.Info("lightbox daemon shutting down")
	return nil
}

// newRunID stamps one daemon run, ordering log files by start time.
func newRunID() string {
	return time.Now().UTC().Format("20060102T150405.000Z")
}

// PIDPath returns the daemon pid file location for the given config.
func PIDPath(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	return filepath.Join(cfg.Paths.DataDir, "lightboxd.pid")
}

// openSource builds the configured instance source. The local driver opens
// the blob store and archive index and serves both the Source and Store
// roles; the dicomweb driver returns a remote client and no local store.
func openSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) (archive.Source, *archive.Store, error) {
	switch cfg.Archive.Driver {
	case "dicomweb":
		client, err := dicomweb.NewFromConfig(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open dicomweb source: %w", err)
		}
		return client, nil, nil
	default:
		blobs, err := blob.Open(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open blob store: %w", err)
		}
		store, err := archive.Open(cfg, blobs, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open archive index: %w", err)
		}
		return store, store, nil
	}
}

// ensureCurrentLogPointer relinks the stable log path at this run's log
// file. Falls back to a hard link on filesystems without symlink support.
func ensureCurrentLogPointer(current, target string) error {
	if current == "" || target == "" {
		return nil
	}
	if err := os.Remove(current); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if os.Symlink(target, current) == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("hard link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	pid := fmt.Sprintf("%d\n", os.Getpid())
	return os.WriteFile(path, []byte(pid), 0o644)
}
