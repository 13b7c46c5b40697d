// Package daemonctl orchestrates lightbox daemon lifecycle operations on
// behalf of the CLI: launching the daemon process, waiting for its socket,
// requesting stop, and force-terminating a wedged process.
package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"lightbox/internal/api"
	"lightbox/internal/archive"
	"lightbox/internal/archive/blob"
	"lightbox/internal/config"
	"lightbox/internal/ipc"
	"lightbox/internal/logging"
	"lightbox/internal/preflight"
)

// dialRetryInterval paces socket polling in the wait loops below.
const dialRetryInterval = 200 * time.Millisecond

// LaunchOptions carries the flags handed to a freshly spawned daemon process.
type LaunchOptions struct {
	SocketPath string
	ConfigPath string
	LogLevel   string
}

// StartState labels the outcome of EnsureStarted.
type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
	StartStateRequested      StartState = "start_requested"
)

// StartResult describes how a start request resolved.
type StartResult struct {
	State    StartState
	Launched bool
	Message  string
}

// ErrDaemonNotRunning reports that no daemon answered on the control socket.
var ErrDaemonNotRunning = errors.New("daemon not running")

// Launch spawns the daemon in the background, detached from this process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"daemon"}
	for _, opt := range []struct {
		flag  string
		value string
	}{
		{"--socket", opts.SocketPath},
		{"--config", opts.ConfigPath},
		{"--log-level", opts.LogLevel},
	} {
		if v := strings.TrimSpace(opt.value); v != "" {
			args = append(args, opt.flag, v)
		}
	}

	proc := exec.Command(executablePath, args...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForClient polls the socket until the daemon answers or the timeout lapses.
func WaitForClient(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	var lastErr error
	for deadline := time.Now().Add(timeout); time.Now().Before(deadline); time.Sleep(dialRetryInterval) {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			return client, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("timed out waiting for socket")
	}
	return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted connects to a running daemon or launches one, then asks it to
// start. The result distinguishes a fresh start from an already-running daemon.
func EnsureStarted(socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	client, launched, err := connectOrLaunch(socketPath, executablePath, opts, waitTimeout)
	if err != nil {
		return StartResult{}, err
	}
	defer client.Close()

	// A healthy daemon may already be serving; probe before asking it to start.
	if status, statusErr := client.Status(); statusErr == nil && status != nil && status.Running {
		state := StartStateAlreadyRunning
		if launched {
			state = StartStateStarted
		}
		return StartResult{State: state, Launched: launched}, nil
	}

	resp, err := client.Start()
	if err != nil {
		return StartResult{}, err
	}
	return classifyStartResponse(resp, launched), nil
}

// connectOrLaunch dials the control socket, spawning a daemon process first
// when nothing answers. The bool reports whether a launch happened.
func connectOrLaunch(socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (*ipc.Client, bool, error) {
	if client, err := ipc.Dial(socketPath); err == nil {
		return client, false, nil
	}
	if err := Launch(executablePath, opts); err != nil {
		return nil, false, err
	}
	client, err := WaitForClient(socketPath, waitTimeout)
	if err != nil {
		return nil, false, err
	}
	return client, true, nil
}

// classifyStartResponse maps the daemon's start reply onto a StartResult. A
// reply of "daemon already running" from a process we just launched still
// counts as a successful start.
func classifyStartResponse(resp *ipc.StartResponse, launched bool) StartResult {
	if resp == nil {
		return StartResult{State: StartStateRequested, Launched: launched, Message: "Start request sent"}
	}
	message := strings.TrimSpace(resp.Message)
	switch {
	case resp.Started:
		return StartResult{State: StartStateStarted, Launched: launched, Message: message}
	case strings.EqualFold(message, "daemon already running"):
		state := StartStateAlreadyRunning
		if launched {
			state = StartStateStarted
		}
		return StartResult{State: state, Launched: launched, Message: message}
	case message != "":
		return StartResult{State: StartStateRequested, Launched: launched, Message: message}
	default:
		return StartResult{State: StartStateRequested, Launched: launched, Message: "Start request sent"}
	}
}

// WaitForShutdown blocks until the socket disappears or the daemon reports
// itself stopped, giving up after timeout.
func WaitForShutdown(socketPath string, timeout time.Duration) error {
	var lastErr error
	for deadline := time.Now().Add(timeout); time.Now().Before(deadline); time.Sleep(dialRetryInterval) {
		stopped, err := shutdownObserved(socketPath)
		if stopped {
			return nil
		}
		if err != nil {
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = errors.New("timed out waiting for shutdown")
	}
	return fmt.Errorf("daemon did not stop: %w", lastErr)
}

// shutdownObserved probes the socket once. A missing socket means the daemon
// is gone; a reachable daemon reporting not-running counts as stopped too.
func shutdownObserved(socketPath string) (bool, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if os.IsNotExist(err) || errors.Is(err, os.ErrNotExist) {
			return true, nil
		}
		return false, err
	}
	status, statusErr := client.Status()
	_ = client.Close()
	if statusErr != nil {
		return false, statusErr
	}
	if status != nil && !status.Running {
		return true, nil
	}
	return false, errors.New("daemon still running")
}

// ProcessInfo reports whether daemon IPC answers and the PID it reports.
func ProcessInfo(socketPath string) (bool, int, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if os.IsNotExist(err) || errors.Is(err, os.ErrNotExist) {
			return false, 0, nil
		}
		return false, 0, err
	}
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		return true, 0, err
	}
	if status == nil {
		return true, 0, nil
	}
	return true, status.PID, nil
}

// DeriveRuntimeDir determines the directory holding the daemon's pid, lock,
// and socket files from status and config hints.
func DeriveRuntimeDir(lockPath, indexDBPath string, cfg *config.Config) string {
	if lockPath != "" {
		return filepath.Dir(lockPath)
	}
	if indexDBPath != "" {
		return filepath.Dir(indexDBPath)
	}
	if cfg != nil && strings.TrimSpace(cfg.Paths.DataDir) != "" {
		return cfg.Paths.DataDir
	}
	return ""
}

// resolvePID prefers the pid file over the fallback reported by IPC.
func resolvePID(pidPath string, fallback int) (int, error) {
	data, err := os.ReadFile(pidPath)
	switch {
	case err == nil:
		if parsed, parseErr := strconv.Atoi(strings.TrimSpace(string(data))); parseErr == nil && parsed > 0 {
			return parsed, nil
		}
	case !errors.Is(err, os.ErrNotExist):
		return 0, fmt.Errorf("read daemon pid file %q: %w", pidPath, err)
	}
	if fallback > 0 {
		return fallback, nil
	}
	return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
}

// ForceKillProcess kills the daemon process named by the pid file, then
// clears the pid and lock files so the next start finds a clean slate.
func ForceKillProcess(pidPath, lockPath string, fallbackPID int) (int, error) {
	pid, err := resolvePID(pidPath, fallbackPID)
	if err != nil {
		return 0, err
	}
	if err := killProcess(pid); err != nil {
		return 0, err
	}
	if lockPath != "" {
		_ = os.Remove(lockPath)
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	return pid, nil
}

// killProcess sends SIGKILL. It refuses to touch the calling process.
func killProcess(pid int) error {
	if pid == os.Getpid() {
		return fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	return nil
}

// StopResult reports how a stop request concluded.
type StopResult struct {
	StopAcknowledged bool
	ForcedKill       bool
	PID              int
}

// RestartResult pairs the stop outcome with the follow-up start.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// StopAndTerminate asks the daemon to stop and escalates to SIGKILL when the
// process is still alive after gracePeriod.
func StopAndTerminate(socketPath string, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}

	// Snapshot the runtime paths before asking the daemon to exit; once it
	// stops answering, the pid and lock locations are unknowable over IPC.
	var result StopResult
	var lockPath, indexDBPath string
	if status, statusErr := client.Status(); statusErr == nil && status != nil {
		lockPath = status.LockPath
		indexDBPath = status.IndexDBPath
		result.PID = status.PID
	}
	stopResp, stopErr := client.Stop()
	_ = client.Close()
	if stopErr != nil {
		return StopResult{}, stopErr
	}
	result.StopAcknowledged = stopResp != nil && stopResp.Stopped

	_ = WaitForShutdown(socketPath, gracePeriod)
	alive, livePID := stillAlive(socketPath)
	if !alive {
		return result, nil
	}

	if livePID == 0 {
		livePID = result.PID
	}
	runtimeDir := DeriveRuntimeDir(lockPath, indexDBPath, cfg)
	if runtimeDir == "" {
		return result, fmt.Errorf("unable to determine daemon data directory")
	}
	killedPID, killErr := ForceKillProcess(
		filepath.Join(runtimeDir, "lightboxd.pid"),
		filepath.Join(runtimeDir, "lightboxd.lock"),
		livePID,
	)
	if killErr != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", killErr)
	}
	_ = os.Remove(socketPath)
	result.ForcedKill = true
	result.PID = killedPID
	return result, nil
}

// stillAlive probes the socket once. Probe errors count as not running.
func stillAlive(socketPath string) (bool, int) {
	alive, pid, err := ProcessInfo(socketPath)
	if err != nil {
		return false, 0
	}
	return alive, pid
}

// Restart stops any running daemon, then brings one up again.
func Restart(socketPath string, cfg *config.Config, executablePath string, opts LaunchOptions, stopGracePeriod, startWaitTimeout time.Duration) (RestartResult, error) {
	var result RestartResult

	stop, stopErr := StopAndTerminate(socketPath, cfg, stopGracePeriod)
	switch {
	case stopErr == nil:
		result.WasRunning = true
		result.Stop = stop
	case errors.Is(stopErr, ErrDaemonNotRunning):
		// Nothing to stop.
	default:
		return RestartResult{}, stopErr
	}

	start, err := EnsureStarted(socketPath, executablePath, opts, startWaitTimeout)
	if err != nil {
		return RestartResult{}, err
	}
	result.Start = start
	return result, nil
}

// BuildStatusSnapshot collects daemon status over IPC. When the daemon is
// unreachable it fills archive statistics from a direct index read and runs
// preflight checks locally so `lightbox status` stays useful offline.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (*ipc.StatusResponse, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}

	statusResp := fetchStatus(socketPath)
	if statusResp == nil {
		statusResp = &ipc.StatusResponse{}
	}

	if !statusResp.Running {
		if statusResp.Archive == (api.ArchiveStats{}) && cfg.Archive.Driver == "local" {
			if stats, statsErr := readArchiveStats(ctx, cfg); statsErr == nil {
				statusResp.Archive = api.FromStats(stats)
			}
		}
		if len(statusResp.Checks) == 0 {
			statusResp.Checks = api.FromResults(preflight.RunAll(ctx, cfg))
		}
	}

	if statusResp.IndexDBPath == "" && cfg.Archive.Driver == "local" {
		statusResp.IndexDBPath = cfg.IndexPath()
	}
	if statusResp.LockPath == "" {
		statusResp.LockPath = cfg.LockPath()
	}
	return statusResp, nil
}

// fetchStatus reads daemon status over IPC, returning nil when the daemon is
// unreachable or the call fails.
func fetchStatus(socketPath string) *ipc.StatusResponse {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		return nil
	}
	defer client.Close()
	resp, err := client.Status()
	if err != nil {
		return nil
	}
	return resp
}

// readArchiveStats opens the index directly. Safe while the daemon holds the
// database too since SQLite permits concurrent readers.
func readArchiveStats(ctx context.Context, cfg *config.Config) (archive.Stats, error) {
	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	blobs, err := blob.Open(queryCtx, cfg)
	if err != nil {
		return archive.Stats{}, err
	}
	store, err := archive.Open(cfg, blobs, logging.NewNop())
	if err != nil {
		return archive.Stats{}, err
	}
	defer store.Close()
	return store.Stats(queryCtx)
}

func isDaemonUnavailable(err error) bool {
	return os.IsNotExist(err) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
