package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lightbox/internal/archive"
	"lightbox/internal/config"
	"lightbox/internal/daemon"
	"lightbox/internal/ipc"
	"lightbox/internal/logging"
	"lightbox/internal/render"
	"lightbox/internal/testsupport"
	"lightbox/internal/viewer"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *archive.Store
	sessions   *viewer.Manager
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	logPath    string
	baseDir    string
	cancel     context.CancelFunc
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("create home dir: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = ""
	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}

	configPath := filepath.Join(homeDir, ".config", "lightbox", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)

	logger := logging.NewNop()
	engine := render.NewSoftwareEngine(logger)
	sessions := viewer.NewManager(cfg, store, engine, logger)
	d, err := daemon.New(cfg, store, store, engine, sessions, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	socketPath := filepath.Join(cfg.Paths.LogDir, "cli.sock")
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		cancel()
		_ = d.Close()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	env := &cliTestEnv{
		cfg:        cfg,
		store:      store,
		sessions:   sessions,
		daemon:     d,
		server:     srv,
		socketPath: socketPath,
		configPath: configPath,
		logPath:    cfg.CurrentLogPath(),
		baseDir:    base,
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		_ = d.Close()
	})

	return env
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	full := []string{"--socket", socket}
	if configPath != "" {
		full = append(full, "--config", configPath)
	}
	cmd.SetArgs(append(full, args...))

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[archive]
driver = "local"
index_driver = "sqlite"
blob_driver = "memory"
blob_dir = %q

[viewer]
default_layout = %d
cine_default_fps = %d

[logging]
level = "error"
`,
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Archive.BlobDir,
		cfg.Viewer.DefaultLayout,
		cfg.Viewer.CineDefaultFPS,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// createTestSession opens a session through the daemon's manager so tests
// get the id without scraping command output.
func createTestSession(t *testing.T, env *cliTestEnv, layout int) string {
	t.Helper()
	session, err := env.sessions.Create(layout)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return session.ID()
}

func waitViewportDisplayed(t *testing.T, env *cliTestEnv, sessionID string, viewportID int) {
	t.Helper()
	waitFor(t, 5*time.Second, func() bool {
		session, err := env.sessions.Get(sessionID)
		if err != nil {
			return false
		}
		snap := session.Snapshot()
		if viewportID >= len(snap.Viewports) {
			return false
		}
		vp := snap.Viewports[viewportID]
		return vp.Ready && !vp.Loading && vp.Displayed != nil
	})
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for !fn() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s", duration)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q, got:\n%s", substr, output)
	}
}
