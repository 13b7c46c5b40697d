package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lightbox/internal/api"
	"lightbox/internal/daemon"
	"lightbox/internal/ipc"
	"lightbox/internal/logging"
	"lightbox/internal/render"
	"lightbox/internal/testsupport"
	"lightbox/internal/viewer"
)

// dialTestServer binds an IPC server for d on socket and returns a connected
// client. Environments that forbid Unix sockets skip the calling test.
func dialTestServer(t *testing.T, socket string, d *daemon.Daemon) *ipc.Client {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv, err := ipc.NewServer(ctx, socket, d, logging.NewNop())
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	// Give the accept loop a moment to come up before dialing.
	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// waitDisplayed polls SessionGet until the viewport settles on an image.
func waitDisplayed(t *testing.T, client *ipc.Client, sessionID string, viewportID int) ipc.Session {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		resp, err := client.SessionGet(sessionID)
		if err != nil {
			t.Fatalf("SessionGet: %v", err)
		}
		if viewportID < len(resp.Session.Viewports) {
			vp := resp.Session.Viewports[viewportID]
			if vp.Ready && !vp.Loading && vp.Displayed != nil {
				return resp.Session
			}
		}
		select {
		case <-deadline:
			t.Fatalf("viewport %d never displayed an instance", viewportID)
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestIPCServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = ""
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedSeries(t, store, "1.2.3", "1.2.3.1", 3)

	logger := logging.NewNop()
	engine := render.NewSoftwareEngine(logger)
	sessions := viewer.NewManager(cfg, store, engine, logger)
	d, err := daemon.New(cfg, store, store, engine, sessions, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})

	client := dialTestServer(t, cfg.SocketPath(), d)

	startResp, err := client.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !startResp.Started {
		t.Fatalf("daemon did not start: %s", startResp.Message)
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running {
		t.Fatal("status should report running after start")
	}
	if status.Archive.Instances != 3 {
		t.Fatalf("expected 3 archived instances, got %d", status.Archive.Instances)
	}
	if !strings.HasSuffix(status.IndexDBPath, "archive.db") {
		t.Fatalf("unexpected index path: %s", status.IndexDBPath)
	}
	if len(status.Checks) == 0 {
		t.Fatal("expected preflight checks in status")
	}

	studies, err := client.Studies()
	if err != nil {
		t.Fatalf("Studies failed: %v", err)
	}
	if len(studies.Studies) != 1 || studies.Studies[0].PatientName != "Doe, Jane" {
		t.Fatalf("unexpected studies: %#v", studies.Studies)
	}
	series, err := client.Series("1.2.3")
	if err != nil {
		t.Fatalf("Series failed: %v", err)
	}
	if len(series.Series) != 1 || series.Series[0].SeriesUID != "1.2.3.1" {
		t.Fatalf("unexpected series: %#v", series.Series)
	}
	instances, err := client.Instances("1.2.3.1")
	if err != nil {
		t.Fatalf("Instances failed: %v", err)
	}
	if len(instances.Instances) != 3 || instances.Instances[0].SOPUID != "1.2.3.1.1" {
		t.Fatalf("unexpected instances: %#v", instances.Instances)
	}
	if _, err := client.Series("absent"); err == nil {
		t.Fatal("expected error for unknown study")
	}

	importResp, err := client.Import(t.TempDir())
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if importResp.Summary.Scanned != 0 {
		t.Fatalf("expected empty import, got %+v", importResp.Summary)
	}

	created, err := client.SessionCreate(2)
	if err != nil {
		t.Fatalf("SessionCreate failed: %v", err)
	}
	sessionID := created.Session.ID
	if created.Session.Layout != 2 || len(created.Session.Viewports) != 2 {
		t.Fatalf("unexpected session snapshot: %+v", created.Session)
	}
	list, err := client.SessionList()
	if err != nil {
		t.Fatalf("SessionList failed: %v", err)
	}
	if len(list.Sessions) != 1 || list.Sessions[0].ID != sessionID {
		t.Fatalf("unexpected session list: %#v", list.Sessions)
	}

	if _, err := client.SelectSeries(sessionID, 0, "1.2.3.1"); err != nil {
		t.Fatalf("SelectSeries failed: %v", err)
	}
	snap := waitDisplayed(t, client, sessionID, 0)
	if snap.Viewports[0].StackLength != 3 || snap.Viewports[0].Displayed.SOPUID != "1.2.3.1.1" {
		t.Fatalf("unexpected viewport state: %+v", snap.Viewports[0])
	}

	seekResp, err := client.Seek(sessionID, 0, 99)
	if err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	if seekResp.Session.Viewports[0].CurrentIndex != 2 {
		t.Fatalf("expected cursor clamped to 2, got %d", seekResp.Session.Viewports[0].CurrentIndex)
	}
	navResp, err := client.Navigate(sessionID, 0, -1)
	if err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	if navResp.Session.Viewports[0].CurrentIndex != 1 {
		t.Fatalf("expected cursor at 1, got %d", navResp.Session.Viewports[0].CurrentIndex)
	}

	enabled := true
	syncResp, err := client.SetSync(sessionID, &enabled, nil)
	if err != nil {
		t.Fatalf("SetSync failed: %v", err)
	}
	if !syncResp.Session.SyncEnabled {
		t.Fatal("expected sync enabled")
	}

	cineResp, err := client.CineStart(sessionID, 0, 20)
	if err != nil {
		t.Fatalf("CineStart failed: %v", err)
	}
	if !cineResp.Session.Cine.Active || cineResp.Session.Cine.FPS != 20 {
		t.Fatalf("unexpected cine state: %+v", cineResp.Session.Cine)
	}
	if _, err := client.CineStart(sessionID, 1, 20); err == nil {
		t.Fatal("expected error for concurrent cine")
	}
	stopCine, err := client.CineStop(sessionID)
	if err != nil {
		t.Fatalf("CineStop failed: %v", err)
	}
	if stopCine.Session.Cine.Active {
		t.Fatal("expected cine stopped")
	}

	volResp, err := client.VolumeBuild(sessionID, 0)
	if err != nil {
		t.Fatalf("VolumeBuild failed: %v", err)
	}
	if volResp.Volume.Depth != 3 || volResp.Volume.Width != 4 || volResp.Volume.Coverage != 1 {
		t.Fatalf("unexpected volume summary: %+v", volResp.Volume)
	}
	statusResp, err := client.VolumeStatus(sessionID)
	if err != nil {
		t.Fatalf("VolumeStatus failed: %v", err)
	}
	if statusResp.Volume.SeriesUID != "1.2.3.1" {
		t.Fatalf("unexpected volume series: %q", statusResp.Volume.SeriesUID)
	}

	sliceResp, err := client.Slice(sessionID, "axial", 1)
	if err != nil {
		t.Fatalf("Slice failed: %v", err)
	}
	if sliceResp.Slice.Width != 4 || sliceResp.Slice.Height != 4 {
		t.Fatalf("unexpected slice geometry: %+v", sliceResp.Slice)
	}
	if samples := api.DecodeSamples(sliceResp.Slice.Samples); len(samples) != 16 {
		t.Fatalf("expected 16 samples, got %d", len(samples))
	}
	if _, err := client.Slice(sessionID, "oblique", 0); err == nil {
		t.Fatal("expected error for unknown plane")
	}
	if _, err := client.Slice(sessionID, "axial", 99); err == nil {
		t.Fatal("expected error for out-of-range index")
	}

	logPath := d.LogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	seed := "daemon started\nsession created\nseries displayed\n"
	if err := os.WriteFile(logPath, []byte(seed), 0o644); err != nil {
		t.Fatalf("seed log file: %v", err)
	}

	logResp, err := client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("LogTail: %v", err)
	}
	if len(logResp.Lines) != 2 || logResp.Lines[0] != "session created" || logResp.Lines[1] != "series displayed" {
		t.Fatalf("tail lines = %#v, want the last two entries", logResp.Lines)
	}

	followDone := make(chan struct{})
	go func(offset int64) {
		defer close(followDone)
		resp, err := client.LogTail(ipc.LogTailRequest{Offset: offset, Follow: true, WaitMillis: 500})
		if err != nil {
			t.Errorf("LogTail follow: %v", err)
			return
		}
		if len(resp.Lines) != 1 || resp.Lines[0] != "cine started" {
			t.Errorf("follow lines = %#v, want the appended entry", resp.Lines)
		}
	}(logResp.Offset)

	time.Sleep(100 * time.Millisecond)
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("reopen log: %v", err)
	}
	if _, err := f.WriteString("cine started\n"); err != nil {
		t.Fatalf("extend log: %v", err)
	}
	_ = f.Close()

	select {
	case <-followDone:
	case <-time.After(5 * time.Second):
		t.Fatal("log tail follow never returned")
	}

	dropResp, err := client.VolumeDrop(sessionID)
	if err != nil {
		t.Fatalf("VolumeDrop failed: %v", err)
	}
	if !dropResp.Dropped {
		t.Fatal("expected volume dropped")
	}
	if _, err := client.VolumeStatus(sessionID); err == nil {
		t.Fatal("expected error after volume drop")
	}

	closeResp, err := client.SessionClose(sessionID)
	if err != nil {
		t.Fatalf("SessionClose failed: %v", err)
	}
	if !closeResp.Closed {
		t.Fatal("expected session closed")
	}
	if _, err := client.SessionGet(sessionID); err == nil {
		t.Fatal("expected error for closed session")
	}

	stopResp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !stopResp.Stopped {
		t.Fatal("stop was not acknowledged")
	}
	status, err = client.Status()
	if err != nil {
		t.Fatalf("Status after stop: %v", err)
	}
	if status.Running {
		t.Fatal("status should report stopped")
	}
}
