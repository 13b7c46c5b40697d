package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"lightbox/internal/api"
	"lightbox/internal/daemon"
	"lightbox/internal/logging"
	"lightbox/internal/logs"
	"lightbox/internal/mpr"
	"lightbox/internal/viewer"
)

// rpcName is the receiver name clients address their calls to.
const rpcName = "Lightbox"

// Server answers JSON-RPC requests on a Unix domain socket. Every exported
// method of the service type becomes a callable daemon operation.
type Server struct {
	path     string
	daemon   *daemon.Daemon
	logger   *slog.Logger
	listener net.Listener
	rpc      *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer binds the socket at path and registers the daemon's RPC surface.
// Serve must be called before clients can connect.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	listener, err := listenUnix(path)
	if err != nil {
		return nil, err
	}

	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(rpcName, &service{daemon: d, logger: logger, ctx: ctx}); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	srv := &Server{
		path:     path,
		daemon:   d,
		logger:   logger,
		listener: listener,
		rpc:      rpcServer,
	}
	srv.ctx, srv.cancel = context.WithCancel(ctx)
	return srv, nil
}

// listenUnix clears any stale socket left by a previous run before binding.
func listenUnix(path string) (net.Listener, error) {
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}
	return listener, nil
}

// Serve accepts connections in the background until the context is canceled
// or Close is called.
func (s *Server) Serve() {
	s.logger.Debug("control socket listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go s.acceptLoop()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.logger.Warn("connection accept failed",
				logging.String(logging.FieldEventType, "ipc_accept_failed"),
				logging.String("impact", "clients cannot reach the daemon until accepts recover"),
				logging.String(logging.FieldErrorHint, "Check socket permissions or restart the daemon"),
				logging.Error(err))
			continue
		}
		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()
	s.rpc.ServeCodec(jsonrpc.NewServerCodec(conn))
}

// Close stops accepting, waits for in-flight calls, and removes the socket.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("socket cleanup failed",
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String("socket", s.path),
			logging.String("impact", "a stale socket can block the next daemon start"),
			logging.String(logging.FieldErrorHint, "Delete the socket file before starting again"),
			logging.Error(err))
	}
}

// service is the RPC receiver. Handlers run on the server's context so an
// in-flight call observes shutdown.
type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	return logging.NewComponentLogger(s.logger, "ipc")
}

func (s *service) session(id string) (*viewer.Session, error) {
	return s.daemon.Sessions().Get(id)
}

// Start brings the daemon online. A failed start is reported through the
// response message rather than an RPC error so callers see the reason.
func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("start requested over IPC")
	err := s.daemon.Start(s.ctx)
	resp.Started = err == nil
	if err != nil {
		resp.Message = err.Error()
		return nil
	}
	resp.Message = "daemon started"
	s.log().Info("daemon started",
		logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

// Stop shuts the daemon down, closing every open session.
func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("stop requested over IPC")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.IndexDBPath = status.IndexDBPath
	resp.LockPath = status.LockFilePath
	resp.Archive = api.FromStats(status.Archive)
	resp.OpenSessions = status.OpenSessions
	resp.Checks = api.FromResults(status.Checks)
	return nil
}

func (s *service) Import(req ImportRequest, resp *ImportResponse) error {
	s.log().Debug("import requested", logging.String("dir", req.Path))
	result, err := s.daemon.Import(s.ctx, req.Path)
	if err != nil {
		return err
	}
	resp.Summary = api.FromImportResult(result)
	s.log().Info("import completed via IPC",
		logging.String(logging.FieldEventType, "archive_import"),
		logging.Int("imported_count", result.Imported))
	return nil
}

func (s *service) Studies(_ StudiesRequest, resp *StudiesResponse) error {
	refs, err := s.daemon.Source().ListStudies(s.ctx)
	if err != nil {
		return err
	}
	resp.Studies = api.FromStudyRefs(refs)
	return nil
}

func (s *service) Series(req SeriesRequest, resp *SeriesResponse) error {
	refs, err := s.daemon.Source().ListSeries(s.ctx, req.StudyUID)
	if err != nil {
		return err
	}
	resp.Series = api.FromSeriesRefs(refs)
	return nil
}

func (s *service) Instances(req InstancesRequest, resp *InstancesResponse) error {
	refs, err := s.daemon.Source().ListInstances(s.ctx, req.SeriesUID)
	if err != nil {
		return err
	}
	resp.Instances = api.FromInstanceRefs(refs)
	return nil
}

func (s *service) SessionCreate(req SessionCreateRequest, resp *SessionResponse) error {
	session, err := s.daemon.Sessions().Create(req.Layout)
	if err != nil {
		return err
	}
	resp.Session = session.Snapshot()
	s.log().Info("session created via IPC",
		logging.String(logging.FieldEventType, "session_create"),
		logging.String(logging.FieldSessionID, session.ID()))
	return nil
}

func (s *service) SessionList(_ SessionListRequest, resp *SessionListResponse) error {
	resp.Sessions = s.daemon.Sessions().List()
	return nil
}

func (s *service) SessionGet(req SessionGetRequest, resp *SessionResponse) error {
	session, err := s.session(req.SessionID)
	if err != nil {
		return err
	}
	resp.Session = session.Snapshot()
	return nil
}

func (s *service) SessionClose(req SessionCloseRequest, resp *SessionCloseResponse) error {
	if err := s.daemon.Sessions().Close(req.SessionID); err != nil {
		return err
	}
	resp.Closed = true
	s.log().Info("session closed via IPC",
		logging.String(logging.FieldEventType, "session_close"),
		logging.String(logging.FieldSessionID, req.SessionID))
	return nil
}

func (s *service) SetLayout(req LayoutRequest, resp *SessionResponse) error {
	session, err := s.session(req.SessionID)
	if err != nil {
		return err
	}
	if err := session.Pool().SetLayout(req.Layout); err != nil {
		return err
	}
	resp.Session = session.Snapshot()
	return nil
}

func (s *service) SetActive(req ActiveRequest, resp *SessionResponse) error {
	session, err := s.session(req.SessionID)
	if err != nil {
		return err
	}
	if err := session.Pool().SetActive(req.Viewport); err != nil {
		return err
	}
	resp.Session = session.Snapshot()
	return nil
}

func (s *service) SetSync(req SyncRequest, resp *SessionResponse) error {
	session, err := s.session(req.SessionID)
	if err != nil {
		return err
	}
	if req.Members != nil {
		if err := session.Pool().SetSyncMembers(req.Members); err != nil {
			return err
		}
	}
	if req.Enabled != nil {
		session.Pool().SetSync(*req.Enabled)
	}
	resp.Session = session.Snapshot()
	return nil
}

func (s *service) SelectSeries(req SelectSeriesRequest, resp *SessionResponse) error {
	session, err := s.session(req.SessionID)
	if err != nil {
		return err
	}
	if err := session.SelectSeries(s.ctx, req.Viewport, req.SeriesUID); err != nil {
		return err
	}
	resp.Session = session.Snapshot()
	return nil
}

func (s *service) Navigate(req NavigateRequest, resp *SessionResponse) error {
	session, err := s.session(req.SessionID)
	if err != nil {
		return err
	}
	if err := session.Pool().Navigate(req.Viewport, req.Direction); err != nil {
		return err
	}
	resp.Session = session.Snapshot()
	return nil
}

func (s *service) Seek(req SeekRequest, resp *SessionResponse) error {
	session, err := s.session(req.SessionID)
	if err != nil {
		return err
	}
	if err := session.Pool().Seek(req.Viewport, req.Index); err != nil {
		return err
	}
	resp.Session = session.Snapshot()
	return nil
}

func (s *service) CineStart(req CineStartRequest, resp *SessionResponse) error {
	session, err := s.session(req.SessionID)
	if err != nil {
		return err
	}
	if err := session.Pool().StartCine(req.Viewport, req.FPS); err != nil {
		return err
	}
	resp.Session = session.Snapshot()
	return nil
}

func (s *service) CineStop(req CineStopRequest, resp *SessionResponse) error {
	session, err := s.session(req.SessionID)
	if err != nil {
		return err
	}
	session.Pool().StopCine()
	resp.Session = session.Snapshot()
	return nil
}

func (s *service) VolumeBuild(req VolumeBuildRequest, resp *VolumeResponse) error {
	session, err := s.session(req.SessionID)
	if err != nil {
		return err
	}
	grid, err := session.BuildVolume(s.ctx, req.Viewport)
	if err != nil {
		return err
	}
	_, seriesUID, _ := session.Volume()
	resp.Volume = api.FromGrid(grid, seriesUID)
	s.log().Info("volume assembled via IPC",
		logging.String(logging.FieldEventType, "volume_build"),
		logging.String(logging.FieldSessionID, req.SessionID),
		logging.String(logging.FieldSeriesUID, seriesUID))
	return nil
}

func (s *service) VolumeStatus(req VolumeStatusRequest, resp *VolumeResponse) error {
	session, err := s.session(req.SessionID)
	if err != nil {
		return err
	}
	grid, seriesUID, built := session.Volume()
	if !built {
		return viewer.ErrVolumeNotBuilt
	}
	resp.Volume = api.FromGrid(grid, seriesUID)
	return nil
}

func (s *service) VolumeDrop(req VolumeDropRequest, resp *VolumeDropResponse) error {
	session, err := s.session(req.SessionID)
	if err != nil {
		return err
	}
	session.DropVolume()
	resp.Dropped = true
	return nil
}

func (s *service) Slice(req SliceRequest, resp *SliceResponse) error {
	session, err := s.session(req.SessionID)
	if err != nil {
		return err
	}
	plane, err := mpr.ParsePlane(req.Plane)
	if err != nil {
		return err
	}
	slice, err := session.ExtractPlane(plane, req.Index)
	if err != nil {
		return err
	}
	if slice == nil {
		return fmt.Errorf("slice index %d out of range for %s plane", req.Index, plane)
	}
	resp.Slice = api.FromSlice2D(slice)
	return nil
}

// LogTail reads entries from the active log file. Follow requests block for
// the requested wait window and always report the resume offset, even when
// the window closes without new lines.
func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}

	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if req.Follow && wait <= 0 {
		wait = time.Second
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}

	result, err := logs.Tail(ctx, logPath, logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	})
	switch {
	case err == nil:
		resp.Lines = result.Lines
		resp.Offset = result.Offset
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// An expired follow window is an empty poll, not a failure.
		resp.Offset = result.Offset
		return nil
	default:
		return err
	}
}
