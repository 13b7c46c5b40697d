package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"lightbox/internal/api"
	"lightbox/internal/archive"
	"lightbox/internal/config"
	"lightbox/internal/logging"
	"lightbox/internal/metrics"
	"lightbox/internal/mpr"
	"lightbox/internal/render"
	"lightbox/internal/viewer"
	"lightbox/internal/volume"
)

type apiServer struct {
	bind       string
	logger     *slog.Logger
	daemon     *Daemon
	archiveSvc *api.ArchiveService

	listener net.Listener
	server   *http.Server
}

type createSessionRequest struct {
	Layout int `json:"layout"`
}

type layoutRequest struct {
	Layout int `json:"layout"`
}

type activeRequest struct {
	Viewport int `json:"viewport"`
}

type syncRequest struct {
	Enabled *bool `json:"enabled"`
	Members []int `json:"members"`
}

type selectSeriesRequest struct {
	SeriesUID string `json:"seriesUid"`
}

type navigateRequest struct {
	Direction int `json:"direction"`
}

type seekRequest struct {
	Index int `json:"index"`
}

type cineRequest struct {
	Viewport int `json:"viewport"`
	FPS      int `json:"fps"`
}

type importRequest struct {
	Path string `json:"path"`
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:       bind,
		logger:     logger,
		daemon:     d,
		archiveSvc: api.NewArchiveService(d.Source()),
	}

	token := strings.TrimSpace(cfg.Paths.APIToken)
	protect := func(h http.HandlerFunc) http.HandlerFunc {
		return authMiddleware(token, h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", srv.handleHealthz)
	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	mux.HandleFunc("GET /api/status", protect(srv.handleStatus))
	mux.HandleFunc("GET /api/studies", protect(srv.handleStudies))
	mux.HandleFunc("GET /api/studies/{uid}/series", protect(srv.handleStudySeries))
	mux.HandleFunc("GET /api/series/{uid}/instances", protect(srv.handleSeriesInstances))
	mux.HandleFunc("POST /api/import", protect(srv.handleImport))

	mux.HandleFunc("POST /api/sessions", protect(srv.handleSessionCreate))
	mux.HandleFunc("GET /api/sessions", protect(srv.handleSessionList))
	mux.HandleFunc("GET /api/sessions/{id}", protect(srv.handleSessionGet))
	mux.HandleFunc("DELETE /api/sessions/{id}", protect(srv.handleSessionClose))
	mux.HandleFunc("POST /api/sessions/{id}/layout", protect(srv.handleLayout))
	mux.HandleFunc("POST /api/sessions/{id}/active", protect(srv.handleActive))
	mux.HandleFunc("POST /api/sessions/{id}/sync", protect(srv.handleSync))
	mux.HandleFunc("POST /api/sessions/{id}/cine", protect(srv.handleCineStart))
	mux.HandleFunc("DELETE /api/sessions/{id}/cine", protect(srv.handleCineStop))

	mux.HandleFunc("POST /api/sessions/{id}/viewports/{vp}/series", protect(srv.handleSelectSeries))
	mux.HandleFunc("POST /api/sessions/{id}/viewports/{vp}/navigate", protect(srv.handleNavigate))
	mux.HandleFunc("POST /api/sessions/{id}/viewports/{vp}/seek", protect(srv.handleSeek))
	mux.HandleFunc("POST /api/sessions/{id}/viewports/{vp}/transform", protect(srv.handleSetTransform))
	mux.HandleFunc("GET /api/sessions/{id}/viewports/{vp}/transform", protect(srv.handleGetTransform))
	mux.HandleFunc("GET /api/sessions/{id}/viewports/{vp}/frame.png", protect(srv.handleFramePNG))
	mux.HandleFunc("POST /api/sessions/{id}/viewports/{vp}/volume", protect(srv.handleVolumeBuild))

	mux.HandleFunc("GET /api/sessions/{id}/volume", protect(srv.handleVolumeGet))
	mux.HandleFunc("DELETE /api/sessions/{id}/volume", protect(srv.handleVolumeDrop))
	mux.HandleFunc("GET /api/sessions/{id}/volume/slices/{plane}/{index}", protect(srv.handleSlice))

	srv.server = &http.Server{
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

// start binds the API listener and serves until ctx is cancelled.
func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("bind api listener: %w", err)
	}
	s.listener = ln

	go s.serve(ln)
	go func() {
		<-ctx.Done()
		s.shutdown()
	}()

	s.log().Info("api server listening", logging.String("address", ln.Addr().String()))
	return nil
}

func (s *apiServer) serve(ln net.Listener) {
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log().Error("api server error", logging.Error(err))
	}
}

// shutdown drains in-flight requests, giving up after five seconds.
func (s *apiServer) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(ctx)
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		s.shutdown()
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// addr returns the bound listen address, empty before start.
func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		IndexDBPath:  status.IndexDBPath,
		LockFilePath: status.LockFilePath,
		Archive:      api.FromStats(status.Archive),
		OpenSessions: status.OpenSessions,
		Checks:       api.FromResults(status.Checks),
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleStudies(w http.ResponseWriter, r *http.Request) {
	studies, err := s.archiveSvc.Studies(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.StudyListResponse{Studies: studies})
}

func (s *apiServer) handleStudySeries(w http.ResponseWriter, r *http.Request) {
	series, err := s.archiveSvc.Series(r.Context(), r.PathValue("uid"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SeriesListResponse{Series: series})
}

func (s *apiServer) handleSeriesInstances(w http.ResponseWriter, r *http.Request) {
	instances, err := s.archiveSvc.Instances(r.Context(), r.PathValue("uid"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.InstanceListResponse{Instances: instances})
}

func (s *apiServer) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	result, err := s.daemon.Import(r.Context(), req.Path)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromImportResult(result))
}

func (s *apiServer) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	session, err := s.daemon.Sessions().Create(req.Layout)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.SessionResponse{Session: session.Snapshot()})
}

func (s *apiServer) handleSessionList(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.SessionListResponse{Sessions: s.daemon.Sessions().List()})
}

func (s *apiServer) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, api.SessionResponse{Session: session.Snapshot()})
}

func (s *apiServer) handleSessionClose(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.Sessions().Close(r.PathValue("id")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

func (s *apiServer) handleLayout(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	var req layoutRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if err := session.Pool().SetLayout(req.Layout); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SessionResponse{Session: session.Snapshot()})
}

func (s *apiServer) handleActive(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	var req activeRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if err := session.Pool().SetActive(req.Viewport); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SessionResponse{Session: session.Snapshot()})
}

func (s *apiServer) handleSync(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	var req syncRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Members != nil {
		if err := session.Pool().SetSyncMembers(req.Members); err != nil {
			s.writeDomainError(w, err)
			return
		}
	}
	if req.Enabled != nil {
		session.Pool().SetSync(*req.Enabled)
	}
	s.writeJSON(w, http.StatusOK, api.SessionResponse{Session: session.Snapshot()})
}

func (s *apiServer) handleSelectSeries(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	vp, ok := s.viewportID(w, r)
	if !ok {
		return
	}
	var req selectSeriesRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if err := session.SelectSeries(r.Context(), vp, req.SeriesUID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	// The first instance load is asynchronous; the snapshot reports it as
	// loading until the decode lands.
	s.writeJSON(w, http.StatusAccepted, api.SessionResponse{Session: session.Snapshot()})
}

func (s *apiServer) handleNavigate(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	vp, ok := s.viewportID(w, r)
	if !ok {
		return
	}
	var req navigateRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if err := session.Pool().Navigate(vp, req.Direction); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SessionResponse{Session: session.Snapshot()})
}

func (s *apiServer) handleSeek(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	vp, ok := s.viewportID(w, r)
	if !ok {
		return
	}
	var req seekRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if err := session.Pool().Seek(vp, req.Index); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SessionResponse{Session: session.Snapshot()})
}

func (s *apiServer) handleSetTransform(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	vp, ok := s.viewportID(w, r)
	if !ok {
		return
	}
	var t render.Transform
	if !s.decodeBody(w, r, &t) {
		return
	}
	if err := session.Pool().SetTransform(vp, t); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, t)
}

func (s *apiServer) handleGetTransform(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	vp, ok := s.viewportID(w, r)
	if !ok {
		return
	}
	t, err := session.Pool().Transform(vp)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, t)
}

func (s *apiServer) handleFramePNG(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	vp, ok := s.viewportID(w, r)
	if !ok {
		return
	}
	frame, err := session.Pool().Frame(vp)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writePNG(w, frame)
}

func (s *apiServer) handleCineStart(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	var req cineRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if err := session.Pool().StartCine(req.Viewport, req.FPS); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SessionResponse{Session: session.Snapshot()})
}

func (s *apiServer) handleCineStop(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	session.Pool().StopCine()
	s.writeJSON(w, http.StatusOK, api.SessionResponse{Session: session.Snapshot()})
}

func (s *apiServer) handleVolumeBuild(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	vp, ok := s.viewportID(w, r)
	if !ok {
		return
	}
	grid, err := session.BuildVolume(r.Context(), vp)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	_, seriesUID, _ := session.Volume()
	s.writeJSON(w, http.StatusCreated, api.VolumeResponse{Volume: api.FromGrid(grid, seriesUID)})
}

func (s *apiServer) handleVolumeGet(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	grid, seriesUID, built := session.Volume()
	if !built {
		s.writeDomainError(w, viewer.ErrVolumeNotBuilt)
		return
	}
	s.writeJSON(w, http.StatusOK, api.VolumeResponse{Volume: api.FromGrid(grid, seriesUID)})
}

func (s *apiServer) handleVolumeDrop(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	session.DropVolume()
	s.writeJSON(w, http.StatusNoContent, nil)
}

func (s *apiServer) handleSlice(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	plane, err := mpr.ParsePlane(strings.ToLower(strings.TrimSpace(r.PathValue("plane"))))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	index, convErr := strconv.Atoi(r.PathValue("index"))
	if convErr != nil {
		s.writeError(w, http.StatusBadRequest, "invalid slice index")
		return
	}
	slice, err := session.ExtractPlane(plane, index)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if slice == nil {
		s.writeError(w, http.StatusNotFound, "slice index out of range")
		return
	}
	if r.URL.Query().Get("format") == "png" {
		img := render.ImageFromSlice(slice.Width, slice.Height, slice.Samples)
		s.writePNG(w, render.RenderFrame(img))
		return
	}
	s.writeJSON(w, http.StatusOK, api.SliceResponse{Slice: api.FromSlice2D(slice)})
}

// session resolves the {id} path segment, writing the error response on
// failure.
func (s *apiServer) session(w http.ResponseWriter, r *http.Request) (*viewer.Session, bool) {
	session, err := s.daemon.Sessions().Get(r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return nil, false
	}
	return session, true
}

// viewportID resolves the {vp} path segment.
func (s *apiServer) viewportID(w http.ResponseWriter, r *http.Request) (int, bool) {
	vp, err := strconv.Atoi(r.PathValue("vp"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid viewport id")
		return 0, false
	}
	return vp, true
}

// decodeBody parses a JSON request body. An empty body leaves the target
// at its zero value so optional parameters can default.
func (s *apiServer) decodeBody(w http.ResponseWriter, r *http.Request, into any) bool {
	err := json.NewDecoder(r.Body).Decode(into)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	s.writeError(w, http.StatusBadRequest, "invalid request body")
	return false
}

func httpStatusFor(err error) int {
	switch {
	case errors.Is(err, viewer.ErrSessionNotFound),
		errors.Is(err, viewer.ErrViewportUnknown),
		errors.Is(err, viewer.ErrVolumeNotBuilt),
		errors.Is(err, viewer.ErrNothingDisplayed),
		errors.Is(err, archive.ErrStudyNotFound),
		errors.Is(err, archive.ErrSeriesNotFound),
		errors.Is(err, archive.ErrInstanceNotFound):
		return http.StatusNotFound
	case errors.Is(err, viewer.ErrInvalidLayout):
		return http.StatusBadRequest
	case errors.Is(err, viewer.ErrCineActive),
		errors.Is(err, viewer.ErrCineStackTooShort),
		errors.Is(err, volume.ErrNoInstances),
		errors.Is(err, volume.ErrNoReadableInstances),
		errors.Is(err, ErrNoLocalArchive):
		return http.StatusConflict
	case errors.Is(err, viewer.ErrSessionLimit):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeDomainError(w http.ResponseWriter, err error) {
	s.writeError(w, httpStatusFor(err), err.Error())
}

func (s *apiServer) writePNG(w http.ResponseWriter, frame *render.Frame) {
	if frame == nil || frame.Width <= 0 || frame.Height <= 0 {
		s.writeError(w, http.StatusInternalServerError, "empty frame")
		return
	}
	img := &image.Gray{
		Pix:    frame.Gray,
		Stride: frame.Width,
		Rect:   image.Rect(0, 0, frame.Width, frame.Height),
	}
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		s.log().Error("failed to encode frame", logging.Error(err))
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	return logging.NewComponentLogger(s.logger, "api-server")
}
