package ipc

import "lightbox/internal/api"

// Study mirrors the HTTP API study DTO for internal IPC callers.
type Study = api.Study

// Series mirrors the HTTP API series DTO.
type Series = api.Series

// Instance mirrors the HTTP API instance DTO.
type Instance = api.Instance

// Session mirrors the session snapshot served over HTTP.
type Session = api.Session

// ArchiveStats mirrors the archive statistics DTO.
type ArchiveStats = api.ArchiveStats

// CheckResult mirrors a preflight check outcome.
type CheckResult = api.CheckResult

// VolumeSummary mirrors the reconstruction summary DTO.
type VolumeSummary = api.VolumeSummary

// SliceData mirrors one extracted plane.
type SliceData = api.SliceData

// ImportSummary mirrors an import tally.
type ImportSummary = api.ImportSummary

// StartRequest triggers daemon startup.
type StartRequest struct{}

// StartResponse reports the start outcome; Message carries the reason when
// Started is false.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest asks the daemon to shut down its sessions.
type StopRequest struct{}

// StopResponse acknowledges a stop request.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest asks for a daemon runtime snapshot.
type StatusRequest struct{}

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running      bool          `json:"running"`
	PID          int           `json:"pid"`
	IndexDBPath  string        `json:"index_db_path"`
	LockPath     string        `json:"lock_path"`
	Archive      ArchiveStats  `json:"archive"`
	OpenSessions int           `json:"open_sessions"`
	Checks       []CheckResult `json:"checks"`
}

// ImportRequest ingests a directory of DICOM files.
type ImportRequest struct {
	Path string `json:"path"`
}

// ImportResponse reports the import tally.
type ImportResponse struct {
	Summary ImportSummary `json:"summary"`
}

// StudiesRequest lists archived studies.
type StudiesRequest struct{}

// StudiesResponse contains study entries.
type StudiesResponse struct {
	Studies []Study `json:"studies"`
}

// SeriesRequest lists series for one study.
type SeriesRequest struct {
	StudyUID string `json:"study_uid"`
}

// SeriesResponse contains series entries.
type SeriesResponse struct {
	Series []Series `json:"series"`
}

// InstancesRequest lists instances for one series.
type InstancesRequest struct {
	SeriesUID string `json:"series_uid"`
}

// InstancesResponse contains instance entries in display order.
type InstancesResponse struct {
	Instances []Instance `json:"instances"`
}

// SessionCreateRequest opens a viewer session. Layout zero selects the
// configured default.
type SessionCreateRequest struct {
	Layout int `json:"layout"`
}

// SessionListRequest lists open sessions.
type SessionListRequest struct{}

// SessionListResponse contains session snapshots.
type SessionListResponse struct {
	Sessions []Session `json:"sessions"`
}

// SessionGetRequest fetches one session by id.
type SessionGetRequest struct {
	SessionID string `json:"session_id"`
}

// SessionResponse carries a session snapshot after an operation.
type SessionResponse struct {
	Session Session `json:"session"`
}

// SessionCloseRequest tears down a session.
type SessionCloseRequest struct {
	SessionID string `json:"session_id"`
}

// SessionCloseResponse indicates close result.
type SessionCloseResponse struct {
	Closed bool `json:"closed"`
}

// LayoutRequest changes a session's pane layout.
type LayoutRequest struct {
	SessionID string `json:"session_id"`
	Layout    int    `json:"layout"`
}

// ActiveRequest focuses one viewport.
type ActiveRequest struct {
	SessionID string `json:"session_id"`
	Viewport  int    `json:"viewport"`
}

// SyncRequest toggles linked navigation. A nil Enabled leaves the toggle
// unchanged; a nil Members list leaves the member set unchanged, an empty
// one restores every viewport.
type SyncRequest struct {
	SessionID string `json:"session_id"`
	Enabled   *bool  `json:"enabled"`
	Members   []int  `json:"members"`
}

// SelectSeriesRequest loads a series into a viewport.
type SelectSeriesRequest struct {
	SessionID string `json:"session_id"`
	Viewport  int    `json:"viewport"`
	SeriesUID string `json:"series_uid"`
}

// NavigateRequest steps a viewport's cursor by the sign of Direction.
type NavigateRequest struct {
	SessionID string `json:"session_id"`
	Viewport  int    `json:"viewport"`
	Direction int    `json:"direction"`
}

// SeekRequest moves a viewport's cursor to an absolute index.
type SeekRequest struct {
	SessionID string `json:"session_id"`
	Viewport  int    `json:"viewport"`
	Index     int    `json:"index"`
}

// CineStartRequest begins autoplay on a viewport. FPS zero selects the
// configured default.
type CineStartRequest struct {
	SessionID string `json:"session_id"`
	Viewport  int    `json:"viewport"`
	FPS       int    `json:"fps"`
}

// CineStopRequest halts autoplay.
type CineStopRequest struct {
	SessionID string `json:"session_id"`
}

// VolumeBuildRequest assembles a voxel grid from a viewport's stack.
type VolumeBuildRequest struct {
	SessionID string `json:"session_id"`
	Viewport  int    `json:"viewport"`
}

// VolumeStatusRequest fetches the cached volume summary.
type VolumeStatusRequest struct {
	SessionID string `json:"session_id"`
}

// VolumeResponse carries the reconstruction summary.
type VolumeResponse struct {
	Volume VolumeSummary `json:"volume"`
}

// VolumeDropRequest discards the cached volume.
type VolumeDropRequest struct {
	SessionID string `json:"session_id"`
}

// VolumeDropResponse indicates drop result.
type VolumeDropResponse struct {
	Dropped bool `json:"dropped"`
}

// SliceRequest extracts one reformatted plane from the session volume.
type SliceRequest struct {
	SessionID string `json:"session_id"`
	Plane     string `json:"plane"`
	Index     int    `json:"index"`
}

// SliceResponse carries the extracted plane.
type SliceResponse struct {
	Slice SliceData `json:"slice"`
}

// LogTailRequest fetches daemon log lines by offset with optional follow.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the offset to resume from.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}
