package api

import "lightbox/internal/viewer"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// dateFormat is used for study dates, which carry no time of day.
const dateFormat = "2006-01-02"

// Study describes an archived study in a transport-friendly format.
type Study struct {
	StudyUID    string `json:"studyUid"`
	PatientName string `json:"patientName"`
	StudyDate   string `json:"studyDate,omitempty"`
	Description string `json:"description,omitempty"`
}

// Series describes a series within a study.
type Series struct {
	SeriesUID     string `json:"seriesUid"`
	StudyUID      string `json:"studyUid"`
	Modality      string `json:"modality"`
	Number        int    `json:"number"`
	Description   string `json:"description,omitempty"`
	InstanceCount int    `json:"instanceCount"`
}

// Instance describes a single image instance.
type Instance struct {
	SOPUID         string `json:"sopUid"`
	InstanceNumber int    `json:"instanceNumber"`
}

// Session, Viewport, and Cine snapshots marshal in wire form already; the
// API layer reuses them unchanged.
type (
	Session  = viewer.SessionSnapshot
	Viewport = viewer.ViewportSnapshot
	Cine     = viewer.CineSnapshot
)

// ArchiveStats summarizes archive contents.
type ArchiveStats struct {
	Studies   int64 `json:"studies"`
	Series    int64 `json:"series"`
	Instances int64 `json:"instances"`
	SizeBytes int64 `json:"sizeBytes"`
}

// CheckResult mirrors a preflight check outcome.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool          `json:"running"`
	PID          int           `json:"pid"`
	IndexDBPath  string        `json:"indexDbPath"`
	LockFilePath string        `json:"lockFilePath"`
	Archive      ArchiveStats  `json:"archive"`
	OpenSessions int           `json:"openSessions"`
	Checks       []CheckResult `json:"checks,omitempty"`
}

// VolumeSummary reports the outcome of a reconstruction build.
type VolumeSummary struct {
	SeriesUID string  `json:"seriesUid"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Depth     int     `json:"depth"`
	Coverage  float64 `json:"coverage"`
}

// SliceData carries one reformatted plane. Samples hold little-endian
// 16-bit values, row-major; encoding/json transports them as base64.
type SliceData struct {
	Plane   string `json:"plane"`
	Index   int    `json:"index"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Samples []byte `json:"samples"`
}

// StudyListResponse wraps archive study listings.
type StudyListResponse struct {
	Studies []Study `json:"studies"`
}

// SeriesListResponse wraps the series of one study.
type SeriesListResponse struct {
	Series []Series `json:"series"`
}

// InstanceListResponse wraps the instances of one series.
type InstanceListResponse struct {
	Instances []Instance `json:"instances"`
}

// SessionListResponse wraps open session snapshots.
type SessionListResponse struct {
	Sessions []Session `json:"sessions"`
}

// SessionResponse wraps a single session snapshot.
type SessionResponse struct {
	Session Session `json:"session"`
}

// VolumeResponse wraps a reconstruction summary.
type VolumeResponse struct {
	Volume VolumeSummary `json:"volume"`
}

// SliceResponse wraps one extracted plane.
type SliceResponse struct {
	Slice SliceData `json:"slice"`
}

// ImportSummary reports a directory import.
type ImportSummary struct {
	Scanned  int `json:"scanned"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}
