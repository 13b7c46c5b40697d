// Package study defines the immutable identifiers and orderings for DICOM
// studies, series, and instances as the viewer consumes them.
package study

import "time"

// StudyRef identifies a study as stored in the archive index.
type StudyRef struct {
	StudyUID    string
	PatientName string
	StudyDate   time.Time
	Description string
}

// SeriesRef identifies a series within a study.
type SeriesRef struct {
	SeriesUID     string
	StudyUID      string
	Modality      string
	Number        int
	Description   string
	InstanceCount int
}

// InstanceRef identifies a single image instance. Refs are immutable; the
// viewer orders them by InstanceNumber ascending with ties broken by the
// order the archive returned them.
type InstanceRef struct {
	SOPUID         string
	InstanceNumber int
}
