package api

import (
	"encoding/binary"
	"time"

	"lightbox/internal/archive"
	"lightbox/internal/mpr"
	"lightbox/internal/preflight"
	"lightbox/internal/study"
	"lightbox/internal/volume"
)

// FromStudyRef converts an archive study record to its API representation.
// Patient names leave the DICOM caret form here and never before.
func FromStudyRef(ref study.StudyRef) Study {
	return Study{
		StudyUID:    ref.StudyUID,
		PatientName: study.DisplayPatientName(ref.PatientName),
		StudyDate:   FormatDate(ref.StudyDate),
		Description: ref.Description,
	}
}

// FromStudyRefs converts a slice of study records into API DTOs.
func FromStudyRefs(refs []study.StudyRef) []Study {
	if len(refs) == 0 {
		return nil
	}
	out := make([]Study, 0, len(refs))
	for _, ref := range refs {
		out = append(out, FromStudyRef(ref))
	}
	return out
}

// FromSeriesRef converts a series record to its API representation.
func FromSeriesRef(ref study.SeriesRef) Series {
	return Series{
		SeriesUID:     ref.SeriesUID,
		StudyUID:      ref.StudyUID,
		Modality:      ref.Modality,
		Number:        ref.Number,
		Description:   ref.Description,
		InstanceCount: ref.InstanceCount,
	}
}

// FromSeriesRefs converts a slice of series records into API DTOs.
func FromSeriesRefs(refs []study.SeriesRef) []Series {
	if len(refs) == 0 {
		return nil
	}
	out := make([]Series, 0, len(refs))
	for _, ref := range refs {
		out = append(out, FromSeriesRef(ref))
	}
	return out
}

// FromInstanceRef converts an instance record to its API representation.
func FromInstanceRef(ref study.InstanceRef) Instance {
	return Instance{SOPUID: ref.SOPUID, InstanceNumber: ref.InstanceNumber}
}

// FromInstanceRefs converts a slice of instance records into API DTOs.
func FromInstanceRefs(refs []study.InstanceRef) []Instance {
	if len(refs) == 0 {
		return nil
	}
	out := make([]Instance, 0, len(refs))
	for _, ref := range refs {
		out = append(out, FromInstanceRef(ref))
	}
	return out
}

// FromStats converts archive statistics.
func FromStats(stats archive.Stats) ArchiveStats {
	return ArchiveStats{
		Studies:   stats.Studies,
		Series:    stats.Series,
		Instances: stats.Instances,
		SizeBytes: stats.SizeBytes,
	}
}

// FromImportResult converts an import tally.
func FromImportResult(result *archive.ImportResult) ImportSummary {
	if result == nil {
		return ImportSummary{}
	}
	return ImportSummary{
		Scanned:  result.Scanned,
		Imported: result.Imported,
		Skipped:  result.Skipped,
		Failed:   result.Failed,
	}
}

// FromResults converts preflight check outcomes.
func FromResults(results []preflight.Result) []CheckResult {
	if len(results) == 0 {
		return nil
	}
	out := make([]CheckResult, 0, len(results))
	for _, r := range results {
		out = append(out, CheckResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return out
}

// FromGrid summarizes a reconstructed volume.
func FromGrid(grid *volume.Grid, seriesUID string) VolumeSummary {
	if grid == nil {
		return VolumeSummary{SeriesUID: seriesUID}
	}
	return VolumeSummary{
		SeriesUID: seriesUID,
		Width:     grid.Width,
		Height:    grid.Height,
		Depth:     grid.Depth,
		Coverage:  grid.Coverage(),
	}
}

// FromSlice2D converts an extracted plane into its transport form.
func FromSlice2D(slice *mpr.Slice2D) SliceData {
	if slice == nil {
		return SliceData{}
	}
	return SliceData{
		Plane:   string(slice.Plane),
		Index:   slice.Index,
		Width:   slice.Width,
		Height:  slice.Height,
		Samples: EncodeSamples(slice.Samples),
	}
}

// EncodeSamples packs 16-bit samples little-endian for transport.
func EncodeSamples(samples []uint16) []byte {
	if len(samples) == 0 {
		return nil
	}
	out := make([]byte, 2*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], v)
	}
	return out
}

// DecodeSamples unpacks transport bytes back into 16-bit samples.
func DecodeSamples(data []byte) []uint16 {
	if len(data) < 2 {
		return nil
	}
	out := make([]uint16, len(data)/2)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(data[2*i:])
	}
	return out
}

// FormatTime renders t as RFC3339 in UTC; the zero time renders empty.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// FormatDate renders the date part only, empty for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateFormat)
}
