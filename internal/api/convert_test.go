package api_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"lightbox/internal/api"
	"lightbox/internal/archive"
	"lightbox/internal/mpr"
	"lightbox/internal/study"
	"lightbox/internal/testsupport"
	"lightbox/internal/volume"
)

func TestFromStudyRefAppliesDisplayCasing(t *testing.T) {
	ref := study.StudyRef{
		StudyUID:    "1.2.3",
		PatientName: "DOE^JANE^A",
		StudyDate:   time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC),
		Description: "CT CHEST",
	}
	dto := api.FromStudyRef(ref)
	if dto.PatientName != "Doe, Jane A" {
		t.Fatalf("patient name = %q, want %q", dto.PatientName, "Doe, Jane A")
	}
	if dto.StudyDate != "2024-05-17" {
		t.Fatalf("study date = %q, want 2024-05-17", dto.StudyDate)
	}
}

func TestFromStudyRefZeroDate(t *testing.T) {
	dto := api.FromStudyRef(study.StudyRef{StudyUID: "1.2.3", PatientName: "SMITH"})
	if dto.StudyDate != "" {
		t.Fatalf("zero study date rendered as %q", dto.StudyDate)
	}
	if dto.PatientName != "Smith" {
		t.Fatalf("patient name = %q, want Smith", dto.PatientName)
	}
}

func TestSampleEncodingRoundTrip(t *testing.T) {
	samples := []uint16{0, 1, 256, 4095, 65535}
	encoded := api.EncodeSamples(samples)
	if len(encoded) != 2*len(samples) {
		t.Fatalf("encoded length = %d, want %d", len(encoded), 2*len(samples))
	}
	decoded := api.DecodeSamples(encoded)
	if len(decoded) != len(samples) {
		t.Fatalf("decoded length = %d, want %d", len(decoded), len(samples))
	}
	for i, v := range samples {
		if decoded[i] != v {
			t.Fatalf("decoded[%d] = %d, want %d", i, decoded[i], v)
		}
	}
	if api.EncodeSamples(nil) != nil {
		t.Fatal("empty samples should encode to nil")
	}
	if api.DecodeSamples([]byte{7}) != nil {
		t.Fatal("undersized payload should decode to nil")
	}
}

func TestFromSlice2D(t *testing.T) {
	slice := &mpr.Slice2D{
		Plane:   mpr.PlaneSagittal,
		Index:   3,
		Width:   2,
		Height:  2,
		Samples: []uint16{1, 2, 3, 4},
	}
	dto := api.FromSlice2D(slice)
	if dto.Plane != "sagittal" || dto.Index != 3 || dto.Width != 2 || dto.Height != 2 {
		t.Fatalf("slice dto = %+v", dto)
	}
	if got := api.DecodeSamples(dto.Samples); got[3] != 4 {
		t.Fatalf("samples did not round-trip: %v", got)
	}
	if empty := api.FromSlice2D(nil); empty.Samples != nil {
		t.Fatalf("nil slice dto = %+v", empty)
	}
}

func TestFromGrid(t *testing.T) {
	grid := &volume.Grid{
		Width: 2, Height: 2, Depth: 2,
		Voxels:    make([]uint16, 8),
		Populated: []bool{true, false},
	}
	dto := api.FromGrid(grid, "series.9")
	if dto.SeriesUID != "series.9" || dto.Depth != 2 {
		t.Fatalf("volume dto = %+v", dto)
	}
	if dto.Coverage != 0.5 {
		t.Fatalf("coverage = %v, want 0.5", dto.Coverage)
	}
}

func TestArchiveServiceListings(t *testing.T) {
	source := testsupport.NewFakeSource()
	source.AddSeries("study.1", "series.1",
		study.InstanceRef{SOPUID: "s.2", InstanceNumber: 2},
		study.InstanceRef{SOPUID: "s.1", InstanceNumber: 1},
	)
	svc := api.NewArchiveService(source)

	studies, err := svc.Studies(context.Background())
	if err != nil {
		t.Fatalf("Studies: %v", err)
	}
	if len(studies) != 1 || studies[0].PatientName != "Doe, Jane" {
		t.Fatalf("studies = %+v", studies)
	}

	series, err := svc.Series(context.Background(), "study.1")
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if len(series) != 1 || series[0].InstanceCount != 2 {
		t.Fatalf("series = %+v", series)
	}

	instances, err := svc.Instances(context.Background(), "series.1")
	if err != nil {
		t.Fatalf("Instances: %v", err)
	}
	if len(instances) != 2 || instances[0].SOPUID != "s.1" {
		t.Fatalf("instances out of display order: %+v", instances)
	}

	if _, err := svc.Instances(context.Background(), "series.unknown"); !errors.Is(err, archive.ErrSeriesNotFound) {
		t.Fatalf("unknown series error = %v", err)
	}
}
