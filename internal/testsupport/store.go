package testsupport

import (
	"context"
	"fmt"
	"testing"

	"lightbox/internal/archive"
	"lightbox/internal/archive/blob"
	"lightbox/internal/config"
	"lightbox/internal/logging"
	"lightbox/internal/study"
)

// MustOpenStore opens an archive.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *archive.Store {
	t.Helper()

	blobs, err := blob.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("blob.Open: %v", err)
	}
	store, err := archive.Open(cfg, blobs, logging.NewNop())
	if err != nil {
		t.Fatalf("archive.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// SeedSeries registers a study, one series, and count complete DICOM
// instances numbered 1..count. Returns the instance refs in display order.
func SeedSeries(t testing.TB, store *archive.Store, studyUID, seriesUID string, count int) []study.InstanceRef {
	t.Helper()

	ctx := context.Background()
	if err := store.PutStudy(ctx, study.StudyRef{StudyUID: studyUID, PatientName: "DOE^JANE"}); err != nil {
		t.Fatalf("PutStudy: %v", err)
	}
	if err := store.PutSeries(ctx, study.SeriesRef{SeriesUID: seriesUID, StudyUID: studyUID, Modality: "CT", Number: 1}); err != nil {
		t.Fatalf("PutSeries: %v", err)
	}

	refs := make([]study.InstanceRef, 0, count)
	for i := 1; i <= count; i++ {
		ref := study.InstanceRef{SOPUID: fmt.Sprintf("%s.%d", seriesUID, i), InstanceNumber: i}
		data := EncodeDICOM(t, DICOMFile{
			StudyUID:       studyUID,
			SeriesUID:      seriesUID,
			SOPUID:         ref.SOPUID,
			InstanceNumber: i,
		})
		if err := store.AddInstance(ctx, seriesUID, ref, 4, 4, data); err != nil {
			t.Fatalf("AddInstance %s: %v", ref.SOPUID, err)
		}
		refs = append(refs, ref)
	}
	return refs
}
