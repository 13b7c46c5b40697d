package archive

import (
	"context"

	"lightbox/internal/study"
)

// Source enumerates archived studies and fetches instance pixel data.
//
// Implementations must return ListInstances results sorted by instance
// number with the SOP instance UID breaking ties, and must keep that order
// stable across calls. Unknown UIDs map to the package sentinel errors so
// callers can distinguish missing data from transport failures.
type Source interface {
	// ListStudies returns every study known to the source.
	ListStudies(ctx context.Context) ([]study.StudyRef, error)

	// ListSeries returns the series belonging to a study, ordered by series
	// number. Returns ErrStudyNotFound for an unknown study UID.
	ListSeries(ctx context.Context, studyUID string) ([]study.SeriesRef, error)

	// ListInstances returns the instances of a series in display order.
	// Returns ErrSeriesNotFound for an unknown series UID.
	ListInstances(ctx context.Context, seriesUID string) ([]study.InstanceRef, error)

	// FetchInstanceBytes returns the raw DICOM file for one instance.
	// Returns ErrInstanceNotFound for an unknown SOP instance UID.
	FetchInstanceBytes(ctx context.Context, sopUID string) ([]byte, error)
}
