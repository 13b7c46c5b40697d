package api

import (
	"context"

	"lightbox/internal/archive"
)

// ArchiveService exposes read-only archive listings returning API DTOs.
type ArchiveService struct {
	source archive.Source
}

// NewArchiveService constructs an ArchiveService around the provided source.
func NewArchiveService(source archive.Source) *ArchiveService {
	if source == nil {
		return nil
	}
	return &ArchiveService{source: source}
}

// Studies lists every archived study.
func (s *ArchiveService) Studies(ctx context.Context) ([]Study, error) {
	if s == nil || s.source == nil {
		return nil, nil
	}
	refs, err := s.source.ListStudies(ctx)
	if err != nil {
		return nil, err
	}
	return FromStudyRefs(refs), nil
}

// Series lists the series of one study.
func (s *ArchiveService) Series(ctx context.Context, studyUID string) ([]Series, error) {
	if s == nil || s.source == nil {
		return nil, nil
	}
	refs, err := s.source.ListSeries(ctx, studyUID)
	if err != nil {
		return nil, err
	}
	return FromSeriesRefs(refs), nil
}

// Instances lists the instances of one series in display order.
func (s *ArchiveService) Instances(ctx context.Context, seriesUID string) ([]Instance, error) {
	if s == nil || s.source == nil {
		return nil, nil
	}
	refs, err := s.source.ListInstances(ctx, seriesUID)
	if err != nil {
		return nil, err
	}
	return FromInstanceRefs(refs), nil
}
