package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"lightbox/internal/archive/blob"
	"lightbox/internal/study"
)

// InstanceRecord is one indexed instance row, including storage details the
// lean study.InstanceRef omits.
type InstanceRecord struct {
	SOPUID         string
	SeriesUID      string
	InstanceNumber int
	Rows           int
	Columns        int
	BlobKey        string
	SizeBytes      int64
}

// Stats summarizes archive contents for status reporting.
type Stats struct {
	Studies   int64
	Series    int64
	Instances int64
	SizeBytes int64
}

// ListStudies returns every archived study, most recent study date first.
func (s *Store) ListStudies(ctx context.Context) ([]study.StudyRef, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT study_uid, patient_name, study_date, description
         FROM studies ORDER BY study_date DESC, study_uid`,
	)
	if err != nil {
		return nil, fmt.Errorf("list studies: %w", err)
	}
	defer rows.Close()

	var refs []study.StudyRef
	for rows.Next() {
		ref, err := scanStudy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan study: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate studies: %w", err)
	}
	return refs, nil
}

// GetStudy fetches one study row. Returns ErrStudyNotFound when missing.
func (s *Store) GetStudy(ctx context.Context, studyUID string) (study.StudyRef, error) {
	row := s.db.QueryRowContext(
		ctx,
		s.rebind(`SELECT study_uid, patient_name, study_date, description
         FROM studies WHERE study_uid = ?`),
		studyUID,
	)
	ref, err := scanStudy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return study.StudyRef{}, fmt.Errorf("%s: %w", studyUID, ErrStudyNotFound)
	}
	if err != nil {
		return study.StudyRef{}, fmt.Errorf("get study: %w", err)
	}
	return ref, nil
}

// ListSeries returns the series of a study ordered by series number.
// Returns ErrStudyNotFound for an unknown study UID.
func (s *Store) ListSeries(ctx context.Context, studyUID string) ([]study.SeriesRef, error) {
	if err := s.requireStudy(ctx, studyUID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(
		ctx,
		s.rebind(`SELECT s.series_uid, s.study_uid, s.modality, s.series_number, s.description,
             (SELECT COUNT(1) FROM instances i WHERE i.series_uid = s.series_uid)
         FROM series s WHERE s.study_uid = ?
         ORDER BY s.series_number, s.series_uid`),
		studyUID,
	)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	var refs []study.SeriesRef
	for rows.Next() {
		var (
			ref      study.SeriesRef
			modality sql.NullString
			desc     sql.NullString
		)
		if err := rows.Scan(&ref.SeriesUID, &ref.StudyUID, &modality, &ref.Number, &desc, &ref.InstanceCount); err != nil {
			return nil, fmt.Errorf("scan series: %w", err)
		}
		ref.Modality = modality.String
		ref.Description = desc.String
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate series: %w", err)
	}
	return refs, nil
}

// ListInstanceRecords returns full index rows for a series in display order.
// Returns ErrSeriesNotFound for an unknown series UID.
func (s *Store) ListInstanceRecords(ctx context.Context, seriesUID string) ([]InstanceRecord, error) {
	if err := s.requireSeries(ctx, seriesUID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(
		ctx,
		s.rebind(`SELECT sop_uid, series_uid, instance_number, pixel_rows, pixel_cols, blob_key, size_bytes
         FROM instances WHERE series_uid = ?
         ORDER BY instance_number, sop_uid`),
		seriesUID,
	)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close()

	var records []InstanceRecord
	for rows.Next() {
		var rec InstanceRecord
		if err := rows.Scan(&rec.SOPUID, &rec.SeriesUID, &rec.InstanceNumber, &rec.Rows, &rec.Columns, &rec.BlobKey, &rec.SizeBytes); err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instances: %w", err)
	}
	return records, nil
}

// ListInstances returns the instances of a series in display order.
// Returns ErrSeriesNotFound for an unknown series UID.
func (s *Store) ListInstances(ctx context.Context, seriesUID string) ([]study.InstanceRef, error) {
	records, err := s.ListInstanceRecords(ctx, seriesUID)
	if err != nil {
		return nil, err
	}
	refs := make([]study.InstanceRef, 0, len(records))
	for _, rec := range records {
		refs = append(refs, study.InstanceRef{SOPUID: rec.SOPUID, InstanceNumber: rec.InstanceNumber})
	}
	return refs, nil
}

// FetchInstanceBytes returns the raw DICOM file for one instance.
// Returns ErrInstanceNotFound for an unknown SOP instance UID or when the
// indexed blob is missing.
func (s *Store) FetchInstanceBytes(ctx context.Context, sopUID string) ([]byte, error) {
	var key string
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT blob_key FROM instances WHERE sop_uid = ?"), sopUID)
	if err := row.Scan(&key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", sopUID, ErrInstanceNotFound)
		}
		return nil, fmt.Errorf("look up instance: %w", err)
	}

	rc, err := s.blobs.Get(ctx, key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", sopUID, ErrInstanceNotFound)
		}
		return nil, fmt.Errorf("read instance blob: %w", err)
	}
	defer func() {
		_ = rc.Close()
	}()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read instance blob: %w", err)
	}
	return data, nil
}

// Stats reports row counts and total stored bytes.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	row := s.db.QueryRowContext(ctx, `SELECT
        (SELECT COUNT(1) FROM studies),
        (SELECT COUNT(1) FROM series),
        (SELECT COUNT(1) FROM instances),
        COALESCE((SELECT SUM(size_bytes) FROM instances), 0)`)
	if err := row.Scan(&stats.Studies, &stats.Series, &stats.Instances, &stats.SizeBytes); err != nil {
		return Stats{}, fmt.Errorf("archive stats: %w", err)
	}
	return stats, nil
}

func (s *Store) requireStudy(ctx context.Context, studyUID string) error {
	var count int
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(1) FROM studies WHERE study_uid = ?"), studyUID)
	if err := row.Scan(&count); err != nil {
		return fmt.Errorf("check study: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%s: %w", studyUID, ErrStudyNotFound)
	}
	return nil
}

func (s *Store) requireSeries(ctx context.Context, seriesUID string) error {
	var count int
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(1) FROM series WHERE series_uid = ?"), seriesUID)
	if err := row.Scan(&count); err != nil {
		return fmt.Errorf("check series: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%s: %w", seriesUID, ErrSeriesNotFound)
	}
	return nil
}

func scanStudy(scanner interface{ Scan(dest ...any) error }) (study.StudyRef, error) {
	var (
		ref     study.StudyRef
		patient sql.NullString
		dateRaw sql.NullString
		desc    sql.NullString
	)
	if err := scanner.Scan(&ref.StudyUID, &patient, &dateRaw, &desc); err != nil {
		return study.StudyRef{}, err
	}
	ref.PatientName = patient.String
	ref.Description = desc.String
	if dateRaw.Valid {
		if date, err := parseTimeString(dateRaw.String); err == nil {
			ref.StudyDate = date
		}
	}
	return ref, nil
}
