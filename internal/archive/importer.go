package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"lightbox/internal/logging"
	"lightbox/internal/render"
	"lightbox/internal/study"
)

// Importer ingests DICOM files into the archive Store.
type Importer struct {
	store  *Store
	logger *slog.Logger
}

// ImportResult tallies one import run.
type ImportResult struct {
	Scanned  int
	Imported int
	Skipped  int
	Failed   int
}

// NewImporter returns an Importer writing into store.
func NewImporter(store *Store, logger *slog.Logger) *Importer {
	return &Importer{
		store:  store,
		logger: logging.NewComponentLogger(logger, "importer"),
	}
}

// ImportDirectory walks dir recursively and imports every .dcm file found.
// Unreadable or unparsable files are counted as failures and logged, not
// fatal. Instances already archived count as skips, so re-importing the
// same tree is safe.
func (im *Importer) ImportDirectory(ctx context.Context, dir string) (*ImportResult, error) {
	result := &ImportResult{}
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".dcm") {
			return nil
		}
		result.Scanned++

		data, err := os.ReadFile(path)
		if err != nil {
			result.Failed++
			im.logger.Warn("read import file", logging.String("path", path), logging.Error(err))
			return nil
		}
		meta, err := im.ImportBytes(ctx, data)
		switch {
		case errors.Is(err, ErrDuplicateInstance):
			result.Skipped++
		case err != nil:
			result.Failed++
			im.logger.Warn("import file", logging.String("path", path), logging.Error(err))
		default:
			result.Imported++
			im.logger.Debug("imported instance",
				logging.String(logging.FieldSOPUID, meta.SOPUID),
				logging.String(logging.FieldSeriesUID, meta.SeriesUID))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	im.logger.Info("import complete",
		logging.String("dir", dir),
		logging.Int("scanned", result.Scanned),
		logging.Int("imported", result.Imported),
		logging.Int("skipped", result.Skipped),
		logging.Int("failed", result.Failed))
	return result, nil
}

// ImportBytes parses one DICOM file and registers it in the archive,
// creating study and series rows as needed.
func (im *Importer) ImportBytes(ctx context.Context, data []byte) (*render.InstanceMeta, error) {
	meta, err := render.ExtractMeta(data)
	if err != nil {
		return nil, fmt.Errorf("extract metadata: %w", err)
	}
	if meta.StudyUID == "" {
		return nil, fmt.Errorf("instance %s: missing StudyInstanceUID", meta.SOPUID)
	}

	if err := im.store.PutStudy(ctx, study.StudyRef{
		StudyUID:    meta.StudyUID,
		PatientName: meta.PatientName,
		StudyDate:   meta.StudyDate,
		Description: meta.StudyDescription,
	}); err != nil {
		return nil, err
	}
	if err := im.store.PutSeries(ctx, study.SeriesRef{
		SeriesUID:   meta.SeriesUID,
		StudyUID:    meta.StudyUID,
		Modality:    meta.Modality,
		Number:      meta.SeriesNumber,
		Description: meta.SeriesDescription,
	}); err != nil {
		return nil, err
	}

	ref := study.InstanceRef{SOPUID: meta.SOPUID, InstanceNumber: meta.InstanceNumber}
	if err := im.store.AddInstance(ctx, meta.SeriesUID, ref, meta.Rows, meta.Columns, data); err != nil {
		return nil, err
	}
	return meta, nil
}
