package archive

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"

	"lightbox/internal/archive/blob"
	"lightbox/internal/config"
	"lightbox/internal/logging"
	"lightbox/internal/study"
)

// Store is the local archive backend: a SQL metadata index plus a blob
// store holding the raw instance files.
type Store struct {
	db     *sql.DB
	path   string
	driver string
	blobs  blob.Store
	logger *slog.Logger
}

var _ Source = (*Store)(nil)

// Open connects the archive index and applies pending migrations. The
// backend follows cfg.Archive.IndexDriver: SQLite keeps its database under
// the data directory, Postgres connects to cfg.Archive.PostgresDSN.
func Open(cfg *config.Config, blobs blob.Store, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	store := &Store{
		driver: cfg.Archive.IndexDriver,
		blobs:  blobs,
		logger: logging.NewComponentLogger(logger, "archive"),
	}

	switch cfg.Archive.IndexDriver {
	case "postgres":
		db, err := sql.Open("pgx", cfg.Archive.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres index: %w", err)
		}
		if err := db.PingContext(context.Background()); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping postgres index: %w", err)
		}
		store.db = db
	default:
		dbPath := cfg.IndexPath()
		db, err := sql.Open("sqlite", dbPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite index: %w", err)
		}
		pragmas := []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA foreign_keys = ON",
			"PRAGMA busy_timeout = 5000",
		}
		for _, pragma := range pragmas {
			if _, execErr := db.Exec(pragma); execErr != nil {
				_ = db.Close()
				return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
			}
		}
		store.db = db
		store.path = dbPath
	}

	if err := store.applyMigrations(context.Background()); err != nil {
		_ = store.db.Close()
		return nil, err
	}

	store.logger.Debug("archive index ready",
		logging.String("driver", store.driver),
		logging.String("path", store.path))
	return store, nil
}

// Close releases the index database. Safe on a nil store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Blobs exposes the blob store backing this archive.
func (s *Store) Blobs() blob.Store {
	return s.blobs
}

// rebind rewrites ? placeholders into the $n form Postgres expects.
// SQLite queries pass through unchanged.
func (s *Store) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// PutStudy inserts or refreshes one study row.
func (s *Store) PutStudy(ctx context.Context, ref study.StudyRef) error {
	if ref.StudyUID == "" {
		return errors.New("study uid is empty")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		s.rebind(`INSERT INTO studies (study_uid, patient_name, study_date, description, created_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (study_uid) DO UPDATE SET
             patient_name = excluded.patient_name,
             study_date = excluded.study_date,
             description = excluded.description`),
		ref.StudyUID,
		nullableString(ref.PatientName),
		nullableTime(ref.StudyDate),
		nullableString(ref.Description),
		now,
	)
	if err != nil {
		return fmt.Errorf("put study: %w", err)
	}
	return nil
}

// PutSeries inserts or refreshes one series row. The parent study row must
// already exist.
func (s *Store) PutSeries(ctx context.Context, ref study.SeriesRef) error {
	if ref.SeriesUID == "" {
		return errors.New("series uid is empty")
	}
	if ref.StudyUID == "" {
		return errors.New("study uid is empty")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		s.rebind(`INSERT INTO series (series_uid, study_uid, modality, series_number, description, created_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT (series_uid) DO UPDATE SET
             modality = excluded.modality,
             series_number = excluded.series_number,
             description = excluded.description`),
		ref.SeriesUID,
		ref.StudyUID,
		nullableString(ref.Modality),
		ref.Number,
		nullableString(ref.Description),
		now,
	)
	if err != nil {
		return fmt.Errorf("put series: %w", err)
	}
	return nil
}

// AddInstance writes one instance file to the blob store and indexes it.
// The parent series row must already exist. Returns ErrDuplicateInstance
// when the SOP instance UID is already archived.
func (s *Store) AddInstance(ctx context.Context, seriesUID string, ref study.InstanceRef, pixelRows, pixelCols int, data []byte) error {
	if ref.SOPUID == "" {
		return errors.New("sop instance uid is empty")
	}
	if seriesUID == "" {
		return errors.New("series uid is empty")
	}

	var count int
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(1) FROM instances WHERE sop_uid = ?"), ref.SOPUID)
	if err := row.Scan(&count); err != nil {
		return fmt.Errorf("check instance: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%s: %w", ref.SOPUID, ErrDuplicateInstance)
	}

	key := instanceKey(seriesUID, ref.SOPUID)
	info, err := s.blobs.Put(ctx, key, bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, blob.ErrExists) {
			return fmt.Errorf("%s: %w", ref.SOPUID, ErrDuplicateInstance)
		}
		return fmt.Errorf("store instance blob: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(
		ctx,
		s.rebind(`INSERT INTO instances (sop_uid, series_uid, instance_number, pixel_rows, pixel_cols, blob_key, size_bytes, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		ref.SOPUID,
		seriesUID,
		ref.InstanceNumber,
		pixelRows,
		pixelCols,
		key,
		info.Size,
		now,
	)
	if err != nil {
		_, _ = s.blobs.Delete(ctx, key)
		return fmt.Errorf("index instance: %w", err)
	}
	return nil
}

func instanceKey(seriesUID, sopUID string) string {
	return fmt.Sprintf("series/%s/%s.dcm", seriesUID, sopUID)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
