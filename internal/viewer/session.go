package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"lightbox/internal/archive"
	"lightbox/internal/config"
	"lightbox/internal/logging"
	"lightbox/internal/metrics"
	"lightbox/internal/mpr"
	"lightbox/internal/render"
	"lightbox/internal/study"
	"lightbox/internal/volume"
)

// Session binds one client's viewer state: a viewport pool plus an
// optional reconstructed volume. Loads started by the session stop when
// the session closes, not when the request that triggered them returns.
type Session struct {
	id        string
	createdAt time.Time
	cfg       *config.Config
	source    archive.Source
	engine    render.Engine
	logger    *slog.Logger
	pool      *ViewportPool
	cancel    context.CancelFunc

	mu         sync.Mutex
	lastAccess time.Time
	closed     bool
	grid       *volume.Grid
	gridSeries string
}

func newSession(id string, cfg *config.Config, source archive.Source, engine render.Engine, logger *slog.Logger) (*Session, error) {
	ctx, cancel := context.WithCancel(context.Background())
	sessionLogger := logger.With(logging.String(logging.FieldSessionID, id))
	pool, err := NewViewportPool(ctx, cfg, source, engine, sessionLogger, "session/"+id)
	if err != nil {
		cancel()
		return nil, err
	}
	now := time.Now()
	return &Session{
		id:         id,
		createdAt:  now,
		cfg:        cfg,
		source:     source,
		engine:     engine,
		logger:     sessionLogger,
		pool:       pool,
		cancel:     cancel,
		lastAccess: now,
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// CreatedAt returns the creation time.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// LastAccess returns the time of the most recent client operation.
func (s *Session) LastAccess() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

// Pool returns the session's viewport pool.
func (s *Session) Pool() *ViewportPool {
	return s.pool
}

// touch refreshes the idle clock.
func (s *Session) touch() {
	s.mu.Lock()
	s.lastAccess = time.Now()
	s.mu.Unlock()
}

// SelectSeries resolves the series' instances through the archive and
// loads them into the viewport. ctx bounds only the listing; the instance
// loads that follow belong to the session.
func (s *Session) SelectSeries(ctx context.Context, viewportID int, seriesUID string) error {
	refs, err := s.source.ListInstances(ctx, seriesUID)
	if err != nil {
		return fmt.Errorf("list instances for %s: %w", seriesUID, err)
	}
	return s.pool.SelectSeries(viewportID, seriesUID, refs)
}

// BuildVolume assembles a voxel grid from the viewport's current stack.
// The grid is cached per series; rebuilding for the same series returns
// the cached grid, a different series replaces it.
func (s *Session) BuildVolume(ctx context.Context, viewportID int) (*volume.Grid, error) {
	catalog, seriesUID, err := s.pool.CatalogFor(viewportID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.grid != nil && s.gridSeries == seriesUID {
		grid := s.grid
		s.mu.Unlock()
		return grid, nil
	}
	s.mu.Unlock()

	assembler := volume.NewAssembler(s.fetchSlice, s.cfg.Volume.BuildWorkers, s.logger)
	grid, err := assembler.Build(ctx, catalog)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.grid = grid
	s.gridSeries = seriesUID
	s.mu.Unlock()
	return grid, nil
}

// Volume returns the cached grid and its source series.
func (s *Session) Volume() (*volume.Grid, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grid == nil {
		return nil, "", false
	}
	return s.grid, s.gridSeries, true
}

// DropVolume discards the cached grid.
func (s *Session) DropVolume() {
	s.mu.Lock()
	s.grid = nil
	s.gridSeries = ""
	s.mu.Unlock()
}

// ExtractPlane cuts one reformatted plane from the session's volume.
// Requires a prior BuildVolume; out-of-range indexes return nil without
// error so callers can distinguish them from missing volumes.
func (s *Session) ExtractPlane(plane mpr.Plane, index int) (*mpr.Slice2D, error) {
	s.mu.Lock()
	grid := s.grid
	s.mu.Unlock()
	if grid == nil {
		return nil, ErrVolumeNotBuilt
	}
	slice := mpr.Extract(grid, plane, index)
	if slice != nil {
		metrics.SlicesExtractedTotal.WithLabelValues(string(plane)).Inc()
	}
	return slice, nil
}

// fetchSlice adapts the archive fetch plus engine decode into the
// assembler's slice loader.
func (s *Session) fetchSlice(ctx context.Context, ref study.InstanceRef) (*volume.Slice, error) {
	data, err := s.source.FetchInstanceBytes(ctx, ref.SOPUID)
	if err != nil {
		return nil, err
	}
	img, err := s.engine.Decode(data)
	if err != nil {
		return nil, err
	}
	return &volume.Slice{Width: img.Width, Height: img.Height, Samples: img.Samples}, nil
}

// Close tears down the pool and cancels every load the session owns.
// Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.grid = nil
	s.gridSeries = ""
	s.mu.Unlock()

	s.pool.Close()
	s.cancel()
	s.logger.Info("session closed")
}

// SessionSnapshot is a copied view of a session for listings and status.
type SessionSnapshot struct {
	ID             string             `json:"id"`
	CreatedAt      time.Time          `json:"createdAt"`
	LastAccess     time.Time          `json:"lastAccess"`
	Layout         int                `json:"layout"`
	ActiveViewport int                `json:"activeViewport"`
	SyncEnabled    bool               `json:"syncEnabled"`
	Cine           CineSnapshot       `json:"cine"`
	Viewports      []ViewportSnapshot `json:"viewports"`
	VolumeSeries   string             `json:"volumeSeries,omitempty"`
}

// Snapshot copies the session state.
func (s *Session) Snapshot() SessionSnapshot {
	snap := SessionSnapshot{
		ID:             s.id,
		CreatedAt:      s.createdAt,
		LastAccess:     s.LastAccess(),
		Layout:         s.pool.Layout(),
		ActiveViewport: s.pool.ActiveViewport(),
		SyncEnabled:    s.pool.SyncEnabled(),
		Cine:           s.pool.Cine(),
		Viewports:      s.pool.Snapshot(),
	}
	if _, seriesUID, ok := s.Volume(); ok {
		snap.VolumeSeries = seriesUID
	}
	return snap
}
