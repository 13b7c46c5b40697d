package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"lightbox/internal/archive"
	"lightbox/internal/config"
	"lightbox/internal/logging"
	"lightbox/internal/render"
	"lightbox/internal/study"
)

// ViewportPool owns the viewports of one session. Every mutation of
// viewport, sync, or cine state happens under the pool mutex; render
// surfaces are created and released together with the layout.
type ViewportPool struct {
	cfg           *config.Config
	engine        render.Engine
	logger        *slog.Logger
	surfacePrefix string

	// ctx spans the owning session; in-flight loads stop with it.
	ctx context.Context

	mu        sync.Mutex
	layout    int
	viewports []*Viewport
	active    int
	loader    *LoadCoordinator
	cine      *CineScheduler
	group     *SyncGroup
}

// NewViewportPool builds a pool with the configured default layout. The
// surfacePrefix namespaces render surfaces so pools of different sessions
// share one engine without colliding.
func NewViewportPool(ctx context.Context, cfg *config.Config, source archive.Source, engine render.Engine, logger *slog.Logger, surfacePrefix string) (*ViewportPool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := engine.EnsureReady(ctx); err != nil {
		return nil, fmt.Errorf("render engine: %w", err)
	}
	pool := &ViewportPool{
		cfg:           cfg,
		engine:        engine,
		logger:        logging.NewComponentLogger(logger, "pool"),
		surfacePrefix: surfacePrefix,
		ctx:           ctx,
		group:         NewSyncGroup(),
	}
	pool.loader = &LoadCoordinator{
		pool:   pool,
		source: source,
		engine: engine,
		logger: logging.NewComponentLogger(logger, "loader"),
	}
	pool.cine = newCineScheduler(pool, cfg.Viewer.CineLoop, logging.NewComponentLogger(logger, "cine"))
	if err := pool.buildLocked(cfg.Viewer.DefaultLayout); err != nil {
		return nil, err
	}
	return pool, nil
}

// Layout returns the current viewport count.
func (p *ViewportPool) Layout() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.layout
}

// SetLayout resizes the pool. Resizing is a hard reset: playback stops,
// every stack and display state is discarded, and fresh surfaces replace
// the old ones. In-flight loads from the previous layout retire unseen.
func (p *ViewportPool) SetLayout(layout int) error {
	if !config.ValidLayout(layout) {
		return fmt.Errorf("layout %d: %w", layout, ErrInvalidLayout)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cine.stopLocked()
	p.teardownLocked()
	if err := p.buildLocked(layout); err != nil {
		return err
	}
	p.logger.Info("layout changed", logging.Int("viewports", layout))
	return nil
}

// SelectSeries replaces the viewport's stack with the given instances and
// starts loading the first one. The cursor resets to zero, stale display
// state clears, and playback targeting the viewport stops.
func (p *ViewportPool) SelectSeries(viewportID int, seriesUID string, refs []study.InstanceRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	vp, err := p.viewportLocked(viewportID)
	if err != nil {
		return err
	}
	if p.cine.targetsLocked(viewportID) {
		p.cine.stopLocked()
	}
	vp.stack.Replace(study.NewCatalog(refs))
	vp.seriesUID = seriesUID
	vp.lastMeta = nil
	vp.lastErr = nil
	vp.loading = false
	vp.ready = true
	if vp.stack.Len() > 0 {
		p.loader.request(vp)
	} else {
		// Nothing to load, but any in-flight completion for the old
		// catalog must still retire.
		vp.generation++
	}
	p.logger.Debug("series selected",
		logging.Int(logging.FieldViewport, viewportID),
		logging.String(logging.FieldSeriesUID, seriesUID),
		logging.Int("instances", vp.stack.Len()))
	return nil
}

// Navigate steps the viewport's cursor by the sign of direction. Steps at
// the stack boundary and steps on empty stacks are silent no-ops.
func (p *ViewportPool) Navigate(viewportID, direction int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	vp, err := p.viewportLocked(viewportID)
	if err != nil {
		return err
	}
	if _, _, moved := vp.stack.Step(direction); !moved {
		return nil
	}
	p.loader.request(vp)
	p.propagateLocked(vp)
	return nil
}

// Seek moves the viewport's cursor to target, clamped to the stack.
func (p *ViewportPool) Seek(viewportID, target int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	vp, err := p.viewportLocked(viewportID)
	if err != nil {
		return err
	}
	if _, _, moved := vp.stack.Seek(target); !moved {
		return nil
	}
	p.loader.request(vp)
	p.propagateLocked(vp)
	return nil
}

// SetActive marks viewportID as the focused pane.
func (p *ViewportPool) SetActive(viewportID int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.viewportLocked(viewportID); err != nil {
		return err
	}
	p.active = viewportID
	return nil
}

// ActiveViewport returns the focused pane's id.
func (p *ViewportPool) ActiveViewport() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// SetSync toggles navigation propagation across the sync group.
func (p *ViewportPool) SetSync(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.group.SetEnabled(enabled)
	p.logger.Debug("sync toggled", logging.Bool("enabled", enabled))
}

// SyncEnabled reports whether navigation propagates.
func (p *ViewportPool) SyncEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.group.Enabled()
}

// SetSyncMembers restricts propagation to the given viewports. An empty
// list restores the default of every viewport in the layout.
func (p *ViewportPool) SetSyncMembers(ids []int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		if _, err := p.viewportLocked(id); err != nil {
			return err
		}
	}
	p.group.SetMembers(ids)
	return nil
}

// SyncMembers lists the restricted member set, nil when every viewport
// participates.
func (p *ViewportPool) SyncMembers() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.group.Members()
}

// StartCine begins autoplay on the viewport. fps values of zero or below
// fall back to the configured default; values above the configured cap
// are clamped. Fails when playback is already running or the stack holds
// fewer than two instances.
func (p *ViewportPool) StartCine(viewportID, fps int) error {
	if fps <= 0 {
		fps = p.cfg.Viewer.CineDefaultFPS
	}
	if fps > p.cfg.Viewer.CineMaxFPS {
		fps = p.cfg.Viewer.CineMaxFPS
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	vp, err := p.viewportLocked(viewportID)
	if err != nil {
		return err
	}
	return p.cine.startLocked(vp, fps)
}

// StopCine halts autoplay and waits for the playback goroutine to exit.
// Stopping an idle pool is a no-op.
func (p *ViewportPool) StopCine() {
	p.mu.Lock()
	wasActive := p.cine.active
	done := p.cine.done
	p.cine.stopLocked()
	p.mu.Unlock()
	if wasActive && done != nil {
		<-done
	}
}

// Cine reports the playback state.
func (p *ViewportPool) Cine() CineSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cine.snapshotLocked()
}

// Snapshot copies the state of every viewport in id order.
func (p *ViewportPool) Snapshot() []ViewportSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ViewportSnapshot, 0, len(p.viewports))
	for _, vp := range p.viewports {
		out = append(out, vp.snapshotLocked(vp.id == p.active))
	}
	return out
}

// Viewport copies the state of one viewport.
func (p *ViewportPool) Viewport(viewportID int) (ViewportSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	vp, err := p.viewportLocked(viewportID)
	if err != nil {
		return ViewportSnapshot{}, err
	}
	return vp.snapshotLocked(vp.id == p.active), nil
}

// CatalogFor returns the viewport's catalog and series UID, for callers
// that assemble volumes from the same ordered stack the pane displays.
func (p *ViewportPool) CatalogFor(viewportID int) (*study.InstanceCatalog, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	vp, err := p.viewportLocked(viewportID)
	if err != nil {
		return nil, "", err
	}
	return vp.stack.Catalog(), vp.seriesUID, nil
}

// Frame returns the viewport's current display-ready frame.
func (p *ViewportPool) Frame(viewportID int) (*render.Frame, error) {
	p.mu.Lock()
	vp, err := p.viewportLocked(viewportID)
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}
	surfaceID := vp.surfaceID
	p.mu.Unlock()

	frame, ok := p.engine.Frame(surfaceID)
	if !ok {
		return nil, ErrNothingDisplayed
	}
	return frame, nil
}

// SetTransform stores pan/zoom view state for the viewport's surface.
func (p *ViewportPool) SetTransform(viewportID int, t render.Transform) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	vp, err := p.viewportLocked(viewportID)
	if err != nil {
		return err
	}
	return p.engine.SetTransform(vp.surfaceID, t)
}

// Transform returns the viewport surface's stored view state.
func (p *ViewportPool) Transform(viewportID int) (render.Transform, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	vp, err := p.viewportLocked(viewportID)
	if err != nil {
		return render.Transform{}, err
	}
	t, ok := p.engine.TransformOf(vp.surfaceID)
	if !ok {
		return render.Transform{}, render.ErrNoSurface
	}
	return t, nil
}

// Close stops playback and releases every surface. The pool is unusable
// afterwards.
func (p *ViewportPool) Close() {
	p.StopCine()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.teardownLocked()
}

// viewportLocked resolves an id within the current layout.
func (p *ViewportPool) viewportLocked(viewportID int) (*Viewport, error) {
	if viewportID < 0 || viewportID >= len(p.viewports) {
		return nil, fmt.Errorf("viewport %d: %w", viewportID, ErrViewportUnknown)
	}
	return p.viewports[viewportID], nil
}

// propagateLocked mirrors the driver's cursor onto the other sync group
// members. Each member clamps the target to its own stack length, so
// shorter stacks pin to their last instance. Members with empty stacks
// and viewports outside the group are skipped.
func (p *ViewportPool) propagateLocked(driver *Viewport) {
	if !p.group.Enabled() || !p.group.Contains(driver.id) {
		return
	}
	target := driver.stack.Index()
	for _, vp := range p.viewports {
		if vp.id == driver.id || !p.group.Contains(vp.id) || vp.stack.Len() == 0 {
			continue
		}
		if _, _, moved := vp.stack.Seek(target); moved {
			p.loader.request(vp)
		}
	}
}

// buildLocked creates layout viewports with fresh surfaces.
func (p *ViewportPool) buildLocked(layout int) error {
	viewports := make([]*Viewport, 0, layout)
	for i := 0; i < layout; i++ {
		surfaceID := fmt.Sprintf("%s/%d", p.surfacePrefix, i)
		if err := p.engine.CreateSurface(surfaceID); err != nil {
			for _, vp := range viewports {
				p.engine.ReleaseSurface(vp.surfaceID)
			}
			return fmt.Errorf("create surface %s: %w", surfaceID, err)
		}
		viewports = append(viewports, &Viewport{
			id:        i,
			surfaceID: surfaceID,
			stack:     NewImageStack(nil),
			ready:     true,
		})
	}
	p.viewports = viewports
	p.layout = layout
	p.active = 0
	p.group.SetMembers(nil)
	return nil
}

// teardownLocked retires in-flight loads and releases every surface.
func (p *ViewportPool) teardownLocked() {
	for _, vp := range p.viewports {
		vp.generation++
		p.engine.ReleaseSurface(vp.surfaceID)
	}
	p.viewports = nil
}
