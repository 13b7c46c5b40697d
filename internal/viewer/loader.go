package viewer

import (
	"context"
	"fmt"
	"log/slog"

	"lightbox/internal/archive"
	"lightbox/internal/logging"
	"lightbox/internal/metrics"
	"lightbox/internal/render"
	"lightbox/internal/study"
)

// LoadCoordinator fetches and decodes instances for viewports. Requests
// run asynchronously; completions apply under the pool mutex only while
// the generation captured at request time is still the viewport's newest,
// so out-of-order completions can never clobber a newer display.
type LoadCoordinator struct {
	pool   *ViewportPool
	source archive.Source
	engine render.Engine
	logger *slog.Logger
}

// request starts the authoritative load for the viewport's current
// cursor. Callers hold the pool mutex; the generation bump is visible to
// any later request before this one's goroutine observes anything.
func (l *LoadCoordinator) request(vp *Viewport) {
	if vp.stack.Len() == 0 {
		return
	}
	vp.generation++
	vp.loading = true
	vp.lastErr = nil
	go l.run(vp, vp.generation, vp.stack.Catalog(), vp.stack.Index())
}

// run walks the catalog from index, trying each instance until one
// displays or the stack is exhausted. The catalog snapshot stays valid
// for the whole walk: replacing a viewport's catalog always bumps the
// generation, which retires this run.
func (l *LoadCoordinator) run(vp *Viewport, generation uint64, catalog *study.InstanceCatalog, index int) {
	ctx := l.pool.ctx
	for i := index; i < catalog.Len(); i++ {
		ref, ok := catalog.At(i)
		if !ok {
			break
		}
		img, err := l.fetchDecode(ctx, ref)
		if err == nil {
			l.apply(vp, generation, i, img)
			return
		}
		l.logger.Debug("instance unreadable, advancing",
			logging.Int(logging.FieldViewport, vp.id),
			logging.String(logging.FieldSOPUID, ref.SOPUID),
			logging.Int(logging.FieldIndex, i),
			logging.Error(err))
		if i+1 < catalog.Len() {
			metrics.LoadRetriesTotal.Inc()
		}
		if l.retired(vp, generation) {
			metrics.RecordLoad(metrics.OutcomeStale)
			return
		}
	}
	l.fail(vp, generation)
}

func (l *LoadCoordinator) fetchDecode(ctx context.Context, ref study.InstanceRef) (*render.Image, error) {
	data, err := l.source.FetchInstanceBytes(ctx, ref.SOPUID)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref.SOPUID, err)
	}
	img, err := l.engine.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", ref.SOPUID, err)
	}
	return img, nil
}

// retired reports whether a newer request superseded this generation.
func (l *LoadCoordinator) retired(vp *Viewport, generation uint64) bool {
	l.pool.mu.Lock()
	defer l.pool.mu.Unlock()
	return vp.generation != generation
}

// apply presents img on the viewport if the generation still matches.
// The cursor moves to the index that actually displayed, which differs
// from the requested index after failed instances were skipped.
func (l *LoadCoordinator) apply(vp *Viewport, generation uint64, index int, img *render.Image) {
	l.pool.mu.Lock()
	defer l.pool.mu.Unlock()
	if vp.generation != generation {
		metrics.RecordLoad(metrics.OutcomeStale)
		l.logger.Debug("stale load discarded",
			logging.Int(logging.FieldViewport, vp.id),
			logging.String(logging.FieldSOPUID, img.SOPUID),
			logging.Int64(logging.FieldGeneration, int64(generation)))
		return
	}
	vp.loading = false
	vp.stack.Seek(index)
	if err := l.engine.Display(vp.surfaceID, img); err != nil {
		vp.lastErr = fmt.Errorf("display %s: %w", img.SOPUID, err)
		metrics.RecordLoad(metrics.OutcomeFailed)
		l.logger.Warn("display failed",
			logging.Int(logging.FieldViewport, vp.id),
			logging.String(logging.FieldSOPUID, img.SOPUID),
			logging.Error(err))
		return
	}
	vp.lastMeta = &DisplayMeta{
		SOPUID:       img.SOPUID,
		Width:        img.Width,
		Height:       img.Height,
		WindowCenter: img.WindowCenter,
		WindowWidth:  img.WindowWidth,
	}
	metrics.RecordLoad(metrics.OutcomeApplied)
}

// fail marks the viewport unreadable after the walk exhausted the stack.
func (l *LoadCoordinator) fail(vp *Viewport, generation uint64) {
	l.pool.mu.Lock()
	defer l.pool.mu.Unlock()
	if vp.generation != generation {
		metrics.RecordLoad(metrics.OutcomeStale)
		return
	}
	vp.loading = false
	vp.ready = false
	vp.lastErr = ErrStackUnreadable
	metrics.RecordLoad(metrics.OutcomeFailed)
	l.logger.Warn("stack unreadable",
		logging.Int(logging.FieldViewport, vp.id),
		logging.String(logging.FieldSeriesUID, vp.seriesUID),
		logging.Int("stack_length", vp.stack.Len()))
}
