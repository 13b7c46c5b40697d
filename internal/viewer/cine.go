package viewer

import (
	"context"
	"log/slog"
	"time"

	"lightbox/internal/logging"
	"lightbox/internal/metrics"
)

// CineSnapshot reports the pool's playback state.
type CineSnapshot struct {
	Active     bool `json:"active"`
	ViewportID int  `json:"viewportId"`
	FPS        int  `json:"fps"`
}

// CineScheduler drives timed stack advancement on one viewport. At most
// one playback runs per pool. Unlike manual navigation, autoplay wraps at
// the end of the stack when loop is set; otherwise it rewinds to the
// first instance and stops. Mutable state is guarded by the pool mutex.
type CineScheduler struct {
	pool   *ViewportPool
	logger *slog.Logger
	loop   bool

	active     bool
	viewportID int
	fps        int
	cancel     context.CancelFunc
	done       chan struct{}
}

func newCineScheduler(pool *ViewportPool, loop bool, logger *slog.Logger) *CineScheduler {
	return &CineScheduler{pool: pool, loop: loop, logger: logger}
}

// startLocked begins playback on vp. Callers hold the pool mutex.
func (c *CineScheduler) startLocked(vp *Viewport, fps int) error {
	if c.active {
		return ErrCineActive
	}
	if vp.stack.Len() < 2 {
		return ErrCineStackTooShort
	}
	runCtx, cancel := context.WithCancel(c.pool.ctx)
	c.active = true
	c.viewportID = vp.id
	c.fps = fps
	c.cancel = cancel
	c.done = make(chan struct{})
	c.logger.Info("cine started",
		logging.Int(logging.FieldViewport, vp.id),
		logging.Int("fps", fps),
		logging.Bool("loop", c.loop))
	go c.run(runCtx, vp.id, time.Second/time.Duration(fps), c.done)
	return nil
}

// stopLocked halts playback. Idempotent; callers hold the pool mutex.
// The run goroutine is not waited on here because its tick path takes
// the same mutex; it observes the cleared state or the cancelled context
// on its next wakeup.
func (c *CineScheduler) stopLocked() {
	if !c.active {
		return
	}
	c.active = false
	c.cancel()
	c.cancel = nil
	c.logger.Info("cine stopped", logging.Int(logging.FieldViewport, c.viewportID))
}

// targetsLocked reports whether playback is running on viewportID.
func (c *CineScheduler) targetsLocked(viewportID int) bool {
	return c.active && c.viewportID == viewportID
}

func (c *CineScheduler) snapshotLocked() CineSnapshot {
	if !c.active {
		return CineSnapshot{}
	}
	return CineSnapshot{Active: true, ViewportID: c.viewportID, FPS: c.fps}
}

func (c *CineScheduler) run(ctx context.Context, viewportID int, interval time.Duration, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.tick(viewportID) {
				return
			}
		}
	}
}

// tick advances the target viewport by one instance, wrapping from the
// last to the first. Returns false when playback ended.
func (c *CineScheduler) tick(viewportID int) bool {
	c.pool.mu.Lock()
	defer c.pool.mu.Unlock()

	if !c.active || c.viewportID != viewportID {
		return false
	}
	vp, err := c.pool.viewportLocked(viewportID)
	if err != nil {
		c.stopLocked()
		return false
	}
	length := vp.stack.Len()
	if length < 2 {
		c.stopLocked()
		return false
	}

	metrics.CineTicksTotal.Inc()
	next := (vp.stack.Index() + 1) % length
	if _, _, moved := vp.stack.Seek(next); moved {
		c.pool.loader.request(vp)
		c.pool.propagateLocked(vp)
	}
	if next == 0 && !c.loop {
		c.stopLocked()
		return false
	}
	return true
}
