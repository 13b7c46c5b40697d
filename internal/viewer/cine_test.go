package viewer_test

import (
	"errors"
	"testing"

	"lightbox/internal/testsupport"
	"lightbox/internal/viewer"
)

func TestCineWrapsAtStackEnd(t *testing.T) {
	pool, source, engine := newTestPool(t)
	refs := seedSeries(source, "series.1", "s", 4)
	if err := pool.SelectSeries(0, "series.1", refs); err != nil {
		t.Fatalf("SelectSeries: %v", err)
	}
	waitIdle(t, pool, 0)

	if err := pool.StartCine(0, 20); err != nil {
		t.Fatalf("StartCine: %v", err)
	}

	waitFor(t, "playback to reach the last instance", func() bool {
		return displayedOn(engine, 0) == "s.4"
	})
	waitFor(t, "playback to wrap to the first instance", func() bool {
		return displayedOn(engine, 0) == "s.1"
	})

	cine := pool.Cine()
	if !cine.Active || cine.ViewportID != 0 || cine.FPS != 20 {
		t.Fatalf("cine state = %+v, want active on viewport 0 at 20 fps", cine)
	}
	pool.StopCine()
	if pool.Cine().Active {
		t.Fatal("cine still active after stop")
	}
}

func TestCineStopsAndRewindsWhenLoopDisabled(t *testing.T) {
	pool, source, engine := newTestPool(t, testsupport.WithCineLoop(false))
	refs := seedSeries(source, "series.1", "s", 3)
	if err := pool.SelectSeries(0, "series.1", refs); err != nil {
		t.Fatalf("SelectSeries: %v", err)
	}
	waitIdle(t, pool, 0)

	if err := pool.StartCine(0, 20); err != nil {
		t.Fatalf("StartCine: %v", err)
	}

	waitFor(t, "playback to stop at the end", func() bool { return !pool.Cine().Active })
	snap := waitIdle(t, pool, 0)
	if snap.CurrentIndex != 0 {
		t.Fatalf("index after end-of-stack stop = %d, want 0", snap.CurrentIndex)
	}
	waitFor(t, "rewind display", func() bool { return displayedOn(engine, 0) == "s.1" })
}

func TestCineRejectsShortStacks(t *testing.T) {
	pool, source, _ := newTestPool(t)

	if err := pool.StartCine(0, 10); !errors.Is(err, viewer.ErrCineStackTooShort) {
		t.Fatalf("StartCine on empty stack = %v, want ErrCineStackTooShort", err)
	}

	refs := seedSeries(source, "series.1", "s", 1)
	if err := pool.SelectSeries(0, "series.1", refs); err != nil {
		t.Fatalf("SelectSeries: %v", err)
	}
	waitIdle(t, pool, 0)
	if err := pool.StartCine(0, 10); !errors.Is(err, viewer.ErrCineStackTooShort) {
		t.Fatalf("StartCine on single instance = %v, want ErrCineStackTooShort", err)
	}
}

func TestCineRejectsConcurrentPlayback(t *testing.T) {
	pool, source, _ := newTestPool(t)
	if err := pool.SetLayout(2); err != nil {
		t.Fatalf("SetLayout: %v", err)
	}
	first := seedSeries(source, "series.a", "a", 3)
	second := seedSeries(source, "series.b", "b", 3)
	if err := pool.SelectSeries(0, "series.a", first); err != nil {
		t.Fatalf("SelectSeries: %v", err)
	}
	if err := pool.SelectSeries(1, "series.b", second); err != nil {
		t.Fatalf("SelectSeries: %v", err)
	}
	waitIdle(t, pool, 0)
	waitIdle(t, pool, 1)

	if err := pool.StartCine(0, 10); err != nil {
		t.Fatalf("StartCine: %v", err)
	}
	if err := pool.StartCine(1, 10); !errors.Is(err, viewer.ErrCineActive) {
		t.Fatalf("second StartCine = %v, want ErrCineActive", err)
	}

	pool.StopCine()
	if err := pool.StartCine(1, 10); err != nil {
		t.Fatalf("StartCine after stop: %v", err)
	}
}

func TestStopCineIsIdempotent(t *testing.T) {
	pool, source, _ := newTestPool(t)
	pool.StopCine()

	refs := seedSeries(source, "series.1", "s", 3)
	if err := pool.SelectSeries(0, "series.1", refs); err != nil {
		t.Fatalf("SelectSeries: %v", err)
	}
	waitIdle(t, pool, 0)
	if err := pool.StartCine(0, 10); err != nil {
		t.Fatalf("StartCine: %v", err)
	}
	pool.StopCine()
	pool.StopCine()
	if pool.Cine().Active {
		t.Fatal("cine active after double stop")
	}
}

func TestCineFPSBounds(t *testing.T) {
	pool, source, _ := newTestPool(t)
	refs := seedSeries(source, "series.1", "s", 3)
	if err := pool.SelectSeries(0, "series.1", refs); err != nil {
		t.Fatalf("SelectSeries: %v", err)
	}
	waitIdle(t, pool, 0)

	// Zero falls back to the configured default.
	if err := pool.StartCine(0, 0); err != nil {
		t.Fatalf("StartCine(0): %v", err)
	}
	if got := pool.Cine().FPS; got != 10 {
		t.Fatalf("default fps = %d, want 10", got)
	}
	pool.StopCine()

	// Values above the cap clamp to it.
	if err := pool.StartCine(0, 500); err != nil {
		t.Fatalf("StartCine(500): %v", err)
	}
	if got := pool.Cine().FPS; got != 60 {
		t.Fatalf("clamped fps = %d, want 60", got)
	}
	pool.StopCine()
}

func TestLayoutChangeStopsCine(t *testing.T) {
	pool, source, _ := newTestPool(t)
	refs := seedSeries(source, "series.1", "s", 3)
	if err := pool.SelectSeries(0, "series.1", refs); err != nil {
		t.Fatalf("SelectSeries: %v", err)
	}
	waitIdle(t, pool, 0)
	if err := pool.StartCine(0, 10); err != nil {
		t.Fatalf("StartCine: %v", err)
	}

	if err := pool.SetLayout(2); err != nil {
		t.Fatalf("SetLayout: %v", err)
	}
	if pool.Cine().Active {
		t.Fatal("cine survived layout change")
	}
}

func TestSeriesReplacementStopsCineOnTarget(t *testing.T) {
	pool, source, _ := newTestPool(t)
	first := seedSeries(source, "series.a", "a", 3)
	second := seedSeries(source, "series.b", "b", 3)
	if err := pool.SelectSeries(0, "series.a", first); err != nil {
		t.Fatalf("SelectSeries: %v", err)
	}
	waitIdle(t, pool, 0)
	if err := pool.StartCine(0, 10); err != nil {
		t.Fatalf("StartCine: %v", err)
	}

	if err := pool.SelectSeries(0, "series.b", second); err != nil {
		t.Fatalf("replacement SelectSeries: %v", err)
	}
	if pool.Cine().Active {
		t.Fatal("cine survived series replacement on its viewport")
	}
}

func TestPoolCloseStopsCine(t *testing.T) {
	pool, source, _ := newTestPool(t)
	refs := seedSeries(source, "series.1", "s", 3)
	if err := pool.SelectSeries(0, "series.1", refs); err != nil {
		t.Fatalf("SelectSeries: %v", err)
	}
	waitIdle(t, pool, 0)
	if err := pool.StartCine(0, 10); err != nil {
		t.Fatalf("StartCine: %v", err)
	}

	pool.Close()
	if pool.Cine().Active {
		t.Fatal("cine active after pool close")
	}
}
