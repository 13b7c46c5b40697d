package viewer_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"lightbox/internal/logging"
	"lightbox/internal/study"
	"lightbox/internal/testsupport"
	"lightbox/internal/viewer"
)

// newTestPool wires a pool over fakes with the default single-viewport
// layout.
func newTestPool(t *testing.T, opts ...testsupport.ConfigOption) (*viewer.ViewportPool, *testsupport.FakeSource, *testsupport.FakeEngine) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	source := testsupport.NewFakeSource()
	engine := testsupport.NewFakeEngine()
	pool, err := viewer.NewViewportPool(context.Background(), cfg, source, engine, logging.NewNop(), "test")
	if err != nil {
		t.Fatalf("NewViewportPool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool, source, engine
}

// instanceRefs builds n refs named prefix.1 .. prefix.n.
func instanceRefs(prefix string, n int) []study.InstanceRef {
	refs := make([]study.InstanceRef, 0, n)
	for i := 1; i <= n; i++ {
		refs = append(refs, study.InstanceRef{SOPUID: fmt.Sprintf("%s.%d", prefix, i), InstanceNumber: i})
	}
	return refs
}

// seedSeries registers a series with fetchable instances on the fake
// source and returns the refs for selection.
func seedSeries(source *testsupport.FakeSource, seriesUID, prefix string, n int) []study.InstanceRef {
	refs := instanceRefs(prefix, n)
	source.AddSeries("study.1", seriesUID, refs...)
	return refs
}

// waitFor polls check until it holds or the deadline expires.
func waitFor(t *testing.T, what string, check func() bool) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if check() {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

// waitIdle waits until the viewport has no load in flight.
func waitIdle(t *testing.T, pool *viewer.ViewportPool, viewportID int) viewer.ViewportSnapshot {
	t.Helper()
	var snap viewer.ViewportSnapshot
	waitFor(t, fmt.Sprintf("viewport %d to settle", viewportID), func() bool {
		var err error
		snap, err = pool.Viewport(viewportID)
		if err != nil {
			t.Fatalf("Viewport(%d): %v", viewportID, err)
		}
		return !snap.Loading
	})
	return snap
}

// displayedOn returns the SOP UID presented on the pool's viewport.
func displayedOn(engine *testsupport.FakeEngine, viewportID int) string {
	sop, _ := engine.Displayed(fmt.Sprintf("test/%d", viewportID))
	return sop
}
