package viewer_test

import (
	"errors"
	"testing"

	"lightbox/internal/viewer"
)

func TestSyncGroupMembership(t *testing.T) {
	group := viewer.NewSyncGroup()

	if group.Enabled() {
		t.Fatal("new group should start disabled")
	}
	for _, id := range []int{0, 1, 5} {
		if !group.Contains(id) {
			t.Fatalf("default group should contain %d", id)
		}
	}
	if group.Members() != nil {
		t.Fatal("default member set should be nil")
	}

	group.SetMembers([]int{2, 0})
	if got := group.Members(); len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Fatalf("Members() = %v, want [0 2]", got)
	}
	if group.Contains(1) {
		t.Fatal("restricted group should not contain 1")
	}

	group.SetMembers(nil)
	if !group.Contains(1) || group.Members() != nil {
		t.Fatal("empty member list should restore the full group")
	}
}

// Driver lands on index 4; members with stacks of 5, 3, and 10 must land
// on 4, 2, and 4 respectively, each clamped to its own length.
func TestSyncPropagationClampsPerMember(t *testing.T) {
	pool, source, _ := newTestPool(t)
	if err := pool.SetLayout(4); err != nil {
		t.Fatalf("SetLayout: %v", err)
	}
	series := []struct {
		uid    string
		prefix string
		count  int
	}{
		{"series.a", "a", 5},
		{"series.b", "b", 3},
		{"series.c", "c", 10},
	}
	for i, s := range series {
		refs := seedSeries(source, s.uid, s.prefix, s.count)
		if err := pool.SelectSeries(i, s.uid, refs); err != nil {
			t.Fatalf("SelectSeries %s: %v", s.uid, err)
		}
		waitIdle(t, pool, i)
	}
	pool.SetSync(true)

	if err := pool.Seek(0, 4); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	for i := 0; i < 3; i++ {
		waitIdle(t, pool, i)
	}

	want := []int{4, 2, 4}
	for i, wantIndex := range want {
		snap, err := pool.Viewport(i)
		if err != nil {
			t.Fatalf("Viewport(%d): %v", i, err)
		}
		if snap.CurrentIndex != wantIndex {
			t.Fatalf("viewport %d index = %d, want %d", i, snap.CurrentIndex, wantIndex)
		}
	}

	// The member without a stack stays untouched.
	empty, err := pool.Viewport(3)
	if err != nil {
		t.Fatalf("Viewport(3): %v", err)
	}
	if empty.StackLength != 0 || empty.CurrentIndex != 0 || empty.LastError != "" {
		t.Fatalf("empty viewport disturbed by propagation: %+v", empty)
	}
}

func TestSyncPropagationLoadsFollowerImages(t *testing.T) {
	pool, source, engine := newTestPool(t)
	if err := pool.SetLayout(2); err != nil {
		t.Fatalf("SetLayout: %v", err)
	}
	driver := seedSeries(source, "series.a", "a", 4)
	follower := seedSeries(source, "series.b", "b", 4)
	if err := pool.SelectSeries(0, "series.a", driver); err != nil {
		t.Fatalf("SelectSeries driver: %v", err)
	}
	if err := pool.SelectSeries(1, "series.b", follower); err != nil {
		t.Fatalf("SelectSeries follower: %v", err)
	}
	waitIdle(t, pool, 0)
	waitIdle(t, pool, 1)
	pool.SetSync(true)

	if err := pool.Navigate(0, 1); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	waitFor(t, "driver display", func() bool { return displayedOn(engine, 0) == "a.2" })
	waitFor(t, "follower display", func() bool { return displayedOn(engine, 1) == "b.2" })
}

func TestSyncDisabledDoesNotPropagate(t *testing.T) {
	pool, source, _ := newTestPool(t)
	if err := pool.SetLayout(2); err != nil {
		t.Fatalf("SetLayout: %v", err)
	}
	driver := seedSeries(source, "series.a", "a", 4)
	follower := seedSeries(source, "series.b", "b", 4)
	if err := pool.SelectSeries(0, "series.a", driver); err != nil {
		t.Fatalf("SelectSeries: %v", err)
	}
	if err := pool.SelectSeries(1, "series.b", follower); err != nil {
		t.Fatalf("SelectSeries: %v", err)
	}
	waitIdle(t, pool, 0)
	waitIdle(t, pool, 1)

	if err := pool.Seek(0, 3); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	waitIdle(t, pool, 0)

	snap, err := pool.Viewport(1)
	if err != nil {
		t.Fatalf("Viewport: %v", err)
	}
	if snap.CurrentIndex != 0 {
		t.Fatalf("follower moved to %d with sync disabled", snap.CurrentIndex)
	}
}

func TestSyncRestrictedMembers(t *testing.T) {
	pool, source, _ := newTestPool(t)
	if err := pool.SetLayout(4); err != nil {
		t.Fatalf("SetLayout: %v", err)
	}
	for i, prefix := range []string{"a", "b", "c"} {
		refs := seedSeries(source, "series."+prefix, prefix, 5)
		if err := pool.SelectSeries(i, "series."+prefix, refs); err != nil {
			t.Fatalf("SelectSeries: %v", err)
		}
		waitIdle(t, pool, i)
	}
	pool.SetSync(true)
	if err := pool.SetSyncMembers([]int{0, 2}); err != nil {
		t.Fatalf("SetSyncMembers: %v", err)
	}

	if err := pool.Seek(0, 3); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	waitIdle(t, pool, 0)
	waitIdle(t, pool, 2)

	inGroup, _ := pool.Viewport(2)
	outside, _ := pool.Viewport(1)
	if inGroup.CurrentIndex != 3 {
		t.Fatalf("member index = %d, want 3", inGroup.CurrentIndex)
	}
	if outside.CurrentIndex != 0 {
		t.Fatalf("non-member index = %d, want 0", outside.CurrentIndex)
	}
}

func TestSyncIgnoresNonMemberDriver(t *testing.T) {
	pool, source, _ := newTestPool(t)
	if err := pool.SetLayout(2); err != nil {
		t.Fatalf("SetLayout: %v", err)
	}
	driver := seedSeries(source, "series.a", "a", 5)
	follower := seedSeries(source, "series.b", "b", 5)
	if err := pool.SelectSeries(0, "series.a", driver); err != nil {
		t.Fatalf("SelectSeries: %v", err)
	}
	if err := pool.SelectSeries(1, "series.b", follower); err != nil {
		t.Fatalf("SelectSeries: %v", err)
	}
	waitIdle(t, pool, 0)
	waitIdle(t, pool, 1)
	pool.SetSync(true)
	if err := pool.SetSyncMembers([]int{1}); err != nil {
		t.Fatalf("SetSyncMembers: %v", err)
	}

	if err := pool.Seek(0, 2); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	waitIdle(t, pool, 0)

	snap, _ := pool.Viewport(1)
	if snap.CurrentIndex != 0 {
		t.Fatalf("follower moved to %d from a non-member driver", snap.CurrentIndex)
	}
}

func TestSetSyncMembersValidatesIDs(t *testing.T) {
	pool, _, _ := newTestPool(t)
	if err := pool.SetSyncMembers([]int{0, 4}); !errors.Is(err, viewer.ErrViewportUnknown) {
		t.Fatalf("SetSyncMembers out of range = %v, want ErrViewportUnknown", err)
	}
	if pool.SyncMembers() != nil {
		t.Fatal("rejected member set should not stick")
	}
}
