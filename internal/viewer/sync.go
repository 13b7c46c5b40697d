package viewer

import "sort"

// SyncGroup tracks which viewports follow each other's stack navigation.
// A nil member set means every viewport in the layout belongs to the
// group. State is guarded by the owning pool's mutex.
type SyncGroup struct {
	enabled bool
	members map[int]struct{}
}

// NewSyncGroup returns a disabled group containing every viewport.
func NewSyncGroup() *SyncGroup {
	return &SyncGroup{}
}

// SetEnabled toggles propagation.
func (g *SyncGroup) SetEnabled(on bool) {
	g.enabled = on
}

// Enabled reports whether navigation propagates.
func (g *SyncGroup) Enabled() bool {
	return g.enabled
}

// SetMembers restricts the group to ids. An empty list restores the
// default of every viewport.
func (g *SyncGroup) SetMembers(ids []int) {
	if len(ids) == 0 {
		g.members = nil
		return
	}
	g.members = make(map[int]struct{}, len(ids))
	for _, id := range ids {
		g.members[id] = struct{}{}
	}
}

// Contains reports whether the viewport participates in propagation.
func (g *SyncGroup) Contains(id int) bool {
	if g.members == nil {
		return true
	}
	_, ok := g.members[id]
	return ok
}

// Members lists the restricted member set in ascending order, nil when
// the group covers every viewport.
func (g *SyncGroup) Members() []int {
	if g.members == nil {
		return nil
	}
	out := make([]int, 0, len(g.members))
	for id := range g.members {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
