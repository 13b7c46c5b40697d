package study

import "sort"

// InstanceCatalog is the ordered, deduplicated set of instances for one
// series selection. A catalog is built once and never mutated; replacing a
// viewport's series swaps the whole catalog.
type InstanceCatalog struct {
	refs []InstanceRef
}

// NewCatalog copies refs into a catalog, dropping duplicate SOP UIDs (first
// occurrence wins) and sorting by InstanceNumber ascending. The sort is
// stable so instances sharing a number keep their fetch order.
func NewCatalog(refs []InstanceRef) *InstanceCatalog {
	seen := make(map[string]struct{}, len(refs))
	ordered := make([]InstanceRef, 0, len(refs))
	for _, ref := range refs {
		if ref.SOPUID == "" {
			continue
		}
		if _, dup := seen[ref.SOPUID]; dup {
			continue
		}
		seen[ref.SOPUID] = struct{}{}
		ordered = append(ordered, ref)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].InstanceNumber < ordered[j].InstanceNumber
	})
	return &InstanceCatalog{refs: ordered}
}

// EmptyCatalog returns a catalog with no instances.
func EmptyCatalog() *InstanceCatalog {
	return &InstanceCatalog{}
}

// Len reports the number of instances.
func (c *InstanceCatalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.refs)
}

// At returns the instance at position index. ok is false when index is out
// of range.
func (c *InstanceCatalog) At(index int) (InstanceRef, bool) {
	if c == nil || index < 0 || index >= len(c.refs) {
		return InstanceRef{}, false
	}
	return c.refs[index], true
}

// Refs returns a copy of the ordered instance list.
func (c *InstanceCatalog) Refs() []InstanceRef {
	if c == nil {
		return nil
	}
	out := make([]InstanceRef, len(c.refs))
	copy(out, c.refs)
	return out
}
