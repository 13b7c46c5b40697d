package viewer

import "lightbox/internal/study"

// ImageStack pairs an ordered instance catalog with a cursor. The cursor
// is always a valid index while the catalog is non-empty; every mutation
// clamps rather than fails. Stacks carry no lock of their own and are
// guarded by the owning pool.
type ImageStack struct {
	catalog *study.InstanceCatalog
	index   int
}

// NewImageStack returns a stack over catalog with the cursor at zero.
func NewImageStack(catalog *study.InstanceCatalog) *ImageStack {
	if catalog == nil {
		catalog = study.EmptyCatalog()
	}
	return &ImageStack{catalog: catalog}
}

// Len returns the number of instances in the stack.
func (s *ImageStack) Len() int {
	return s.catalog.Len()
}

// Index returns the cursor position. Zero on an empty stack.
func (s *ImageStack) Index() int {
	return s.index
}

// Catalog returns the backing catalog.
func (s *ImageStack) Catalog() *study.InstanceCatalog {
	return s.catalog
}

// Current returns the instance under the cursor, false when empty.
func (s *ImageStack) Current() (study.InstanceRef, bool) {
	return s.catalog.At(s.index)
}

// Seek moves the cursor to target clamped to [0, Len-1]. It returns the
// resolved index, the instance at it, and whether the cursor actually
// moved. Seeking an empty stack or seeking to the current position is a
// no-op.
func (s *ImageStack) Seek(target int) (int, study.InstanceRef, bool) {
	length := s.catalog.Len()
	if length == 0 {
		return 0, study.InstanceRef{}, false
	}
	if target < 0 {
		target = 0
	} else if target >= length {
		target = length - 1
	}
	ref, _ := s.catalog.At(target)
	if target == s.index {
		return target, ref, false
	}
	s.index = target
	return target, ref, true
}

// Step moves the cursor one instance forward or backward depending on the
// sign of direction. Steps never wrap: a forward step on the last
// instance and a backward step on the first are no-ops.
func (s *ImageStack) Step(direction int) (int, study.InstanceRef, bool) {
	switch {
	case direction > 0:
		return s.Seek(s.index + 1)
	case direction < 0:
		return s.Seek(s.index - 1)
	default:
		ref, _ := s.Current()
		return s.index, ref, false
	}
}

// Replace swaps in a new catalog and resets the cursor to zero.
func (s *ImageStack) Replace(catalog *study.InstanceCatalog) {
	if catalog == nil {
		catalog = study.EmptyCatalog()
	}
	s.catalog = catalog
	s.index = 0
}
