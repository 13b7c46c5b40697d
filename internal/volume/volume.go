// Package volume assembles ordered instance stacks into packed voxel
// grids for multiplanar reconstruction. A build walks the stack with a
// bounded worker fan-out, sizes the grid from the first instance that
// decodes, and leaves unreadable slices zeroed so the result depends only
// on stack order, never on completion order.
package volume

import (
	"errors"
)

var (
	// ErrNoInstances reports a build request over an empty stack.
	ErrNoInstances = errors.New("no instances to assemble")

	// ErrNoReadableInstances reports that every instance in the stack
	// failed to fetch or decode, leaving nothing to size the grid from.
	ErrNoReadableInstances = errors.New("no readable instance in stack")
)

// Slice is one decoded axial plane ready for packing.
type Slice struct {
	Width   int
	Height  int
	Samples []uint16
}

// Grid is a packed voxel volume. Samples are z-major: the voxel at
// (x, y, z) lives at z*Width*Height + y*Width + x. Populated records,
// per z index, whether the source instance actually decoded; unpopulated
// planes hold zeros. A finished grid is never mutated.
type Grid struct {
	Width     int
	Height    int
	Depth     int
	Voxels    []uint16
	Populated []bool
}

// Voxel returns the sample at (x, y, z) with bounds checking.
func (g *Grid) Voxel(x, y, z int) (uint16, bool) {
	if g == nil || x < 0 || x >= g.Width || y < 0 || y >= g.Height || z < 0 || z >= g.Depth {
		return 0, false
	}
	return g.Voxels[z*g.Width*g.Height+y*g.Width+x], true
}

// Coverage reports the fraction of z planes that decoded, in [0, 1].
func (g *Grid) Coverage() float64 {
	if g == nil || g.Depth == 0 {
		return 0
	}
	populated := 0
	for _, ok := range g.Populated {
		if ok {
			populated++
		}
	}
	return float64(populated) / float64(g.Depth)
}
