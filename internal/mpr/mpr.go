// Package mpr extracts axis-aligned planes from voxel grids. Extraction
// is a pure read; the grid is never modified and out-of-range requests
// return nil rather than clamping.
package mpr

import (
	"fmt"

	"lightbox/internal/volume"
)

// Plane names an extraction orientation.
type Plane string

const (
	PlaneAxial    Plane = "axial"
	PlaneSagittal Plane = "sagittal"
	PlaneCoronal  Plane = "coronal"
)

// ParsePlane maps a wire name to a Plane.
func ParsePlane(name string) (Plane, error) {
	switch Plane(name) {
	case PlaneAxial, PlaneSagittal, PlaneCoronal:
		return Plane(name), nil
	default:
		return "", fmt.Errorf("unknown plane %q", name)
	}
}

// Slice2D is one extracted plane image.
type Slice2D struct {
	Plane   Plane
	Index   int
	Width   int
	Height  int
	Samples []uint16
}

// Range reports how many planes the grid exposes along the given
// orientation: depth for axial, width for sagittal, height for coronal.
func Range(grid *volume.Grid, plane Plane) int {
	if grid == nil {
		return 0
	}
	switch plane {
	case PlaneAxial:
		return grid.Depth
	case PlaneSagittal:
		return grid.Width
	case PlaneCoronal:
		return grid.Height
	default:
		return 0
	}
}

// Extract resamples one plane from the grid. Axial planes are straight
// copies of a z layer. A sagittal plane at x has one row per z and one
// column per y; a coronal plane at y has one row per z and one column
// per x. Returns nil when index falls outside the plane's range.
func Extract(grid *volume.Grid, plane Plane, index int) *Slice2D {
	if grid == nil || index < 0 || index >= Range(grid, plane) {
		return nil
	}
	switch plane {
	case PlaneAxial:
		return extractAxial(grid, index)
	case PlaneSagittal:
		return extractSagittal(grid, index)
	case PlaneCoronal:
		return extractCoronal(grid, index)
	default:
		return nil
	}
}

func extractAxial(grid *volume.Grid, z int) *Slice2D {
	plane := grid.Width * grid.Height
	samples := make([]uint16, plane)
	copy(samples, grid.Voxels[z*plane:(z+1)*plane])
	return &Slice2D{
		Plane:   PlaneAxial,
		Index:   z,
		Width:   grid.Width,
		Height:  grid.Height,
		Samples: samples,
	}
}

func extractSagittal(grid *volume.Grid, x int) *Slice2D {
	samples := make([]uint16, grid.Height*grid.Depth)
	plane := grid.Width * grid.Height
	for z := 0; z < grid.Depth; z++ {
		base := z * plane
		row := z * grid.Height
		for y := 0; y < grid.Height; y++ {
			samples[row+y] = grid.Voxels[base+y*grid.Width+x]
		}
	}
	return &Slice2D{
		Plane:   PlaneSagittal,
		Index:   x,
		Width:   grid.Height,
		Height:  grid.Depth,
		Samples: samples,
	}
}

func extractCoronal(grid *volume.Grid, y int) *Slice2D {
	samples := make([]uint16, grid.Width*grid.Depth)
	plane := grid.Width * grid.Height
	rowBase := y * grid.Width
	for z := 0; z < grid.Depth; z++ {
		copy(samples[z*grid.Width:(z+1)*grid.Width], grid.Voxels[z*plane+rowBase:z*plane+rowBase+grid.Width])
	}
	return &Slice2D{
		Plane:   PlaneCoronal,
		Index:   y,
		Width:   grid.Width,
		Height:  grid.Depth,
		Samples: samples,
	}
}
