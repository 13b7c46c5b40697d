package mpr_test

import (
	"testing"

	"lightbox/internal/mpr"
	"lightbox/internal/volume"
)

// testGrid builds a 2x3x4 grid where voxel (x, y, z) = x + 10y + 100z.
func testGrid() *volume.Grid {
	const width, height, depth = 2, 3, 4
	grid := &volume.Grid{
		Width:     width,
		Height:    height,
		Depth:     depth,
		Voxels:    make([]uint16, width*height*depth),
		Populated: make([]bool, depth),
	}
	for z := 0; z < depth; z++ {
		grid.Populated[z] = true
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				grid.Voxels[z*width*height+y*width+x] = uint16(x + 10*y + 100*z)
			}
		}
	}
	return grid
}

func TestParsePlane(t *testing.T) {
	for _, name := range []string{"axial", "sagittal", "coronal"} {
		plane, err := mpr.ParsePlane(name)
		if err != nil || string(plane) != name {
			t.Fatalf("ParsePlane(%q) = %q, %v", name, plane, err)
		}
	}
	if _, err := mpr.ParsePlane("oblique"); err == nil {
		t.Fatal("expected error for unknown plane")
	}
}

func TestRange(t *testing.T) {
	grid := testGrid()
	cases := []struct {
		plane mpr.Plane
		want  int
	}{
		{mpr.PlaneAxial, 4},
		{mpr.PlaneSagittal, 2},
		{mpr.PlaneCoronal, 3},
	}
	for _, tc := range cases {
		if got := mpr.Range(grid, tc.plane); got != tc.want {
			t.Fatalf("Range(%s) = %d, want %d", tc.plane, got, tc.want)
		}
	}
	if got := mpr.Range(nil, mpr.PlaneAxial); got != 0 {
		t.Fatalf("Range(nil) = %d, want 0", got)
	}
}

func TestExtractAxialCopiesLayer(t *testing.T) {
	grid := testGrid()
	slice := mpr.Extract(grid, mpr.PlaneAxial, 2)
	if slice == nil {
		t.Fatal("expected slice")
	}
	if slice.Width != 2 || slice.Height != 3 {
		t.Fatalf("axial dims = %dx%d, want 2x3", slice.Width, slice.Height)
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 2; x++ {
			want := uint16(x + 10*y + 200)
			if got := slice.Samples[y*2+x]; got != want {
				t.Fatalf("axial sample (%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}

	// The returned buffer is a copy, not a view into the grid.
	slice.Samples[0] = 9999
	if value, _ := grid.Voxel(0, 0, 2); value != 200 {
		t.Fatalf("grid mutated through extracted slice: voxel = %d", value)
	}
}

func TestExtractSagittalOrientation(t *testing.T) {
	grid := testGrid()
	slice := mpr.Extract(grid, mpr.PlaneSagittal, 1)
	if slice == nil {
		t.Fatal("expected slice")
	}
	// One row per z, one column per y.
	if slice.Width != 3 || slice.Height != 4 {
		t.Fatalf("sagittal dims = %dx%d, want 3x4", slice.Width, slice.Height)
	}
	for z := 0; z < 4; z++ {
		for y := 0; y < 3; y++ {
			want := uint16(1 + 10*y + 100*z)
			if got := slice.Samples[z*3+y]; got != want {
				t.Fatalf("sagittal sample (y=%d,z=%d) = %d, want %d", y, z, got, want)
			}
		}
	}
}

func TestExtractCoronalOrientation(t *testing.T) {
	grid := testGrid()
	slice := mpr.Extract(grid, mpr.PlaneCoronal, 2)
	if slice == nil {
		t.Fatal("expected slice")
	}
	// One row per z, one column per x.
	if slice.Width != 2 || slice.Height != 4 {
		t.Fatalf("coronal dims = %dx%d, want 2x4", slice.Width, slice.Height)
	}
	for z := 0; z < 4; z++ {
		for x := 0; x < 2; x++ {
			want := uint16(x + 20 + 100*z)
			if got := slice.Samples[z*2+x]; got != want {
				t.Fatalf("coronal sample (x=%d,z=%d) = %d, want %d", x, z, got, want)
			}
		}
	}
}

// A stack of flat-value slices must reappear as constant rows in both
// reformatted orientations.
func TestExtractFlatSlicesStayFlatPerRow(t *testing.T) {
	const width, height, depth = 4, 4, 3
	grid := &volume.Grid{
		Width:     width,
		Height:    height,
		Depth:     depth,
		Voxels:    make([]uint16, width*height*depth),
		Populated: []bool{true, true, true},
	}
	values := []uint16{11, 22, 33}
	for z := 0; z < depth; z++ {
		for i := 0; i < width*height; i++ {
			grid.Voxels[z*width*height+i] = values[z]
		}
	}

	for _, plane := range []mpr.Plane{mpr.PlaneSagittal, mpr.PlaneCoronal} {
		slice := mpr.Extract(grid, plane, 1)
		if slice == nil {
			t.Fatalf("expected %s slice", plane)
		}
		if slice.Height != depth {
			t.Fatalf("%s height = %d, want %d", plane, slice.Height, depth)
		}
		for z := 0; z < depth; z++ {
			for col := 0; col < slice.Width; col++ {
				if got := slice.Samples[z*slice.Width+col]; got != values[z] {
					t.Fatalf("%s row %d col %d = %d, want %d", plane, z, col, got, values[z])
				}
			}
		}
	}
}

func TestExtractOutOfRangeReturnsNil(t *testing.T) {
	grid := testGrid()
	cases := []struct {
		plane mpr.Plane
		index int
	}{
		{mpr.PlaneAxial, 4},
		{mpr.PlaneAxial, -1},
		{mpr.PlaneSagittal, 2},
		{mpr.PlaneCoronal, 3},
	}
	for _, tc := range cases {
		if slice := mpr.Extract(grid, tc.plane, tc.index); slice != nil {
			t.Fatalf("Extract(%s, %d) = %+v, want nil", tc.plane, tc.index, slice)
		}
	}
	if slice := mpr.Extract(nil, mpr.PlaneAxial, 0); slice != nil {
		t.Fatal("expected nil for nil grid")
	}
	if slice := mpr.Extract(grid, mpr.Plane("oblique"), 0); slice != nil {
		t.Fatal("expected nil for unknown plane")
	}
}
