package volume_test

import (
	"testing"

	"lightbox/internal/volume"
)

func TestVoxelBoundsChecking(t *testing.T) {
	grid := &volume.Grid{
		Width:  2,
		Height: 2,
		Depth:  2,
		Voxels: []uint16{
			0, 1,
			2, 3,
			10, 11,
			12, 13,
		},
		Populated: []bool{true, true},
	}

	value, ok := grid.Voxel(1, 0, 1)
	if !ok || value != 11 {
		t.Fatalf("Voxel(1,0,1) = %d, %v, want 11, true", value, ok)
	}
	if _, ok := grid.Voxel(2, 0, 0); ok {
		t.Fatal("expected x out of range to fail")
	}
	if _, ok := grid.Voxel(0, -1, 0); ok {
		t.Fatal("expected negative y to fail")
	}
	if _, ok := grid.Voxel(0, 0, 2); ok {
		t.Fatal("expected z out of range to fail")
	}

	var nilGrid *volume.Grid
	if _, ok := nilGrid.Voxel(0, 0, 0); ok {
		t.Fatal("expected nil grid lookup to fail")
	}
}

func TestCoverage(t *testing.T) {
	grid := &volume.Grid{Depth: 4, Populated: []bool{true, false, true, true}}
	if got := grid.Coverage(); got != 0.75 {
		t.Fatalf("Coverage() = %v, want 0.75", got)
	}

	var nilGrid *volume.Grid
	if got := nilGrid.Coverage(); got != 0 {
		t.Fatalf("nil grid Coverage() = %v, want 0", got)
	}
	empty := &volume.Grid{}
	if got := empty.Coverage(); got != 0 {
		t.Fatalf("empty grid Coverage() = %v, want 0", got)
	}
}
