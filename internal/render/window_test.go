package render

import "testing"

func TestWindowLevelMapsRange(t *testing.T) {
	img := &Image{
		Width:        4,
		Height:       1,
		Samples:      []uint16{0, 100, 200, 400},
		WindowCenter: 200,
		WindowWidth:  200,
		RescaleSlope: 1,
		Photometric:  Monochrome2,
	}
	dst := make([]uint8, 4)
	windowLevel(img, dst)

	if dst[0] != 0 {
		t.Fatalf("sample far below window should clamp to 0, got %d", dst[0])
	}
	if dst[3] != 255 {
		t.Fatalf("sample far above window should clamp to 255, got %d", dst[3])
	}
	if dst[1] >= dst[2] {
		t.Fatalf("mapping must be monotonic, got %d then %d", dst[1], dst[2])
	}
}

func TestWindowLevelInvertsMonochrome1(t *testing.T) {
	img := &Image{
		Width:        2,
		Height:       1,
		Samples:      []uint16{0, 1000},
		WindowCenter: 500,
		WindowWidth:  1000,
		RescaleSlope: 1,
		Photometric:  Monochrome1,
	}
	dst := make([]uint8, 2)
	windowLevel(img, dst)
	if dst[0] != 255 {
		t.Fatalf("MONOCHROME1 low sample should display bright, got %d", dst[0])
	}
	if dst[1] != 0 {
		t.Fatalf("MONOCHROME1 high sample should display dark, got %d", dst[1])
	}
}

func TestWindowLevelAppliesRescale(t *testing.T) {
	// CT-style storage: stored 1024 with intercept -1024 is 0 HU.
	img := &Image{
		Width:            1,
		Height:           1,
		Samples:          []uint16{1024},
		WindowCenter:     0,
		WindowWidth:      100,
		RescaleSlope:     1,
		RescaleIntercept: -1024,
		Photometric:      Monochrome2,
	}
	dst := make([]uint8, 1)
	windowLevel(img, dst)
	if dst[0] < 120 || dst[0] > 135 {
		t.Fatalf("0 HU at center of window should land mid-gray, got %d", dst[0])
	}
}

func TestRescaledSignedSamples(t *testing.T) {
	img := &Image{SignedSamples: true, RescaleSlope: 1}
	// 0xFFFF stored as two's complement is -1.
	if got := rescaled(img, 0xFFFF); got != -1 {
		t.Fatalf("expected -1, got %v", got)
	}
	img.SignedSamples = false
	if got := rescaled(img, 0xFFFF); got != 65535 {
		t.Fatalf("expected 65535, got %v", got)
	}
}

func TestAutoWindowCentersOnMean(t *testing.T) {
	img := &Image{
		Samples:      []uint16{90, 100, 110, 100},
		RescaleSlope: 1,
	}
	center, width := autoWindow(img)
	if center != 100 {
		t.Fatalf("expected center 100, got %v", center)
	}
	if width < 1 {
		t.Fatalf("width must be at least 1, got %v", width)
	}
}

func TestAutoWindowFlatImage(t *testing.T) {
	img := &Image{Samples: []uint16{7, 7, 7}, RescaleSlope: 1}
	center, width := autoWindow(img)
	if center != 7 {
		t.Fatalf("expected center 7, got %v", center)
	}
	if width != 1 {
		t.Fatalf("flat image must fall back to width 1, got %v", width)
	}
}

func TestImageFromSliceCopiesBuffer(t *testing.T) {
	samples := []uint16{1, 2, 3, 4, 5, 6}
	img := ImageFromSlice(3, 2, samples)
	if img.Width != 3 || img.Height != 2 {
		t.Fatalf("unexpected geometry %dx%d", img.Width, img.Height)
	}
	samples[0] = 99
	if img.Samples[0] != 1 {
		t.Fatal("ImageFromSlice must copy, not alias, the slice buffer")
	}
	if img.Photometric != Monochrome2 {
		t.Fatalf("expected MONOCHROME2, got %q", img.Photometric)
	}
}
