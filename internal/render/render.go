// Package render owns pixel decoding and display preparation.
//
// The Engine interface is the seam between viewer state and the rendering
// backend. The daemon constructs one engine and hands the same reference to
// every collaborator; EnsureReady may be called repeatedly and concurrently,
// and operations against an engine that has not been readied fail with
// ErrNotReady rather than initializing implicitly.
//
// The software engine in this package decodes DICOM instances with
// github.com/suyashkumar/dicom and prepares window-leveled 8-bit frames that
// the HTTP API serves to UI clients. No GPU path exists here.
package render

import (
	"context"
	"errors"
)

// Sentinel errors surfaced by engine implementations.
var (
	ErrNotReady    = errors.New("render engine not ready")
	ErrNoSurface   = errors.New("render surface does not exist")
	ErrNoPixelData = errors.New("instance has no pixel data")
	ErrEncapsulated = errors.New("encapsulated transfer syntax not supported")
)

// Photometric interpretation values the engine understands.
const (
	Monochrome1 = "MONOCHROME1"
	Monochrome2 = "MONOCHROME2"
)

// Image is one decoded instance: raw stored samples plus the attributes
// display preparation needs. Samples are row-major, one value per pixel.
type Image struct {
	SOPUID           string
	Width            int
	Height           int
	Samples          []uint16
	BitsStored       int
	SignedSamples    bool
	Photometric      string
	WindowCenter     float64
	WindowWidth      float64
	RescaleSlope     float64
	RescaleIntercept float64
}

// Transform is opaque per-surface view state (pan/zoom). The engine stores
// and returns it; nothing in this package interprets the values.
type Transform struct {
	Scale float64 `json:"scale"`
	PanX  float64 `json:"panX"`
	PanY  float64 `json:"panY"`
}

// IdentityTransform is the initial view state for a fresh surface.
func IdentityTransform() Transform {
	return Transform{Scale: 1}
}

// Frame is a display-ready 8-bit grayscale buffer.
type Frame struct {
	Width  int
	Height int
	Gray   []uint8
}

// Engine decodes instances and presents them on named surfaces.
type Engine interface {
	// EnsureReady initializes the engine. It is idempotent and safe to call
	// from any goroutine.
	EnsureReady(ctx context.Context) error
	// CreateSurface registers a display surface. Creating an existing
	// surface is a no-op.
	CreateSurface(id string) error
	// ReleaseSurface drops a surface and its retained frame.
	ReleaseSurface(id string)
	// Decode parses one DICOM instance into an Image.
	Decode(data []byte) (*Image, error)
	// Display window-levels img onto the surface.
	Display(id string, img *Image) error
	// Frame returns a copy of the last displayed frame for the surface.
	Frame(id string) (*Frame, bool)
	// SetTransform stores opaque view state for the surface.
	SetTransform(id string, t Transform) error
	// TransformOf returns the stored view state for the surface.
	TransformOf(id string) (Transform, bool)
}

// ImageFromSlice builds a displayable image from a reconstructed plane. This
// is the only path from volume data back into the display pipeline; callers
// pass the slice geometry explicitly so no buffer is ever reinterpreted in
// place.
func ImageFromSlice(width, height int, samples []uint16) *Image {
	out := make([]uint16, len(samples))
	copy(out, samples)
	return &Image{
		Width:        width,
		Height:       height,
		Samples:      out,
		BitsStored:   16,
		Photometric:  Monochrome2,
		RescaleSlope: 1,
	}
}
