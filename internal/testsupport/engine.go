package testsupport

import (
	"context"
	"fmt"
	"sync"

	"lightbox/internal/render"
)

// FakeEngine implements render.Engine with trivial decoding: the payload
// bytes become the image's SOP instance UID. Decode failures can be
// injected per UID to exercise retry paths.
type FakeEngine struct {
	mu         sync.Mutex
	ready      bool
	surfaces   map[string]*fakeSurface
	decodeErrs map[string]error
	decodes    int
}

type fakeSurface struct {
	sop       string
	transform render.Transform
}

var _ render.Engine = (*FakeEngine)(nil)

// NewFakeEngine returns a FakeEngine with no surfaces.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{
		surfaces:   make(map[string]*fakeSurface),
		decodeErrs: make(map[string]error),
	}
}

// FailDecode makes decoding of the payload for sopUID fail with err.
func (e *FakeEngine) FailDecode(sopUID string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.decodeErrs[sopUID] = err
}

// Displayed returns the SOP instance UID last displayed on a surface.
func (e *FakeEngine) Displayed(id string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	surf, ok := e.surfaces[id]
	if !ok || surf.sop == "" {
		return "", false
	}
	return surf.sop, true
}

// DecodeCount reports how many payloads have been decoded.
func (e *FakeEngine) DecodeCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.decodes
}

// EnsureReady implements render.Engine.
func (e *FakeEngine) EnsureReady(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ready = true
	return nil
}

// CreateSurface implements render.Engine.
func (e *FakeEngine) CreateSurface(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ready {
		return render.ErrNotReady
	}
	if _, ok := e.surfaces[id]; !ok {
		e.surfaces[id] = &fakeSurface{transform: render.IdentityTransform()}
	}
	return nil
}

// ReleaseSurface implements render.Engine.
func (e *FakeEngine) ReleaseSurface(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.surfaces, id)
}

// Decode implements render.Engine.
func (e *FakeEngine) Decode(data []byte) (*render.Image, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.decodes++
	sop := string(data)
	if err := e.decodeErrs[sop]; err != nil {
		return nil, err
	}
	return &render.Image{
		SOPUID:       sop,
		Width:        2,
		Height:       2,
		Samples:      []uint16{0, 1, 2, 3},
		BitsStored:   16,
		Photometric:  render.Monochrome2,
		WindowCenter: 2,
		WindowWidth:  4,
		RescaleSlope: 1,
	}, nil
}

// Display implements render.Engine.
func (e *FakeEngine) Display(id string, img *render.Image) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ready {
		return render.ErrNotReady
	}
	surf, ok := e.surfaces[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, render.ErrNoSurface)
	}
	surf.sop = img.SOPUID
	return nil
}

// Frame implements render.Engine. The frame content is a fixed 2x2 ramp.
func (e *FakeEngine) Frame(id string) (*render.Frame, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	surf, ok := e.surfaces[id]
	if !ok || surf.sop == "" {
		return nil, false
	}
	return &render.Frame{Width: 2, Height: 2, Gray: []uint8{0, 85, 170, 255}}, true
}

// SetTransform implements render.Engine.
func (e *FakeEngine) SetTransform(id string, t render.Transform) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	surf, ok := e.surfaces[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, render.ErrNoSurface)
	}
	surf.transform = t
	return nil
}

// TransformOf implements render.Engine.
func (e *FakeEngine) TransformOf(id string) (render.Transform, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	surf, ok := e.surfaces[id]
	if !ok {
		return render.Transform{}, false
	}
	return surf.transform, true
}
