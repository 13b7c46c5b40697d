package render

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"lightbox/internal/logging"
)

// SoftwareEngine decodes instances on the CPU and retains one window-leveled
// frame per surface for the API to serve.
type SoftwareEngine struct {
	logger *slog.Logger
	ready  atomic.Bool

	mu       sync.RWMutex
	surfaces map[string]*surface
}

type surface struct {
	frame     *Frame
	transform Transform
}

var _ Engine = (*SoftwareEngine)(nil)

// NewSoftwareEngine constructs an engine. Call EnsureReady before use.
func NewSoftwareEngine(logger *slog.Logger) *SoftwareEngine {
	return &SoftwareEngine{
		logger:   logging.NewComponentLogger(logger, "render"),
		surfaces: make(map[string]*surface),
	}
}

// EnsureReady is idempotent; repeat calls after the first are free.
func (e *SoftwareEngine) EnsureReady(ctx context.Context) error {
	if e.ready.Load() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.ready.CompareAndSwap(false, true) {
		e.logger.Debug("software engine ready")
	}
	return nil
}

func (e *SoftwareEngine) CreateSurface(id string) error {
	if !e.ready.Load() {
		return ErrNotReady
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.surfaces[id]; exists {
		return nil
	}
	e.surfaces[id] = &surface{transform: IdentityTransform()}
	return nil
}

func (e *SoftwareEngine) ReleaseSurface(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.surfaces, id)
}

func (e *SoftwareEngine) Decode(data []byte) (*Image, error) {
	if !e.ready.Load() {
		return nil, ErrNotReady
	}
	return decodeInstance(data)
}

func (e *SoftwareEngine) Display(id string, img *Image) error {
	if !e.ready.Load() {
		return ErrNotReady
	}
	frame := RenderFrame(img)
	if frame == nil {
		return ErrNoPixelData
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	surf, exists := e.surfaces[id]
	if !exists {
		return ErrNoSurface
	}
	surf.frame = frame
	return nil
}

func (e *SoftwareEngine) Frame(id string) (*Frame, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	surf, exists := e.surfaces[id]
	if !exists || surf.frame == nil {
		return nil, false
	}
	gray := make([]uint8, len(surf.frame.Gray))
	copy(gray, surf.frame.Gray)
	return &Frame{Width: surf.frame.Width, Height: surf.frame.Height, Gray: gray}, true
}

func (e *SoftwareEngine) SetTransform(id string, t Transform) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	surf, exists := e.surfaces[id]
	if !exists {
		return ErrNoSurface
	}
	surf.transform = t
	return nil
}

func (e *SoftwareEngine) TransformOf(id string) (Transform, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	surf, exists := e.surfaces[id]
	if !exists {
		return Transform{}, false
	}
	return surf.transform, true
}
