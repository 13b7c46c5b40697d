package viewer

// DisplayMeta describes the image a viewport last presented successfully.
type DisplayMeta struct {
	SOPUID       string  `json:"sopUid"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	WindowCenter float64 `json:"windowCenter"`
	WindowWidth  float64 `json:"windowWidth"`
}

// Viewport is one pane of the pool: a stack, its render surface, and the
// transient load state. All fields are guarded by the pool mutex.
type Viewport struct {
	id        int
	surfaceID string
	seriesUID string
	stack     *ImageStack

	// generation counts authoritative load requests. A completion
	// carrying an older generation is discarded.
	generation uint64

	ready    bool
	loading  bool
	lastMeta *DisplayMeta
	lastErr  error
}

// ViewportSnapshot is a copied, lock-free view of one viewport.
type ViewportSnapshot struct {
	ID           int          `json:"id"`
	Active       bool         `json:"active"`
	Ready        bool         `json:"ready"`
	Loading      bool         `json:"loading"`
	SeriesUID    string       `json:"seriesUid,omitempty"`
	StackLength  int          `json:"stackLength"`
	CurrentIndex int          `json:"currentIndex"`
	Displayed    *DisplayMeta `json:"displayed,omitempty"`
	LastError    string       `json:"lastError,omitempty"`
}

// snapshotLocked copies the viewport state. Callers hold the pool mutex.
func (v *Viewport) snapshotLocked(active bool) ViewportSnapshot {
	snap := ViewportSnapshot{
		ID:           v.id,
		Active:       active,
		Ready:        v.ready,
		Loading:      v.loading,
		SeriesUID:    v.seriesUID,
		StackLength:  v.stack.Len(),
		CurrentIndex: v.stack.Index(),
	}
	if v.lastMeta != nil {
		meta := *v.lastMeta
		snap.Displayed = &meta
	}
	if v.lastErr != nil {
		snap.LastError = v.lastErr.Error()
	}
	return snap
}
