package viewer

import "errors"

var (
	// ErrStackUnreadable reports that a load request walked the rest of
	// the stack and every instance failed to fetch or decode.
	ErrStackUnreadable = errors.New("no instance in the stack could be displayed")

	// ErrViewportUnknown reports a viewport id outside the current layout.
	ErrViewportUnknown = errors.New("viewport not present in layout")

	// ErrInvalidLayout reports an unsupported viewport count.
	ErrInvalidLayout = errors.New("unsupported layout")

	// ErrCineActive reports a start request while playback is already
	// running on the pool.
	ErrCineActive = errors.New("cine playback already active")

	// ErrCineStackTooShort reports a cine start on a stack with fewer
	// than two instances.
	ErrCineStackTooShort = errors.New("stack too short for cine playback")

	// ErrNothingDisplayed reports a frame request before any instance
	// was presented on the viewport.
	ErrNothingDisplayed = errors.New("viewport has not displayed an instance")

	// ErrSessionNotFound reports an unknown or expired session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionLimit reports that the configured session cap is reached.
	ErrSessionLimit = errors.New("session limit reached")

	// ErrVolumeNotBuilt reports a reconstruction request before any
	// volume was assembled for the session.
	ErrVolumeNotBuilt = errors.New("no volume built for session")
)
