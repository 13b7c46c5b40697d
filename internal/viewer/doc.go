// Package viewer implements the multi-viewport navigation engine: image
// stacks with clamped cursors, asynchronous instance loading with
// last-write-wins application, synchronized navigation groups, cine
// autoplay, and the session lifecycle that binds them together.
//
// Concurrency model: every viewport, stack, sync group, and cine state of
// one session is guarded by a single pool mutex. Navigation mutates the
// cursor and bumps the viewport's load generation synchronously under
// that mutex; fetch and decode run on goroutines without the mutex and
// re-acquire it only to compare generations and apply or discard the
// result. A completion whose generation is no longer current is dropped
// silently, so the displayed image always corresponds to the newest
// request regardless of completion order.
package viewer
