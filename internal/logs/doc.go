// Package logs reads daemon log files with tail semantics shared by the CLI
// and the IPC log endpoint.
//
// A negative offset means "return the last N lines"; non-negative offsets
// resume reading where a previous call stopped, so callers can page through a
// growing file without rereading it. Follow mode polls for new lines up to a
// caller-supplied wait and honors context cancellation so `lightbox logs
// --follow` exits promptly.
//
// Memory stays bounded regardless of file size: tail reads keep only a ring
// of the trailing window.
package logs
