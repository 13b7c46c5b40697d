// Package daemon coordinates the long-running lightbox process.
//
// It wires configuration, the archive backend, the render engine, and the
// viewer session manager into a single lifecycle with flock-based locking to
// prevent multiple instances. The daemon runs preflight checks at startup,
// serves the HTTP API when a bind address is configured, and answers the
// control socket through the ipc package.
//
// Keep orchestration logic here: viewer semantics live in the viewer package
// and archive access in the archive package, while the daemon focuses on
// startup, shutdown, and request routing.
package daemon
