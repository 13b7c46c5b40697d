// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs for
// session control, archive browsing, and volume reconstruction. Snapshot
// and listing payloads alias the api package types so IPC and HTTP callers
// see the same shapes.
//
// Reuse these types when adding new RPC endpoints to keep the protocol
// stable and compatible with existing command implementations.
package ipc
