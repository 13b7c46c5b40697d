// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates archive records and viewer state into
// transport-friendly DTOs that UI clients can render without coupling to
// internal types.
//
// # Key Types
//
// Study/Series/Instance: archive listings with patient names converted to
// display casing.
//
// DaemonStatus: daemon running state, archive stats, open sessions, and
// preflight check results.
//
// VolumeSummary/SliceData: reconstruction results; slice samples travel as
// little-endian 16-bit values inside a base64 JSON field.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Session,
// viewport, and cine snapshots from the viewer package already marshal in
// wire form and are re-exported here unchanged. Timestamps use RFC3339 with
// milliseconds; study dates are bare dates.
package api
