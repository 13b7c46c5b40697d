// Package logging assembles the structured slog loggers used across the
// lightbox daemon and CLI.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes standardized field keys plus context-aware helpers so
// viewer code can tag log lines with session and viewport identifiers without
// repeating the wiring. A no-op logger is provided for tests and for call
// sites that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same shape.
package logging
