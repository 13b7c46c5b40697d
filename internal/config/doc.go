// Package config loads, normalizes, and validates lightbox configuration data.
//
// Defaults describe a working single-machine setup. Load layers a TOML file
// over them, expands tilde and relative paths, and applies environment
// fallbacks such as LIGHTBOX_API_TOKEN. The resulting Config gathers every
// knob the daemon and CLI share, from archive storage drivers to cine
// playback limits.
//
// Downstream code should go through this package rather than reading files
// itself so it always sees sanitized absolute paths and canonical values.
package config
