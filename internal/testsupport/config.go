// Package testsupport provides shared helpers for package tests: temp-dir
// configs, archive seeding, synthetic DICOM files, and fake viewer
// dependencies with controllable failure and completion order.
package testsupport

import (
	"path/filepath"
	"testing"

	"lightbox/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// The archive uses the SQLite index and the in-memory blob driver unless an
// option overrides them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Archive.BlobDriver = "memory"
	cfg.Archive.BlobDir = filepath.Join(base, "blobs")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithBlobDriver overrides the blob storage driver.
func WithBlobDriver(driver string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Archive.BlobDriver = driver
	}
}

// WithAPIToken sets the bearer token required by the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Paths.APIToken = token
	}
}

// WithCineLoop sets the end-of-stack autoplay policy.
func WithCineLoop(loop bool) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Viewer.CineLoop = loop
	}
}

// WithMaxSessions caps concurrent viewer sessions.
func WithMaxSessions(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Viewer.MaxSessions = n
	}
}
