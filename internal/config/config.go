package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// sampleConfig ships inside the binary so `lightbox config init` works
// without any installed data files.
//
//go:embed sample_config.toml
var sampleConfig string

// Paths locates the daemon's writable directories and its optional HTTP bind.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Archive selects where study metadata and pixel data live.
type Archive struct {
	// Driver chooses the instance source: "local" or "dicomweb".
	Driver string `toml:"driver"`
	// IndexDriver chooses the metadata index backend: "sqlite" or "postgres".
	IndexDriver string `toml:"index_driver"`
	PostgresDSN string `toml:"postgres_dsn"`
	// BlobDriver chooses pixel data storage: "fs", "s3", or "memory".
	BlobDriver string `toml:"blob_driver"`
	BlobDir    string `toml:"blob_dir"`
}

// S3 configures the S3 blob driver.
type S3 struct {
	Bucket          string `toml:"bucket"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	Prefix          string `toml:"prefix"`
	UsePathStyle    bool   `toml:"use_path_style"`
}

// DICOMWeb configures the remote QIDO-RS/WADO-RS archive source.
type DICOMWeb struct {
	BaseURL        string `toml:"base_url"`
	AuthToken      string `toml:"auth_token"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Viewer contains session and playback limits.
type Viewer struct {
	MaxSessions       int  `toml:"max_sessions"`
	SessionTTLMinutes int  `toml:"session_ttl_minutes"`
	DefaultLayout     int  `toml:"default_layout"`
	CineDefaultFPS    int  `toml:"cine_default_fps"`
	CineMaxFPS        int  `toml:"cine_max_fps"`
	// CineLoop controls end-of-stack behavior during autoplay: true wraps to
	// the first instance, false stops playback and rewinds to index 0.
	CineLoop bool `toml:"cine_loop"`
}

// Volume contains volumetric reconstruction settings.
type Volume struct {
	BuildWorkers int `toml:"build_workers"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Metrics controls the Prometheus endpoint on the daemon API listener.
type Metrics struct {
	Enabled bool `toml:"enabled"`
}

// Config encapsulates all configuration values for lightbox.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Archive: metadata index and pixel blob storage drivers
//   - S3: credentials and addressing for the S3 blob driver
//   - DICOMWeb: remote archive endpoint for the dicomweb driver
//   - Viewer: session limits, default layout, cine playback policy
//   - Volume: reconstruction worker pool sizing
//   - Logging: log format and level
//   - Metrics: Prometheus exposition toggle
type Config struct {
	Paths    Paths    `toml:"paths"`
	Archive  Archive  `toml:"archive"`
	S3       S3       `toml:"s3"`
	DICOMWeb DICOMWeb `toml:"dicomweb"`
	Viewer   Viewer   `toml:"viewer"`
	Volume   Volume   `toml:"volume"`
	Logging  Logging  `toml:"logging"`
	Metrics  Metrics  `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/lightbox/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		raw, err := os.ReadFile(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, statErr := os.Stat(expanded)
		switch {
		case statErr == nil:
			return expanded, true, nil
		case errors.Is(statErr, fs.ErrNotExist):
			return expanded, false, nil
		default:
			return "", false, fmt.Errorf("stat config: %w", statErr)
		}
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lightbox.toml")
	if err != nil {
		return "", false, err
	}

	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates every directory the daemon writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir}
	if c.Archive.BlobDriver == "fs" {
		dirs = append(dirs, c.Archive.BlobDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SocketPath returns the unix socket the daemon listens on for IPC.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.DataDir, "lightbox.sock")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "lightboxd.lock")
}

// IndexPath returns the SQLite archive index location.
func (c *Config) IndexPath() string {
	return filepath.Join(c.Paths.DataDir, "archive.db")
}

// CurrentLogPath returns the stable pointer to the active daemon log. The
// daemon relinks it at startup so readers never need the run timestamp.
func (c *Config) CurrentLogPath() string {
	return filepath.Join(c.Paths.LogDir, "lightbox.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return "", nil
	}

	expanded := pathValue
	if expanded == "~" || strings.HasPrefix(expanded, "~/") || strings.HasPrefix(expanded, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if expanded == "~" {
			expanded = home
		} else {
			expanded = filepath.Join(home, expanded[2:])
		}
	}

	absolute, err := filepath.Abs(filepath.Clean(expanded))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", expanded, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the embedded sample configuration to path, creating
// parent directories as needed.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
