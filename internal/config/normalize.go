package config

import (
	"fmt"
	"os"
	"strings"
)

// normalize expands paths and fills defaults before validation runs.
func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeArchive(); err != nil {
		return err
	}
	c.normalizeDICOMWeb()
	c.normalizeViewer()
	c.normalizeVolume()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("LIGHTBOX_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeArchive() error {
	var err error
	c.Archive.Driver = strings.ToLower(strings.TrimSpace(c.Archive.Driver))
	if c.Archive.Driver == "" {
		c.Archive.Driver = defaultArchiveDriver
	}
	c.Archive.IndexDriver = strings.ToLower(strings.TrimSpace(c.Archive.IndexDriver))
	if c.Archive.IndexDriver == "" {
		c.Archive.IndexDriver = defaultIndexDriver
	}
	c.Archive.PostgresDSN = strings.TrimSpace(c.Archive.PostgresDSN)
	if c.Archive.PostgresDSN == "" {
		if value, ok := os.LookupEnv("LIGHTBOX_POSTGRES_DSN"); ok {
			c.Archive.PostgresDSN = strings.TrimSpace(value)
		}
	}
	c.Archive.BlobDriver = strings.ToLower(strings.TrimSpace(c.Archive.BlobDriver))
	if c.Archive.BlobDriver == "" {
		c.Archive.BlobDriver = defaultBlobDriver
	}
	if strings.TrimSpace(c.Archive.BlobDir) == "" {
		c.Archive.BlobDir = defaultBlobDir
	}
	if c.Archive.BlobDir, err = expandPath(c.Archive.BlobDir); err != nil {
		return fmt.Errorf("archive.blob_dir: %w", err)
	}

	c.S3.Bucket = strings.TrimSpace(c.S3.Bucket)
	c.S3.Region = strings.TrimSpace(c.S3.Region)
	c.S3.Endpoint = strings.TrimSpace(c.S3.Endpoint)
	c.S3.Prefix = strings.Trim(strings.TrimSpace(c.S3.Prefix), "/")
	c.S3.AccessKeyID = strings.TrimSpace(c.S3.AccessKeyID)
	c.S3.SecretAccessKey = strings.TrimSpace(c.S3.SecretAccessKey)
	return nil
}

func (c *Config) normalizeDICOMWeb() {
	c.DICOMWeb.BaseURL = strings.TrimRight(strings.TrimSpace(c.DICOMWeb.BaseURL), "/")
	c.DICOMWeb.AuthToken = strings.TrimSpace(c.DICOMWeb.AuthToken)
	if c.DICOMWeb.AuthToken == "" {
		if value, ok := os.LookupEnv("LIGHTBOX_DICOMWEB_TOKEN"); ok {
			c.DICOMWeb.AuthToken = strings.TrimSpace(value)
		}
	}
	if c.DICOMWeb.RequestTimeout <= 0 {
		c.DICOMWeb.RequestTimeout = defaultDICOMWebTimeout
	}
}

func (c *Config) normalizeViewer() {
	if c.Viewer.MaxSessions <= 0 {
		c.Viewer.MaxSessions = defaultMaxSessions
	}
	if c.Viewer.SessionTTLMinutes < 0 {
		c.Viewer.SessionTTLMinutes = 0
	}
	if c.Viewer.DefaultLayout == 0 {
		c.Viewer.DefaultLayout = defaultLayout
	}
	if c.Viewer.CineDefaultFPS <= 0 {
		c.Viewer.CineDefaultFPS = defaultCineFPS
	}
	if c.Viewer.CineMaxFPS <= 0 {
		c.Viewer.CineMaxFPS = defaultCineMaxFPS
	}
}

func (c *Config) normalizeVolume() {
	if c.Volume.BuildWorkers <= 0 {
		c.Volume.BuildWorkers = defaultBuildWorkers
	}
}

func (c *Config) normalizeLogging() {
	// Anything other than json renders as console.
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format != "json" {
		format = "console"
	}
	c.Logging.Format = format

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
