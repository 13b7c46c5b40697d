package config

import (
	"errors"
	"fmt"
	"strings"
)

// ValidLayouts enumerates the viewport counts the pool supports.
var ValidLayouts = []int{1, 2, 4, 6}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateArchive(); err != nil {
		return err
	}
	if err := c.validateViewer(); err != nil {
		return err
	}
	if err := c.validateVolume(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateArchive() error {
	switch c.Archive.Driver {
	case "local":
	case "dicomweb":
		if strings.TrimSpace(c.DICOMWeb.BaseURL) == "" {
			return errors.New("dicomweb.base_url must be set when archive.driver is \"dicomweb\"")
		}
	default:
		return fmt.Errorf("archive.driver must be \"local\" or \"dicomweb\", got %q", c.Archive.Driver)
	}

	switch c.Archive.IndexDriver {
	case "sqlite":
	case "postgres":
		if c.Archive.PostgresDSN == "" {
			return errors.New("archive.postgres_dsn must be set when archive.index_driver is \"postgres\" (or set LIGHTBOX_POSTGRES_DSN)")
		}
	default:
		return fmt.Errorf("archive.index_driver must be \"sqlite\" or \"postgres\", got %q", c.Archive.IndexDriver)
	}

	switch c.Archive.BlobDriver {
	case "fs":
		if strings.TrimSpace(c.Archive.BlobDir) == "" {
			return errors.New("archive.blob_dir must be set when archive.blob_driver is \"fs\"")
		}
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("s3.bucket must be set when archive.blob_driver is \"s3\"")
		}
	case "memory":
	default:
		return fmt.Errorf("archive.blob_driver must be \"fs\", \"s3\", or \"memory\", got %q", c.Archive.BlobDriver)
	}
	return nil
}

func (c *Config) validateViewer() error {
	if !ValidLayout(c.Viewer.DefaultLayout) {
		return fmt.Errorf("viewer.default_layout must be one of %v, got %d", ValidLayouts, c.Viewer.DefaultLayout)
	}
	if c.Viewer.MaxSessions < 1 {
		return errors.New("viewer.max_sessions must be >= 1")
	}
	if c.Viewer.CineDefaultFPS < 1 {
		return errors.New("viewer.cine_default_fps must be >= 1")
	}
	if c.Viewer.CineMaxFPS < c.Viewer.CineDefaultFPS {
		return errors.New("viewer.cine_max_fps must be >= viewer.cine_default_fps")
	}
	return nil
}

func (c *Config) validateVolume() error {
	if c.Volume.BuildWorkers < 1 {
		return errors.New("volume.build_workers must be >= 1")
	}
	return nil
}

// ValidLayout reports whether n is a supported viewport count.
func ValidLayout(n int) bool {
	for _, v := range ValidLayouts {
		if v == n {
			return true
		}
	}
	return false
}
