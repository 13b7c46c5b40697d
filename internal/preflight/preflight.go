package preflight

import (
	"context"

	"lightbox/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every check applicable to the given config. Backends the
// config does not select are skipped rather than reported as failures.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	if cfg.Archive.BlobDriver == "fs" {
		results = append(results, CheckDirectoryAccess("Blob directory", cfg.Archive.BlobDir))
	}

	if cfg.Archive.IndexDriver == "postgres" {
		results = append(results, CheckPostgres(ctx, cfg.Archive.PostgresDSN))
	}

	if cfg.Archive.Driver == "dicomweb" {
		results = append(results, CheckDICOMWeb(ctx, cfg.DICOMWeb.BaseURL, cfg.DICOMWeb.AuthToken))
	}

	return results
}
