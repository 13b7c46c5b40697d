// Package blob stores instance pixel data behind a small S3-like interface.
//
// Keys are forward-slash paths assigned by the archive ("series/<uid>/<sop>.dcm").
// Blobs are immutable: Put refuses to overwrite, and readers may cache freely.
// Three drivers exist: local filesystem (default), S3-compatible object
// storage, and an in-memory store for tests.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	DriverFS     Driver = "fs"
	DriverS3     Driver = "s3"
	DriverMemory Driver = "memory"
)

// Sentinel errors shared by all drivers.
var (
	ErrNotFound = errors.New("blob not found")
	ErrExists   = errors.New("blob already exists")
)

// Info describes a stored blob.
type Info struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store is the interface pixel data backends implement.
type Store interface {
	// Put stores a new blob at key and fails with ErrExists if the key is
	// already present.
	Put(ctx context.Context, key string, r io.Reader) (Info, error)
	// Get opens the blob for reading. Missing keys return ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Head returns metadata only. Missing keys return ErrNotFound.
	Head(ctx context.Context, key string) (Info, error)
	// Delete removes a blob, reporting false when it did not exist.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns blobs under prefix ordered by key ascending.
	List(ctx context.Context, prefix string) ([]Info, error)
	// Driver reports the backend in use.
	Driver() Driver
}

// sanitizeKey rejects traversal and absolute keys before they reach a driver.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty blob key")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("absolute blob key %q", key)
	}
	clean := filepath.ToSlash(filepath.Clean(key))
	if clean == ".." || strings.HasPrefix(clean, "../") || strings.Contains(clean, "/../") {
		return "", fmt.Errorf("blob key %q escapes the store root", key)
	}
	return clean, nil
}
