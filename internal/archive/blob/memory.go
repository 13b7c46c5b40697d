package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// memoryStore holds blobs in process memory. Intended for tests and
// throwaway setups; nothing survives a restart.
type memoryStore struct {
	mu    sync.RWMutex
	blobs map[string]memoryBlob
}

type memoryBlob struct {
	data    []byte
	modTime time.Time
}

var _ Store = (*memoryStore)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() Store {
	return &memoryStore{blobs: make(map[string]memoryBlob)}
}

func (s *memoryStore) Driver() Driver { return DriverMemory }

func (s *memoryStore) Put(ctx context.Context, key string, r io.Reader) (Info, error) {
	clean, err := sanitizeKey(key)
	if err != nil {
		return Info{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Info{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.blobs[clean]; exists {
		return Info{}, fmt.Errorf("put %s: %w", key, ErrExists)
	}
	now := time.Now().UTC()
	s.blobs[clean] = memoryBlob{data: data, modTime: now}
	return Info{Key: clean, Size: int64(len(data)), LastModified: now}, nil
}

func (s *memoryStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	clean, err := sanitizeKey(key)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	entry, exists := s.blobs[clean]
	s.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("get %s: %w", key, ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(entry.data)), nil
}

func (s *memoryStore) Head(ctx context.Context, key string) (Info, error) {
	clean, err := sanitizeKey(key)
	if err != nil {
		return Info{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, exists := s.blobs[clean]
	if !exists {
		return Info{}, fmt.Errorf("head %s: %w", key, ErrNotFound)
	}
	return Info{Key: clean, Size: int64(len(entry.data)), LastModified: entry.modTime}, nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) (bool, error) {
	clean, err := sanitizeKey(key)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.blobs[clean]; !exists {
		return false, nil
	}
	delete(s.blobs, clean)
	return true, nil
}

func (s *memoryStore) List(ctx context.Context, prefix string) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	infos := make([]Info, 0, len(s.blobs))
	for key, entry := range s.blobs {
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			continue
		}
		infos = append(infos, Info{Key: key, Size: int64(len(entry.data)), LastModified: entry.modTime})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}
