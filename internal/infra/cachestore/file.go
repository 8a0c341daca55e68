package cachestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/liskstats/aggregator/internal/core/domain"
)

// FileConfig holds file backend settings.
type FileConfig struct {
	Path string `yaml:"path"`
}

// FileStore persists the cache as a JSON file. Writes go to a temporary
// file in the same directory followed by a rename, so readers always see
// either the previous record or the new one, never a partial write.
type FileStore struct {
	path string
	now  func() time.Time
}

// NewFileStore creates a file-backed store.
func NewFileStore(cfg FileConfig) *FileStore {
	return &FileStore{path: cfg.Path, now: time.Now}
}

// Load reads the last persisted cache.
func (s *FileStore) Load(ctx context.Context) (*domain.AggregateCache, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	return decode(data)
}

// Save writes the cache atomically.
func (s *FileStore) Save(ctx context.Context, cache *domain.AggregateCache) error {
	data, err := encode(cache, s.now())
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to sync cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

// Delete removes the persisted record, if any.
func (s *FileStore) Delete(ctx context.Context) error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}
	return nil
}
