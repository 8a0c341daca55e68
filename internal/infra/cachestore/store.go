// Package cachestore persists the aggregate cache as a single versioned
// record. Three backends implement the same contract: an atomic file, a
// redis key, and an in-process map for tests.
//
// A corrupt, unparsable or unrecognized-version record is surfaced as
// ErrNotFound rather than an error: the engine treats an unreadable cache
// the same as a missing one and rebuilds, keeping the service alive over
// strict validation.
package cachestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/liskstats/aggregator/internal/core/domain"
)

// ErrNotFound is returned by Load when no usable cache record exists.
var ErrNotFound = errors.New("cache record not found")

// Store is the persisted cache contract. Save must be atomic from the
// point of view of concurrent readers: a reader never observes a
// half-written record.
type Store interface {
	// Load returns the last successfully persisted cache, or ErrNotFound.
	Load(ctx context.Context) (*domain.AggregateCache, error)

	// Save persists the cache. Derived fields are recomputed and write
	// metadata refreshed as part of the save; caller-supplied values for
	// them are never trusted.
	Save(ctx context.Context, cache *domain.AggregateCache) error
}

// Config selects and configures the cache backend.
type Config struct {
	Backend string      `yaml:"backend"` // file, redis, memory
	File    FileConfig  `yaml:"file"`
	Redis   RedisConfig `yaml:"redis"`
}

// New builds the configured backend.
func New(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.File), nil
	case "redis":
		return NewRedisStore(cfg.Redis)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// encode normalizes the cache and marshals it for persistence.
func encode(cache *domain.AggregateCache, now time.Time) ([]byte, error) {
	cache.SchemaVersion = domain.SchemaVersion
	cache.Normalize(now)

	data, err := json.Marshal(cache)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cache: %w", err)
	}
	return data, nil
}

// decode parses a persisted record, running schema migrations when needed.
// Anything unusable maps to ErrNotFound.
func decode(data []byte) (*domain.AggregateCache, error) {
	var envelope struct {
		SchemaVersion string `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, ErrNotFound
	}

	if envelope.SchemaVersion != domain.SchemaVersion {
		// Migrated records carry the old layout's fingerprint, so
		// integrity is re-established on the next save instead.
		cache, ok := migrate(envelope.SchemaVersion, data)
		if !ok {
			return nil, ErrNotFound
		}
		return cache, nil
	}

	var cache domain.AggregateCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, ErrNotFound
	}

	if !cache.VerifyIntegrity() {
		return nil, ErrNotFound
	}

	return &cache, nil
}
