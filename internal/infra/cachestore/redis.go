package cachestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/liskstats/aggregator/internal/core/domain"
)

// RedisConfig holds redis backend settings.
type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	Key      string        `yaml:"key"`
	LeaseTTL time.Duration `yaml:"lease_ttl"`
}

// RedisStore persists the cache under a single key. A SET of the full
// record is atomic, so readers always observe a whole record.
type RedisStore struct {
	rdb *redis.Client
	cfg RedisConfig
	now func() time.Time
}

// NewRedisStore creates a redis-backed store and verifies connectivity.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.Key == "" {
		cfg.Key = "aggregate_cache"
	}
	if cfg.LeaseTTL == 0 {
		cfg.LeaseTTL = 5 * time.Minute
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{rdb: rdb, cfg: cfg, now: time.Now}, nil
}

// Close closes the redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Load reads the last persisted cache.
func (s *RedisStore) Load(ctx context.Context) (*domain.AggregateCache, error) {
	data, err := s.rdb.Get(ctx, s.cfg.Key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read cache key: %w", err)
	}
	return decode(data)
}

// Save writes the cache in a single SET.
func (s *RedisStore) Save(ctx context.Context, cache *domain.AggregateCache) error {
	data, err := encode(cache, s.now())
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.cfg.Key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write cache key: %w", err)
	}
	return nil
}

// Delete removes the persisted record, if any.
func (s *RedisStore) Delete(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.cfg.Key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache key: %w", err)
	}
	return nil
}

func (s *RedisStore) leaseKey() string {
	return s.cfg.Key + ":writer_lease"
}

// AcquireLease claims the single-writer lease for this instance. Returns
// false when another instance holds it.
func (s *RedisStore) AcquireLease(ctx context.Context, owner string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, s.leaseKey(), owner, s.cfg.LeaseTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease: %w", err)
	}
	return ok, nil
}

// ReleaseLease drops the lease if this instance still owns it.
func (s *RedisStore) ReleaseLease(ctx context.Context, owner string) error {
	// Check-and-delete; a lease that expired and was re-acquired by
	// another owner must not be deleted from here.
	current, err := s.rdb.Get(ctx, s.leaseKey()).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read lease: %w", err)
	}
	if current != owner {
		return nil
	}
	if err := s.rdb.Del(ctx, s.leaseKey()).Err(); err != nil {
		return fmt.Errorf("failed to release lease: %w", err)
	}
	return nil
}
