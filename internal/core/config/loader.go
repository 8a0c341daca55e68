package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Ingest.Address == "" {
		return nil, fmt.Errorf("ingest.address is required")
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Ingest.Interval == 0 {
		cfg.Ingest.Interval = time.Hour
	}
	if cfg.Ingest.MaxPages == 0 {
		cfg.Ingest.MaxPages = 200
	}
	if cfg.Upstream.PageSize == 0 {
		cfg.Upstream.PageSize = 50
	}
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = 30 * time.Second
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "file"
	}
	if cfg.Cache.File.Path == "" {
		cfg.Cache.File.Path = "data/cache.json"
	}
	if cfg.Cache.Redis.Key == "" {
		cfg.Cache.Redis.Key = "aggregate_cache"
	}
	if cfg.Cache.Redis.LeaseTTL == 0 {
		cfg.Cache.Redis.LeaseTTL = 5 * time.Minute
	}
	cfg.Status.ApplyDefaults()

	return &cfg, nil
}
