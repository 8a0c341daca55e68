package config

import (
	"time"

	"github.com/liskstats/aggregator/internal/infra/cachestore"
	"github.com/liskstats/aggregator/internal/infra/snapshot"
	"github.com/liskstats/aggregator/internal/infra/upstream"
	"github.com/liskstats/aggregator/internal/ingest/status"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig      `yaml:"server"`
	Upstream upstream.Config   `yaml:"upstream"`
	Ingest   IngestConfig      `yaml:"ingest"`
	Status   status.Config     `yaml:"status"`
	Cache    cachestore.Config `yaml:"cache"`
	Database snapshot.Config   `yaml:"database"`
	Logging  LoggingConfig     `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// IngestConfig holds settings for the ingestion engine and scheduler.
type IngestConfig struct {
	// Address is the monitored contract address. Only successful
	// transactions to this address are aggregated.
	Address string `yaml:"address"`

	// Interval between scheduled guarded updates.
	Interval time.Duration `yaml:"interval"`

	// MaxPages caps how many pages a quick update may fetch before the
	// stored cursor is declared unreachable and a rebuild is forced.
	MaxPages int `yaml:"max_pages"`

	// Snapshots enables the daily historical snapshot sink.
	Snapshots bool `yaml:"snapshots"`
}
