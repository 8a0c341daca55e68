package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/liskstats/aggregator/internal/core/config"
	"github.com/liskstats/aggregator/internal/infra/cachestore"
	"github.com/liskstats/aggregator/internal/infra/snapshot"
	"github.com/liskstats/aggregator/internal/infra/upstream"
	"github.com/liskstats/aggregator/internal/ingest"
	"github.com/liskstats/aggregator/internal/ingest/status"
)

// Pipeline is the assembled ingestion stack, shared by the long-running
// service and the one-shot CLI commands.
type Pipeline struct {
	Store  cachestore.Store
	Sink   snapshot.Sink
	Engine *ingest.Engine
	Guard  *ingest.Guard
}

// BuildPipeline constructs the store, sink, engine and guard from
// configuration.
func BuildPipeline(cfg *config.AppConfig, log *slog.Logger) (*Pipeline, error) {
	if log == nil {
		log = slog.Default()
	}

	store, err := cachestore.New(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to init cache store: %w", err)
	}
	log.Info("Cache store initialized", "backend", cfg.Cache.Backend)

	var sink snapshot.Sink
	if cfg.Ingest.Snapshots {
		if cfg.Database.URL != "" {
			pg, err := snapshot.NewPostgresSink(context.Background(), cfg.Database, "migrations")
			if err != nil {
				return nil, fmt.Errorf("failed to init snapshot sink: %w", err)
			}
			sink = pg
			log.Info("Using PostgreSQL snapshot sink")
		} else {
			sink = snapshot.NewMemorySink()
			log.Info("Using in-memory snapshot sink")
		}
	}

	source := upstream.NewHTTPSource(cfg.Upstream)
	classifier := status.NewClassifier(cfg.Status)

	engine := ingest.NewEngine(ingest.Config{
		Address:  cfg.Ingest.Address,
		MaxPages: cfg.Ingest.MaxPages,
	}, store, source, classifier, sink, log)

	return &Pipeline{
		Store:  store,
		Sink:   sink,
		Engine: engine,
		Guard:  ingest.NewGuard(engine, store, log),
	}, nil
}

// Close releases backend connections that support it.
func (p *Pipeline) Close() {
	if closer, ok := p.Sink.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if closer, ok := p.Store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}
