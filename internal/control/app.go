// Package control wires the aggregation service together and owns its
// lifecycle: store and sink construction, the ingestion scheduler, and the
// HTTP read API.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/liskstats/aggregator/internal/core/config"
)

// leaser is satisfied by stores that support a cross-instance writer
// lease. Scheduled runs are skipped while another instance holds it.
type leaser interface {
	AcquireLease(ctx context.Context, owner string) (bool, error)
	ReleaseLease(ctx context.Context, owner string) error
}

// App is the assembled aggregation service.
type App struct {
	cfg      *config.AppConfig
	log      *slog.Logger
	pipeline *Pipeline
	server   *Server

	instanceID string
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewApp builds the service from configuration.
func NewApp(cfg *config.AppConfig) (*App, error) {
	log := slog.Default()

	pipeline, err := BuildPipeline(cfg, log)
	if err != nil {
		return nil, err
	}

	app := &App{
		cfg:        cfg,
		log:        log,
		pipeline:   pipeline,
		instanceID: uuid.New().String(),
		done:       make(chan struct{}),
	}
	app.server = NewServer(pipeline.Engine, pipeline.Guard, cfg.Server.Port)
	return app, nil
}

// Start launches the HTTP server and the ingestion scheduler.
func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	go func() {
		if err := a.server.Start(); err != nil {
			a.log.Error("HTTP server stopped", "error", err)
		}
	}()
	a.log.Info("HTTP server listening", "port", a.cfg.Server.Port)

	go a.schedule(runCtx)
	return nil
}

// Stop shuts the service down gracefully.
func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	select {
	case <-a.done:
	case <-ctx.Done():
	}

	if err := a.server.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop http server: %w", err)
	}
	a.pipeline.Close()
	return nil
}

// schedule runs a guarded ingestion cycle immediately and then on every
// tick until the context is cancelled.
func (a *App) schedule(ctx context.Context) {
	defer close(a.done)

	a.runOnce(ctx)

	ticker := time.NewTicker(a.cfg.Ingest.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.runOnce(ctx)
		}
	}
}

func (a *App) runOnce(ctx context.Context) {
	if l, ok := a.pipeline.Store.(leaser); ok {
		held, err := l.AcquireLease(ctx, a.instanceID)
		if err != nil {
			a.log.Error("Failed to acquire writer lease", "error", err)
			return
		}
		if !held {
			a.log.Info("Writer lease held elsewhere, skipping cycle")
			return
		}
		defer func() {
			if err := l.ReleaseLease(ctx, a.instanceID); err != nil {
				a.log.Warn("Failed to release writer lease", "error", err)
			}
		}()
	}

	report, err := a.pipeline.Guard.Run(ctx)
	if err != nil {
		a.log.Error("Scheduled ingestion failed", "error", err)
		return
	}
	a.log.Info("Scheduled ingestion complete",
		"run_id", report.RunID,
		"mode", report.Mode,
		"protection_activated", report.ProtectionActivated,
		"folded", report.Folded)
}
