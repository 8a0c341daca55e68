package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/liskstats/aggregator/internal/core/domain"
	"github.com/liskstats/aggregator/internal/core/timeutil"
	"github.com/liskstats/aggregator/internal/infra/cachestore"
	"github.com/liskstats/aggregator/internal/ingest/metrics"
)

// Guard decides, before each scheduled ingestion, whether a quick update
// suffices or a full re-sync is required.
//
// The scheduled trigger can silently fail to run for a day. A purely
// cursor-based quick update never notices, because the cursor tracks the
// newest transaction rather than day coverage. The guard instead compares
// the day keys expected between the cache's earliest tracked day and
// yesterday against the recorded day statuses and forces a rebuild when
// any closed day has no trustworthy entry.
type Guard struct {
	engine *Engine
	store  cachestore.Store
	log    *slog.Logger
	now    func() time.Time
}

// NewGuard creates a gap guard over the engine and its store.
func NewGuard(engine *Engine, store cachestore.Store, log *slog.Logger) *Guard {
	if log == nil {
		log = slog.Default()
	}
	return &Guard{engine: engine, store: store, log: log, now: time.Now}
}

// SetClock overrides the guard clock, for tests.
func (g *Guard) SetClock(now func() time.Time) {
	g.now = now
}

// MissingDays returns every day key between the cache's earliest tracked
// day and yesterday that lacks a trustworthy entry: either no status at
// all, or incomplete_data on a day that has closed.
func MissingDays(cache *domain.AggregateCache, now time.Time) []string {
	earliest := cache.EarliestDay()
	if earliest == "" {
		return nil
	}
	yesterday := timeutil.PreviousDayKey(now)

	var missing []string
	for _, day := range timeutil.DayKeysBetween(earliest, yesterday) {
		st, ok := cache.DailyStatus[day]
		if !ok {
			missing = append(missing, day)
			continue
		}
		if st == domain.DayStatusIncompleteData && timeutil.IsDayComplete(day, now) {
			missing = append(missing, day)
		}
	}
	return missing
}

// Run performs one guarded ingestion cycle: it inspects the persisted
// cache, picks advance or rebuild, and reports the decision.
func (g *Guard) Run(ctx context.Context) (*Report, error) {
	cache, err := g.store.Load(ctx)
	if err != nil {
		if errors.Is(err, cachestore.ErrNotFound) {
			g.log.Info("Gap guard: no usable cache, bootstrapping")
			return g.engine.Rebuild(ctx)
		}
		return nil, fmt.Errorf("failed to inspect cache: %w", err)
	}

	missing := MissingDays(cache, g.now())
	if len(missing) == 0 {
		return g.engine.Advance(ctx)
	}

	metrics.GapDaysDetected.Add(float64(len(missing)))
	metrics.ProtectionActivations.Inc()
	g.log.Warn("Gap guard: missing days detected, forcing full re-sync",
		"missing_days", len(missing),
		"first", missing[0],
		"last", missing[len(missing)-1])

	report, err := g.engine.Rebuild(ctx)
	if err != nil {
		return nil, err
	}
	report.ProtectionActivated = true
	report.MissingDays = missing
	return report, nil
}
