// Package ingest orchestrates the load-fetch-fold-persist cycle that keeps
// the aggregate cache current.
//
// # Two paths
//
// Quick update (Advance) resumes from the persisted cursor: it fetches
// newest-first pages until it meets the cursor transaction, folds only what
// is strictly newer, and advances the cursor to the maximum position seen.
//
// Full re-sync (Rebuild) re-derives the whole cache by walking upstream
// history from the newest page to exhaustion and replaying the same fold.
// It is idempotent: two rebuilds against unchanged upstream data produce
// identical aggregates and cursor.
//
// # Commit discipline
//
// A run persists exactly once, at the end. Any upstream failure mid-run
// aborts without writing, so the prior good cache stays authoritative.
// Daily snapshots are appended after the persist and are best-effort:
// their failure never unwinds a commit.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/liskstats/aggregator/internal/core/domain"
	"github.com/liskstats/aggregator/internal/core/timeutil"
	"github.com/liskstats/aggregator/internal/infra/cachestore"
	"github.com/liskstats/aggregator/internal/infra/snapshot"
	"github.com/liskstats/aggregator/internal/infra/upstream"
	"github.com/liskstats/aggregator/internal/ingest/metrics"
	"github.com/liskstats/aggregator/internal/ingest/status"
)

// ErrCursorUnreachable is returned internally when the page ceiling is hit
// without meeting the stored cursor; the engine resolves it by rebuilding.
var ErrCursorUnreachable = errors.New("stored cursor not found upstream")

// Mode names the ingestion path a run took.
type Mode string

const (
	ModeAdvance   Mode = "advance"
	ModeRebuild   Mode = "rebuild"
	ModeBootstrap Mode = "bootstrap"
)

// Report summarizes one ingestion run.
type Report struct {
	RunID               string        `json:"run_id"`
	Mode                Mode          `json:"mode"`
	ProtectionActivated bool          `json:"protection_activated"`
	MissingDays         []string      `json:"missing_days,omitempty"`
	Pages               int           `json:"pages"`
	Folded              int           `json:"folded"`
	Cursor              domain.Cursor `json:"cursor"`
	Duration            time.Duration `json:"duration"`
}

// Config holds engine settings.
type Config struct {
	// Address is the monitored contract address.
	Address string

	// MaxPages caps quick-update fetches; exceeding it without meeting
	// the stored cursor forces a rebuild.
	MaxPages int
}

// Engine owns the aggregate cache. All mutation goes through it under a
// single mutex; readers get the last persisted snapshot via CachedData and
// never block on ingestion.
type Engine struct {
	cfg        Config
	store      cachestore.Store
	source     upstream.Source
	classifier *status.Classifier
	snapshots  snapshot.Sink // nil disables snapshotting
	log        *slog.Logger

	mu  sync.Mutex
	now func() time.Time
}

// NewEngine creates an ingestion engine. snapshots may be nil.
func NewEngine(cfg Config, store cachestore.Store, source upstream.Source, classifier *status.Classifier, snapshots snapshot.Sink, log *slog.Logger) *Engine {
	if cfg.MaxPages == 0 {
		cfg.MaxPages = 200
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		cfg:        cfg,
		store:      store,
		source:     source,
		classifier: classifier,
		snapshots:  snapshots,
		log:        log,
		now:        time.Now,
	}
}

// SetClock overrides the engine clock, for tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// CachedData returns the last successfully persisted cache without taking
// the ingestion lock, or nil when none has ever been built.
func (e *Engine) CachedData(ctx context.Context) (*domain.AggregateCache, error) {
	cache, err := e.store.Load(ctx)
	if err != nil {
		if errors.Is(err, cachestore.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return cache, nil
}

// Advance performs a quick update from the stored cursor forward. With no
// usable cache it bootstraps via a full rebuild; an unreachable cursor
// (page ceiling hit without a match) degrades to a rebuild as well.
func (e *Engine) Advance(ctx context.Context) (*Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.advanceLocked(ctx)
}

// Rebuild re-derives the entire cache from upstream history.
func (e *Engine) Rebuild(ctx context.Context) (*Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rebuildLocked(ctx, ModeRebuild)
}

func (e *Engine) advanceLocked(ctx context.Context) (*Report, error) {
	started := e.now()
	runID := uuid.New().String()
	log := e.log.With("run_id", runID, "mode", ModeAdvance)

	cache, err := e.store.Load(ctx)
	if err != nil {
		if errors.Is(err, cachestore.ErrNotFound) {
			log.Info("No usable cache, bootstrapping")
			return e.rebuildLocked(ctx, ModeBootstrap)
		}
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}

	fresh, pages, err := e.fetchNewerThan(ctx, cache.Cursor)
	if errors.Is(err, ErrCursorUnreachable) {
		log.Warn("Stored cursor not found upstream, forcing rebuild",
			"cursor_block", cache.Cursor.LastBlockNumber,
			"pages_scanned", pages)
		return e.rebuildLocked(ctx, ModeRebuild)
	}
	if err != nil {
		metrics.RunsTotal.WithLabelValues(string(ModeAdvance), "error").Inc()
		return nil, fmt.Errorf("failed to fetch new transactions: %w", err)
	}

	folded, maxPos := e.fold(cache, fresh, cache.Cursor)

	// Cursor advances to the newest position observed, countable or not.
	// It never rewinds outside a rebuild.
	if maxPos.After(cache.Cursor) {
		cache.Cursor = maxPos
	}

	e.reclassify(cache, touchedDays(fresh, e.now()))

	if err := e.store.Save(ctx, cache); err != nil {
		metrics.RunsTotal.WithLabelValues(string(ModeAdvance), "error").Inc()
		return nil, fmt.Errorf("failed to persist cache: %w", err)
	}

	e.afterCommit(ctx, cache, log)
	metrics.RunsTotal.WithLabelValues(string(ModeAdvance), "ok").Inc()

	report := &Report{
		RunID:    runID,
		Mode:     ModeAdvance,
		Pages:    pages,
		Folded:   folded,
		Cursor:   cache.Cursor,
		Duration: e.now().Sub(started),
	}
	log.Info("Quick update complete",
		"pages", pages,
		"folded", folded,
		"cursor_block", cache.Cursor.LastBlockNumber,
		"total_transactions", cache.TotalTransactions)
	return report, nil
}

func (e *Engine) rebuildLocked(ctx context.Context, mode Mode) (*Report, error) {
	started := e.now()
	runID := uuid.New().String()
	log := e.log.With("run_id", runID, "mode", mode)
	log.Info("Full re-sync starting", "address", e.cfg.Address)

	// Walk the full history, newest-first, to exhaustion. No page ceiling
	// here: a rebuild is the expensive path by definition.
	var all []domain.Transaction
	pages := 0
	pageToken := ""
	for {
		page, err := e.source.FetchPage(ctx, e.cfg.Address, pageToken)
		if err != nil {
			metrics.RunsTotal.WithLabelValues(string(mode), "error").Inc()
			return nil, fmt.Errorf("failed to fetch page %d: %w", pages, err)
		}
		pages++
		metrics.PagesFetched.Inc()
		all = append(all, page.Transactions...)

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken

		select {
		case <-ctx.Done():
			metrics.RunsTotal.WithLabelValues(string(mode), "canceled").Inc()
			return nil, ctx.Err()
		default:
		}
	}

	cache := domain.NewAggregateCache()
	folded, maxPos := e.fold(cache, all, domain.Cursor{})
	cache.Cursor = maxPos

	// Classify every day from the earliest transaction through today.
	// Days without transactions get an explicit entry: a completed full
	// scan verifies them empty, which is what the gap guard trusts.
	now := e.now()
	if earliest := cache.EarliestDay(); earliest != "" {
		e.reclassify(cache, timeutil.DayKeysBetween(earliest, timeutil.DayKey(now)))
	}

	if err := e.store.Save(ctx, cache); err != nil {
		metrics.RunsTotal.WithLabelValues(string(mode), "error").Inc()
		return nil, fmt.Errorf("failed to persist cache: %w", err)
	}

	e.afterCommit(ctx, cache, log)
	metrics.RunsTotal.WithLabelValues(string(mode), "ok").Inc()

	report := &Report{
		RunID:    runID,
		Mode:     mode,
		Pages:    pages,
		Folded:   folded,
		Cursor:   cache.Cursor,
		Duration: e.now().Sub(started),
	}
	log.Info("Full re-sync complete",
		"pages", pages,
		"folded", folded,
		"cursor_block", cache.Cursor.LastBlockNumber,
		"total_transactions", cache.TotalTransactions)
	return report, nil
}

// fetchNewerThan pages newest-first until it meets the cursor transaction,
// drains the source, or hits the page ceiling. It returns transactions
// strictly newer than the cursor, newest first.
func (e *Engine) fetchNewerThan(ctx context.Context, cursor domain.Cursor) ([]domain.Transaction, int, error) {
	var fresh []domain.Transaction
	pages := 0
	pageToken := ""

	for pages < e.cfg.MaxPages {
		page, err := e.source.FetchPage(ctx, e.cfg.Address, pageToken)
		if err != nil {
			return nil, pages, err
		}
		pages++
		metrics.PagesFetched.Inc()

		for i := range page.Transactions {
			tx := page.Transactions[i]
			if cursor.Matches(&tx) {
				return fresh, pages, nil
			}
			if !tx.Position().After(cursor) {
				// At or below the cursor position without a hash match:
				// the stored cursor transaction no longer exists
				// upstream (resolved reorg). The aggregates can no
				// longer be trusted incrementally.
				return nil, pages, ErrCursorUnreachable
			}
			fresh = append(fresh, tx)
		}

		if page.NextPageToken == "" {
			if cursor.Zero() {
				return fresh, pages, nil
			}
			// Source exhausted without meeting the cursor: with a
			// non-zero cursor every transaction was "newer", which means
			// the stored position no longer exists upstream.
			return nil, pages, ErrCursorUnreachable
		}
		pageToken = page.NextPageToken
	}

	return nil, pages, ErrCursorUnreachable
}

// fold replays transactions oldest-to-newest into the cache, deduplicating
// by hash within the run and skipping anything not strictly newer than
// since. Returns the countable fold count and the maximum position
// observed across all transactions, countable or not.
func (e *Engine) fold(cache *domain.AggregateCache, txs []domain.Transaction, since domain.Cursor) (int, domain.Cursor) {
	seen := make(map[string]struct{}, len(txs))
	maxPos := since
	folded := 0

	// Input arrives newest-first; iterate backwards so aggregates are
	// applied oldest-to-newest.
	for i := len(txs) - 1; i >= 0; i-- {
		tx := txs[i]
		if !tx.Position().After(since) {
			continue
		}
		if _, dup := seen[tx.Hash]; dup {
			continue
		}
		seen[tx.Hash] = struct{}{}

		if tx.Position().After(maxPos) {
			maxPos = tx.Position()
		}

		if !tx.Countable(e.cfg.Address) {
			continue
		}
		cache.Fold(&tx)
		folded++
		metrics.TransactionsFolded.Inc()
	}
	return folded, maxPos
}

// reclassify recomputes the status of the given days.
func (e *Engine) reclassify(cache *domain.AggregateCache, days []string) {
	now := e.now()
	for _, day := range days {
		cache.DailyStatus[day] = e.classifier.Classify(
			day,
			cache.DailyTotals[day],
			cache.HourlyHistogram(day),
			now,
		)
	}
}

// touchedDays returns the days affected by a batch plus the previous day,
// since crossing midnight can close a day that was incomplete.
func touchedDays(txs []domain.Transaction, now time.Time) []string {
	set := map[string]struct{}{
		timeutil.DayKey(now):         {},
		timeutil.PreviousDayKey(now): {},
	}
	for i := range txs {
		set[timeutil.DayKey(time.Unix(txs[i].Timestamp, 0))] = struct{}{}
	}
	days := make([]string, 0, len(set))
	for day := range set {
		days = append(days, day)
	}
	return days
}

// afterCommit refreshes gauges and appends the daily snapshot. Snapshot
// failure is logged and dropped; the commit already happened.
func (e *Engine) afterCommit(ctx context.Context, cache *domain.AggregateCache, log *slog.Logger) {
	metrics.CacheTotalTransactions.Set(float64(cache.TotalTransactions))
	metrics.CacheDaysActive.Set(float64(cache.TotalDaysActive))
	metrics.CursorBlock.Set(float64(cache.Cursor.LastBlockNumber))

	if e.snapshots == nil {
		return
	}
	day := timeutil.PreviousDayKey(e.now())
	snap := snapshot.FromCache(day, cache, e.now())
	if err := e.snapshots.Append(ctx, snap); err != nil {
		metrics.SnapshotFailures.Inc()
		log.Warn("Failed to append daily snapshot", "day", day, "error", err)
	}
}
