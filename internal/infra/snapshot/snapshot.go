// Package snapshot appends immutable daily copies of the cache's analysis
// view for trend queries over time. Snapshots are write-once: one row per
// day key, never mutated or deleted, and always best-effort from the
// engine's point of view.
package snapshot

import (
	"context"
	"time"

	"github.com/liskstats/aggregator/internal/core/domain"
	"github.com/liskstats/aggregator/internal/stats"
)

// DailySnapshot is the analysis view of the cache frozen at the end of an
// ingestion cycle.
type DailySnapshot struct {
	DayKey            string         `db:"day_key"            json:"day_key"`
	TotalTransactions uint64         `db:"total_transactions" json:"total_transactions"`
	TotalDaysActive   int            `db:"total_days_active"  json:"total_days_active"`
	CursorBlock       uint64         `db:"cursor_block"       json:"cursor_block"`
	CursorTxIndex     uint64         `db:"cursor_tx_index"    json:"cursor_tx_index"`
	Analysis          stats.Analysis `db:"-"                  json:"analysis"`
	CreatedAt         time.Time      `db:"created_at"         json:"created_at"`
}

// FromCache builds a snapshot of the cache for a day key.
func FromCache(dayKey string, cache *domain.AggregateCache, now time.Time) *DailySnapshot {
	return &DailySnapshot{
		DayKey:            dayKey,
		TotalTransactions: cache.TotalTransactions,
		TotalDaysActive:   cache.TotalDaysActive,
		CursorBlock:       cache.Cursor.LastBlockNumber,
		CursorTxIndex:     cache.Cursor.LastTxIndex,
		Analysis:          stats.Compute(cache),
		CreatedAt:         now.UTC(),
	}
}

// Sink stores daily snapshots. Append is idempotent per day key: a day that
// already has a snapshot is left untouched.
type Sink interface {
	Append(ctx context.Context, snap *DailySnapshot) error

	// Latest returns the most recent snapshot, or nil when none exist.
	Latest(ctx context.Context) (*DailySnapshot, error)
}
