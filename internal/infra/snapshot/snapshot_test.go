package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/liskstats/aggregator/internal/core/domain"
)

func TestMemorySink_AppendIdempotent(t *testing.T) {
	ctx := context.Background()
	sink := NewMemorySink()

	first := &DailySnapshot{DayKey: "2025-06-14", TotalTransactions: 100}
	if err := sink.Append(ctx, first); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// A later append for the same day must not overwrite.
	second := &DailySnapshot{DayKey: "2025-06-14", TotalTransactions: 999}
	if err := sink.Append(ctx, second); err != nil {
		t.Fatalf("second Append failed: %v", err)
	}

	if sink.Count() != 1 {
		t.Errorf("Count = %d, want 1", sink.Count())
	}
	if got := sink.Get("2025-06-14"); got.TotalTransactions != 100 {
		t.Errorf("snapshot overwritten: total = %d, want 100", got.TotalTransactions)
	}
}

func TestMemorySink_Latest(t *testing.T) {
	ctx := context.Background()
	sink := NewMemorySink()

	latest, err := sink.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest != nil {
		t.Errorf("empty sink Latest = %+v, want nil", latest)
	}

	for _, day := range []string{"2025-06-12", "2025-06-14", "2025-06-13"} {
		if err := sink.Append(ctx, &DailySnapshot{DayKey: day}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	latest, err = sink.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest == nil || latest.DayKey != "2025-06-14" {
		t.Errorf("Latest = %+v, want day 2025-06-14", latest)
	}
}

func TestFromCache(t *testing.T) {
	cache := domain.NewAggregateCache()
	cache.DailyTotals["2025-06-14"] = 5
	cache.DailyStatus["2025-06-14"] = domain.DayStatusComplete
	cache.Cursor = domain.Cursor{LastBlockNumber: 600, LastTxIndex: 2, LastTxHash: "h6"}
	cache.Normalize(time.Date(2025, 6, 15, 1, 0, 0, 0, time.UTC))

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	snap := FromCache("2025-06-14", cache, now)

	if snap.DayKey != "2025-06-14" {
		t.Errorf("DayKey = %q", snap.DayKey)
	}
	if snap.TotalTransactions != 5 || snap.TotalDaysActive != 1 {
		t.Errorf("totals = %d/%d, want 5/1", snap.TotalTransactions, snap.TotalDaysActive)
	}
	if snap.CursorBlock != 600 || snap.CursorTxIndex != 2 {
		t.Errorf("cursor = %d/%d, want 600/2", snap.CursorBlock, snap.CursorTxIndex)
	}
	if !snap.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", snap.CreatedAt, now)
	}
	if snap.Analysis.MaxDailyVolume != 5 {
		t.Errorf("analysis max volume = %d, want 5", snap.Analysis.MaxDailyVolume)
	}
}
