package cachestore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/liskstats/aggregator/internal/core/domain"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func seededCache() *domain.AggregateCache {
	c := domain.NewAggregateCache()
	c.DailyTotals["2025-06-14"] = 3
	c.MonthlyTotals["2025-06"] = 3
	c.HourlyData["2025-06-14"] = map[int]uint64{9: 2, 17: 1}
	c.DailyStatus["2025-06-14"] = domain.DayStatusComplete
	c.Cursor = domain.Cursor{LastBlockNumber: 100, LastTxIndex: 2, LastTxHash: "abc"}
	return c
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SetClock(func() time.Time { return testNow })

	if _, err := store.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty store Load = %v, want ErrNotFound", err)
	}

	if err := store.Save(ctx, seededCache()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.SchemaVersion != domain.SchemaVersion {
		t.Errorf("schema version = %q, want %q", got.SchemaVersion, domain.SchemaVersion)
	}
	if got.DailyTotals["2025-06-14"] != 3 {
		t.Errorf("daily total = %d, want 3", got.DailyTotals["2025-06-14"])
	}
	if got.TotalTransactions != 3 || got.TotalDaysActive != 1 {
		t.Errorf("derived = %d/%d, want 3/1", got.TotalTransactions, got.TotalDaysActive)
	}
	if got.Cursor.LastTxHash != "abc" {
		t.Errorf("cursor hash = %q", got.Cursor.LastTxHash)
	}
	if !got.GeneratedAt.Equal(testNow) {
		t.Errorf("GeneratedAt = %v, want %v", got.GeneratedAt, testNow)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Save(ctx, seededCache()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Delete(ctx); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load after Delete = %v, want ErrNotFound", err)
	}
}

func TestDecode_UnusableRecords(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		raw  func() []byte
	}{
		{
			name: "garbage bytes",
			raw:  func() []byte { return []byte("{not json") },
		},
		{
			name: "unknown schema version",
			raw: func() []byte {
				c := seededCache()
				c.Normalize(testNow)
				c.SchemaVersion = "0.9.0"
				data, _ := json.Marshal(c)
				return data
			},
		},
		{
			name: "future schema version",
			raw: func() []byte {
				c := seededCache()
				c.Normalize(testNow)
				c.SchemaVersion = "9.0.0"
				data, _ := json.Marshal(c)
				return data
			},
		},
		{
			name: "missing fingerprint",
			raw: func() []byte {
				c := seededCache()
				c.SchemaVersion = domain.SchemaVersion
				data, _ := json.Marshal(c)
				return data
			},
		},
		{
			name: "tampered content",
			raw: func() []byte {
				c := seededCache()
				c.Normalize(testNow)
				c.DailyTotals["2025-06-14"] = 999
				data, _ := json.Marshal(c)
				return data
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			store.SetRaw(tt.raw())
			if _, err := store.Load(ctx); !errors.Is(err, ErrNotFound) {
				t.Errorf("Load = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestDecode_MigratesLegacyRecord(t *testing.T) {
	ctx := context.Background()

	legacy := map[string]interface{}{
		"schema_version": "1.1.0",
		"daily_totals":   map[string]uint64{"2025-06-14": 3},
		"monthly_totals": map[string]uint64{"2025-06": 3},
		"daily_status":   map[string]string{"2025-06-14": "complete"},
		"recent_hourly": map[string][24]uint64{
			"2025-06-14": {9: 2, 17: 1},
		},
		"cursor": domain.Cursor{LastBlockNumber: 100, LastTxIndex: 2, LastTxHash: "abc"},
	}
	data, err := json.Marshal(legacy)
	if err != nil {
		t.Fatalf("marshal legacy record: %v", err)
	}

	store := NewMemoryStore()
	store.SetClock(func() time.Time { return testNow })
	store.SetRaw(data)

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load of legacy record failed: %v", err)
	}
	if got.DailyTotals["2025-06-14"] != 3 {
		t.Errorf("migrated daily total = %d, want 3", got.DailyTotals["2025-06-14"])
	}
	if got.HourlyData["2025-06-14"][9] != 2 || got.HourlyData["2025-06-14"][17] != 1 {
		t.Errorf("migrated hourly data = %v", got.HourlyData["2025-06-14"])
	}
	if len(got.HourlyData["2025-06-14"]) != 2 {
		t.Errorf("migration must drop zero hours, got %v", got.HourlyData["2025-06-14"])
	}
	if got.Cursor.LastBlockNumber != 100 {
		t.Errorf("migrated cursor block = %d, want 100", got.Cursor.LastBlockNumber)
	}

	// Saving the migrated record re-establishes integrity at the current
	// schema version.
	if err := store.Save(ctx, got); err != nil {
		t.Fatalf("Save after migration failed: %v", err)
	}
	saved, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load after re-save failed: %v", err)
	}
	if saved.SchemaVersion != domain.SchemaVersion {
		t.Errorf("re-saved schema = %q, want %q", saved.SchemaVersion, domain.SchemaVersion)
	}
	if !saved.VerifyIntegrity() {
		t.Error("re-saved record must verify")
	}
}

func TestNew_BackendSelection(t *testing.T) {
	if _, err := New(Config{Backend: "memory"}); err != nil {
		t.Errorf("memory backend: %v", err)
	}
	if _, err := New(Config{File: FileConfig{Path: "x.json"}}); err != nil {
		t.Errorf("default file backend: %v", err)
	}
	if _, err := New(Config{Backend: "etcd"}); err == nil {
		t.Error("unknown backend must fail")
	}
}
