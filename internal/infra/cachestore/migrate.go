package cachestore

import (
	"encoding/json"

	"github.com/liskstats/aggregator/internal/core/domain"
)

// migrator upgrades a raw record of one schema version to the current
// in-memory cache shape.
type migrator func(data []byte) (*domain.AggregateCache, bool)

// migrators is keyed on the record's schema version. A version without an
// entry is unknown and the record is treated as absent.
var migrators = map[string]migrator{
	"1.1.0": migrateRecentHourly,
	"1.1.1": migrateRecentHourly,
}

func migrate(version string, data []byte) (*domain.AggregateCache, bool) {
	m, ok := migrators[version]
	if !ok {
		return nil, false
	}
	return m(data)
}

// migrateRecentHourly upgrades 1.1.x records, which stored the rolling
// recent window as fixed 24-element arrays under recent_hourly, to the
// sparse hourly_data map.
func migrateRecentHourly(data []byte) (*domain.AggregateCache, bool) {
	var old struct {
		DailyTotals   map[string]uint64           `json:"daily_totals"`
		MonthlyTotals map[string]uint64           `json:"monthly_totals"`
		DailyStatus   map[string]domain.DayStatus `json:"daily_status"`
		RecentHourly  map[string][24]uint64       `json:"recent_hourly"`
		Cursor        domain.Cursor               `json:"cursor"`
	}
	if err := json.Unmarshal(data, &old); err != nil {
		return nil, false
	}

	cache := domain.NewAggregateCache()
	for k, v := range old.DailyTotals {
		cache.DailyTotals[k] = v
	}
	for k, v := range old.MonthlyTotals {
		cache.MonthlyTotals[k] = v
	}
	for k, v := range old.DailyStatus {
		cache.DailyStatus[k] = v
	}
	for day, hist := range old.RecentHourly {
		hours := make(map[int]uint64)
		for h, n := range hist {
			if n > 0 {
				hours[h] = n
			}
		}
		if len(hours) > 0 {
			cache.HourlyData[day] = hours
		}
	}
	cache.Cursor = old.Cursor
	return cache, true
}
