package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/liskstats/aggregator/internal/core/timeutil"
)

// SchemaVersion is the cache record version this build reads and writes.
// Records carrying an unrecognized version are treated as absent so the
// engine falls back to a full rebuild.
const SchemaVersion = "1.2.0"

// DayStatus classifies a calendar day's aggregate relative to "now".
type DayStatus string

const (
	// DayStatusEmpty marks a fully elapsed day with zero transactions.
	DayStatusEmpty DayStatus = "empty"

	// DayStatusIncomplete marks a day that has not yet closed.
	DayStatusIncomplete DayStatus = "incomplete"

	// DayStatusComplete marks a fully elapsed day with trustworthy data.
	DayStatusComplete DayStatus = "complete"

	// DayStatusIncompleteData marks a closed day whose record shows
	// suspicious under-coverage: recorded before its ingestion window
	// closed, or with a histogram inconsistent with a full-day scan.
	DayStatusIncompleteData DayStatus = "incomplete_data"
)

// AggregateCache is the single persisted root of the aggregation pipeline.
// It is exclusively owned and mutated by the ingestion engine under a
// load-mutate-persist discipline; readers only ever see fully persisted
// snapshots.
type AggregateCache struct {
	SchemaVersion string `json:"schema_version"`

	DailyTotals   map[string]uint64         `json:"daily_totals"`
	MonthlyTotals map[string]uint64         `json:"monthly_totals"`
	DailyStatus   map[string]DayStatus      `json:"daily_status"`
	HourlyData    map[string]map[int]uint64 `json:"hourly_data"` // sparse: only hours with activity

	Cursor Cursor `json:"cursor"`

	// Derived fields, recomputed on every save. Never trusted incrementally.
	TotalTransactions uint64 `json:"total_transactions"`
	TotalDaysActive   int    `json:"total_days_active"`

	GeneratedAt time.Time `json:"generated_at"`
	LastUpdate  time.Time `json:"last_update"`
	Integrity   string    `json:"integrity"`
}

// NewAggregateCache returns an empty cache at the current schema version.
func NewAggregateCache() *AggregateCache {
	return &AggregateCache{
		SchemaVersion: SchemaVersion,
		DailyTotals:   make(map[string]uint64),
		MonthlyTotals: make(map[string]uint64),
		DailyStatus:   make(map[string]DayStatus),
		HourlyData:    make(map[string]map[int]uint64),
	}
}

// Fold applies one countable transaction to the aggregates. Cursor
// advancement is handled separately by the caller, which must track the
// maximum position observed rather than the last folded.
func (c *AggregateCache) Fold(tx *Transaction) {
	ts := time.Unix(tx.Timestamp, 0).UTC()
	day := timeutil.DayKey(ts)
	month := timeutil.MonthKey(ts)

	c.DailyTotals[day]++
	c.MonthlyTotals[month]++

	hours, ok := c.HourlyData[day]
	if !ok {
		hours = make(map[int]uint64)
		c.HourlyData[day] = hours
	}
	hours[ts.Hour()]++
}

// HourlyHistogram returns the 24-slot histogram for a day, or nil if the
// day has no hourly record at all.
func (c *AggregateCache) HourlyHistogram(dayKey string) *[24]uint64 {
	hours, ok := c.HourlyData[dayKey]
	if !ok {
		return nil
	}
	var hist [24]uint64
	for h, n := range hours {
		if h >= 0 && h < 24 {
			hist[h] = n
		}
	}
	return &hist
}

// EarliestDay returns the oldest day key with any record, or "" when the
// cache holds no days.
func (c *AggregateCache) EarliestDay() string {
	earliest := ""
	for day := range c.DailyTotals {
		if earliest == "" || day < earliest {
			earliest = day
		}
	}
	for day := range c.DailyStatus {
		if earliest == "" || day < earliest {
			earliest = day
		}
	}
	return earliest
}

// Normalize recomputes every derived field from the maps they summarize and
// refreshes the write metadata. Stores call this on every save so callers
// can never persist stale derived values.
func (c *AggregateCache) Normalize(now time.Time) {
	if c.DailyTotals == nil {
		c.DailyTotals = make(map[string]uint64)
	}
	if c.MonthlyTotals == nil {
		c.MonthlyTotals = make(map[string]uint64)
	}
	if c.DailyStatus == nil {
		c.DailyStatus = make(map[string]DayStatus)
	}
	if c.HourlyData == nil {
		c.HourlyData = make(map[string]map[int]uint64)
	}

	var total uint64
	active := 0
	for _, n := range c.DailyTotals {
		total += n
		if n > 0 {
			active++
		}
	}
	c.TotalTransactions = total
	c.TotalDaysActive = active

	c.GeneratedAt = now.UTC()
	c.LastUpdate = now.UTC()
	c.Integrity = c.Fingerprint()
}

// Fingerprint computes a deterministic content hash of the aggregate state.
// It covers the maps and cursor but not the write timestamps, so two caches
// holding identical data fingerprint identically regardless of when they
// were saved. This is a corruption sanity check, not a security measure.
func (c *AggregateCache) Fingerprint() string {
	var b strings.Builder
	b.WriteString(c.SchemaVersion)
	b.WriteByte('|')

	writeSorted := func(m map[string]uint64) {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s=%d;", k, m[k])
		}
		b.WriteByte('|')
	}

	writeSorted(c.DailyTotals)
	writeSorted(c.MonthlyTotals)

	days := make([]string, 0, len(c.HourlyData))
	for day := range c.HourlyData {
		days = append(days, day)
	}
	sort.Strings(days)
	for _, day := range days {
		b.WriteString(day)
		b.WriteByte(':')
		for h := 0; h < 24; h++ {
			if n := c.HourlyData[day][h]; n > 0 {
				fmt.Fprintf(&b, "%d=%d,", h, n)
			}
		}
		b.WriteByte(';')
	}
	b.WriteByte('|')

	statusDays := make([]string, 0, len(c.DailyStatus))
	for day := range c.DailyStatus {
		statusDays = append(statusDays, day)
	}
	sort.Strings(statusDays)
	for _, day := range statusDays {
		fmt.Fprintf(&b, "%s=%s;", day, c.DailyStatus[day])
	}
	b.WriteByte('|')

	fmt.Fprintf(&b, "%d:%d:%s", c.Cursor.LastBlockNumber, c.Cursor.LastTxIndex, c.Cursor.LastTxHash)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// VerifyIntegrity reports whether the stored fingerprint matches the
// content. An empty fingerprint (pre-integrity records) fails verification.
func (c *AggregateCache) VerifyIntegrity() bool {
	return c.Integrity != "" && c.Integrity == c.Fingerprint()
}

// Clone returns a deep copy. Readers receive clones so they can never
// observe the engine's in-flight mutations.
func (c *AggregateCache) Clone() *AggregateCache {
	out := &AggregateCache{
		SchemaVersion:     c.SchemaVersion,
		DailyTotals:       make(map[string]uint64, len(c.DailyTotals)),
		MonthlyTotals:     make(map[string]uint64, len(c.MonthlyTotals)),
		DailyStatus:       make(map[string]DayStatus, len(c.DailyStatus)),
		HourlyData:        make(map[string]map[int]uint64, len(c.HourlyData)),
		Cursor:            c.Cursor,
		TotalTransactions: c.TotalTransactions,
		TotalDaysActive:   c.TotalDaysActive,
		GeneratedAt:       c.GeneratedAt,
		LastUpdate:        c.LastUpdate,
		Integrity:         c.Integrity,
	}
	for k, v := range c.DailyTotals {
		out.DailyTotals[k] = v
	}
	for k, v := range c.MonthlyTotals {
		out.MonthlyTotals[k] = v
	}
	for k, v := range c.DailyStatus {
		out.DailyStatus[k] = v
	}
	for day, hours := range c.HourlyData {
		h := make(map[int]uint64, len(hours))
		for hour, n := range hours {
			h[hour] = n
		}
		out.HourlyData[day] = h
	}
	return out
}
