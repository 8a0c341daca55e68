// Package status classifies calendar days relative to "now".
//
// A day is classified as one of:
//
//	incomplete      - the day has not closed yet; its count is partial
//	empty           - the day closed with zero transactions
//	complete        - the day closed with a plausible full-day record
//	incomplete_data - the day closed but its record looks under-covered,
//	                  i.e. it was written before the day's ingestion
//	                  window finished
//
// The under-coverage heuristic is deliberately configurable: a closed day
// whose total meets CoverageMinTotal is expected to spread its activity
// over at least MinActiveHours distinct hours. Days below the total
// threshold are accepted as complete regardless of spread, since low-volume
// days legitimately cluster in a few hours.
package status

import (
	"time"

	"github.com/liskstats/aggregator/internal/core/domain"
	"github.com/liskstats/aggregator/internal/core/timeutil"
)

// Config tunes the coverage heuristic behind incomplete_data.
type Config struct {
	// MinActiveHours is the minimum number of distinct non-zero hours a
	// high-volume closed day must show to be considered complete.
	MinActiveHours int `yaml:"min_active_hours"`

	// CoverageMinTotal is the daily total at and above which the hour
	// spread check applies.
	CoverageMinTotal uint64 `yaml:"coverage_min_total"`
}

// ApplyDefaults fills zero fields with the defaults.
func (c *Config) ApplyDefaults() {
	if c.MinActiveHours == 0 {
		c.MinActiveHours = 6
	}
	if c.CoverageMinTotal == 0 {
		c.CoverageMinTotal = 48
	}
}

// Classifier assigns a DayStatus to a day's aggregate.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a classifier. Zero config fields get defaults.
func NewClassifier(cfg Config) *Classifier {
	cfg.ApplyDefaults()
	return &Classifier{cfg: cfg}
}

// Classify assigns a status to a day given its total count, its 24-slot
// hourly histogram (nil when no hourly record exists) and the current time.
func (c *Classifier) Classify(dayKey string, total uint64, hist *[24]uint64, now time.Time) domain.DayStatus {
	if !timeutil.IsDayComplete(dayKey, now) {
		// Today's count is partial by definition, regardless of total.
		return domain.DayStatusIncomplete
	}

	if total == 0 {
		return domain.DayStatusEmpty
	}

	if hist == nil {
		// Transactions counted but no hourly record at all: the day was
		// written by a code path that never saw its hours.
		return domain.DayStatusIncompleteData
	}

	if total >= c.cfg.CoverageMinTotal {
		active := 0
		for _, n := range hist {
			if n > 0 {
				active++
			}
		}
		if active < c.cfg.MinActiveHours {
			return domain.DayStatusIncompleteData
		}
	}

	return domain.DayStatusComplete
}
