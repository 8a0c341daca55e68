// Package stats derives the dashboard's analysis view from the aggregate
// cache: volume statistics, moving averages, trend fit and temporal
// patterns. Everything here is a pure computation over the per-day and
// per-hour maps.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/liskstats/aggregator/internal/core/domain"
	"github.com/liskstats/aggregator/internal/core/timeutil"
)

// Analysis is the computed analysis view written into daily snapshots and
// served alongside the raw aggregates.
type Analysis struct {
	DailyMean            float64 `json:"daily_mean"`
	DailyStdDev          float64 `json:"daily_std_dev"`
	CoefficientVariation float64 `json:"coefficient_variation"`
	MinDailyVolume       uint64  `json:"min_daily_volume"`
	MaxDailyVolume       uint64  `json:"max_daily_volume"`

	MovingAverage7d  float64 `json:"moving_average_7d"`
	MovingAverage30d float64 `json:"moving_average_30d"`

	TrendSlope    float64 `json:"trend_slope"` // transactions per day
	TrendRSquared float64 `json:"trend_r_squared"`

	// 2-sigma outlier band around the daily mean.
	OutlierThresholdUpper float64 `json:"outlier_threshold_upper"`
	OutlierThresholdLower float64 `json:"outlier_threshold_lower"`

	HourlyAverages     [24]float64 `json:"hourly_averages"`
	PeakHours          []int       `json:"peak_hours"` // top 3, busiest first
	PeakHourMultiplier float64     `json:"peak_hour_multiplier"`

	WeekendWeekdayRatio float64 `json:"weekend_weekday_ratio"`
	MostActiveWeekday   int     `json:"most_active_weekday"`  // 0=Monday
	LeastActiveWeekday  int     `json:"least_active_weekday"` // 0=Monday
}

// Compute derives the analysis view from a cache. Only closed days with a
// trustworthy record (complete or empty) participate, so a partially
// ingested today never skews the statistics.
func Compute(cache *domain.AggregateCache) Analysis {
	var a Analysis

	days := trustedDays(cache)
	if len(days) == 0 {
		return a
	}

	volumes := make([]float64, len(days))
	for i, d := range days {
		volumes[i] = float64(cache.DailyTotals[d])
	}

	a.DailyMean = mean(volumes)
	a.DailyStdDev = stdDev(volumes, a.DailyMean)
	if a.DailyMean != 0 {
		a.CoefficientVariation = a.DailyStdDev / a.DailyMean
	}
	a.MinDailyVolume = uint64(minOf(volumes))
	a.MaxDailyVolume = uint64(maxOf(volumes))

	a.MovingAverage7d = tailMean(volumes, 7)
	a.MovingAverage30d = tailMean(volumes, 30)

	a.TrendSlope, a.TrendRSquared = linearTrend(volumes)

	a.OutlierThresholdUpper = a.DailyMean + 2*a.DailyStdDev
	a.OutlierThresholdLower = a.DailyMean - 2*a.DailyStdDev

	a.HourlyAverages, a.PeakHours, a.PeakHourMultiplier = hourlyPatterns(cache, days)

	a.WeekendWeekdayRatio, a.MostActiveWeekday, a.LeastActiveWeekday = weekdayPatterns(cache, days)

	return a
}

// trustedDays returns day keys whose record is closed and reliable,
// oldest first.
func trustedDays(cache *domain.AggregateCache) []string {
	var days []string
	for day, st := range cache.DailyStatus {
		if st == domain.DayStatusComplete || st == domain.DayStatusEmpty {
			days = append(days, day)
		}
	}
	sort.Strings(days)
	return days
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stdDev(xs []float64, m float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

// tailMean averages the last n values, or all of them when fewer exist.
func tailMean(xs []float64, n int) float64 {
	if len(xs) == 0 {
		return 0
	}
	if len(xs) < n {
		n = len(xs)
	}
	return mean(xs[len(xs)-n:])
}

// linearTrend fits y = slope*x + intercept by least squares over the day
// index and returns the slope and R-squared of the fit.
func linearTrend(ys []float64) (slope, rSquared float64) {
	n := len(ys)
	if n < 2 {
		return 0, 0
	}

	xMean := float64(n-1) / 2
	yMean := mean(ys)

	var num, den float64
	for i, y := range ys {
		dx := float64(i) - xMean
		num += dx * (y - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0, 0
	}
	slope = num / den
	intercept := yMean - slope*xMean

	var ssRes, ssTot float64
	for i, y := range ys {
		fit := slope*float64(i) + intercept
		ssRes += (y - fit) * (y - fit)
		ssTot += (y - yMean) * (y - yMean)
	}
	if ssTot == 0 {
		return slope, 0
	}
	return slope, 1 - ssRes/ssTot
}

func hourlyPatterns(cache *domain.AggregateCache, days []string) (averages [24]float64, peaks []int, multiplier float64) {
	if len(days) == 0 {
		return
	}

	var totals [24]float64
	for _, day := range days {
		for h, n := range cache.HourlyData[day] {
			if h >= 0 && h < 24 {
				totals[h] += float64(n)
			}
		}
	}

	var overall float64
	for h := 0; h < 24; h++ {
		averages[h] = totals[h] / float64(len(days))
		overall += averages[h]
	}

	order := make([]int, 24)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		if averages[order[i]] != averages[order[j]] {
			return averages[order[i]] > averages[order[j]]
		}
		return order[i] < order[j]
	})
	peaks = order[:3]

	if overall > 0 {
		multiplier = averages[peaks[0]] / (overall / 24)
	}
	return
}

func weekdayPatterns(cache *domain.AggregateCache, days []string) (ratio float64, most, least int) {
	var weekdaySum, weekdayCount, weekendSum, weekendCount float64
	var byWeekday [7]float64

	for _, day := range days {
		start, err := timeutil.ParseDayKey(day)
		if err != nil {
			continue
		}
		v := float64(cache.DailyTotals[day])

		// Normalize to 0=Monday like the dashboard expects.
		wd := (int(start.Weekday()) + 6) % 7
		byWeekday[wd] += v

		if start.Weekday() == time.Saturday || start.Weekday() == time.Sunday {
			weekendSum += v
			weekendCount++
		} else {
			weekdaySum += v
			weekdayCount++
		}
	}

	if weekdayCount > 0 && weekendCount > 0 && weekdaySum > 0 {
		ratio = (weekendSum / weekendCount) / (weekdaySum / weekdayCount)
	}

	most, least = 0, 0
	for i := 1; i < 7; i++ {
		if byWeekday[i] > byWeekday[most] {
			most = i
		}
		if byWeekday[i] < byWeekday[least] {
			least = i
		}
	}
	return
}
