package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal tracks ingestion runs by mode and outcome.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liskstats_ingest_runs_total",
			Help: "Total number of ingestion runs",
		},
		[]string{"mode", "outcome"},
	)

	// PagesFetched tracks explorer pages fetched.
	PagesFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "liskstats_pages_fetched_total",
			Help: "Total number of explorer pages fetched",
		},
	)

	// TransactionsFolded tracks transactions folded into the aggregates.
	TransactionsFolded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "liskstats_transactions_folded_total",
			Help: "Total number of transactions folded into aggregates",
		},
	)

	// GapDaysDetected tracks days the gap guard found missing.
	GapDaysDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "liskstats_gap_days_detected_total",
			Help: "Total number of missing days detected by the gap guard",
		},
	)

	// ProtectionActivations tracks guard-forced rebuilds.
	ProtectionActivations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "liskstats_protection_activations_total",
			Help: "Total number of rebuilds forced by gap detection",
		},
	)

	// CacheTotalTransactions mirrors the persisted cache's transaction total.
	CacheTotalTransactions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "liskstats_cache_total_transactions",
			Help: "Total transactions in the persisted cache",
		},
	)

	// CacheDaysActive mirrors the persisted cache's active day count.
	CacheDaysActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "liskstats_cache_days_active",
			Help: "Days with at least one transaction in the persisted cache",
		},
	)

	// CursorBlock mirrors the persisted cursor's block number.
	CursorBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "liskstats_cursor_block",
			Help: "Block number of the persisted cursor",
		},
	)

	// SnapshotFailures tracks best-effort snapshot writes that failed.
	SnapshotFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "liskstats_snapshot_failures_total",
			Help: "Total number of failed daily snapshot writes",
		},
	)
)
