package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx via database/sql
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/liskstats/aggregator/internal/stats"
)

// Config holds PostgreSQL connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// PostgresSink stores snapshots in the daily_snapshots table.
type PostgresSink struct {
	db *sqlx.DB
}

// NewPostgresSink opens the database, runs pending migrations and returns
// the sink.
func NewPostgresSink(ctx context.Context, cfg Config, migrationsDir string) (*PostgresSink, error) {
	db, err := sqlx.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	} else {
		db.SetMaxOpenConns(10)
	}
	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(cfg.MinConns)
	} else {
		db.SetMaxIdleConns(2)
	}
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := goose.Up(db.DB, migrationsDir); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate db: %w", err)
	}

	return &PostgresSink{db: db}, nil
}

// Close closes the database connection.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}

// Append inserts the snapshot row. A day that already has one is left
// untouched; snapshots are write-once.
func (s *PostgresSink) Append(ctx context.Context, snap *DailySnapshot) error {
	analysis, err := json.Marshal(snap.Analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	const query = `
		INSERT INTO daily_snapshots
			(day_key, total_transactions, total_days_active, cursor_block, cursor_tx_index, analysis, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (day_key) DO NOTHING`

	_, err = s.db.ExecContext(ctx, query,
		snap.DayKey,
		int64(snap.TotalTransactions),
		snap.TotalDaysActive,
		int64(snap.CursorBlock),
		int64(snap.CursorTxIndex),
		analysis,
		snap.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot, or nil when the table is empty.
func (s *PostgresSink) Latest(ctx context.Context) (*DailySnapshot, error) {
	const query = `
		SELECT day_key, total_transactions, total_days_active, cursor_block, cursor_tx_index, analysis, created_at
		FROM daily_snapshots
		ORDER BY day_key DESC
		LIMIT 1`

	var row struct {
		DayKey            string    `db:"day_key"`
		TotalTransactions int64     `db:"total_transactions"`
		TotalDaysActive   int       `db:"total_days_active"`
		CursorBlock       int64     `db:"cursor_block"`
		CursorTxIndex     int64     `db:"cursor_tx_index"`
		Analysis          []byte    `db:"analysis"`
		CreatedAt         time.Time `db:"created_at"`
	}
	if err := s.db.GetContext(ctx, &row, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query latest snapshot: %w", err)
	}

	var analysis stats.Analysis
	if err := json.Unmarshal(row.Analysis, &analysis); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
	}

	return &DailySnapshot{
		DayKey:            row.DayKey,
		TotalTransactions: uint64(row.TotalTransactions),
		TotalDaysActive:   row.TotalDaysActive,
		CursorBlock:       uint64(row.CursorBlock),
		CursorTxIndex:     uint64(row.CursorTxIndex),
		Analysis:          analysis,
		CreatedAt:         row.CreatedAt,
	}, nil
}
