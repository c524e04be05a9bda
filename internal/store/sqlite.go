package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pilot-net/outage-counter/internal/config"
	"github.com/pilot-net/outage-counter/pkg/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS outage_dates (
  day TEXT PRIMARY KEY,
  recorded_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);`

// SQLiteStore keeps outage dates in a local SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at path and ensures the schema.
// Use ":memory:" for a throwaway database.
func NewSQLiteStore(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// One connection: an in-memory database exists per connection, and SQLite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, config.DatabasePingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping failed: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sqlite schema: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// AddDate inserts the day, ignoring duplicates.
func (s *SQLiteStore) AddDate(ctx context.Context, day time.Time) error {
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO outage_dates (day) VALUES (?)`,
		types.FormatDate(day)); err != nil {
		return fmt.Errorf("adding outage date: %w", err)
	}
	return nil
}

// RemoveDate deletes the day if present.
func (s *SQLiteStore) RemoveDate(ctx context.Context, day time.Time) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM outage_dates WHERE day = ?`,
		types.FormatDate(day)); err != nil {
		return fmt.Errorf("removing outage date: %w", err)
	}
	return nil
}

// ListDates returns every stored day.
func (s *SQLiteStore) ListDates(ctx context.Context) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT day FROM outage_dates`)
	if err != nil {
		return nil, fmt.Errorf("listing outage dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning outage date: %w", err)
		}
		d, err := types.ParseDate(raw)
		if err != nil {
			s.logger.Warn("skipping malformed outage date", "day", raw, "error", err)
			continue
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// Clear deletes all rows.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM outage_dates`); err != nil {
		return fmt.Errorf("clearing outage dates: %w", err)
	}
	return nil
}

// Ping checks the database handle.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
