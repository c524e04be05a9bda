package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pilot-net/outage-counter/db/migrate"
	"github.com/pilot-net/outage-counter/internal/config"
	"github.com/pilot-net/outage-counter/pkg/types"
)

// PostgresStore keeps outage dates in the outage_dates table.
//
// Days cross the wire as YYYY-MM-DD text and are cast in SQL, so the
// server's DateStyle and time zone never shift a calendar day.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore connects to the database URL, verifies the connection and
// applies pending migrations.
func NewPostgresStore(ctx context.Context, url string, logger *slog.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, config.DatabasePingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if err := migrate.Run(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &PostgresStore{pool: pool, logger: logger}, nil
}

// AddDate inserts the day, ignoring duplicates.
func (s *PostgresStore) AddDate(ctx context.Context, day time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO outage_dates (day) VALUES ($1::text::date)
		ON CONFLICT (day) DO NOTHING
	`, types.FormatDate(day))
	if err != nil {
		return fmt.Errorf("adding outage date: %w", err)
	}
	return nil
}

// RemoveDate deletes the day if present.
func (s *PostgresStore) RemoveDate(ctx context.Context, day time.Time) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM outage_dates WHERE day = $1::text::date`, types.FormatDate(day))
	if err != nil {
		return fmt.Errorf("removing outage date: %w", err)
	}
	return nil
}

// ListDates returns every stored day.
func (s *PostgresStore) ListDates(ctx context.Context) ([]time.Time, error) {
	rows, err := s.pool.Query(ctx, `SELECT to_char(day, 'YYYY-MM-DD') FROM outage_dates`)
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
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// Clear deletes all rows.
func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM outage_dates`); err != nil {
		return fmt.Errorf("clearing outage dates: %w", err)
	}
	return nil
}

// Ping tests database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
