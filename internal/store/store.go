// Package store persists the set of outage dates.
//
// # Design
//
// The tracker only needs set semantics over calendar days: add, remove, list,
// clear. Every backend stores one member per day, so recording the same day
// twice collapses and removing an absent day is a no-op. The "last outage" is
// not stored; callers derive it from the set.
//
// Three backends implement Store:
//   - Redis (RedisStore), a set of YYYY-MM-DD strings, compatible with the keys
//     written by the Lita outage counter handler
//   - PostgreSQL (PostgresStore), a DATE primary-key table managed by db/migrate
//   - SQLite (SQLiteStore), a single-file table for small deployments
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pilot-net/outage-counter/internal/config"
)

// Store is the outage date set.
type Store interface {
	// AddDate inserts a calendar day. Adding an existing day is a no-op.
	AddDate(ctx context.Context, day time.Time) error

	// RemoveDate deletes a calendar day. Removing an absent day is a no-op.
	RemoveDate(ctx context.Context, day time.Time) error

	// ListDates returns every stored day in no particular order.
	ListDates(ctx context.Context) ([]time.Time, error)

	// Clear deletes all history.
	Clear(ctx context.Context) error

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Close releases the connection.
	Close() error
}

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown store backend")

// Open connects to the backend selected by cfg.Backend and verifies it is reachable.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (Store, error) {
	logger = logger.With("component", "store", "backend", cfg.Backend)

	var (
		st  Store
		err error
	)
	switch cfg.Backend {
	case config.BackendRedis, "":
		var rs *RedisStore
		rs, err = NewRedisStore(ctx, cfg.URL, cfg.KeyPrefix, logger)
		st = rs

	case config.BackendPostgres:
		var ps *PostgresStore
		ps, err = NewPostgresStore(ctx, cfg.URL, logger)
		st = ps

	case config.BackendSQLite:
		var ss *SQLiteStore
		ss, err = NewSQLiteStore(ctx, cfg.SQLitePath, logger)
		st = ss

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("outage store ready")
	return st, nil
}
